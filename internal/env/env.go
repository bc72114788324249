// Package env describes the running platform in the vocabulary used by
// feature manifests (os, ws, arch, nl) and matches manifest filters
// against it.
//
// An Environment is a plain value. Resolvers and parsers receive it
// explicitly, so tests can simulate any os/ws/arch/nl combination.
package env

import (
	"os"
	"runtime"
	"strings"
)

// Operating system names.
const (
	OSWin32  = "win32"
	OSLinux  = "linux"
	OSMacOSX = "macosx"
)

// Window system names.
const (
	WSWin32 = "win32"
	WSGTK   = "gtk"
	WSCocoa = "cocoa"
)

// DefaultLocale is used when no locale can be read from the process
// environment.
const DefaultLocale = "en_US"

// Environment is the os/ws/arch/nl tuple a feature filter is matched
// against.
type Environment struct {
	OS   string
	WS   string
	Arch string
	NL   string

	// CaseInsensitiveFS is set when file: URLs differing only in drive
	// letter case or separator style name the same file.
	CaseInsensitiveFS bool
}

var goosNames = map[string]string{
	"windows": OSWin32,
	"linux":   OSLinux,
	"darwin":  OSMacOSX,
}

var wsNames = map[string]string{
	OSWin32:  WSWin32,
	OSLinux:  WSGTK,
	OSMacOSX: WSCocoa,
}

var archNames = map[string]string{
	"amd64":   "x86_64",
	"386":     "x86",
	"arm64":   "aarch64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// Detect returns the Environment of the running process.
func Detect() Environment {
	return New(runtime.GOOS, runtime.GOARCH, localeFromEnv(os.Getenv))
}

// New builds an Environment from Go's GOOS/GOARCH names and a locale.
func New(goos, goarch, locale string) Environment {
	osName, ok := goosNames[goos]
	if !ok {
		osName = goos
	}
	arch, ok := archNames[goarch]
	if !ok {
		arch = goarch
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return Environment{
		OS:                osName,
		WS:                wsNames[osName],
		Arch:              arch,
		NL:                locale,
		CaseInsensitiveFS: osName == OSWin32,
	}
}

// WithOverrides returns a copy of e with every non-empty override applied.
func (e Environment) WithOverrides(osName, ws, arch, nl string) Environment {
	if osName != "" {
		e.OS = osName
		e.CaseInsensitiveFS = strings.EqualFold(osName, OSWin32)
	}
	if ws != "" {
		e.WS = ws
	}
	if arch != "" {
		e.Arch = arch
	}
	if nl != "" {
		e.NL = nl
	}
	return e
}

// localeFromEnv reads the POSIX locale variables in precedence order and
// strips the encoding and modifier ("de_DE.UTF-8@euro" becomes "de_DE").
func localeFromEnv(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			return v
		}
	}
	return ""
}
