// Package urlutil resolves the URL forms used in platform configurations:
// file: URLs naming local directories, and the symbolic platform:/base/ and
// platform:/config/ URLs that are relative to the install location and the
// configuration area.
//
// Everything here is a pure function of its arguments.
package urlutil

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/platconf/internal/env"
)

// URL schemes understood by the engine.
const (
	SchemeFile     = "file"
	SchemePlatform = "platform"
)

// Recognized platform URL prefixes.
const (
	PlatformBase   = "platform:/base/"
	PlatformConfig = "platform:/config/"
)

// Sentinel errors.
var (
	// ErrUnresolvable indicates a platform: URL could not be mapped to a
	// concrete location.
	ErrUnresolvable = errors.New("unresolvable platform URL")

	// ErrNotFileURL indicates a file system path was requested for a URL
	// that does not use the file: scheme.
	ErrNotFileURL = errors.New("not a file URL")
)

// Locations is the standard locator for platform: URLs that are resolved
// without an explicit base. Both URLs name directories and end in "/".
type Locations struct {
	// Install is the install location (target of platform:/base/).
	Install *url.URL
	// Config is the configuration area (target of platform:/config/).
	Config *url.URL
}

// Parse parses raw and normalizes file: URLs to the single-slash form.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing URL %q", raw)
	}
	if u.Scheme == "" {
		return nil, errors.Newf("URL %q has no scheme", raw)
	}
	return Normalize(u), nil
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(raw string) *url.URL {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Normalize returns u with file: URLs rendered as "file:/path" rather than
// "file:///path", so that equal locations produce equal strings.
func Normalize(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	if strings.EqualFold(u.Scheme, SchemeFile) && u.Host == "" && u.User == nil {
		c := *u
		c.Scheme = SchemeFile
		c.OmitHost = true
		return &c
	}
	return u
}

// AsDirectory returns u with a trailing slash on its path, so that
// relative references resolve inside the location rather than next to it.
func AsDirectory(u *url.URL) *url.URL {
	if u == nil || u.Opaque != "" || strings.HasSuffix(u.Path, "/") {
		return u
	}
	c := *u
	c.Path += "/"
	if c.RawPath != "" {
		c.RawPath += "/"
	}
	return &c
}

// IsFile reports whether u uses the file: scheme.
func IsFile(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Scheme, SchemeFile)
}

// IsPlatform reports whether u uses the platform: scheme.
func IsPlatform(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Scheme, SchemePlatform)
}

// FromPath converts a file system path to a file: URL. Directory URLs get
// a trailing slash so that relative references resolve inside them.
func FromPath(p string, dir bool) *url.URL {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		// Windows drive paths: C:/x becomes /C:/x.
		slashed = "/" + slashed
	}
	if dir && !strings.HasSuffix(slashed, "/") {
		slashed += "/"
	}
	return &url.URL{Scheme: SchemeFile, Path: slashed, OmitHost: true}
}

// ToPath converts a file: URL to a file system path.
func ToPath(u *url.URL) (string, error) {
	if !IsFile(u) {
		return "", errors.Wrapf(ErrNotFileURL, "%s", u)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if hasDrivePrefix(strings.TrimPrefix(p, "/")) {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p), nil
}

// ResolvePlatformURL maps a platform: URL to the location it stands for.
// Other URLs are returned unchanged.
//
// With a nil base the standard locator loc is used: platform:/base/ maps
// into loc.Install and platform:/config/ into loc.Config. With a base, the
// platform:/base/ or platform:/config/ prefix is stripped and the remainder
// resolved against base. A platform: URL with any other prefix resolves to
// base itself.
func ResolvePlatformURL(u, base *url.URL, loc Locations) (*url.URL, error) {
	if !IsPlatform(u) {
		return u, nil
	}

	s := u.String()
	if base == nil {
		switch {
		case strings.HasPrefix(s, PlatformBase) || s == strings.TrimSuffix(PlatformBase, "/"):
			base = loc.Install
		case strings.HasPrefix(s, PlatformConfig) || s == strings.TrimSuffix(PlatformConfig, "/"):
			base = loc.Config
		}
		if base == nil {
			return nil, errors.Wrapf(ErrUnresolvable, "%s", s)
		}
	}

	var rest string
	switch {
	case strings.HasPrefix(s, PlatformBase):
		rest = s[len(PlatformBase):]
	case strings.HasPrefix(s, PlatformConfig):
		rest = s[len(PlatformConfig):]
	default:
		return base, nil
	}

	ref, err := url.Parse(rest)
	if err != nil {
		return nil, errors.Wrapf(ErrUnresolvable, "%s: %v", s, err)
	}
	return resolveReference(base, ref), nil
}

// MakeAbsolute resolves a relative file: URL against a file: base. rel is
// returned unchanged if either URL is not a file: URL or rel's path is
// already absolute.
func MakeAbsolute(base, rel *url.URL) *url.URL {
	if !IsFile(base) || rel == nil {
		return rel
	}
	if rel.Scheme != "" && !IsFile(rel) {
		return rel
	}
	relPath := rel.Path
	if relPath == "" {
		relPath = rel.Opaque
	}
	if path.IsAbs(relPath) || hasDrivePrefix(relPath) {
		return rel
	}

	joined := path.Join(base.Path, relPath)
	if strings.HasSuffix(relPath, "/") {
		joined += "/"
	}
	return &url.URL{Scheme: SchemeFile, Path: joined, OmitHost: true}
}

// Canonicalize returns the key under which a site URL is stored. On
// case-insensitive file systems, file: URLs get forward slashes and a
// lower-case drive letter so that different spellings of one directory
// collide. All other input is returned unchanged. Canonicalize is
// idempotent.
func Canonicalize(s string, e env.Environment) string {
	if !e.CaseInsensitiveFS || !strings.HasPrefix(strings.ToLower(s), "file:") {
		return s
	}

	rest := strings.ReplaceAll(s[len("file:"):], `\`, "/")
	trimmed := strings.TrimLeft(rest, "/")
	if hasDrivePrefix(trimmed) {
		return "file:/" + string(unicode.ToLower(rune(trimmed[0]))) + trimmed[1:]
	}
	return "file:" + rest
}

// SupportsDetection reports whether the site at u can be scanned on the
// local file system: file: URLs always can, platform: URLs only if they
// resolve to a file: URL, anything else never.
func SupportsDetection(u *url.URL, loc Locations) bool {
	switch {
	case IsFile(u):
		return true
	case IsPlatform(u):
		resolved, err := ResolvePlatformURL(u, nil, loc)
		if err != nil {
			return false
		}
		return IsFile(resolved)
	default:
		return false
	}
}

func resolveReference(base, ref *url.URL) *url.URL {
	resolved := base.ResolveReference(ref)
	if IsFile(resolved) {
		resolved.OmitHost = base.OmitHost || base.Host == ""
	}
	return resolved
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' && unicode.IsLetter(rune(p[0]))
}
