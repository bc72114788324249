package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// AppName names the settings directory.
const AppName = "platconf"

// Install layout names.
const (
	ConfigurationDir  = "configuration"
	ConfigurationFile = "platform.xml"
	LinksDir          = "links"
)

// ErrHomeDirNotFound indicates the user's home directory could not be determined.
var ErrHomeDirNotFound = errors.New("home directory not found")

// DefaultDirPerm is the permission for newly created directories.
const DefaultDirPerm = 0o755

// ResolveHome returns the user's home directory.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := ResolveHome()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the directory holding platconf's settings.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// SettingsFile returns the default settings file.
func SettingsFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultInstallLocation returns the install location used when none is
// configured: the working directory.
func DefaultInstallLocation() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "determining working directory")
	}
	return wd, nil
}

// ConfigurationArea returns the configuration directory of an install.
func ConfigurationArea(install string) string {
	return filepath.Join(install, ConfigurationDir)
}

// DefaultConfiguration returns the platform.xml of an install.
func DefaultConfiguration(install string) string {
	return filepath.Join(ConfigurationArea(install), ConfigurationFile)
}

// Links returns the directory of .link files of an install.
func Links(install string) string {
	return filepath.Join(install, LinksDir)
}

// EnsureDir creates the directory and any necessary parents.
// If perm is 0, DefaultDirPerm is used.
func EnsureDir(fs afero.Fs, path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	if err := fs.MkdirAll(path, perm); err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	return nil
}
