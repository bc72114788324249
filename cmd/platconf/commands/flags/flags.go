// Package flags provides shared flag accessors for CLI commands.
// This package exists to avoid import cycles between the root command
// and noun subpackages (backup).
package flags

import (
	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/cli"
	"github.com/thoreinstein/platconf/internal/config"
)

var (
	target   cli.Target
	output   = cli.FormatText
	settings *config.Config
	fs       afero.Fs = afero.NewOsFs()
)

// Target returns the install location and configuration named by the
// --install and --config flags.
func Target() cli.Target { return target }

// SetTarget sets the value of the --install and --config flags.
func SetTarget(t cli.Target) { target = t }

// Output returns the format selected by --output.
func Output() cli.Format { return output }

// SetOutput sets the output format.
func SetOutput(f cli.Format) { output = f }

// Settings returns the loaded settings, or the defaults.
func Settings() *config.Config {
	if settings == nil {
		return config.Default()
	}
	return settings
}

// SetSettings sets the loaded settings.
func SetSettings(s *config.Config) { settings = s }

// FS returns the file system commands operate on.
func FS() afero.Fs { return fs }

// SetFS replaces the file system, for tests.
func SetFS(f afero.Fs) { fs = f }
