package config

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/paths"
	"github.com/thoreinstein/platconf/pkg/fileutil"
)

// EnvPrefix prefixes the environment variables read by Init.
const EnvPrefix = "PLATCONF"

// CurrentVersion is the settings format version.
const CurrentVersion = 1

// Config represents the top-level configuration structure.
type Config struct {
	Version         int               `mapstructure:"version" yaml:"version"`
	InstallLocation string            `mapstructure:"install_location" yaml:"install_location,omitempty"`
	Configuration   string            `mapstructure:"configuration" yaml:"configuration,omitempty"`
	Feature         string            `mapstructure:"feature" yaml:"feature,omitempty"`
	Application     string            `mapstructure:"application" yaml:"application,omitempty"`
	Environment     EnvironmentConfig `mapstructure:"environment" yaml:"environment,omitempty"`
	Backup          BackupConfig      `mapstructure:"backup" yaml:"backup"`
	Log             LogConfig         `mapstructure:"log" yaml:"log"`
}

// EnvironmentConfig overrides parts of the detected environment.
type EnvironmentConfig struct {
	OS   string `mapstructure:"os" yaml:"os,omitempty"`
	WS   string `mapstructure:"ws" yaml:"ws,omitempty"`
	Arch string `mapstructure:"arch" yaml:"arch,omitempty"`
	NL   string `mapstructure:"nl" yaml:"nl,omitempty"`
}

// BackupConfig controls platform.xml backups.
type BackupConfig struct {
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// LogConfig controls log output.
type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, value := range defaults() {
		viper.SetDefault(key, value)
	}
}

// Defaults are registered for every key so that AutomaticEnv sees them
// when unmarshaling.
func defaults() map[string]any {
	return map[string]any{
		"version":          CurrentVersion,
		"install_location": "",
		"configuration":    "",
		"feature":          "",
		"application":      "",
		"environment.os":   "",
		"environment.ws":   "",
		"environment.arch": "",
		"environment.nl":   "",
		"backup.retention": backup.DefaultRetentionCount,
		"log.format":       "text",
		"log.file":         "",
	}
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backup:  BackupConfig{Retention: backup.DefaultRetentionCount},
		Log:     LogConfig{Format: "text"},
	}
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// defaults when no file exists.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load: defaults are fine.
		case errors.As(err, &notFound):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}

	cfg.InstallLocation = paths.ExpandHome(cfg.InstallLocation)
	cfg.Configuration = paths.ExpandHome(cfg.Configuration)
	cfg.Log.File = paths.ExpandHome(cfg.Log.File)
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(fs afero.Fs, path string, cfg *Config) error {
	if err := paths.EnsureDir(fs, filepath.Dir(path), 0); err != nil {
		return err
	}
	return fileutil.AtomicWriteYAML(fs, path, cfg)
}

// ApplyTo overrides the fields of e that are set in c.
func (c EnvironmentConfig) ApplyTo(e env.Environment) env.Environment {
	return e.WithOverrides(c.OS, c.WS, c.Arch, c.NL)
}
