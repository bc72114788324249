package cli

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/config"
	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/paths"
	"github.com/thoreinstein/platconf/internal/platform"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// Target names the install location and configuration file to open.
// Empty fields fall back to the settings and then to the defaults.
type Target struct {
	Install       string
	Configuration string
	// Feature and Application override the primary feature and the
	// application it runs.
	Feature     string
	Application string
}

// Resolved is a Target with every location decided.
type Resolved struct {
	Install       *url.URL
	Configuration *url.URL
}

// Resolve decides the install location and configuration URL.
func Resolve(t Target, settings *config.Config) (Resolved, error) {
	if settings == nil {
		settings = config.Default()
	}

	install := firstNonEmpty(t.Install, settings.InstallLocation)
	if install == "" {
		wd, err := paths.DefaultInstallLocation()
		if err != nil {
			return Resolved{}, err
		}
		install = wd
	}
	installURL, err := ParseLocation(install, true)
	if err != nil {
		return Resolved{}, errors.Wrap(err, "install location")
	}

	cfg := firstNonEmpty(t.Configuration, settings.Configuration)
	var cfgURL *url.URL
	if cfg == "" {
		p, err := urlutil.ToPath(installURL)
		if err != nil {
			return Resolved{}, errors.Wrap(err, "deriving configuration location")
		}
		cfgURL = urlutil.FromPath(paths.DefaultConfiguration(p), false)
	} else if cfgURL, err = ParseLocation(cfg, false); err != nil {
		return Resolved{}, errors.Wrap(err, "configuration location")
	}

	return Resolved{Install: installURL, Configuration: cfgURL}, nil
}

// ParseLocation accepts either a URL or a file system path. Paths are
// made absolute; dir marks a directory.
func ParseLocation(s string, dir bool) (*url.URL, error) {
	s = paths.ExpandHome(strings.TrimSpace(s))
	if isURL(s) {
		u, err := urlutil.Parse(s)
		if err != nil {
			return nil, err
		}
		if dir && !urlutil.IsPlatform(u) {
			u = urlutil.AsDirectory(u)
		}
		return u, nil
	}
	return urlutil.FromPath(filepath.Clean(s), dir), nil
}

// isURL reports whether s has a scheme of two or more letters, so that
// Windows drive paths are treated as paths.
func isURL(s string) bool {
	i := strings.Index(s, ":")
	if i < 2 {
		return false
	}
	for _, r := range s[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// Open loads the platform configuration named by t. The logger is taken
// from ctx.
func Open(ctx context.Context, fs afero.Fs, t Target, settings *config.Config) (*platform.PlatformConfiguration, error) {
	if settings == nil {
		settings = config.Default()
	}
	r, err := Resolve(t, settings)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.Debug("opening configuration", "configuration", r.Configuration, "install", r.Install)

	return platform.Initialize(r.Configuration, r.Install,
		platform.WithFS(fs),
		platform.WithEnvironment(settings.Environment.ApplyTo(env.Detect())),
		platform.WithLogger(logger),
		platform.WithRetentionCount(settings.Backup.Retention),
		platform.WithPrimaryFeature(firstNonEmpty(t.Feature, settings.Feature)),
		platform.WithApplication(firstNonEmpty(t.Application, settings.Application)),
	), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Backups returns the backup manager of the configuration file named by t.
func Backups(fs afero.Fs, t Target, settings *config.Config) (*backup.Manager, error) {
	if settings == nil {
		settings = config.Default()
	}
	r, err := Resolve(t, settings)
	if err != nil {
		return nil, err
	}
	p, err := urlutil.ToPath(r.Configuration)
	if err != nil {
		return nil, errors.Mark(err, platform.ErrNotSaveable)
	}
	return backup.NewManager(p,
		backup.WithFS(fs),
		backup.WithRetentionCount(settings.Backup.Retention),
	), nil
}
