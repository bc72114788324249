package platform

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
	"github.com/thoreinstein/platconf/pkg/fileutil"
)

// TempSuffix is appended to the configuration file name while saving.
const TempSuffix = ".tmp"

// ErrNotSaveable indicates the configuration does not live in a local
// file and cannot be written.
var ErrNotSaveable = errors.New("configuration cannot be saved")

// PlatformConfiguration is the loaded configuration of one install
// location.
type PlatformConfiguration struct {
	fs        afero.Fs
	env       env.Environment
	logger    *slog.Logger
	retention int
	now       func() time.Time

	url     *url.URL
	install *url.URL
	config  *configurator.Configuration
	loaded  bool

	// Explicit primary feature and application, if given.
	feature     string
	application string
}

// Option configures a PlatformConfiguration.
type Option func(*PlatformConfiguration)

// WithFS sets the file system the configuration and its sites live on.
func WithFS(fs afero.Fs) Option {
	return func(p *PlatformConfiguration) {
		if fs != nil {
			p.fs = fs
		}
	}
}

// WithEnvironment sets the environment features are filtered against.
func WithEnvironment(e env.Environment) Option {
	return func(p *PlatformConfiguration) { p.env = e }
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *PlatformConfiguration) { p.logger = logging.OrDiscard(l) }
}

// WithRetentionCount sets how many backups Save keeps.
func WithRetentionCount(n int) Option {
	return func(p *PlatformConfiguration) {
		if n > 0 {
			p.retention = n
		}
	}
}

// WithClock sets the time source for dates and backup names.
func WithClock(now func() time.Time) Option {
	return func(p *PlatformConfiguration) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPrimaryFeature names the primary feature, overriding the features
// flagged primary.
func WithPrimaryFeature(id string) Option {
	return func(p *PlatformConfiguration) { p.feature = strings.TrimSpace(id) }
}

// WithApplication names the application to run, overriding the one of the
// primary feature.
func WithApplication(id string) Option {
	return func(p *PlatformConfiguration) { p.application = strings.TrimSpace(id) }
}

// Initialize loads the configuration at configURL for the install location
// install. A nil configURL, or a configuration that cannot be recovered,
// yields an empty configuration. The result always carries both URLs.
func Initialize(configURL, install *url.URL, opts ...Option) *PlatformConfiguration {
	p := &PlatformConfiguration{
		fs:        afero.NewOsFs(),
		env:       env.Detect(),
		logger:    logging.NewDiscard(),
		retention: backup.DefaultRetentionCount,
		now:       time.Now,
		url:       urlutil.Normalize(configURL),
		install:   urlutil.Normalize(install),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.url != nil {
		cfg, err := p.loadConfig(p.url)
		if err != nil {
			p.logger.Warn("cannot load configuration, using an empty one", "url", p.url, "error", err)
		} else {
			p.config = cfg
			p.loaded = true
		}
	}
	if p.config == nil {
		p.config = configurator.New(p.configOptions(p.url)...)
	}
	p.config.SetURL(p.url)
	p.config.SetInstallURL(p.install)

	p.loadLinkedConfig()
	p.loadLinks()
	return p
}

// loadConfig runs the recovery chain. The error of the first attempt is
// the one returned when every attempt fails.
func (p *PlatformConfiguration) loadConfig(u *url.URL) (*configurator.Configuration, error) {
	path, err := urlutil.ToPath(u)
	if err != nil {
		return nil, err
	}

	cfg, origErr := p.read(path, u)
	if origErr == nil {
		return cfg, nil
	}
	p.logger.Warn("configuration unreadable, trying recovery", "path", path, "error", origErr)

	if cfg, err := p.read(path+TempSuffix, u); err == nil {
		p.logger.Info("recovered configuration from temporary file", "path", path+TempSuffix)
		cfg.SetDirty(true)
		return cfg, nil
	}

	latest, err := p.backups(path).Latest()
	if err != nil {
		return nil, origErr
	}
	cfg, err = p.read(latest.Path, u)
	if err != nil {
		p.logger.Debug("backup unreadable", "path", latest.Path, "error", err)
		return nil, origErr
	}
	p.logger.Info("recovered configuration from backup", "path", latest.Path)
	cfg.SetDirty(true)
	return cfg, nil
}

// read decodes the file at path as the configuration located at u.
func (p *PlatformConfiguration) read(path string, u *url.URL) (*configurator.Configuration, error) {
	data, err := fileutil.ReadFileWithLimit(p.fs, path)
	if err != nil {
		return nil, err
	}
	cfg, err := configurator.Read(bytes.NewReader(data), p.configOptions(u)...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return cfg, nil
}

func (p *PlatformConfiguration) configOptions(u *url.URL) []configurator.Option {
	opts := []configurator.Option{
		configurator.WithFS(p.fs),
		configurator.WithEnvironment(p.env),
		configurator.WithLogger(p.logger),
		configurator.WithInstallURL(p.install),
	}
	if u != nil {
		opts = append(opts, configurator.WithURL(u))
	}
	return opts
}

// loadLinkedConfig layers the configuration named by shared_ur underneath.
func (p *PlatformConfiguration) loadLinkedConfig() {
	shared := p.config.SharedURL()
	if shared == "" {
		return
	}
	u, err := urlutil.Parse(shared)
	if err == nil {
		var path string
		if path, err = urlutil.ToPath(u); err == nil {
			var linked *configurator.Configuration
			if linked, err = p.read(path, u); err == nil {
				p.config.SetLinkedConfig(linked)
				return
			}
		}
	}
	p.logger.Warn("cannot load linked configuration", "url", shared, "error", err)
}

func (p *PlatformConfiguration) backups(path string) *backup.Manager {
	return backup.NewManager(path,
		backup.WithFS(p.fs),
		backup.WithRetentionCount(p.retention),
		backup.WithClock(p.now),
	)
}

// Config returns the underlying configuration.
func (p *PlatformConfiguration) Config() *configurator.Configuration { return p.config }

// URL returns the location of the configuration file, or nil.
func (p *PlatformConfiguration) URL() *url.URL { return p.url }

// InstallURL returns the install location.
func (p *PlatformConfiguration) InstallURL() *url.URL { return p.install }

// IsLoaded reports whether the configuration was read from disk rather
// than created empty.
func (p *PlatformConfiguration) IsLoaded() bool { return p.loaded }

// Backups returns the backup manager of the configuration file.
func (p *PlatformConfiguration) Backups() (*backup.Manager, error) {
	if p.url == nil {
		return nil, errors.Wrap(ErrNotSaveable, "no configuration location")
	}
	path, err := urlutil.ToPath(p.url)
	if err != nil {
		return nil, errors.Mark(err, ErrNotSaveable)
	}
	return p.backups(path), nil
}

// ConfiguredSites returns the enabled sites, local and linked.
func (p *PlatformConfiguration) ConfiguredSites() []*configurator.SiteEntry {
	all := p.config.Sites()
	sites := make([]*configurator.SiteEntry, 0, len(all))
	for _, s := range all {
		if s.IsEnabled() {
			sites = append(sites, s)
		}
	}
	return sites
}

// RootSite returns a new site for the install location itself.
func RootSite() *configurator.SiteEntry {
	return configurator.NewSiteEntry(
		urlutil.MustParse(urlutil.PlatformBase),
		configurator.NewSitePolicy(configurator.PolicyUserExclude),
	)
}

// EnsureRootSite adds the root site when no site is configured and reports
// whether it did.
func (p *PlatformConfiguration) EnsureRootSite() bool {
	if len(p.ConfiguredSites()) > 0 {
		return false
	}
	if !p.config.AddSiteEntry(urlutil.PlatformBase, RootSite()) {
		return false
	}
	p.config.SetDirty(true)
	return true
}

// SupportsDetection reports whether u names a site that can be scanned.
func (p *PlatformConfiguration) SupportsDetection(u *url.URL) bool {
	return urlutil.SupportsDetection(u, p.config.Locations())
}

// ResolvePlatformURL maps a platform: URL to the location it stands for.
func (p *PlatformConfiguration) ResolvePlatformURL(u *url.URL) (*url.URL, error) {
	return urlutil.ResolvePlatformURL(u, nil, p.config.Locations())
}
