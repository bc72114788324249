package configurator

import (
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// Configuration is the set of sites named by one platform.xml, optionally
// layered over a linked, read-only Configuration.
type Configuration struct {
	fs     afero.Fs
	env    env.Environment
	logger *slog.Logger

	url     atomic.Pointer[url.URL]
	install atomic.Pointer[url.URL]

	mu           sync.RWMutex
	date         time.Time
	lastModified int64
	sites        map[string]*SiteEntry
	platformURLs map[string]string
	linked       *Configuration
	sharedURL    string
	transient    bool
	dirty        bool
}

// Option configures a Configuration.
type Option func(*Configuration)

// WithFS sets the file system sites are scanned on.
func WithFS(fs afero.Fs) Option {
	return func(c *Configuration) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithEnvironment sets the environment features are filtered against.
func WithEnvironment(e env.Environment) Option {
	return func(c *Configuration) { c.env = e }
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Configuration) { c.logger = logging.OrDiscard(l) }
}

// WithURL sets the location of the configuration file.
func WithURL(u *url.URL) Option {
	return func(c *Configuration) { c.url.Store(urlutil.Normalize(u)) }
}

// WithInstallURL sets the install location.
func WithInstallURL(u *url.URL) Option {
	return func(c *Configuration) { c.install.Store(urlutil.Normalize(u)) }
}

// WithDate sets the creation date of a configuration read from disk. Such
// a configuration starts clean.
func WithDate(t time.Time) Option {
	return func(c *Configuration) {
		c.date = t
		c.lastModified = t.UnixMilli()
		c.dirty = false
	}
}

// New returns an empty, dirty configuration dated now.
func New(opts ...Option) *Configuration {
	now := time.Now()
	c := &Configuration{
		fs:           afero.NewOsFs(),
		env:          env.Detect(),
		logger:       logging.NewDiscard(),
		date:         now,
		lastModified: now.UnixMilli(),
		sites:        make(map[string]*SiteEntry),
		platformURLs: make(map[string]string),
		dirty:        true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Configuration) host() siteHost {
	return siteHost{
		fs:      c.fs,
		env:     c.env,
		install: c.install.Load(),
		logger:  c.logger,
	}
}

// FS returns the file system the configuration reads through.
func (c *Configuration) FS() afero.Fs { return c.fs }

// Environment returns the environment features are filtered against.
func (c *Configuration) Environment() env.Environment { return c.env }

// Logger returns the configuration's logger.
func (c *Configuration) Logger() *slog.Logger { return c.logger }

// URL returns the location of the configuration file, or nil.
func (c *Configuration) URL() *url.URL { return c.url.Load() }

// SetURL sets the location of the configuration file and re-resolves
// platform:/config/ sites.
func (c *Configuration) SetURL(u *url.URL) {
	c.url.Store(urlutil.Normalize(u))
	c.reresolve()
}

// InstallURL returns the install location, or nil.
func (c *Configuration) InstallURL() *url.URL { return c.install.Load() }

// SetInstallURL sets the install location and re-resolves platform:/base/
// sites.
func (c *Configuration) SetInstallURL(u *url.URL) {
	c.install.Store(urlutil.Normalize(u))
	c.reresolve()
}

// Locations returns the locator for platform: URLs: the install location
// and the directory holding the configuration file.
func (c *Configuration) Locations() urlutil.Locations {
	loc := urlutil.Locations{Install: c.install.Load()}
	if u := c.url.Load(); u != nil {
		loc.Config = urlutil.Normalize(u.ResolveReference(&url.URL{Path: "./"}))
	}
	return loc
}

// Date returns the creation date.
func (c *Configuration) Date() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.date
}

// SetDate sets the creation date.
func (c *Configuration) SetDate(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = t
}

// LastModified returns the last modification in Unix milliseconds.
func (c *Configuration) LastModified() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastModified
}

// SetLastModified records the last modification in Unix milliseconds.
func (c *Configuration) SetLastModified(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastModified = ms
}

// IsDirty reports whether the configuration differs from what is on disk.
func (c *Configuration) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// SetDirty marks the configuration as modified or saved.
func (c *Configuration) SetDirty(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = v
}

// IsTransient reports whether the configuration must never be saved.
func (c *Configuration) IsTransient() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transient
}

// SetTransient marks the configuration as transient.
func (c *Configuration) SetTransient(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transient = v
}

// SharedURL returns the location of the linked configuration as
// persisted, or "".
func (c *Configuration) SharedURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sharedURL
}

// SetSharedURL records the location of the linked configuration.
func (c *Configuration) SetSharedURL(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sharedURL = strings.TrimSpace(s)
}

// LinkedConfig returns the linked configuration, or nil.
func (c *Configuration) LinkedConfig() *Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.linked
}

// SetLinkedConfig layers c over linked. Every site of linked becomes
// read-only.
func (c *Configuration) SetLinkedConfig(linked *Configuration) {
	c.mu.Lock()
	c.linked = linked
	c.mu.Unlock()

	if linked == nil {
		return
	}
	for _, s := range linked.Sites() {
		s.SetUpdateable(false)
	}
}

// AddSiteEntry registers site under rawURL. It does nothing and returns
// false when the URL is already registered here or in the linked
// configuration.
func (c *Configuration) AddSiteEntry(rawURL string, site *SiteEntry) bool {
	if site == nil {
		return false
	}
	key := c.siteKey(rawURL)

	c.mu.Lock()
	if _, ok := c.sites[key]; ok {
		c.mu.Unlock()
		return false
	}
	if c.linked != nil && c.linked.hasSite(key) {
		c.mu.Unlock()
		return false
	}
	c.sites[key] = site
	resolved := c.resolveLocked(site.URL())
	c.mu.Unlock()

	site.attach(c, resolved)
	return true
}

// RemoveSiteEntry unregisters the site stored under rawURL.
func (c *Configuration) RemoveSiteEntry(rawURL string) {
	key := c.siteKey(rawURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	site, ok := c.sites[key]
	if !ok {
		return
	}
	delete(c.sites, key)
	if urlutil.IsPlatform(site.URL()) {
		symbolic := site.URL().String()
		for resolved, orig := range c.platformURLs {
			if orig == symbolic {
				delete(c.platformURLs, resolved)
			}
		}
	}
}

// SiteEntry returns the site registered under rawURL here or in the
// linked configuration, or nil.
func (c *Configuration) SiteEntry(rawURL string) *SiteEntry {
	key := c.siteKey(rawURL)

	c.mu.RLock()
	site, ok := c.sites[key]
	linked := c.linked
	c.mu.RUnlock()

	if ok {
		return site
	}
	if linked != nil {
		return linked.SiteEntry(rawURL)
	}
	return nil
}

// Sites returns the local sites followed by those of the linked
// configuration, each group ordered by URL.
func (c *Configuration) Sites() []*SiteEntry {
	c.mu.RLock()
	local := c.localSitesLocked()
	linked := c.linked
	keys := make(map[string]bool, len(c.sites))
	for k := range c.sites {
		keys[k] = true
	}
	c.mu.RUnlock()

	if linked == nil {
		return local
	}
	for _, s := range linked.Sites() {
		if !keys[c.siteKey(s.URL().String())] {
			local = append(local, s)
		}
	}
	return local
}

// LocalSites returns the sites registered directly in c, ordered by URL.
func (c *Configuration) LocalSites() []*SiteEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localSitesLocked()
}

// AsPlatformURL returns the platform: URL a file: URL was resolved from,
// or u itself.
func (c *Configuration) AsPlatformURL(u *url.URL) *url.URL {
	if !urlutil.IsFile(u) {
		return u
	}
	c.mu.RLock()
	orig, ok := c.platformURLs[urlutil.Canonicalize(urlutil.Normalize(u).String(), c.env)]
	c.mu.RUnlock()
	if !ok {
		return u
	}
	p, err := urlutil.Parse(orig)
	if err != nil {
		return u
	}
	return p
}

// UnconfigureFeatureEntry removes f from whichever site holds it and
// reports whether a site did.
func (c *Configuration) UnconfigureFeatureEntry(f *FeatureEntry) bool {
	for _, s := range c.Sites() {
		if s.UnconfigureFeatureEntry(f) {
			return true
		}
	}
	return false
}

// siteKey is the map key of a site URL. Parseable URLs are normalized
// first so that file:///x/ and file:/x/ name the same site. Backslashes
// are left to Canonicalize, since re-encoding would escape them.
func (c *Configuration) siteKey(rawURL string) string {
	if !strings.Contains(rawURL, `\`) {
		if u, err := urlutil.Parse(rawURL); err == nil {
			rawURL = u.String()
		}
	}
	return urlutil.Canonicalize(rawURL, c.env)
}

func (c *Configuration) hasSite(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sites[key]
	return ok
}

func (c *Configuration) localSitesLocked() []*SiteEntry {
	keys := make([]string, 0, len(c.sites))
	for k := range c.sites {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]*SiteEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.sites[k])
	}
	return out
}

// resolveLocked resolves a site URL and records platform: URLs in the
// reverse lookup table. platform:/config/ resolves against the
// configuration file, everything else against the install location.
func (c *Configuration) resolveLocked(u *url.URL) *url.URL {
	if !urlutil.IsPlatform(u) {
		return u
	}

	base := c.install.Load()
	if strings.HasPrefix(u.String(), urlutil.PlatformConfig) {
		base = c.url.Load()
	}
	resolved, err := urlutil.ResolvePlatformURL(u, base, c.Locations())
	if err != nil {
		c.logger.Debug("cannot resolve site", "url", u, "error", err)
		return nil
	}
	c.platformURLs[urlutil.Canonicalize(resolved.String(), c.env)] = u.String()
	return resolved
}

func (c *Configuration) reresolve() {
	type binding struct {
		site     *SiteEntry
		resolved *url.URL
	}

	c.mu.Lock()
	clear(c.platformURLs)
	bindings := make([]binding, 0, len(c.sites))
	for _, s := range c.sites {
		bindings = append(bindings, binding{s, c.resolveLocked(s.URL())})
	}
	c.mu.Unlock()

	for _, b := range bindings {
		b.site.attach(c, b.resolved)
	}
}
