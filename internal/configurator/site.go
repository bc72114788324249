package configurator

import (
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// Directory layout of a site root.
const (
	FeaturesDir = "features"
	PluginsDir  = "plugins"
)

// SiteEntry is one install location. Its features are detected lazily
// from <root>/features/*/feature.xml on first access and cached by id.
type SiteEntry struct {
	mu sync.Mutex

	url      *url.URL
	resolved *url.URL
	policy   SitePolicy
	config   *Configuration

	// nil until the first detection pass or Initialized.
	features map[string]*FeatureEntry
	plugins  []string

	// mutations counts inserts, replacements and removals of features.
	mutations uint64

	featuresStamp stamp
	pluginsStamp  stamp
	changeStamp   stamp

	enabled      bool
	updateable   bool
	linkFileName string
}

// NewSiteEntry returns an enabled, updateable site for u.
func NewSiteEntry(u *url.URL, policy SitePolicy) *SiteEntry {
	u = urlutil.Normalize(u)
	s := &SiteEntry{
		url:        u,
		policy:     policy,
		enabled:    true,
		updateable: true,
	}
	if !urlutil.IsPlatform(u) {
		s.resolved = u
	}
	return s
}

// siteHost is what a site borrows from its configuration.
type siteHost struct {
	fs      afero.Fs
	env     env.Environment
	install *url.URL
	logger  *slog.Logger
}

var defaultHost = sync.OnceValue(func() siteHost {
	return siteHost{
		fs:     afero.NewOsFs(),
		env:    env.Detect(),
		logger: logging.NewDiscard(),
	}
})

func (s *SiteEntry) host() siteHost {
	if s.config == nil {
		return defaultHost()
	}
	return s.config.host()
}

// attach binds the site to c with its URL resolved against c's locations.
func (s *SiteEntry) attach(c *Configuration, resolved *url.URL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = c
	if s.resolved != nil && resolved != nil && s.resolved.String() == resolved.String() {
		return
	}
	s.resolved = resolved
	s.plugins = nil
	s.featuresStamp.invalidate()
	s.pluginsStamp.invalidate()
	s.changeStamp.invalidate()
}

// URL returns the site URL as declared.
func (s *SiteEntry) URL() *url.URL { return s.url }

// ResolvedURL returns the site URL with platform: resolved, or the
// declared URL when it could not be resolved.
func (s *SiteEntry) ResolvedURL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved == nil {
		return s.url
	}
	return s.resolved
}

// Configuration returns the configuration holding the site.
func (s *SiteEntry) Configuration() *Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Policy returns the site policy.
func (s *SiteEntry) Policy() SitePolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// SetPolicy replaces the site policy.
func (s *SiteEntry) SetPolicy(p SitePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// IsEnabled reports whether the site is part of the configured sites.
func (s *SiteEntry) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled enables or disables the site.
func (s *SiteEntry) SetEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = v
}

// IsUpdateable reports whether the site may be modified.
func (s *SiteEntry) IsUpdateable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateable
}

// SetUpdateable sets whether the site may be modified.
func (s *SiteEntry) SetUpdateable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateable = v
}

// LinkFileName returns the .link file that contributed the site, if any.
func (s *SiteEntry) LinkFileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkFileName
}

// SetLinkFileName records the .link file that contributed the site.
func (s *SiteEntry) SetLinkFileName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linkFileName = strings.TrimSpace(name)
}

// IsNativelyLinked reports whether the site came from a .link file.
func (s *SiteEntry) IsNativelyLinked() bool {
	return s.LinkFileName() != ""
}

// SupportsDetection reports whether the site can be scanned locally.
func (s *SiteEntry) SupportsDetection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return urlutil.IsFile(s.resolved)
}

// Initialized marks the feature set as known so that no detection pass
// runs for it. Sites read from a persisted configuration are initialized.
func (s *SiteEntry) Initialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.features == nil {
		s.features = make(map[string]*FeatureEntry)
	}
}

// FeatureEntries returns the site's features ordered by id, detecting
// them on first use.
func (s *SiteEntry) FeatureEntries() []*FeatureEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFeaturesLocked()
	return s.sortedFeaturesLocked()
}

// FeatureEntry returns the feature with the given id, or nil.
func (s *SiteEntry) FeatureEntry(id string) *FeatureEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFeaturesLocked()
	return s.features[id]
}

// Features returns the site-relative URLs of the site's features.
func (s *SiteEntry) Features() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFeaturesLocked()
	return s.featureURLsLocked()
}

// AddFeatureEntry adds f unless the site already has a feature with the
// same id and a version at least as high. Equal versions keep the entry
// already present.
func (s *SiteEntry) AddFeatureEntry(f *FeatureEntry) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFeaturesLocked()
	s.addFeatureEntryLocked(f)
}

// UnconfigureFeatureEntry removes f from the site. It reports whether the
// site held f.
func (s *SiteEntry) UnconfigureFeatureEntry(f *FeatureEntry) bool {
	if f == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.features[f.ID()]
	if !ok {
		return false
	}
	if existing != f && (existing.Version() != f.Version() || existing.URL() != f.URL()) {
		return false
	}
	delete(s.features, f.ID())
	s.mutations++
	s.plugins = nil
	s.featuresStamp.invalidate()
	s.pluginsStamp.invalidate()
	s.changeStamp.invalidate()
	return true
}

// Plugins returns the site-relative paths of the plug-ins configured by
// the site policy.
func (s *SiteEntry) Plugins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFeaturesLocked()
	if s.plugins == nil {
		s.plugins = s.detectPluginsLocked(s.host())
	}

	managed := make(map[string]bool, len(s.features))
	for _, f := range s.features {
		managed[f.PluginIdentifier()] = true
	}
	return s.policy.apply(s.plugins, managed)
}

// Refresh drops the feature and plug-in caches and every change stamp so
// the next access scans the site from scratch.
func (s *SiteEntry) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = nil
	s.plugins = nil
	s.featuresStamp.invalidate()
	s.pluginsStamp.invalidate()
	s.changeStamp.invalidate()
}

// LoadFromDisk rescans the site. Cached features are validated and
// feature directories not modified after since are skipped. The stamps
// are recomputed; LoadFromDisk reports whether the feature set changed or
// the site changed after since.
func (s *SiteEntry) LoadFromDisk(since int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mutations
	if s.features != nil {
		s.featuresStamp.set(since)
	}
	h := s.host()
	s.detectFeaturesLocked(h)

	s.plugins = nil
	s.featuresStamp.invalidate()
	s.pluginsStamp.invalidate()
	s.changeStamp.invalidate()

	return s.mutations != before || s.changeStampLocked(h) > since
}

func (s *SiteEntry) ensureFeaturesLocked() {
	if s.features == nil {
		s.detectFeaturesLocked(s.host())
	}
}

func (s *SiteEntry) addFeatureEntryLocked(f *FeatureEntry) {
	existing, ok := s.features[f.ID()]
	if ok {
		switch c := CompareVersions(existing.Version(), f.Version()); {
		case c > 0:
			return
		case c == 0:
			if existing.URL() != "" && existing.URL() != f.URL() {
				s.host().logger.Warn("duplicate feature",
					"site", s.url,
					"id", f.ID(),
					"version", f.Version(),
					"kept", existing.URL(),
					"ignored", f.URL(),
				)
			}
			return
		}
	}

	s.features[f.ID()] = f
	f.site.Store(s)
	s.mutations++
	s.pluginsStamp.invalidate()
}

func (s *SiteEntry) sortedFeaturesLocked() []*FeatureEntry {
	out := make([]*FeatureEntry, 0, len(s.features))
	for _, f := range s.features {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *FeatureEntry) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

func (s *SiteEntry) featureURLsLocked() []string {
	out := make([]string, 0, len(s.features))
	for _, f := range s.sortedFeaturesLocked() {
		out = append(out, f.URL())
	}
	return out
}
