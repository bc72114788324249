package configurator

import (
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrInvalidFeature indicates a feature record is missing its id or version.
var ErrInvalidFeature = errors.New("invalid feature")

// FeatureSpec carries the values a FeatureEntry is built from.
type FeatureSpec struct {
	ID               string
	Version          string
	PluginIdentifier string
	PluginVersion    string
	Application      string
	Primary          bool
	Roots            []*url.URL
	// URL locates the feature, relative to its site ("features/a_1.0.0/")
	// or absolute.
	URL string
}

// FeatureEntry describes one feature found on, or declared for, a site.
// It is immutable once built; only the owning site is attached later.
type FeatureEntry struct {
	id            string
	version       string
	pluginID      string
	pluginVersion string
	application   string
	primary       bool
	roots         []*url.URL
	url           string

	site atomic.Pointer[SiteEntry]
}

// NewFeatureEntry builds a FeatureEntry. The id is required. The plug-in
// identifier defaults to the id and the plug-in version to the version.
func NewFeatureEntry(spec FeatureSpec) (*FeatureEntry, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return nil, errors.Wrap(ErrInvalidFeature, "feature id is required")
	}

	f := &FeatureEntry{
		id:            id,
		version:       strings.TrimSpace(spec.Version),
		pluginID:      strings.TrimSpace(spec.PluginIdentifier),
		pluginVersion: strings.TrimSpace(spec.PluginVersion),
		application:   strings.TrimSpace(spec.Application),
		primary:       spec.Primary,
		url:           spec.URL,
	}
	if f.pluginID == "" {
		f.pluginID = f.id
	}
	if f.pluginVersion == "" {
		f.pluginVersion = f.version
	}
	f.roots = make([]*url.URL, 0, len(spec.Roots))
	for _, r := range spec.Roots {
		if r != nil {
			f.roots = append(f.roots, r)
		}
	}
	return f, nil
}

// ID returns the feature identifier, the key features are deduplicated by.
func (f *FeatureEntry) ID() string { return f.id }

// Version returns the feature version as declared.
func (f *FeatureEntry) Version() string { return f.version }

// PluginIdentifier returns the id of the feature's primary plug-in.
func (f *FeatureEntry) PluginIdentifier() string { return f.pluginID }

// PluginVersion returns the version of the feature's primary plug-in.
func (f *FeatureEntry) PluginVersion() string { return f.pluginVersion }

// Application returns the application the feature launches, if any.
func (f *FeatureEntry) Application() string { return f.application }

// Primary reports whether the feature can be the primary feature.
func (f *FeatureEntry) Primary() bool { return f.primary }

// URL returns the feature location relative to its site.
func (f *FeatureEntry) URL() string { return f.url }

// Roots returns a copy of the feature's root URLs.
func (f *FeatureEntry) Roots() []*url.URL {
	out := make([]*url.URL, len(f.roots))
	copy(out, f.roots)
	return out
}

// Site returns the site holding the feature, or nil before it was added
// to one.
func (f *FeatureEntry) Site() *SiteEntry { return f.site.Load() }

func (f *FeatureEntry) String() string {
	return f.id + "_" + f.version
}
