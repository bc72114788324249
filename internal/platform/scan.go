package platform

import (
	"context"
	"net/url"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// SiteReport summarizes one scanned site.
type SiteReport struct {
	URL         string `json:"url" yaml:"url" toml:"url"`
	ResolvedURL string `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty" toml:"resolved_url,omitempty"`
	Policy      string `json:"policy" yaml:"policy" toml:"policy"`
	Enabled     bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Updateable  bool   `json:"updateable" yaml:"updateable" toml:"updateable"`
	LinkFile    string `json:"link_file,omitempty" yaml:"link_file,omitempty" toml:"link_file,omitempty"`
	Features    int    `json:"features" yaml:"features" toml:"features"`
	Plugins     int    `json:"plugins" yaml:"plugins" toml:"plugins"`
	ChangeStamp int64  `json:"change_stamp" yaml:"change_stamp" toml:"change_stamp"`
}

// Report describes site. It triggers detection if the site was not
// scanned yet.
func Report(site *configurator.SiteEntry) SiteReport {
	r := SiteReport{
		URL:         site.URL().String(),
		Policy:      site.Policy().String(),
		Enabled:     site.IsEnabled(),
		Updateable:  site.IsUpdateable(),
		LinkFile:    site.LinkFileName(),
		Features:    len(site.FeatureEntries()),
		Plugins:     len(site.Plugins()),
		ChangeStamp: site.ChangeStamp(),
	}
	if resolved := site.ResolvedURL(); resolved != nil && resolved.String() != r.URL {
		r.ResolvedURL = resolved.String()
	}
	return r
}

// Scan rescans every configured local site against the last modification
// of the configuration holding it and reports on it, a bounded number of
// sites at a time. Like Reconcile it marks the configuration dirty when a
// local site changed. Sites not yet started when ctx is cancelled are
// skipped and ctx's error is returned.
func (p *PlatformConfiguration) Scan(ctx context.Context) ([]SiteReport, error) {
	sites := p.ConfiguredSites()
	reports := make([]SiteReport, len(sites))
	var changed atomic.Bool

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if cfg := site.Configuration(); cfg != nil && site.SupportsDetection() {
				if site.LoadFromDisk(cfg.LastModified()) && cfg == p.config {
					changed.Store(true)
				}
			}
			reports[i] = Report(site)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if changed.Load() {
		p.config.SetDirty(true)
	}
	p.logger.Debug("scanned sites", "count", len(sites), "changed", changed.Load())
	return reports, nil
}

// Reconcile rescans every configured local site against the last
// modification of the configuration. It marks the configuration dirty
// and returns true when any site changed.
func (p *PlatformConfiguration) Reconcile() bool {
	since := p.config.LastModified()
	changed := false
	for _, site := range p.config.LocalSites() {
		if !site.IsEnabled() || !site.SupportsDetection() {
			continue
		}
		if site.LoadFromDisk(since) {
			p.logger.Debug("site changed", "url", site.URL())
			changed = true
		}
	}
	if changed {
		p.config.SetDirty(true)
	}
	return changed
}

// ChangeStamp returns the newest change stamp of the configured sites.
func (p *PlatformConfiguration) ChangeStamp() int64 {
	return p.maxStamp((*configurator.SiteEntry).ChangeStamp)
}

// FeaturesChangeStamp returns the newest features stamp of the configured
// sites.
func (p *PlatformConfiguration) FeaturesChangeStamp() int64 {
	return p.maxStamp((*configurator.SiteEntry).FeaturesChangeStamp)
}

// PluginsChangeStamp returns the newest plug-ins stamp of the configured
// sites.
func (p *PlatformConfiguration) PluginsChangeStamp() int64 {
	return p.maxStamp((*configurator.SiteEntry).PluginsChangeStamp)
}

func (p *PlatformConfiguration) maxStamp(fn func(*configurator.SiteEntry) int64) int64 {
	var stamp int64
	for _, site := range p.ConfiguredSites() {
		stamp = max(stamp, fn(site))
	}
	return stamp
}

// PluginPath returns the absolute locations of the plug-ins of every
// configured site.
func (p *PlatformConfiguration) PluginPath() []*url.URL {
	var path []*url.URL
	for _, site := range p.ConfiguredSites() {
		base := urlutil.AsDirectory(site.ResolvedURL())
		if base == nil {
			continue
		}
		for _, rel := range site.Plugins() {
			path = append(path, urlutil.Normalize(base.ResolveReference(&url.URL{Path: rel})))
		}
	}
	return path
}
