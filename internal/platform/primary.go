package platform

import (
	"github.com/thoreinstein/platconf/internal/configurator"
)

// Identifiers used when neither an explicit value nor a configured feature
// decides the primary feature or the application.
const (
	DefaultFeatureID   = "org.eclipse.platform"
	DefaultApplication = "org.eclipse.ui.workbench"
)

// FindFeatureEntry returns the configured feature with the given id. When
// several enabled sites hold it, the highest version wins and ties go to
// the site listed first. It returns nil for an unknown or empty id.
func (p *PlatformConfiguration) FindFeatureEntry(id string) *configurator.FeatureEntry {
	if id == "" {
		return nil
	}
	var found *configurator.FeatureEntry
	for _, site := range p.ConfiguredSites() {
		f := site.FeatureEntry(id)
		if f == nil {
			continue
		}
		if found == nil || configurator.CompareVersions(f.Version(), found.Version()) > 0 {
			found = f
		}
	}
	return found
}

// PrimaryFeature returns the id of the primary feature: the one named by
// WithPrimaryFeature, else the first configured feature flagged primary,
// else DefaultFeatureID.
func (p *PlatformConfiguration) PrimaryFeature() string {
	if p.feature != "" {
		return p.feature
	}
	for _, site := range p.ConfiguredSites() {
		for _, f := range site.FeatureEntries() {
			if f.Primary() {
				return f.ID()
			}
		}
	}
	return DefaultFeatureID
}

// ApplicationIdentifier returns the application to run: the one named by
// WithApplication, else the application of the primary feature, else
// DefaultApplication.
func (p *PlatformConfiguration) ApplicationIdentifier() string {
	if p.application != "" {
		return p.application
	}
	if f := p.FindFeatureEntry(p.PrimaryFeature()); f != nil && f.Application() != "" {
		return f.Application()
	}
	return DefaultApplication
}
