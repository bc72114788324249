package configurator

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// Files that mark a directory under plugins/ as a plug-in, in lookup order.
var pluginManifests = []string{
	"plugin.xml",
	"fragment.xml",
	filepath.Join("META-INF", "MANIFEST.MF"),
}

const macMarkerFile = ".DS_Store"

// FeaturesChangeStamp returns the later of the features/ directory's
// modification time and the newest modification among the site's
// features.
func (s *SiteEntry) FeaturesChangeStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.featuresStampLocked(s.host())
}

// PluginsChangeStamp returns the modification time of the plugins/
// directory, or zero when it is absent or the site is not local.
func (s *SiteEntry) PluginsChangeStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pluginsStampLocked(s.host())
}

// ChangeStamp returns the later of the features and plug-ins stamps.
func (s *SiteEntry) ChangeStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeStampLocked(s.host())
}

func (s *SiteEntry) changeStampLocked(h siteHost) int64 {
	return s.changeStamp.get(func() int64 {
		return max(s.featuresStampLocked(h), s.pluginsStampLocked(h))
	})
}

func (s *SiteEntry) featuresStampLocked(h siteHost) int64 {
	return s.featuresStamp.get(func() int64 {
		s.ensureFeaturesLocked()
		var dirStamp int64
		if root, ok := s.rootPathLocked(); ok {
			dirStamp = modTime(h.fs, filepath.Join(root, FeaturesDir))
		}
		return max(dirStamp, s.computeStampLocked(h, s.featureURLsLocked()))
	})
}

func (s *SiteEntry) pluginsStampLocked(h siteHost) int64 {
	return s.pluginsStamp.get(func() int64 {
		root, ok := s.rootPathLocked()
		if !ok {
			return 0
		}
		return modTime(h.fs, filepath.Join(root, PluginsDir))
	})
}

// computeStampLocked is the newest modification time of the existing
// targets for local sites. Remote sites cannot be stat'ed, so their
// stamp is an XOR of the targets' unsigned string hashes.
func (s *SiteEntry) computeStampLocked(h siteHost, targets []string) int64 {
	root, ok := s.rootPathLocked()
	if !ok {
		var result int64
		for _, t := range targets {
			result ^= int64(uint32(stringHash(t)))
		}
		return result
	}

	var result int64
	for _, t := range targets {
		p, ok := entryPath(root, t)
		if !ok {
			continue
		}
		result = max(result, modTime(h.fs, p))
	}
	return result
}

// detectFeaturesLocked validates the cached features and scans the
// features/ directory for new or modified ones.
func (s *SiteEntry) detectFeaturesLocked(h siteHost) {
	root, local := s.rootPathLocked()
	if s.features == nil {
		s.features = make(map[string]*FeatureEntry)
	} else if local {
		s.validateFeaturesLocked(h, root)
	}
	if !local {
		return
	}

	dir := filepath.Join(root, FeaturesDir)
	infos, err := afero.ReadDir(h.fs, dir)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Warn("cannot list features", "dir", dir, "error", err)
		}
		return
	}

	baseline, incremental := s.featuresStamp.known()
	parser := NewFeatureParser(h.fs, h.env, h.install, h.logger)
	for _, fi := range infos {
		if fi.Name() == macMarkerFile && strings.EqualFold(h.env.OS, "macosx") {
			continue
		}

		featureDir := filepath.Join(dir, fi.Name())
		manifest := filepath.Join(featureDir, FeatureManifest)
		mi, err := h.fs.Stat(manifest)
		if !fi.IsDir() || err != nil || mi.IsDir() {
			h.logger.Warn("no feature manifest", "dir", featureDir)
			continue
		}

		if incremental && mi.ModTime().UnixMilli() <= baseline && fi.ModTime().UnixMilli() <= baseline {
			h.logger.Log(context.Background(), logging.LevelTrace, "feature unchanged", "dir", featureDir)
			continue
		}

		if f := parser.Parse(urlutil.FromPath(manifest, false)); f != nil {
			s.addFeatureEntryLocked(f)
		}
	}
}

// validateFeaturesLocked drops cached features whose directory is gone.
// Features declared without a location are kept.
func (s *SiteEntry) validateFeaturesLocked(h siteHost, root string) {
	for id, f := range s.features {
		if f.URL() == "" {
			continue
		}
		p, ok := entryPath(root, f.URL())
		if !ok {
			continue
		}
		if _, err := h.fs.Stat(p); err != nil {
			h.logger.Info("feature removed", "site", s.url, "id", id, "path", p)
			delete(s.features, id)
			s.mutations++
		}
	}
}

// detectPluginsLocked lists plugins/ for plug-in directories and jars.
func (s *SiteEntry) detectPluginsLocked(h siteHost) []string {
	plugins := []string{}
	root, ok := s.rootPathLocked()
	if !ok {
		return plugins
	}

	dir := filepath.Join(root, PluginsDir)
	infos, err := afero.ReadDir(h.fs, dir)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Warn("cannot list plug-ins", "dir", dir, "error", err)
		}
		return plugins
	}

	for _, fi := range infos {
		name := fi.Name()
		if !fi.IsDir() {
			if strings.HasSuffix(strings.ToLower(name), ".jar") {
				plugins = append(plugins, PluginsDir+"/"+name)
			}
			continue
		}
		for _, m := range pluginManifests {
			if exists, _ := afero.Exists(h.fs, filepath.Join(dir, name, m)); exists {
				plugins = append(plugins, PluginsDir+"/"+name+"/"+filepath.ToSlash(m))
				break
			}
		}
	}
	return plugins
}

// rootPathLocked returns the local directory of the site, if it has one.
func (s *SiteEntry) rootPathLocked() (string, bool) {
	if !urlutil.IsFile(s.resolved) {
		return "", false
	}
	p, err := urlutil.ToPath(s.resolved)
	if err != nil {
		return "", false
	}
	return p, true
}

// entryPath maps a site-relative or absolute file: URL to a local path.
func entryPath(root, target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	if u.Scheme == "" {
		return filepath.Join(root, filepath.FromSlash(u.Path)), true
	}
	if !urlutil.IsFile(u) {
		return "", false
	}
	p, err := urlutil.ToPath(u)
	return p, err == nil
}

// modTime returns the modification time of p in Unix milliseconds, or
// zero when p does not exist.
func modTime(fs afero.Fs, p string) int64 {
	fi, err := fs.Stat(p)
	if err != nil {
		return 0
	}
	return fi.ModTime().UnixMilli()
}

// stringHash is the 32-bit polynomial string hash used by the remote
// site stamp, computed over UTF-16 code units.
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	return h
}
