package configurator

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

var (
	linuxEnv = env.New("linux", "amd64", "en_US")
	epoch    = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

// at returns epoch shifted by the given number of seconds.
func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

// logBuffer captures warnings so tests can count them.
type logBuffer struct {
	buf bytes.Buffer
}

func (b *logBuffer) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&b.buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func (b *logBuffer) count(msg string) int {
	return strings.Count(b.buf.String(), fmt.Sprintf("msg=%q", msg))
}

func newTestConfig(t *testing.T, fs afero.Fs, opts ...Option) *Configuration {
	t.Helper()
	base := []Option{
		WithFS(fs),
		WithEnvironment(linuxEnv),
		WithInstallURL(urlutil.MustParse("file:/opt/eclipse/")),
		WithURL(urlutil.MustParse("file:/opt/eclipse/configuration/platform.xml")),
	}
	return New(append(base, opts...)...)
}

// addLocalSite registers a USER-EXCLUDE site rooted at dir.
func addLocalSite(t *testing.T, c *Configuration, dir string) *SiteEntry {
	t.Helper()
	u := urlutil.FromPath(dir, true)
	site := NewSiteEntry(u, DefaultPolicy())
	require.True(t, c.AddSiteEntry(u.String(), site))
	return site
}

// writeFeature creates <root>/features/<dir>/feature.xml and stamps both
// the manifest and its directory with mtime.
func writeFeature(t *testing.T, fs afero.Fs, root, dir, id, version string, mtime time.Time) {
	t.Helper()
	featureDir := filepath.Join(root, FeaturesDir, dir)
	require.NoError(t, fs.MkdirAll(featureDir, 0o755))
	manifest := filepath.Join(featureDir, FeatureManifest)
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<feature id=%q version=%q>
  <plugin id="%s.core" version=%q/>
</feature>
`, id, version, id, version)
	require.NoError(t, afero.WriteFile(fs, manifest, []byte(body), 0o644))
	require.NoError(t, fs.Chtimes(manifest, mtime, mtime))
	require.NoError(t, fs.Chtimes(featureDir, mtime, mtime))
}

func touch(t *testing.T, fs afero.Fs, p string, mtime time.Time) {
	t.Helper()
	require.NoError(t, fs.Chtimes(p, mtime, mtime))
}

func mustFeature(t *testing.T, id, version, u string) *FeatureEntry {
	t.Helper()
	f, err := NewFeatureEntry(FeatureSpec{ID: id, Version: version, URL: u})
	require.NoError(t, err)
	return f
}
