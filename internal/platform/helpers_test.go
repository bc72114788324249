package platform

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

	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

const (
	installDir = "/opt/eclipse"
	configPath = "/opt/eclipse/configuration/platform.xml"
)

var (
	linuxEnv   = env.New("linux", "amd64", "en_US")
	epoch      = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	installURL = urlutil.MustParse("file:/opt/eclipse/")
	configURL  = urlutil.MustParse("file:" + configPath)
)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

type logBuffer struct {
	buf bytes.Buffer
}

func (b *logBuffer) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&b.buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (b *logBuffer) count(msg string) int {
	return strings.Count(b.buf.String(), fmt.Sprintf("msg=%q", msg))
}

// clock returns a time source that advances one second per call.
func clock() func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return at(n)
	}
}

func load(t *testing.T, fs afero.Fs, opts ...Option) *PlatformConfiguration {
	t.Helper()
	base := []Option{
		WithFS(fs),
		WithEnvironment(linuxEnv),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(clock()),
	}
	return Initialize(configURL, installURL, append(base, opts...)...)
}

// platformXML renders a configuration holding one site per URL.
func platformXML(date time.Time, siteURLs ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<config date=\"%d\" version=\"3.0\">\n", date.UnixMilli())
	for _, u := range siteURLs {
		fmt.Fprintf(&sb, "  <site url=%q policy=\"USER-EXCLUDE\"/>\n", u)
	}
	sb.WriteString("</config>\n")
	return sb.String()
}

func writeFile(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}

// writeFeature creates <root>/features/<id>_<version>/feature.xml and
// stamps it, its directory and features/ with mtime.
func writeFeature(t *testing.T, fs afero.Fs, root, id, version string, mtime time.Time) {
	t.Helper()
	featuresDir := filepath.Join(root, configurator.FeaturesDir)
	dir := filepath.Join(featuresDir, id+"_"+version)
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	manifest := filepath.Join(dir, configurator.FeatureManifest)
	writeFile(t, fs, manifest, fmt.Sprintf("<feature id=%q version=%q/>\n", id, version))
	for _, p := range []string{manifest, dir, featuresDir} {
		require.NoError(t, fs.Chtimes(p, mtime, mtime))
	}
}

func writePlugin(t *testing.T, fs afero.Fs, root, name string) {
	t.Helper()
	dir := filepath.Join(root, configurator.PluginsDir, name)
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	writeFile(t, fs, filepath.Join(dir, "plugin.xml"), "<plugin/>\n")
	require.NoError(t, fs.Chtimes(filepath.Join(root, configurator.PluginsDir), epoch, epoch))
}

func siteURLs(sites []*configurator.SiteEntry) []string {
	urls := make([]string, 0, len(sites))
	for _, s := range sites {
		urls = append(urls, s.URL().String())
	}
	return urls
}
