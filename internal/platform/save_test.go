package platform

import (
	"net/url"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/platconf/internal/urlutil"
)

func TestSave_WritesAndReloads(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := load(t, fs)
	require.True(t, p.EnsureRootSite())

	require.NoError(t, p.Save())

	assert.False(t, p.Config().IsDirty())
	exists, err := afero.Exists(fs, configPath+TempSuffix)
	require.NoError(t, err)
	assert.False(t, exists, "temporary file left behind")

	data, err := afero.ReadFile(fs, configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `url="platform:/base/"`)

	reloaded := load(t, fs)
	assert.True(t, reloaded.IsLoaded())
	assert.False(t, reloaded.Config().IsDirty())
	assert.Equal(t, []string{urlutil.PlatformBase}, siteURLs(reloaded.ConfiguredSites()))
	assert.Equal(t, p.Config().LastModified(), reloaded.Config().LastModified())
}

func TestSave_RotatesPreviousFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := load(t, fs)
	p.EnsureRootSite()

	require.NoError(t, p.Save())
	mgr, err := p.Backups()
	require.NoError(t, err)
	_, err = mgr.List()
	require.Error(t, err, "first save has nothing to back up")

	require.NoError(t, p.Save())
	backups, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	// The backup is the first save, readable by the recovery chain.
	writeFile(t, fs, configPath, garbage)
	recovered := load(t, fs)
	assert.True(t, recovered.IsLoaded())
	assert.Equal(t, []string{urlutil.PlatformBase}, siteURLs(recovered.ConfiguredSites()))
}

func TestSave_PrunesToRetention(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := load(t, fs, WithRetentionCount(2))
	p.EnsureRootSite()

	for range 5 {
		require.NoError(t, p.Save())
	}

	mgr, err := p.Backups()
	require.NoError(t, err)
	backups, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestSave_Transient(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := load(t, fs)
	p.Config().SetTransient(true)

	require.NoError(t, p.Save())

	exists, err := afero.Exists(fs, configPath)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, p.Config().IsDirty())
}

func TestSave_NotSaveable(t *testing.T) {
	tests := []struct {
		name string
		url  *url.URL
	}{
		{"no location", nil},
		{"remote", urlutil.MustParse("http://example.org/platform.xml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Initialize(tt.url, installURL, WithFS(afero.NewMemMapFs()), WithEnvironment(linuxEnv))
			err := p.Save()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotSaveable))
		})
	}
}

func TestSave_ReadOnlyFileSystem(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, configPath, platformXML(epoch, "file:/opt/a/"))
	p := load(t, afero.NewReadOnlyFs(base))

	require.Error(t, p.Save())

	data, err := afero.ReadFile(base, configPath)
	require.NoError(t, err)
	assert.Equal(t, platformXML(epoch, "file:/opt/a/"), string(data))
}
