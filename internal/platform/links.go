package platform

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/paths"
	"github.com/thoreinstein/platconf/internal/urlutil"
	"github.com/thoreinstein/platconf/pkg/fileutil"
)

const (
	// LinkExtension is the extension of files in the links directory.
	LinkExtension = ".link"

	// LinkedSiteDir is the directory under a link target that holds the
	// site.
	LinkedSiteDir = "eclipse"

	linkPathKey = "path"
)

// Link files are written as Java properties, which escape ':' and '\'.
var linkUnescaper = strings.NewReplacer(`\\`, `\`, `\:`, `:`, `\=`, `=`)

// loadLinks adds a site for every <install>/links/*.link file and drops
// linked sites whose link file is gone.
func (p *PlatformConfiguration) loadLinks() {
	if !urlutil.IsFile(p.install) {
		return
	}
	root, err := urlutil.ToPath(p.install)
	if err != nil {
		return
	}

	dir := paths.Links(root)
	infos, err := afero.ReadDir(p.fs, dir)
	if err != nil && !os.IsNotExist(err) {
		p.logger.Warn("cannot list link files", "dir", dir, "error", err)
		return
	}

	present := make(map[string]bool, len(infos))
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(fi.Name()), LinkExtension) {
			continue
		}
		name := path.Join(paths.LinksDir, fi.Name())
		target, err := ReadLink(p.fs, filepath.Join(dir, fi.Name()))
		if err != nil {
			p.logger.Warn("skipping link file", "file", name, "error", err)
			continue
		}
		present[name] = true

		if !filepath.IsAbs(target) {
			target = filepath.Join(root, target)
		}
		u := urlutil.FromPath(filepath.Join(target, LinkedSiteDir), true)
		if p.config.SiteEntry(u.String()) != nil {
			continue
		}

		site := configurator.NewSiteEntry(u, configurator.DefaultPolicy())
		site.SetLinkFileName(name)
		if p.config.AddSiteEntry(u.String(), site) {
			p.logger.Debug("added linked site", "url", u, "file", name)
			p.config.SetDirty(true)
		}
	}

	for _, s := range p.config.LocalSites() {
		if !s.IsNativelyLinked() || present[filepath.ToSlash(s.LinkFileName())] {
			continue
		}
		p.logger.Info("link file removed, dropping site", "url", s.URL(), "file", s.LinkFileName())
		p.config.RemoveSiteEntry(s.URL().String())
		p.config.SetDirty(true)
	}
}

// ReadLink returns the path= entry of a link file.
func ReadLink(fs afero.Fs, file string) (string, error) {
	data, err := fileutil.ReadFileWithLimit(fs, file)
	if err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("dotenv")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return "", errors.Wrapf(err, "parsing %s", file)
	}

	target := strings.TrimSpace(linkUnescaper.Replace(v.GetString(linkPathKey)))
	if target == "" {
		return "", errors.Newf("%s has no %s entry", file, linkPathKey)
	}
	return filepath.FromSlash(target), nil
}
