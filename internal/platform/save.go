package platform

import (
	"bytes"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/paths"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// Save writes the configuration to its file. A transient configuration is
// left alone. The previous file is kept as a backup and backups beyond
// the retention count are removed.
func (p *PlatformConfiguration) Save() error {
	if p.config.IsTransient() {
		p.logger.Debug("not saving transient configuration", "url", p.url)
		return nil
	}
	if p.url == nil {
		return errors.Wrap(ErrNotSaveable, "no configuration location")
	}
	path, err := urlutil.ToPath(p.url)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "saving %s", p.url), ErrNotSaveable)
	}

	if err := paths.EnsureDir(p.fs, filepath.Dir(path), 0); err != nil {
		return err
	}

	now := p.now()
	p.config.SetDate(now)
	p.config.SetLastModified(now.UnixMilli())

	tmp := path + TempSuffix
	if err := p.writeTemp(tmp); err != nil {
		_ = p.fs.Remove(tmp)
		return err
	}

	mgr := p.backups(path)
	rotated, err := mgr.Rotate()
	switch {
	case err == nil:
		p.logger.Debug("previous configuration backed up", "backup", rotated.Name)
	case errors.Is(err, backup.ErrNothingToBackUp):
	default:
		return errors.Wrap(err, "backing up configuration")
	}

	if err := p.fs.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "moving %s into place", tmp)
	}

	if removed, err := mgr.PruneDefault(); err != nil {
		p.logger.Warn("cannot prune backups", "dir", mgr.Dir(), "error", err)
	} else if len(removed) > 0 {
		p.logger.Debug("pruned backups", "count", len(removed))
	}

	p.config.SetDirty(false)
	p.logger.Info("configuration saved", "path", path)
	return nil
}

// writeTemp writes the configuration to tmp and checks that it reads back.
func (p *PlatformConfiguration) writeTemp(tmp string) error {
	var buf bytes.Buffer
	if err := p.config.Write(&buf); err != nil {
		return errors.Wrap(err, "encoding configuration")
	}

	f, err := p.fs.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating %s", tmp)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "syncing %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp)
	}

	if _, err := p.read(tmp, p.url); err != nil {
		return errors.Wrap(err, "verifying saved configuration")
	}
	return nil
}
