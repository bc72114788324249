package backup

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/pkg/fileutil"
)

// Extension is the file extension of backups.
const Extension = ".xml"

// DefaultRetentionCount is the default number of backups to retain.
const DefaultRetentionCount = 5

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates the directory holds no backups.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrNothingToBackUp indicates the configuration file does not exist.
	ErrNothingToBackUp = errors.New("nothing to back up")
)

// Backup describes one backup file.
type Backup struct {
	// Name is the file name, e.g. 1717243200000.xml.
	Name string `json:"name" yaml:"name" toml:"name"`

	// Path is the full path of the backup.
	Path string `json:"path" yaml:"path" toml:"path"`

	// CreatedAt comes from the file name, or from the modification time
	// for backups not named after a timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size" toml:"size"`
}

// Manager handles backups of one configuration file.
type Manager struct {
	fs             afero.Fs
	dir            string
	primary        string
	retentionCount int
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithFS sets the file system backups are kept on.
func WithFS(fs afero.Fs) Option {
	return func(m *Manager) {
		if fs != nil {
			m.fs = fs
		}
	}
}

// WithRetentionCount sets the number of backups PruneDefault keeps.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// WithClock sets the time source used to name backups.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager for the configuration file at configPath.
func NewManager(configPath string, opts ...Option) *Manager {
	m := &Manager{
		fs:             afero.NewOsFs(),
		dir:            filepath.Dir(configPath),
		primary:        filepath.Base(configPath),
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the directory backups are kept in.
func (m *Manager) Dir() string { return m.dir }

// RetentionCount returns the number of backups PruneDefault keeps.
func (m *Manager) RetentionCount() int { return m.retentionCount }

// Rotate moves the configuration file aside as a new backup. It returns
// ErrNothingToBackUp when there is no configuration file.
func (m *Manager) Rotate() (Backup, error) {
	src := filepath.Join(m.dir, m.primary)
	if _, err := m.fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return Backup{}, errors.Wrapf(ErrNothingToBackUp, "%s", src)
		}
		return Backup{}, errors.Wrapf(err, "stat %s", src)
	}

	dst, err := m.nextName()
	if err != nil {
		return Backup{}, err
	}
	if err := m.fs.Rename(src, dst); err != nil {
		return Backup{}, errors.Wrapf(err, "moving %s to %s", src, dst)
	}
	return m.describe(dst)
}

// Restore replaces the configuration file with the named backup. The
// current file, if any, is rotated first.
func (m *Manager) Restore(name string) (Backup, error) {
	if name == "" || filepath.Base(name) != name {
		return Backup{}, errors.Newf("invalid backup name %q", name)
	}
	src := filepath.Join(m.dir, name)

	f, err := m.fs.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return Backup{}, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", name)
		}
		return Backup{}, errors.Wrap(err, "opening backup")
	}
	defer f.Close()

	restored, err := m.describe(src)
	if err != nil {
		return Backup{}, err
	}

	if _, err := m.Rotate(); err != nil && !errors.Is(err, ErrNothingToBackUp) {
		return Backup{}, errors.Wrap(err, "backing up current configuration")
	}

	dst := filepath.Join(m.dir, m.primary)
	err = fileutil.AtomicWrite(m.fs, dst, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, f)
		return err
	})
	if err != nil {
		return Backup{}, errors.Wrapf(err, "restoring %s", name)
	}
	return restored, nil
}

// List returns all backups, newest first.
func (m *Manager) List() ([]Backup, error) {
	infos, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	backups := make([]Backup, 0, len(infos))
	for _, fi := range infos {
		if !m.isBackup(fi) {
			continue
		}
		backups = append(backups, m.fromInfo(filepath.Join(m.dir, fi.Name()), fi))
	}

	if len(backups) == 0 {
		return nil, ErrNoBackupsFound
	}

	// Reverse lexical order, newest first.
	slices.SortFunc(backups, func(a, b Backup) int {
		return strings.Compare(b.Name, a.Name)
	})
	return backups, nil
}

// Latest returns the most recent backup.
func (m *Manager) Latest() (Backup, error) {
	backups, err := m.List()
	if err != nil {
		return Backup{}, err
	}
	return backups[0], nil
}

// Prune removes backups beyond the newest keep and returns the removed
// ones.
func (m *Manager) Prune(keep int) ([]Backup, error) {
	if keep < 0 {
		return nil, errors.New("keep must be non-negative")
	}

	backups, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil, nil // Nothing to prune
		}
		return nil, err
	}

	var removed []Backup
	for i := keep; i < len(backups); i++ {
		if err := m.fs.Remove(backups[i].Path); err != nil {
			return removed, errors.Wrapf(err, "removing backup %s", backups[i].Name)
		}
		removed = append(removed, backups[i])
	}
	return removed, nil
}

// PruneDefault prunes to the configured retention count.
func (m *Manager) PruneDefault() ([]Backup, error) {
	return m.Prune(m.retentionCount)
}

func (m *Manager) isBackup(fi os.FileInfo) bool {
	name := fi.Name()
	return !fi.IsDir() &&
		name != m.primary &&
		strings.EqualFold(filepath.Ext(name), Extension)
}

// nextName picks an unused <millis>.xml name, moving forward one
// millisecond at a time when two backups are taken in the same instant.
func (m *Manager) nextName() (string, error) {
	ms := m.now().UnixMilli()
	for range 1000 {
		p := filepath.Join(m.dir, strconv.FormatInt(ms, 10)+Extension)
		exists, err := afero.Exists(m.fs, p)
		if err != nil {
			return "", errors.Wrap(err, "checking backup name")
		}
		if !exists && filepath.Base(p) != m.primary {
			return p, nil
		}
		ms++
	}
	return "", errors.New("no free backup name")
}

func (m *Manager) describe(p string) (Backup, error) {
	fi, err := m.fs.Stat(p)
	if err != nil {
		return Backup{}, errors.Wrapf(err, "stat %s", p)
	}
	return m.fromInfo(p, fi), nil
}

func (m *Manager) fromInfo(p string, fi os.FileInfo) Backup {
	b := Backup{
		Name:      fi.Name(),
		Path:      p,
		CreatedAt: fi.ModTime(),
		Size:      fi.Size(),
	}
	stem := strings.TrimSuffix(fi.Name(), filepath.Ext(fi.Name()))
	if ms, err := strconv.ParseInt(stem, 10, 64); err == nil {
		b.CreatedAt = time.UnixMilli(ms)
	}
	return b
}
