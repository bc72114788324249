package doctor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/platform"
	"github.com/thoreinstein/platconf/internal/urlutil"
	"github.com/thoreinstein/platconf/pkg/fileutil"
)

// readConfiguration parses the platform.xml at path.
func readConfiguration(fs afero.Fs, path string) (*configurator.Configuration, error) {
	data, err := fileutil.ReadFileWithLimit(fs, path)
	if err != nil {
		return nil, err
	}
	return configurator.Read(bytes.NewReader(data),
		configurator.WithFS(fs),
		configurator.WithURL(urlutil.FromPath(path, false)),
		configurator.WithLogger(logging.NewDiscard()),
	)
}

// ConfigurationCheck verifies that platform.xml exists and parses.
type ConfigurationCheck struct {
	fs   afero.Fs
	path string
}

var _ Check = (*ConfigurationCheck)(nil)

// NewConfigurationCheck creates a check of the platform.xml at path.
func NewConfigurationCheck(fs afero.Fs, path string) *ConfigurationCheck {
	return &ConfigurationCheck{fs: fs, path: path}
}

// Name returns the unique identifier for this check.
func (c *ConfigurationCheck) Name() string { return "configuration" }

// Category returns the grouping for this check.
func (c *ConfigurationCheck) Category() string { return "configuration" }

// Run executes the check.
func (c *ConfigurationCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.path},
	}

	exists, err := afero.Exists(c.fs, c.path)
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot stat configuration: %v", err)
		return result
	}
	if !exists {
		result.Status = SeverityWarning
		result.Message = "no platform configuration"
		result.FixHint = "platconf init"
		return result
	}

	cfg, err := readConfiguration(c.fs, c.path)
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("configuration is unreadable: %v", err)
		result.FixHint = "platconf backup restore"
		return result
	}

	sites := cfg.LocalSites()
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d site(s), saved %s", len(sites), cfg.Date().UTC().Format("2006-01-02 15:04:05"))
	result.Details["sites"] = len(sites)
	result.Details["transient"] = cfg.IsTransient()
	return result
}

// TempFileCheck looks for the temporary file an interrupted save leaves
// next to platform.xml.
type TempFileCheck struct {
	fs    afero.Fs
	path  string
	stale bool
}

var (
	_ Check = (*TempFileCheck)(nil)
	_ Fixer = (*TempFileCheck)(nil)
)

// NewTempFileCheck creates a check for the temporary file of the
// platform.xml at path.
func NewTempFileCheck(fs afero.Fs, path string) *TempFileCheck {
	return &TempFileCheck{fs: fs, path: path}
}

// Name returns the unique identifier for this check.
func (c *TempFileCheck) Name() string { return "temp-file" }

// Category returns the grouping for this check.
func (c *TempFileCheck) Category() string { return "configuration" }

func (c *TempFileCheck) tmp() string { return c.path + platform.TempSuffix }

// Run executes the check.
func (c *TempFileCheck) Run() *CheckResult {
	c.stale = false
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.tmp()},
	}

	exists, _ := afero.Exists(c.fs, c.tmp())
	if !exists {
		result.Status = SeverityPass
		result.Message = "no leftover temporary file"
		return result
	}

	result.Status = SeverityWarning
	if _, err := readConfiguration(c.fs, c.path); err != nil {
		result.Message = "configuration is unreadable; the temporary file will be used to recover it"
		result.FixHint = "platconf reconcile --save"
		return result
	}

	c.stale = true
	result.Message = "temporary file left by an interrupted save"
	result.Fixable = true
	result.FixHint = "rm " + c.tmp()
	return result
}

// CanFix returns true if a stale temporary file was found.
func (c *TempFileCheck) CanFix() bool { return c.stale }

// Fix removes the stale temporary file.
func (c *TempFileCheck) Fix() []FixResult {
	result := FixResult{Path: c.tmp()}
	if err := c.fs.Remove(c.tmp()); err != nil {
		result.Description = fmt.Sprintf("failed to remove: %v", err)
		result.Error = errors.Wrapf(err, "removing %s", c.tmp())
		return []FixResult{result}
	}
	c.stale = false
	result.Fixed = true
	result.Description = "removed stale temporary file"
	return []FixResult{result}
}

// BackupCheck compares the number of backups with the retention count.
type BackupCheck struct {
	mgr    *backup.Manager
	excess int
}

var (
	_ Check = (*BackupCheck)(nil)
	_ Fixer = (*BackupCheck)(nil)
)

// NewBackupCheck creates a check of the backups kept by mgr.
func NewBackupCheck(mgr *backup.Manager) *BackupCheck {
	return &BackupCheck{mgr: mgr}
}

// Name returns the unique identifier for this check.
func (c *BackupCheck) Name() string { return "backups" }

// Category returns the grouping for this check.
func (c *BackupCheck) Category() string { return "configuration" }

// Run executes the check.
func (c *BackupCheck) Run() *CheckResult {
	c.excess = 0
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details: map[string]any{
			"dir":       c.mgr.Dir(),
			"retention": c.mgr.RetentionCount(),
		},
	}

	backups, err := c.mgr.List()
	switch {
	case errors.Is(err, backup.ErrNoBackupsFound):
		result.Status = SeverityInfo
		result.Message = "no backups yet"
		return result
	case err != nil:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list backups: %v", err)
		return result
	}

	result.Details["count"] = len(backups)
	if n := len(backups) - c.mgr.RetentionCount(); n > 0 {
		c.excess = n
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d backup(s), %d beyond retention", len(backups), n)
		result.Fixable = true
		result.FixHint = "platconf backup prune"
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d backup(s)", len(backups))
	return result
}

// CanFix returns true if there are more backups than the retention count.
func (c *BackupCheck) CanFix() bool { return c.excess > 0 }

// Fix prunes the backups to the retention count.
func (c *BackupCheck) Fix() []FixResult {
	removed, err := c.mgr.PruneDefault()
	results := make([]FixResult, 0, len(removed)+1)
	for _, b := range removed {
		results = append(results, FixResult{Path: b.Path, Fixed: true, Description: "removed old backup"})
	}
	if err != nil {
		results = append(results, FixResult{
			Path:        c.mgr.Dir(),
			Description: fmt.Sprintf("failed to prune: %v", err),
			Error:       err,
		})
		return results
	}
	c.excess = 0
	return results
}

// LinkFileCheck verifies the link files of an install.
type LinkFileCheck struct {
	fs      afero.Fs
	install string
	dir     string
}

var _ Check = (*LinkFileCheck)(nil)

// NewLinkFileCheck creates a check of the links directory of the install
// at root.
func NewLinkFileCheck(fs afero.Fs, root, dir string) *LinkFileCheck {
	return &LinkFileCheck{fs: fs, install: root, dir: dir}
}

// Name returns the unique identifier for this check.
func (c *LinkFileCheck) Name() string { return "link-files" }

// Category returns the grouping for this check.
func (c *LinkFileCheck) Category() string { return "links" }

// Run executes the check.
func (c *LinkFileCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"dir": c.dir},
	}

	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = SeverityPass
			result.Message = "no link files"
			return result
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list link files: %v", err)
		return result
	}

	status := SeverityPass
	var problems []string
	count := 0
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(fi.Name()), platform.LinkExtension) {
			continue
		}
		count++

		target, err := platform.ReadLink(c.fs, filepath.Join(c.dir, fi.Name()))
		if err != nil {
			status = max(status, SeverityError)
			problems = append(problems, fmt.Sprintf("%s: %v", fi.Name(), err))
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(c.install, target)
		}
		site := filepath.Join(target, platform.LinkedSiteDir)
		if ok, _ := afero.DirExists(c.fs, site); !ok {
			status = max(status, SeverityWarning)
			problems = append(problems, fmt.Sprintf("%s: %s does not exist", fi.Name(), site))
		}
	}

	result.Status = status
	result.Details["count"] = count
	if len(problems) == 0 {
		result.Message = fmt.Sprintf("%d link file(s)", count)
		return result
	}
	result.Details["problems"] = problems
	result.Message = fmt.Sprintf("%d of %d link file(s) have problems", len(problems), count)
	result.FixHint = "correct or remove the link files listed in details"
	return result
}

// SiteCheck verifies that every enabled local site exists on disk.
type SiteCheck struct {
	p *platform.PlatformConfiguration
}

var _ Check = (*SiteCheck)(nil)

// NewSiteCheck creates a check of the sites of p.
func NewSiteCheck(p *platform.PlatformConfiguration) *SiteCheck {
	return &SiteCheck{p: p}
}

// Name returns the unique identifier for this check.
func (c *SiteCheck) Name() string { return "sites" }

// Category returns the grouping for this check.
func (c *SiteCheck) Category() string { return "sites" }

// Run executes the check.
func (c *SiteCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{},
	}

	fs := c.p.Config().FS()
	var missing []string
	local, remote := 0, 0
	for _, site := range c.p.ConfiguredSites() {
		if !site.SupportsDetection() {
			remote++
			continue
		}
		local++
		dir, err := urlutil.ToPath(site.ResolvedURL())
		if err != nil {
			missing = append(missing, site.URL().String())
			continue
		}
		if ok, _ := afero.DirExists(fs, dir); !ok {
			missing = append(missing, site.URL().String())
		}
	}

	result.Details["local"] = local
	result.Details["remote"] = remote
	switch {
	case local+remote == 0:
		result.Status = SeverityWarning
		result.Message = "no enabled sites"
		result.FixHint = "platconf init"
	case len(missing) > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d site(s) missing on disk", len(missing))
		result.Details["missing"] = missing
		result.FixHint = "remove the sites or restore their directories"
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d local and %d remote site(s)", local, remote)
	}
	return result
}
