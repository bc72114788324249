package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/platform"
)

const (
	testInstall = "/opt/eclipse"
	testConfig  = "/opt/eclipse/configuration/platform.xml"
)

var testDate = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// execute runs the root command against fs and returns its standard output.
func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PLATCONF_DEBUG", "")
	flags.SetFS(fs)

	t.Cleanup(func() {
		viper.Reset()
		flags.SetFS(afero.NewOsFs())
		flags.SetSettings(nil)
		configPath, installPath, outputFormat = "", "", "text"
		verbosity, quiet = 0, false
		logFormat, logFile = "", ""
		sitesAll = false
		featuresSite, featuresNoReconcile, featuresInteractive = "", false, false
		reconcileSave = false
		initForce, initSettings = false, ""
		doctorFix, doctorVerbose = false, false
		primaryFeature, primaryApplication = "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeFeature(t *testing.T, fs afero.Fs, root, id, version string, mtime time.Time) {
	t.Helper()
	featuresDir := filepath.Join(root, "features")
	dir := filepath.Join(featuresDir, id+"_"+version)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "feature.xml")
	writeFile(t, fs, manifest, fmt.Sprintf("<feature id=%q version=%q/>\n", id, version))
	for _, p := range []string{manifest, dir, featuresDir} {
		if err := fs.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
}

// newInstall creates an install holding two enabled sites and a disabled
// one. The first site records a single feature.
func newInstall(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, testConfig, fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<config date="%d" version="3.0">
  <site url="file:/opt/a/" policy="USER-EXCLUDE">
    <feature id="org.a" version="1.0.0" primary="true" application="org.a.app"/>
  </site>
  <site url="file:/opt/b/" policy="USER-INCLUDE"/>
  <site url="file:/opt/off/" enabled="false"/>
</config>
`, testDate.UnixMilli()))
	return fs
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	return v
}

func TestSitesCommand_JSON(t *testing.T) {
	out, err := execute(t, newInstall(t), "sites", "--install", testInstall, "-o", "json")
	if err != nil {
		t.Fatalf("sites: %v", err)
	}

	reports := decode[[]platform.SiteReport](t, out)
	var urls []string
	for _, r := range reports {
		urls = append(urls, r.URL)
	}
	if strings.Join(urls, ",") != "file:/opt/a/,file:/opt/b/" {
		t.Errorf("sites = %v, want the two enabled sites", urls)
	}
}

func TestSitesCommand_CountsDetectedFeatures(t *testing.T) {
	fs := newInstall(t)
	writeFeature(t, fs, "/opt/b", "org.b", "2.0.0", testDate.Add(-time.Hour))
	writeFeature(t, fs, "/opt/a", "org.late", "1.0.0", testDate.Add(time.Hour))

	for _, args := range [][]string{{}, {"--all"}} {
		out, err := execute(t, fs, append([]string{"sites", "--install", testInstall, "-o", "json"}, args...)...)
		if err != nil {
			t.Fatalf("sites %v: %v", args, err)
		}

		features := map[string]int{}
		for _, r := range decode[[]platform.SiteReport](t, out) {
			features[r.URL] = r.Features
		}
		if features["file:/opt/a/"] != 2 || features["file:/opt/b/"] != 1 {
			t.Errorf("sites %v feature counts = %v, want a:2 b:1", args, features)
		}
	}
}

func TestSitesCommand_All(t *testing.T) {
	out, err := execute(t, newInstall(t), "sites", "--install", testInstall, "--all")
	if err != nil {
		t.Fatalf("sites --all: %v", err)
	}

	for _, want := range []string{"URL", "POLICY", "file:/opt/a/", "file:/opt/off/", "USER-INCLUDE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestFeaturesCommand_NoReconcile(t *testing.T) {
	fs := newInstall(t)
	writeFeature(t, fs, "/opt/a", "org.late", "2.0.0", testDate.Add(time.Hour))

	out, err := execute(t, fs, "features", "--install", testInstall, "--no-reconcile", "-o", "json")
	if err != nil {
		t.Fatalf("features: %v", err)
	}

	features := decode[[]featureOutput](t, out)
	if len(features) != 1 {
		t.Fatalf("got %d features, want 1: %+v", len(features), features)
	}
	f := features[0]
	if f.ID != "org.a" || f.Version != "1.0.0" || !f.Primary || f.Application != "org.a.app" {
		t.Errorf("feature = %+v", f)
	}
	if f.Site != "file:/opt/a/" {
		t.Errorf("Site = %q, want file:/opt/a/", f.Site)
	}
}

func TestFeaturesCommand_ReconcilesNewFeatures(t *testing.T) {
	fs := newInstall(t)
	writeFeature(t, fs, "/opt/b", "org.b", "2.0.0", testDate.Add(time.Hour))

	out, err := execute(t, fs, "features", "--install", testInstall, "--site", "file:/opt/b/", "-o", "json")
	if err != nil {
		t.Fatalf("features: %v", err)
	}

	features := decode[[]featureOutput](t, out)
	if len(features) != 1 || features[0].ID != "org.b" {
		t.Errorf("features = %+v, want org.b", features)
	}
}

func TestFeaturesCommand_UnknownSite(t *testing.T) {
	_, err := execute(t, newInstall(t), "features", "--install", testInstall, "--site", "file:/nowhere/")
	if err == nil {
		t.Fatal("expected an error for an unknown site")
	}
	if !errors.Is(err, perrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if code := perrors.CodeOf(err); code != perrors.ExitUser {
		t.Errorf("exit code = %d, want %d", code, perrors.ExitUser)
	}
}

func TestFeaturesCommand_InteractiveNeedsTerminal(t *testing.T) {
	_, err := execute(t, newInstall(t), "features", "--install", testInstall, "-I")
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("error = %v, want terminal requirement", err)
	}
}

func TestPrimaryCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		feature    string
		app        string
		configured bool
	}{
		{"flagged feature", nil, "org.a", "org.a.app", true},
		{"explicit application", []string{"--application", "org.other"}, "org.a", "org.other", true},
		{"unconfigured feature", []string{"--feature", "org.none"}, "org.none", "org.eclipse.ui.workbench", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"primary", "--install", testInstall, "-o", "json"}, tt.args...)
			out, err := execute(t, newInstall(t), args...)
			if err != nil {
				t.Fatalf("primary: %v", err)
			}

			got := decode[primaryOutput](t, out)
			if got.Feature != tt.feature || got.Application != tt.app || got.Configured != tt.configured {
				t.Errorf("primary = %+v, want feature %s application %s configured %t",
					got, tt.feature, tt.app, tt.configured)
			}
			if tt.configured && got.Site != "file:/opt/a/" {
				t.Errorf("Site = %q, want file:/opt/a/", got.Site)
			}
		})
	}
}

func TestPluginsCommand(t *testing.T) {
	fs := newInstall(t)
	if err := fs.MkdirAll("/opt/a/plugins/org.a.core_1.0.0", 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/opt/a/plugins/org.a.core_1.0.0/plugin.xml", "<plugin/>\n")

	out, err := execute(t, fs, "plugins", "--install", testInstall)
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	if !strings.Contains(out, "file:/opt/a/plugins/org.a.core_1.0.0/plugin.xml") {
		t.Errorf("plug-in path missing org.a.core\n%s", out)
	}
}

func TestStampCommand(t *testing.T) {
	fs := newInstall(t)
	mtime := testDate.Add(time.Minute)
	writeFeature(t, fs, "/opt/b", "org.b", "2.0.0", mtime)

	out, err := execute(t, fs, "stamp", "--install", testInstall, "-o", "json")
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}

	s := decode[stampOutput](t, out)
	if s.Change < s.Features || s.Change < s.Plugins {
		t.Errorf("change stamp %d below features %d or plugins %d", s.Change, s.Features, s.Plugins)
	}
}

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name       string
		arg        string
		resolved   string
		detectable bool
	}{
		{"install", "platform:/base/", "file:/opt/eclipse/", true},
		{"configuration", "platform:/config/", "file:/opt/eclipse/configuration/", true},
		{"plain file", "file:/opt/other/", "file:/opt/other/", true},
		{"remote", "http://example.com/site/", "http://example.com/site/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, newInstall(t), "resolve", tt.arg, "--install", testInstall, "-o", "json")
			if err != nil {
				t.Fatalf("resolve %s: %v", tt.arg, err)
			}
			got := decode[resolveOutput](t, out)
			if got.Resolved != tt.resolved {
				t.Errorf("Resolved = %q, want %q", got.Resolved, tt.resolved)
			}
			if got.Detectable != tt.detectable {
				t.Errorf("Detectable = %v, want %v", got.Detectable, tt.detectable)
			}
		})
	}
}

func TestResolveCommand_Unresolvable(t *testing.T) {
	_, err := execute(t, newInstall(t), "resolve", "platform:/plugin/org.a/", "--install", testInstall)
	if err == nil {
		t.Fatal("expected an error for an unresolvable platform URL")
	}
	if code := perrors.CodeOf(err); code != perrors.ExitUser {
		t.Errorf("exit code = %d, want %d", code, perrors.ExitUser)
	}
}

func TestReconcileCommand_Save(t *testing.T) {
	fs := newInstall(t)
	writeFeature(t, fs, "/opt/b", "org.b", "2.0.0", testDate.Add(time.Hour))

	out, err := execute(t, fs, "reconcile", "--save", "--install", testInstall, "-o", "json")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got := decode[reconcileOutput](t, out)
	if !got.Changed || !got.Saved || got.Dirty {
		t.Errorf("reconcile = %+v, want changed and saved", got)
	}
	data, err := afero.ReadFile(fs, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `id="org.b"`) {
		t.Errorf("saved configuration lacks org.b\n%s", data)
	}
	backups, _ := afero.Glob(fs, "/opt/eclipse/configuration/*.xml")
	if len(backups) != 2 {
		t.Errorf("configuration dir holds %v, want platform.xml and one backup", backups)
	}
}

func TestReconcileCommand_UpToDate(t *testing.T) {
	out, err := execute(t, newInstall(t), "reconcile", "--install", testInstall)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("output = %q, want up to date", out)
	}
}

func TestInitCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	settings := "/home/user/.config/platconf/config.yaml"

	out, err := execute(t, fs, "init", "--install", testInstall, "--settings", settings)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if !strings.Contains(out, "Platform configuration created") {
		t.Errorf("output = %q", out)
	}
	data, err := afero.ReadFile(fs, settings)
	if err != nil {
		t.Fatalf("settings not written: %v", err)
	}
	if !strings.Contains(string(data), testInstall) {
		t.Errorf("settings do not record the install\n%s", data)
	}
	xml, err := afero.ReadFile(fs, testConfig)
	if err != nil {
		t.Fatalf("platform.xml not written: %v", err)
	}
	if !strings.Contains(string(xml), `url="platform:/base/"`) {
		t.Errorf("platform.xml lacks the root site\n%s", xml)
	}
}

func TestInitCommand_KeepsExisting(t *testing.T) {
	fs := newInstall(t)
	settings := "/home/user/.config/platconf/config.yaml"
	writeFile(t, fs, settings, "version: 1\n")

	out, err := execute(t, fs, "init", "--install", testInstall, "--settings", settings)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if !strings.Contains(out, "already exist") || !strings.Contains(out, "Platform configuration found") {
		t.Errorf("output = %q", out)
	}
	data, _ := afero.ReadFile(fs, settings)
	if string(data) != "version: 1\n" {
		t.Errorf("settings overwritten: %q", data)
	}
}

func TestBackupCommands(t *testing.T) {
	fs := newInstall(t)
	writeFile(t, fs, "/opt/eclipse/configuration/1000.xml", "<config/>\n")
	writeFile(t, fs, "/opt/eclipse/configuration/2000.xml", "<config/>\n")
	writeFile(t, fs, "/opt/eclipse/configuration/3000.xml", "<config date=\"3000\"/>\n")

	out, err := execute(t, fs, "backup", "list", "--install", testInstall)
	if err != nil {
		t.Fatalf("backup list: %v", err)
	}
	if !strings.Contains(out, "3000.xml") || strings.Contains(out, "platform.xml") {
		t.Errorf("backup list output:\n%s", out)
	}

	out, err = execute(t, fs, "backup", "prune", "--keep", "1", "--install", testInstall)
	if err != nil {
		t.Fatalf("backup prune: %v", err)
	}
	if !strings.Contains(out, "removed 2 backup(s)") {
		t.Errorf("backup prune output:\n%s", out)
	}

	out, err = execute(t, fs, "backup", "restore", "--install", testInstall)
	if err != nil {
		t.Fatalf("backup restore: %v", err)
	}
	if !strings.Contains(out, "3000.xml") {
		t.Errorf("backup restore output:\n%s", out)
	}
	data, _ := afero.ReadFile(fs, testConfig)
	if !strings.Contains(string(data), `date="3000"`) {
		t.Errorf("platform.xml not restored: %s", data)
	}
}

func TestBackupRestore_NoBackups(t *testing.T) {
	_, err := execute(t, newInstall(t), "backup", "restore", "--install", testInstall)
	if err == nil {
		t.Fatal("expected an error without backups")
	}
	if code := perrors.CodeOf(err); code != perrors.ExitUser {
		t.Errorf("exit code = %d, want %d", code, perrors.ExitUser)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, afero.NewMemMapFs(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"platconf version", "commit:", "built:", "go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q\n%s", want, out)
		}
	}
}

func TestRootCommand_InvalidOutput(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "version", "-o", "xml")
	if err == nil {
		t.Fatal("expected an error for an unknown output format")
	}
	if code := perrors.CodeOf(err); code != perrors.ExitUser {
		t.Errorf("exit code = %d, want %d", code, perrors.ExitUser)
	}
}

func TestRootCommand_QuietAndVerbose(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "version", "-q", "-v")
	if err == nil {
		t.Fatal("expected an error for --quiet with --verbose")
	}
}

func TestDoctorCommand_Healthy(t *testing.T) {
	fs := newInstall(t)
	for _, dir := range []string{"/opt/a", "/opt/b"} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, fs, "doctor", "--all", "--install", testInstall)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[configuration] configuration") || !strings.Contains(out, "0 errors") {
		t.Errorf("doctor output:\n%s", out)
	}
}

func TestDoctorCommand_FixesStaleTempFile(t *testing.T) {
	fs := newInstall(t)
	for _, dir := range []string{"/opt/a", "/opt/b"} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, fs, testConfig+platform.TempSuffix, "<config/>\n")

	_, err := execute(t, fs, "doctor", "--install", testInstall)
	if code := perrors.CodeOf(err); code != perrors.ExitUser {
		t.Fatalf("exit code = %d, want %d (warnings)", code, perrors.ExitUser)
	}

	out, err := execute(t, fs, "doctor", "--fix", "--install", testInstall, "-o", "json")
	if err != nil {
		t.Fatalf("doctor --fix: %v\n%s", err, out)
	}
	got := decode[doctorOutput](t, out)
	if len(got.Fixes) != 1 || !got.Fixes[0].Fixed {
		t.Errorf("fixes = %+v", got.Fixes)
	}
	if exists, _ := afero.Exists(fs, testConfig+platform.TempSuffix); exists {
		t.Error("temporary file not removed")
	}
}

func TestDoctorCommand_CorruptConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, testConfig, "<config")

	_, err := execute(t, fs, "doctor", "--install", testInstall)
	if code := perrors.CodeOf(err); code != perrors.ExitSystem {
		t.Errorf("exit code = %d, want %d", code, perrors.ExitSystem)
	}
}

// mockEditor installs an $EDITOR that replaces the edited file with body.
func mockEditor(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping on windows (uses shell script mock)")
	}
	dir := t.TempDir()
	content := filepath.Join(dir, "content.xml")
	if err := os.WriteFile(content, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "editor.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncp "+content+" \"$1\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EDITOR", script)
	t.Setenv("VISUAL", "")
}

func TestEditCommand(t *testing.T) {
	install := t.TempDir()
	config := filepath.Join(install, "configuration", "platform.xml")
	original := `<config date="1717243200000"><site url="file:/opt/a/"/></config>`

	tests := []struct {
		name    string
		edited  string
		wantErr bool
		want    string
	}{
		{"valid edit", `<config date="1717243200000"><site url="file:/opt/b/"/></config>`, false, "file:/opt/b/"},
		{"invalid edit is reverted", `<config`, true, "file:/opt/a/"},
		{"unchanged", original, false, "file:/opt/a/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewOsFs()
			if err := fs.MkdirAll(filepath.Dir(config), 0o755); err != nil {
				t.Fatal(err)
			}
			writeFile(t, fs, config, original)
			mockEditor(t, tt.edited)

			_, err := execute(t, fs, "edit", "--install", install)
			if (err != nil) != tt.wantErr {
				t.Fatalf("edit error = %v, wantErr %v", err, tt.wantErr)
			}
			data, _ := os.ReadFile(config)
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("platform.xml = %s, want it to contain %s", data, tt.want)
			}
		})
	}
}

func TestEditCommand_NoConfiguration(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "edit", "--install", testInstall)
	if !errors.Is(err, perrors.ErrNoConfiguration) {
		t.Errorf("error = %v, want ErrNoConfiguration", err)
	}
}
