package commands

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/cli"
	"github.com/thoreinstein/platconf/internal/doctor"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/paths"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

var (
	doctorFix     bool
	doctorVerbose bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "remove stale temporary files and prune old backups")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "all", false, "show passed checks too")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the platform configuration",
	Long: `Run diagnostic checks on the platform configuration of an install.

Checks that platform.xml parses, that no temporary file of an interrupted
save is left behind, that backups stay within the retention count, that
link files point at existing directories and that every enabled local site
exists on disk.

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Show problems
  platconf doctor

  # Show every check
  platconf doctor --all

  # Fix what can be fixed
  platconf doctor --fix`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// doctorOutput is the rendered result of a doctor run.
type doctorOutput struct {
	Report *doctor.Report     `json:"report" yaml:"report" toml:"report"`
	Fixes  []doctor.FixResult `json:"fixes,omitempty" yaml:"fixes,omitempty" toml:"fixes,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	runner, err := newDoctorRunner(cmd)
	if err != nil {
		return err
	}

	out := doctorOutput{Report: runner.Run()}
	if doctorFix {
		out.Fixes = runner.Fix()
		out.Report = runner.Run()
	}

	if err := render(cmd, "doctor", out, func(w io.Writer) error {
		return writeDoctorText(w, out)
	}); err != nil {
		return err
	}

	if out.Report.HasErrors() {
		return perrors.NewExitError(errDoctorErrors, perrors.ExitSystem)
	}
	if out.Report.HasWarnings() {
		return perrors.NewExitError(errDoctorWarnings, perrors.ExitUser)
	}
	return nil
}

func newDoctorRunner(cmd *cobra.Command) (*doctor.Runner, error) {
	fs := flags.FS()
	resolved, err := cli.Resolve(flags.Target(), flags.Settings())
	if err != nil {
		return nil, perrors.NewUserError(err, "Check --install and --config")
	}
	configFile, err := urlutil.ToPath(resolved.Configuration)
	if err != nil {
		return nil, perrors.NewUserError(err, "doctor needs a file: configuration")
	}
	install, err := urlutil.ToPath(resolved.Install)
	if err != nil {
		return nil, perrors.NewUserError(err, "doctor needs a file: install location")
	}
	mgr, err := cli.Backups(fs, flags.Target(), flags.Settings())
	if err != nil {
		return nil, perrors.NewUserError(err, "")
	}
	p, err := openPlatform(cmd)
	if err != nil {
		return nil, err
	}

	runner := doctor.NewRunner()
	runner.AddCheck(doctor.NewConfigurationCheck(fs, configFile))
	runner.AddCheck(doctor.NewTempFileCheck(fs, configFile))
	runner.AddCheck(doctor.NewBackupCheck(mgr))
	runner.AddCheck(doctor.NewLinkFileCheck(fs, install, paths.Links(install)))
	runner.AddCheck(doctor.NewSiteCheck(p))
	return runner, nil
}

func writeDoctorText(w io.Writer, out doctorOutput) error {
	for _, f := range out.Fixes {
		icon := statusIcon(doctor.SeverityPass)
		if !f.Fixed {
			icon = statusIcon(doctor.SeverityError)
		}
		fmt.Fprintf(w, "%s fix %s: %s\n", icon, f.Path, f.Description)
	}
	if len(out.Fixes) > 0 {
		fmt.Fprintln(w)
	}

	report := out.Report
	hasOutput := false
	for _, result := range report.Results {
		if !doctorVerbose && result.Status != doctor.SeverityError && result.Status != doctor.SeverityWarning {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)
		if problems, ok := result.Details["problems"].([]string); ok {
			for _, p := range problems {
				fmt.Fprintf(w, "    %s\n", p)
			}
		}
		if result.FixHint != "" && result.Status >= doctor.SeverityWarning {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
	return nil
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}

// errDoctorWarnings is returned for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is returned for exit code 2.
var errDoctorErrors = errors.New("errors found")
