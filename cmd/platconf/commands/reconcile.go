package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	perrors "github.com/thoreinstein/platconf/internal/errors"
)

var reconcileSave bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileSave, "save", false, "save the configuration when it changed")
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rescan sites for changes on disk",
	Long: `Rescan every enabled local site for features and plug-ins that were
added, removed or touched since platform.xml was last written.

With --save the configuration is written back when anything changed. The
previous file is kept as a backup.`,
	Example: `  # Report whether the installation changed
  platconf reconcile

  # Persist the changes
  platconf reconcile --save`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

// reconcileOutput reports the outcome of a reconcile.
type reconcileOutput struct {
	Changed bool `json:"changed" yaml:"changed" toml:"changed"`
	Dirty   bool `json:"dirty" yaml:"dirty" toml:"dirty"`
	Saved   bool `json:"saved" yaml:"saved" toml:"saved"`
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}

	out := reconcileOutput{Changed: p.Reconcile()}
	if reconcileSave && p.Config().IsDirty() {
		if err := p.Save(); err != nil {
			return perrors.NewSystemError(err, "Check that the configuration directory is writable")
		}
		out.Saved = !p.Config().IsTransient()
	}
	out.Dirty = p.Config().IsDirty()

	return render(cmd, "reconcile", out, func(w io.Writer) error {
		switch {
		case out.Saved:
			fmt.Fprintln(w, "Configuration saved")
		case out.Changed:
			fmt.Fprintln(w, "Sites changed on disk (use --save to persist)")
		case out.Dirty:
			fmt.Fprintln(w, "Configuration has unsaved changes")
		default:
			fmt.Fprintln(w, "Configuration is up to date")
		}
		return nil
	})
}
