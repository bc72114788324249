package backup

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/internal/backup"
	perrors "github.com/thoreinstein/platconf/internal/errors"
)

func init() {
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [name]",
	Short: "Restore from a backup",
	Long: `Replace platform.xml with a backup.

If no name is given the most recent backup is restored. The current
platform.xml is kept as a new backup first, so a restore can be undone.`,
	Example: `  # Restore the most recent backup
  platconf backup restore

  # Restore a specific backup
  platconf backup restore 1717243200000.xml

  See Also:
    platconf backup list - List available backups`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	mgr, err := manager()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		latest, err := mgr.Latest()
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return perrors.NewUserError(err, "Nothing to restore")
			}
			return errors.Wrap(err, "finding latest backup")
		}
		name = latest.Name
		fmt.Fprintf(w, "Using most recent backup: %s\n", name)
	}

	restored, err := mgr.Restore(name)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return perrors.NewUserError(err, "Run 'platconf backup list' to see available backups")
		}
		return errors.Wrap(err, "restoring backup")
	}

	fmt.Fprintf(w, "Restored configuration from backup %s\n", restored.Name)
	return nil
}
