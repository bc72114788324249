// Package backup provides CLI commands for managing platform.xml backups.
package backup

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/cli"
	perrors "github.com/thoreinstein/platconf/internal/errors"
)

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage platform configuration backups",
	Long: `Manage the backups of platform.xml.

Every save keeps the previous platform.xml next to it under a timestamped
name. A damaged platform.xml is recovered from the newest backup
automatically; these commands list, restore and prune them by hand.`,
	Example: `  # List backups
  platconf backup list

  # Restore the most recent backup
  platconf backup restore

  # Keep only the 2 most recent backups
  platconf backup prune --keep 2

  See Also:
    platconf backup list    - List available backups
    platconf backup restore - Restore from a backup
    platconf backup prune   - Remove old backups`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// manager returns the backup manager of the configuration named by the
// global flags.
func manager() (*backup.Manager, error) {
	mgr, err := cli.Backups(flags.FS(), flags.Target(), flags.Settings())
	if err != nil {
		return nil, perrors.NewUserError(err, "Backups are only kept for file: configurations")
	}
	return mgr, nil
}
