package backup

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", -1,
		"number of backups to retain (default: backup.retention from settings)")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups",
	Long: `Remove backups beyond the retention count, oldest first.

Without --keep the retention count from the settings is used.`,
	Example: `  # Prune to the configured retention
  platconf backup prune

  # Keep only the 3 most recent backups
  platconf backup prune --keep 3

  # Remove all backups
  platconf backup prune --keep 0`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, _ []string) error {
	mgr, err := manager()
	if err != nil {
		return err
	}

	keep := pruneKeep
	if !cmd.Flags().Changed("keep") {
		keep = mgr.RetentionCount()
	}
	if keep < 0 {
		return errors.New("--keep must be non-negative")
	}

	removed, err := mgr.Prune(keep)
	if err != nil {
		return errors.Wrap(err, "pruning backups")
	}

	w := cmd.OutOrStdout()
	if len(removed) == 0 {
		fmt.Fprintln(w, "No backups to prune")
		return nil
	}
	for _, b := range removed {
		fmt.Fprintf(w, "Removed %s\n", b.Name)
	}
	fmt.Fprintf(w, "\nTotal: removed %d backup(s)\n", len(removed))
	return nil
}
