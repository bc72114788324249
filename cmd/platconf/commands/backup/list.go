package backup

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/backup"
	"github.com/thoreinstein/platconf/internal/cli"
)

func init() {
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Long: `List the backups of platform.xml, most recent first.`,
	Example: `  # List backups
  platconf backup list

  # Output as JSON
  platconf backup list -o json

  See Also:
    platconf backup restore - Restore from a backup`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	mgr, err := manager()
	if err != nil {
		return err
	}

	backups, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing backups")
	}
	if backups == nil {
		backups = []backup.Backup{}
	}

	return cli.Render(cmd.OutOrStdout(), flags.Output(), "backups", backups, func(w io.Writer) error {
		if len(backups) == 0 {
			fmt.Fprintln(w, "No backups available")
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Backups are created each time the platform configuration is saved.")
			return nil
		}
		tbl := cli.NewTable(w, "NAME", "CREATED", "SIZE")
		for _, b := range backups {
			tbl.Row(b.Name, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Bytes(uint64(b.Size)))
		}
		return tbl.Flush()
	})
}
