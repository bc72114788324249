package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, build date and Go runtime of platconf.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		info := cmd.Info()
		return render(c, "version", info, func(w io.Writer) error {
			fmt.Fprintf(w, "platconf version %s\n", info.Version)
			fmt.Fprintf(w, "  commit:    %s\n", info.Commit)
			fmt.Fprintf(w, "  built:     %s\n", info.Date)
			fmt.Fprintf(w, "  go:        %s\n", info.GoVersion)
			fmt.Fprintf(w, "  platform:  %s\n", info.Platform)
			return nil
		})
	},
}
