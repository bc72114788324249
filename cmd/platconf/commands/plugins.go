package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Print the plug-in path",
	Long: `Print the absolute location of every plug-in contributed by the
enabled sites, after each site's policy has been applied.`,
	Example: `  # Print the plug-in path
  platconf plugins

  # As JSON
  platconf plugins -o json`,
	Args: cobra.NoArgs,
	RunE: runPlugins,
}

func runPlugins(cmd *cobra.Command, _ []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}

	path := p.PluginPath()
	locations := make([]string, len(path))
	for i, u := range path {
		locations[i] = u.String()
	}

	return render(cmd, "plugins", locations, func(w io.Writer) error {
		if len(locations) == 0 {
			fmt.Fprintln(w, "No plug-ins found")
			return nil
		}
		for _, l := range locations {
			fmt.Fprintln(w, l)
		}
		return nil
	})
}
