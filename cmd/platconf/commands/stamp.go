package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stampCmd)
}

var stampCmd = &cobra.Command{
	Use:   "stamp",
	Short: "Print the change stamps of the configuration",
	Long: `Print the change stamps of the enabled sites. A stamp changes whenever
a feature or plug-in of a site is added, removed or touched, so comparing
stamps between runs tells whether the installation changed.`,
	Example: `  # Print all three stamps
  platconf stamp

  # Machine-readable
  platconf stamp -o json`,
	Args: cobra.NoArgs,
	RunE: runStamp,
}

// stampOutput holds the change stamps of a configuration.
type stampOutput struct {
	Change   int64 `json:"change" yaml:"change" toml:"change"`
	Features int64 `json:"features" yaml:"features" toml:"features"`
	Plugins  int64 `json:"plugins" yaml:"plugins" toml:"plugins"`
}

func runStamp(cmd *cobra.Command, _ []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}

	out := stampOutput{
		Change:   p.ChangeStamp(),
		Features: p.FeaturesChangeStamp(),
		Plugins:  p.PluginsChangeStamp(),
	}
	return render(cmd, "stamp", out, func(w io.Writer) error {
		fmt.Fprintf(w, "change:   %d\n", out.Change)
		fmt.Fprintf(w, "features: %d\n", out.Features)
		fmt.Fprintf(w, "plugins:  %d\n", out.Plugins)
		return nil
	})
}
