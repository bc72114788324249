package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/cli"
	perrors "github.com/thoreinstein/platconf/internal/errors"
)

var (
	primaryFeature     string
	primaryApplication string
)

func init() {
	primaryCmd.Flags().StringVar(&primaryFeature, "feature", "", "primary feature id (overrides the settings)")
	primaryCmd.Flags().StringVar(&primaryApplication, "application", "", "application id (overrides the settings)")
	rootCmd.AddCommand(primaryCmd)
}

var primaryCmd = &cobra.Command{
	Use:   "primary",
	Short: "Show the primary feature and the application it runs",
	Long: `Show which feature is primary and which application would run.

The primary feature is the one given by --feature or the "feature" setting,
else the first configured feature marked primary, else org.eclipse.platform.
The application is the one given by --application or the "application"
setting, else the application of the primary feature, else
org.eclipse.ui.workbench.`,
	Example: `  # Resolve from the configuration
  platconf primary

  # Application of a specific feature
  platconf primary --feature org.eclipse.jdt -o json`,
	Args: cobra.NoArgs,
	RunE: runPrimary,
}

// primaryOutput describes the resolved primary feature.
type primaryOutput struct {
	Feature     string `json:"feature" yaml:"feature" toml:"feature"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Site        string `json:"site,omitempty" yaml:"site,omitempty" toml:"site,omitempty"`
	Configured  bool   `json:"configured" yaml:"configured" toml:"configured"`
	Application string `json:"application" yaml:"application" toml:"application"`
}

func runPrimary(cmd *cobra.Command, _ []string) error {
	target := flags.Target()
	target.Feature = primaryFeature
	target.Application = primaryApplication

	p, err := cli.Open(cmd.Context(), flags.FS(), target, flags.Settings())
	if err != nil {
		return perrors.NewUserError(err, "Check --install and --config")
	}
	p.Reconcile()

	out := primaryOutput{
		Feature:     p.PrimaryFeature(),
		Application: p.ApplicationIdentifier(),
	}
	if f := p.FindFeatureEntry(out.Feature); f != nil {
		out.Configured = true
		out.Version = f.Version()
		if site := f.Site(); site != nil {
			out.Site = site.URL().String()
		}
	}

	return render(cmd, "primary", out, func(w io.Writer) error {
		fmt.Fprintf(w, "Feature:     %s", out.Feature)
		if out.Configured {
			fmt.Fprintf(w, " %s (%s)", out.Version, out.Site)
		} else {
			fmt.Fprint(w, " (not configured)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Application: %s\n", out.Application)
		return nil
	})
}
