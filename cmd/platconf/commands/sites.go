package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/internal/cli"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/platform"
)

var sitesAll bool

func init() {
	sitesCmd.Flags().BoolVar(&sitesAll, "all", false, "include disabled sites")
	rootCmd.AddCommand(sitesCmd)
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List configured sites",
	Long: `List the sites of the platform configuration with their policy and
the number of features and plug-ins detected in each.

Local sites are rescanned first so features added or removed on disk since
the configuration was saved are counted. By default only enabled sites are
listed. Sites of a linked configuration are included and reported as not
updateable.`,
	Example: `  # List enabled sites
  platconf sites

  # Include disabled sites
  platconf sites --all

  # Output as YAML
  platconf sites -o yaml`,
	Args: cobra.NoArgs,
	RunE: runSites,
}

func runSites(cmd *cobra.Command, _ []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}

	var reports []platform.SiteReport
	if sitesAll {
		p.Reconcile()
		for _, s := range p.Config().Sites() {
			reports = append(reports, platform.Report(s))
		}
	} else if reports, err = p.Scan(cmd.Context()); err != nil {
		return perrors.NewSystemError(err, "")
	}

	return render(cmd, "sites", reports, func(w io.Writer) error {
		if len(reports) == 0 {
			fmt.Fprintln(w, "No sites configured")
			return nil
		}
		tbl := cli.NewTable(w, "URL", "POLICY", "ENABLED", "UPDATEABLE", "FEATURES", "PLUGINS")
		for _, r := range reports {
			u := r.URL
			if r.ResolvedURL != "" {
				u += " (" + r.ResolvedURL + ")"
			}
			tbl.Row(truncate(u, 80), r.Policy, r.Enabled, r.Updateable, r.Features, r.Plugins)
		}
		return tbl.Flush()
	})
}
