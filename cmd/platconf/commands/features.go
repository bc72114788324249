package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/internal/cli"
	"github.com/thoreinstein/platconf/internal/configurator"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/logging"
)

var (
	featuresSite        string
	featuresNoReconcile bool
	featuresInteractive bool
)

func init() {
	featuresCmd.Flags().StringVar(&featuresSite, "site", "", "only list features of the site with this URL")
	featuresCmd.Flags().BoolVar(&featuresNoReconcile, "no-reconcile", false, "do not rescan sites before listing")
	featuresCmd.Flags().BoolVarP(&featuresInteractive, "interactive", "I", false, "pick a feature with a fuzzy finder")
	rootCmd.AddCommand(featuresCmd)
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List features of the configured sites",
	Long: `List the features of every enabled site.

Sites are rescanned first so features added or removed on disk since the
configuration was saved are reflected. Use --no-reconcile to list what
platform.xml records for sites that enumerate their features.

With --interactive a fuzzy finder opens and the chosen feature is printed
in full.`,
	Example: `  # List all features
  platconf features

  # Features of one site
  platconf features --site file:/opt/eclipse/

  # Browse features interactively
  platconf features -I`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

// featureOutput is the rendered form of a feature entry.
type featureOutput struct {
	ID            string   `json:"id" yaml:"id" toml:"id"`
	Version       string   `json:"version" yaml:"version" toml:"version"`
	Site          string   `json:"site" yaml:"site" toml:"site"`
	URL           string   `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	PluginID      string   `json:"plugin_id,omitempty" yaml:"plugin_id,omitempty" toml:"plugin_id,omitempty"`
	PluginVersion string   `json:"plugin_version,omitempty" yaml:"plugin_version,omitempty" toml:"plugin_version,omitempty"`
	Application   string   `json:"application,omitempty" yaml:"application,omitempty" toml:"application,omitempty"`
	Primary       bool     `json:"primary" yaml:"primary" toml:"primary"`
	Roots         []string `json:"roots,omitempty" yaml:"roots,omitempty" toml:"roots,omitempty"`
}

func newFeatureOutput(site *configurator.SiteEntry, f *configurator.FeatureEntry) featureOutput {
	out := featureOutput{
		ID:            f.ID(),
		Version:       f.Version(),
		Site:          site.URL().String(),
		URL:           f.URL(),
		PluginID:      f.PluginIdentifier(),
		PluginVersion: f.PluginVersion(),
		Application:   f.Application(),
		Primary:       f.Primary(),
	}
	for _, r := range f.Roots() {
		out.Roots = append(out.Roots, r.String())
	}
	return out
}

func runFeatures(cmd *cobra.Command, _ []string) error {
	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	if !featuresNoReconcile {
		p.Reconcile()
	}

	sites := p.ConfiguredSites()
	if featuresSite != "" {
		site := p.Config().SiteEntry(featuresSite)
		if site == nil {
			return perrors.NewUserError(
				errors.Wrapf(perrors.ErrNotFound, "site %s", featuresSite),
				"Run 'platconf sites --all' to list configured sites")
		}
		sites = []*configurator.SiteEntry{site}
	}

	var features []featureOutput
	for _, s := range sites {
		for _, f := range s.FeatureEntries() {
			features = append(features, newFeatureOutput(s, f))
		}
	}

	w := cmd.OutOrStdout()
	if featuresInteractive {
		if !logging.IsTTY(w) {
			return perrors.NewUserError(errors.New("--interactive requires a terminal"), "")
		}
		return pickFeature(w, features)
	}

	return render(cmd, "features", features, func(w io.Writer) error {
		if len(features) == 0 {
			fmt.Fprintln(w, "No features found")
			return nil
		}
		tbl := cli.NewTable(w, "ID", "VERSION", "PRIMARY", "SITE")
		for _, f := range features {
			tbl.Row(f.ID, f.Version, f.Primary, truncate(f.Site, 60))
		}
		return tbl.Flush()
	})
}

func pickFeature(w io.Writer, features []featureOutput) error {
	if len(features) == 0 {
		fmt.Fprintln(w, "No features found")
		return nil
	}

	idx, err := fuzzyfinder.Find(
		features,
		func(i int) string {
			return fmt.Sprintf("%s %s", features[i].ID, features[i].Version)
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return describeFeature(features[i])
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		return errors.Wrap(err, "interactive selection failed")
	}

	fmt.Fprint(w, describeFeature(features[idx]))
	return nil
}

func describeFeature(f featureOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:       %s\n", f.ID)
	fmt.Fprintf(&sb, "Version:  %s\n", f.Version)
	fmt.Fprintf(&sb, "Site:     %s\n", f.Site)
	if f.URL != "" {
		fmt.Fprintf(&sb, "URL:      %s\n", f.URL)
	}
	if f.PluginID != "" {
		fmt.Fprintf(&sb, "Plug-in:  %s %s\n", f.PluginID, f.PluginVersion)
	}
	if f.Application != "" {
		fmt.Fprintf(&sb, "App:      %s\n", f.Application)
	}
	fmt.Fprintf(&sb, "Primary:  %t\n", f.Primary)
	for _, r := range f.Roots {
		fmt.Fprintf(&sb, "Root:     %s\n", r)
	}
	return sb.String()
}
