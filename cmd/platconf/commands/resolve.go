package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a site URL",
	Long: `Resolve a site URL against the install and configuration locations.

platform:/base/ names the install location and platform:/config/ the
directory holding platform.xml. The output also tells whether the site can
be scanned for features and plug-ins, and the symbolic form of a file: URL
that was configured as a platform: URL.`,
	Example: `  # Resolve the install location
  platconf resolve platform:/base/

  # Check a plain file URL
  platconf resolve file:/opt/eclipse/dropins/`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// resolveOutput is the result of resolving a URL.
type resolveOutput struct {
	URL        string `json:"url" yaml:"url" toml:"url"`
	Resolved   string `json:"resolved" yaml:"resolved" toml:"resolved"`
	Detectable bool   `json:"detectable" yaml:"detectable" toml:"detectable"`
	Symbolic   string `json:"symbolic,omitempty" yaml:"symbolic,omitempty" toml:"symbolic,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	u, err := urlutil.Parse(args[0])
	if err != nil {
		return perrors.NewUserError(err, "Pass an absolute URL such as file:/opt/eclipse/ or platform:/base/")
	}

	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}

	resolved, err := p.ResolvePlatformURL(u)
	if err != nil {
		return perrors.NewUserError(err, "Only platform:/base/ and platform:/config/ can be resolved")
	}

	out := resolveOutput{
		URL:        u.String(),
		Resolved:   resolved.String(),
		Detectable: p.SupportsDetection(u),
	}
	if sym := p.Config().AsPlatformURL(resolved); sym.String() != resolved.String() {
		out.Symbolic = sym.String()
	}

	return render(cmd, "resolve", out, func(w io.Writer) error {
		fmt.Fprintf(w, "url:        %s\n", out.URL)
		fmt.Fprintf(w, "resolved:   %s\n", out.Resolved)
		fmt.Fprintf(w, "detectable: %t\n", out.Detectable)
		if out.Symbolic != "" {
			fmt.Fprintf(w, "symbolic:   %s\n", out.Symbolic)
		}
		return nil
	})
}
