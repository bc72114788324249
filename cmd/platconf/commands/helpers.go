package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/cli"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/platform"
)

// openPlatform loads the platform configuration named by the global flags.
func openPlatform(cmd *cobra.Command) (*platform.PlatformConfiguration, error) {
	p, err := cli.Open(cmd.Context(), flags.FS(), flags.Target(), flags.Settings())
	if err != nil {
		return nil, perrors.NewUserError(err, "Check --install and --config")
	}
	return p, nil
}

// render prints v in the format selected by --output.
func render(cmd *cobra.Command, key string, v any, text func(io.Writer) error) error {
	return cli.Render(cmd.OutOrStdout(), flags.Output(), key, v, text)
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
