package commands

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/cli"
	"github.com/thoreinstein/platconf/internal/configurator"
	"github.com/thoreinstein/platconf/internal/editor"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
	"github.com/thoreinstein/platconf/pkg/fileutil"
)

func init() {
	rootCmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit platform.xml in your editor",
	Long: `Open platform.xml in $EDITOR (or $VISUAL, nano, vi).

When the editor exits the file is parsed again. If it no longer parses the
previous contents are put back and the command fails.`,
	Example: `  # Edit the configuration of the install in the current directory
  platconf edit

  # Use a specific editor
  EDITOR="code --wait" platconf edit --install /opt/eclipse`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, _ []string) error {
	fs := flags.FS()
	w := cmd.OutOrStdout()

	resolved, err := cli.Resolve(flags.Target(), flags.Settings())
	if err != nil {
		return perrors.NewUserError(err, "Check --install and --config")
	}
	path, err := urlutil.ToPath(resolved.Configuration)
	if err != nil {
		return perrors.NewUserError(err, "Only file: configurations can be edited")
	}

	before, err := fileutil.ReadFileWithLimit(fs, path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return perrors.NewUserError(
				errors.Wrapf(perrors.ErrNoConfiguration, "%s", path),
				"Run 'platconf init' to create one")
		}
		return errors.Wrapf(err, "reading %s", path)
	}

	fmt.Fprintf(w, "Location: %s\n", path)
	ed := editor.New(cmd.InOrStdin(), w, cmd.ErrOrStderr())
	if err := ed.Open(cmd.Context(), path); err != nil {
		return perrors.NewSystemError(err, "Set $EDITOR to your preferred editor")
	}

	after, err := fileutil.ReadFileWithLimit(fs, path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if bytes.Equal(before, after) {
		fmt.Fprintln(w, "No changes")
		return nil
	}

	_, err = configurator.Read(bytes.NewReader(after),
		configurator.WithFS(fs),
		configurator.WithURL(resolved.Configuration),
		configurator.WithInstallURL(resolved.Install),
		configurator.WithLogger(logging.FromContext(cmd.Context())),
	)
	if err != nil {
		if rerr := fileutil.AtomicWriteFile(fs, path, before, 0o644); rerr != nil {
			return errors.CombineErrors(errors.Wrap(err, "edited configuration is invalid"), rerr)
		}
		return perrors.NewUserError(
			errors.Wrap(err, "edited configuration is invalid, changes reverted"),
			"Run 'platconf edit' again and fix the document")
	}

	fmt.Fprintln(w, "Configuration updated")
	return nil
}
