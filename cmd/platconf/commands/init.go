package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/config"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/paths"
)

var (
	initForce    bool
	initSettings string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing settings")
	initCmd.Flags().StringVar(&initSettings, "settings", "", "settings file to write (default: "+paths.SettingsFile()+")")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize settings and the platform configuration",
	Long: `Write the platconf settings file and, when the install has no
platform configuration yet, create one holding the install location as its
only site.

The install and configuration given with --install and --config are
recorded in the settings so later commands pick them up.`,
	Example: `  # Initialize for the install in the current directory
  platconf init

  # Record a specific install
  platconf init --install /opt/eclipse

  # Overwrite existing settings
  platconf init --force

  See Also: platconf sites`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	fs := flags.FS()
	w := cmd.OutOrStdout()

	settingsPath := initSettings
	if settingsPath == "" {
		settingsPath = paths.SettingsFile()
	}
	settingsPath = paths.ExpandHome(settingsPath)

	exists, err := afero.Exists(fs, settingsPath)
	if err != nil {
		return errors.Wrapf(err, "checking %s", settingsPath)
	}
	if exists && !initForce {
		fmt.Fprintf(w, "Settings already exist at %s\n", settingsPath)
		fmt.Fprintln(w, "Use --force to overwrite")
	} else {
		settings := *flags.Settings()
		target := flags.Target()
		if target.Install != "" {
			settings.InstallLocation = target.Install
		}
		if target.Configuration != "" {
			settings.Configuration = target.Configuration
		}
		if err := config.Save(fs, settingsPath, &settings); err != nil {
			return perrors.NewSystemError(err, "Check that the settings directory is writable")
		}
		flags.SetSettings(&settings)
		fmt.Fprintf(w, "Settings written to %s\n", settingsPath)
	}

	p, err := openPlatform(cmd)
	if err != nil {
		return err
	}
	if p.IsLoaded() {
		fmt.Fprintf(w, "Platform configuration found at %s\n", p.URL())
		return nil
	}

	p.EnsureRootSite()
	if err := p.Save(); err != nil {
		return perrors.NewSystemError(err, "Check that the configuration directory is writable")
	}
	fmt.Fprintf(w, "Platform configuration created at %s\n", p.URL())
	return nil
}
