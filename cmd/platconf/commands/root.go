// Package commands implements the CLI commands for platconf.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/platconf/cmd"
	"github.com/thoreinstein/platconf/cmd/platconf/commands/backup"
	"github.com/thoreinstein/platconf/cmd/platconf/commands/flags"
	"github.com/thoreinstein/platconf/internal/cli"
	"github.com/thoreinstein/platconf/internal/config"
	perrors "github.com/thoreinstein/platconf/internal/errors"
	"github.com/thoreinstein/platconf/internal/logging"
)

// configPath holds the value of the --config flag.
var configPath string

// installPath holds the value of the --install flag.
var installPath string

// outputFormat holds the value of the --output flag.
var outputFormat string

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configLoadErr holds any error that occurred during settings loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"platform.xml path or URL (default: <install>/configuration/platform.xml)")
	rootCmd.PersistentFlags().StringVarP(&installPath, "install", "i", "",
		"install location (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text",
		"output format: text, json, yaml, toml")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format: text, json (default: from settings, else text)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also write logs to file in JSON format")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("platconf version {{.Version}}\n")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(backup.Cmd)
}

func initConfig() {
	config.Init()
	var settings *config.Config
	settings, configLoadErr = config.Load("")
	flags.SetSettings(settings)
}

var rootCmd = &cobra.Command{
	Use:   "platconf",
	Short: "Inspect and maintain platform configurations",
	Long: `platconf reads the platform configuration (platform.xml) of an
install location and reports which sites, features and plug-ins are active.

Sites are scanned lazily and rescanned only when their features or
plug-ins changed on disk. A damaged platform.xml is recovered from the
temporary file of an interrupted save or from the newest backup.`,
	Example: `  # List the enabled sites of the install in the current directory
  platconf sites

  # List features of a specific install as JSON
  platconf features --install /opt/eclipse -o json

  # Resolve a symbolic site URL
  platconf resolve platform:/base/

  # Rescan sites and save the configuration if anything changed
  platconf reconcile --save

  See Also: platconf init, platconf backup`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return applyFlags(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return perrors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("PLATCONF_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	settings := flags.Settings()
	format := logFormat
	if format == "" {
		format = settings.Log.Format
	}
	file := logFile
	if file == "" {
		file = settings.Log.File
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(format) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return perrors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// applyFlags validates the global flags and publishes them to the flags
// package.
func applyFlags(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return perrors.NewUserError(err, "Run 'platconf --help' to see valid output formats")
	}
	flags.SetOutput(format)
	flags.SetTarget(cli.Target{Install: installPath, Configuration: configPath})

	// Skip settings errors for help and version commands
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}
	if configLoadErr != nil {
		return perrors.NewConfigError(configLoadErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
