package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heapwalker/pkg/config"
	"github.com/heapwalker/pkg/telemetry"
	"github.com/heapwalker/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Shared state set up by PersistentPreRunE
	cfg               *config.Config
	logger            utils.Logger = &utils.NullLogger{}
	logFile           io.Closer
	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "heapwalker",
	Short: "Browse the fields of Ruby objects in heap snapshots",
	Long: `heapwalker lists the instance and static fields of Ruby dynamic objects
reconstructed from heap snapshots.

Fields are classified as primitive values, references or nested dynamic
objects, sorted, and shown one page at a time.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")

	binName := BinName()
	rootCmd.Example = `  # List the fields of an object in a local snapshot file
  ` + binName + ` fields ./snapshots/worker.json 0x1000

  # Start the HTTP API
  ` + binName + ` serve -c config.yaml`
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded

	level, err := utils.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = utils.LevelDebug
	}
	if cfg.Log.OutputPath != "" {
		fileLogger, file, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
		if err != nil {
			return err
		}
		logger, logFile = fileLogger, file
	} else {
		logger = utils.NewDefaultLogger(level, cmd.ErrOrStderr())
	}

	shutdown, err := telemetry.Init(cmd.Context(), Version)
	if err != nil {
		logger.Warn("Telemetry disabled: %v", err)
		shutdown = nil
	}
	telemetryShutdown = shutdown
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if telemetryShutdown != nil {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := telemetryShutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown: %v", err)
		}
		telemetryShutdown = nil
	}
	if logFile != nil {
		logger = &utils.NullLogger{}
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
