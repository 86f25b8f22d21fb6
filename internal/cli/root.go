package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"genesis/config"
	"genesis/internal/logging"
	"genesis/internal/telemetry"
)

var (
	cfgFile    string
	cfg        *config.Config
	rootDir    string
	includeDir string
	logLevel   string
	logger     *logging.Logger
	shutdown   telemetry.ShutdownFunc
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Genesis - split consolidated C sources into one function per file",
	Long: `Genesis decomposes large C source files into a tree with one function
per file, routed into directories by an ordered rule table. Static helpers
travel with the function that calls them, every file gets the includes it
needs, each directory gets a module header, and a validator proves that no
function was lost.

Example usage:
  genesis init                   # Write a starter genesis.yaml
  genesis plan                   # Preview the tree without writing
  genesis apply                  # Back up, write and validate
  genesis validate               # Re-check the latest run`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if includeDir != "" {
			cfg.Catalog.IncludeDir = includeDir
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		shutdown, err = telemetry.Init(cfg.Telemetry, Version, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		return nil
	},
}

// cleanup flushes telemetry and closes the log file. It runs whether or not
// the command succeeded; cobra skips post-run hooks after an error.
func cleanup() {
	if shutdown != nil {
		if err := shutdown(context.Background()); err != nil {
			GetLogger().Warn("telemetry shutdown failed", "error", err)
		}
		shutdown = nil
	}
	if logger != nil {
		logger.Close()
		logger = nil
	}
}

// Execute runs the root command and exits with the code ExitCode assigns
// to its error. An interrupt cancels the run unless writing has started.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./genesis.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&includeDir, "include-dir", "I", "", "directory of headers to build the symbol catalog from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// GetLogger returns the logger configured for this invocation.
func GetLogger() *logging.Logger {
	if logger == nil {
		return logging.Nop()
	}
	return logger
}
