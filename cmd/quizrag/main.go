package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quizrag/internal/config"
	"quizrag/internal/engine"
	"quizrag/internal/logging"
	"quizrag/internal/version"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quizrag",
	Short: "Generate grounded quiz questions from your documents",
	Long: `quizrag indexes documents into a local vector index and composes
multiple choice, true/false and fill-in-the-blank questions grounded in the
retrieved passages, tagged with a Bloom's taxonomy level.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetBuildInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "quizrag %s\n", version.Full())
		if info.BuildDate != "unknown" {
			fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
		}
		fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "quizrag.yaml", "config file path (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(bankCmd)
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, logging.Options{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openEngine loads the configuration and builds the engine. The caller closes it.
func openEngine() (*config.Config, *engine.Engine, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, eng, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
