package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/kvsession/internal/config"
	"github.com/aretw0/kvsession/internal/logging"
	"github.com/spf13/cobra"
)

var (
	appConfig config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kvsession",
	Short: "kvsession drives a key-value store session",
	Long: `kvsession connects to a Redis compatible store through a Session with
retry, reconnection and lifecycle reporting, and runs a scripted demo over it.

Options are read from kvsession.yaml, then the environment (REDIS_URL, LOG_LEVEL, ...),
then the command line, each layer overriding the previous one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	pairs, _ := cmd.Flags().GetStringArray("set")

	overrides, err := config.ParseOverrides(pairs)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("redis-url") {
		overrides["redis_url"], _ = cmd.Flags().GetString("redis-url")
	}
	if cmd.Flags().Changed("log-level") {
		overrides["log_level"], _ = cmd.Flags().GetString("log-level")
	}

	options, err := config.Load(path, os.LookupEnv, overrides)
	if err != nil {
		return err
	}
	appConfig, err = config.Decode(options)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(appConfig.LogLevel)
	if err != nil {
		return err
	}
	logger = logging.New(level)
	return nil
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("redis-url", "", "Store endpoint, e.g. redis://localhost:6379/0")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override an option as key=value (repeatable)")
}
