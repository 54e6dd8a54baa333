// Package cmd implements the CLI commands for livemanager.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/observability"
	"github.com/livemanager/livemanager/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "livemanager",
	Short:   "Schedule and broadcast pre-recorded video to streaming platforms",
	Version: version.Short(),
	Long: `livemanager runs pre-recorded video files as live RTMP broadcasts.

Sessions are created against a stored stream key (YouTube, Twitch, or a
custom ingest), then started on demand or at a scheduled time. The server
supervises the ffmpeg processes it spawns and reconciles their state in
the background.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, /etc/livemanager, $HOME/.livemanager)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
}

// loadConfig reads configuration and applies CLI flag overrides. Flags win
// over environment variables, which win over the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	applyLoggingFlags(rootCmd.PersistentFlags(), cfg)
	return cfg, nil
}

func applyLoggingFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
}

// setupLogging builds the process-wide logger from configuration.
func setupLogging(cfg *config.Config) {
	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)
}
