// Package cli wires the gopherai-chat commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gopherai-chat/internal/config"
	"gopherai-chat/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "gopherai-chat",
	Short: "Chat backend with per-session history and PDF context",
	Long: `gopherai-chat serves an authenticated chat API backed by a hosted
language model. Sessions and turns are stored in MySQL or SQLite and
uploaded PDFs can be attached to a session as context.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(chatCmd)
}

// loadConfig reads config and installs the configured default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	slog.SetDefault(logging.New(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr))
	return cfg, nil
}
