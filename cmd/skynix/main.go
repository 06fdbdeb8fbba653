package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"skynix/internal/agent"
	"skynix/internal/config"
)

var (
	version    = "dev"
	logger     *slog.Logger
	configPath string // --config
	envPath    string // --env
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	agent.SetVersion(version)

	root := &cobra.Command{
		Use:           "skynix",
		Short:         "SkynixIQ: a Telegram weather assistant",
		Long:          "SkynixIQ answers weather questions sent as text or voice over Telegram.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default: ./"+config.DefaultPath+" if present)")
	root.PersistentFlags().StringVarP(&envPath, "env", "e", ".env", "path to a .env file loaded before reading the environment")

	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(weatherCmd())
	root.AddCommand(parseCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "skynix %s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}
}

// resolveConfigPath returns the --config path, or the default file when it
// exists, or "" to run on defaults and the environment alone.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.DefaultPath
	}
	return ""
}

// loadConfig reads .env, the config file and the environment, then swaps the
// bootstrap logger for one built from the config.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	logger = newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
