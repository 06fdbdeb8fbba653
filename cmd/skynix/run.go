package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skynix/internal/channel"
	"skynix/internal/config"
	"skynix/internal/speech"
)

const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.CheckSecrets(config.EnvBotToken, config.EnvWeatherAPIKey, config.EnvGeminiAPIKey); err != nil {
		return err
	}
	if err := speech.EnsureDir(cfg.Speech.Dir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegram := channel.NewTelegram(channel.TelegramConfig{
		Token:     cfg.Telegram.Token,
		AllowFrom: cfg.Telegram.AllowFrom,
		ParseMode: cfg.Telegram.ParseMode,
		Logger:    logger,
	})
	a := newApp(cfg, telegram)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr, a.metrics)
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.loop.Run(ctx)
	}()

	logger.Info("skynix started. Press Ctrl+C to stop.", "version", version, "voice", cfg.VoiceEnabled())
	runErr := telegram.Start(ctx, a.bus)
	if runErr != nil {
		logger.Error("telegram channel error", "error", runErr)
	}

	stop()
	logger.Info("shutting down")
	a.bus.Close()

	select {
	case <-loopDone:
		a.pool.Wait()
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out, exiting with work in flight", "timeout", shutdownTimeout)
	}
	return runErr
}

func chatCmd() *cobra.Command {
	var spinner bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal (text only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.CheckSecrets(config.EnvWeatherAPIKey); err != nil {
				return err
			}
			if cfg.Rewrite.APIKey == "" {
				logger.Warn("replies will not be rephrased: " + config.EnvGeminiAPIKey + " is not set")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := newApp(cfg, nil)
			loopDone := make(chan struct{})
			go func() {
				defer close(loopDone)
				a.loop.Run(ctx)
			}()

			cli := channel.NewCLI(channel.CLIConfig{
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				Spinner: spinner,
				Logger:  logger,
			})
			err = cli.Start(ctx, a.bus)

			// Let queued messages finish before exiting.
			a.bus.Close()
			<-loopDone
			a.pool.Wait()
			return err
		},
	}
	cmd.Flags().BoolVar(&spinner, "spinner", true, "animate while a reply is pending")
	return cmd
}
