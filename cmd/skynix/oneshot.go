package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"skynix/internal/agent"
	"skynix/internal/config"
	"skynix/internal/intent"
	"skynix/internal/weather"
)

func weatherCmd() *cobra.Command {
	var enhance bool
	cmd := &cobra.Command{
		Use:   "weather <city...>",
		Short: "Look up the current weather for a city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			needed := []string{config.EnvWeatherAPIKey}
			if enhance {
				needed = append(needed, config.EnvGeminiAPIKey)
			}
			if err := cfg.CheckSecrets(needed...); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			client := weather.NewClient(weather.ClientConfig{
				APIKey:  cfg.Weather.APIKey,
				BaseURL: cfg.Weather.BaseURL,
				Timeout: cfg.Weather.Timeout,
				Logger:  logger,
			})
			report := client.Fetch(ctx, strings.Join(args, " "))
			out := report.Text()

			if enhance {
				enhancer := agent.NewEnhancer(agent.EnhancerConfig{
					Rewriter: newRewriter(cfg),
					Timeout:  cfg.Rewrite.Timeout,
					Logger:   logger,
				})
				out = enhancer.Enhance(ctx, out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enhance, "enhance", false, "rephrase the report with the language model")
	return cmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text...>",
		Short: "Show how a message would be understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := intent.Extract(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "kind: %s\n", in.Kind)
			if in.City != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "city: %s\n", in.City)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [path]",
		Short: "Print the effective config with secrets masked, or one value by dot path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			safe := config.Sanitize(cfg)

			if len(args) == 1 {
				v, err := config.GetByPath(safe, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}

			data, err := yaml.Marshal(safe)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List every config path with its current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			paths := config.ListPaths(config.Sanitize(cfg))
			keys := make([]string, 0, len(paths))
			for k := range paths {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", k, paths[k])
			}
			return nil
		},
	})
	return cmd
}
