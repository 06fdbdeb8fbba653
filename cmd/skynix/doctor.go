package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"skynix/internal/config"
	"skynix/internal/speech"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your SkynixIQ setup",
		Long: `Verifies that SkynixIQ's configuration, secrets, audio directory and
metrics listener are correctly set up. Reports pass/fail for each check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("SkynixIQ Doctor %s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0

			cfgPath := resolveConfigPath()
			if cfgPath == "" {
				printWarn("Config file", "none found, using defaults and environment")
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			cfg, err := loadConfig()
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, %d warnings, 1 failed\n", passed, warned)
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			for _, name := range []string{config.EnvBotToken, config.EnvWeatherAPIKey, config.EnvGeminiAPIKey} {
				if err := cfg.CheckSecrets(name); err != nil {
					printFail(name, "not set")
					failed++
				} else {
					printPass(name, "set")
					passed++
				}
			}

			if cfg.VoiceEnabled() {
				printPass("Speech engine", fmt.Sprintf("%s (%s)", cfg.Speech.Model, cfg.Speech.APIBase))
				passed++
			} else {
				printWarn("Speech engine", config.EnvSTTAPIKey+" not set, voice messages will fail")
				warned++
			}

			if err := checkAudioDir(cfg.Speech.Dir); err != nil {
				printFail("Audio directory", err.Error())
				failed++
			} else {
				printPass("Audio directory", cfg.Speech.Dir)
				passed++
			}

			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics listener", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics listener", cfg.Metrics.Addr+" available")
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running SkynixIQ.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nSkynixIQ should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! SkynixIQ is ready to run.\n")
			}
			return nil
		},
	}
}

// checkAudioDir creates dir if needed and proves it is writable.
func checkAudioDir(dir string) error {
	if err := speech.EnsureDir(dir); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
