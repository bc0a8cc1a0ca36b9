package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/scalper/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the trading engine.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  scalper config init -o settings.yaml
  scalper config validate -f settings.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  scalper config init -o settings.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  scalper config validate -f settings.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "settings.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  scalper run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	mode := "live"
	if cfg.System.DryRun {
		mode = "dry-run"
	}
	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Pairs: %s (%s)\n", strings.Join(cfg.Trading.Pairs, ", "), cfg.Trading.Timeframe)
	fmt.Printf("  Risk: %.2f%% per trade, %.1f%% daily cap\n",
		cfg.Risk.RiskPerTradePercent, cfg.Risk.MaxDailyLossPercent)
	fmt.Printf("  Mode: %s\n", mode)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
