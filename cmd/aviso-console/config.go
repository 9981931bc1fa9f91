package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avisohq/aviso-console/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/aviso/console.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Backend URL: %s\n", cfg.Backend.BaseURL)
	fmt.Printf("  Backend timeout: %s\n", cfg.Backend.Timeout)
	fmt.Printf("  Admin role: %s\n", cfg.Auth.AdminRole)
	fmt.Printf("  Audit database: %s\n", cfg.Audit.Path)
	fmt.Printf("  Metrics enabled: %v\n", cfg.Metrics.Enabled)

	return nil
}
