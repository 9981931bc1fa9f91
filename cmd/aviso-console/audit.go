package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avisohq/aviso-console/internal/audit"
	"github.com/avisohq/aviso-console/internal/config"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Operator audit log commands",
}

var (
	auditLimit    int
	auditOperator string
	auditMaxAge   time.Duration
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent operator actions",
	RunE:  runAuditList,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit entries older than the given age",
	RunE:  runAuditPrune,
}

func init() {
	auditListCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/aviso/console.yaml", "Path to configuration file")
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Maximum number of entries")
	auditListCmd.Flags().StringVar(&auditOperator, "operator", "", "Filter by operator name")

	auditPruneCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/aviso/console.yaml", "Path to configuration file")
	auditPruneCmd.Flags().DurationVar(&auditMaxAge, "older-than", 90*24*time.Hour, "Delete entries older than this age")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditPruneCmd)
}

func openAuditLog() (*audit.Log, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return audit.Open(cfg.Audit.Path)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	log, err := openAuditLog()
	if err != nil {
		return err
	}
	defer log.Close()

	entries, err := log.List(context.Background(), audit.ListFilter{
		Operator: auditOperator,
		Limit:    auditLimit,
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-20s %-18s", e.CreatedAt.Format(time.RFC3339), e.Operator, e.Action)
		if e.Entity != "" {
			line += " " + e.Entity
			if e.EntityID != "" {
				line += "/" + e.EntityID
			}
		}
		if e.Details != "" {
			line += "  " + e.Details
		}
		fmt.Println(line)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	log, err := openAuditLog()
	if err != nil {
		return err
	}
	defer log.Close()

	n, err := log.Prune(context.Background(), auditMaxAge)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d audit entries\n", n)
	return nil
}
