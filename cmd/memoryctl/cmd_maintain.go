package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	maintainWatch   bool
	maintainReembed bool
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run librarian maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		if maintainWatch {
			watcher, err := watchLoggingConfig(workspace)
			if err != nil {
				logger.Warn("config watch disabled", zap.Error(err))
			} else {
				defer watcher.Close()
			}
		}

		status, err := store.RunMaintenance(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("maintenance pass complete: %d findings in %s\n", status.FindingsCount, status.LastRunDuration)

		if maintainReembed {
			n, err := store.Reembed(cmd.Context(), 32, 4)
			if err != nil {
				logger.Warn("reembed pass failed", zap.Error(err))
			} else {
				fmt.Printf("reembed pass complete: %d versions embedded\n", n)
			}
		}

		if maintainWatch {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				status, err := store.RunMaintenance(cmd.Context())
				if err != nil {
					logger.Warn("maintenance pass failed", zap.Error(err))
					continue
				}
				fmt.Printf("maintenance pass complete: %d findings in %s\n", status.FindingsCount, status.LastRunDuration)
			}
		}
		return nil
	},
}

var (
	auditEntryID string
	auditScopeID string
	auditType    string
	auditLimit   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit trail events",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.AuditTrail(cmd.Context(), auditEntryID, auditScopeID, auditType, auditLimit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %-28s entry=%s scope=%s actor=%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.EventType, r.EntryID, r.ScopeID, r.Actor)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditEntryID, "entry", "", "filter by entry ID")
	auditCmd.Flags().StringVar(&auditScopeID, "scope", "", "filter by scope ID")
	auditCmd.Flags().StringVar(&auditType, "type", "", "filter by event type")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum number of records")

	maintainCmd.Flags().BoolVar(&maintainWatch, "watch", false, "keep running, re-analyzing every 5 minutes")
	maintainCmd.Flags().BoolVar(&maintainReembed, "reembed", false, "regenerate embeddings for versions missing one")
}
