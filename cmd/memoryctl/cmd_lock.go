package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"agentmemory/internal/core"
)

var (
	lockOwner  string
	lockReason string
	lockTTL    time.Duration
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage advisory file locks",
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <path>",
	Short: "Acquire an advisory lock on a file path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lock, err := store.AcquireLock(cmd.Context(), core.AcquireLockRequest{
			Path:   args[0],
			Owner:  lockOwner,
			Reason: lockReason,
			TTL:    lockTTL,
			Actor:  lockOwner,
		})
		if err != nil {
			return err
		}
		fmt.Printf("locked %s until %s\n", lock.Path, lock.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release <path>",
	Short: "Release an advisory lock owned by --owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.ReleaseLock(cmd.Context(), core.ReleaseLockRequest{Path: args[0], Owner: lockOwner, Actor: lockOwner})
	},
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded lock, expired or not",
	RunE: func(cmd *cobra.Command, args []string) error {
		locks, err := store.ListLocks(cmd.Context())
		if err != nil {
			return err
		}
		for _, l := range locks {
			fmt.Printf("%-40s owner=%-12s expires=%s\n", l.Path, l.Owner, l.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	lockAcquireCmd.Flags().StringVar(&lockOwner, "owner", "", "lock owner (required)")
	lockAcquireCmd.Flags().StringVar(&lockReason, "reason", "", "why this lock is being taken")
	lockAcquireCmd.Flags().DurationVar(&lockTTL, "ttl", 5*time.Minute, "lock time-to-live")
	lockAcquireCmd.MarkFlagRequired("owner")

	lockReleaseCmd.Flags().StringVar(&lockOwner, "owner", "", "lock owner (required)")
	lockReleaseCmd.MarkFlagRequired("owner")

	lockCmd.AddCommand(lockAcquireCmd, lockReleaseCmd, lockListCmd)
}
