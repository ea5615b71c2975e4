package cmd

import (
	"context"
	"fmt"
	"os"

	"elective-allocation/internal/config"
	"elective-allocation/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect and restore allocation snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Run:   runSnapshotList,
}

var snapshotRollbackCmd = &cobra.Command{
	Use:   "rollback <snapshot-id>",
	Short: "Restore the live allocations from a snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runSnapshotRollback,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRollbackCmd)
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	c, err := buildComponents(ctx, config.Get(), buildOptions{})
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer c.close()

	snapshots, err := c.snapshots.ListSnapshots(ctx)
	if err != nil {
		logger.Error("Failed to list snapshots: %v", err)
		return
	}

	fmt.Println("Snapshots:")
	fmt.Println("==========")
	for _, s := range snapshots {
		fmt.Printf("%s  %s  %d rows  %s\n",
			s.SnapshotID, s.CreatedAt.Format("2006-01-02 15:04:05"), len(s.Allocations), s.Note)
	}
}

func runSnapshotRollback(cmd *cobra.Command, args []string) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		logger.Error("Invalid snapshot id %q: %v", args[0], err)
		os.Exit(1)
	}

	ctx := context.Background()

	c, err := buildComponents(ctx, config.Get(), buildOptions{})
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer c.close()

	if err := c.snapshots.RollbackToSnapshot(ctx, id); err != nil {
		logger.Error("Rollback failed: %v", err)
		c.close()
		os.Exit(1)
	}
	fmt.Printf("Restored snapshot %s\n", id)
}
