package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"elective-allocation/internal/config"
	"elective-allocation/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	allocateStrategy  string
	allocateMaxRounds int
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Run or undo allocations from the command line",
}

var allocateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one allocation",
	Long: `Allocate every student with submitted preferences. The live allocation
set is snapshotted first and can be restored with "snapshot rollback".`,
	Run: runAllocate,
}

var allocateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Delete every live allocation",
	Run:   runAllocateRollback,
}

func init() {
	rootCmd.AddCommand(allocateCmd)
	allocateCmd.AddCommand(allocateRunCmd)
	allocateCmd.AddCommand(allocateRollbackCmd)

	allocateRunCmd.Flags().StringVar(&allocateStrategy, "strategy", "", "allocation strategy: multi_round or greedy (overrides allocation.strategy)")
	allocateRunCmd.Flags().IntVar(&allocateMaxRounds, "max-rounds", 0, "rounds for the multi_round strategy (overrides allocation.max_rounds)")
}

func runAllocate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	c, err := buildComponents(ctx, config.Get(), buildOptions{
		strategy:  allocateStrategy,
		maxRounds: allocateMaxRounds,
	})
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer c.close()

	c.notifications.StartWorkers()
	defer c.notifications.StopWorkers()

	result, err := c.allocations.RunAllocation(ctx, nil)
	if err != nil {
		logger.Error("Allocation failed: %v", err)
		c.notifications.StopWorkers()
		c.close()
		os.Exit(1)
	}

	fmt.Printf("Run %s (%s)\n", result.RunID, result.Strategy)
	fmt.Printf("Allocated: %d\n", result.AllocatedCount)
	if result.SnapshotID != nil {
		fmt.Printf("Snapshot:  %s\n", *result.SnapshotID)
	}
	if result.ReportHandle != "" {
		fmt.Printf("Report:    %s\n", result.ReportHandle)
	}

	subjects := make([]uuid.UUID, 0, len(result.Waitlists))
	for id := range result.Waitlists {
		subjects = append(subjects, id)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].String() < subjects[j].String() })

	if len(subjects) > 0 {
		fmt.Println("Waitlists:")
	}
	for _, id := range subjects {
		fmt.Printf("  %s: %d waiting\n", id, len(result.Waitlists[id]))
	}
}

func runAllocateRollback(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	c, err := buildComponents(ctx, config.Get(), buildOptions{})
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer c.close()

	if err := c.snapshots.RollbackAll(ctx); err != nil {
		logger.Error("Rollback failed: %v", err)
		c.close()
		os.Exit(1)
	}
	fmt.Println("All allocations rolled back")
}
