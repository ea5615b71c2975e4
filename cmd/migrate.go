package cmd

import (
	"context"
	"fmt"
	"os"

	"elective-allocation/internal/config"
	"elective-allocation/internal/infrastructure/database"
	"elective-allocation/internal/infrastructure/mongostore"
	"elective-allocation/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long:  "Manage the schema of the allocation store",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	Long:  "Apply pending SQL migrations on postgres, or create the collection indexes on mongo",
	Run:   runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  "Display the status of all SQL migrations",
	Run:   runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) {
	cfg := config.Get()
	ctx := context.Background()

	switch cfg.Database.Driver {
	case "mongo":
		store, err := mongostore.Connect(ctx, cfg.Database.URI, cfg.Database.Name, false)
		if err != nil {
			logger.Error("Failed to connect to mongo: %v", err)
			os.Exit(1)
		}
		defer store.Close(ctx)

		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Error("Failed to create indexes: %v", err)
			os.Exit(1)
		}
		fmt.Println("Indexes created successfully!")
		return
	case "memory":
		fmt.Println("Nothing to migrate for the memory store")
		return
	}

	db := connectPostgres(cfg)
	defer database.Close(db)

	applied, err := database.NewMigrationRunner(db, cfg.Database.MigrationsDir).Up(ctx)
	if err != nil {
		logger.Error("Migration failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Migrations completed successfully! (%d applied)\n", applied)
}

func runMigrateStatus(cmd *cobra.Command, args []string) {
	cfg := config.Get()
	if cfg.Database.Driver != "postgres" {
		fmt.Printf("The %s store has no SQL migrations\n", cfg.Database.Driver)
		return
	}

	db := connectPostgres(cfg)
	defer database.Close(db)

	migrations, err := database.NewMigrationRunner(db, cfg.Database.MigrationsDir).Status(context.Background())
	if err != nil {
		logger.Error("Failed to get migration status: %v", err)
		os.Exit(1)
	}

	fmt.Println("Migration Status:")
	fmt.Println("================")
	for _, migration := range migrations {
		status := "Pending"
		if migration.AppliedAt != nil {
			status = fmt.Sprintf("Applied at %s", migration.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("%s - %s [%s]\n", migration.ID, migration.Description, status)
	}
}

func connectPostgres(cfg *config.Config) *gorm.DB {
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	return db
}
