package database

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"elective-allocation/pkg/logger"

	"gorm.io/gorm"
)

// Migration is one numbered SQL file, e.g. 001_create_allocation_tables.sql.
type Migration struct {
	ID          string
	Description string
	SQL         string
	AppliedAt   *time.Time
}

type MigrationRunner struct {
	db            *gorm.DB
	migrationsDir string
}

func NewMigrationRunner(db *gorm.DB, migrationsDir string) *MigrationRunner {
	return &MigrationRunner{
		db:            db,
		migrationsDir: migrationsDir,
	}
}

func (mr *MigrationRunner) ensureMigrationsTable(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(255) PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	return mr.db.WithContext(ctx).Exec(ddl).Error
}

type appliedRow struct {
	ID        string
	AppliedAt time.Time
}

func (mr *MigrationRunner) applied(ctx context.Context) (map[string]time.Time, error) {
	var rows []appliedRow
	err := mr.db.WithContext(ctx).
		Raw("SELECT id, applied_at FROM schema_migrations ORDER BY id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.ID] = r.AppliedAt
	}
	return out, nil
}

// Load reads and orders every .sql file in the migrations directory.
func (mr *MigrationRunner) Load() ([]*Migration, error) {
	var files []string
	err := filepath.WalkDir(mr.migrationsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	migrations := make([]*Migration, 0, len(files))
	for _, f := range files {
		m, err := parseMigrationFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", f, err)
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

func parseMigrationFile(path string) (*Migration, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	parts := strings.SplitN(name, "_", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid migration filename format: %s", name)
	}

	return &Migration{
		ID:          parts[0],
		Description: strings.ReplaceAll(strings.TrimSuffix(parts[1], ".sql"), "_", " "),
		SQL:         string(content),
	}, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many were applied.
func (mr *MigrationRunner) Up(ctx context.Context) (int, error) {
	if err := mr.db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return 0, fmt.Errorf("failed to create uuid extension: %w", err)
	}
	if err := mr.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := mr.Load()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}

		err := mr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.SQL).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", m.ID, err)
			}
			if err := tx.Exec("INSERT INTO schema_migrations (id, description) VALUES (?, ?)",
				m.ID, m.Description).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}

		logger.Info("Applied migration: %s - %s", m.ID, m.Description)
		count++
	}

	if count == 0 {
		logger.Info("No pending migrations to apply")
	}
	return count, nil
}

// Status lists every known migration with its applied time, if any.
func (mr *MigrationRunner) Status(ctx context.Context) ([]*Migration, error) {
	if err := mr.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := mr.Load()
	if err != nil {
		return nil, err
	}

	for _, m := range migrations {
		if at, ok := applied[m.ID]; ok {
			at := at
			m.AppliedAt = &at
		}
	}
	return migrations, nil
}
