package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

// CSVReporter writes one allocations_<run id>.csv file per run under dir.
type CSVReporter struct {
	dir string
}

var _ interfaces.Reporter = (*CSVReporter)(nil)

func NewCSVReporter(dir string) *CSVReporter {
	return &CSVReporter{dir: dir}
}

var header = []string{"student_id", "subject_id", "section", "priority", "assigned_at"}

func (r *CSVReporter) Generate(ctx context.Context, runID uuid.UUID, allocs []*domain.Allocation) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("allocations_%s.csv", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}

	for _, a := range allocs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		section := ""
		if a.SectionName != nil {
			section = *a.SectionName
		}
		record := []string{
			a.StudentID.String(),
			a.SubjectID.String(),
			section,
			strconv.Itoa(a.Priority),
			a.AssignedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush report: %w", err)
	}
	return path, nil
}
