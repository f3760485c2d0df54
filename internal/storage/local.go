package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/salon-crm/internal/domain"
)

// LocalReportStore writes run reports below a directory, using the same
// layout as the S3 store.
type LocalReportStore struct {
	dir string
}

// NewLocalReportStore creates dir if needed.
func NewLocalReportStore(dir string) (*LocalReportStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &LocalReportStore{dir: dir}, nil
}

// Path is the file a run's report is written to.
func (s *LocalReportStore) Path(summary domain.RunSummary) string {
	return filepath.Join(s.dir, filepath.FromSlash(reportName(summary)))
}

// Record implements segmentation.Reporter.
func (s *LocalReportStore) Record(_ context.Context, summary domain.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	p := s.Path(summary)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	return os.Rename(tmp, p)
}

// Get reads a report back from its path.
func (s *LocalReportStore) Get(_ context.Context, p string) (*domain.RunSummary, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling run report: %w", err)
	}
	return &summary, nil
}

// Ping checks the report directory still exists.
func (s *LocalReportStore) Ping(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}
