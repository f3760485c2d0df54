package storage

import (
	"context"

	"github.com/ignite/salon-crm/internal/config"
	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/pkg/logger"
)

// ReportStore records run reports and can be health-checked.
type ReportStore interface {
	Record(ctx context.Context, summary domain.RunSummary) error
	Ping(ctx context.Context) error
}

// New picks the report backend from cfg. It returns nil, nil when reports
// are disabled.
func New(ctx context.Context, cfg config.ReportConfig) (ReportStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.S3Bucket != "" {
		s, err := NewS3ReportStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("run reports go to S3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix, "region", cfg.AWSRegion)
		return s, nil
	}
	s, err := NewLocalReportStore(cfg.LocalPath)
	if err != nil {
		return nil, err
	}
	logger.Info("run reports go to local disk", "path", cfg.LocalPath)
	return s, nil
}
