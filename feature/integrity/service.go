package integrity

import (
	"context"
	"errors"
	"fmt"

	"media-index/core/indexstore"
	"media-index/core/media"
	"media-index/core/storage"
	"media-index/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned by schema checks when no database is configured.
var ErrNoDatabase = errors.New("database not configured")

// Service handles integrity checks.
type Service struct {
	client storage.Client
	bucket string
	prefix string
	store  indexstore.Store
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil when
// the corresponding backend is not configured.
func NewService(client storage.Client, bucket, prefix string, store indexstore.Store, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		bucket: bucket,
		prefix: prefix,
		store:  store,
		db:     db,
		logger: logger,
	}
}

// CheckStorage reports on the index bucket and the sites stored in it.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, errors.New("storage not configured")
	}
	return checks.CheckStorage(ctx, s.client, s.bucket, s.prefix)
}

// FixStorage creates the index bucket.
func (s *Service) FixStorage(ctx context.Context) error {
	return checks.FixStorage(ctx, s.client, s.bucket, s.logger)
}

// CheckSchema reports on the SQL tables of the index.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	return checks.CheckSchema(s.db)
}

// CheckIndex loads the persisted index of a site and verifies its invariants.
func (s *Service) CheckIndex(ctx context.Context, org, repo string) (*checks.IndexReport, error) {
	site := media.NewSite(org, repo, "")

	entries, err := s.store.LoadEntries(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("failed to load media table: %w", err)
	}
	usage, err := s.store.LoadUsage(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage table: %w", err)
	}
	meta, err := s.store.LoadMeta(ctx, site)
	if err != nil && !indexstore.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load index metadata: %w", err)
	}

	report := checks.CheckIndex(site.ID, entries, usage, meta)
	if !report.Valid {
		s.logger.Warn("Index invariant violations detected",
			zap.String("site", site.ID),
			zap.Int("duplicates", len(report.DuplicateKeys)),
			zap.Int("orphans", len(report.OrphanViolations)),
			zap.Int("usage", len(report.UsageMismatches)),
			zap.Int("meta", len(report.MetaMismatches)))
	}
	return report, nil
}
