package indexstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"media-index/core/media"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqlBatchSize = 500

// Table names of the SQL backend.
const (
	MediaTable = "media_entries"
	UsageTable = "usage_pages"
	MetaTable  = "index_meta"
	LockTable  = "index_locks"
)

type mediaRow struct {
	ID        uint   `gorm:"primaryKey"`
	Site      string `gorm:"size:191;not null;uniqueIndex:idx_media_site_key,priority:1"`
	Hash      string `gorm:"size:255;not null;uniqueIndex:idx_media_site_key,priority:2"`
	Doc       string `gorm:"size:255;not null;uniqueIndex:idx_media_site_key,priority:3;index:idx_media_doc"`
	URL       string `gorm:"type:text"`
	Name      string `gorm:"size:512"`
	Timestamp int64
	User      string `gorm:"size:255"`
	Operation string `gorm:"size:64"`
	Type      string `gorm:"size:32"`
	Status    string `gorm:"size:32"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

func (mediaRow) TableName() string { return MediaTable }

type usageRow struct {
	ID        uint   `gorm:"primaryKey"`
	Site      string `gorm:"size:191;not null;uniqueIndex:idx_usage_site_page,priority:1"`
	Page      string `gorm:"size:255;not null;uniqueIndex:idx_usage_site_page,priority:2"`
	Hashes    string `gorm:"type:text"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

func (usageRow) TableName() string { return UsageTable }

type metaRow struct {
	Site          string `gorm:"primaryKey;size:191"`
	LastFetchTime int64
	EntriesCount  int
	MediaCount    int
	UsageCount    int
	LastRefreshBy string `gorm:"size:255"`
	LastBuildMode string `gorm:"size:32"`
	UpdatedAt     int64  `gorm:"autoUpdateTime:milli"`
}

func (metaRow) TableName() string { return MetaTable }

type lockRow struct {
	Site      string `gorm:"primaryKey;size:191"`
	Timestamp int64
	Locked    bool
	Owner     string `gorm:"size:64"`
}

func (lockRow) TableName() string { return LockTable }

// ExpectedColumns lists the columns each SQL table must carry.
var ExpectedColumns = map[string][]string{
	MediaTable: {"id", "site", "hash", "doc", "url", "name", "timestamp", "user", "operation", "type", "status", "updated_at"},
	UsageTable: {"id", "site", "page", "hashes", "updated_at"},
	MetaTable:  {"site", "last_fetch_time", "entries_count", "media_count", "usage_count", "last_refresh_by", "last_build_mode", "updated_at"},
	LockTable:  {"site", "timestamp", "locked", "owner"},
}

// SQLStore keeps every site's index in four tables keyed by site id.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a SQL store. New migrates the tables; callers of
// NewSQLStore run AutoMigrate themselves.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// AutoMigrate creates or updates the index tables.
func (s *SQLStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&mediaRow{}, &usageRow{}, &metaRow{}, &lockRow{}); err != nil {
		return fmt.Errorf("failed to migrate index tables: %w", err)
	}
	return nil
}

// LoadEntries reads the media table of a site ordered by hash, then doc.
func (s *SQLStore) LoadEntries(ctx context.Context, site media.Site) ([]media.Entry, error) {
	var rows []mediaRow
	if err := s.db.WithContext(ctx).Where("site = ?", site.ID).Order("hash, doc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load media entries: %w", err)
	}
	if len(rows) == 0 {
		if err := s.requireMeta(ctx, site); err != nil {
			return nil, err
		}
	}

	entries := make([]media.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, media.Entry{
			Hash:      r.Hash,
			URL:       r.URL,
			Name:      r.Name,
			Timestamp: r.Timestamp,
			User:      r.User,
			Operation: r.Operation,
			Type:      media.Type(r.Type),
			Doc:       r.Doc,
			Status:    media.Status(r.Status),
		})
	}
	return entries, nil
}

// LoadUsage reads the usage table of a site ordered by page.
func (s *SQLStore) LoadUsage(ctx context.Context, site media.Site) ([]UsagePage, error) {
	var rows []usageRow
	if err := s.db.WithContext(ctx).Where("site = ?", site.ID).Order("page").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load usage pages: %w", err)
	}
	if len(rows) == 0 {
		if err := s.requireMeta(ctx, site); err != nil {
			return nil, err
		}
	}

	usage := make([]UsagePage, 0, len(rows))
	for _, r := range rows {
		var hashes []string
		if r.Hashes != "" {
			if err := json.Unmarshal([]byte(r.Hashes), &hashes); err != nil {
				return nil, fmt.Errorf("failed to decode hashes of %s: %w", r.Page, err)
			}
		}
		usage = append(usage, UsagePage{Page: r.Page, Hashes: hashes})
	}
	return usage, nil
}

// LoadMeta reads the metadata record of a site.
func (s *SQLStore) LoadMeta(ctx context.Context, site media.Site) (*Meta, error) {
	row, err := s.findMeta(ctx, site)
	if err != nil {
		return nil, err
	}
	return &Meta{
		LastFetchTime: row.LastFetchTime,
		EntriesCount:  row.EntriesCount,
		MediaCount:    row.MediaCount,
		UsageCount:    row.UsageCount,
		LastRefreshBy: row.LastRefreshBy,
		LastBuildMode: row.LastBuildMode,
	}, nil
}

// SaveIndex replaces the site's tables and metadata in one transaction.
func (s *SQLStore) SaveIndex(ctx context.Context, site media.Site, entries []media.Entry, usage []UsagePage, meta Meta) error {
	mediaRows := make([]mediaRow, 0, len(entries))
	for _, e := range entries {
		mediaRows = append(mediaRows, mediaRow{
			Site:      site.ID,
			Hash:      e.Hash,
			Doc:       e.Doc,
			URL:       e.URL,
			Name:      e.Name,
			Timestamp: e.Timestamp,
			User:      e.User,
			Operation: e.Operation,
			Type:      string(e.Type),
			Status:    string(e.Status),
		})
	}

	usageRows := make([]usageRow, 0, len(usage))
	for _, u := range usage {
		hashes := u.Hashes
		if hashes == nil {
			hashes = []string{}
		}
		encoded, err := json.Marshal(hashes)
		if err != nil {
			return fmt.Errorf("failed to encode hashes of %s: %w", u.Page, err)
		}
		usageRows = append(usageRows, usageRow{Site: site.ID, Page: u.Page, Hashes: string(encoded)})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site = ?", site.ID).Delete(&mediaRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear media entries: %w", err)
		}
		if err := tx.Where("site = ?", site.ID).Delete(&usageRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear usage pages: %w", err)
		}
		if len(mediaRows) > 0 {
			if err := tx.CreateInBatches(mediaRows, sqlBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert media entries: %w", err)
			}
		}
		if len(usageRows) > 0 {
			if err := tx.CreateInBatches(usageRows, sqlBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert usage pages: %w", err)
			}
		}

		row := metaRow{
			Site:          site.ID,
			LastFetchTime: meta.LastFetchTime,
			EntriesCount:  meta.EntriesCount,
			MediaCount:    meta.MediaCount,
			UsageCount:    meta.UsageCount,
			LastRefreshBy: meta.LastRefreshBy,
			LastBuildMode: meta.LastBuildMode,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save index metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// LastModified returns the newest update time across the site's media rows
// and metadata record.
func (s *SQLStore) LastModified(ctx context.Context, site media.Site) (time.Time, error) {
	var newest sql.NullInt64
	err := s.db.WithContext(ctx).Model(&mediaRow{}).
		Select("MAX(updated_at)").
		Where("site = ?", site.ID).
		Row().Scan(&newest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read index modification time: %w", err)
	}

	row, err := s.findMeta(ctx, site)
	switch {
	case err == nil:
		if !newest.Valid || row.UpdatedAt > newest.Int64 {
			newest = sql.NullInt64{Int64: row.UpdatedAt, Valid: true}
		}
	case !IsNotFound(err):
		return time.Time{}, err
	}

	if !newest.Valid {
		return time.Time{}, ErrNotFound
	}
	return time.UnixMilli(newest.Int64), nil
}

// ReadLock reads the lock record of a site.
func (s *SQLStore) ReadLock(ctx context.Context, site media.Site) (*Lock, error) {
	var rows []lockRow
	if err := s.db.WithContext(ctx).Where("site = ?", site.ID).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &Lock{Timestamp: rows[0].Timestamp, Locked: rows[0].Locked, Owner: rows[0].Owner}, nil
}

// WriteLock creates or replaces the lock record of a site.
func (s *SQLStore) WriteLock(ctx context.Context, site media.Site, lock Lock) error {
	row := lockRow{Site: site.ID, Timestamp: lock.Timestamp, Locked: lock.Locked, Owner: lock.Owner}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}
	return nil
}

// DeleteLock removes the lock record of a site.
func (s *SQLStore) DeleteLock(ctx context.Context, site media.Site) error {
	if err := s.db.WithContext(ctx).Where("site = ?", site.ID).Delete(&lockRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	return nil
}

func (s *SQLStore) findMeta(ctx context.Context, site media.Site) (*metaRow, error) {
	var rows []metaRow
	if err := s.db.WithContext(ctx).Where("site = ?", site.ID).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load index metadata: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SQLStore) requireMeta(ctx context.Context, site media.Site) error {
	_, err := s.findMeta(ctx, site)
	return err
}
