package indexstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"media-index/core/media"
	"media-index/core/storage"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a persisted record does not exist.
var ErrNotFound = errors.New("index record not found")

// Meta is the per-site record written at the end of every successful build.
type Meta struct {
	// LastFetchTime is the log watermark in epoch milliseconds.
	LastFetchTime int64  `json:"lastFetchTime"`
	EntriesCount  int    `json:"entriesCount"`
	MediaCount    int    `json:"mediaCount"`
	UsageCount    int    `json:"usageCount"`
	LastRefreshBy string `json:"lastRefreshBy"`
	LastBuildMode string `json:"lastBuildMode"`
}

// Lock is the advisory build lock of a site.
type Lock struct {
	// Timestamp is the acquisition time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	Locked    bool  `json:"locked"`
	// Owner identifies the build holding the lock.
	Owner string `json:"owner,omitempty"`
}

// UsagePage is one row of the reverse index: the hashes a page uses.
type UsagePage struct {
	Page   string   `json:"page"`
	Hashes []string `json:"hashes"`
}

// Store persists the index of a site: the media table, the usage table, the
// metadata record and the lock record.
type Store interface {
	// LoadEntries returns the media table; ErrNotFound when no index exists.
	LoadEntries(ctx context.Context, site media.Site) ([]media.Entry, error)
	// LoadUsage returns the usage table; ErrNotFound when no index exists.
	LoadUsage(ctx context.Context, site media.Site) ([]UsagePage, error)
	// LoadMeta returns the metadata record; ErrNotFound when absent.
	LoadMeta(ctx context.Context, site media.Site) (*Meta, error)
	// SaveIndex writes both tables, then the metadata record.
	SaveIndex(ctx context.Context, site media.Site, entries []media.Entry, usage []UsagePage, meta Meta) error
	// LastModified returns when the persisted tables last changed; ErrNotFound when no index exists.
	LastModified(ctx context.Context, site media.Site) (time.Time, error)
	// ReadLock returns the lock record; ErrNotFound when absent.
	ReadLock(ctx context.Context, site media.Site) (*Lock, error)
	// WriteLock creates or replaces the lock record.
	WriteLock(ctx context.Context, site media.Site, lock Lock) error
	// DeleteLock removes the lock record. Deleting an absent lock is not an error.
	DeleteLock(ctx context.Context, site media.Site) error
}

// New creates the store selected by cfg.Backend.
func New(cfg Config, client storage.Client, bucket string, db *gorm.DB) (Store, error) {
	switch cfg.Backend {
	case BackendObject, "":
		if client == nil {
			return nil, errors.New("object index backend requires a storage client")
		}
		return NewObjectStore(client, bucket, cfg.Prefix), nil
	case BackendSQL:
		if db == nil {
			return nil, errors.New("sql index backend requires a database connection")
		}
		store := NewSQLStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

// BuildUsage derives the reverse index from the media table. Pages and their
// hashes are sorted; orphan rows are skipped.
func BuildUsage(entries []media.Entry) []UsagePage {
	byPage := make(map[string]map[string]struct{})
	for _, e := range entries {
		if e.Doc == "" {
			continue
		}
		set, ok := byPage[e.Doc]
		if !ok {
			set = make(map[string]struct{})
			byPage[e.Doc] = set
		}
		set[e.Hash] = struct{}{}
	}

	usage := make([]UsagePage, 0, len(byPage))
	for page, set := range byPage {
		hashes := make([]string, 0, len(set))
		for h := range set {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
		usage = append(usage, UsagePage{Page: page, Hashes: hashes})
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].Page < usage[j].Page })
	return usage
}

// NewMeta summarizes a built index.
func NewMeta(entries []media.Entry, usage []UsagePage, lastFetchTime int64, refreshedBy, mode string) Meta {
	hashes := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		hashes[e.Hash] = struct{}{}
	}
	return Meta{
		LastFetchTime: lastFetchTime,
		EntriesCount:  len(entries),
		MediaCount:    len(hashes),
		UsageCount:    len(usage),
		LastRefreshBy: refreshedBy,
		LastBuildMode: mode,
	}
}
