package mediaindex

import (
	"context"
	"sync"
	"testing"
	"time"

	"media-index/core/indexstore"
	"media-index/core/linked"
	"media-index/core/media"
	"media-index/core/progress"
	"media-index/core/reconcile"

	"go.uber.org/zap"
)

var testSite = media.NewSite("org", "repo", "main")

// memStore is an in-memory indexstore.Store.
type memStore struct {
	mu       sync.Mutex
	entries  map[string][]media.Entry
	usage    map[string][]indexstore.UsagePage
	meta     map[string]indexstore.Meta
	modified map[string]time.Time
	locks    map[string]indexstore.Lock

	saves   int
	loads   int
	saveErr error
	metaErr error
}

func newMemStore() *memStore {
	return &memStore{
		entries:  map[string][]media.Entry{},
		usage:    map[string][]indexstore.UsagePage{},
		meta:     map[string]indexstore.Meta{},
		modified: map[string]time.Time{},
		locks:    map[string]indexstore.Lock{},
	}
}

func (s *memStore) LoadEntries(_ context.Context, site media.Site) ([]media.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	entries, ok := s.entries[site.ID]
	if !ok {
		return nil, indexstore.ErrNotFound
	}
	return append([]media.Entry(nil), entries...), nil
}

func (s *memStore) LoadUsage(_ context.Context, site media.Site) ([]indexstore.UsagePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage, ok := s.usage[site.ID]
	if !ok {
		return nil, indexstore.ErrNotFound
	}
	return append([]indexstore.UsagePage(nil), usage...), nil
}

func (s *memStore) LoadMeta(_ context.Context, site media.Site) (*indexstore.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metaErr != nil {
		return nil, s.metaErr
	}
	meta, ok := s.meta[site.ID]
	if !ok {
		return nil, indexstore.ErrNotFound
	}
	return &meta, nil
}

func (s *memStore) SaveIndex(_ context.Context, site media.Site, entries []media.Entry, usage []indexstore.UsagePage, meta indexstore.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.entries[site.ID] = append([]media.Entry(nil), entries...)
	s.usage[site.ID] = append([]indexstore.UsagePage(nil), usage...)
	s.meta[site.ID] = meta
	s.modified[site.ID] = time.Now()
	return nil
}

func (s *memStore) LastModified(_ context.Context, site media.Site) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.modified[site.ID]
	if !ok {
		return time.Time{}, indexstore.ErrNotFound
	}
	return t, nil
}

func (s *memStore) ReadLock(_ context.Context, site media.Site) (*indexstore.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[site.ID]
	if !ok {
		return nil, indexstore.ErrNotFound
	}
	return &l, nil
}

func (s *memStore) WriteLock(_ context.Context, site media.Site, lock indexstore.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[site.ID] = lock
	return nil
}

func (s *memStore) DeleteLock(_ context.Context, site media.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, site.ID)
	return nil
}

func (s *memStore) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// logSource serves fixed logs. The fold drops entries at or before the
// watermark, so since is ignored here. A positive mediaPageSize splits the
// media log into pages of that size.
type logSource struct {
	mu            sync.Mutex
	audit         []media.AuditEntry
	media         []media.MediaLogEntry
	err           error
	mediaPageSize int
}

func (l *logSource) StreamAudit(_ context.Context, _ media.Site, _ int64, onPage func([]media.AuditEntry)) error {
	l.mu.Lock()
	entries, err := append([]media.AuditEntry(nil), l.audit...), l.err
	l.mu.Unlock()
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		onPage(entries)
	}
	return nil
}

func (l *logSource) StreamMedia(_ context.Context, _ media.Site, _ int64, onPage func([]media.MediaLogEntry)) error {
	l.mu.Lock()
	entries, size := append([]media.MediaLogEntry(nil), l.media...), l.mediaPageSize
	l.mu.Unlock()
	if size <= 0 {
		size = len(entries)
	}
	for len(entries) > 0 {
		n := min(size, len(entries))
		onPage(entries[:n])
		entries = entries[n:]
	}
	return nil
}

func (l *logSource) add(page, hash string, ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audit = append(l.audit, media.AuditEntry{
		Path: page, Route: media.RoutePreview, Method: "POST", Timestamp: media.Millis(ts), User: "author@example.com",
	})
	l.media = append(l.media, media.MediaLogEntry{
		ResourcePath: page,
		Path:         "https://main--repo--org.aem.page/media_" + hash + ".png",
		MediaHash:    hash,
		Timestamp:    media.Millis(ts),
		User:         "author@example.com",
		Operation:    media.OpIngest,
	})
}

type emptyFetcher struct{}

func (emptyFetcher) FetchSource(context.Context, media.Site, string) (string, error) {
	return "", nil
}

func newTestIndexer(t *testing.T, store indexstore.Store, source *logSource) *Indexer {
	t.Helper()
	cfg := reconcile.Config{
		MediaFolder:        "/media",
		FragmentFolder:     "/fragments",
		ContentURLTemplate: "https://{ref}--{repo}--{org}.aem.page{path}",
	}
	resolver := linked.NewResolver(linked.Config{Concurrency: 2}, emptyFetcher{}, cfg.Folders(), zap.NewNop())
	engine := reconcile.NewEngine(cfg, resolver, zap.NewNop())
	ix := New(store, source, engine, time.Minute, progress.Config{DisplayCap: 100}, zap.NewNop())
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}
