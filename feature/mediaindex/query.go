package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"media-index/core/indexstore"
	"media-index/core/lock"
	"media-index/core/media"
	"media-index/core/reconcile"
)

// MediaFilter selects rows of the media table. Empty fields match anything.
type MediaFilter struct {
	Hash   string
	Doc    string
	Status media.Status
	Type   media.Type
	// Orphans restricts the result to rows without a page.
	Orphans bool
}

// Match reports whether e passes the filter.
func (f MediaFilter) Match(e media.Entry) bool {
	switch {
	case f.Hash != "" && e.Hash != f.Hash:
		return false
	case f.Doc != "" && e.Doc != media.NormalizePath(f.Doc):
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Orphans && !e.IsOrphan():
		return false
	}
	return true
}

// Media returns the rows of site matching filter.
func (ix *Indexer) Media(ctx context.Context, site media.Site, filter MediaFilter) ([]media.Entry, error) {
	view, err := ix.View(ctx, site)
	if err != nil {
		return nil, err
	}
	out := make([]media.Entry, 0)
	for _, e := range view.Entries {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Usage returns the hashes page uses, or nil when the page uses none.
func (ix *Indexer) Usage(ctx context.Context, site media.Site, page string) ([]string, error) {
	view, err := ix.View(ctx, site)
	if err != nil {
		return nil, err
	}
	page = media.NormalizePath(page)
	i := sort.Search(len(view.Usage), func(i int) bool { return view.Usage[i].Page >= page })
	if i < len(view.Usage) && view.Usage[i].Page == page {
		return view.Usage[i].Hashes, nil
	}
	return nil, nil
}

// Where describes where a hash is used.
type Where struct {
	Hash  string   `json:"hash"`
	Used  bool     `json:"used"`
	Pages []string `json:"pages"`
	// Known is false when the index has no row for the hash at all.
	Known bool `json:"known"`
}

// WhereUsed reports the pages using hash.
func (ix *Indexer) WhereUsed(ctx context.Context, site media.Site, hash string) (*Where, error) {
	view, err := ix.View(ctx, site)
	if err != nil {
		return nil, err
	}
	w := &Where{Hash: hash, Pages: []string{}}
	// Entries are sorted by hash, then doc.
	i := sort.Search(len(view.Entries), func(i int) bool { return view.Entries[i].Hash >= hash })
	for ; i < len(view.Entries) && view.Entries[i].Hash == hash; i++ {
		w.Known = true
		if doc := view.Entries[i].Doc; doc != "" {
			w.Pages = append(w.Pages, doc)
		}
	}
	w.Used = len(w.Pages) > 0
	return w, nil
}

// Status is the persisted state of a site's index.
type Status struct {
	Site         media.Site       `json:"site"`
	Meta         *indexstore.Meta `json:"meta,omitempty"`
	LastModified *time.Time       `json:"lastModified,omitempty"`
	Lock         *indexstore.Lock `json:"lock,omitempty"`
	LockStale    bool             `json:"lockStale"`
	// NextMode is the mode an automatic build would choose now.
	NextMode reconcile.Mode `json:"nextMode"`
	Reason   string         `json:"reason,omitempty"`
}

// Status reads the metadata, modification time and lock of site directly
// from the store.
func (ix *Indexer) Status(ctx context.Context, site media.Site) (*Status, error) {
	st := &Status{Site: site}

	meta, err := ix.store.LoadMeta(ctx, site)
	if err != nil && !indexstore.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load index metadata: %w", err)
	}
	st.Meta = meta

	modified, err := ix.store.LastModified(ctx, site)
	if err == nil {
		st.LastModified = &modified
	}

	l, err := ix.store.ReadLock(ctx, site)
	switch {
	case err == nil:
		st.Lock = l
		st.LockStale = l.Locked && ix.now().Sub(time.UnixMilli(l.Timestamp)) >= lock.StaleAfter
	case !indexstore.IsNotFound(err):
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}

	decision, err := Decide(ctx, ix.store, site, false)
	if err != nil {
		return nil, err
	}
	st.NextMode = decision.Mode
	st.Reason = decision.Reason
	return st, nil
}

// IsConfigurationError reports whether err is a caller mistake rather than
// a failure of the build.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNoWatermark)
}

// ParseStatus validates a status filter value.
func ParseStatus(s string) (media.Status, error) {
	switch st := media.Status(strings.ToLower(s)); st {
	case "", media.StatusReferenced, media.StatusUnused:
		return st, nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}
