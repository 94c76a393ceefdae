package reconcile

import (
	"context"
	"fmt"
	"sort"

	"media-index/core/linked"
	"media-index/core/media"

	"go.uber.org/zap"
)

// Mode is the kind of build that produced an index.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// UsageResolver resolves linked content for a set of pages.
// *linked.Resolver is the production implementation.
type UsageResolver interface {
	BuildUsageMap(ctx context.Context, site media.Site, pages []linked.PageRef, onProgress linked.ProgressFunc) (*linked.UsageMap, error)
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	// Entries is the complete usage table, sorted by hash then doc.
	Entries []media.Entry
	// Changed is false when the table equals the one the pass started from.
	Changed bool
	// Pages is the number of pages the pass touched.
	Pages int
}

// Engine turns folded log entries into the media usage table.
type Engine struct {
	cfg      Config
	folders  media.Folders
	resolver UsageResolver
	logger   *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config, resolver UsageResolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		folders:  cfg.Folders(),
		resolver: resolver,
		logger:   logger.Named("reconcile"),
	}
}

// Folders returns the folder layout the engine classifies paths with.
func (e *Engine) Folders() media.Folders {
	return e.folders
}

// Full builds the table from scratch out of a fold of the complete logs.
func (e *Engine) Full(ctx context.Context, site media.Site, f *Fold, onProgress linked.ProgressFunc) (*Result, error) {
	t := NewTable(nil)
	if err := e.apply(ctx, site, t, f, onProgress); err != nil {
		return nil, err
	}
	return &Result{Entries: t.Entries(), Changed: true, Pages: len(f.Pages())}, nil
}

// Incremental applies a fold of the entries newer than the watermark to an
// existing table. Only pages touched by the fold are re-evaluated; when the
// fold is empty the existing table is returned unchanged.
func (e *Engine) Incremental(ctx context.Context, site media.Site, existing []media.Entry, f *Fold, onProgress linked.ProgressFunc) (*Result, error) {
	t := NewTable(existing)
	before := t.Entries()
	if f.Empty() {
		return &Result{Entries: before}, nil
	}

	if err := e.apply(ctx, site, t, f, onProgress); err != nil {
		return nil, err
	}
	after := t.Entries()
	return &Result{Entries: after, Changed: !equalEntries(before, after), Pages: len(f.Pages())}, nil
}

// step is one state of a page's media in time order.
type step struct {
	ts   int64
	rows []media.Entry
}

// removal is the latest event that took a hash off a page.
type removal struct {
	ts  int64
	row media.Entry
}

func (e *Engine) apply(ctx context.Context, site media.Site, t *Table, f *Fold, onProgress linked.ProgressFunc) error {
	pages := f.Pages()

	refs := make([]linked.PageRef, 0, len(pages))
	for _, p := range pages {
		if f.IsPageDeleted(p) {
			continue
		}
		ts, _ := f.pageStamp(p)
		refs = append(refs, linked.PageRef{Path: p, Timestamp: ts})
	}

	usage, err := e.resolver.BuildUsageMap(ctx, site, refs, onProgress)
	if err != nil {
		return fmt.Errorf("failed to resolve linked content: %w", err)
	}
	links := e.linkedByPage(site, f, usage)

	removals := make(map[string]removal)
	for _, p := range pages {
		e.applyPage(t, f, p, links[p], removals)
	}

	files := make([]string, 0, len(f.files))
	for p := range f.files {
		files = append(files, p)
	}
	sort.Strings(files)

	for _, p := range files {
		if f.isFileDeleted(p) {
			t.RemoveHash(p)
		}
	}

	// Previewed linked files nobody references stay discoverable.
	for _, p := range files {
		st := f.files[p]
		kind, ok := linkedKind(e.folders, p)
		if !ok || st.deleted || t.IsReferenced(p) {
			continue
		}
		url := e.cfg.ContentURL(site, p)
		t.Put(media.Entry{
			Hash:      p,
			URL:       url,
			Name:      media.NameFromURL(url),
			Timestamp: st.ts,
			User:      st.user,
			Operation: media.OpAuditlogParsed,
			Type:      kind,
			Status:    media.StatusUnused,
		})
	}

	hashes := make([]string, 0, len(f.standalone))
	for h := range f.standalone {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	for _, h := range hashes {
		if !f.isHashDeleted(h) {
			t.Put(f.standalone[h])
		}
	}

	hashes = hashes[:0]
	for h := range removals {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	for _, h := range hashes {
		r := removals[h]
		if f.isHashDeleted(h) || f.isFileDeleted(h) || r.row.Operation == media.OpExtlinksParsed {
			continue
		}
		orphan := r.row
		orphan.Doc = ""
		orphan.Status = media.StatusUnused
		orphan.Timestamp = r.ts
		t.Put(orphan)
	}

	for h := range f.deletedHashes {
		if !t.IsReferenced(h) {
			t.Remove(h, "")
		}
	}

	e.logger.Debug("Applied fold",
		zap.String("site", site.ID),
		zap.Int("pages", len(pages)),
		zap.Int("removals", len(removals)),
		zap.Int("rows", t.Len()))
	return nil
}

// applyPage replaces the rows of one page with its current media and linked
// content, recording every hash that left the page.
//
// The page's history is a sequence of steps: the rows already in the table,
// each folded session oldest first, and an empty step when the page was
// deleted or previewed without a folded session. A hash that is not part of the
// final rows left the page at the step following its last appearance.
func (e *Engine) applyPage(t *Table, f *Fold, page string, links []media.Entry, removals map[string]removal) {
	pageTS, user := f.pageStamp(page)

	var steps []step
	if old := t.RemoveDoc(page); len(old) > 0 {
		steps = append(steps, step{rows: old})
	}

	sessions := f.sessionsOf(page)
	for _, s := range sessions {
		steps = append(steps, step{ts: s.ts, rows: sessionRows(s)})
	}

	deleted := f.IsPageDeleted(page)
	var current []media.Entry
	switch {
	case deleted:
		steps = append(steps, step{ts: f.pages[page].ts})
	case len(sessions) > 0:
		current = steps[len(steps)-1].rows
	case f.previewTS(page) > 0:
		steps = append(steps, step{ts: f.previewTS(page)})
	}

	final := make(map[string]struct{}, len(current)+len(links))
	if !deleted {
		for _, row := range current {
			t.Put(row)
			final[row.Hash] = struct{}{}
		}
		for _, row := range links {
			row.Timestamp = pageTS
			row.User = user
			t.Put(row)
			final[row.Hash] = struct{}{}
		}
	}

	lastSeen := make(map[string]int)
	rowOf := make(map[string]media.Entry)
	for i, s := range steps {
		for _, row := range s.rows {
			if _, kept := final[row.Hash]; kept {
				continue
			}
			lastSeen[row.Hash] = i
			rowOf[row.Hash] = row
		}
	}

	for h, i := range lastSeen {
		ts := pageTS
		if i+1 < len(steps) {
			ts = steps[i+1].ts
		}
		if cur, ok := removals[h]; !ok || ts > cur.ts {
			removals[h] = removal{ts: ts, row: rowOf[h]}
		}
	}
}

// linkedByPage turns a usage map into referenced rows grouped by page.
// Timestamps and actors are filled per page by applyPage.
func (e *Engine) linkedByPage(site media.Site, f *Fold, usage *linked.UsageMap) map[string][]media.Entry {
	out := make(map[string][]media.Entry)
	if usage == nil {
		return out
	}

	add := func(hash, url string, kind media.Type, op string, pages []string) {
		for _, p := range pages {
			out[p] = append(out[p], media.Entry{
				Hash:      hash,
				URL:       url,
				Name:      media.NameFromURL(url),
				Operation: op,
				Type:      kind,
				Doc:       p,
				Status:    media.StatusReferenced,
			})
		}
	}

	for _, group := range []struct {
		paths map[string][]string
		kind  media.Type
	}{
		{usage.PDFs, media.TypeDocument},
		{usage.SVGs, media.TypeImage},
		{usage.Fragments, media.TypeFragment},
	} {
		for p, pages := range group.paths {
			if f.isFileDeleted(p) {
				continue
			}
			add(p, e.cfg.ContentURL(site, p), group.kind, media.OpAuditlogParsed, pages)
		}
	}

	for u, use := range usage.External {
		add(u, u, use.Type, media.OpExtlinksParsed, use.Pages)
	}
	return out
}

func sessionRows(s *session) []media.Entry {
	rows := make([]media.Entry, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Hash < rows[j].Hash })
	return rows
}

func equalEntries(a, b []media.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
