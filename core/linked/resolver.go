package linked

import (
	"context"
	"sync"

	"media-index/core/media"
	"media-index/core/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 10

// PageRef is a page whose source should be parsed, with the timestamp of its
// latest preview.
type PageRef struct {
	Path      string
	Timestamp int64
}

// ExternalUse records the pages that embed one external media URL.
type ExternalUse struct {
	Type  media.Type
	Pages []string
	// LastSeen is the newest timestamp among the referencing pages.
	LastSeen int64
}

// UsageMap maps each linked asset to the ordered, deduplicated pages that
// reference it. PDFs, SVGs and Fragments are keyed by site path, External by URL.
type UsageMap struct {
	PDFs      map[string][]string
	SVGs      map[string][]string
	Fragments map[string][]string
	External  map[string]*ExternalUse
}

// NewUsageMap returns an empty usage map.
func NewUsageMap() *UsageMap {
	return &UsageMap{
		PDFs:      make(map[string][]string),
		SVGs:      make(map[string][]string),
		Fragments: make(map[string][]string),
		External:  make(map[string]*ExternalUse),
	}
}

// ProgressFunc is told how many of the pages have been processed.
type ProgressFunc func(done, total int)

// Resolver builds usage maps from page sources.
type Resolver struct {
	fetcher     Fetcher
	folders     media.Folders
	concurrency int
	logger      *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg Config, fetcher Fetcher, folders media.Folders, logger *zap.Logger) *Resolver {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher:     fetcher,
		folders:     folders,
		concurrency: concurrency,
		logger:      logger.Named("linked"),
	}
}

// BuildUsageMap fetches and parses every distinct page in pages. Fetch
// failures are logged and skipped; the only error returned is cancellation.
func (r *Resolver) BuildUsageMap(ctx context.Context, site media.Site, pages []PageRef, onProgress ProgressFunc) (*UsageMap, error) {
	unique := DedupPages(pages)
	results := make([]*Refs, len(unique))

	var (
		g        errgroup.Group
		mu       sync.Mutex
		finished int
	)
	g.SetLimit(r.concurrency)

	for i, page := range unique {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			src, err := r.fetcher.FetchSource(ctx, site, page.Path)
			if err != nil {
				metrics.PageFetchErrors.Inc()
				r.logger.Warn("Failed to fetch page source",
					zap.String("site", site.ID), zap.String("page", page.Path), zap.Error(err))
			} else {
				refs := Extract(src, site, page.Path, r.folders)
				results[i] = &refs
				metrics.PagesParsed.Inc()
			}

			if onProgress != nil {
				mu.Lock()
				finished++
				onProgress(finished, len(unique))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usage := NewUsageMap()
	for i, page := range unique {
		if results[i] != nil {
			usage.merge(page, results[i])
		}
	}
	return usage, nil
}

func (u *UsageMap) merge(page PageRef, refs *Refs) {
	for _, p := range refs.PDFs {
		u.PDFs[p] = appendUnique(u.PDFs[p], page.Path)
	}
	for _, p := range refs.SVGs {
		u.SVGs[p] = appendUnique(u.SVGs[p], page.Path)
	}
	for _, p := range refs.Fragments {
		u.Fragments[p] = appendUnique(u.Fragments[p], page.Path)
	}
	for _, ext := range refs.External {
		use, ok := u.External[ext.URL]
		if !ok {
			use = &ExternalUse{Type: ext.Type}
			u.External[ext.URL] = use
		}
		use.Pages = appendUnique(use.Pages, page.Path)
		if page.Timestamp > use.LastSeen {
			use.LastSeen = page.Timestamp
		}
	}
}

// DedupPages normalizes page paths and keeps the first occurrence of each,
// carrying the newest timestamp seen for it.
func DedupPages(pages []PageRef) []PageRef {
	index := make(map[string]int, len(pages))
	out := make([]PageRef, 0, len(pages))
	for _, p := range pages {
		norm := media.NormalizePath(p.Path)
		if norm == "" {
			continue
		}
		if i, ok := index[norm]; ok {
			if p.Timestamp > out[i].Timestamp {
				out[i].Timestamp = p.Timestamp
			}
			continue
		}
		index[norm] = len(out)
		out = append(out, PageRef{Path: norm, Timestamp: p.Timestamp})
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
