package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"media-index/core/indexstore"
	"media-index/core/lock"
	"media-index/core/logclient"
	"media-index/core/media"
	"media-index/core/metrics"
	"media-index/core/progress"
	"media-index/core/reconcile"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "media-index/feature/mediaindex"

// ErrClosed is returned by an Indexer after Close.
var ErrClosed = errors.New("indexer is closed")

// BuildOptions tune a single BuildIndex call.
type BuildOptions struct {
	// ForceFull skips the eligibility gate.
	ForceFull bool
	// RequireIncremental fails with ErrNoWatermark instead of falling back
	// to a full build when the site has never been built.
	RequireIncremental bool
	// RefreshedBy is recorded in the metadata as lastRefreshBy.
	RefreshedBy string
}

// Result is the outcome of BuildIndex.
type Result struct {
	Site       media.Site
	Entries    []media.Entry
	HasChanges bool
	Duration   time.Duration
	Mode       reconcile.Mode
	// Reason explains why a full build was chosen.
	Reason string
}

// Indexer builds and serves the media index of any number of sites.
type Indexer struct {
	store    indexstore.Store
	source   logclient.Source
	engine   *reconcile.Engine
	locks    *lock.Coordinator
	progress progress.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	cache *viewCache

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// New creates an indexer. Views read through the indexer are cached for
// cacheTTL; zero disables caching.
func New(store indexstore.Store, source logclient.Source, engine *reconcile.Engine, cacheTTL time.Duration, progressCfg progress.Config, logger *zap.Logger) *Indexer {
	logger = logger.Named("mediaindex")
	ix := &Indexer{
		store:    store,
		source:   source,
		engine:   engine,
		locks:    lock.NewCoordinator(store, logger),
		progress: progressCfg,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	ix.cache = newViewCache(cacheTTL, func() time.Time { return ix.now() })
	return ix
}

// Close rejects new builds, waits for running ones and drops cached views.
func (ix *Indexer) Close() error {
	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return nil
	}
	ix.closed = true
	ix.mu.Unlock()

	ix.inFlight.Wait()
	ix.cache.clear()
	return nil
}

func (ix *Indexer) begin() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}
	ix.inFlight.Add(1)
	return nil
}

// BuildIndex builds the index of a site and persists it. siteID defaults to
// "org/repo". The build holds the site lock for its whole duration and
// releases it on every return path.
//
// onProgress receives stage events; onData receives deduplicated snapshots
// of the rows discovered so far during a full build. Both may be nil.
func (ix *Indexer) BuildIndex(ctx context.Context, siteID, org, repo, ref string, onProgress progress.Func, onData progress.DataFunc, opts BuildOptions) (*Result, error) {
	if err := ix.begin(); err != nil {
		return nil, err
	}
	defer ix.inFlight.Done()

	site := media.NewSite(org, repo, ref)
	if siteID != "" {
		site.ID = siteID
	}
	start := ix.now()
	log := ix.logger.With(zap.String("site", site.ID))
	rep := progress.NewReporter(ix.progress, onProgress, onData, log)

	ctx, span := ix.tracer.Start(ctx, "mediaindex.BuildIndex", trace.WithAttributes(
		attribute.String("site", site.ID),
		attribute.String("ref", site.Ref),
	))
	defer span.End()

	metrics.BuildsInProgress.Inc()
	defer metrics.BuildsInProgress.Dec()

	rep.Stage(progress.StageStarting, 0, "Starting index build for %s", site.ID)

	handle, err := ix.locks.Acquire(ctx, site)
	if err != nil {
		if errors.Is(err, lock.ErrInProgress) {
			metrics.BuildsTotal.WithLabelValues("unknown", "locked").Inc()
			log.Info("Build skipped", zap.Error(err))
		} else {
			metrics.BuildsTotal.WithLabelValues("unknown", "error").Inc()
			log.Error("Failed to acquire build lock", zap.Error(err))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer func() {
		_ = handle.Release(ctx)
	}()

	res, err := ix.build(ctx, site, rep, opts, log)
	if err != nil {
		mode := "unknown"
		if res != nil {
			mode = string(res.Mode)
		}
		metrics.BuildsTotal.WithLabelValues(mode, "error").Inc()
		log.Error("Index build failed", zap.String("mode", mode), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Duration = ix.now().Sub(start)
	result := "ok"
	if !res.HasChanges {
		result = "unchanged"
	}
	metrics.BuildsTotal.WithLabelValues(string(res.Mode), result).Inc()
	metrics.BuildDuration.WithLabelValues(string(res.Mode)).Observe(res.Duration.Seconds())
	metrics.IndexEntries.WithLabelValues(site.ID).Set(float64(len(res.Entries)))
	span.SetAttributes(
		attribute.String("mode", string(res.Mode)),
		attribute.Bool("changed", res.HasChanges),
		attribute.Int("entries", len(res.Entries)),
	)

	log.Info("Index build finished",
		zap.String("mode", string(res.Mode)),
		zap.Bool("changed", res.HasChanges),
		zap.Int("entries", len(res.Entries)),
		zap.Duration("duration", res.Duration),
	)
	rep.Stage(progress.StageComplete, 100, "Indexed %d entries in %s", len(res.Entries), res.Duration.Round(time.Millisecond))
	return res, nil
}

// build runs the pipeline under the lock. The returned result carries the
// chosen mode even when err is set.
func (ix *Indexer) build(ctx context.Context, site media.Site, rep *progress.Reporter, opts BuildOptions, log *zap.Logger) (*Result, error) {
	rep.Stage(progress.StageLoading, 5, "Checking index state")

	decision := full("full build requested")
	if !opts.ForceFull {
		d, err := Decide(ctx, ix.store, site, opts.RequireIncremental)
		if err != nil {
			return nil, err
		}
		decision = d
	}

	var existing []media.Entry
	if decision.Mode == reconcile.ModeIncremental {
		entries, err := ix.store.LoadEntries(ctx, site)
		switch {
		case indexstore.IsNotFound(err):
			decision = full("persisted index not found")
		case err != nil:
			return &Result{Site: site, Mode: decision.Mode}, fmt.Errorf("failed to load index: %w", err)
		default:
			existing = entries
		}
	}

	res := &Result{Site: site, Mode: decision.Mode, Reason: decision.Reason}
	log = log.With(zap.String("mode", string(decision.Mode)))
	log.Info("Building index", zap.String("reason", decision.Reason), zap.Int64("since", decision.Since))

	fold, err := ix.fetch(ctx, site, decision, rep)
	if err != nil {
		return res, err
	}

	auditCount, mediaCount := fold.Counts()
	rep.Stage(progress.StageProcessing, 40, "Reconciling %d audit and %d media log entries", auditCount, mediaCount)

	rctx, span := ix.tracer.Start(ctx, "mediaindex.reconcile")
	onResolve := func(done, total int) {
		if total > 0 {
			rep.Stage(progress.StageProcessing, 40+done*45/total, "Parsed %d of %d pages", done, total)
		}
	}
	var outcome *reconcile.Result
	if decision.Mode == reconcile.ModeFull {
		outcome, err = ix.engine.Full(rctx, site, fold, onResolve)
	} else {
		outcome, err = ix.engine.Incremental(rctx, site, existing, fold, onResolve)
	}
	span.End()
	if err != nil {
		return res, err
	}

	res.Entries = outcome.Entries
	res.HasChanges = outcome.Changed

	usage := indexstore.BuildUsage(outcome.Entries)
	if !outcome.Changed {
		log.Info("Index unchanged, skipping write", zap.Int("pages", outcome.Pages))
		if meta, err := ix.store.LoadMeta(ctx, site); err == nil {
			ix.cache.put(site, &View{Entries: outcome.Entries, Usage: usage, Meta: meta})
		}
		return res, nil
	}

	rep.Stage(progress.StageSaving, 90, "Saving %d entries", len(outcome.Entries))
	sctx, saveSpan := ix.tracer.Start(ctx, "mediaindex.save")
	defer saveSpan.End()

	now := ix.now()
	meta := indexstore.NewMeta(outcome.Entries, usage, now.UnixMilli(), opts.RefreshedBy, string(decision.Mode))
	if err := ix.store.SaveIndex(sctx, site, outcome.Entries, usage, meta); err != nil {
		ix.cache.invalidate(site)
		return res, fmt.Errorf("failed to save index: %w", err)
	}
	metrics.LastBuildTimestamp.WithLabelValues(site.ID).Set(float64(now.Unix()))
	ix.cache.put(site, &View{Entries: outcome.Entries, Usage: usage, Meta: &meta})
	return res, nil
}

// fetch streams both logs into a fold. During a full build media log pages
// also refresh the live snapshot, on pages 1, 2, 4, 8 and so on and once
// more when the logs are exhausted.
func (ix *Indexer) fetch(ctx context.Context, site media.Site, decision Decision, rep *progress.Reporter) (*reconcile.Fold, error) {
	ctx, span := ix.tracer.Start(ctx, "mediaindex.fetchLogs")
	defer span.End()

	rep.Stage(progress.StageFetching, 10, "Fetching audit and media logs")

	fold := reconcile.NewFold(ix.engine.Folders(), decision.Since)
	preview := decision.Mode == reconcile.ModeFull && rep.WantsData()
	var auditSeen, mediaSeen, pages, mediaPages, previewed int

	// FetchAll serializes the callbacks, so the fold needs no locking.
	report := func() {
		pages++
		rep.Stage(progress.StageFetching, min(35, 10+pages), "Fetched %d audit and %d media log entries", auditSeen, mediaSeen)
	}
	_, err := logclient.FetchAll(ctx, ix.source, site, decision.Since, logclient.Callbacks{
		OnAudit: func(entries []media.AuditEntry) {
			fold.AddAudit(entries)
			auditSeen += len(entries)
			report()
		},
		OnMedia: func(entries []media.MediaLogEntry) {
			fold.AddMedia(entries)
			mediaSeen += len(entries)
			report()
			mediaPages++
			if preview && mediaPages&(mediaPages-1) == 0 {
				rep.Data(fold.Preview())
				previewed = mediaPages
			}
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	if preview && previewed != mediaPages {
		rep.Data(fold.Preview())
	}
	span.SetAttributes(attribute.Int("audit_entries", auditSeen), attribute.Int("media_entries", mediaSeen))
	return fold, nil
}

// View returns the persisted index of site, served from memory while fresh.
func (ix *Indexer) View(ctx context.Context, site media.Site) (*View, error) {
	return ix.cache.getOrLoad(ctx, site, func(ctx context.Context) (*View, error) {
		var (
			view View
			g    errgroup.Group
		)
		g.Go(func() error {
			entries, err := ix.store.LoadEntries(ctx, site)
			view.Entries = entries
			return err
		})
		g.Go(func() error {
			usage, err := ix.store.LoadUsage(ctx, site)
			view.Usage = usage
			return err
		})
		g.Go(func() error {
			meta, err := ix.store.LoadMeta(ctx, site)
			view.Meta = meta
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		// Lookups binary-search both tables; a SQL collation may order them differently.
		reconcile.SortEntries(view.Entries)
		sort.Slice(view.Usage, func(i, j int) bool { return view.Usage[i].Page < view.Usage[j].Page })
		return &view, nil
	})
}
