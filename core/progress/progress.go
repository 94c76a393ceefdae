package progress

import (
	"fmt"
	"sort"
	"sync"

	"media-index/core/media"

	"go.uber.org/zap"
)

// Stage is a coarse build milestone.
type Stage string

const (
	StageStarting   Stage = "starting"
	StageLoading    Stage = "loading"
	StageFetching   Stage = "fetching"
	StageProcessing Stage = "processing"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
)

// Event is one progress notification.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// Func receives progress events.
type Func func(Event)

// DataFunc receives snapshots of the rows discovered so far.
type DataFunc func([]media.Entry)

// Reporter fans build progress out to optional callbacks. It is safe for
// concurrent use; callbacks are never invoked concurrently.
type Reporter struct {
	mu         sync.Mutex
	onProgress Func
	onData     DataFunc
	displayCap int
	snapshot   *Snapshot
	percent    int
	logger     *zap.Logger
}

// NewReporter creates a reporter. Either callback may be nil.
func NewReporter(cfg Config, onProgress Func, onData DataFunc, logger *zap.Logger) *Reporter {
	return &Reporter{
		onProgress: onProgress,
		onData:     onData,
		displayCap: cfg.DisplayCap,
		snapshot:   NewSnapshot(),
		logger:     logger,
	}
}

// Stage emits a progress event. Percent never goes backwards.
func (r *Reporter) Stage(stage Stage, percent int, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if percent < r.percent {
		percent = r.percent
	}
	if percent > 100 {
		percent = 100
	}
	r.percent = percent

	ev := Event{Stage: stage, Message: fmt.Sprintf(format, args...), Percent: percent}
	r.logger.Debug("Build progress",
		zap.String("stage", string(ev.Stage)),
		zap.String("message", ev.Message),
		zap.Int("percent", ev.Percent),
	)
	if r.onProgress != nil {
		r.onProgress(ev)
	}
}

// WantsData reports whether a snapshot consumer is attached.
func (r *Reporter) WantsData() bool {
	return r.onData != nil
}

// Data merges rows into the running snapshot and emits the capped view.
func (r *Reporter) Data(entries []media.Entry) {
	if r.onData == nil || len(entries) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.Merge(entries)
	r.onData(r.snapshot.View(r.displayCap))
}

// Snapshot accumulates rows by identity key; the newest timestamp wins.
type Snapshot struct {
	byKey map[string]media.Entry
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{byKey: make(map[string]media.Entry)}
}

// Merge adds rows. A row replaces the stored row of its key unless the
// stored one is strictly newer.
func (s *Snapshot) Merge(entries []media.Entry) {
	for _, e := range entries {
		if cur, ok := s.byKey[e.Key()]; ok && cur.Timestamp > e.Timestamp {
			continue
		}
		s.byKey[e.Key()] = e
	}
}

// Len returns the number of distinct rows.
func (s *Snapshot) Len() int {
	return len(s.byKey)
}

// View returns up to limit rows, newest first. A limit of zero or less
// returns every row.
func (s *Snapshot) View(limit int) []media.Entry {
	out := make([]media.Entry, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Key() < out[j].Key()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
