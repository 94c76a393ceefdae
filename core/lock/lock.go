package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-index/core/indexstore"
	"media-index/core/media"
	"media-index/core/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StaleAfter is the age after which a held lock no longer blocks a build.
const StaleAfter = 30 * time.Minute

// ErrInProgress is matched by errors returned when another build holds the lock.
var ErrInProgress = errors.New("build already in progress")

// InProgressError reports a fresh lock held by another build.
type InProgressError struct {
	StartedAt time.Time
	Age       time.Duration
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("build already in progress, started %d minutes ago", int(e.Age.Minutes()))
}

// Is makes errors.Is(err, ErrInProgress) true.
func (e *InProgressError) Is(target error) bool {
	return target == ErrInProgress
}

// Records is the persistence the coordinator needs.
type Records interface {
	ReadLock(ctx context.Context, site media.Site) (*indexstore.Lock, error)
	WriteLock(ctx context.Context, site media.Site, lock indexstore.Lock) error
	DeleteLock(ctx context.Context, site media.Site) error
}

// Coordinator acquires and releases site locks.
type Coordinator struct {
	records    Records
	logger     *zap.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewCoordinator creates a coordinator over records.
func NewCoordinator(records Records, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		records:    records,
		logger:     logger.Named("lock"),
		staleAfter: StaleAfter,
		now:        time.Now,
	}
}

// Handle is a held lock.
type Handle struct {
	c         *Coordinator
	site      media.Site
	Owner     string
	StartedAt time.Time
}

// Acquire takes the lock of site. It fails with an *InProgressError while a
// fresh lock is held and replaces absent, released or stale records.
func (c *Coordinator) Acquire(ctx context.Context, site media.Site) (*Handle, error) {
	now := c.now()
	log := c.logger.With(zap.String("site", site.ID))

	current, err := c.records.ReadLock(ctx, site)
	switch {
	case err == nil && current.Locked:
		startedAt := time.UnixMilli(current.Timestamp)
		age := now.Sub(startedAt)
		if age < c.staleAfter {
			metrics.LockContention.Inc()
			return nil, &InProgressError{StartedAt: startedAt, Age: age}
		}
		metrics.StaleLocksCleared.Inc()
		log.Warn("Clearing stale build lock",
			zap.String("owner", current.Owner),
			zap.Duration("age", age),
		)
	case err != nil && !indexstore.IsNotFound(err):
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}

	h := &Handle{c: c, site: site, Owner: uuid.NewString(), StartedAt: now}
	record := indexstore.Lock{Timestamp: now.UnixMilli(), Locked: true, Owner: h.Owner}
	if err := c.records.WriteLock(ctx, site, record); err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	log.Debug("Lock acquired", zap.String("owner", h.Owner))
	return h, nil
}

// Release deletes the lock record. It runs even when ctx is already
// cancelled. A record now owned by another build is left in place.
func (h *Handle) Release(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	log := h.c.logger.With(zap.String("site", h.site.ID), zap.String("owner", h.Owner))

	current, err := h.c.records.ReadLock(ctx, h.site)
	switch {
	case indexstore.IsNotFound(err):
		return nil
	case err == nil && current.Owner != "" && current.Owner != h.Owner:
		log.Warn("Lock taken over by another build, leaving it in place", zap.String("holder", current.Owner))
		return nil
	}

	if err := h.c.records.DeleteLock(ctx, h.site); err != nil {
		log.Error("Failed to release lock", zap.Error(err))
		return fmt.Errorf("failed to release lock: %w", err)
	}
	log.Debug("Lock released")
	return nil
}
