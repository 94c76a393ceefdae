package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"media-index/core/indexstore"
	"media-index/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSite = media.NewSite("org", "repo", "main")

type memoryRecords struct {
	mu        sync.Mutex
	locks     map[string]indexstore.Lock
	readErr   error
	writeErr  error
	deleteErr error
	deletes   int
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{locks: map[string]indexstore.Lock{}}
}

func (m *memoryRecords) ReadLock(_ context.Context, site media.Site) (*indexstore.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	l, ok := m.locks[site.ID]
	if !ok {
		return nil, indexstore.ErrNotFound
	}
	return &l, nil
}

func (m *memoryRecords) WriteLock(_ context.Context, site media.Site, lock indexstore.Lock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.locks[site.ID] = lock
	return nil
}

func (m *memoryRecords) DeleteLock(_ context.Context, site media.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.locks, site.ID)
	return nil
}

func newTestCoordinator(records Records, now time.Time) *Coordinator {
	c := NewCoordinator(records, zap.NewNop())
	c.now = func() time.Time { return now }
	return c
}

func TestAcquireRelease(t *testing.T) {
	records := newMemoryRecords()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCoordinator(records, now)
	ctx := context.Background()

	h, err := c.Acquire(ctx, testSite)
	require.NoError(t, err)
	assert.NotEmpty(t, h.Owner)

	stored := records.locks[testSite.ID]
	assert.True(t, stored.Locked)
	assert.Equal(t, now.UnixMilli(), stored.Timestamp)
	assert.Equal(t, h.Owner, stored.Owner)

	require.NoError(t, h.Release(ctx))
	assert.Empty(t, records.locks)

	// Released locks can be acquired again.
	h2, err := c.Acquire(ctx, testSite)
	require.NoError(t, err)
	assert.NotEqual(t, h.Owner, h2.Owner)
}

func TestAcquire_InProgress(t *testing.T) {
	records := newMemoryRecords()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records.locks[testSite.ID] = indexstore.Lock{
		Timestamp: now.Add(-12 * time.Minute).UnixMilli(),
		Locked:    true,
		Owner:     "other",
	}
	c := newTestCoordinator(records, now)

	_, err := c.Acquire(context.Background(), testSite)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInProgress)
	assert.EqualError(t, err, "build already in progress, started 12 minutes ago")

	var inProgress *InProgressError
	require.True(t, errors.As(err, &inProgress))
	assert.Equal(t, 12*time.Minute, inProgress.Age)
	assert.Equal(t, "other", records.locks[testSite.ID].Owner)
}

func TestAcquire_Stale(t *testing.T) {
	records := newMemoryRecords()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records.locks[testSite.ID] = indexstore.Lock{
		Timestamp: now.Add(-31 * time.Minute).UnixMilli(),
		Locked:    true,
		Owner:     "crashed",
	}
	c := newTestCoordinator(records, now)

	h, err := c.Acquire(context.Background(), testSite)
	require.NoError(t, err)
	assert.Equal(t, h.Owner, records.locks[testSite.ID].Owner)
	assert.Equal(t, now.UnixMilli(), records.locks[testSite.ID].Timestamp)
}

func TestAcquire_Unlocked(t *testing.T) {
	records := newMemoryRecords()
	now := time.Now()
	records.locks[testSite.ID] = indexstore.Lock{Timestamp: now.UnixMilli(), Locked: false}
	c := newTestCoordinator(records, now)

	_, err := c.Acquire(context.Background(), testSite)
	assert.NoError(t, err)
}

func TestAcquire_Errors(t *testing.T) {
	t.Run("Read failure", func(t *testing.T) {
		records := newMemoryRecords()
		records.readErr = errors.New("timeout")
		_, err := newTestCoordinator(records, time.Now()).Acquire(context.Background(), testSite)
		assert.ErrorContains(t, err, "failed to read lock")
		assert.NotErrorIs(t, err, ErrInProgress)
	})

	t.Run("Write failure", func(t *testing.T) {
		records := newMemoryRecords()
		records.writeErr = errors.New("denied")
		_, err := newTestCoordinator(records, time.Now()).Acquire(context.Background(), testSite)
		assert.ErrorContains(t, err, "failed to acquire lock")
	})
}

func TestRelease(t *testing.T) {
	t.Run("Cancelled context still releases", func(t *testing.T) {
		records := newMemoryRecords()
		c := newTestCoordinator(records, time.Now())
		h, err := c.Acquire(context.Background(), testSite)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, h.Release(ctx))
		assert.Empty(t, records.locks)
	})

	t.Run("Lock taken over is kept", func(t *testing.T) {
		records := newMemoryRecords()
		c := newTestCoordinator(records, time.Now())
		h, err := c.Acquire(context.Background(), testSite)
		require.NoError(t, err)

		records.locks[testSite.ID] = indexstore.Lock{Timestamp: time.Now().UnixMilli(), Locked: true, Owner: "newer"}
		require.NoError(t, h.Release(context.Background()))
		assert.Equal(t, "newer", records.locks[testSite.ID].Owner)
		assert.Zero(t, records.deletes)
	})

	t.Run("Already gone", func(t *testing.T) {
		records := newMemoryRecords()
		c := newTestCoordinator(records, time.Now())
		h, err := c.Acquire(context.Background(), testSite)
		require.NoError(t, err)

		delete(records.locks, testSite.ID)
		assert.NoError(t, h.Release(context.Background()))
	})

	t.Run("Delete failure", func(t *testing.T) {
		records := newMemoryRecords()
		c := newTestCoordinator(records, time.Now())
		h, err := c.Acquire(context.Background(), testSite)
		require.NoError(t, err)

		records.deleteErr = errors.New("denied")
		assert.ErrorContains(t, h.Release(context.Background()), "failed to release lock")
	})
}
