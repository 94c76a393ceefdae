package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"media-index/core/indexstore"
	"media-index/core/lock"
	"media-index/core/media"
	"media-index/core/progress"
	"media-index/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, ix *Indexer, opts BuildOptions) (*Result, error) {
	t.Helper()
	return ix.BuildIndex(context.Background(), "", testSite.Org, testSite.Repo, testSite.Ref, nil, nil, opts)
}

func TestBuildIndex_Full(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	var (
		mu        sync.Mutex
		events    []progress.Event
		snapshots [][]media.Entry
	)
	onProgress := func(ev progress.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	onData := func(entries []media.Entry) {
		mu.Lock()
		snapshots = append(snapshots, entries)
		mu.Unlock()
	}

	res, err := ix.BuildIndex(context.Background(), "", "org", "repo", "main", onProgress, onData, BuildOptions{RefreshedBy: "test"})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ModeFull, res.Mode)
	assert.Equal(t, "no index metadata", res.Reason)
	assert.True(t, res.HasChanges)
	require.Len(t, res.Entries, 1)
	got := res.Entries[0]
	assert.Equal(t, "h1", got.Hash)
	assert.Equal(t, "/a", got.Doc)
	assert.Equal(t, media.StatusReferenced, got.Status)
	assert.Equal(t, int64(100), got.Timestamp)

	// Persisted with metadata and the lock released.
	assert.Equal(t, 1, store.saves)
	meta := store.meta[testSite.ID]
	assert.Equal(t, "full", meta.LastBuildMode)
	assert.Equal(t, "test", meta.LastRefreshBy)
	assert.Equal(t, 1, meta.EntriesCount)
	assert.Positive(t, meta.LastFetchTime)
	assert.Zero(t, store.lockCount())

	// Progress runs from start to completion.
	require.NotEmpty(t, events)
	assert.Equal(t, progress.StageStarting, events[0].Stage)
	last := events[len(events)-1]
	assert.Equal(t, progress.StageComplete, last.Stage)
	assert.Equal(t, 100, last.Percent)
	stages := map[progress.Stage]bool{}
	for _, ev := range events {
		stages[ev.Stage] = true
	}
	for _, s := range []progress.Stage{progress.StageLoading, progress.StageFetching, progress.StageProcessing, progress.StageSaving} {
		assert.True(t, stages[s], "missing stage %s", s)
	}

	// Live snapshots show the session before linked content is resolved.
	require.NotEmpty(t, snapshots)
	final := snapshots[len(snapshots)-1]
	require.Len(t, final, 1)
	assert.Equal(t, "h1|/a", final[0].Key())
}

func TestBuildIndex_FullSnapshotsBackOff(t *testing.T) {
	store := newMemStore()
	source := &logSource{mediaPageSize: 1}
	for i := 0; i < 20; i++ {
		source.add(fmt.Sprintf("/p%02d", i), fmt.Sprintf("h%02d", i), int64(100+i))
	}
	ix := newTestIndexer(t, store, source)

	var (
		mu    sync.Mutex
		sizes []int
	)
	onData := func(entries []media.Entry) {
		mu.Lock()
		sizes = append(sizes, len(entries))
		mu.Unlock()
	}

	_, err := ix.BuildIndex(context.Background(), "", "org", "repo", "main", nil, onData, BuildOptions{})
	require.NoError(t, err)

	// Media pages 1, 2, 4, 8 and 16, then the final page.
	assert.Equal(t, []int{1, 2, 4, 8, 16, 20}, sizes)
}

func TestBuildIndex_IncrementalShortCircuit(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	_, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)

	res, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeIncremental, res.Mode)
	assert.False(t, res.HasChanges)
	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 1, store.saves, "unchanged index must not be written")
	assert.Zero(t, store.lockCount())
}

func TestBuildIndex_IncrementalChanges(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	_, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)

	later := time.Now().Add(time.Minute).UnixMilli()
	source.add("/b", "h2", later)

	res, err := build(t, ix, BuildOptions{RefreshedBy: "cron"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeIncremental, res.Mode)
	assert.True(t, res.HasChanges)

	keys := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []string{"h1|/a", "h2|/b"}, keys)
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, "incremental", store.meta[testSite.ID].LastBuildMode)
	assert.Equal(t, "cron", store.meta[testSite.ID].LastRefreshBy)
}

func TestBuildIndex_DriftFallsBackToFull(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	_, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)

	// Someone else rewrote the index ten minutes after our watermark.
	store.modified[testSite.ID] = time.UnixMilli(store.meta[testSite.ID].LastFetchTime).Add(10 * time.Minute)

	res, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeFull, res.Mode)
	assert.Contains(t, res.Reason, "away from lastFetchTime")
}

func TestBuildIndex_ForceFull(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	_, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)

	res, err := build(t, ix, BuildOptions{ForceFull: true})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeFull, res.Mode)
	assert.True(t, res.HasChanges)
	assert.Equal(t, 2, store.saves)
}

func TestBuildIndex_LockHeld(t *testing.T) {
	store := newMemStore()
	store.locks[testSite.ID] = lockRecord(time.Now().Add(-5*time.Minute), "other")
	ix := newTestIndexer(t, store, &logSource{})

	_, err := build(t, ix, BuildOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, lock.ErrInProgress)
	assert.Contains(t, err.Error(), "started 5 minutes ago")
	assert.Zero(t, store.saves)
	assert.Equal(t, "other", store.locks[testSite.ID].Owner)
}

func TestBuildIndex_StaleLock(t *testing.T) {
	store := newMemStore()
	store.locks[testSite.ID] = lockRecord(time.Now().Add(-45*time.Minute), "crashed")
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	_, err := build(t, ix, BuildOptions{})
	require.NoError(t, err)
	assert.Zero(t, store.lockCount())
}

func TestBuildIndex_ReleasesLockOnFailure(t *testing.T) {
	t.Run("Fetch failure", func(t *testing.T) {
		store := newMemStore()
		source := &logSource{err: errors.New("log service unavailable")}
		ix := newTestIndexer(t, store, source)

		_, err := build(t, ix, BuildOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch logs")
		assert.Zero(t, store.lockCount())
	})

	t.Run("Save failure", func(t *testing.T) {
		store := newMemStore()
		store.saveErr = errors.New("bucket read-only")
		source := &logSource{}
		source.add("/a", "h1", 100)
		ix := newTestIndexer(t, store, source)

		_, err := build(t, ix, BuildOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket read-only")
		assert.Zero(t, store.lockCount())
	})

	t.Run("Missing watermark", func(t *testing.T) {
		store := newMemStore()
		ix := newTestIndexer(t, store, &logSource{})

		_, err := build(t, ix, BuildOptions{RequireIncremental: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoWatermark)
		assert.True(t, IsConfigurationError(err))
		assert.Zero(t, store.lockCount())
	})

	t.Run("Cancelled context", func(t *testing.T) {
		store := newMemStore()
		source := &logSource{}
		source.add("/a", "h1", 100)
		ix := newTestIndexer(t, store, source)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ix.BuildIndex(ctx, "", "org", "repo", "main", nil, nil, BuildOptions{})
		require.Error(t, err)
		assert.Zero(t, store.lockCount())
	})
}

func TestBuildIndex_SiteID(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	ix := newTestIndexer(t, store, source)

	res, err := ix.BuildIndex(context.Background(), "custom-id", "org", "repo", "", nil, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "custom-id", res.Site.ID)
	assert.Equal(t, media.DefaultRef, res.Site.Ref)
	assert.Contains(t, store.entries, "custom-id")
}

func TestIndexer_Close(t *testing.T) {
	ix := newTestIndexer(t, newMemStore(), &logSource{})
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())

	_, err := build(t, ix, BuildOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestIndexer_ViewCache(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)

	builder := newTestIndexer(t, store, source)
	_, err := build(t, builder, BuildOptions{})
	require.NoError(t, err)

	// The builder serves its own result without reading the store.
	_, err = builder.Media(context.Background(), testSite, MediaFilter{})
	require.NoError(t, err)
	assert.Zero(t, store.loads)

	// A fresh indexer loads once and then serves from memory.
	reader := newTestIndexer(t, store, source)
	for i := 0; i < 3; i++ {
		_, err := reader.WhereUsed(context.Background(), testSite, "h1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.loads)

	// Expired views are reloaded.
	now := time.Now()
	reader.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = reader.Usage(context.Background(), testSite, "/a")
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
}

func TestIndexer_ViewNotFound(t *testing.T) {
	ix := newTestIndexer(t, newMemStore(), &logSource{})
	_, err := ix.View(context.Background(), testSite)
	assert.True(t, indexstore.IsNotFound(err))
}

func lockRecord(at time.Time, owner string) indexstore.Lock {
	return indexstore.Lock{Timestamp: at.UnixMilli(), Locked: true, Owner: owner}
}
