package linked

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media-index/core/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu       sync.Mutex
	sources  map[string]string
	calls    map[string]int
	inFlight int32
	peak     int32
	delay    time.Duration
}

func newFakeFetcher(sources map[string]string) *fakeFetcher {
	return &fakeFetcher{sources: sources, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchSource(ctx context.Context, site media.Site, page string) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[page]++
	f.mu.Unlock()

	src, ok := f.sources[page]
	if !ok {
		return "", errors.New("not found")
	}
	return src, nil
}

func TestBuildUsageMap(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"/a": "[doc](/files/a.pdf) ![](/img/x.svg) [frag](/fragments/f1) https://youtu.be/xyz",
		"/b": "[doc](/files/a.pdf) :star: https://youtu.be/xyz",
	})
	r := NewResolver(Config{Concurrency: 2}, fetcher, media.DefaultFolders(), zap.NewNop())

	var progress []int
	usage, err := r.BuildUsageMap(context.Background(), testSite, []PageRef{
		{Path: "/a", Timestamp: 10},
		{Path: "/b.md", Timestamp: 20},
		{Path: "/a", Timestamp: 30},
		{Path: "/missing", Timestamp: 40},
	}, func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, 1, fetcher.calls["/a"])

	assert.Equal(t, []string{"/a", "/b"}, usage.PDFs["/files/a.pdf"])
	assert.Equal(t, []string{"/a"}, usage.SVGs["/img/x.svg"])
	assert.Equal(t, []string{"/b"}, usage.SVGs["/icons/star.svg"])
	assert.Equal(t, []string{"/a"}, usage.Fragments["/fragments/f1"])

	yt := usage.External["https://youtu.be/xyz"]
	require.NotNil(t, yt)
	assert.Equal(t, media.TypeVideo, yt.Type)
	assert.Equal(t, []string{"/a", "/b"}, yt.Pages)
	assert.Equal(t, int64(30), yt.LastSeen)
}

func TestBuildUsageMap_BoundedConcurrency(t *testing.T) {
	sources := make(map[string]string)
	var pages []PageRef
	for i := 0; i < 20; i++ {
		p := fmt.Sprintf("/p%d", i)
		sources[p] = ""
		pages = append(pages, PageRef{Path: p})
	}
	fetcher := newFakeFetcher(sources)
	fetcher.delay = 5 * time.Millisecond

	r := NewResolver(Config{Concurrency: 3}, fetcher, media.DefaultFolders(), nil)
	_, err := r.BuildUsageMap(context.Background(), testSite, pages, nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.peak), int32(3))
}

func TestBuildUsageMap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(Config{}, newFakeFetcher(nil), media.DefaultFolders(), nil)
	_, err := r.BuildUsageMap(ctx, testSite, []PageRef{{Path: "/a"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupPages(t *testing.T) {
	got := DedupPages([]PageRef{
		{Path: "/index.md", Timestamp: 1},
		{Path: "/", Timestamp: 5},
		{Path: "", Timestamp: 9},
		{Path: "/a?x=1", Timestamp: 2},
	})
	assert.Equal(t, []PageRef{{Path: "/", Timestamp: 5}, {Path: "/a", Timestamp: 2}}, got)
}
