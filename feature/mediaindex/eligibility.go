package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-index/core/indexstore"
	"media-index/core/media"
	"media-index/core/reconcile"
)

// DriftTolerance is the largest gap between the stored watermark and the
// modification time of the persisted index that still allows an incremental
// build. A larger gap means something else wrote the index.
const DriftTolerance = 120 * time.Second

// ErrNoWatermark is returned when an incremental build is required but the
// site metadata carries no lastFetchTime.
var ErrNoWatermark = errors.New("index metadata has no lastFetchTime, run a full build first")

// Decision is the outcome of the eligibility gate.
type Decision struct {
	Mode reconcile.Mode
	// Reason explains a full build.
	Reason string
	// Since is the watermark an incremental build streams from.
	Since int64
}

func full(reason string) Decision {
	return Decision{Mode: reconcile.ModeFull, Reason: reason}
}

// Decide picks the build mode of site. Any failed precondition yields a full
// build, except a missing watermark when requireIncremental is set.
func Decide(ctx context.Context, store indexstore.Store, site media.Site, requireIncremental bool) (Decision, error) {
	meta, err := store.LoadMeta(ctx, site)
	switch {
	case indexstore.IsNotFound(err):
		if requireIncremental {
			return Decision{}, ErrNoWatermark
		}
		return full("no index metadata"), nil
	case err != nil:
		return Decision{}, fmt.Errorf("failed to load index metadata: %w", err)
	case meta.LastFetchTime <= 0:
		if requireIncremental {
			return Decision{}, ErrNoWatermark
		}
		return full("index metadata has no lastFetchTime"), nil
	}

	modified, err := store.LastModified(ctx, site)
	switch {
	case indexstore.IsNotFound(err):
		return full("persisted index not found"), nil
	case err != nil, modified.IsZero():
		return full("index modification time unknown"), nil
	}

	drift := time.Duration(abs(meta.LastFetchTime-modified.UnixMilli())) * time.Millisecond
	if drift > DriftTolerance {
		return full(fmt.Sprintf("index modified %s away from lastFetchTime", drift.Round(time.Second))), nil
	}

	return Decision{Mode: reconcile.ModeIncremental, Since: meta.LastFetchTime}, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
