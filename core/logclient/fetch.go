package logclient

import (
	"context"
	"sync"

	"media-index/core/media"

	"golang.org/x/sync/errgroup"
)

// Logs is the joined result of streaming both logs of a site.
type Logs struct {
	Audit []media.AuditEntry
	Media []media.MediaLogEntry
}

// Callbacks receive pages as they arrive. Calls are serialized across the two
// streams, so a consumer can fold them into unsynchronized state.
type Callbacks struct {
	OnAudit func([]media.AuditEntry)
	OnMedia func([]media.MediaLogEntry)
}

// FetchAll streams the audit and media logs concurrently and returns once both
// have completed. A fatal error on either stream cancels the other.
func FetchAll(ctx context.Context, src Source, site media.Site, since int64, cb Callbacks) (*Logs, error) {
	var (
		mu   sync.Mutex
		logs Logs
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return src.StreamAudit(gctx, site, since, func(entries []media.AuditEntry) {
			mu.Lock()
			defer mu.Unlock()
			logs.Audit = append(logs.Audit, entries...)
			if cb.OnAudit != nil {
				cb.OnAudit(entries)
			}
		})
	})

	g.Go(func() error {
		return src.StreamMedia(gctx, site, since, func(entries []media.MediaLogEntry) {
			mu.Lock()
			defer mu.Unlock()
			logs.Media = append(logs.Media, entries...)
			if cb.OnMedia != nil {
				cb.OnMedia(entries)
			}
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &logs, nil
}
