// Package logclient fetches the two append-only remote logs a media index is
// built from: the page preview/audit log and the media-operations log.
//
// # Pagination
//
// Each log is read page by page from GET /{log}/{org}/{repo}/{ref} while the
// response carries a nextToken. A failure on the first page is fatal; a failure
// on a later page ends the stream with what was already delivered.
//
// # Incremental Reads
//
// A non-zero watermark is turned into the coarse relative "since" parameter the
// endpoint understands (hours below one day, days capped at 90). Callers filter
// the returned entries by exact timestamp.
//
// # Usage
//
//	client := logclient.NewClient(cfg.Logs, log)
//	logs, err := logclient.FetchAll(ctx, client, site, 0, logclient.Callbacks{})
package logclient
