// Package mediaindex is the entry point for building and querying the media
// usage index of a site.
//
// An Indexer owns everything one process needs for that: the persistence
// store, the log source, the reconciliation engine, the lock coordinator and
// a per-site cache of loaded indexes. Create it with New and stop it with
// Close, which waits for running builds.
//
// # Building
//
// BuildIndex runs one build under the site lock:
//
//  1. Acquire the lock; a fresh lock held elsewhere fails with lock.ErrInProgress.
//  2. Decide the mode. Incremental builds need a stored lastFetchTime within
//     DriftTolerance of the index modification time; anything else is full.
//  3. Stream both logs concurrently into a reconcile.Fold.
//  4. Reconcile, resolving linked content for the touched pages.
//  5. Save the tables and metadata unless an incremental pass changed nothing.
//  6. Release the lock.
//
// # HTTP API
//
//   - POST /index/:org/:repo/build?mode=auto|full|incremental
//   - GET  /index/:org/:repo/media?hash=&doc=&status=&type=&orphans=
//   - GET  /index/:org/:repo/usage?page=
//   - GET  /index/:org/:repo/where?hash=
//   - GET  /index/:org/:repo/status
package mediaindex
