// Package reconcile turns the two remote logs of a site into the flat media
// usage table: one row per (asset, referencing page) pair, plus one orphan row
// for assets no page references any more.
//
// # Architecture
//
// The reconcile system consists of three parts:
//
// 1. Fold: accumulates log pages as they stream in. Preview events become the
// latest state of each page or file; media events become per-page sessions
// (one session per render timestamp, a newer render replaces the older list),
// standalone uploads and explicitly removed hashes.
//
// 2. Table: the usage rows held in a slice with indexes by key, hash and doc.
// It enforces the orphan invariant: a hash has either referenced rows or a
// single row with an empty doc.
//
// 3. Engine: applies a fold to a table. A full build applies a fold of the
// complete logs to an empty table; an incremental build applies a fold of the
// entries newer than the watermark to the persisted table, re-evaluating only
// the pages the fold touched.
//
// # Orphans
//
// When a hash leaves its last page it becomes an orphan row stamped with the
// time of the event that removed it, unless the media log explicitly deleted
// the hash or the hash is an external URL. Full and incremental builds apply
// the same rule, so replaying a history in one pass or in several converges
// on the same table.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(cfg.Reconcile, resolver, log)
//	fold := reconcile.NewFold(engine.Folders(), 0)
//	_, err := logclient.FetchAll(ctx, client, site, 0, logclient.Callbacks{
//	    OnAudit: fold.AddAudit,
//	    OnMedia: fold.AddMedia,
//	})
//	result, err := engine.Full(ctx, site, fold, nil)
package reconcile
