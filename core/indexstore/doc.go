// Package indexstore persists the media usage index of a site.
//
// An index consists of two tables, a metadata record and an advisory lock
// record:
//   - media: one row per (hash, doc) pair, orphan rows included
//   - usage: the reverse index, one row per page with its sorted hashes
//   - meta: watermark and counters written at the end of a successful build
//   - lock: the build lock, created before and deleted after each build
//
// # Backends
//
// ObjectStore keeps everything as JSON objects under {prefix}/{org}/{repo}/ in
// a storage bucket. The tables share one multi-sheet document whose usage
// cells carry the hash list as a JSON-encoded string. The document's
// last-modified time is the object's.
//
// SQLStore keeps the same data in the media_entries, usage_pages, index_meta
// and index_locks tables, keyed by site. Its last-modified time is the newest
// updated_at of the site's rows.
//
// Both backends report absent records as ErrNotFound.
package indexstore
