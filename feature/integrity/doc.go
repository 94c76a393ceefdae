// Package integrity validates the persisted media index.
//
// Builds keep the index consistent, but the stored tables can still drift:
// a bucket may be recreated, a SQL schema may predate a column, or rows may
// be edited by hand. This package reports those problems without changing
// any index data.
//
// # Checks Provided
//
//   - Storage: Checks that the index bucket exists and lists every site with a persisted index.
//   - Schema: Validates that the index tables carry the expected columns (SQL backend only).
//   - Index: Loads one site's index and verifies its invariants: unique hash|doc keys,
//     at most one orphan row per hash and none next to a referenced row, a usage table
//     that matches the media table, and metadata counters that match both.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks, including the index check of every stored site.
//   - GET /integrity/storage : Runs storage check (supports ?fix=true to create the bucket).
//   - GET /integrity/schema : Runs schema check.
//   - GET /integrity/index/:org/:repo : Runs index check for one site.
package integrity
