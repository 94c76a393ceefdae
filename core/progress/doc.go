// Package progress carries build progress to the caller.
//
// A Reporter emits coarse stage events and, when the caller asked for them,
// deduplicated snapshots of the rows discovered so far. Snapshots only affect
// what a consumer can show early; the final result never depends on them.
package progress
