// Package lock implements the advisory per-site build lock.
//
// A lock is a single record {timestamp, locked, owner} kept next to the index.
// Acquire reads the record and refuses while a fresh lock is held; a record
// older than StaleAfter is replaced. Release deletes the record.
//
// The read and the write are separate calls, so two processes acquiring at
// the same instant can both succeed. The lock keeps concurrent builds apart
// in practice; it does not make them impossible.
//
// Usage:
//
//	h, err := coordinator.Acquire(ctx, site)
//	if err != nil {
//	    return err // errors.Is(err, lock.ErrInProgress) when another build runs
//	}
//	defer h.Release(ctx)
package lock
