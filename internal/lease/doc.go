// Package lease implements the time-bounded claim protocol workers use to
// coordinate over shared work items.
//
// A lock is fresh while its newest liveness signal (acquisition or
// heartbeat) is within the TTL. Fresh foreign locks block claims; a lock
// silent past the TTL is presumed abandoned and may be stolen by any
// worker. Claims run as transactional read-check-writes, so concurrent
// claimers resolve to exactly one winner.
package lease
