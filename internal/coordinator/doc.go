// Package coordinator reacts to document store changes and drives work
// items through the pipeline phases.
//
// Each observed change dispatches at most one goroutine per item within a
// process; across processes, exclusion comes entirely from the lease
// protocol. A phase run is claim, execute under heartbeat, release. Locks
// are left in place on shutdown so another worker's TTL steal recovers the
// item. A periodic sweep re-dispatches unfinished items, which is how an
// expired score wait makes progress without any new writes.
package coordinator
