package stage

import (
	"context"

	"powerplay/internal/docstore"
)

// Result carries the artifacts and timings a phase produced. Outputs merge
// into the work item append-only; metrics are per-phase wall clock values.
type Result struct {
	Outputs map[string]string
	Metrics map[string]int64
}

// Handler describes the contract the coordinator needs from each phase.
type Handler interface {
	// Name identifies the phase in logs and error records.
	Name() string
	// Ready reports whether the item is eligible for this phase. It runs
	// both outside the claim as a cheap filter and inside the claim
	// transaction as the authoritative check.
	Ready(item *docstore.Item) bool
	// Execute performs the phase work. Partial outputs in the result are
	// persisted even when Execute returns an error.
	Execute(ctx context.Context, item *docstore.Item) (Result, error)
	HealthCheck(ctx context.Context) Health
}
