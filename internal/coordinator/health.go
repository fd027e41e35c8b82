package coordinator

import (
	"context"

	"powerplay/internal/docstore"
	"powerplay/internal/stage"
)

// Health reports per-phase readiness plus the store's item census.
type Health struct {
	Phases []stage.Health
	Items  docstore.HealthSummary
}

// Ready reports whether every phase can run.
func (h Health) Ready() bool {
	for _, ph := range h.Phases {
		if !ph.Ready {
			return false
		}
	}
	return true
}

// Health checks each phase handler and counts items by lifecycle state.
func (c *Coordinator) Health(ctx context.Context) (Health, error) {
	summary, err := c.store.Health(ctx)
	if err != nil {
		return Health{}, err
	}
	health := Health{Items: summary}
	for _, ph := range c.phases {
		health.Phases = append(health.Phases, ph.handler.HealthCheck(ctx))
	}
	return health, nil
}
