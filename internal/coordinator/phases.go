package coordinator

import (
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/stage"
)

// Handlers carries the three pipeline phase implementations in execution
// order.
type Handlers struct {
	Hero    stage.Handler
	Overlay stage.Handler
	Notify  stage.Handler
}

// phase binds a handler to the lifecycle statuses the coordinator moves
// items through.
type phase struct {
	handler    stage.Handler
	processing docstore.Status
	failure    docstore.Status
	// success fills in the forward transition and any phase-specific
	// bookkeeping on the release patch.
	success func(patch *docstore.Patch, now time.Time)
	// fail adds phase-specific bookkeeping to the failure patch.
	fail func(patch *docstore.Patch)
}

func buildPhases(h Handlers) []phase {
	return []phase{
		{
			handler:    h.Hero,
			processing: docstore.StatusProcessingHero,
			failure:    docstore.StatusErrorHero,
			success: func(patch *docstore.Patch, now time.Time) {
				status := docstore.StatusAwaitingScore
				patch.Status = &status
				patch.ScoreWaitSince = &now
			},
		},
		{
			handler:    h.Overlay,
			processing: docstore.StatusProcessingOverlay,
			failure:    docstore.StatusErrorOverlay,
			success: func(patch *docstore.Patch, _ time.Time) {
				status := docstore.StatusReadyForNotify
				patch.Status = &status
			},
		},
		{
			handler:    h.Notify,
			processing: docstore.StatusProcessingNotify,
			failure:    docstore.StatusErrorNotify,
			success: func(patch *docstore.Patch, _ time.Time) {
				status := docstore.StatusDone
				patch.Status = &status
				patch.Notification = &docstore.NotificationFlags{Sent: true}
			},
			fail: func(patch *docstore.Patch) {
				patch.Notification = &docstore.NotificationFlags{Failed: true}
			},
		},
	}
}

// failurePatch builds the sticky error transition for a phase.
func (p phase) failurePatch(message string) docstore.Patch {
	status := p.failure
	patch := docstore.Patch{
		Status: &status,
		Error: &docstore.ErrorInfo{
			Phase:   p.handler.Name(),
			Message: message,
		},
	}
	if p.fail != nil {
		p.fail(&patch)
	}
	return patch
}

// successPatch builds the forward transition carrying the phase outputs.
func (p phase) successPatch(result stage.Result, now time.Time) docstore.Patch {
	patch := docstore.Patch{
		Outputs: result.Outputs,
		Metrics: result.Metrics,
	}
	p.success(&patch, now)
	return patch
}
