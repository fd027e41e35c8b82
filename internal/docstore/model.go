package docstore

import (
	"strings"
	"time"
)

// Status represents the coarse lifecycle position of a work item.
type Status string

const (
	StatusUnclaimed         Status = "unclaimed"
	StatusProcessingHero    Status = "processing_hero"
	StatusAwaitingScore     Status = "awaiting_score"
	StatusProcessingOverlay Status = "processing_overlay"
	StatusReadyForNotify    Status = "ready_for_notify"
	StatusProcessingNotify  Status = "processing_notify"
	StatusDone              Status = "done"

	StatusErrorHero    Status = "error_hero"
	StatusErrorOverlay Status = "error_overlay"
	StatusErrorNotify  Status = "error_notify"
)

var forwardOrder = []Status{
	StatusUnclaimed,
	StatusProcessingHero,
	StatusAwaitingScore,
	StatusProcessingOverlay,
	StatusReadyForNotify,
	StatusProcessingNotify,
	StatusDone,
}

var statusRank = func() map[Status]int {
	ranks := make(map[Status]int, len(forwardOrder))
	for i, status := range forwardOrder {
		ranks[status] = i
	}
	return ranks
}()

// errorRollback maps sticky error states to the rest state an operator
// clear returns the item to.
var errorRollback = map[Status]Status{
	StatusErrorHero:    StatusUnclaimed,
	StatusErrorOverlay: StatusAwaitingScore,
	StatusErrorNotify:  StatusReadyForNotify,
}

var allStatuses = func() []Status {
	statuses := append([]Status{}, forwardOrder...)
	for errStatus := range errorRollback {
		statuses = append(statuses, errStatus)
	}
	return statuses
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, status := range allStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// Rank returns the forward-order position of a status. Error statuses rank
// alongside the processing status they branched from; unknown statuses rank
// before everything.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	switch s {
	case StatusErrorHero:
		return statusRank[StatusProcessingHero]
	case StatusErrorOverlay:
		return statusRank[StatusProcessingOverlay]
	case StatusErrorNotify:
		return statusRank[StatusProcessingNotify]
	default:
		return -1
	}
}

// IsError reports whether the status is a sticky per-phase failure state.
func (s Status) IsError() bool {
	_, ok := errorRollback[s]
	return ok
}

// IsTerminal reports whether no further phase will ever run without
// operator intervention.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s.IsError()
}

// RollbackStatus returns the rest state an operator clear moves an error
// status back to.
func (s Status) RollbackStatus() (Status, bool) {
	target, ok := errorRollback[s]
	return target, ok
}

// Output keys recorded in Item.Outputs, one per phase artifact.
const (
	OutputHero     = "hero"
	OutputCard     = "card"
	OutputVideo    = "video"
	OutputVideoRaw = "videoRaw"
)

// Lock is the time-bounded claim a worker holds on one phase of one item.
// Absent (nil) means unclaimed.
type Lock struct {
	Owner       string
	AcquiredAt  time.Time
	HeartbeatAt time.Time
}

// FreshAt returns the newer of the acquisition and heartbeat timestamps.
// Heartbeats keep a long-running claim alive without re-acquisition.
func (l *Lock) FreshAt() time.Time {
	if l == nil {
		return time.Time{}
	}
	if l.HeartbeatAt.After(l.AcquiredAt) {
		return l.HeartbeatAt
	}
	return l.AcquiredAt
}

// Expired reports whether the lock has gone ttl without a liveness signal.
func (l *Lock) Expired(ttl time.Duration, now time.Time) bool {
	if l == nil {
		return true
	}
	return now.Sub(l.FreshAt()) > ttl
}

// NotificationFlags records the terminal, sticky outcome of the notify phase.
type NotificationFlags struct {
	Sent   bool
	Failed bool
}

// Blocked reports whether the notify phase is permanently settled.
func (f NotificationFlags) Blocked() bool {
	return f.Sent || f.Failed
}

// ErrorInfo captures the phase and message of a terminal phase failure.
type ErrorInfo struct {
	Phase   string
	Message string
}

// Inputs are the immutable fields supplied when a work item is created.
type Inputs struct {
	PhotoRef        string
	PhotoUploadedAt *time.Time
	FirstName       string
	LastName        string
	Gender          string
	Email           string
}

// Item is one work record tracked through the pipeline. ID is the stable
// key, normally the player's email address.
type Item struct {
	ID     string
	Seq    int64
	Status Status
	Inputs Inputs

	// Score arrives from the kiosk after submission; nil until then.
	Score *int64
	// ScoreWaitSince anchors the awaiting_score timeout; stamped when the
	// hero phase completes.
	ScoreWaitSince *time.Time

	Outputs      map[string]string
	Metrics      map[string]int64
	Lock         *Lock
	Notification NotificationFlags
	Error        *ErrorInfo

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Output returns the recorded artifact reference for a phase output key.
func (i *Item) Output(key string) string {
	if i == nil || i.Outputs == nil {
		return ""
	}
	return i.Outputs[key]
}

// IsProcessing reports whether some phase is recorded as in flight.
func (i *Item) IsProcessing() bool {
	switch i.Status {
	case StatusProcessingHero, StatusProcessingOverlay, StatusProcessingNotify:
		return true
	default:
		return false
	}
}

// HealthSummary aggregates item counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Unclaimed  int
	Processing int
	Waiting    int
	Done       int
	Failed     int
}
