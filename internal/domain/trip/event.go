package trip

import "time"

// Event is one row of the append-only trip audit trail.
type Event struct {
	ID        string
	TripID    string
	OldStatus Status
	NewStatus Status
	ActorID   string // rider or driver who caused the transition
	CreatedAt time.Time
}

// NewEvent records a status transition performed by actorID.
func NewEvent(tripID string, oldStatus, newStatus Status, actorID string) *Event {
	return &Event{
		TripID:    tripID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}
}
