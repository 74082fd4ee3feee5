package trip

import (
	"errors"
	"strings"
)

// Status is a trip status as stored in the `trips` table.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusLoading    Status = "loading"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid trip status")

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed trip status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusLoading, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Next returns the immediate successor in the linear lifecycle.
// The second return is false for terminal states and cancelled.
func (status Status) Next() (Status, bool) {
	switch status {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusLoading, true
	case StatusLoading:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// CanTransitionTo specifies if the status can transition to the next status.
// The lifecycle is strictly linear; cancellation is only reachable early.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusAccepted || next == StatusCancelled

	case StatusAccepted:
		return next == StatusLoading || next == StatusCancelled

	case StatusLoading:
		return next == StatusInProgress

	case StatusInProgress:
		return next == StatusCompleted

	case StatusCompleted, StatusCancelled:
		return false

	default:
		return false
	}
}

// Terminal indicates if the status is in a terminal state.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Active indicates a trip a driver is currently working on.
func (status Status) Active() bool {
	return status == StatusAccepted || status == StatusLoading || status == StatusInProgress
}

// Cancellable indicates whether a trip in this status may still be cancelled.
func (status Status) Cancellable() bool {
	return status == StatusPending || status == StatusAccepted
}
