package rating

import (
	"errors"
	"strings"
	"time"
)

// Rating is a one-time score one trip party gives the other after
// completion. The rider reviews the driver and the driver reviews the
// rider; each party rates a trip at most once.
type Rating struct {
	ID         string
	TripID     string
	ReviewerID string
	RevieweeID string
	Score      int
	Comment    string
	CreatedAt  time.Time
}

const (
	MinScore = 1
	MaxScore = 5
)

var (
	ErrScoreOutOfRange  = errors.New("score must be between 1 and 5")
	ErrTripRequired     = errors.New("trip id is required")
	ErrTripNotCompleted = errors.New("only completed trips can be rated")
	ErrAlreadyRated     = errors.New("trip already rated by this reviewer")
	ErrNotParticipant   = errors.New("only the trip's rider or driver can rate it")
)

// New validates and builds a rating. Comment is optional and trimmed.
func New(tripID, reviewerID, revieweeID string, score int, comment string) (*Rating, error) {
	if strings.TrimSpace(tripID) == "" {
		return nil, ErrTripRequired
	}
	if score < MinScore || score > MaxScore {
		return nil, ErrScoreOutOfRange
	}
	return &Rating{
		TripID:     tripID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Score:      score,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Summary is the aggregate a driver profile exposes.
type Summary struct {
	DriverID string  `json:"driver_id"`
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
}
