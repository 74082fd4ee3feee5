package postgres

import (
	"context"
	"fmt"

	"fletea/internal/domain/trip"
	"fletea/internal/ports"

	"github.com/google/uuid"
)

// TripEventRepo appends and reads the trip audit trail.
type TripEventRepo struct{}

// NewTripEventRepo constructs a new TripEventRepo.
func NewTripEventRepo() ports.TripEventRepository {
	return &TripEventRepo{}
}

// Append writes one audit row; must run inside a UnitOfWork.
func (repo *TripEventRepo) Append(ctx context.Context, e *trip.Event) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO trip_events (id, trip_id, old_status, new_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, e.ID, e.TripID, string(e.OldStatus), string(e.NewStatus), e.ActorID, e.CreatedAt)
	return err
}

// ListByTrip returns the audit trail for a trip, oldest first.
func (repo *TripEventRepo) ListByTrip(ctx context.Context, tripID string) ([]*trip.Event, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, trip_id, old_status, new_status, COALESCE(actor_id, ''), created_at
		FROM trip_events
		WHERE trip_id = $1
		ORDER BY created_at ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query trip events: %w", err)
	}
	defer rows.Close()

	var events []*trip.Event
	for rows.Next() {
		var e trip.Event
		var oldStatus, newStatus string
		if err := rows.Scan(&e.ID, &e.TripID, &oldStatus, &newStatus, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trip event: %w", err)
		}
		e.OldStatus = trip.Status(oldStatus)
		e.NewStatus = trip.Status(newStatus)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}
