package postgres

import (
	"context"
	"errors"
	"fmt"

	"fletea/internal/domain/rating"
	"fletea/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// RatingRepo persists trip ratings using pgx and plain SQL.
type RatingRepo struct{}

// NewRatingRepo constructs a new RatingRepo.
func NewRatingRepo() ports.RatingRepository {
	return &RatingRepo{}
}

// Create inserts a rating. The unique index on (trip_id, reviewer_id) makes
// the operation one-shot per reviewer; a duplicate surfaces as
// rating.ErrAlreadyRated.
func (repo *RatingRepo) Create(ctx context.Context, r *rating.Rating) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ratings (id, trip_id, reviewer_id, reviewee_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.TripID, r.ReviewerID, r.RevieweeID, r.Score, r.Comment, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return rating.ErrAlreadyRated
		}
		return err
	}
	return nil
}

// ListByTrip fetches the ratings recorded for a trip, oldest first.
func (repo *RatingRepo) ListByTrip(ctx context.Context, tripID string) ([]*rating.Rating, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, trip_id, reviewer_id, reviewee_id, score, comment, created_at
		FROM ratings
		WHERE trip_id = $1
		ORDER BY created_at ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var out []*rating.Rating
	for rows.Next() {
		var r rating.Rating
		if err := rows.Scan(&r.ID, &r.TripID, &r.ReviewerID, &r.RevieweeID, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// SummaryForDriver aggregates the scores a driver has received.
func (repo *RatingRepo) SummaryForDriver(ctx context.Context, driverID string) (*rating.Summary, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out := rating.Summary{DriverID: driverID}
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(AVG(score), 0), COUNT(*)
		FROM ratings
		WHERE reviewee_id = $1
	`, driverID).Scan(&out.Average, &out.Count)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
