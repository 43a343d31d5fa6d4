// internal/adapter/storage/history.go

// Package storage archives terminal lifecycle outcomes to Postgres.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"spotshare/internal/domain/spot"
)

// HistoryStore appends terminal lifecycle outcomes to the spot_history table.
// The live store stays in memory; this is an append-only record consumed by
// analytics and user history views.
//
//	CREATE TABLE spot_history (
//	    spot_id     TEXT        NOT NULL,
//	    owner_id    TEXT        NOT NULL,
//	    outcome     TEXT        NOT NULL,
//	    claimant_id TEXT,
//	    successful  BOOLEAN,
//	    reason      TEXT,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
type HistoryStore struct {
	db *pgxpool.Pool
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{db: db}
}

// Handle implements event.Handler, recording confirm, report and expiry
// outcomes; publish and claim are transient states and are not archived.
func (h *HistoryStore) Handle(ctx context.Context, ev spot.Event) error {
	query := `
		INSERT INTO spot_history (
			spot_id, owner_id, outcome, claimant_id, successful, reason, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	switch e := ev.(type) {
	case spot.Confirmed:
		_, err := h.db.Exec(ctx, query,
			e.SpotID, e.OwnerID, string(e.Kind()), e.ClaimantID, e.Successful, nil, e.At)
		if err != nil {
			return fmt.Errorf("error archiving confirm outcome: %w", err)
		}

	case spot.Reported:
		_, err := h.db.Exec(ctx, query,
			e.SpotID, e.OwnerID, string(e.Kind()), nil, nil, e.Reason, e.At)
		if err != nil {
			return fmt.Errorf("error archiving report outcome: %w", err)
		}

	case spot.Expired:
		_, err := h.db.Exec(ctx, query,
			e.SpotID, e.OwnerID, string(e.Kind()), nil, nil, nil, e.At)
		if err != nil {
			return fmt.Errorf("error archiving expiry outcome: %w", err)
		}
	}

	return nil
}

// RecentOutcomes returns the most recent archived outcomes for a user
func (h *HistoryStore) RecentOutcomes(ctx context.Context, ownerID string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT spot_id, owner_id, outcome, claimant_id, successful, reason, occurred_at
		FROM spot_history
		WHERE owner_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := h.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(
			&o.SpotID, &o.OwnerID, &o.Outcome, &o.ClaimantID, &o.Successful, &o.Reason, &o.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return outcomes, nil
}
