// internal/domain/spot/engine.go

package spot

import (
	"context"
	"time"
)

// Store is the authoritative collection of live spots. Every state
// transition goes through Mutate, which is what makes claim arbitration
// well-defined: for a single spot all mutations are strictly serialized.
type Store interface {
	// Insert adds a new record, failing with ErrDuplicateID if the id exists
	Insert(s Spot) error

	// Get returns a snapshot copy of a record or ErrNotFound
	Get(id string) (Spot, error)

	// Mutate applies fn to the current record under exclusive access. If fn
	// returns an error nothing is written and the error is propagated
	// unchanged. Returns the new state on success.
	Mutate(id string, fn func(Spot) (Spot, error)) (Spot, error)

	// Remove deletes a record; removing an absent id is a no-op
	Remove(id string)

	// All returns a consistent snapshot of every record
	All() []Spot
}

// Engine owns the spot state machine and its lifecycle operations
type Engine interface {
	// Publish creates a new available spot owned by ownerID
	Publish(ctx context.Context, ownerID string, draft Draft) (Spot, error)

	// Claim reserves an available spot for claimantID
	Claim(ctx context.Context, spotID, claimantID string) (Spot, error)

	// Confirm records whether occupying a claimed spot succeeded; a failed
	// confirmation releases the spot back to available
	Confirm(ctx context.Context, spotID, claimantID string, successful bool, feedback string) (Spot, error)

	// Report flags a spot as not actually free
	Report(ctx context.Context, spotID, reporterID, reason, comment string) (Spot, error)

	// Cancel removes a still-available spot; owner only
	Cancel(ctx context.Context, spotID, ownerID string) error

	// Get returns a snapshot of a spot by id
	Get(ctx context.Context, spotID string) (Spot, error)
}

// Filter defines criteria for a proximity query
type Filter struct {
	RadiusMeters   float64
	MaxAge         time.Duration
	Statuses       []Status
	IncludePaid    bool
	SizePreference Size
	MaxPrice       float64
}

// Match is one proximity query result. Distance and score are computed per
// query relative to the caller's center point and never persisted.
type Match struct {
	Spot           Spot    `json:"spot"`
	DistanceMeters float64 `json:"distance_meters"`
	Score          float64 `json:"score"`
}

// Matcher answers read-only "what spots are near me" queries
type Matcher interface {
	// Query returns matching spots ranked by a combined distance/freshness
	// score. An empty result is not an error.
	Query(ctx context.Context, center Location, filter Filter) ([]Match, error)
}
