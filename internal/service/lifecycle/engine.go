// internal/service/lifecycle/engine.go

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spotshare/internal/domain/spot"
	"spotshare/internal/event"
)

// EngineConfig contains configuration for the lifecycle engine
type EngineConfig struct {
	// ExpiryHorizon bounds how long a published spot may live. It is fixed
	// at publish time regardless of the owner's estimated duration.
	ExpiryHorizon time.Duration

	// RemovalGrace is how long a successfully occupied spot stays readable
	// before removal, so UI and chat can finish displaying the outcome.
	RemovalGrace time.Duration

	// MaxActiveSpots caps how many spots may be live at once. Zero means
	// unlimited.
	MaxActiveSpots int
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ExpiryHorizon: 60 * time.Minute,
		RemovalGrace:  2 * time.Minute,
	}
}

// Engine implements the spot.Engine interface. Every operation is one
// atomic store mutate, which is what serializes concurrent claims and the
// sweeper against each other.
type Engine struct {
	store  spot.Store
	bus    *event.Bus
	config EngineConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new lifecycle engine
func NewEngine(store spot.Store, bus *event.Bus, config EngineConfig) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	if config.ExpiryHorizon <= 0 {
		config.ExpiryHorizon = DefaultEngineConfig().ExpiryHorizon
	}
	if config.RemovalGrace <= 0 {
		config.RemovalGrace = DefaultEngineConfig().RemovalGrace
	}

	return &Engine{
		store:  store,
		bus:    bus,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish creates a new available spot owned by ownerID
func (e *Engine) Publish(ctx context.Context, ownerID string, draft spot.Draft) (spot.Spot, error) {
	if !draft.Location.Valid() {
		return spot.Spot{}, fmt.Errorf("latitude %f, longitude %f: %w",
			draft.Location.Latitude, draft.Location.Longitude, spot.ErrInvalidLocation)
	}

	// Soft cap: concurrent publishes can overshoot by the check-insert window.
	if e.config.MaxActiveSpots > 0 && len(e.store.All()) >= e.config.MaxActiveSpots {
		return spot.Spot{}, spot.ErrCapacityExceeded
	}

	now := time.Now()
	s := spot.Spot{
		ID:                       uuid.New().String(),
		OwnerID:                  ownerID,
		Location:                 draft.Location,
		Size:                     draft.Size,
		IsPaid:                   draft.IsPaid,
		Restrictions:             draft.Restrictions,
		EstimatedDurationMinutes: draft.EstimatedDurationMinutes,
		AvailableFrom:            draft.AvailableFrom,
		AvailableUntil:           draft.AvailableUntil,
		Status:                   spot.StatusAvailable,
		CreatedAt:                now,
		UpdatedAt:                now,
		ExpiresAt:                now.Add(e.config.ExpiryHorizon),
	}
	if s.Size == "" {
		s.Size = spot.SizeMedium
	}
	if draft.IsPaid {
		s.Price = draft.Price
	}

	if err := e.store.Insert(s); err != nil {
		return spot.Spot{}, fmt.Errorf("error inserting spot: %w", err)
	}

	e.bus.Emit(e.ctx, spot.Published{
		SpotID:   s.ID,
		OwnerID:  s.OwnerID,
		Location: s.Location,
		At:       now,
	})

	return s, nil
}

// Claim reserves an available spot for claimantID. The check-and-set runs
// inside a single atomic mutate, so of N concurrent claimants exactly one
// succeeds; the rest observe status=claimed and get ErrNotClaimable.
func (e *Engine) Claim(ctx context.Context, spotID, claimantID string) (spot.Spot, error) {
	now := time.Now()

	claimed, err := e.store.Mutate(spotID, func(s spot.Spot) (spot.Spot, error) {
		if s.OwnerID == claimantID {
			return spot.Spot{}, spot.ErrSelfClaim
		}
		if s.Status != spot.StatusAvailable || s.Expired(now) {
			return spot.Spot{}, spot.ErrNotClaimable
		}

		s.Status = spot.StatusClaimed
		s.ClaimedBy = claimantID
		s.ClaimedAt = &now
		s.UpdatedAt = now
		return s, nil
	})
	if err != nil {
		return spot.Spot{}, err
	}

	e.bus.Emit(e.ctx, spot.Claimed{
		SpotID:     claimed.ID,
		OwnerID:    claimed.OwnerID,
		ClaimantID: claimantID,
		At:         now,
	})

	return claimed, nil
}

// Confirm records whether occupying a claimed spot succeeded. A failed
// confirmation releases the spot back to available for others to claim.
func (e *Engine) Confirm(ctx context.Context, spotID, claimantID string, successful bool, feedback string) (spot.Spot, error) {
	now := time.Now()

	confirmed, err := e.store.Mutate(spotID, func(s spot.Spot) (spot.Spot, error) {
		if s.Status != spot.StatusClaimed || s.ClaimedBy != claimantID {
			return spot.Spot{}, spot.ErrNotAuthorized
		}

		s.ConfirmedAt = &now
		s.Successful = &successful
		s.UpdatedAt = now

		if successful {
			s.Status = spot.StatusOccupied
		} else {
			s.Status = spot.StatusAvailable
			s.ClaimedBy = ""
			s.ClaimedAt = nil
		}
		return s, nil
	})
	if err != nil {
		return spot.Spot{}, err
	}

	if successful {
		e.scheduleRemoval(spotID, e.config.RemovalGrace)
	}

	e.bus.Emit(e.ctx, spot.Confirmed{
		SpotID:     confirmed.ID,
		OwnerID:    confirmed.OwnerID,
		ClaimantID: claimantID,
		Successful: successful,
		Feedback:   feedback,
		At:         now,
	})

	return confirmed, nil
}

// Report flags a spot as not actually free. Allowed from available or
// claimed; terminal spots report as a conflict.
func (e *Engine) Report(ctx context.Context, spotID, reporterID, reason, comment string) (spot.Spot, error) {
	now := time.Now()

	reported, err := e.store.Mutate(spotID, func(s spot.Spot) (spot.Spot, error) {
		if s.Status != spot.StatusAvailable && s.Status != spot.StatusClaimed {
			return spot.Spot{}, spot.ErrNotClaimable
		}

		s.Status = spot.StatusUnavailable
		s.ClaimedBy = ""
		s.ClaimedAt = nil
		s.ReportedAt = &now
		s.UpdatedAt = now
		return s, nil
	})
	if err != nil {
		return spot.Spot{}, err
	}

	e.bus.Emit(e.ctx, spot.Reported{
		SpotID:     reported.ID,
		OwnerID:    reported.OwnerID,
		ReporterID: reporterID,
		Reason:     reason,
		Comment:    comment,
		At:         now,
	})

	return reported, nil
}

// Cancel removes a still-available spot. Only the owner may cancel, and only
// before anyone has claimed it. Canceling an already-removed spot is a no-op.
func (e *Engine) Cancel(ctx context.Context, spotID, ownerID string) error {
	// Tombstone under the mutate lock first so a concurrent claim serialized
	// after the cancel observes a non-available status instead of racing the
	// removal.
	_, err := e.store.Mutate(spotID, func(s spot.Spot) (spot.Spot, error) {
		if s.OwnerID != ownerID || s.Status != spot.StatusAvailable {
			return spot.Spot{}, spot.ErrNotCancelable
		}

		s.Status = spot.StatusUnavailable
		s.UpdatedAt = time.Now()
		return s, nil
	})
	if err != nil {
		if errors.Is(err, spot.ErrNotFound) {
			return nil
		}
		return err
	}

	e.store.Remove(spotID)
	return nil
}

// Get returns a snapshot of a spot by id
func (e *Engine) Get(ctx context.Context, spotID string) (spot.Spot, error) {
	return e.store.Get(spotID)
}

// scheduleRemoval removes a spot after a grace delay
func (e *Engine) scheduleRemoval(spotID string, grace time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(grace):
			e.store.Remove(spotID)
		}
	}()
}

// Stop gracefully stops the engine, waiting for pending removals
func (e *Engine) Stop(ctx context.Context) error {
	e.cancel()

	c := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
