// internal/service/lifecycle/sweeper.go

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"spotshare/internal/domain/spot"
	"spotshare/internal/event"
)

// SweeperConfig contains configuration for the expiry sweeper
type SweeperConfig struct {
	Interval time.Duration
}

// Sweeper periodically scans the store and removes spots whose absolute
// expiry has passed. It goes through the same Mutate path as user-triggered
// operations, so a sweep can never race a concurrent claim or confirm into an
// inconsistent state: whichever reaches the store first wins.
type Sweeper struct {
	store  spot.Store
	bus    *event.Bus
	config SweeperConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(store spot.Store, bus *event.Bus, config SweeperConfig) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Interval <= 0 {
		config.Interval = time.Minute
	}

	return &Sweeper{
		store:  store,
		bus:    bus,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the periodic sweep loop
func (sw *Sweeper) Start() {
	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()

		ticker := time.NewTicker(sw.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-sw.ctx.Done():
				return
			case <-ticker.C:
				sw.SweepOnce(time.Now())
			}
		}
	}()
}

// SweepOnce runs a single sweep pass against all live spots. Exposed so a
// deployment can trigger an immediate pass and so tests can drive the clock.
func (sw *Sweeper) SweepOnce(now time.Time) int {
	swept := 0

	for _, s := range sw.store.All() {
		if s.Status.IsTerminal() || !s.Expired(now) {
			continue
		}

		expired, err := sw.store.Mutate(s.ID, func(cur spot.Spot) (spot.Spot, error) {
			// Re-check under the lock: a claim or confirm may have landed
			// since the snapshot, and terminal spots are left alone.
			if cur.Status.IsTerminal() || !cur.Expired(now) {
				return spot.Spot{}, errSkip
			}

			cur.Status = spot.StatusExpired
			cur.ClaimedBy = ""
			cur.ClaimedAt = nil
			cur.UpdatedAt = now
			return cur, nil
		})
		if err != nil {
			// Already removed or no longer eligible; nothing to do.
			continue
		}

		sw.store.Remove(expired.ID)
		swept++

		sw.bus.Emit(sw.ctx, spot.Expired{
			SpotID:  expired.ID,
			OwnerID: expired.OwnerID,
			At:      now,
		})
	}

	return swept
}

// Stop gracefully stops the sweep loop
func (sw *Sweeper) Stop(ctx context.Context) error {
	sw.cancel()

	c := make(chan struct{})
	go func() {
		sw.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errSkip aborts a sweep mutate without applying any change
var errSkip = errors.New("sweep skip")
