package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotshare/internal/domain/spot"
	"spotshare/internal/event"
	"spotshare/internal/store"
)

func newTestEngine(t *testing.T, config EngineConfig) (*Engine, *store.MemStore, *event.Bus) {
	t.Helper()

	st := store.NewMemStore()
	bus := event.NewBus()
	engine := NewEngine(st, bus, config)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		engine.Stop(ctx)
	})

	return engine, st, bus
}

func testDraft() spot.Draft {
	return spot.Draft{
		Location:                 spot.Location{Latitude: 40.0, Longitude: -3.0, Address: "Calle Mayor 1"},
		Size:                     spot.SizeMedium,
		EstimatedDurationMinutes: 15,
	}
}

func TestPublishCreatesAvailableSpot(t *testing.T) {
	engine, st, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "owner-1", s.OwnerID)
	assert.Equal(t, spot.StatusAvailable, s.Status)
	assert.True(t, s.ExpiresAt.After(s.CreatedAt))
	assert.WithinDuration(t, s.CreatedAt.Add(60*time.Minute), s.ExpiresAt, time.Second)

	stored, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, stored.ID)
}

func TestPublishHorizonIgnoresEstimatedDuration(t *testing.T) {
	engine, _, _ := newTestEngine(t, EngineConfig{ExpiryHorizon: 30 * time.Minute, RemovalGrace: time.Minute})

	draft := testDraft()
	draft.EstimatedDurationMinutes = 240

	s, err := engine.Publish(context.Background(), "owner-1", draft)
	require.NoError(t, err)

	assert.WithinDuration(t, s.CreatedAt.Add(30*time.Minute), s.ExpiresAt, time.Second)
}

func TestPublishCapsActiveSpots(t *testing.T) {
	config := DefaultEngineConfig()
	config.MaxActiveSpots = 2
	engine, _, _ := newTestEngine(t, config)

	first, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)
	_, err = engine.Publish(context.Background(), "owner-2", testDraft())
	require.NoError(t, err)

	_, err = engine.Publish(context.Background(), "owner-3", testDraft())
	assert.ErrorIs(t, err, spot.ErrCapacityExceeded)

	// Resolving a spot frees a slot.
	require.NoError(t, engine.Cancel(context.Background(), first.ID, "owner-1"))

	_, err = engine.Publish(context.Background(), "owner-3", testDraft())
	assert.NoError(t, err)
}

func TestPublishUncappedByDefault(t *testing.T) {
	engine, st, _ := newTestEngine(t, DefaultEngineConfig())

	for i := 0; i < 20; i++ {
		_, err := engine.Publish(context.Background(), "owner-1", testDraft())
		require.NoError(t, err)
	}

	assert.Equal(t, 20, st.Len())
}

func TestPublishInvalidLocation(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	cases := []spot.Location{
		{Latitude: 91, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 181},
		{Latitude: 0, Longitude: -181},
	}

	for _, loc := range cases {
		draft := testDraft()
		draft.Location = loc

		_, err := engine.Publish(context.Background(), "owner-1", draft)
		assert.ErrorIs(t, err, spot.ErrInvalidLocation)
	}
}

func TestClaimSucceedsOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	claimed, err := engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, spot.StatusClaimed, claimed.Status)
	assert.Equal(t, "user-a", claimed.ClaimedBy)
	require.NotNil(t, claimed.ClaimedAt)

	// The second claimant always observes status=claimed and loses.
	_, err = engine.Claim(context.Background(), s.ID, "user-b")
	assert.ErrorIs(t, err, spot.ErrNotClaimable)
}

func TestClaimBySelf(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "owner-1")
	assert.ErrorIs(t, err, spot.ErrSelfClaim)
}

func TestClaimMissingSpot(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	_, err := engine.Claim(context.Background(), "no-such-spot", "user-a")
	assert.ErrorIs(t, err, spot.ErrNotFound)
}

func TestClaimExpiredSpot(t *testing.T) {
	engine, st, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	// Age the spot past its horizon; expiry is absolute even before a sweep.
	_, err = st.Mutate(s.ID, func(cur spot.Spot) (spot.Spot, error) {
		cur.ExpiresAt = time.Now().Add(-time.Second)
		return cur, nil
	})
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	assert.ErrorIs(t, err, spot.ErrNotClaimable)
}

func TestConcurrentClaimsExactlyOneWinner(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	const claimants = 32

	var wg sync.WaitGroup
	wg.Add(claimants)
	errs := make([]error, claimants)

	for i := 0; i < claimants; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Claim(context.Background(), s.ID, "user-"+string(rune('a'+i)))
		}(i)
	}

	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, spot.ErrNotClaimable)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestConfirmSuccessOccupiesAndRemovesAfterGrace(t *testing.T) {
	engine, st, _ := newTestEngine(t, EngineConfig{
		ExpiryHorizon: time.Hour,
		RemovalGrace:  30 * time.Millisecond,
	})

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	confirmed, err := engine.Confirm(context.Background(), s.ID, "user-a", true, "right by the corner")
	require.NoError(t, err)
	assert.Equal(t, spot.StatusOccupied, confirmed.Status)
	assert.Equal(t, "user-a", confirmed.ClaimedBy)
	require.NotNil(t, confirmed.Successful)
	assert.True(t, *confirmed.Successful)

	// Still readable during the grace window.
	_, err = st.Get(s.ID)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := st.Get(s.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestConfirmFailureReleasesSpot(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	released, err := engine.Confirm(context.Background(), s.ID, "user-a", false, "already taken")
	require.NoError(t, err)
	assert.Equal(t, spot.StatusAvailable, released.Status)
	assert.Empty(t, released.ClaimedBy)
	assert.Nil(t, released.ClaimedAt)

	// A released spot is claimable again by someone else.
	claimed, err := engine.Claim(context.Background(), s.ID, "user-b")
	require.NoError(t, err)
	assert.Equal(t, "user-b", claimed.ClaimedBy)
}

func TestConfirmByNonClaimant(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), s.ID, "user-b", true, "")
	assert.ErrorIs(t, err, spot.ErrNotAuthorized)
}

func TestConfirmUnclaimedSpot(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), s.ID, "user-a", true, "")
	assert.ErrorIs(t, err, spot.ErrNotAuthorized)
}

func TestConfirmIsTerminalOnSuccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, EngineConfig{ExpiryHorizon: time.Hour, RemovalGrace: time.Hour})

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), s.ID, "user-a", true, "")
	require.NoError(t, err)

	// No edge leaves occupied: claims, confirms and reports all fail.
	_, err = engine.Claim(context.Background(), s.ID, "user-b")
	assert.ErrorIs(t, err, spot.ErrNotClaimable)

	_, err = engine.Confirm(context.Background(), s.ID, "user-a", false, "")
	assert.ErrorIs(t, err, spot.ErrNotAuthorized)

	_, err = engine.Report(context.Background(), s.ID, "user-b", "occupied", "")
	assert.ErrorIs(t, err, spot.ErrNotClaimable)
}

func TestReportAvailableSpot(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	reported, err := engine.Report(context.Background(), s.ID, "user-a", "no such spot", "nothing here")
	require.NoError(t, err)
	assert.Equal(t, spot.StatusUnavailable, reported.Status)
	require.NotNil(t, reported.ReportedAt)
}

func TestReportClaimedSpot(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	reported, err := engine.Report(context.Background(), s.ID, "user-a", "already occupied", "")
	require.NoError(t, err)
	assert.Equal(t, spot.StatusUnavailable, reported.Status)
	assert.Empty(t, reported.ClaimedBy)
}

func TestCancelRemovesAvailableSpot(t *testing.T) {
	engine, st, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	require.NoError(t, engine.Cancel(context.Background(), s.ID, "owner-1"))

	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, spot.ErrNotFound)
}

func TestCancelIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	require.NoError(t, engine.Cancel(context.Background(), s.ID, "owner-1"))
	require.NoError(t, engine.Cancel(context.Background(), s.ID, "owner-1"))

	_, err = engine.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, spot.ErrNotFound)
}

func TestCancelByNonOwner(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	err = engine.Cancel(context.Background(), s.ID, "user-a")
	assert.ErrorIs(t, err, spot.ErrNotCancelable)
}

func TestCancelAfterClaim(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	err = engine.Cancel(context.Background(), s.ID, "owner-1")
	assert.ErrorIs(t, err, spot.ErrNotCancelable)
}

func TestClaimEmitsEventToCollaborators(t *testing.T) {
	st := store.NewMemStore()
	bus := event.NewBus()

	events := make(chan spot.Event, 8)
	bus.Subscribe(func(ctx context.Context, ev spot.Event) error {
		events <- ev
		return nil
	})

	engine := NewEngine(st, bus, DefaultEngineConfig())
	defer engine.Stop(context.Background())

	s, err := engine.Publish(context.Background(), "owner-1", testDraft())
	require.NoError(t, err)

	_, err = engine.Claim(context.Background(), s.ID, "user-a")
	require.NoError(t, err)

	var published, claimed bool
	deadline := time.After(time.Second)
	for !(published && claimed) {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case spot.Published:
				assert.Equal(t, s.ID, e.SpotID)
				assert.Equal(t, "owner-1", e.OwnerID)
				published = true
			case spot.Claimed:
				assert.Equal(t, s.ID, e.SpotID)
				assert.Equal(t, "owner-1", e.OwnerID)
				assert.Equal(t, "user-a", e.ClaimantID)
				claimed = true
			}
		case <-deadline:
			t.Fatal("missing lifecycle events")
		}
	}
}
