package proximity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotshare/internal/domain/spot"
	"spotshare/internal/store"
)

var center = spot.Location{Latitude: 40.0, Longitude: -3.0}

// offsetNorth returns a location roughly meters north of center.
// 0.001 degrees of latitude is ~111 m.
func offsetNorth(meters float64) spot.Location {
	return spot.Location{
		Latitude:  center.Latitude + meters/111195,
		Longitude: center.Longitude,
	}
}

type seed struct {
	id       string
	location spot.Location
	age      time.Duration
	status   spot.Status
	isPaid   bool
	price    float64
	size     spot.Size
}

func seedStore(t *testing.T, seeds []seed) *store.MemStore {
	t.Helper()

	st := store.NewMemStore()
	now := time.Now()

	for _, sd := range seeds {
		status := sd.status
		if status == "" {
			status = spot.StatusAvailable
		}
		size := sd.size
		if size == "" {
			size = spot.SizeMedium
		}

		require.NoError(t, st.Insert(spot.Spot{
			ID:        sd.id,
			OwnerID:   "owner-" + sd.id,
			Location:  sd.location,
			Size:      size,
			IsPaid:    sd.isPaid,
			Price:     sd.price,
			Status:    status,
			CreatedAt: now.Add(-sd.age),
			UpdatedAt: now.Add(-sd.age),
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	return st
}

func TestQueryFindsSpotAtCenter(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "here", location: center},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{RadiusMeters: 500})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "here", matches[0].Spot.ID)
	assert.InDelta(t, 0, matches[0].DistanceMeters, 0.5)
	assert.Greater(t, matches[0].Score, 95.0)
}

func TestQueryEmptyResultIsNotError(t *testing.T) {
	m := NewMatcher(store.NewMemStore(), DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryRadiusCutoff(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "near", location: offsetNorth(200)},
		{id: "far", location: offsetNorth(2000)},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Spot.ID)
}

func TestQueryMaxAgeCutoff(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "fresh", location: center, age: 2 * time.Minute},
		{id: "stale", location: center, age: 30 * time.Minute},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fresh", matches[0].Spot.ID)
}

func TestQueryStatusDefaultsToAvailable(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "open", location: center},
		{id: "taken", location: center, status: spot.StatusClaimed},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "open", matches[0].Spot.ID)

	// Asking for claimed spots explicitly includes them.
	matches, err = m.Query(context.Background(), center, spot.Filter{
		Statuses: []spot.Status{spot.StatusAvailable, spot.StatusClaimed},
	})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestQueryExcludesExpired(t *testing.T) {
	st := store.NewMemStore()
	now := time.Now()
	require.NoError(t, st.Insert(spot.Spot{
		ID:        "zombie",
		OwnerID:   "owner-1",
		Location:  center,
		Size:      spot.SizeMedium,
		Status:    spot.StatusAvailable,
		CreatedAt: now.Add(-time.Minute),
		UpdatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(-time.Second),
	}))
	m := NewMatcher(st, DefaultMatcherConfig())

	// Expiry is absolute: a spot past its horizon never appears, even if
	// the sweeper has not run yet.
	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryPaidFiltering(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "free", location: center},
		{id: "cheap", location: center, isPaid: true, price: 1.5},
		{id: "dear", location: center, isPaid: true, price: 9.0},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	// Paid spots are excluded by default.
	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "free", matches[0].Spot.ID)

	// Included on request, bounded by max price.
	matches, err = m.Query(context.Background(), center, spot.Filter{IncludePaid: true, MaxPrice: 2.0})
	require.NoError(t, err)
	ids := matchIDs(matches)
	assert.ElementsMatch(t, []string{"free", "cheap"}, ids)
}

func TestQuerySizePreference(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "small", location: center, size: spot.SizeSmall},
		{id: "large", location: center, size: spot.SizeLarge},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{SizePreference: spot.SizeLarge})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "large", matches[0].Spot.ID)
}

func TestQueryRanksByScore(t *testing.T) {
	st := seedStore(t, []seed{
		{id: "close-fresh", location: offsetNorth(50), age: time.Minute},
		{id: "close-stale", location: offsetNorth(50), age: 8 * time.Minute},
		{id: "far-fresh", location: offsetNorth(800), age: time.Minute},
	})
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Closer and fresher always ranks first.
	assert.Equal(t, "close-fresh", matches[0].Spot.ID)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestQueryTieBreaksOldestFirst(t *testing.T) {
	now := time.Now()
	st := store.NewMemStore()

	// Far enough out that both scores clamp to zero and the distances are
	// identical, leaving only the creation time to order them: the earlier
	// publisher sorts first so it is not starved.
	loc := offsetNorth(1990)
	seeds := []struct {
		id  string
		age time.Duration
	}{
		{"younger", 2 * time.Minute},
		{"older", 8 * time.Minute},
	}
	for _, sd := range seeds {
		require.NoError(t, st.Insert(spot.Spot{
			ID:        sd.id,
			OwnerID:   "owner-" + sd.id,
			Location:  loc,
			Size:      spot.SizeMedium,
			Status:    spot.StatusAvailable,
			CreatedAt: now.Add(-sd.age),
			UpdatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
	}
	m := NewMatcher(st, DefaultMatcherConfig())

	matches, err := m.Query(context.Background(), center, spot.Filter{RadiusMeters: 2000})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, 0.0, matches[0].Score)
	assert.Equal(t, 0.0, matches[1].Score)
	assert.Equal(t, "older", matches[0].Spot.ID)
	assert.Equal(t, "younger", matches[1].Spot.ID)
}

func TestScoreMonotonicity(t *testing.T) {
	// Closer at equal age is never worse.
	assert.GreaterOrEqual(t,
		Score(100, 5*time.Minute),
		Score(900, 5*time.Minute))

	// Fresher at equal distance is never worse.
	assert.GreaterOrEqual(t,
		Score(500, time.Minute),
		Score(500, 9*time.Minute))

	// Clamped to [0, 100].
	assert.Equal(t, 0.0, Score(1e7, time.Hour))
	assert.Equal(t, 100.0, Score(0, -time.Minute))
}

func matchIDs(matches []spot.Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Spot.ID)
	}
	return ids
}
