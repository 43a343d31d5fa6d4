// internal/service/proximity/matcher.go

// Package proximity answers read-only "what spots are near me" queries.
package proximity

import (
	"context"
	"sort"
	"time"

	"spotshare/internal/domain/spot"
	"spotshare/internal/geo"
)

// MatcherConfig contains the query defaults
type MatcherConfig struct {
	DefaultRadiusMeters float64
	DefaultMaxAge       time.Duration
}

// DefaultMatcherConfig returns the default matcher configuration
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		DefaultRadiusMeters: 1000,
		DefaultMaxAge:       10 * time.Minute,
	}
}

// Matcher implements the spot.Matcher interface over store snapshots
type Matcher struct {
	store  spot.Store
	config MatcherConfig
}

// NewMatcher creates a new proximity matcher
func NewMatcher(store spot.Store, config MatcherConfig) *Matcher {
	if config.DefaultRadiusMeters <= 0 {
		config.DefaultRadiusMeters = DefaultMatcherConfig().DefaultRadiusMeters
	}
	if config.DefaultMaxAge <= 0 {
		config.DefaultMaxAge = DefaultMatcherConfig().DefaultMaxAge
	}

	return &Matcher{
		store:  store,
		config: config,
	}
}

// Query returns spots near center that match the filter, ranked by a combined
// distance/freshness score. Ranking is one consistent sort key everywhere:
// score descending, then distance ascending, then oldest first so early
// publishers are not starved on ties. An empty result is not an error.
func (m *Matcher) Query(ctx context.Context, center spot.Location, filter spot.Filter) ([]spot.Match, error) {
	now := time.Now()

	radius := filter.RadiusMeters
	if radius <= 0 {
		radius = m.config.DefaultRadiusMeters
	}

	maxAge := filter.MaxAge
	if maxAge <= 0 {
		maxAge = m.config.DefaultMaxAge
	}

	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []spot.Status{spot.StatusAvailable}
	}

	matches := []spot.Match{}
	for _, s := range m.store.All() {
		if !statusAllowed(s.Status, statuses) {
			continue
		}
		if s.Expired(now) {
			continue
		}

		age := now.Sub(s.CreatedAt)
		if age > maxAge {
			continue
		}

		if s.IsPaid {
			if !filter.IncludePaid {
				continue
			}
			if filter.MaxPrice > 0 && s.Price > filter.MaxPrice {
				continue
			}
		}

		if filter.SizePreference != "" && s.Size != filter.SizePreference {
			continue
		}

		distance := geo.DistanceMeters(center, s.Location)
		if distance > radius {
			continue
		}

		matches = append(matches, spot.Match{
			Spot:           s,
			DistanceMeters: distance,
			Score:          Score(distance, age),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.Spot.CreatedAt.Before(b.Spot.CreatedAt)
	})

	return matches, nil
}

// Score combines distance and freshness into one ranking value: closer and
// fresher is strictly better. Clamped to [0, 100]; never persisted.
func Score(distanceMeters float64, age time.Duration) float64 {
	score := 100 - distanceMeters/20 - age.Minutes()*1.5

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func statusAllowed(s spot.Status, allowed []spot.Status) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
