package spot

import (
	"time"
)

// Status represents the current lifecycle state of a spot
type Status string

const (
	StatusAvailable   Status = "available"
	StatusClaimed     Status = "claimed"
	StatusOccupied    Status = "occupied"
	StatusUnavailable Status = "unavailable"
	StatusExpired     Status = "expired"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusOccupied || s == StatusUnavailable || s == StatusExpired
}

// Size categorizes how large a parking spot is
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Location represents a geographic point with an optional human-readable address
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Valid reports whether the coordinates are within range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Spot represents a parking spot a user has reported as about to become free.
// ClaimedBy is set if and only if Status is claimed or occupied; ExpiresAt is
// fixed at publish time and never extended.
type Spot struct {
	ID                       string     `json:"id"`
	OwnerID                  string     `json:"owner_id"`
	Location                 Location   `json:"location"`
	Size                     Size       `json:"size"`
	IsPaid                   bool       `json:"is_paid"`
	Price                    float64    `json:"price,omitempty"`
	Restrictions             string     `json:"restrictions,omitempty"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	AvailableFrom            *time.Time `json:"available_from,omitempty"`
	AvailableUntil           *time.Time `json:"available_until,omitempty"`
	Status                   Status     `json:"status"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	ExpiresAt                time.Time  `json:"expires_at"`
	ClaimedBy                string     `json:"claimed_by,omitempty"`
	ClaimedAt                *time.Time `json:"claimed_at,omitempty"`
	ConfirmedAt              *time.Time `json:"confirmed_at,omitempty"`
	Successful               *bool      `json:"successful,omitempty"`
	ReportedAt               *time.Time `json:"reported_at,omitempty"`
}

// Clone returns a deep copy of the spot so callers never alias store records.
func (s Spot) Clone() Spot {
	c := s
	c.AvailableFrom = copyTime(s.AvailableFrom)
	c.AvailableUntil = copyTime(s.AvailableUntil)
	c.ClaimedAt = copyTime(s.ClaimedAt)
	c.ConfirmedAt = copyTime(s.ConfirmedAt)
	c.ReportedAt = copyTime(s.ReportedAt)
	if s.Successful != nil {
		v := *s.Successful
		c.Successful = &v
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Expired reports whether the spot's absolute expiry has passed at now.
func (s Spot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Draft carries the owner-supplied details for publishing a new spot
type Draft struct {
	Location                 Location   `json:"location"`
	Size                     Size       `json:"size"`
	IsPaid                   bool       `json:"is_paid"`
	Price                    float64    `json:"price,omitempty"`
	Restrictions             string     `json:"restrictions,omitempty"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	AvailableFrom            *time.Time `json:"available_from,omitempty"`
	AvailableUntil           *time.Time `json:"available_until,omitempty"`
}
