package spot

import "time"

// EventKind identifies a lifecycle event type
type EventKind string

const (
	EventPublished EventKind = "published"
	EventClaimed   EventKind = "claimed"
	EventConfirmed EventKind = "confirmed"
	EventReported  EventKind = "reported"
	EventExpired   EventKind = "expired"
)

// Event is a lifecycle event emitted after a state transition has committed
type Event interface {
	Kind() EventKind
	Spot() string
}

// Published is emitted when an owner publishes a new spot
type Published struct {
	SpotID   string    `json:"spot_id"`
	OwnerID  string    `json:"owner_id"`
	Location Location  `json:"location"`
	At       time.Time `json:"at"`
}

func (e Published) Kind() EventKind { return EventPublished }
func (e Published) Spot() string    { return e.SpotID }

// Claimed is emitted when a claimant wins a spot
type Claimed struct {
	SpotID     string    `json:"spot_id"`
	OwnerID    string    `json:"owner_id"`
	ClaimantID string    `json:"claimant_id"`
	At         time.Time `json:"at"`
}

func (e Claimed) Kind() EventKind { return EventClaimed }
func (e Claimed) Spot() string    { return e.SpotID }

// Confirmed is emitted when the claimant reports the outcome of a claim
type Confirmed struct {
	SpotID     string    `json:"spot_id"`
	OwnerID    string    `json:"owner_id"`
	ClaimantID string    `json:"claimant_id"`
	Successful bool      `json:"successful"`
	Feedback   string    `json:"feedback,omitempty"`
	At         time.Time `json:"at"`
}

func (e Confirmed) Kind() EventKind { return EventConfirmed }
func (e Confirmed) Spot() string    { return e.SpotID }

// Reported is emitted when a user flags a spot as not actually free
type Reported struct {
	SpotID     string    `json:"spot_id"`
	OwnerID    string    `json:"owner_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Comment    string    `json:"comment,omitempty"`
	At         time.Time `json:"at"`
}

func (e Reported) Kind() EventKind { return EventReported }
func (e Reported) Spot() string    { return e.SpotID }

// Expired is emitted by the sweeper when a spot's absolute expiry passes
type Expired struct {
	SpotID  string    `json:"spot_id"`
	OwnerID string    `json:"owner_id"`
	At      time.Time `json:"at"`
}

func (e Expired) Kind() EventKind { return EventExpired }
func (e Expired) Spot() string    { return e.SpotID }
