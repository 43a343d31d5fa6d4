package storage

import "time"

// Outcome is one archived terminal lifecycle record
type Outcome struct {
	SpotID     string    `json:"spot_id"`
	OwnerID    string    `json:"owner_id"`
	Outcome    string    `json:"outcome"`
	ClaimantID *string   `json:"claimant_id,omitempty"`
	Successful *bool     `json:"successful,omitempty"`
	Reason     *string   `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
