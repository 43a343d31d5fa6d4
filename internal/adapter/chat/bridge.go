// internal/adapter/chat/bridge.go

// Package chat bridges claim events into two-party chat channels.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"spotshare/internal/domain/spot"
)

// Channel is a two-party conversation between a spot's owner and claimant
type Channel struct {
	ID         string    `json:"id"`
	SpotID     string    `json:"spot_id"`
	OwnerID    string    `json:"owner_id"`
	ClaimantID string    `json:"claimant_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Bridge consumes SpotClaimed events and creates a chat channel between the
// two parties, posting a system message announcing the claim. A channel lives
// only while its claim is in flight: when the claim resolves (confirm, report
// or expiry) the entry is evicted, so the registry is bounded by concurrent
// claims rather than growing with every claim ever made.
type Bridge struct {
	nc       *nats.Conn
	channels sync.Map // spotID -> *Channel
}

// NewBridge creates a new chat bridge
func NewBridge(nc *nats.Conn) *Bridge {
	return &Bridge{nc: nc}
}

// Handle implements event.Handler. A claim opens the channel; any resolution
// of that claim closes it. Eviction on a failed confirmation also matters for
// correctness: the next claimant gets a fresh channel instead of inheriting a
// membership check against the previous one.
func (b *Bridge) Handle(ctx context.Context, ev spot.Event) error {
	switch claimed := ev.(type) {
	case spot.Claimed:
		ch := b.ensureChannel(claimed)

		msg := map[string]interface{}{
			"type":       "system",
			"channel_id": ch.ID,
			"content":    "Spot claimed. You can now coordinate the handover here.",
			"time":       claimed.At,
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("error marshaling system message: %w", err)
		}

		if err := b.nc.Publish(ChannelSubject(claimed.SpotID), data); err != nil {
			return fmt.Errorf("error posting system message: %w", err)
		}

	case spot.Confirmed, spot.Reported, spot.Expired:
		b.channels.Delete(ev.Spot())
	}

	return nil
}

// Channel returns the channel for a spot, if one has been created
func (b *Bridge) Channel(spotID string) (*Channel, bool) {
	v, ok := b.channels.Load(spotID)
	if !ok {
		return nil, false
	}
	return v.(*Channel), true
}

func (b *Bridge) ensureChannel(claimed spot.Claimed) *Channel {
	ch := &Channel{
		ID:         "chan_" + claimed.SpotID,
		SpotID:     claimed.SpotID,
		OwnerID:    claimed.OwnerID,
		ClaimantID: claimed.ClaimantID,
		CreatedAt:  claimed.At,
	}

	existing, loaded := b.channels.LoadOrStore(claimed.SpotID, ch)
	if loaded {
		return existing.(*Channel)
	}
	return ch
}

// ChannelSubject is the NATS subject carrying a spot's chat messages
func ChannelSubject(spotID string) string {
	return fmt.Sprintf("chat.spot.%s", spotID)
}
