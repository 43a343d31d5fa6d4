// internal/adapter/notify/dispatcher.go

// Package notify relays lifecycle events to the notification dispatcher.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"spotshare/internal/domain/spot"
)

// Dispatcher publishes lifecycle events for the push-notification system to
// consume. Each event goes to a kind-scoped subject plus one subject per
// addressed user; delivery beyond NATS is the consumer's problem.
type Dispatcher struct {
	nc         *nats.Conn
	topic      string
	userPrefix string
}

// NewDispatcher creates a dispatcher publishing under topic (e.g. "spot")
func NewDispatcher(nc *nats.Conn, topic string) *Dispatcher {
	return &Dispatcher{
		nc:         nc,
		topic:      topic,
		userPrefix: "notify",
	}
}

// envelope is the wire form of a relayed event
type envelope struct {
	Kind  spot.EventKind `json:"kind"`
	Event spot.Event     `json:"event"`
}

// Handle implements event.Handler
func (d *Dispatcher) Handle(ctx context.Context, ev spot.Event) error {
	data, err := json.Marshal(envelope{Kind: ev.Kind(), Event: ev})
	if err != nil {
		return fmt.Errorf("error marshaling %s event: %w", ev.Kind(), err)
	}

	subject := fmt.Sprintf("%s.%s", d.topic, ev.Kind())
	if err := d.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}

	for _, userID := range recipients(ev) {
		userSubject := fmt.Sprintf("%s.%s", d.userPrefix, userID)
		if err := d.nc.Publish(userSubject, data); err != nil {
			return fmt.Errorf("error publishing to %s: %w", userSubject, err)
		}
	}

	return nil
}

// recipients returns the user ids a given event should be addressed to
func recipients(ev spot.Event) []string {
	switch e := ev.(type) {
	case spot.Published:
		return nil
	case spot.Claimed:
		return []string{e.OwnerID, e.ClaimantID}
	case spot.Confirmed:
		return []string{e.OwnerID, e.ClaimantID}
	case spot.Reported:
		return []string{e.OwnerID}
	case spot.Expired:
		return []string{e.OwnerID}
	default:
		return nil
	}
}
