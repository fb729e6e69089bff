// Package events announces listing lifecycle changes on NATS.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// Action is the last subject token of a listing event.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// ListingEvent is the JSON payload of every listing event.
type ListingEvent struct {
	ListingID string    `json:"listing_id"`
	OwnerID   string    `json:"owner_id"`
	Action    Action    `json:"action"`
	At        time.Time `json:"at"`
}

// Publisher sends listing events. Delivery is best-effort.
type Publisher interface {
	PublishListing(ctx context.Context, action Action, listingID, ownerID string) error
}

type conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes on <prefix>.<action>.
type NATSPublisher struct {
	conn   conn
	nc     *nats.Conn
	prefix string
	now    func() time.Time
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("wanderlust-api"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, nc: nc, prefix: prefix, now: time.Now}, nil
}

func (p *NATSPublisher) Subject(action Action) string {
	return p.prefix + "." + string(action)
}

func (p *NATSPublisher) PublishListing(ctx context.Context, action Action, listingID, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ListingEvent{
		ListingID: listingID,
		OwnerID:   ownerID,
		Action:    action,
		At:        p.now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(action), data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// Noop drops every event. Used when NATS_URL is empty.
type Noop struct{}

func (Noop) PublishListing(context.Context, Action, string, string) error { return nil }

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = Noop{}
)
