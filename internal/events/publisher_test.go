package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (r *recordingConn) Publish(subject string, data []byte) error {
	r.subject = subject
	r.data = data
	return r.err
}

func TestNATSPublisher_PublishListing(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rc := &recordingConn{}
	p := &NATSPublisher{conn: rc, prefix: "listings", now: func() time.Time { return at }}

	err := p.PublishListing(context.Background(), Created, "64b7f0c2a1b2c3d4e5f60718", "64b7f0c2a1b2c3d4e5f60001")
	require.NoError(t, err)

	assert.Equal(t, "listings.created", rc.subject)
	var ev ListingEvent
	require.NoError(t, json.Unmarshal(rc.data, &ev))
	assert.Equal(t, ListingEvent{
		ListingID: "64b7f0c2a1b2c3d4e5f60718",
		OwnerID:   "64b7f0c2a1b2c3d4e5f60001",
		Action:    Created,
		At:        at,
	}, ev)
}

func TestNATSPublisher_Errors(t *testing.T) {
	rc := &recordingConn{err: errors.New("nats: connection closed")}
	p := &NATSPublisher{conn: rc, prefix: "listings", now: time.Now}

	assert.Error(t, p.PublishListing(context.Background(), Deleted, "a", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc.subject = ""
	assert.ErrorIs(t, p.PublishListing(ctx, Updated, "a", "b"), context.Canceled)
	assert.Empty(t, rc.subject)
}

func TestSubject(t *testing.T) {
	p := &NATSPublisher{prefix: "wl.listings"}
	assert.Equal(t, "wl.listings.updated", p.Subject(Updated))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.PublishListing(context.Background(), Created, "a", "b"))
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "listings")
	assert.Error(t, err)
}
