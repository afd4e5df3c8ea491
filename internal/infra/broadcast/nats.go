package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject board snapshots travel on.
const DefaultSubject = "dockcore.board.snapshot"

// NATSChannel carries snapshots over a core NATS subject. Delivery is
// at-most-once: a dropped snapshot is superseded by the next publish, so
// JetStream persistence would only replay stale boards.
type NATSChannel struct {
	conn    *nats.Conn
	subject string
	origin  string
	owned   bool
}

var _ Channel = (*NATSChannel)(nil)

// NATSConfig configures a NATSChannel.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Conn is supplied.
	URL string
	// Conn is an existing connection to reuse; the channel will not close it.
	Conn *nats.Conn
	// Subject overrides DefaultSubject.
	Subject string
	// Origin identifies this instance in published envelopes.
	Origin string
}

// NewNATSChannel connects (or attaches) to NATS and returns the channel.
func NewNATSChannel(cfg NATSConfig) (*NATSChannel, error) {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	conn := cfg.Conn
	owned := false
	if conn == nil {
		var err error
		conn, err = nats.Connect(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		owned = true
	}
	return &NATSChannel{conn: conn, subject: subject, origin: cfg.Origin, owned: owned}, nil
}

// Publish sends the envelope, stamping this channel's origin when unset.
func (c *NATSChannel) Publish(_ context.Context, env Envelope) error {
	if env.Origin == "" {
		env.Origin = c.origin
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.conn.Publish(c.subject, data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Subscribe delivers snapshots from other origins to the handler.
// Undecodable payloads are dropped.
func (c *NATSChannel) Subscribe(handler Handler) (func(), error) {
	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return
		}
		if env.Origin != "" && env.Origin == c.origin {
			return
		}
		handler(env)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains the connection when this channel owns it.
func (c *NATSChannel) Close(context.Context) error {
	if !c.owned {
		return nil
	}
	return c.conn.Drain()
}
