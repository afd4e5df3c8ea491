// Package broadcast propagates full board snapshots between running
// instances. The merge strategy is last full snapshot received wins:
// simultaneous edits from two instances are only reconciled the next time
// the conflict checker runs against the freshly applied snapshot. That
// race is a known, accepted property of the channel.
package broadcast

import (
	"context"
	"errors"
	"time"

	"dockcore/pkg/domain"
)

// Envelope is one published board snapshot. Origin lets subscribers drop
// their own echoes; Revision is a per-origin monotonic counter used only
// for diagnostics, never for merging.
type Envelope struct {
	Origin    string                `json:"origin"`
	Revision  uint64                `json:"revision"`
	SentAt    time.Time             `json:"sent_at"`
	Sides     []domain.Side         `json:"sides"`
	Templates []domain.TemplateRule `json:"templates"`
}

// Handler consumes snapshots received from other instances.
type Handler func(Envelope)

// Channel is a snapshot transport between board instances.
type Channel interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe registers a handler for snapshots from other origins and
	// returns an unsubscribe function.
	Subscribe(handler Handler) (func(), error)
	Close(ctx context.Context) error
}

// ErrChannelClosed reports use of a channel after Close.
var ErrChannelClosed = errors.New("broadcast: channel closed")
