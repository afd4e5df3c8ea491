package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"dockcore/pkg/domain"
)

func TestMemoryChannelDelivers(t *testing.T) {
	ch := NewMemoryChannel()
	ctx := context.Background()

	var got []Envelope
	unsub, err := ch.Subscribe(func(env Envelope) { got = append(got, env) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	env := Envelope{
		Origin:   "a",
		Revision: 1,
		SentAt:   time.Now().UTC(),
		Sides:    []domain.Side{{Name: "Lado 0"}},
	}
	if err := ch.Publish(ctx, env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0].Origin != "a" || got[0].Revision != 1 {
		t.Fatalf("unexpected delivery %v", got)
	}
	if len(got[0].Sides) != 1 || got[0].Sides[0].Name != "Lado 0" {
		t.Fatalf("snapshot payload lost in transit")
	}

	unsub()
	if err := ch.Publish(ctx, env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unsubscribed handler still receiving")
	}
}

func TestMemoryChannelMultipleSubscribers(t *testing.T) {
	ch := NewMemoryChannel()
	ctx := context.Background()

	counts := make([]int, 2)
	for i := range counts {
		i := i
		if _, err := ch.Subscribe(func(Envelope) { counts[i]++ }); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	if err := ch.Publish(ctx, Envelope{Origin: "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if counts[0] != 1 || counts[1] != 1 {
		t.Fatalf("expected fan-out to all handlers, got %v", counts)
	}
}

func TestMemoryChannelClose(t *testing.T) {
	ch := NewMemoryChannel()
	ctx := context.Background()
	delivered := 0
	if _, err := ch.Subscribe(func(Envelope) { delivered++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := ch.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.Publish(ctx, Envelope{}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("publish after close must fail, got %v", err)
	}
	if _, err := ch.Subscribe(func(Envelope) {}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("subscribe after close must fail, got %v", err)
	}
	if delivered != 0 {
		t.Fatalf("closed channel must drop handlers")
	}
}

func TestLastSnapshotWins(t *testing.T) {
	// The channel carries full snapshots; a receiver keeping only the most
	// recent envelope implements the merge policy in its entirety.
	ch := NewMemoryChannel()
	ctx := context.Background()

	var latest Envelope
	if _, err := ch.Subscribe(func(env Envelope) {
		if env.Origin == "self" {
			return
		}
		latest = env
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for rev := uint64(1); rev <= 3; rev++ {
		env := Envelope{Origin: "peer", Revision: rev, Sides: []domain.Side{{Name: "Lado 0"}}}
		if err := ch.Publish(ctx, env); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if err := ch.Publish(ctx, Envelope{Origin: "self", Revision: 99}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if latest.Origin != "peer" || latest.Revision != 3 {
		t.Fatalf("expected last peer snapshot kept, got %+v", latest)
	}
}
