package broadcast

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process loopback channel for tests and
// single-instance deployments.
type MemoryChannel struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
	closed   bool
}

var _ Channel = (*MemoryChannel)(nil)

// NewMemoryChannel constructs an empty loopback channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{handlers: make(map[int]Handler)}
}

// Publish delivers the envelope synchronously to every registered handler,
// the publisher's own included. Handlers that must ignore their own echoes
// compare the envelope origin.
func (c *MemoryChannel) Publish(_ context.Context, env Envelope) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	handlers := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(env)
	}
	return nil
}

// Subscribe registers a handler and returns its removal function.
func (c *MemoryChannel) Subscribe(handler Handler) (func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}, nil
}

// Close drops all handlers.
func (c *MemoryChannel) Close(context.Context) error {
	c.mu.Lock()
	c.handlers = make(map[int]Handler)
	c.closed = true
	c.mu.Unlock()
	return nil
}
