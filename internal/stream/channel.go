package stream

import (
	"fmt"
	"sync"
)

// Sink receives session events in emission order. Implementations do not
// need to be safe for concurrent use; Channel serializes all writes.
type Sink interface {
	WriteEvent(ev Event) error
}

// Channel delivers events from a session to a sink in FIFO order. Sends
// after Close are silently dropped and Close is idempotent, so a session
// can always run its terminal path without caring whether the client is
// still connected.
type Channel struct {
	mu     sync.Mutex
	sink   Sink
	closed bool
	done   chan struct{}
}

// NewChannel wraps a sink in an ordered, close-tolerant channel.
func NewChannel(sink Sink) *Channel {
	return &Channel{
		sink: sink,
		done: make(chan struct{}),
	}
}

// Send validates the event and forwards it to the sink. Sending on a closed
// channel is a no-op. A sink write failure closes the channel and is
// returned to the caller, which should stop producing.
func (c *Channel) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	if err := c.sink.WriteEvent(ev); err != nil {
		c.closeLocked()
		return fmt.Errorf("send event: %w", err)
	}
	return nil
}

// Close marks the channel closed. Subsequent sends are dropped. Calling
// Close more than once is harmless.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Channel) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Closed reports whether the channel has been closed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed when the channel closes.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}
