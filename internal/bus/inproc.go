package bus

import (
	"context"
	"fmt"
	"sync"
)

// Inproc is a minimal in-process topic bus. Publishing validates the
// message; subscribers receive messages for their topic in publish order.
type Inproc struct {
	mu   sync.Mutex
	subs map[string][]chan BusMessage
}

func NewInproc() *Inproc {
	return &Inproc{subs: make(map[string][]chan BusMessage)}
}

// Subscribe registers a buffered channel for topic. The channel stays
// open for the process lifetime.
func (b *Inproc) Subscribe(topic string) <-chan BusMessage {
	ch := make(chan BusMessage, 64)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers msg to every subscriber of its topic, blocking until
// each accepts it or ctx is done.
func (b *Inproc) Publish(ctx context.Context, msg BusMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid bus message: %w", err)
	}
	b.mu.Lock()
	targets := append([]chan BusMessage(nil), b.subs[msg.Topic]...)
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
