package messaging

import (
	"context"
	"encoding/json"
	"sync"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Handler processes one raw message. Errors are reported to the caller of
// Consume and do not stop consumption.
type Handler func(ctx context.Context, payload []byte) error

// Consume subscribes to channel and runs handler for every message until ctx
// is done or the subscription closes.
func Consume(ctx context.Context, broker Broker, channel string, handler Handler, onError func(error)) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	return consumeFrom(ctx, msgs, handler, onError)
}

func consumeFrom(ctx context.Context, msgs <-chan []byte, handler Handler, onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// MemoryBroker delivers messages in process. Used by tests and single-node runs.
type MemoryBroker struct {
	mu        sync.Mutex
	subs      map[string][]chan []byte
	published map[string][][]byte
	closed    bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs:      make(map[string][]chan []byte),
		published: make(map[string][][]byte),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 100)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()
	return ch, nil
}

// Published returns the raw payloads sent to channel so far.
func (b *MemoryBroker) Published(channel string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[channel]...)
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	return nil
}
