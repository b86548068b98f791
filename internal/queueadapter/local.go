package queueadapter

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/petabytecl/jobu/internal/domain"
)

// defaultBufferSize mirrors nandlabs-golly/messaging.LocalProvider's
// defaultChannelBufSize.
const defaultBufferSize = 256

// ErrClosed is returned by Receive/Publish once the adapter has been
// disconnected.
var ErrClosed = errors.New("queueadapter: adapter is closed")

// LocalAdapter is an in-process, buffered-channel Adapter: the "ship one
// concrete implementation behind the interface" counterpart to
// original_source's KafkaAdapter, grounded on
// nandlabs-golly/messaging.LocalProvider's single-destination buffered
// channel. It has no partitions or consumer groups -- every Publish lands
// in one shared channel drained by whichever QueueDispatcher goroutine
// calls Receive next.
type LocalAdapter struct {
	mu     sync.RWMutex
	ch     chan domain.QueueMessage
	closed bool
}

// NewLocalAdapter creates a LocalAdapter with a buffered channel of the
// given size (0 uses defaultBufferSize).
func NewLocalAdapter(bufferSize int) *LocalAdapter {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &LocalAdapter{ch: make(chan domain.QueueMessage, bufferSize)}
}

// Connect is a no-op: the channel is ready from construction.
func (a *LocalAdapter) Connect(_ context.Context) error {
	return nil
}

// Disconnect closes the channel, unblocking any pending Receive with
// ErrClosed.
func (a *LocalAdapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	close(a.ch)
	return nil
}

// Publish enqueues msg, stamping an idempotency key onto Handle if the
// caller hasn't already set one. Returns ErrClosed if the adapter has been
// disconnected. Not part of the Adapter interface -- it is this local
// broker's producer side, exercised by tests and by any in-process code
// that wants to feed the Queue Dispatcher directly.
func (a *LocalAdapter) Publish(ctx context.Context, msg domain.QueueMessage) error {
	if msg.Handle == nil {
		msg.Handle = uuid.NewString()
	}
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	ch := a.ch
	a.mu.RUnlock()

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message is available, ctx is cancelled, or the
// adapter is disconnected.
func (a *LocalAdapter) Receive(ctx context.Context) (domain.QueueMessage, error) {
	select {
	case msg, ok := <-a.ch:
		if !ok {
			return domain.QueueMessage{}, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return domain.QueueMessage{}, ctx.Err()
	}
}

// Complete is a no-op for LocalAdapter: there is no broker-side offset to
// commit.
func (a *LocalAdapter) Complete(_ context.Context, _ domain.QueueMessage) error {
	return nil
}

// Abandon is a no-op for LocalAdapter: messages are not redelivered, since
// there is no consumer-group offset to reset. Callers that need
// at-least-once redelivery for the in-process adapter should re-Publish
// from their own retry logic.
func (a *LocalAdapter) Abandon(_ context.Context, _ domain.QueueMessage) error {
	return nil
}
