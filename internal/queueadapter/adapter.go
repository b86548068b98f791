// Package queueadapter defines the broker abstraction the Queue Dispatcher
// consumes, and ships one concrete, in-process implementation.
package queueadapter

import (
	"context"

	"github.com/petabytecl/jobu/internal/domain"
)

// Adapter is the broker abstraction, grounded on
// original_source/dispatcher/queue/adapter/base.go's BaseQueueAdapter:
// Kafka, SQS, and Service Bus are all meant to satisfy the same four-method
// contract. Only LocalAdapter ships in this repository; a Kafka-backed
// implementation is named out of scope wherever the original spec discusses
// "Kafka driver internals".
type Adapter interface {
	// Connect establishes the broker connection. Called once before the
	// Queue Dispatcher's receive loop starts.
	Connect(ctx context.Context) error
	// Disconnect tears down the broker connection. Safe to call more than
	// once.
	Disconnect(ctx context.Context) error
	// Receive blocks until a message is available or ctx is cancelled.
	Receive(ctx context.Context) (domain.QueueMessage, error)
	// Complete acknowledges successful processing of msg.
	Complete(ctx context.Context, msg domain.QueueMessage) error
	// Abandon signals that msg was not processed and should be redelivered
	// (or otherwise handled by the broker's own retry policy).
	Abandon(ctx context.Context, msg domain.QueueMessage) error
}
