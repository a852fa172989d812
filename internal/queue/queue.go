// Package queue publishes detection alerts to a message bus so downstream
// consumers (paging, ticketing, long-term archive) can react without
// polling the analyzer. The analyzer only ever publishes; consumption is
// out of scope.
package queue

import "context"

// Publisher publishes detection alerts to a subject/topic.
type Publisher interface {
	// Publish publishes one message to a subject/topic.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and returns the number that
	// were accepted by the bus. Individual failures do not abort the batch.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection.
	Close() error
}

// BatchMessage is one message of a batch publish.
type BatchMessage struct {
	Subject string
	Data    []byte
}

// NoopPublisher drops everything. Used when alert publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return nil
}

func (NoopPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	return len(messages), nil
}

func (NoopPublisher) Close() error { return nil }
