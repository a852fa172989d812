package utils

import "time"

// HTTP handler timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// AnalyzeTimeout bounds one full analysis run including the store fetches
	AnalyzeTimeout = 120 * time.Second
)

// Alert bus timeouts
const (
	// PublishTimeout bounds the alert publish that follows an analysis run
	PublishTimeout = 10 * time.Second
)

// QueueType represents the type of alert bus backend
type QueueType string

const (
	// QueueTypeNone disables alert publishing (default)
	QueueTypeNone QueueType = "none"

	// QueueTypeNATS represents NATS JetStream
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents an in-memory publisher (for testing)
	QueueTypeMemory QueueType = "memory"
)
