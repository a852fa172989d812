package queue

import (
	"fmt"
	"strings"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/utils"
)

// NewPublisher creates a Publisher from configuration. Type "none" (or
// empty) disables publishing entirely, which is the default: the analyzer
// is useful standalone and the bus is opt-in.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	switch queueType {
	case "", utils.QueueTypeNone:
		return NoopPublisher{}, nil

	case utils.QueueTypeNATS:
		return newNATSPublisher(cfg.URL, cfg.Username, cfg.Password)

	case utils.QueueTypeRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.QueueTypeKafka:
		return newKafkaPublisher(KafkaConfig{Brokers: cfg.KafkaBrokers})

	case utils.QueueTypeMemory:
		return NewMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: none, nats, redis, kafka, memory)", queueType)
	}
}
