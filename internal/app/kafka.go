package app

import (
	"go.uber.org/zap"

	"booking/internal/config"
	"booking/internal/events"
)

// NewEventPublisher returns a Kafka publisher for the orders topic, or a
// no-op publisher when no brokers are configured. The returned close func
// flushes pending writes.
func NewEventPublisher(cfg config.KafkaConfig, log *zap.Logger) (events.Publisher, func() error) {
	if cfg.Brokers == "" {
		log.Info("kafka disabled, order events are dropped")
		return events.NopPublisher{}, func() error { return nil }
	}

	publisher := events.NewKafkaPublisher(cfg.Brokers, cfg.OrdersTopic)
	log.Info("kafka enabled", zap.String("brokers", cfg.Brokers), zap.String("topic", cfg.OrdersTopic))
	return publisher, publisher.Close
}
