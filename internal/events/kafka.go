package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront-admin/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher writes events to Kafka, routing by event type
type KafkaPublisher struct {
	writer *kafka.Writer
	cfg    config.KafkaConfig
	log    *logrus.Logger
}

// NewPublisher returns a Kafka publisher, or Nop when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig, log *logrus.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("Kafka brokers not configured, events are not published")
		return Nop{}
	}
	return NewKafkaPublisher(cfg, log)
}

func NewKafkaPublisher(cfg config.KafkaConfig, log *logrus.Logger) *KafkaPublisher {
	// Topic is set per message.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, cfg: cfg, log: log}
}

// TopicFor maps an event type to its topic
func (p *KafkaPublisher) TopicFor(t EventType) string {
	if strings.HasPrefix(string(t), "order.") {
		return p.cfg.OrdersTopic
	}
	return p.cfg.RulesTopic
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.TopicFor(evt.Type),
		Key:   []byte(evt.EntityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
	}

	fields := logrus.Fields{
		"event_id":   evt.ID,
		"event_type": evt.Type,
		"entity_id":  evt.EntityID,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithFields(fields).WithError(err).Error("Failed to publish event")
		return err
	}
	p.log.WithFields(fields).Debug("Event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
