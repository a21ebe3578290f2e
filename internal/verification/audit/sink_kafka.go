package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"landtrust/internal/platform/kafka/producer"
)

// MessageProducer is the subset of the Kafka producer the sink needs.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events as JSON, keyed by descriptor hash so every
// verification of the same owner lands on one partition.
type KafkaSink struct {
	producer MessageProducer
	topic    string
}

func NewKafkaSink(p MessageProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.DescriptorHash),
		Value: payload,
		Headers: map[string]string{
			"event_type": event.Type,
		},
	}
	if event.RequestID != "" {
		msg.Headers["request_id"] = event.RequestID
	}
	return s.producer.Produce(ctx, msg)
}
