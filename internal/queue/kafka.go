package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modcheck/backend/internal/models"

	"github.com/segmentio/kafka-go"
)

// KafkaSource reads triggers from a Kafka topic with a consumer group.
// Offsets are committed once the trigger is handed to the worker, so a crash
// mid-run drops that trigger instead of re-running it.
type KafkaSource struct {
	reader *kafka.Reader
	poll   time.Duration
}

func NewKafkaSource(brokers []string, groupID, topic string, poll time.Duration) (*KafkaSource, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka source requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka source requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka source requires a topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &KafkaSource{reader: reader, poll: poll}, nil
}

func (s *KafkaSource) Next(ctx context.Context) (models.Trigger, error) {
	var t models.Trigger
	readCtx, cancel := context.WithTimeout(ctx, s.poll)
	msg, err := s.reader.ReadMessage(readCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return t, ErrEmpty
		}
		return t, err
	}
	if err := decodeTrigger(msg.Value, &t); err != nil {
		slog.Warn("dropping malformed trigger", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return t, ErrEmpty
	}
	return t, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaPublisher writes triggers keyed by report id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, t models.Trigger) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(t.ID), Value: payload})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func decodeTrigger(data []byte, t *models.Trigger) error {
	if err := json.Unmarshal(data, t); err != nil {
		return err
	}
	if t.Model == "" || t.ID == "" {
		return fmt.Errorf("trigger needs model and id")
	}
	return nil
}
