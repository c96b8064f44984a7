// Package events publishes completed assessments to Kafka for downstream
// consumers such as analytics and notification services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"health-risk/internal/assess"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	TypeRiskAssessed = "risk.assessed"
	Source           = "riskd"
)

// Event is the envelope written to the topic.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Assessment is the payload of a risk.assessed event. Raw answers are not
// included.
type Assessment struct {
	RecordID      string         `json:"record_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	SchemaVersion int            `json:"schema_version"`
	Results       assess.Results `json:"results"`
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes assessment events to one topic.
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher creates an asynchronous Kafka publisher. Delivery failures are
// logged from the writer's completion callback.
func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Str("topic", topic).Int("messages", len(messages)).Msg("Failed to deliver events")
			}
		},
	}
	return NewPublisherWithWriter(writer, topic)
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishAssessment sends a risk.assessed event and returns its id.
func (p *Publisher) PublishAssessment(ctx context.Context, payload Assessment) (string, error) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      TypeRiskAssessed,
		Source:    Source,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.ID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Str("topic", p.topic).Msg("Failed to publish event")
		return "", fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}

	log.Debug().Str("event_id", event.ID).Str("topic", p.topic).Msg("Event published")
	return event.ID, nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
