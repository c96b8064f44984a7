package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"health-risk/internal/assess"
	"health-risk/internal/schema"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestPublishAssessment(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w, "risk-assessments")

	payload := Assessment{
		RecordID:      "rec-1",
		UserID:        "user-1",
		SchemaVersion: schema.Version,
		Results: assess.Results{
			schema.KidneyStone: assess.FallbackResult(schema.KidneyStone),
		},
	}

	id, err := p.PublishAssessment(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, id, string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event-type", Value: []byte(TypeRiskAssessed)})
	assert.Contains(t, msg.Headers, kafka.Header{Key: "source", Value: []byte(Source)})

	var decoded struct {
		ID     string     `json:"id"`
		Type   string     `json:"type"`
		Source string     `json:"source"`
		Data   Assessment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, id, decoded.ID)
	assert.Equal(t, TypeRiskAssessed, decoded.Type)
	assert.Equal(t, Source, decoded.Source)
	assert.Equal(t, "user-1", decoded.Data.UserID)
	assert.Equal(t, 50.0, decoded.Data.Results[schema.KidneyStone].RiskScore)
}

func TestPublishAssessment_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewPublisherWithWriter(w, "risk-assessments")

	_, err := p.PublishAssessment(context.Background(), Assessment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk-assessments")
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewPublisherWithWriter(w, "t").Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_ConfiguresWriter(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "risk-assessments")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "risk-assessments", w.Topic)
	assert.True(t, w.Async)
	require.NoError(t, p.Close())
}
