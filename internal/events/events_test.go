package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhub/apiserver/config"
	"github.com/quizhub/apiserver/internal/logger"
)

type published struct {
	topic  string
	data   []byte
	attrs  map[string]string
	ctxErr error
}

type recordingBackend struct {
	sent   []published
	err    error
	closed bool
}

func (r *recordingBackend) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, published{topic: topic, data: data, attrs: attrs, ctxErr: ctx.Err()})
	return "msg-1", nil
}

func (r *recordingBackend) Close() error {
	r.closed = true
	return nil
}

func TestBusPublishWrapsPayload(t *testing.T) {
	backend := &recordingBackend{}
	bus := New(backend, logger.Discard())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	bus.Publish(context.Background(), QuizCreated, map[string]int64{"quiz_id": 7})

	require.Len(t, backend.sent, 1)
	msg := backend.sent[0]
	assert.Equal(t, QuizCreated, msg.topic)

	var event Event
	require.NoError(t, json.Unmarshal(msg.data, &event))
	assert.Equal(t, QuizCreated, event.Type)
	assert.Equal(t, fixed, event.OccurredAt)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, event.ID, msg.attrs["event_id"])
	assert.JSONEq(t, `{"quiz_id":7}`, string(event.Payload))
}

func TestBusPublishSurvivesCanceledRequest(t *testing.T) {
	backend := &recordingBackend{}
	bus := New(backend, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, UserActivated, map[string]int64{"user_id": 1})

	require.Len(t, backend.sent, 1)
	assert.NoError(t, backend.sent[0].ctxErr)
}

func TestBusPublishSwallowsErrors(t *testing.T) {
	backend := &recordingBackend{err: errors.New("broker down")}
	bus := New(backend, logger.Discard())

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), AnnouncementLiked, map[string]int{"likes": 1})
	})
	assert.Empty(t, backend.sent)
}

func TestBusWithoutBackend(t *testing.T) {
	bus := New(nil, logger.Discard())
	bus.Publish(context.Background(), UserRegistered, nil)
	assert.NoError(t, bus.Close())

	var none *Bus
	none.Publish(context.Background(), UserRegistered, nil)
	assert.NoError(t, none.Close())
}

func TestBusClose(t *testing.T) {
	backend := &recordingBackend{}
	require.NoError(t, New(backend, logger.Discard()).Close())
	assert.True(t, backend.closed)
}

func TestOpen(t *testing.T) {
	backend, err := Open(context.Background(), config.EventsConfig{})
	require.NoError(t, err)
	assert.Nil(t, backend)

	_, err = Open(context.Background(), config.EventsConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.EventsConfig{Backend: "rabbitmq"})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.EventsConfig{Backend: "pubsub"})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestTopicName(t *testing.T) {
	assert.Equal(t, "quizhub-announcement-liked", TopicName("quizhub-", AnnouncementLiked))
	assert.Equal(t, "quiz-created", TopicName("", QuizCreated))
}
