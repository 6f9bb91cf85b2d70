// Package events publishes domain notifications to a message broker. Delivery
// is best effort: publish failures are logged and never returned to callers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/config"
)

const (
	QuizCreated         = "quiz.created"
	AnnouncementCreated = "announcement.created"
	AnnouncementLiked   = "announcement.liked"
	UserRegistered      = "user.registered"
	UserActivated       = "user.activated"
)

const publishTimeout = 5 * time.Second

// Event is the envelope written to the broker.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Bus wraps a backend with the event envelope.
type Bus struct {
	backend Backend
	log     *logrus.Entry
	now     func() time.Time
}

// New constructs a Bus. A nil backend drops every event.
func New(backend Backend, log *logrus.Entry) *Bus {
	return &Bus{backend: backend, log: log, now: time.Now}
}

// Open connects the backend selected by cfg.Backend. It returns nil, nil when
// events are disabled.
func Open(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// Publish wraps payload in an Event and hands it to the backend. The request
// context only contributes its values; cancellation is replaced by a fixed
// timeout so a finished request does not abort the publish.
func (b *Bus) Publish(ctx context.Context, eventType string, payload any) {
	if b == nil || b.backend == nil {
		return
	}

	log := b.log.WithField("event_type", eventType)
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("failed to encode event payload")
		return
	}
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: b.now().UTC(),
		Payload:    data,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{
		"event_id":   event.ID,
		"event_type": eventType,
	}
	messageID, err := b.backend.Publish(ctx, eventType, body, attrs)
	if err != nil {
		log.WithError(err).WithField("event_id", event.ID).Warn("failed to publish event")
		return
	}
	log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"message_id": messageID,
	}).Debug("event published")
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	if b == nil || b.backend == nil {
		return nil
	}
	return b.backend.Close()
}
