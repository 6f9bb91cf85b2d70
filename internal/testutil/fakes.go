package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/quizhub/apiserver/internal/mail"
	"github.com/quizhub/apiserver/internal/storage"
)

// Outbox records every message handed to it instead of delivering it.
type Outbox struct {
	mu       sync.Mutex
	messages []mail.Message

	// Err, when set, fails every send.
	Err error
}

func (o *Outbox) Send(ctx context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *Outbox) Messages() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.messages...)
}

// Last returns the most recent message, or the zero Message.
func (o *Outbox) Last() mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return mail.Message{}
	}
	return o.messages[len(o.messages)-1]
}

// PublishedEvent is one call to Events.Publish.
type PublishedEvent struct {
	Type    string
	Payload any
}

// Events records published domain events.
type Events struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (e *Events) Publish(ctx context.Context, eventType string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, PublishedEvent{Type: eventType, Payload: payload})
}

// Types lists the published event types in order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]string, 0, len(e.events))
	for _, event := range e.events {
		types = append(types, event.Type)
	}
	return types
}

// Covers is an in-memory cover store.
type Covers struct {
	mu      sync.Mutex
	objects map[int64]coverObject
}

type coverObject struct {
	data        []byte
	contentType string
}

func NewCovers() *Covers {
	return &Covers{objects: make(map[int64]coverObject)}
}

func (c *Covers) PutQuizCover(ctx context.Context, quizID int64, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[quizID] = coverObject{data: data, contentType: contentType}
	return nil
}

func (c *Covers) GetQuizCover(ctx context.Context, quizID int64) (storage.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[quizID]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (c *Covers) DeleteQuizCover(ctx context.Context, quizID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, quizID)
	return nil
}

// Has reports whether a cover is stored for quizID.
func (c *Covers) Has(quizID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.objects[quizID]
	return ok
}
