package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/pkg/logger"
)

const (
	// StreamName is the name of the query event stream.
	StreamName = "QUERIES"

	// SubjectPrefix is the prefix for all query subjects.
	SubjectPrefix = "queries"
)

// QueryCreatedEvent is published when a new query thread is opened.
type QueryCreatedEvent struct {
	QueryID   string    `json:"queryId"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageAppendedEvent is published when a message lands on a thread.
type MessageAppendedEvent struct {
	QueryID   string       `json:"queryId"`
	EventID   string       `json:"eventId"`
	MessageID string       `json:"messageId"`
	Sender    model.Sender `json:"sender"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Publisher publishes query lifecycle events to JetStream. A nil Publisher
// is valid and publishes nothing, which is how the service runs when NATS
// is not configured.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a publisher on an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// EnsureStream ensures the query event stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Query thread lifecycle and message events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func messageSubject(eventID, queryID string, sender model.Sender) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, eventID, queryID, sender)
}

func createdSubject(eventID, queryID string) string {
	return fmt.Sprintf("%s.%s.%s.created", SubjectPrefix, eventID, queryID)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("failed to marshal query event")
		return
	}
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.logger.Warn("failed to publish query event")
	}
}

// QueryCreated publishes a thread-created event.
func (p *Publisher) QueryCreated(ctx context.Context, q *model.Query) {
	if p == nil {
		return
	}
	p.publish(ctx, createdSubject(q.EventID.String(), q.ID), QueryCreatedEvent{
		QueryID:   q.ID,
		EventID:   q.EventID.String(),
		UserID:    q.UserID.String(),
		CreatedAt: q.CreatedAt,
	})
}

// MessageAppended publishes a message-appended event.
func (p *Publisher) MessageAppended(ctx context.Context, q *model.Query, msg model.Message) {
	if p == nil {
		return
	}
	p.publish(ctx, messageSubject(q.EventID.String(), q.ID, msg.Sender), MessageAppendedEvent{
		QueryID:   q.ID,
		EventID:   q.EventID.String(),
		MessageID: msg.ID,
		Sender:    msg.Sender,
		CreatedAt: msg.CreatedAt,
	})
}
