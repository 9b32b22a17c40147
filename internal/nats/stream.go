package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/model"
)

const (
	// StreamName is the name of the audit event stream.
	StreamName = "BOT_EVENTS"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "bot"
)

// StreamManager handles the audit stream and implements the controller's
// Publisher.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Bot update, reply, and provider failure events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish records one audit event. Publishing is fire-and-forget: failures
// are logged and never surfaced to the conversation flow.
func (m *StreamManager) Publish(ctx context.Context, event *model.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		m.client.logger.Error("failed to encode audit event", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s.%d", SubjectPrefix, event.Type, event.UserID)
	if _, err := m.client.js.PublishAsync(subject, data); err != nil {
		m.client.logger.Warn("failed to publish audit event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
