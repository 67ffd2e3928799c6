// Package events publishes domain events to NATS.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/chirper/internal/model"
	"github.com/goccy/go-json"
	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectNotificationCreated carries NotificationCreated payloads.
const SubjectNotificationCreated = "notifications.created"

// NotificationCreated is published after a notification is persisted.
type NotificationCreated struct {
	ID        uuid.UUID              `json:"id"`
	Type      model.NotificationType `json:"type"`
	From      uuid.UUID              `json:"from"`
	To        uuid.UUID              `json:"to"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Publisher emits domain events.
type Publisher interface {
	NotificationCreated(ctx context.Context, n *model.Notification) error
}

// Nop drops every event. Used when NATS is not configured.
type Nop struct{}

// NotificationCreated implements Publisher.
func (Nop) NotificationCreated(context.Context, *model.Notification) error { return nil }

type conn interface {
	Publish(subject string, data []byte) error
}

// NATS publishes events on a NATS connection.
type NATS struct {
	nc  conn
	raw *nats.Conn
}

// Connect dials url with reconnect handling logged through log.
func Connect(url string, log *zap.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("chirper"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{nc: nc, raw: nc}, nil
}

// NotificationCreated implements Publisher.
func (p *NATS) NotificationCreated(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NotificationCreated{
		ID:        n.ID,
		Type:      n.Type,
		From:      n.From,
		To:        n.To,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectNotificationCreated, data)
}

// Close drains pending messages and closes the connection.
func (p *NATS) Close() {
	if p.raw != nil {
		_ = p.raw.Drain()
	}
}
