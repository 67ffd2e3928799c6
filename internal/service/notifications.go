package service

import (
	"context"
	"time"

	"github.com/and161185/chirper/internal/events"
	"github.com/and161185/chirper/internal/metrics"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// NotificationService exposes the recipient's notification log.
type NotificationService interface {
	// List returns the recipient's notifications as fetched and then marks all of them read.
	List(ctx context.Context, recipient uuid.UUID) ([]model.NotificationView, error)
	// DeleteAll removes every notification addressed to the recipient.
	DeleteAll(ctx context.Context, recipient uuid.UUID) error
}

// Notifier writes fan-out notifications and announces them on the event bus.
type Notifier struct {
	repo repository.NotificationRepository
	pub  events.Publisher
	m    *metrics.Metrics
	log  *zap.Logger
	now  func() time.Time
}

// NewNotifier constructs a Notifier. A nil publisher disables events.
func NewNotifier(repo repository.NotificationRepository, pub events.Publisher, m *metrics.Metrics, log *zap.Logger) *Notifier {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{repo: repo, pub: pub, m: m, log: log, now: time.Now}
}

// Notify persists a notification from -> to. Self-notifications are skipped.
// Publishing is best effort and never fails the call.
func (n *Notifier) Notify(ctx context.Context, typ model.NotificationType, from, to uuid.UUID) error {
	if from == to {
		return nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	rec := &model.Notification{ID: id, From: from, To: to, Type: typ, CreatedAt: n.now().UTC()}
	if err := n.repo.Create(ctx, rec); err != nil {
		return err
	}
	n.m.Notification(string(typ))

	if err := n.pub.NotificationCreated(ctx, rec); err != nil {
		n.m.PublishFailed()
		n.log.Warn("notification event not published",
			zap.String("notification_id", id.String()),
			zap.Error(err),
		)
	}
	return nil
}

type NotificationServiceImpl struct {
	repo     repository.NotificationRepository
	accounts repository.AccountRepository
}

var _ NotificationService = (*NotificationServiceImpl)(nil)

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo repository.NotificationRepository, accounts repository.AccountRepository) *NotificationServiceImpl {
	return &NotificationServiceImpl{repo: repo, accounts: accounts}
}

// List resolves senders and then marks everything read, so a repeated call sees read=true.
func (s *NotificationServiceImpl) List(ctx context.Context, recipient uuid.UUID) ([]model.NotificationView, error) {
	list, err := s.repo.ListForRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}

	senders := make([]uuid.UUID, 0, len(list))
	for _, n := range list {
		senders = append(senders, n.From)
	}
	who, err := s.accounts.Summaries(ctx, senders)
	if err != nil {
		return nil, err
	}

	out := make([]model.NotificationView, 0, len(list))
	for _, n := range list {
		from, ok := who[n.From]
		if !ok {
			from = model.AccountSummary{ID: n.From}
		}
		out = append(out, model.NotificationView{
			ID:        n.ID,
			From:      from,
			To:        n.To,
			Type:      n.Type,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}

	if err := s.repo.MarkAllRead(ctx, recipient); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAll is irreversible.
func (s *NotificationServiceImpl) DeleteAll(ctx context.Context, recipient uuid.UUID) error {
	return s.repo.DeleteAllForRecipient(ctx, recipient)
}
