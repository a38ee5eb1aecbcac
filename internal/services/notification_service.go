package services

import (
	"context"
	"fmt"
	"strings"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"
)

// Notifier delivers chat messages to a user id
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

// NotificationService renders and sends allocation messages. Delivery
// failures are logged and counted, never returned to the allocation path.
type NotificationService struct {
	notifier Notifier
	settings *SettingsService
	waitlist *WaitlistService
	metrics  *metrics.MetricsRegistry
	adminID  int64
}

func NewNotificationService(notifier Notifier, settings *SettingsService, waitlist *WaitlistService, m *metrics.MetricsRegistry, adminID int64) *NotificationService {
	return &NotificationService{
		notifier: notifier,
		settings: settings,
		waitlist: waitlist,
		metrics:  m,
		adminID:  adminID,
	}
}

// RenderKeyMessage fills the template placeholders and appends the expiry line
func RenderKeyMessage(template string, r *Receipt) string {
	link := r.ProductLink
	if link == "" {
		link = "-"
	}
	text := strings.NewReplacer(
		"{key}", r.Key,
		"{duration}", r.Duration,
		"{product}", r.ProductName,
		"{link}", link,
	).Replace(template)

	return text + fmt.Sprintf(constants.MsgKeyExpiry, r.ExpiresAt.Format("2006-01-02 15:04 UTC"))
}

// KeyMessage renders the receipt with the current template
func (s *NotificationService) KeyMessage(ctx context.Context, r *Receipt) (string, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return "", err
	}
	return RenderKeyMessage(settings.KeyMessage, r), nil
}

// DeliverAssignments tells each waitlisted user about their key.
// Returns how many messages went out and how many failed.
func (s *NotificationService) DeliverAssignments(ctx context.Context, assignments []Assignment) (int, int) {
	sent, failed := 0, 0
	for _, a := range assignments {
		text, err := s.KeyMessage(ctx, a.Receipt)
		if err != nil {
			logging.Error("Failed to render key message", "user_id", a.UserID, "error", err)
			failed++
			continue
		}

		if err := s.send(ctx, "waitlist_key", a.UserID, constants.MsgKeyFromWaitlist+text); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// NotifyAdminWaitlisted tells the admin inventory ran dry. Sent once per entry.
func (s *NotificationService) NotifyAdminWaitlisted(ctx context.Context, user *gormModels.User, position int) {
	text := fmt.Sprintf(constants.MsgAdminWaitlistNotice, user.DisplayName(), position)
	if err := s.send(ctx, "admin_waitlist", s.adminID, text); err != nil {
		return
	}
	if err := s.waitlist.MarkAdminNotified(ctx, user.ID); err != nil {
		logging.Warn("Failed to flag admin notice", "user_id", user.ID, "error", err)
	}
}

// SendText delivers free text and records the outcome under kind
func (s *NotificationService) SendText(ctx context.Context, kind string, chatID int64, text string) error {
	return s.send(ctx, kind, chatID, text)
}

// SendPhoto delivers an image with caption and records the outcome under kind
func (s *NotificationService) SendPhoto(ctx context.Context, kind string, chatID int64, photoURL, caption string) error {
	err := s.notifier.SendPhoto(ctx, chatID, photoURL, caption)
	return s.record(kind, chatID, err)
}

func (s *NotificationService) send(ctx context.Context, kind string, chatID int64, text string) error {
	err := s.notifier.SendText(ctx, chatID, text)
	return s.record(kind, chatID, err)
}

func (s *NotificationService) record(kind string, chatID int64, err error) error {
	result := "ok"
	if err != nil {
		result = "failed"
		err = &TransportError{UserID: chatID, Err: err}
		logging.Warn("Message delivery failed", "kind", kind, "chat_id", chatID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(kind, result).Inc()
	}
	return err
}
