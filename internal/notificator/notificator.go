package notificator

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/core-coin/obolus/internal/live"
	"github.com/core-coin/obolus/internal/metrics"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

// Sender delivers a text alert to one address (chat id, email address).
type Sender interface {
	SendNotification(ctx context.Context, to, message string) error
}

type Notificator struct {
	logger *logger.Logger
	hub    *live.Hub

	TelegramNotificator Sender
	EmailNotificator    Sender
}

// NewNotificator creates a notificator. telNotif and emailNotif may be nil when
// the channel is not configured.
func NewNotificator(logger *logger.Logger, hub *live.Hub, telNotif Sender, emailNotif Sender) *Notificator {
	return &Notificator{logger: logger, hub: hub, TelegramNotificator: telNotif, EmailNotificator: emailNotif}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func() error, channel string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailures.WithLabelValues(channel).Inc()
			n.logger.Errorw("Notification panicked",
				"channel", channel,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	if err := fn(); err != nil {
		metrics.NotificationFailures.WithLabelValues(channel).Inc()
		n.logger.Warnw("Notification failed", "channel", channel, "error", err)
	}
}

// NotifyTip publishes the tip to the creator's overlay topic and, in the
// background, to the creator's Telegram chat and email.
func (n *Notificator) NotifyTip(ctx context.Context, profile *models.CreatorProfile, event *models.TipEvent) error {
	if profile == nil || event == nil {
		return fmt.Errorf("notificator: profile and event are required")
	}

	delivered := n.hub.Publish(profile.Slug, live.Message{Type: live.MessageTypeTip, Data: event})
	n.logger.Debugw("Tip published", "slug", profile.Slug, "subscribers", delivered)

	if !n.hasExternal(profile) {
		return nil
	}
	message := event.String()
	// Detached from the request so a finished HTTP response does not cancel delivery.
	go n.sendExternal(context.WithoutCancel(ctx), profile, message)
	return nil
}

func (n *Notificator) hasExternal(profile *models.CreatorProfile) bool {
	return (n.TelegramNotificator != nil && profile.TelegramChatID != "") ||
		(n.EmailNotificator != nil && profile.Email != "")
}

func (n *Notificator) sendExternal(ctx context.Context, profile *models.CreatorProfile, message string) {
	if n.TelegramNotificator != nil && profile.TelegramChatID != "" {
		chatID := profile.TelegramChatID
		n.safeCall(func() error { return n.TelegramNotificator.SendNotification(ctx, chatID, message) }, "telegram")
	}
	if n.EmailNotificator != nil && profile.Email != "" {
		email := profile.Email
		n.safeCall(func() error { return n.EmailNotificator.SendNotification(ctx, email, message) }, "email")
	}
}
