package models

import (
	"context"
	"fmt"
)

// TipEvent is pushed to a creator's subscribers when a tip settles.
type TipEvent struct {
	Slug       string `json:"-"`
	SenderName string `json:"senderDisplayName"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

func (e *TipEvent) String() string {
	if e.Message == "" {
		return fmt.Sprintf("%s tipped you %d tokens", e.SenderName, e.Amount)
	}
	return fmt.Sprintf("%s tipped you %d tokens: %s", e.SenderName, e.Amount, e.Message)
}

// NotificationService delivers tip events. Delivery is best effort.
type NotificationService interface {
	NotifyTip(ctx context.Context, profile *CreatorProfile, event *TipEvent) error
}
