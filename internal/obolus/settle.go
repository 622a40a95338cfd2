package obolus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/core-coin/obolus/internal/config"
	"github.com/core-coin/obolus/internal/metrics"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/validation"
)

// MaxMessageLength is the longest tip message in characters.
const MaxMessageLength = 280

// SplitFee splits amount into the creator share and the platform fee for a fee
// rate in basis points. The creator share is floored, so the two always add up
// to amount exactly.
func SplitFee(amount, feeRateBPS int64) (creatorShare, platformShare int64) {
	keep := config.BasisPoints - feeRateBPS
	// amount*keep/BasisPoints without overflowing on large amounts.
	creatorShare = amount/config.BasisPoints*keep + (amount%config.BasisPoints)*keep/config.BasisPoints
	return creatorShare, amount - creatorShare
}

// Settle transfers amount tokens from the sender to the creator behind slug.
// Checks run in order: amount, sender, receiver, balance. Nothing is written
// before all of them pass. It is not idempotent: every call is a new tip.
func (o *Obolus) Settle(ctx context.Context, senderID int64, slug string, amount int64, message string) (*models.Settlement, error) {
	settlement, err := o.settle(ctx, senderID, slug, amount, message)
	if err != nil {
		metrics.SettlementFailures.WithLabelValues(string(models.ErrorKind(err))).Inc()
		return nil, err
	}
	metrics.TipsSettled.Inc()
	metrics.TipVolume.WithLabelValues("creator").Add(float64(settlement.CreatorReceived))
	metrics.TipVolume.WithLabelValues("platform").Add(float64(settlement.PlatformFee))
	return settlement, nil
}

func (o *Obolus) settle(ctx context.Context, senderID int64, slug string, amount int64, message string) (*models.Settlement, error) {
	if amount <= 0 || amount < o.config.MinTip {
		return nil, fmt.Errorf("%w: tips must be at least %d tokens", models.ErrInvalidAmount, o.config.MinTip)
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", models.ErrInvalidInput, MaxMessageLength)
	}

	sender, err := o.repo.GetAccount(ctx, senderID)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, models.ErrSenderNotFound
		}
		return nil, err
	}

	profile, err := o.repo.GetCreatorProfileBySlug(ctx, validation.NormalizeSlug(slug))
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, models.ErrReceiverNotFound
		}
		return nil, err
	}

	// Early answer only: the conditional debit in the store is what enforces it.
	if sender.Balance < amount {
		return nil, models.ErrInsufficientFunds
	}

	creatorShare, platformShare := SplitFee(amount, o.config.FeeRateBPS)
	now := o.now().Unix()
	transfer := &models.TipTransfer{
		Reference:        o.newReference(),
		SenderID:         sender.ID,
		CreatorID:        profile.ID,
		CreatorAccountID: profile.AccountID,
		Amount:           amount,
		CreatorShare:     creatorShare,
		PlatformShare:    platformShare,
		Message:          message,
		Timestamp:        now,
	}

	tip, err := o.applyTip(ctx, transfer)
	if err != nil {
		return nil, err
	}
	o.logger.Infow("Tip settled",
		"reference", tip.Reference,
		"sender", sender.Username,
		"slug", profile.Slug,
		"amount", amount,
		"creator_share", creatorShare,
		"platform_share", platformShare)

	o.notify(ctx, profile, &models.TipEvent{
		Slug:       profile.Slug,
		SenderName: sender.Name(),
		Amount:     amount,
		Message:    message,
		Timestamp:  now,
	})

	settlement := &models.Settlement{
		TipID:           tip.ID,
		Reference:       tip.Reference,
		Amount:          tip.Amount,
		CreatorReceived: tip.CreatorShare,
		PlatformFee:     tip.PlatformShare,
		SenderBalance:   sender.Balance - amount,
	}
	if updated, err := o.repo.GetAccount(ctx, sender.ID); err == nil {
		settlement.SenderBalance = updated.Balance
	}
	return settlement, nil
}

// applyTip writes the tip. When the write times out the outcome is unknown, so
// the tip is looked up by reference before anything is reported.
func (o *Obolus) applyTip(ctx context.Context, transfer *models.TipTransfer) (*models.Tip, error) {
	writeCtx, cancel := o.storeContext(ctx)
	tip, err := o.repo.SettleTip(writeCtx, transfer)
	timedOut := writeCtx.Err() != nil
	cancel()
	if err == nil {
		return tip, nil
	}
	if !timedOut {
		return nil, err
	}

	o.logger.Warnw("Tip write timed out, checking outcome", "reference", transfer.Reference, "error", err)
	lookupCtx, cancelLookup := o.recoveryContext(ctx)
	defer cancelLookup()
	existing, lookupErr := o.repo.GetTipByReference(lookupCtx, transfer.Reference)
	if lookupErr != nil {
		return nil, fmt.Errorf("tip %s outcome unknown: %w", transfer.Reference, errors.Join(err, lookupErr))
	}
	if existing == nil {
		return nil, fmt.Errorf("tip %s was not applied: %w", transfer.Reference, err)
	}
	o.logger.Infow("Tip was applied before the timeout", "reference", transfer.Reference)
	return existing, nil
}

// notify hands the event to the notification service. Errors and panics are
// logged and never reach the caller.
func (o *Obolus) notify(ctx context.Context, profile *models.CreatorProfile, event *models.TipEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailures.WithLabelValues("dispatch").Inc()
			o.logger.Errorw("Tip notification panicked", "slug", profile.Slug, "panic", r)
		}
	}()
	if o.notificator == nil {
		return
	}
	if err := o.notificator.NotifyTip(ctx, profile, event); err != nil {
		metrics.NotificationFailures.WithLabelValues("dispatch").Inc()
		o.logger.Warnw("Tip notification failed", "slug", profile.Slug, "error", err)
	}
}
