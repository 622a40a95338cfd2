package obolus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/core-coin/obolus/internal/metrics"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/signature"
	"github.com/core-coin/obolus/pkg/validation"
)

// EventPaymentCaptured is the only gateway event that credits an account.
const EventPaymentCaptured = "payment.captured"

type paymentWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	// Notes is an object, or an empty array when the payment has no notes.
	Notes json.RawMessage `json:"notes"`
}

func (e *paymentEntity) username() string {
	notes := bytes.TrimSpace(e.Notes)
	if len(notes) == 0 || notes[0] != '{' {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(notes, &fields); err != nil {
		return ""
	}
	username, _ := fields["username"].(string)
	return validation.NormalizeUsername(username)
}

// ReconcilePayment verifies the signature over the raw body and credits the
// purchase to the account named in the payment notes. Every delivery with a
// valid signature is acknowledged, including duplicates and deliveries that
// change nothing. Only store failures are returned so the gateway retries them.
func (o *Obolus) ReconcilePayment(ctx context.Context, rawPayload []byte, sig string) (*models.WebhookOutcome, error) {
	outcome, err := o.reconcilePayment(ctx, rawPayload, sig)
	switch {
	case errors.Is(err, models.ErrInvalidSignature):
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
	case err != nil:
		metrics.WebhookEvents.WithLabelValues("error").Inc()
	case outcome.Credited:
		metrics.WebhookEvents.WithLabelValues("credited").Inc()
	default:
		metrics.WebhookEvents.WithLabelValues(string(outcome.Status)).Inc()
	}
	return outcome, err
}

func (o *Obolus) reconcilePayment(ctx context.Context, rawPayload []byte, sig string) (*models.WebhookOutcome, error) {
	if !signature.Verify([]byte(o.config.WebhookSecret), rawPayload, sig) {
		o.logger.Warnw("Webhook signature rejected",
			"security_event", "webhook_signature_invalid",
			"payload_bytes", len(rawPayload))
		return nil, models.ErrInvalidSignature
	}

	var event paymentWebhook
	if err := json.Unmarshal(rawPayload, &event); err != nil {
		o.logger.Errorw("Signed webhook payload is not valid JSON", "error", err)
		return noop(models.WebhookIgnored, "malformed payload"), nil
	}
	if event.Event != EventPaymentCaptured {
		o.logger.Debugw("Ignoring webhook event", "event", event.Event)
		return noop(models.WebhookIgnored, "event "+event.Event), nil
	}

	entity := &event.Payload.Payment.Entity
	if entity.ID == "" {
		o.logger.Warnw("Captured payment without id", "amount", entity.Amount)
		return noop(models.WebhookOK, "missing payment id"), nil
	}
	tokens := entity.Amount / o.config.MinorUnitsPerToken
	if tokens <= 0 {
		o.logger.Warnw("Captured payment below one token", "payment_id", entity.ID, "amount", entity.Amount, "currency", entity.Currency)
		return noop(models.WebhookOK, "amount below one token"), nil
	}
	username := entity.username()
	if username == "" {
		o.logger.Warnw("Captured payment without target", "payment_id", entity.ID, "error", models.ErrMissingTarget)
		return noop(models.WebhookOK, models.ErrMissingTarget.Error()), nil
	}

	account, err := o.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			o.logger.Warnw("Captured payment for unknown account", "payment_id", entity.ID, "username", username)
			return noop(models.WebhookOK, "unknown account"), nil
		}
		return nil, err
	}
	if account.Role == models.RolePlatform {
		o.logger.Warnw("Captured payment targets the platform wallet", "payment_id", entity.ID)
		return noop(models.WebhookOK, "platform account"), nil
	}

	purchase := &models.Purchase{
		AccountID:   account.ID,
		Amount:      tokens,
		ExternalRef: entity.ID,
		Timestamp:   o.now().Unix(),
	}
	return o.applyPurchase(ctx, purchase, username)
}

func (o *Obolus) applyPurchase(ctx context.Context, purchase *models.Purchase, username string) (*models.WebhookOutcome, error) {
	writeCtx, cancel := o.storeContext(ctx)
	err := o.repo.CreditPurchase(writeCtx, purchase)
	timedOut := writeCtx.Err() != nil
	cancel()

	switch {
	case err == nil:
		o.logger.Infow("Purchase credited", "payment_id", purchase.ExternalRef, "username", username, "tokens", purchase.Amount)
		return &models.WebhookOutcome{Status: models.WebhookOK, Credited: true}, nil
	case errors.Is(err, models.ErrDuplicatePayment):
		o.logger.Infow("Duplicate payment delivery", "payment_id", purchase.ExternalRef)
		return noop(models.WebhookOK, "duplicate"), nil
	case errors.Is(err, models.ErrAccountNotFound):
		o.logger.Warnw("Purchase target disappeared", "payment_id", purchase.ExternalRef, "username", username)
		return noop(models.WebhookOK, "unknown account"), nil
	case !timedOut:
		return nil, err
	}

	o.logger.Warnw("Purchase write timed out, checking outcome", "payment_id", purchase.ExternalRef, "error", err)
	lookupCtx, cancelLookup := o.recoveryContext(ctx)
	defer cancelLookup()
	entry, lookupErr := o.repo.GetPurchaseByReference(lookupCtx, purchase.ExternalRef)
	if lookupErr != nil {
		return nil, fmt.Errorf("payment %s outcome unknown: %w", purchase.ExternalRef, errors.Join(err, lookupErr))
	}
	if entry == nil {
		return nil, fmt.Errorf("payment %s was not credited: %w", purchase.ExternalRef, err)
	}
	return &models.WebhookOutcome{Status: models.WebhookOK, Credited: true}, nil
}

func noop(status models.WebhookStatus, reason string) *models.WebhookOutcome {
	return &models.WebhookOutcome{Status: status, Reason: reason}
}
