package models

import "context"

type ObolusI interface {
	// Start runs the ledger audit sweep until ctx is cancelled
	Start(ctx context.Context)

	// Settle transfers amount from the sender to the creator with the given slug,
	// splitting off the platform fee.
	Settle(ctx context.Context, senderID int64, slug string, amount int64, message string) (*Settlement, error)

	// ReconcilePayment verifies and applies a payment gateway webhook.
	ReconcilePayment(ctx context.Context, rawPayload []byte, signature string) (*WebhookOutcome, error)

	Register(ctx context.Context, username, displayName, password string) (*Account, error)
	Authenticate(ctx context.Context, username, password string) (*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	// Transactions lists the audit entries of an account, newest first.
	Transactions(ctx context.Context, accountID int64, limit int) ([]*Transaction, error)

	BecomeCreator(ctx context.Context, accountID int64, req *CreatorRequest) (*CreatorProfile, error)
	GetCreatorProfile(ctx context.Context, accountID int64) (*CreatorProfile, error)
	ResolveOverlayKey(ctx context.Context, overlayKey string) (*CreatorProfile, error)
	CreatorTips(ctx context.Context, slug string, limit int) ([]*Tip, error)

	RequestWithdrawal(ctx context.Context, accountID int64, amount int64, destination string) (*Withdrawal, error)

	// Audit compares ledger totals with balances
	Audit(ctx context.Context) (*AuditReport, error)
}

// CreatorRequest holds the fields of creator onboarding.
type CreatorRequest struct {
	Slug             string
	TelegramUsername string
	Email            string
}

// WebhookStatus is reported back to the payment gateway.
type WebhookStatus string

const (
	WebhookOK      WebhookStatus = "ok"
	WebhookIgnored WebhookStatus = "ignored"
)

// WebhookOutcome describes what a webhook delivery did.
type WebhookOutcome struct {
	Status WebhookStatus `json:"status"`
	// Credited is true only for the delivery that changed a balance.
	Credited bool `json:"-"`
	// Reason explains no-op outcomes in logs.
	Reason string `json:"-"`
}

// AuditReport is the result of a ledger reconciliation sweep.
type AuditReport struct {
	Totals        LedgerTotals `json:"totals"`
	Discrepancies []string     `json:"discrepancies"`
}

// Balanced reports whether every ledger identity holds.
func (r *AuditReport) Balanced() bool {
	return len(r.Discrepancies) == 0
}

type APIServer interface {
	Start()
	Shutdown() error
}
