package models

import "context"

type Repository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)

	CreateCreatorProfile(ctx context.Context, profile *CreatorProfile) error
	GetCreatorProfileByAccount(ctx context.Context, accountID int64) (*CreatorProfile, error)
	GetCreatorProfileBySlug(ctx context.Context, slug string) (*CreatorProfile, error)
	GetCreatorProfileByOverlayKey(ctx context.Context, overlayKey string) (*CreatorProfile, error)
	GetCreatorProfileByTelegramUsername(ctx context.Context, username string) (*CreatorProfile, error)
	SetTelegramChatID(ctx context.Context, profileID int64, chatID string) error

	// SettleTip applies a tip atomically: debit, credits, tip row and audit rows.
	SettleTip(ctx context.Context, transfer *TipTransfer) (*Tip, error)
	GetTipByReference(ctx context.Context, reference string) (*Tip, error)
	ListCreatorTips(ctx context.Context, creatorID int64, limit int) ([]*Tip, error)

	// CreditPurchase credits a gateway payment once per external reference.
	// A reference that was already credited returns ErrDuplicatePayment.
	CreditPurchase(ctx context.Context, purchase *Purchase) error
	GetPurchaseByReference(ctx context.Context, externalRef string) (*Transaction, error)

	RequestWithdrawal(ctx context.Context, withdrawal *Withdrawal) error

	LedgerTotals(ctx context.Context) (*LedgerTotals, error)
	ListTransactions(ctx context.Context, accountID int64, limit int) ([]*Transaction, error)

	Close() error
}
