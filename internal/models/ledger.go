package models

// TransactionKind classifies an audit log entry.
type TransactionKind string

const (
	KindTipSent     TransactionKind = "tip_sent"
	KindTipReceived TransactionKind = "tip_received"
	KindPlatformFee TransactionKind = "platform_fee"
	KindPurchase    TransactionKind = "purchase"
	KindWithdrawal  TransactionKind = "withdrawal"
)

// Tip is the immutable record of one successful settlement.
type Tip struct {
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// Reference is generated before the write so the outcome of a timed out
	// settlement can be looked up.
	Reference     string `json:"reference" gorm:"column:reference;size:64;uniqueIndex;not null"`
	SenderID      int64  `json:"sender_id" gorm:"column:sender_id;index;not null"`
	CreatorID     int64  `json:"creator_id" gorm:"column:creator_id;index;not null"`
	Amount        int64  `json:"amount" gorm:"column:amount;not null"`
	CreatorShare  int64  `json:"creator_share" gorm:"column:creator_share;not null"`
	PlatformShare int64  `json:"platform_share" gorm:"column:platform_share;not null"`
	Message       string `json:"message" gorm:"column:message;size:500"`
	CreatedAt     int64  `json:"created_at" gorm:"column:created_at;index"`
}

// Transaction is an append-only audit record of a balance effect.
type Transaction struct {
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// AccountID is nil for platform fee entries.
	AccountID *int64          `json:"account_id" gorm:"column:account_id;index"`
	Kind      TransactionKind `json:"kind" gorm:"column:kind;size:32;index;not null"`
	Amount    int64           `json:"amount" gorm:"column:amount;not null"`
	// Reference links the entry to a tip reference or withdrawal id.
	Reference string `json:"reference,omitempty" gorm:"column:reference;size:128;index"`
	// ExternalRef is the payment gateway id of a purchase. Unique, so a payment
	// can be credited at most once.
	ExternalRef *string `json:"external_ref,omitempty" gorm:"column:external_ref;size:128;uniqueIndex"`
	CreatedAt   int64   `json:"created_at" gorm:"column:created_at;index"`
}

// WithdrawalStatus is the processing state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalProcessed WithdrawalStatus = "processed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is a creator's request to pay out part of the payout balance.
type Withdrawal struct {
	ID          int64            `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	AccountID   int64            `json:"account_id" gorm:"column:account_id;index;not null"`
	Amount      int64            `json:"amount" gorm:"column:amount;not null"`
	Destination string           `json:"destination" gorm:"column:destination;size:128;not null"`
	Status      WithdrawalStatus `json:"status" gorm:"column:status;size:16;not null;default:pending"`
	CreatedAt   int64            `json:"created_at" gorm:"column:created_at"`
}

// TipTransfer is a validated settlement ready to be applied to the store.
type TipTransfer struct {
	Reference string
	SenderID  int64
	CreatorID int64
	// CreatorAccountID is the account behind CreatorID, used for the audit row.
	CreatorAccountID int64
	Amount           int64
	CreatorShare     int64
	PlatformShare    int64
	Message          string
	Timestamp        int64
}

// Settlement is the result of a successful tip.
type Settlement struct {
	TipID           int64  `json:"tip_id"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	CreatorReceived int64  `json:"creatorReceived"`
	PlatformFee     int64  `json:"platformFee"`
	SenderBalance   int64  `json:"senderBalance"`
}

// Purchase is a verified gateway payment to credit.
type Purchase struct {
	AccountID   int64
	Amount      int64
	ExternalRef string
	Timestamp   int64
}

// LedgerTotals are the sums the audit sweep compares.
type LedgerTotals struct {
	TipsSent        int64 `json:"tips_sent"`
	TipsReceived    int64 `json:"tips_received"`
	PlatformFees    int64 `json:"platform_fees"`
	Purchases       int64 `json:"purchases"`
	Withdrawals     int64 `json:"withdrawals"`
	AccountBalances int64 `json:"account_balances"`
	PayoutBalances  int64 `json:"payout_balances"`
	PlatformBalance int64 `json:"platform_balance"`
}
