package models

// Role is the kind of an account.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleCreator  Role = "creator"
	RolePlatform Role = "platform"
)

// PlatformUsername is the fixed username of the platform wallet account.
const PlatformUsername = "platform"

// Account represents a user of the platform.
// The platform wallet is stored as the single account with RolePlatform.
type Account struct {
	// ID is the unique identifier for the account.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// Username is the unique login name of the account.
	Username string `json:"username" gorm:"column:username;size:64;uniqueIndex;not null"`
	// DisplayName is shown to creators when this account tips them.
	DisplayName string `json:"display_name" gorm:"column:display_name;size:64"`
	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `json:"-" gorm:"column:password_hash"`
	// Role is viewer, creator or platform.
	Role Role `json:"role" gorm:"column:role;size:16;not null;default:viewer"`
	// Balance is the token balance in the smallest token unit. Never negative.
	Balance int64 `json:"balance" gorm:"column:balance;not null;default:0;check:balance >= 0"`
	// CreatedAt is the unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
}

// Name returns the name shown in tip notifications.
func (a *Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// CreatorProfile is the 1:1 extension of a creator account.
type CreatorProfile struct {
	// ID is the unique identifier for the profile.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// AccountID is the owning account.
	AccountID int64 `json:"account_id" gorm:"column:account_id;uniqueIndex;not null"`
	// Slug is the public routing key used for tipping and notification topics.
	Slug string `json:"slug" gorm:"column:slug;size:64;uniqueIndex;not null"`
	// OverlayKey is the view-only capability used by the stream overlay to subscribe.
	OverlayKey string `json:"-" gorm:"column:overlay_key;size:64;uniqueIndex;not null"`
	// PayoutBalance is the creator's earned share pending withdrawal. Never negative.
	PayoutBalance int64 `json:"payout_balance" gorm:"column:payout_balance;not null;default:0;check:payout_balance >= 0"`
	// TelegramUsername links the profile to a Telegram user for tip alerts.
	TelegramUsername string `json:"telegram_username,omitempty" gorm:"column:telegram_username;size:64;index"`
	// TelegramChatID is recorded when the Telegram user sends /start to the bot.
	TelegramChatID string `json:"-" gorm:"column:telegram_chat_id;size:64"`
	// Email receives tip alerts when SMTP is configured.
	Email string `json:"email,omitempty" gorm:"column:email;size:255"`
	// CreatedAt is the unix timestamp when the profile was created.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
}
