package obolus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/core-coin/obolus/internal/auth"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/validation"
)

// Page sizes of tip and transaction listings.
const (
	DefaultTipsLimit = 50
	MaxTipsLimit     = 200
	maxDisplayName   = 64
)

// dummyHash keeps Authenticate timing the same for unknown usernames.
var dummyHash, _ = auth.HashPassword("obolus-dummy-password")

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
}

// Register creates a viewer account with a zero balance.
func (o *Obolus) Register(ctx context.Context, username, displayName, password string) (*models.Account, error) {
	username = validation.NormalizeUsername(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, invalidInput(err)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if len([]rune(displayName)) > maxDisplayName {
		return nil, invalidInput(fmt.Errorf("display name longer than %d characters", maxDisplayName))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         models.RoleViewer,
		CreatedAt:    o.now().Unix(),
	}
	if err := o.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	o.logger.Infow("Account registered", "account_id", account.ID, "username", username)
	return account, nil
}

// Authenticate returns the account when the password matches.
func (o *Obolus) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := o.repo.GetAccountByUsername(ctx, validation.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			auth.CheckPassword(dummyHash, password)
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	// The platform wallet has no password and cannot log in.
	if account.PasswordHash == "" || !auth.CheckPassword(account.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}
	return account, nil
}

func (o *Obolus) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return o.repo.GetAccount(ctx, id)
}

func (o *Obolus) Transactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	return o.repo.ListTransactions(ctx, accountID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTipsLimit
	case limit > MaxTipsLimit:
		return MaxTipsLimit
	}
	return limit
}

// BecomeCreator gives a viewer account a slug, a payout balance and an overlay key.
func (o *Obolus) BecomeCreator(ctx context.Context, accountID int64, req *models.CreatorRequest) (*models.CreatorProfile, error) {
	if req == nil {
		return nil, invalidInput(errors.New("missing creator request"))
	}
	slug, err := validation.ValidateAndNormalizeSlug(req.Slug)
	if err != nil {
		return nil, invalidInput(err)
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, invalidInput(fmt.Errorf("invalid email %q", email))
	}

	account, err := o.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role != models.RoleViewer {
		return nil, models.ErrAlreadyCreator
	}

	profile := &models.CreatorProfile{
		AccountID:        account.ID,
		Slug:             slug,
		OverlayKey:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		TelegramUsername: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.TelegramUsername), "@")),
		Email:            email,
		CreatedAt:        o.now().Unix(),
	}
	if err := o.repo.CreateCreatorProfile(ctx, profile); err != nil {
		return nil, err
	}
	o.logger.Infow("Creator profile created", "account_id", account.ID, "slug", slug)
	return profile, nil
}

// GetCreatorProfile returns the caller's profile or ErrNotCreator.
func (o *Obolus) GetCreatorProfile(ctx context.Context, accountID int64) (*models.CreatorProfile, error) {
	profile, err := o.repo.GetCreatorProfileByAccount(ctx, accountID)
	if errors.Is(err, models.ErrProfileNotFound) {
		return nil, models.ErrNotCreator
	}
	return profile, err
}

// ResolveOverlayKey maps an overlay key to the profile it streams.
func (o *Obolus) ResolveOverlayKey(ctx context.Context, overlayKey string) (*models.CreatorProfile, error) {
	overlayKey = strings.TrimSpace(overlayKey)
	if overlayKey == "" {
		return nil, models.ErrProfileNotFound
	}
	return o.repo.GetCreatorProfileByOverlayKey(ctx, overlayKey)
}

// CreatorTips lists the tips of a creator, newest first.
func (o *Obolus) CreatorTips(ctx context.Context, slug string, limit int) ([]*models.Tip, error) {
	profile, err := o.repo.GetCreatorProfileBySlug(ctx, validation.NormalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	return o.repo.ListCreatorTips(ctx, profile.ID, clampLimit(limit))
}

// RequestWithdrawal moves amount out of the creator's payout balance into a
// pending withdrawal.
func (o *Obolus) RequestWithdrawal(ctx context.Context, accountID int64, amount int64, destination string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	destination = strings.TrimSpace(destination)
	if err := validation.ValidatePayoutDestination(destination); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := o.GetCreatorProfile(ctx, accountID); err != nil {
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		AccountID:   accountID,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawalPending,
		CreatedAt:   o.now().Unix(),
	}
	writeCtx, cancel := o.storeContext(ctx)
	defer cancel()
	if err := o.repo.RequestWithdrawal(writeCtx, withdrawal); err != nil {
		return nil, err
	}
	o.logger.Infow("Withdrawal requested", "account_id", accountID, "withdrawal_id", withdrawal.ID, "amount", amount)
	return withdrawal, nil
}
