package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/core-coin/obolus/internal/models"
)

var errPlatformWalletMissing = errors.New("platform wallet account is missing")

// debit subtracts amount from column of the row matched by where, only if the
// balance covers it. The conditional update is the only way balances go down.
func debit(tx *gorm.DB, model interface{}, column string, amount int64, where string, args ...interface{}) (bool, error) {
	args = append(args, amount)
	res := tx.Model(model).
		Where(where+" AND "+column+" >= ?", args...).
		Update(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func credit(tx *gorm.DB, model interface{}, column string, amount int64, where string, args ...interface{}) (bool, error) {
	res := tx.Model(model).
		Where(where, args...).
		Update(column, gorm.Expr(column+" + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SettleTip applies every effect of a tip in a single transaction.
// The sender is debited first with a conditional update, so two concurrent
// tips can never overdraw the same balance.
func (db *PostgresDB) SettleTip(ctx context.Context, transfer *models.TipTransfer) (*models.Tip, error) {
	if transfer.CreatorShare+transfer.PlatformShare != transfer.Amount {
		return nil, fmt.Errorf("%w: shares %d+%d do not add up to %d", models.ErrInvalidAmount, transfer.CreatorShare, transfer.PlatformShare, transfer.Amount)
	}

	var tip models.Tip
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := debit(tx, &models.Account{}, "balance", transfer.Amount, "id = ?", transfer.SenderID)
		if err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if !ok {
			return models.ErrInsufficientFunds
		}

		ok, err = credit(tx, &models.CreatorProfile{}, "payout_balance", transfer.CreatorShare, "id = ?", transfer.CreatorID)
		if err != nil {
			return fmt.Errorf("failed to credit creator: %w", err)
		}
		if !ok {
			return models.ErrReceiverNotFound
		}

		if transfer.PlatformShare > 0 {
			ok, err = credit(tx, &models.Account{}, "balance", transfer.PlatformShare, "role = ?", models.RolePlatform)
			if err != nil {
				return fmt.Errorf("failed to credit platform wallet: %w", err)
			}
			if !ok {
				return errPlatformWalletMissing
			}
		}

		tip = models.Tip{
			Reference:     transfer.Reference,
			SenderID:      transfer.SenderID,
			CreatorID:     transfer.CreatorID,
			Amount:        transfer.Amount,
			CreatorShare:  transfer.CreatorShare,
			PlatformShare: transfer.PlatformShare,
			Message:       transfer.Message,
			CreatedAt:     transfer.Timestamp,
		}
		if err := tx.Create(&tip).Error; err != nil {
			return fmt.Errorf("failed to record tip: %w", err)
		}

		senderID, creatorAccountID := transfer.SenderID, transfer.CreatorAccountID
		entries := []models.Transaction{
			{AccountID: &senderID, Kind: models.KindTipSent, Amount: transfer.Amount, Reference: transfer.Reference, CreatedAt: transfer.Timestamp},
			{AccountID: &creatorAccountID, Kind: models.KindTipReceived, Amount: transfer.CreatorShare, Reference: transfer.Reference, CreatedAt: transfer.Timestamp},
		}
		if transfer.PlatformShare > 0 {
			entries = append(entries, models.Transaction{Kind: models.KindPlatformFee, Amount: transfer.PlatformShare, Reference: transfer.Reference, CreatedAt: transfer.Timestamp})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to record tip transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	db.logger.Debugw("Tip settled", "reference", tip.Reference, "amount", tip.Amount)
	return &tip, nil
}

func (db *PostgresDB) GetTipByReference(ctx context.Context, reference string) (*models.Tip, error) {
	var tip models.Tip
	if err := db.Conn.WithContext(ctx).Where("reference = ?", reference).First(&tip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tip by reference: %w", err)
	}
	return &tip, nil
}

// ListCreatorTips returns the newest tips first.
func (db *PostgresDB) ListCreatorTips(ctx context.Context, creatorID int64, limit int) ([]*models.Tip, error) {
	var tips []*models.Tip
	if err := db.Conn.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&tips).Error; err != nil {
		return nil, fmt.Errorf("failed to list creator tips: %w", err)
	}
	return tips, nil
}

// CreditPurchase records the purchase and credits the account in one
// transaction. The external reference is checked first and backed by a unique
// index, so duplicate webhook deliveries credit at most once.
func (db *PostgresDB) CreditPurchase(ctx context.Context, purchase *models.Purchase) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("external_ref = ?", purchase.ExternalRef).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check payment reference: %w", err)
		}
		if count > 0 {
			return models.ErrDuplicatePayment
		}

		accountID, ref := purchase.AccountID, purchase.ExternalRef
		entry := models.Transaction{
			AccountID:   &accountID,
			Kind:        models.KindPurchase,
			Amount:      purchase.Amount,
			Reference:   ref,
			ExternalRef: &ref,
			CreatedAt:   purchase.Timestamp,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrDuplicatePayment
			}
			return fmt.Errorf("failed to record purchase: %w", err)
		}

		ok, err := credit(tx, &models.Account{}, "balance", purchase.Amount, "id = ? AND role <> ?", purchase.AccountID, models.RolePlatform)
		if err != nil {
			return fmt.Errorf("failed to credit account: %w", err)
		}
		if !ok {
			return models.ErrAccountNotFound
		}
		return nil
	})
}

func (db *PostgresDB) GetPurchaseByReference(ctx context.Context, externalRef string) (*models.Transaction, error) {
	var entry models.Transaction
	if err := db.Conn.WithContext(ctx).Where("external_ref = ?", externalRef).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase by reference: %w", err)
	}
	return &entry, nil
}

// RequestWithdrawal debits the creator payout balance and records a pending request.
func (db *PostgresDB) RequestWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := debit(tx, &models.CreatorProfile{}, "payout_balance", withdrawal.Amount, "account_id = ?", withdrawal.AccountID)
		if err != nil {
			return fmt.Errorf("failed to debit payout balance: %w", err)
		}
		if !ok {
			return models.ErrInsufficientFunds
		}

		if err := tx.Create(withdrawal).Error; err != nil {
			return fmt.Errorf("failed to record withdrawal: %w", err)
		}

		accountID := withdrawal.AccountID
		entry := models.Transaction{
			AccountID: &accountID,
			Kind:      models.KindWithdrawal,
			Amount:    withdrawal.Amount,
			Reference: "withdrawal:" + strconv.FormatInt(withdrawal.ID, 10),
			CreatedAt: withdrawal.CreatedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record withdrawal transaction: %w", err)
		}
		return nil
	})
}

func (db *PostgresDB) ListTransactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	var entries []*models.Transaction
	if err := db.Conn.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}

type kindTotal struct {
	Kind  models.TransactionKind
	Total int64
}

// LedgerTotals reads transaction sums and balances from one snapshot.
func (db *PostgresDB) LedgerTotals(ctx context.Context) (*models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SET TRANSACTION ISOLATION LEVEL REPEATABLE READ READ ONLY").Error; err != nil {
				return err
			}
		}

		var sums []kindTotal
		if err := tx.Model(&models.Transaction{}).
			Select("kind, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
			Group("kind").
			Scan(&sums).Error; err != nil {
			return err
		}
		for _, sum := range sums {
			switch sum.Kind {
			case models.KindTipSent:
				totals.TipsSent = sum.Total
			case models.KindTipReceived:
				totals.TipsReceived = sum.Total
			case models.KindPlatformFee:
				totals.PlatformFees = sum.Total
			case models.KindPurchase:
				totals.Purchases = sum.Total
			case models.KindWithdrawal:
				totals.Withdrawals = sum.Total
			}
		}

		if err := tx.Model(&models.Account{}).Select("CAST(COALESCE(SUM(balance), 0) AS BIGINT)").Where("role <> ?", models.RolePlatform).Row().Scan(&totals.AccountBalances); err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Select("CAST(COALESCE(SUM(balance), 0) AS BIGINT)").Where("role = ?", models.RolePlatform).Row().Scan(&totals.PlatformBalance); err != nil {
			return err
		}
		return tx.Model(&models.CreatorProfile{}).Select("CAST(COALESCE(SUM(payout_balance), 0) AS BIGINT)").Row().Scan(&totals.PayoutBalances)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger totals: %w", err)
	}
	return &totals, nil
}
