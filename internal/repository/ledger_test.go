package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := NewSQLiteDB(dsn, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createAccount(t *testing.T, db *PostgresDB, username string, balance int64) *models.Account {
	t.Helper()
	account := &models.Account{Username: username, Role: models.RoleViewer, Balance: balance, CreatedAt: time.Now().Unix()}
	require.NoError(t, db.CreateAccount(context.Background(), account))
	return account
}

func createCreator(t *testing.T, db *PostgresDB, username, slug string) (*models.Account, *models.CreatorProfile) {
	t.Helper()
	account := createAccount(t, db, username, 0)
	profile := &models.CreatorProfile{AccountID: account.ID, Slug: slug, OverlayKey: uuid.NewString(), CreatedAt: time.Now().Unix()}
	require.NoError(t, db.CreateCreatorProfile(context.Background(), profile))
	return account, profile
}

func tipTransfer(sender *models.Account, creator *models.Account, profile *models.CreatorProfile, amount, creatorShare int64) *models.TipTransfer {
	return &models.TipTransfer{
		Reference:        uuid.NewString(),
		SenderID:         sender.ID,
		CreatorID:        profile.ID,
		CreatorAccountID: creator.ID,
		Amount:           amount,
		CreatorShare:     creatorShare,
		PlatformShare:    amount - creatorShare,
		Message:          "gg",
		Timestamp:        time.Now().Unix(),
	}
}

func platformBalance(t *testing.T, db *PostgresDB) int64 {
	t.Helper()
	account, err := db.GetAccountByUsername(context.Background(), models.PlatformUsername)
	require.NoError(t, err)
	return account.Balance
}

func TestPlatformWalletSeededOnce(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.migrate())

	var count int64
	require.NoError(t, db.Conn.Model(&models.Account{}).Where("role = ?", models.RolePlatform).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	createAccount(t, db, "alice", 0)

	err := db.CreateAccount(context.Background(), &models.Account{Username: "alice", Role: models.RoleViewer})
	require.Error(t, err)
}

func TestCreateCreatorProfilePromotesAccount(t *testing.T) {
	db := setupTestDB(t)
	account, profile := createCreator(t, db, "carol", "carol-live")

	stored, err := db.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCreator, stored.Role)

	bySlug, err := db.GetCreatorProfileBySlug(context.Background(), "carol-live")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, bySlug.ID)

	_, err = db.GetCreatorProfileBySlug(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	second := &models.CreatorProfile{AccountID: account.ID, Slug: "carol-two", OverlayKey: uuid.NewString()}
	assert.Error(t, db.CreateCreatorProfile(context.Background(), second))
}

func TestSettleTipAppliesAllEffects(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 500)
	creator, profile := createCreator(t, db, "carol", "carol")

	tip, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 100, 92))
	require.NoError(t, err)
	assert.NotZero(t, tip.ID)

	stored, err := db.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stored.Balance)

	storedProfile, err := db.GetCreatorProfileBySlug(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(92), storedProfile.PayoutBalance)
	assert.Equal(t, int64(8), platformBalance(t, db))

	var entries []models.Transaction
	require.NoError(t, db.Conn.Where("reference = ?", tip.Reference).Order("id").Find(&entries).Error)
	require.Len(t, entries, 3)
	assert.Equal(t, models.KindTipSent, entries[0].Kind)
	assert.Equal(t, int64(100), entries[0].Amount)
	assert.Equal(t, models.KindTipReceived, entries[1].Kind)
	assert.Equal(t, creator.ID, *entries[1].AccountID)
	assert.Equal(t, models.KindPlatformFee, entries[2].Kind)
	assert.Nil(t, entries[2].AccountID)

	found, err := db.GetTipByReference(ctx, tip.Reference)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, tip.ID, found.ID)
}

func TestSettleTipWithoutFeeSkipsPlatformEntry(t *testing.T) {
	db := setupTestDB(t)
	sender := createAccount(t, db, "alice", 50)
	creator, profile := createCreator(t, db, "carol", "carol")

	tip, err := db.SettleTip(context.Background(), tipTransfer(sender, creator, profile, 50, 50))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Conn.Model(&models.Transaction{}).Where("reference = ?", tip.Reference).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Zero(t, platformBalance(t, db))
}

func TestSettleTipInsufficientFundsLeavesBalances(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 5)
	creator, profile := createCreator(t, db, "carol", "carol")

	_, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 10, 9))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	stored, err := db.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Balance)

	var tips int64
	require.NoError(t, db.Conn.Model(&models.Tip{}).Count(&tips).Error)
	assert.Zero(t, tips)
}

func TestSettleTipRejectsUnbalancedShares(t *testing.T) {
	db := setupTestDB(t)
	sender := createAccount(t, db, "alice", 500)
	creator, profile := createCreator(t, db, "carol", "carol")

	transfer := tipTransfer(sender, creator, profile, 100, 92)
	transfer.PlatformShare = 9
	_, err := db.SettleTip(context.Background(), transfer)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestSettleTipRollsBackOnFailureAfterDebit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 500)
	creator, profile := createCreator(t, db, "carol", "carol")

	injected := errors.New("injected failure")
	require.NoError(t, db.Conn.Callback().Update().Before("gorm:update").Register("test:fail_payout_credit", func(tx *gorm.DB) {
		if tx.Statement.Table == "creator_profiles" {
			_ = tx.AddError(injected)
		}
	}))

	_, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 100, 92))
	require.ErrorIs(t, err, injected)

	stored, err := db.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	storedProfile, err := db.GetCreatorProfileBySlug(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Balance+storedProfile.PayoutBalance+platformBalance(t, db))
	assert.Equal(t, int64(500), stored.Balance)

	var entries int64
	require.NoError(t, db.Conn.Model(&models.Transaction{}).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestConcurrentTipsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 100)
	creator, profile := createCreator(t, db, "carol", "carol")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 10, 9))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	stored, err := db.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Balance)
}

func TestCreditPurchaseOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	viewer := createAccount(t, db, "alice", 0)

	purchase := &models.Purchase{AccountID: viewer.ID, Amount: 100, ExternalRef: "pay_123", Timestamp: time.Now().Unix()}
	require.NoError(t, db.CreditPurchase(ctx, purchase))
	assert.ErrorIs(t, db.CreditPurchase(ctx, purchase), models.ErrDuplicatePayment)

	stored, err := db.GetAccount(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Balance)

	entry, err := db.GetPurchaseByReference(ctx, "pay_123")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.KindPurchase, entry.Kind)

	missing, err := db.GetPurchaseByReference(ctx, "pay_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreditPurchaseUnknownAccountRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.CreditPurchase(ctx, &models.Purchase{AccountID: 9999, Amount: 100, ExternalRef: "pay_1"})
	require.ErrorIs(t, err, models.ErrAccountNotFound)

	entry, err := db.GetPurchaseByReference(ctx, "pay_1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListCreatorTipsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 1000)
	creator, profile := createCreator(t, db, "carol", "carol")

	base := time.Now().Unix()
	for i := 0; i < 3; i++ {
		transfer := tipTransfer(sender, creator, profile, int64(10*(i+1)), int64(9*(i+1)))
		transfer.PlatformShare = transfer.Amount - transfer.CreatorShare
		transfer.Timestamp = base + int64(i)
		_, err := db.SettleTip(ctx, transfer)
		require.NoError(t, err)
	}

	tips, err := db.ListCreatorTips(ctx, profile.ID, 2)
	require.NoError(t, err)
	require.Len(t, tips, 2)
	assert.Equal(t, int64(30), tips[0].Amount)
	assert.Equal(t, int64(20), tips[1].Amount)
}

func TestRequestWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 500)
	creator, profile := createCreator(t, db, "carol", "carol")
	_, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 100, 92))
	require.NoError(t, err)

	withdrawal := &models.Withdrawal{AccountID: creator.ID, Amount: 50, Destination: "carol@upi", Status: models.WithdrawalPending, CreatedAt: time.Now().Unix()}
	require.NoError(t, db.RequestWithdrawal(ctx, withdrawal))
	assert.NotZero(t, withdrawal.ID)

	tooMuch := &models.Withdrawal{AccountID: creator.ID, Amount: 50, Destination: "carol@upi", Status: models.WithdrawalPending}
	assert.ErrorIs(t, db.RequestWithdrawal(ctx, tooMuch), models.ErrInsufficientFunds)

	storedProfile, err := db.GetCreatorProfileBySlug(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(42), storedProfile.PayoutBalance)

	entries, err := db.ListTransactions(ctx, creator.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.KindWithdrawal, entries[0].Kind)
}

func TestLedgerTotals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sender := createAccount(t, db, "alice", 0)
	creator, profile := createCreator(t, db, "carol", "carol")

	require.NoError(t, db.CreditPurchase(ctx, &models.Purchase{AccountID: sender.ID, Amount: 500, ExternalRef: "pay_1"}))
	_, err := db.SettleTip(ctx, tipTransfer(sender, creator, profile, 100, 92))
	require.NoError(t, err)
	require.NoError(t, db.RequestWithdrawal(ctx, &models.Withdrawal{AccountID: creator.ID, Amount: 40, Destination: "carol@upi", Status: models.WithdrawalPending}))

	totals, err := db.LedgerTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerTotals{
		TipsSent:        100,
		TipsReceived:    92,
		PlatformFees:    8,
		Purchases:       500,
		Withdrawals:     40,
		AccountBalances: 400,
		PayoutBalances:  52,
		PlatformBalance: 8,
	}, *totals)
}
