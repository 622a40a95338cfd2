package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	db, err := Open(postgres.Open(dsn), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return db, nil
}

// Open connects through any gorm dialector, migrates the schema and seeds the
// platform wallet. Tests use it with an in-memory SQLite dialector.
func Open(dialector gorm.Dialector, logger *logger.Logger) (*PostgresDB, error) {
	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Use standard logger
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log queries slower than this
			LogLevel:                  gormLogger.Warn,        // Only log warnings or errors
			IgnoreRecordNotFoundError: true,                   // Suppress "record not found" errors
			Colorful:                  true,                   // Enable colorful logs
		},
	)
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}

	db := &PostgresDB{Conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *PostgresDB) migrate() error {
	if err := db.Conn.AutoMigrate(&models.Account{}, &models.CreatorProfile{}, &models.Tip{}, &models.Transaction{}, &models.Withdrawal{}); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	platform := models.Account{
		Username:    models.PlatformUsername,
		DisplayName: "Platform wallet",
		Role:        models.RolePlatform,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.Conn.Where(models.Account{Username: models.PlatformUsername}).FirstOrCreate(&platform).Error; err != nil {
		return fmt.Errorf("failed to seed platform wallet: %w", err)
	}
	if platform.Role != models.RolePlatform {
		return fmt.Errorf("username %q is held by a non-platform account", models.PlatformUsername)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := db.Conn.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (db *PostgresDB) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := db.Conn.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return &account, nil
}

// CreateCreatorProfile stores the profile and promotes the account to creator.
func (db *PostgresDB) CreateCreatorProfile(ctx context.Context, profile *models.CreatorProfile) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrSlugTaken
			}
			return fmt.Errorf("failed to create creator profile: %w", err)
		}
		res := tx.Model(&models.Account{}).
			Where("id = ? AND role = ?", profile.AccountID, models.RoleViewer).
			Update("role", models.RoleCreator)
		if res.Error != nil {
			return fmt.Errorf("failed to promote account: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return models.ErrAlreadyCreator
		}
		return nil
	})
}

func (db *PostgresDB) getCreatorProfile(ctx context.Context, query string, arg interface{}) (*models.CreatorProfile, error) {
	var profile models.CreatorProfile
	if err := db.Conn.WithContext(ctx).Where(query, arg).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get creator profile: %w", err)
	}
	return &profile, nil
}

func (db *PostgresDB) GetCreatorProfileByAccount(ctx context.Context, accountID int64) (*models.CreatorProfile, error) {
	return db.getCreatorProfile(ctx, "account_id = ?", accountID)
}

func (db *PostgresDB) GetCreatorProfileBySlug(ctx context.Context, slug string) (*models.CreatorProfile, error) {
	return db.getCreatorProfile(ctx, "slug = ?", slug)
}

func (db *PostgresDB) GetCreatorProfileByOverlayKey(ctx context.Context, overlayKey string) (*models.CreatorProfile, error) {
	return db.getCreatorProfile(ctx, "overlay_key = ?", overlayKey)
}

func (db *PostgresDB) GetCreatorProfileByTelegramUsername(ctx context.Context, username string) (*models.CreatorProfile, error) {
	return db.getCreatorProfile(ctx, "telegram_username = ?", username)
}

func (db *PostgresDB) SetTelegramChatID(ctx context.Context, profileID int64, chatID string) error {
	if err := db.Conn.WithContext(ctx).Model(&models.CreatorProfile{}).Where("id = ?", profileID).Update("telegram_chat_id", chatID).Error; err != nil {
		return fmt.Errorf("failed to set telegram chat ID: %w", err)
	}
	return nil
}
