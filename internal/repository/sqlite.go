package repository

import (
	"fmt"

	"github.com/glebarez/sqlite"

	"github.com/core-coin/obolus/pkg/logger"
)

// NewSQLiteDB opens a pure Go SQLite ledger. It backs local development and tests;
// production runs on PostgreSQL.
func NewSQLiteDB(dsn string, logger *logger.Logger) (*PostgresDB, error) {
	db, err := Open(sqlite.Open(dsn), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite allows one writer at a time. A single connection turns concurrent
	// transactions into a queue instead of "database is locked" errors.
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Infow("Opened SQLite ledger", "dsn", dsn)
	return db, nil
}
