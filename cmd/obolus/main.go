package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/core-coin/obolus/internal/auth"
	"github.com/core-coin/obolus/internal/config"
	"github.com/core-coin/obolus/internal/http_api"
	"github.com/core-coin/obolus/internal/live"
	"github.com/core-coin/obolus/internal/notificator"
	"github.com/core-coin/obolus/internal/obolus"
	"github.com/core-coin/obolus/internal/repository"
	"github.com/core-coin/obolus/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "obolus",
		Usage: "Obolus is a tipping service for stream creators",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-driver", Usage: "Database driver (postgres or sqlite)"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "HTTP API port"},
			&cli.Int64Flag{Name: "fee-rate-bps", Aliases: []string{"f"}, Usage: "Platform fee in basis points"},
			&cli.Int64Flag{Name: "min-tip", Aliases: []string{"m"}, Usage: "Minimum tip in tokens"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("database-driver") {
		cfg.DatabaseDriver = c.String("database-driver")
	}
	if c.IsSet("sqlite-path") {
		cfg.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("fee-rate-bps") {
		cfg.FeeRateBPS = c.Int64("fee-rate-bps")
	}
	if c.IsSet("min-tip") {
		cfg.MinTip = c.Int64("min-tip")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize database
	var db *repository.PostgresDB
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err = repository.NewSQLiteDB(cfg.SQLitePath, log)
	default:
		db, err = repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize notificator
	hub := live.NewHub(log)
	var telegram, email notificator.Sender
	if cfg.TelegramBotToken != "" {
		tel, err := notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, db)
		if err != nil {
			return fmt.Errorf("failed to start telegram bot: %v", err)
		}
		go tel.Start(ctx)
		telegram = tel
	} else {
		log.Warnw("TELEGRAM_BOT_TOKEN not set, telegram notifications disabled")
	}
	if cfg.SMTPEnabled() {
		email = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender)
	}
	notif := notificator.NewNotificator(log, hub, telegram, email)

	// Create Obolus instance
	obolusApp := obolus.NewObolus(db, notif, log, cfg)
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	apiServer := http_api.NewHTTPServer(obolusApp, sessions, hub, cfg.APIPort, log)

	go apiServer.Start()
	// Start the ledger audit sweep
	go obolusApp.Start(ctx)

	<-ctx.Done()
	log.Info("Shutting down...")
	hub.Close()
	if err := apiServer.Shutdown(); err != nil {
		log.Errorw("Shutdown failed", "error", err)
		return err
	}
	return nil
}
