package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/config"
	"github.com/Kerhoff/chcemmat/internal/handlers"
	"github.com/Kerhoff/chcemmat/internal/mail"
	"github.com/Kerhoff/chcemmat/internal/metrics"
	"github.com/Kerhoff/chcemmat/internal/repository/postgres"
	"github.com/Kerhoff/chcemmat/internal/service"
	"github.com/Kerhoff/chcemmat/internal/telegram"
	"github.com/Kerhoff/chcemmat/pkg/logger"
)

// app holds the process wide dependencies shared by all subcommands
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	db      *config.Database
	redis   *redis.Client
	metrics *metrics.Metrics
	bot     *telegram.Bot
	svc     *service.Service
}

// newApp loads the configuration and connects to the database
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{cfg: cfg, logger: l, db: db}, nil
}

// buildService wires repositories, the auth provider and the optional
// integrations into the service layer.
func (a *app) buildService(ctx context.Context) error {
	a.metrics = metrics.New()

	revoker, err := a.revoker(ctx)
	if err != nil {
		return err
	}
	provider, err := auth.NewLocalProvider(a.db.DB, auth.LocalConfig{
		Secret:     a.cfg.JWTSecret,
		SessionTTL: a.cfg.SessionTTL,
		Issuer:     "chcemmat",
	}, revoker)
	if err != nil {
		return fmt.Errorf("failed to create auth provider: %w", err)
	}

	deps := service.Deps{
		Profiles:     postgres.NewProfileRepository(a.db.DB),
		Wishlists:    postgres.NewWishlistRepository(a.db.DB),
		Items:        postgres.NewItemRepository(a.db.DB),
		Reservations: postgres.NewReservationRepository(a.db.DB),
		Auth:         provider,
		Metrics:      a.metrics,
		Logger:       a.logger,
		ShareBaseURL: a.cfg.ShareBaseURL,
	}

	if a.cfg.MailEnabled() {
		m, err := mail.New(a.cfg.Mail())
		if err != nil {
			return fmt.Errorf("failed to create mailer: %w", err)
		}
		deps.Mailer = m
	} else {
		a.logger.Warn("SENDGRID_API_KEY is not set, contact form is disabled")
	}

	if a.cfg.AlertsEnabled() {
		a.bot, err = telegram.NewBot(a.cfg.TelegramToken, a.cfg.TelegramAlertChatID, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create Telegram bot: %w", err)
		}
		deps.Alerter = a.bot
	} else {
		a.logger.Warn("Telegram alerts are disabled, inconsistent reservations are only logged")
	}

	a.svc = service.New(deps)

	if a.bot != nil {
		help := handlers.NewHelpHandler()
		a.bot.RegisterCommand("start", help)
		a.bot.RegisterCommand("help", help)
		a.bot.RegisterCommand("reconcile", handlers.NewReconcileHandler(a.svc, a.cfg.ReconcileGrace, a.logger))
		a.bot.RegisterCommand("item", handlers.NewItemHandler(a.svc.Items, a.svc.Reservations, a.logger))
	}
	return nil
}

func (a *app) revoker(ctx context.Context) (auth.Revoker, error) {
	if a.cfg.RedisAddr == "" {
		a.logger.Info("REDIS_ADDR is not set, revoked sessions are kept in memory")
		return auth.NewMemoryRevoker(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return auth.NewRedisRevoker(a.redis), nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close redis client")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}
