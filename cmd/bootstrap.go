package cmd

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-coinwallet/app/database"
	"github.com/vibast-solutions/ms-go-coinwallet/app/idempotency"
	"github.com/vibast-solutions/ms-go-coinwallet/app/metrics"
	"github.com/vibast-solutions/ms-go-coinwallet/app/notifier"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/config"
)

const webhookIdempotencyScope = "stripe_webhook"

type application struct {
	cfg       *config.Config
	db        *sql.DB
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	payments  *service.PaymentService
	wallets   *service.WalletService
	coinPacks *service.CoinPackService
	closers   []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logrus.WithError(err).Warn("Failed to release resource")
		}
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}

func mustCreateApplication() *application {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	app := &application{cfg: cfg, db: db, closers: []func() error{db.Close}}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db, cfg.Database.Driver); err != nil {
			app.Close()
			logrus.WithError(err).Fatal("Failed to apply migrations")
		}
	}

	app.registry = prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		app.metrics = metrics.New(app.registry)
	}

	var n notifier.Notifier = notifier.Nop{}
	if cfg.Discord.Enabled() {
		n = notifier.NewDiscord(notifier.DiscordConfig{
			BotToken:   cfg.Discord.BotToken,
			APIBaseURL: cfg.Discord.APIBaseURL,
			Timeout:    cfg.Discord.Timeout,
		})
	}

	gateway := provider.NewStripeGateway(provider.StripeConfig{
		SecretKey:                 cfg.Stripe.SecretKey,
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
	})

	walletRepo := repository.NewWalletRepository(db)
	app.payments = service.NewPaymentService(
		repository.NewPaymentIntentRepository(db),
		repository.NewPaymentEventRepository(db),
		repository.NewWebhookDeliveryRepository(db),
		walletRepo,
		gateway,
		n,
		app.metrics,
		cfg.Payments,
	)
	coinPackRepo := repository.NewCoinPackRepository(db)
	app.payments.SetCoinPackCatalog(coinPackRepo)
	app.wallets = service.NewWalletService(walletRepo)
	app.coinPacks = service.NewCoinPackService(coinPackRepo, app.payments)

	return app
}

// enableWebhookGuard wires the redis event id guard when redis is configured.
// Without it the transition guard alone keeps webhook replays harmless.
func (a *application) enableWebhookGuard() {
	if !a.cfg.Redis.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := idempotency.NewRedisStore(ctx, idempotency.RedisOptions{
		URL:      a.cfg.Redis.URL,
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, webhook event dedupe disabled")
		return
	}
	guard, err := idempotency.NewGuard(store, a.cfg.Redis.IdempotencyTTL, webhookIdempotencyScope)
	if err != nil {
		_ = store.Close()
		logrus.WithError(err).Warn("Invalid webhook idempotency settings, dedupe disabled")
		return
	}

	a.payments.SetWebhookGuard(guard)
	a.closers = append(a.closers, store.Close)
	logrus.Info("Webhook event dedupe enabled")
}
