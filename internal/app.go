// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/plugin/kprom"

	"wallet-ledger/internal/alert"
	router "wallet-ledger/internal/api"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/charge"
	"wallet-ledger/internal/commission"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/limits"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/notification"
	"wallet-ledger/internal/notification/channels"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/repository/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
	"wallet-ledger/internal/worker"
	"wallet-ledger/pkg/cache"
	"wallet-ledger/pkg/db"
	"wallet-ledger/pkg/validator"
)

// Repositories is the storage surface the engine is built on.
type Repositories struct {
	TxManager    repository.TxManager
	Users        repository.UserRepository
	Wallets      repository.WalletRepository
	Transactions repository.TransactionRepository
	ChargeRules  repository.ChargeRuleRepository
	Agents       repository.AgentRepository
	Merchants    repository.MerchantRepository
	Dispatches   repository.DispatchRepository
}

// Application holds all the initialized components of the application.
type Application struct {
	Config  *config.AppConfig
	Logger  *slog.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics

	Repos       Repositories
	MemoryStore *memory.Store // set for the memory driver
	idemStore   idempotency.Store
	kafka       *channels.KafkaSender
	Hub         *channels.Hub
	Pool        *worker.Pool
	Notifier    *notification.Notifier
	Commission  *commission.Router
	Ledger      *ledger.Ledger
	Retrier     *notification.Retrier
	kafkaMetric *kprom.Metrics

	// Services
	WalletService service.WalletService

	// HTTP API
	HTTPHandler http.Handler

	stop context.CancelFunc
	bg   sync.WaitGroup
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.InitializeWith(ctx, cfg)
}

// InitializeWith builds every component from cfg.
func (app *Application) InitializeWith(ctx context.Context, cfg *config.AppConfig) error {
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "storage", cfg.StorageDriver)
	app.Metrics = metrics.New()

	// 3. Storage
	if err := app.initStorage(ctx); err != nil {
		return err
	}

	// 4. Redis-backed shared state, or single-instance fallbacks
	var ruleCache cache.Cache = cache.Nop{}
	var alerts alert.Sink = alert.NewLogSink(app.Logger)
	app.idemStore = idempotency.NewMemoryStore()
	if cfg.RedisEnabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Redis = rdb
		ruleCache = cache.NewRedisCache(rdb, "ledger")
		alerts = alert.NewRedisSink(rdb, app.Logger)
		app.idemStore = idempotency.NewRedisStore(rdb)
		app.Logger.Info("Redis connection established.", "addr", cfg.Redis.Addr)
	}

	// 5. Notification channels
	senders, err := app.initChannels(ctx)
	if err != nil {
		return err
	}

	// 6. Engine components
	r := app.Repos
	app.Pool = worker.NewPool(cfg.Workers.Size, cfg.Workers.QueueCapacity, app.Metrics, app.Logger)
	app.Ledger = ledger.New(r.Wallets, r.Transactions, r.TxManager, cfg.Ledger, app.Metrics, app.Logger)
	app.Notifier = notification.NewNotifier(r.Wallets, r.Users, r.Merchants, r.Dispatches, r.TxManager,
		senders, alerts, cfg.Notification, app.Metrics, app.Logger)
	app.Retrier = notification.NewRetrier(app.Notifier, app.Logger)
	app.Commission = commission.NewRouter(r.Agents, r.Wallets, r.Transactions, r.TxManager, app.Ledger,
		alerts, cfg.Commission, app.Metrics, app.Logger)
	app.Commission.OnSettled = func(_ context.Context, entry *domain.Transaction) {
		e := *entry
		if err := app.Pool.Submit(worker.Job{Name: "notify", Run: func(ctx context.Context) error {
			return app.Notifier.Dispatch(ctx, &e)
		}}); err != nil {
			app.Logger.Warn("commission notification not queued", "entry_id", e.ID, "error", err)
		}
	}

	tiers := domain.DefaultTierLimits()
	if cfg.Reference != nil && len(cfg.Reference.Tiers) > 0 {
		tiers = cfg.Reference.Tiers
	}

	app.WalletService = service.NewWalletService(service.Dependencies{
		TxManager:    r.TxManager,
		Users:        r.Users,
		Wallets:      r.Wallets,
		Transactions: r.Transactions,
		Agents:       r.Agents,
		Merchants:    r.Merchants,
		Guard:        idempotency.NewGuard(app.idemStore, cfg.Idempotency, app.Metrics, app.Logger),
		Limits:       limits.NewEnforcer(r.Transactions, r.TxManager, tiers),
		Charges:      charge.NewResolver(r.ChargeRules, r.TxManager, ruleCache, cfg.RuleCacheTTL, app.Logger),
		Ledger:       app.Ledger,
		Notifier:     app.Notifier,
		Commission:   app.Commission,
		Jobs:         app.Pool,
		Validator:    validator.New(),
		Logger:       app.Logger,
	}, service.Config{ProcessingTimeout: cfg.ProcessingTimeout, DefaultTimezone: cfg.DefaultTimezone})
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	handlers := router.Handlers{
		Wallet:        handler.NewWalletHandler(app.WalletService, app.Logger),
		Notifications: handler.NewNotificationHandler(app.Hub, app.Logger),
		Metrics:       app.Metrics.Handler(),
	}
	if app.kafkaMetric != nil {
		handlers.KafkaMetrics = app.kafkaMetric.Handler()
	}
	app.HTTPHandler = router.NewRouter(handlers, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")
	return nil
}

func (app *Application) initStorage(ctx context.Context) error {
	switch app.Config.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		if err := Seed(ctx, store, app.Config.Reference, app.Config.SystemCurrency); err != nil {
			return fmt.Errorf("failed to seed memory store: %w", err)
		}
		app.MemoryStore = store
		app.Repos = Repositories{
			TxManager: store, Users: store, Wallets: store, Transactions: store,
			ChargeRules: store, Agents: store, Merchants: store, Dispatches: store,
		}
		app.Logger.Info("In-memory storage seeded.")
	default:
		database, err := db.NewPostgresDB(ctx, app.Config.DB, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		if app.Config.AutoMigrate {
			if err := db.MigrateUp(database.DB); err != nil {
				return err
			}
			app.Logger.Info("Database schema is up to date.")
		}
		app.Repos = Repositories{
			TxManager:    postgres.NewTxManager(database, app.Logger),
			Users:        postgres.NewUserRepository(),
			Wallets:      postgres.NewWalletRepository(),
			Transactions: postgres.NewTransactionRepository(),
			ChargeRules:  postgres.NewChargeRuleRepository(),
			Agents:       postgres.NewAgentRepository(),
			Merchants:    postgres.NewMerchantRepository(),
			Dispatches:   postgres.NewDispatchRepository(),
		}
		app.Logger.Info("Database connection established.")
	}
	return nil
}

func (app *Application) initChannels(ctx context.Context) (map[domain.Channel]channels.Sender, error) {
	cfg := app.Config
	app.Hub = channels.NewHub(app.Redis, app.Logger)

	senders := map[domain.Channel]channels.Sender{
		domain.ChannelInApp:   app.Hub,
		domain.ChannelMessage: channels.NewLogSender(string(domain.ChannelMessage), app.Logger),
		domain.ChannelEmail:   channels.NewLogSender(string(domain.ChannelEmail), app.Logger),
		domain.ChannelWebhook: channels.NewWebhookSender(&http.Client{Timeout: cfg.WebhookTimeout}, app.merchantEndpoint),
	}
	if cfg.KafkaEnabled() {
		app.kafkaMetric = kprom.NewMetrics("ledger_kafka")
		k, err := channels.NewKafkaSender(cfg.Kafka, app.kafkaMetric, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := k.Ping(pingCtx); err != nil {
			k.Close()
			return nil, fmt.Errorf("failed to reach kafka brokers: %w", err)
		}
		app.kafka = k
		senders[domain.ChannelMessage] = k
		app.Logger.Info("Kafka message channel enabled.", "topic", cfg.Kafka.Topic)
	}
	if cfg.SMTPEnabled() {
		senders[domain.ChannelEmail] = channels.NewEmailSender(cfg.SMTP)
		app.Logger.Info("SMTP email channel enabled.", "host", cfg.SMTP.Host)
	}
	return senders, nil
}

// merchantEndpoint resolves the current webhook of the merchant named by target.
func (app *Application) merchantEndpoint(ctx context.Context, target string) (channels.Endpoint, error) {
	var id int64
	if _, err := fmt.Sscan(target, &id); err != nil {
		return channels.Endpoint{}, fmt.Errorf("webhook target %q: %w", target, util.ErrInvalidInput)
	}
	profile, err := app.Repos.Merchants.GetMerchantProfile(ctx, app.Repos.TxManager.Executor(), id)
	if err != nil {
		return channels.Endpoint{}, fmt.Errorf("merchant %d: %w", id, err)
	}
	if profile.WebhookURL == nil || *profile.WebhookURL == "" {
		return channels.Endpoint{}, fmt.Errorf("merchant %d has no webhook: %w", id, util.ErrNotFound)
	}
	return channels.Endpoint{URL: *profile.WebhookURL, Secret: profile.WebhookSecret}, nil
}

// Start launches the background loops: notification retries, the commission
// sweep, the in-app relay and store housekeeping.
func (app *Application) Start(ctx context.Context) {
	ctx, app.stop = context.WithCancel(ctx)

	app.goBackground(func() { app.Retrier.Run(ctx) })
	if app.Redis != nil {
		app.goBackground(func() { app.Hub.Relay(ctx) })
	}
	app.goBackground(func() { app.sweepLoop(ctx) })
}

func (app *Application) goBackground(fn func()) {
	app.bg.Add(1)
	go func() {
		defer app.bg.Done()
		fn()
	}()
}

func (app *Application) sweepLoop(ctx context.Context) {
	interval := app.Config.Workers.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if n, err := app.Commission.Sweep(ctx); err != nil {
			app.Logger.Error("commission sweep failed", "error", err)
		} else if n > 0 {
			app.Logger.Info("commission sweep credited missed entries", "count", n)
		}
		if mem, ok := app.idemStore.(*idempotency.MemoryStore); ok {
			if n := mem.Sweep(); n > 0 {
				app.Logger.Debug("expired idempotency records dropped", "count", n)
			}
		}
	}
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.stop != nil {
		app.stop()
	}
	app.bg.Wait()

	var errs []error
	if app.Pool != nil {
		if err := app.Pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("worker pool did not drain: %w", err))
		}
	}
	if app.kafka != nil {
		app.kafka.Close()
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			app.Logger.Info("Database connection closed.")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
