package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/BotCoder254/projects254/configs"
	"github.com/BotCoder254/projects254/internal/adapter/cache"
	httpadapter "github.com/BotCoder254/projects254/internal/adapter/http"
	"github.com/BotCoder254/projects254/internal/adapter/http/middleware"
	"github.com/BotCoder254/projects254/internal/adapter/kafka"
	"github.com/BotCoder254/projects254/internal/adapter/mpesa"
	"github.com/BotCoder254/projects254/internal/adapter/observ"
	"github.com/BotCoder254/projects254/internal/adapter/queue"
	"github.com/BotCoder254/projects254/internal/adapter/receipt"
	"github.com/BotCoder254/projects254/internal/adapter/repo"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/security"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const shutdownTimeout = 20 * time.Second

type App struct {
	Server *http.Server

	// background loops started by Run and stopped with its context
	workers []func(ctx context.Context) error
	log     *slog.Logger
}

// InitWithConfig connects every backing service and wires the HTTP API. The
// returned cleanup closes them in reverse order.
func InitWithConfig(ctx context.Context, cfg configs.Config, env string) (*App, func(), error) {
	l := logging.New("bootstrap")
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	db, err := openMySQL(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = db.Close() })

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fail(fmt.Errorf("redis ping: %w", err))
	}

	// infra
	carts := cache.NewRedisCartStore(rdb, cfg.Cart.TTL)
	checkout := cache.NewRedisCheckoutStore(rdb, cfg.Checkout.TTL)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL, cfg.Idempotency.LockTTL)
	orders := repo.NewMySQLOrderRepo(db)
	recorder := observ.NewRecorder(prometheus.DefaultRegisterer)
	gw := mpesa.NewClient(mpesa.Config{
		BaseURL:         cfg.Mpesa.BaseURL,
		ConsumerKey:     cfg.Mpesa.ConsumerKey,
		ConsumerSecret:  cfg.Mpesa.ConsumerSecret,
		ShortCode:       cfg.Mpesa.ShortCode,
		Passkey:         cfg.Mpesa.Passkey,
		CallbackURL:     cfg.Mpesa.CallbackURL,
		TransactionType: cfg.Mpesa.TransactionType,
		CountryCode:     cfg.Mpesa.CountryCode,
		Timeout:         cfg.Mpesa.Timeout,
	})

	var notifier usecase.Notifier = queue.NopNotifier{}
	var conn *amqp.Connection
	if cfg.Rabbit.Enabled {
		conn, err = amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		pub, err := conn.Channel()
		if err != nil {
			return fail(fmt.Errorf("rabbitmq channel: %w", err))
		}
		rn, err := queue.NewRabbitNotifier(pub, cfg.Rabbit.Exchange)
		if err != nil {
			return fail(err)
		}
		if err := queue.DeclareQueue(pub, cfg.Rabbit.Exchange, cfg.Rabbit.StatsQueue, queue.StatsRefreshKeys...); err != nil {
			return fail(err)
		}
		notifier = rn
	}

	stats := usecase.NewStats(repo.NewMySQLStatsRepo(db), notifier)
	// With the broker up, the stats worker recomputes after every status
	// event, so the status usecase does not broadcast inline.
	inlineStats := stats
	if cfg.Rabbit.Enabled {
		inlineStats = nil
		if err := startStatsWorker(conn, cfg, stats); err != nil {
			return fail(err)
		}
	}

	recordCallback := usecase.NewRecordCallback(checkout)
	track := usecase.NewTrackOrder(orders)

	a := &App{log: l}
	if cfg.Kafka.Enabled {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.CallbackTopic}, kafka.NewSTKCallbackHandler(recordCallback).Handle)
		a.workers = append(a.workers, consumer.Start)
	}

	accounts, err := security.NewAccounts(cfg.Security.Accounts)
	if err != nil {
		return fail(err)
	}
	if len(cfg.Security.Accounts) == 0 {
		l.Warn("no staff accounts configured; admin endpoints are unreachable")
	}

	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := httpadapter.Handlers{
		Cart: httpadapter.NewCartHandler(usecase.NewCart(carts)),
		Payment: httpadapter.NewPaymentHandler(
			usecase.NewStartCheckout(carts, gw, checkout, recorder),
			usecase.NewConfirmPayment(gw, checkout, carts, orders, repo.NewMySQLReconciliationRepo(db), idem, notifier, recorder),
			recordCallback,
		),
		Order: httpadapter.NewOrderHandler(track, receipt.NewRenderer("KES")),
		Admin: httpadapter.NewAdminHandler(
			usecase.NewUpdateOrderStatus(orders, inlineStats, notifier),
			track,
			stats,
			usecase.NewMenu(repo.NewMySQLMenuRepo(db)),
		),
		Token: httpadapter.NewTokenHandler(cfg, accounts),
	}
	router := httpadapter.NewRouter(handlers, httpadapter.RouterDeps{
		Authz:         middleware.NewAuthz(cfg),
		Metrics:       middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Logger:        logging.New("http"),
		SecureCookies: env != "dev",
	})

	a.Server = &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	return a, cleanup, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	dsn, err := mysql.ParseDSN(cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// the repo scans DATETIME columns into time.Time
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	if cfg.MySQL.EnsureSchema {
		if err := repo.EnsureSchema(pingCtx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// startStatsWorker consumes order events on its own channel; the channel
// closes with the connection.
func startStatsWorker(conn *amqp.Connection, cfg configs.Config, stats *usecase.Stats) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}
	h := queue.NewStatsRefreshHandler(stats)

	router := queue.NewRouter(ch, queue.WithPrefetch(cfg.Rabbit.Prefetch), queue.WithRequeue(false))
	router.Register(cfg.Rabbit.StatsQueue, queue.JSONHandler[queue.AdminEvent]{HandleFunc: h.HandleEvent})
	return router.Start()
}

// Run serves HTTP and the background workers until ctx is cancelled, then
// drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1+len(a.workers))
	for _, w := range a.workers {
		go func(w func(context.Context) error) {
			if err := w(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- err
			}
		}(w)
	}
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		a.log.Error("component failed, shutting down", "err", runErr)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
