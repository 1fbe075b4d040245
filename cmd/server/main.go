package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/resalehub/internal/admin"
	"github.com/sudo-init-do/resalehub/internal/alerts"
	"github.com/sudo-init-do/resalehub/internal/api"
	"github.com/sudo-init-do/resalehub/internal/auth"
	"github.com/sudo-init-do/resalehub/internal/config"
	"github.com/sudo-init-do/resalehub/internal/db"
	"github.com/sudo-init-do/resalehub/internal/engine"
	"github.com/sudo-init-do/resalehub/internal/journal"
	"github.com/sudo-init-do/resalehub/internal/marketplace"
	mware "github.com/sudo-init-do/resalehub/internal/middleware"
	"github.com/sudo-init-do/resalehub/internal/search"
	"github.com/sudo-init-do/resalehub/internal/stream"
	"github.com/sudo-init-do/resalehub/internal/utils"
	"github.com/sudo-init-do/resalehub/internal/wallet"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := marketplace.NewRegistry(marketplace.WithArbiters(cfg.Market.Arbiters...))
	eng := engine.New(reg, wallet.NewLedger(), engine.WithLogger(logger))

	// Journal: restore before any subscriber reads the cursor.
	var (
		pool    *pgxpool.Pool
		metrics func() any
	)
	if cfg.Database.Enabled() {
		var err error
		pool, err = db.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		snap, balances, err := journal.Load(ctx, pool)
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		if err := eng.Restore(snap, balances); err != nil {
			return err
		}
		jw := journal.NewWriter(pool, eng, logger)
		eng.Subscribe("journal", jw, eng.LastSeq(), cfg.Journal.BatchSize)
		metrics = func() any { return jw.Metrics() }
	} else {
		logger.Warn("DB_HOST not set, marketplace state lives in memory only")
	}

	hub := stream.NewHub(eng.Events, logger)
	eng.Subscribe("stream", hub, eng.LastSeq(), 0)

	var (
		searcher api.Searcher
		inbox    *alerts.Inbox
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		mirror := search.NewMirror(rdb, eng.Item, logger)
		if err := mirror.Reindex(ctx, eng.ListItems(marketplace.ItemFilter{})); err != nil {
			logger.Warn("search reindex failed, falling back to registry scans until it recovers", "err", err)
		}
		eng.Subscribe("search", mirror, eng.LastSeq(), 0)
		searcher = mirror

		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		eng.Subscribe("alerts", alerts.NewNotifier(client, logger), eng.LastSeq(), 0)

		inbox = alerts.NewInbox(rdb, cfg.Alerts.InboxSize)
		proc := alerts.NewProcessor(redisOpt, inbox, cfg.Alerts.Concurrency, logger)
		if err := proc.Start(); err != nil {
			return err
		}
		defer proc.Shutdown()
	} else {
		logger.Warn("REDIS_ADDR not set, notifications and search mirror disabled")
	}

	eng.Start(ctx)
	defer eng.Stop()

	e := newRouter(cfg, eng, pool, hub, searcher, inbox, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("http server listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newRouter(
	cfg *config.Config,
	eng *engine.Engine,
	pool *pgxpool.Pool,
	hub *stream.Hub,
	searcher api.Searcher,
	inbox *alerts.Inbox,
	journalMetrics func() any,
	logger *slog.Logger,
) *echo.Echo {
	secret := []byte(cfg.Auth.JWTSecret)
	jwt := mware.JWTMiddleware(secret)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "resalehub"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if pool == nil {
			return c.JSON(http.StatusOK, echo.Map{"status": "ready", "journal": "disabled"})
		}
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready", "last_seq": eng.LastSeq()})
	})

	// Wallet login, rate limited per IP
	authH := auth.NewHandler(secret, cfg.Auth.TokenTTL, auth.NewChallenges(cfg.Auth.ChallengeTTL), eng.IsArbiter)
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.GET("/challenge", authH.Challenge)
	authGroup.POST("/login", authH.Login)
	authGroup.GET("/me", auth.Me, jwt)

	e.GET("/stream", hub.Serve)

	participant := mware.RequireRoles(utils.RoleTrader, utils.RoleArbiter)
	api.NewHandler(eng, searcher, logger).Register(e, jwt, participant)

	// Protected routes
	protected := e.Group("", jwt, participant)
	walletH := wallet.NewHandler(eng, cfg.Market.FaucetEnabled, cfg.Market.FaucetLimit)
	protected.GET("/wallet/balance", walletH.Balance)
	protected.POST("/wallet/topup", walletH.TopUp)
	protected.GET("/wallet/transactions", walletH.Transactions)
	if inbox != nil {
		alertsH := alerts.NewHandler(inbox)
		protected.GET("/notifications", alertsH.ListNotifications)
		protected.POST("/notifications/:id/read", alertsH.MarkNotificationRead)
	}

	// Arbiter routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(jwt)
	adminGroup.Use(mware.ArbiterGuard)
	admin.NewHandler(eng, journalMetrics).Register(adminGroup)

	return e
}
