package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"infinite-experiment/keydrop/internal/api"
	"infinite-experiment/keydrop/internal/bot"
	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/config"
	store "infinite-experiment/keydrop/internal/db"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/jobs"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/providers"
	"infinite-experiment/keydrop/internal/routes"
	"infinite-experiment/keydrop/internal/services"
	"infinite-experiment/keydrop/internal/workers"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// @title Keydrop Admin API
// @version 1.0
// @description Admin surface of the channel-gated key distribution bot.
// @host localhost:10000
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Keydrop starting up",
		"environment", cfg.AppEnv,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.Redis.Enabled,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, statsDB := connectStore(cfg)

	settingsCache := common.NewCacheService(10*time.Minute, 15*time.Minute)
	defer settingsCache.Close()

	// Sessions and confirmations live in Redis when enabled so restarts keep them
	var (
		sharedCache common.CacheInterface = settingsCache
		redisPinger api.Pinger
		queue       services.BroadcastQueue
		consumer    workers.BroadcastConsumer
	)
	if cfg.Redis.Enabled {
		client := common.NewRedisClient(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		redisCache := common.NewRedisCacheService(client)
		defer redisCache.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()
		if err != nil {
			logging.Error("Failed to reach Redis", "addr", cfg.RedisAddr(), "error", err)
			log.Fatalf("❌ Failed to reach Redis: %v", err)
		}

		redisQueue := common.NewRedisQueueService(client)
		sharedCache = redisCache
		redisPinger = redisCache
		queue = redisQueue
		consumer = redisQueue
		logging.Info("Connected to Redis", "addr", cfg.RedisAddr())
	}

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	telegram := providers.NewTelegramProvider(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.PollTimeout)
	me, err := telegram.GetMe(ctx)
	if err != nil {
		logging.Error("Failed to reach the Bot API", "error", err)
		log.Fatalf("❌ Failed to reach the Bot API: %v", err)
	}
	logging.Info("Bot authenticated", "bot_id", me.ID, "username", me.Username)

	// services
	settings := services.NewSettingsService(repositories.NewSettingsRepository(db), settingsCache, cfg.Distribution.DefaultCooldownHours)
	waitlist := services.NewWaitlistService(db)
	engine := services.NewAllocationService(db, waitlist, settings, metricsReg)
	users := services.NewUserService(db)
	notifications := services.NewNotificationService(telegram, settings, waitlist, metricsReg, cfg.Admin.ID)
	broadcasts := services.NewBroadcastService(users, notifications, queue, cfg.Distribution.BroadcastRate, cfg.Distribution.BroadcastWorkers)
	confirmations := services.NewConfirmationService(cfg.Admin.ConfirmSecret, sharedCache, cfg.Admin.ConfirmTTL)
	stats := repositories.NewStatsRepo(statsDB)
	admin := services.NewAdminService(db, stats, engine, waitlist, settings, confirmations, broadcasts)
	verification := services.NewVerificationService(db, telegram)

	dispatcher := bot.NewDispatcher(bot.Dependencies{
		Messenger:     telegram,
		Users:         users,
		Verification:  verification,
		Engine:        engine,
		Admin:         admin,
		Notifications: notifications,
		Sessions:      services.NewAdminSessionStore(sharedCache),
		Metrics:       metricsReg,
		AdminID:       cfg.Admin.ID,
	})

	workers.InitWorkers(ctx, telegram, dispatcher, cfg.Telegram.PollTimeout, consumer, broadcasts)
	jobs.InitializeJobs(ctx, db, engine, waitlist, telegram, metricsReg, cfg.Distribution.AuditInterval)

	upSince := time.Now()
	deps := api.InitDependencies(admin, notifications, stats, redisPinger)
	router := routes.RegisterRoutes(deps, metricsReg, routes.RouterConfig{
		AdminAPIKey:    cfg.Admin.APIKey,
		AdminID:        cfg.Admin.ID,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, upSince)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "port", cfg.Port, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("HTTP shutdown incomplete", "error", err)
	}
}

// connectStore opens the gorm store, migrates it and returns the sqlx read
// pool next to it. sqlite shares gorm's single connection.
func connectStore(cfg *config.Config) (*gorm.DB, *sqlx.DB) {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.PostgresDSN()
	}

	db, err := store.OpenORM(cfg.DB.Driver, dsn)
	if err != nil {
		logging.Error("Failed to open store", "driver", cfg.DB.Driver, "error", err)
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	if err := store.Migrate(db, cfg.Distribution.DefaultCooldownHours); err != nil {
		log.Fatalf("❌ Failed to migrate store: %v", err)
	}

	var statsDB *sqlx.DB
	if cfg.DB.Driver == "postgres" {
		statsDB, err = store.ConnectPostgres(dsn)
	} else {
		statsDB, err = store.WrapORM(db, "sqlite3")
	}
	if err != nil {
		log.Fatalf("❌ Failed to open read pool: %v", err)
	}
	logging.Info("Connected to store (sqlx)", "driver", cfg.DB.Driver)
	return db, statsDB
}
