package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"boss-spawn-board/internal/cache"
	"boss-spawn-board/internal/config"
	"boss-spawn-board/internal/database"
	"boss-spawn-board/internal/feed"
	"boss-spawn-board/internal/handlers"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
	"boss-spawn-board/internal/mq"
	"boss-spawn-board/internal/ping"
	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/pkg/logger"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Must(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Cache ---
	backend, closeBackend, err := cache.Open(cfg.CacheBackend, cfg.RedisURL, cfg.CacheFile)
	if err != nil {
		log.Fatal("cache backend", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}
	defer closeBackend()
	log.Info("cache ready", zap.String("backend", cfg.CacheBackend), zap.String("key", cfg.CacheKey))

	// --- Database (optional) ---
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		log.Info("database connected and migrated")
	}

	// --- Lookup tables ---
	tables := lookup.NewTables()
	if db != nil {
		if u, err := db.LoadLookups(ctx); err != nil {
			log.Warn("load persisted lookups", zap.Error(err))
		} else {
			tables.Merge(u)
			log.Info("persisted lookups loaded", zap.Int("monsters", len(u.Monsters)), zap.Int("moves", len(u.Moves)))
		}
	}
	source, err := lookup.NewSource(cfg.LookupSource, tables)
	if err != nil {
		log.Fatal("lookup source", zap.Error(err))
	}

	// --- Feed + refresh service ---
	feedClient := feed.NewClient(cfg.FeedURL, time.Duration(cfg.FeedTimeout)*time.Second, log.Named("feed"))
	// Only entries learned from the feed are persisted; the static tables ship
	// with the binary.
	learned := &lookup.Learned{}
	feedClient.OnReports(func(reports []models.MonsterReport) { learned.Add(source.Observe(reports)) })

	svc := refresh.NewService(cache.New(backend, log.Named("cache")), feedClient, log.Named("refresh"), refresh.Options{
		Key:      cfg.CacheKey,
		TTL:      time.Duration(cfg.CacheTTL) * time.Second,
		Interval: time.Duration(cfg.PollInterval) * time.Second,
		Source:   source,
	})

	// --- RabbitMQ (optional) ---
	var notifier *mq.ReportsNotifier
	if cfg.RabbitMQURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitMQURL, log.Named("mq"))
		if err != nil {
			log.Fatal("rabbitmq publisher", zap.Error(err))
		}
		defer pub.Close()
		notifier = mq.NewReportsNotifier(pub, tables, log.Named("mq"))
		log.Info("rabbitmq connected")
	}

	if db != nil || notifier != nil {
		svc.OnFetched(func(ctx context.Context, snap refresh.Snapshot) {
			fetched := snap.Reports
			if snap.Default {
				fetched = nil
			}

			var snapshotID string
			if db != nil {
				id, err := db.ArchiveSnapshot(ctx, snap.CachedAt, fetched)
				if err != nil {
					log.Warn("archive snapshot", zap.Error(err))
				} else {
					snapshotID = id.String()
				}
				if u := learned.Take(); !u.Empty() {
					if err := db.UpsertLookups(ctx, u); err != nil {
						log.Warn("persist lookups", zap.Error(err))
						learned.Add(u)
					}
				}
			}
			if notifier != nil {
				notifier.NotifyReportsUpdated(ctx, snapshotID, fetched, snap.CachedAt)
			}
		})
	}

	// --- Feed probe ---
	h := &handlers.Handlers{Board: svc, DB: db, Logger: log.Named("http")}
	if host, err := ping.HostFromURL(cfg.FeedURL); err != nil {
		log.Warn("feed probe disabled", zap.Error(err))
	} else {
		h.Probe = ping.NewProber(host, time.Minute, log.Named("ping"))
	}

	// --- Start refresher: one immediate check, then the poll timer ---
	snap := svc.SetVisible(ctx, true)
	log.Info("initial dataset",
		zap.String("state", string(snap.State)),
		zap.Bool("default", snap.Default),
		zap.Int("reports", len(snap.Reports)),
	)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	h.Register(app)

	// --- Graceful shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		svc.Stop()
		cancel()
		_ = app.Shutdown()
	}()

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
