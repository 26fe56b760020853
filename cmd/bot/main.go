package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"boss-spawn-board/internal/bot"
	"boss-spawn-board/internal/cache"
	"boss-spawn-board/internal/config"
	"boss-spawn-board/internal/database"
	"boss-spawn-board/internal/feed"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
	"boss-spawn-board/internal/mq"
	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Must(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required. Get one from @BotFather on Telegram.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Cache (shared with the server) ---
	backend, closeBackend, err := cache.Open(cfg.CacheBackend, cfg.RedisURL, cfg.CacheFile)
	if err != nil {
		log.Fatal("cache backend", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}
	defer closeBackend()

	// --- Lookup tables ---
	tables := lookup.NewTables()
	if cfg.DatabaseURL != "" {
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		if u, err := db.LoadLookups(ctx); err != nil {
			log.Warn("load persisted lookups", zap.Error(err))
		} else {
			tables.Merge(u)
		}
		db.Close()
	}
	source, err := lookup.NewSource(cfg.LookupSource, tables)
	if err != nil {
		log.Fatal("lookup source", zap.Error(err))
	}

	// --- Refresh service, driven by commands only ---
	feedClient := feed.NewClient(cfg.FeedURL, time.Duration(cfg.FeedTimeout)*time.Second, log.Named("feed"))
	feedClient.OnReports(func(reports []models.MonsterReport) { source.Observe(reports) })

	svc := refresh.NewService(cache.New(backend, log.Named("cache")), feedClient, log.Named("refresh"), refresh.Options{
		Key:      cfg.CacheKey,
		TTL:      time.Duration(cfg.CacheTTL) * time.Second,
		Interval: time.Duration(cfg.PollInterval) * time.Second,
		Source:   source,
	})

	// --- Telegram Bot ---
	tgBot, err := bot.New(cfg.BotToken, svc, log.Named("bot"))
	if err != nil {
		log.Fatal("bot", zap.Error(err))
	}

	go tgBot.Start()
	defer tgBot.Stop()
	log.Info("telegram bot started")

	// --- Channel announcements over RabbitMQ ---
	switch {
	case cfg.RabbitMQURL == "":
		log.Info("RABBITMQ_URL not set, channel announcements disabled")
	case cfg.BotChannelID == 0:
		log.Info("BOT_CHANNEL_ID not set, channel announcements disabled")
	default:
		consumer, err := mq.NewConsumer(cfg.RabbitMQURL, log.Named("mq"))
		if err != nil {
			log.Fatal("rabbitmq consumer", zap.Error(err))
		}
		defer consumer.Close()

		announcer := bot.NewAnnouncer(tgBot.TeleBot(), cfg.BotChannelID, log.Named("announcer"))
		l := newListener(announcer, consumer, log.Named("listener"))
		go l.start(ctx)
		log.Info("rabbitmq listener started", zap.Int64("channel_id", cfg.BotChannelID))
	}

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down bot service")
	cancel()
}
