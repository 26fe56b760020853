package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/refresh"
)

// Dataset supplies the reports the bot answers with. *refresh.Service
// satisfies it; Refresh is TTL-governed so commands rarely reach the feed.
type Dataset interface {
	Refresh(ctx context.Context) refresh.Snapshot
	Tables() *lookup.Tables
}

// Bot wraps the Telegram bot and its read-only report commands.
type Bot struct {
	bot    *tele.Bot
	data   Dataset
	logger *zap.Logger
	now    func() time.Time
}

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}

// New creates and configures the Telegram bot.
func New(token string, data Dataset, logger *zap.Logger) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram handler failed", zap.Error(err))
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		bot:    b,
		data:   data,
		logger: logger,
		now:    time.Now,
	}

	bot.registerHandlers()

	if err := b.SetCommands([]tele.Command{
		{Text: "now", Description: "即将结束的头目"},
		{Text: "stats", Description: "报点统计"},
		{Text: "list", Description: "进行中的头目列表"},
		{Text: "help", Description: "命令说明"},
	}); err != nil {
		logger.Warn("failed to set commands", zap.Error(err))
	}

	return bot, nil
}

// Start begins polling for Telegram updates. Call as a goroutine.
func (b *Bot) Start() {
	b.logger.Info("starting Telegram bot polling")
	b.bot.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// TeleBot returns the underlying telebot instance (used by the announcer).
func (b *Bot) TeleBot() *tele.Bot {
	return b.bot
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleStart)
	b.bot.Handle("/now", b.handleNow)
	b.bot.Handle("/stats", b.handleStats)
	b.bot.Handle("/list", b.handleList)
}

// isQuietHour reports whether t falls in the night window where channel
// posts go out without a notification sound.
func isQuietHour(t time.Time) bool {
	h := t.Hour()
	return h >= 23 || h < 7
}
