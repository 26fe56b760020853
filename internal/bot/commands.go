package bot

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/internal/view"
)

// commandTimeout bounds the feed fetch a command may trigger.
const commandTimeout = 30 * time.Second

// ── Simple commands ──────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	b.logCommand(c)
	return c.Send(msgStart, htmlOpts)
}

// ── Report commands ──────────────────────────────────────────────────

func (b *Bot) handleNow(c tele.Context) error {
	b.logCommand(c)
	snap := b.snapshot()
	banner := view.NextBanner(snap.Reports, b.data.Tables(), b.now())
	return c.Send(formatBanner(banner)+formatSource(snap, b.now()), htmlOpts)
}

func (b *Bot) handleStats(c tele.Context) error {
	b.logCommand(c)
	snap := b.snapshot()
	stats := view.SummaryStats(snap.Reports, b.data.Tables(), b.now())
	return c.Send(formatStats(stats)+formatSource(snap, b.now()), htmlOpts)
}

func (b *Bot) handleList(c tele.Context) error {
	b.logCommand(c)
	snap := b.snapshot()
	now := b.now()
	cards := view.Cards(view.ActiveReports(snap.Reports, now), b.data.Tables(), now)
	return c.Send(formatList(cards)+formatSource(snap, now), htmlOpts)
}

// ── Helpers ──────────────────────────────────────────────────────────

func (b *Bot) logCommand(c tele.Context) {
	sender := c.Sender()
	if sender == nil {
		sender = &tele.User{}
	}
	b.logger.Info("command",
		zap.String("text", c.Text()),
		zap.Int64("user_id", sender.ID),
		zap.String("username", sender.Username),
	)
}

func (b *Bot) snapshot() refresh.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return b.data.Refresh(ctx)
}
