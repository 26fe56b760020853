package bot

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"boss-spawn-board/internal/mq"
)

type sender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Announcer posts report updates to the configured channel. An update is
// only posted when the report expiring next differs from the last one posted.
type Announcer struct {
	bot       sender
	channelID int64
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	last string
}

func NewAnnouncer(b *tele.Bot, channelID int64, logger *zap.Logger) *Announcer {
	return &Announcer{bot: b, channelID: channelID, logger: logger, now: time.Now}
}

func announceKey(msg mq.ReportsUpdatedMsg) string {
	if msg.Next == nil {
		return "idle"
	}
	return msg.Next.Name + "|" + msg.Next.Place + "|" + msg.Next.Window
}

// Announce sends msg to the channel. It returns false when the post was
// skipped as a repeat or failed.
func (a *Announcer) Announce(msg mq.ReportsUpdatedMsg) bool {
	key := announceKey(msg)
	a.mu.Lock()
	if key == a.last {
		a.mu.Unlock()
		return false
	}
	a.mu.Unlock()

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		DisableNotification:   isQuietHour(a.now()),
	}
	if _, err := a.bot.Send(&tele.Chat{ID: a.channelID}, formatAnnouncement(msg), opts); err != nil {
		if isChannelError(err) {
			a.logger.Error("channel access lost, announcements will keep failing",
				zap.Int64("channel_id", a.channelID), zap.Error(err))
		} else {
			a.logger.Warn("failed to announce update", zap.Int64("channel_id", a.channelID), zap.Error(err))
		}
		return false
	}

	a.mu.Lock()
	a.last = key
	a.mu.Unlock()
	return true
}

// ── Channel error helpers ─────────────────────────────────────────────

// isChannelError reports whether a Telegram API error means the bot lost access to a channel.
func isChannelError(err error) bool {
	return errors.Is(err, tele.ErrChatNotFound) ||
		errors.Is(err, tele.ErrKickedFromGroup) ||
		errors.Is(err, tele.ErrKickedFromSuperGroup) ||
		errors.Is(err, tele.ErrKickedFromChannel) ||
		errors.Is(err, tele.ErrNotChannelMember) ||
		errors.Is(err, tele.ErrNoRightsToSend)
}
