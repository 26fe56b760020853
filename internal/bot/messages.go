package bot

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"boss-spawn-board/internal/clock"
	"boss-spawn-board/internal/mq"
	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/internal/view"
)

// All user-facing bot messages in one place.

// ── /start & /help ──────────────────────────────────────────────────

const msgStart = `<b>头目报点播报</b>

我会定时读取最新的头目报点，并在频道里播报即将结束的头目。

/now - 最快结束的头目倒计时
/stats - 进行中数量、总数和最常见地点
/list - 所有进行中的头目`

// ── Report messages ─────────────────────────────────────────────────

const (
	msgNoActive      = "当前没有进行中的头目"
	msgListHeader    = "<b>进行中的头目 (%d)</b>\n"
	msgStatsTemplate = "<b>报点统计</b>\n进行中: %d\n总报点: %d\n最常见地点: %s"
	msgSourceDefault = "\n\n<i>数据源暂不可用，显示的是示例数据</i>"
	msgSourceStale   = "\n\n<i>数据源暂不可用，显示的是 %s 的缓存</i>"
	msgSourceFresh   = "\n\n<i>数据更新于 %s</i>"
	msgAnnounceNext  = "🔔 <b>%s</b> 正在 <b>%s</b> 出现！\n⏰ %s\n⚠️ %s\n👤 报点人：%s"
	msgAnnounceTail  = "\n\n进行中 %d / 共 %d"
)

// relTimeMagnitudes spells cache ages in Chinese for humanize.CustomRelTime.
var relTimeMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "不到 1 分钟%s", DivBy: 1},
	{D: time.Hour, Format: "%d 分钟%s", DivBy: time.Minute},
	{D: humanize.Day, Format: "%d 小时%s", DivBy: time.Hour},
	{D: humanize.Week, Format: "%d 天%s", DivBy: humanize.Day},
	{D: math.MaxInt64, Format: "%d 周%s", DivBy: humanize.Week},
}

func relTime(then, now time.Time) string {
	return humanize.CustomRelTime(then, now, "前", "后", relTimeMagnitudes)
}

func urgencyIcon(u clock.Urgency) string {
	switch u {
	case clock.UrgencyUrgent:
		return "🟠"
	case clock.UrgencyEnded:
		return "🔴"
	default:
		return "🟢"
	}
}

func formatBanner(b view.Banner) string {
	if b.Idle {
		return fmt.Sprintf("<b>%s</b>\n%s", b.Title, b.Subtitle)
	}
	return fmt.Sprintf("%s <b>%s</b>\n⏰ 出现时间：%s\n⚠️ %s\n👤 报点人：%s",
		urgencyIcon(b.Remaining.Urgency),
		html.EscapeString(b.Title),
		b.Window,
		b.Remaining.Label,
		html.EscapeString(b.Reporter),
	)
}

func formatStats(s view.Stats) string {
	return fmt.Sprintf(msgStatsTemplate, s.Active, s.Total, html.EscapeString(s.CommonLocation))
}

func formatList(cards []view.Card) string {
	if len(cards) == 0 {
		return msgNoActive
	}

	var bld strings.Builder
	fmt.Fprintf(&bld, msgListHeader, len(cards))
	for _, c := range cards {
		fmt.Fprintf(&bld, "\n%s <b>%s</b> %s-%s\n   %s - %s · %s",
			urgencyIcon(c.Remaining.Urgency),
			html.EscapeString(c.Name),
			html.EscapeString(c.Region),
			html.EscapeString(c.Location),
			c.Start, c.End,
			c.Remaining.Label,
		)
		if len(c.Moves) > 0 {
			bld.WriteString("\n   " + html.EscapeString(strings.Join(c.Moves, " / ")))
		}
	}
	return bld.String()
}

// formatSource notes where the data came from when it is not a fresh copy.
func formatSource(snap refresh.Snapshot, now time.Time) string {
	switch {
	case snap.Default:
		return msgSourceDefault
	case snap.State == refresh.StateStaleCache:
		return fmt.Sprintf(msgSourceStale, relTime(snap.CachedAt, now))
	case !snap.CachedAt.IsZero():
		return fmt.Sprintf(msgSourceFresh, snap.CachedAt.In(now.Location()).Format("15:04"))
	default:
		return ""
	}
}

func formatAnnouncement(msg mq.ReportsUpdatedMsg) string {
	tail := fmt.Sprintf(msgAnnounceTail, msg.Active, msg.Total)
	if msg.Next == nil {
		return "<b>" + msgNoActive + "</b>" + tail
	}
	n := msg.Next
	return fmt.Sprintf(msgAnnounceNext,
		html.EscapeString(n.Name),
		html.EscapeString(n.Place),
		n.Window,
		n.Remaining,
		html.EscapeString(n.Reporter),
	) + tail
}
