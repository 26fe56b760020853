package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"boss-spawn-board/internal/clock"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/mq"
	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/internal/view"
)

type fakeSender struct {
	sent []string
	opts []*tele.SendOptions
	err  error
}

func (s *fakeSender) Send(_ tele.Recipient, what any, opts ...any) (*tele.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, what.(string))
	if len(opts) > 0 {
		s.opts = append(s.opts, opts[0].(*tele.SendOptions))
	}
	return &tele.Message{ID: len(s.sent)}, nil
}

var next = &mq.NextReport{
	MonsterID: 49,
	Name:      "摩鲁蛾",
	Place:     "关都-10号道路",
	Window:    "15:29 - 16:44",
	Remaining: "剩余 0小时 9分钟",
	Urgency:   "urgent",
	Reporter:  "<XD>",
}

func TestFormatAnnouncement(t *testing.T) {
	got := formatAnnouncement(mq.ReportsUpdatedMsg{Total: 2, Active: 1, Next: next})

	assert.Contains(t, got, "<b>摩鲁蛾</b> 正在 <b>关都-10号道路</b> 出现！")
	assert.Contains(t, got, "15:29 - 16:44")
	assert.Contains(t, got, "&lt;XD&gt;")
	assert.Contains(t, got, "进行中 1 / 共 2")

	idle := formatAnnouncement(mq.ReportsUpdatedMsg{Total: 2})
	assert.Contains(t, idle, msgNoActive)
}

func TestFormatList(t *testing.T) {
	now := time.Date(2025, 2, 21, 16, 35, 0, 0, time.Local)
	tables := lookup.NewStaticSource(lookup.NewTables()).Tables()
	reports := refresh.DefaultReports()

	assert.Equal(t, msgNoActive, formatList(nil))

	got := formatList(view.Cards(view.ActiveReports(reports, now), tables, now))
	assert.Contains(t, got, "进行中的头目 (1)")
	assert.Contains(t, got, "🟠 <b>摩鲁蛾</b> 关都-10号道路")
	assert.Contains(t, got, "虫鸣 / 毒菱 / 吹飞 / 羽栖")
	assert.NotContains(t, got, "直冲熊")
}

func TestFormatBanner(t *testing.T) {
	idle := formatBanner(view.Banner{Idle: true, Title: view.IdleTitle, Subtitle: view.IdleSubtitle})
	assert.Equal(t, "<b>当前没有进行中的头目</b>\n最近的报点已经结束，请等待新的报点信息", idle)

	active := formatBanner(view.Banner{
		Title:     "摩鲁蛾 正在 关都-10号道路 出现！",
		Window:    "15:29 - 16:44",
		Remaining: clock.Remaining{Label: "剩余 1小时 0分钟", Urgency: clock.UrgencyActive},
		Reporter:  "XDGGDD",
	})
	assert.Contains(t, active, "🟢 <b>摩鲁蛾 正在 关都-10号道路 出现！</b>")
	assert.Contains(t, active, "剩余 1小时 0分钟")
}

func TestFormatSource(t *testing.T) {
	now := time.Date(2025, 2, 21, 16, 35, 0, 0, time.Local)

	tests := map[string]struct {
		snap refresh.Snapshot

		want string
	}{
		"Default data": {snap: refresh.Snapshot{Default: true}, want: msgSourceDefault},
		"Stale cache": {
			snap: refresh.Snapshot{State: refresh.StateStaleCache, CachedAt: now.Add(-2 * time.Hour)},
			want: "\n\n<i>数据源暂不可用，显示的是 2 小时前 的缓存</i>",
		},
		"Stale cache minutes": {
			snap: refresh.Snapshot{State: refresh.StateStaleCache, CachedAt: now.Add(-45 * time.Minute)},
			want: "\n\n<i>数据源暂不可用，显示的是 45 分钟前 的缓存</i>",
		},
		"Stale cache days": {
			snap: refresh.Snapshot{State: refresh.StateStaleCache, CachedAt: now.Add(-50 * time.Hour)},
			want: "\n\n<i>数据源暂不可用，显示的是 2 天前 的缓存</i>",
		},
		"Fresh cache": {
			snap: refresh.Snapshot{State: refresh.StateFreshCache, CachedAt: now.Add(-5 * time.Minute)},
			want: "\n\n<i>数据更新于 16:30</i>",
		},
		"Nothing known": {want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatSource(tc.snap, now))
		})
	}
}

func newAnnouncer(s sender, hour int) *Announcer {
	return &Announcer{
		bot:       s,
		channelID: -100123,
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Date(2025, 2, 21, hour, 0, 0, 0, time.Local) },
	}
}

func TestAnnounce_SkipsRepeats(t *testing.T) {
	s := &fakeSender{}
	a := newAnnouncer(s, 12)
	msg := mq.ReportsUpdatedMsg{Total: 2, Active: 1, Next: next}

	assert.True(t, a.Announce(msg))
	assert.False(t, a.Announce(msg))

	other := *next
	other.Name = "直冲熊"
	assert.True(t, a.Announce(mq.ReportsUpdatedMsg{Total: 2, Active: 1, Next: &other}))
	require.Len(t, s.sent, 2)
	assert.Equal(t, tele.ModeHTML, s.opts[0].ParseMode)
	assert.False(t, s.opts[0].DisableNotification)
}

func TestAnnounce_QuietHours(t *testing.T) {
	s := &fakeSender{}
	a := newAnnouncer(s, 23)

	require.True(t, a.Announce(mq.ReportsUpdatedMsg{Next: next}))

	assert.True(t, s.opts[0].DisableNotification)
}

func TestAnnounce_FailureIsRetried(t *testing.T) {
	s := &fakeSender{err: tele.ErrChatNotFound}
	a := newAnnouncer(s, 12)
	msg := mq.ReportsUpdatedMsg{Next: next}

	assert.False(t, a.Announce(msg))

	s.err = nil
	assert.True(t, a.Announce(msg), "a failed post must not be remembered as sent")
}

func TestIsChannelError(t *testing.T) {
	assert.True(t, isChannelError(tele.ErrKickedFromChannel))
	assert.False(t, isChannelError(errors.New("timeout")))
}

func TestIsQuietHour(t *testing.T) {
	for hour, want := range map[int]bool{22: false, 23: true, 0: true, 6: true, 7: false} {
		assert.Equal(t, want, isQuietHour(time.Date(2025, 1, 1, hour, 0, 0, 0, time.UTC)), "hour %d", hour)
	}
}
