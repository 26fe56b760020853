package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
	"boss-spawn-board/internal/refresh"
)

var now = time.Date(2025, 2, 21, 16, 35, 0, 0, time.Local)

type fakeBoard struct {
	snap      refresh.Snapshot
	tables    *lookup.Tables
	refreshes int
	visible   []bool
	running   bool
}

func (b *fakeBoard) Current() refresh.Snapshot { return b.snap }
func (b *fakeBoard) State() refresh.State      { return b.snap.State }
func (b *fakeBoard) Running() bool             { return b.running }
func (b *fakeBoard) Tables() *lookup.Tables    { return b.tables }

func (b *fakeBoard) Refresh(context.Context) refresh.Snapshot {
	b.refreshes++
	return b.snap
}

func (b *fakeBoard) SetVisible(_ context.Context, visible bool) refresh.Snapshot {
	b.visible = append(b.visible, visible)
	b.running = visible
	return b.snap
}

type fakeProbe struct{ up bool }

func (p fakeProbe) Host() string                   { return "mmo.ydev.tech" }
func (p fakeProbe) Reachable(context.Context) bool { return p.up }

func newApp(board *fakeBoard, probe Prober) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h := &Handlers{Board: board, Probe: probe, Logger: zap.NewNop(), Now: func() time.Time { return now }}
	h.Register(app)
	return app
}

func newBoard() *fakeBoard {
	return &fakeBoard{
		snap: refresh.Snapshot{
			Reports:  refresh.DefaultReports(),
			State:    refresh.StateFreshCache,
			CachedAt: now.Add(-5 * time.Minute),
		},
		tables:  lookup.NewStaticSource(lookup.NewTables()).Tables(),
		running: true,
	}
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestGetReports(t *testing.T) {
	app := newApp(newBoard(), nil)

	status, body := do(t, app, http.MethodGet, "/api/reports", "")

	require.Equal(t, http.StatusOK, status)
	cards, ok := body["cards"].([]any)
	require.True(t, ok)
	require.Len(t, cards, 2)
	first := cards[0].(map[string]any)
	assert.Equal(t, "摩鲁蛾", first["name"])
	assert.Equal(t, "关都", first["region"])
	assert.Equal(t, "urgent", first["remaining"].(map[string]any)["urgency"])

	meta := body["meta"].(map[string]any)
	assert.Equal(t, "fresh_cache", meta["state"])
	assert.NotContains(t, meta, "Reports")
}

func TestGetStats(t *testing.T) {
	app := newApp(newBoard(), nil)

	status, body := do(t, app, http.MethodGet, "/api/stats", "")

	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["active"])
	assert.EqualValues(t, 2, body["total"])
	assert.Equal(t, "关都 10号道路", body["common_location"])
}

func TestGetNext(t *testing.T) {
	tests := map[string]struct {
		reports []models.MonsterReport

		wantIdle  bool
		wantTitle string
	}{
		"Active report": {reports: refresh.DefaultReports(), wantTitle: "摩鲁蛾 正在 关都-10号道路 出现！"},
		"Nothing left":  {reports: []models.MonsterReport{}, wantIdle: true, wantTitle: "当前没有进行中的头目"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			board := newBoard()
			board.snap.Reports = tc.reports
			app := newApp(board, nil)

			status, body := do(t, app, http.MethodGet, "/api/next", "")

			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, tc.wantIdle, body["idle"])
			assert.Equal(t, tc.wantTitle, body["title"])
		})
	}
}

func TestCharts(t *testing.T) {
	tests := map[string]struct {
		path string

		wantLabel string
		wantValue float64
	}{
		"Time distribution": {path: "/api/charts/time", wantLabel: "出现时间 (分钟)", wantValue: 929},
		"Duration":          {path: "/api/charts/duration", wantLabel: "持续时间 (分钟)", wantValue: 75},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app := newApp(newBoard(), nil)

			status, body := do(t, app, http.MethodGet, tc.path, "")

			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, tc.wantLabel, body["label"])
			points := body["points"].([]any)
			require.Len(t, points, 2)
			assert.Equal(t, tc.wantValue, points[0].(map[string]any)["value"])
		})
	}
}

func TestCharts_CachedUntilRefresh(t *testing.T) {
	board := newBoard()
	app := newApp(board, nil)

	_, body := do(t, app, http.MethodGet, "/api/charts/duration", "")
	require.Len(t, body["points"], 2)

	board.snap.Reports = board.snap.Reports[:1]
	_, body = do(t, app, http.MethodGet, "/api/charts/duration", "")
	assert.Len(t, body["points"], 2, "served from the response cache")

	do(t, app, http.MethodPost, "/api/refresh", "")
	_, body = do(t, app, http.MethodGet, "/api/charts/duration", "")
	assert.Len(t, body["points"], 1)
}

func TestCharts_RebuiltWhenSnapshotReplaced(t *testing.T) {
	board := newBoard()
	app := newApp(board, nil)

	_, body := do(t, app, http.MethodGet, "/api/charts/duration", "")
	require.Len(t, body["points"], 2)

	// A timer tick publishes a new snapshot without any POST.
	next := board.snap
	next.Reports = next.Reports[:1]
	next.CheckedAt = now.Add(time.Minute)
	board.snap = next

	_, body = do(t, app, http.MethodGet, "/api/charts/duration", "")
	assert.Len(t, body["points"], 1)
	_, body = do(t, app, http.MethodGet, "/api/charts/time", "")
	assert.Len(t, body["points"], 1)
}

func TestPostRefresh(t *testing.T) {
	board := newBoard()
	app := newApp(board, nil)

	status, body := do(t, app, http.MethodPost, "/api/refresh", "")

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, board.refreshes)
	assert.Equal(t, "fresh_cache", body["state"])
}

func TestPostVisibility(t *testing.T) {
	tests := map[string]struct {
		body string

		wantStatus  int
		wantVisible []bool
	}{
		"Hide":         {body: `{"visible":false}`, wantStatus: http.StatusOK, wantVisible: []bool{false}},
		"Show":         {body: `{"visible":true}`, wantStatus: http.StatusOK, wantVisible: []bool{true}},
		"Missing flag": {body: `{}`, wantStatus: http.StatusBadRequest},
		"Bad json":     {body: `{`, wantStatus: http.StatusBadRequest},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			board := newBoard()
			app := newApp(board, nil)

			status, body := do(t, app, http.MethodPost, "/api/visibility", tc.body)

			require.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantVisible, board.visible)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.wantVisible[0], body["polling"])
			}
		})
	}
}

func TestGetHealth(t *testing.T) {
	tests := map[string]struct {
		probe Prober

		wantStatus    string
		wantReachable any
	}{
		"No probe":         {wantStatus: "ok"},
		"Feed reachable":   {probe: fakeProbe{up: true}, wantStatus: "ok", wantReachable: true},
		"Feed unreachable": {probe: fakeProbe{up: false}, wantStatus: "degraded", wantReachable: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app := newApp(newBoard(), tc.probe)

			status, body := do(t, app, http.MethodGet, "/api/health", "")

			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, tc.wantStatus, body["status"])
			assert.Equal(t, "fresh_cache", body["state"])
			assert.Equal(t, "5 minutes ago", body["cache_age"])
			assert.Equal(t, tc.wantReachable, body["feed_reachable"])
		})
	}
}

func TestGetSnapshots_ArchiveDisabled(t *testing.T) {
	app := newApp(newBoard(), nil)

	status, body := do(t, app, http.MethodGet, "/api/snapshots", "")

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "archive disabled", body["error"])
}
