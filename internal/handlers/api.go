package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"boss-spawn-board/internal/database"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/refresh"
	"boss-spawn-board/internal/view"
)

// Board is the refresh orchestrator as seen by the HTTP layer.
type Board interface {
	Current() refresh.Snapshot
	Refresh(ctx context.Context) refresh.Snapshot
	SetVisible(ctx context.Context, visible bool) refresh.Snapshot
	State() refresh.State
	Running() bool
	Tables() *lookup.Tables
}

// Prober answers whether the feed host is reachable.
type Prober interface {
	Host() string
	Reachable(ctx context.Context) bool
}

type Handlers struct {
	Board  Board
	Probe  Prober       // optional
	DB     *database.DB // optional
	Logger *zap.Logger
	Now    func() time.Time

	// In-memory response cache for the chart endpoints.
	chartCache     map[string][]byte
	chartCacheAt   time.Time
	chartCacheSnap time.Time // CheckedAt of the snapshot the charts were built from
	chartCacheMu   sync.RWMutex
}

const (
	// ChartCacheTTL is how long to cache a chart response.
	ChartCacheTTL = 15 * time.Second
	// ChartCacheMaxAgeSec is the Cache-Control max-age header value.
	ChartCacheMaxAgeSec = 15
	// DefaultSnapshotLimit is the default page size for /api/snapshots.
	DefaultSnapshotLimit = 20
	// MaxSnapshotLimit caps /api/snapshots?limit.
	MaxSnapshotLimit = 200
)

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Register mounts every route under /api.
func (h *Handlers) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/reports", h.GetReports)
	api.Get("/stats", h.GetStats)
	api.Get("/next", h.GetNext)
	api.Get("/charts/time", h.GetTimeChart)
	api.Get("/charts/duration", h.GetDurationChart)
	api.Post("/refresh", h.PostRefresh)
	api.Post("/visibility", h.PostVisibility)
	api.Get("/health", h.GetHealth)
	api.Get("/snapshots", h.GetSnapshots)
}

// GetReports returns the snapshot meta and one card per report.
func (h *Handlers) GetReports(c *fiber.Ctx) error {
	snap := h.Board.Current()
	return c.JSON(fiber.Map{
		"meta":  snap,
		"cards": view.Cards(snap.Reports, h.Board.Tables(), h.now()),
	})
}

// GetStats returns the active/total counters and the most common location.
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	snap := h.Board.Current()
	return c.JSON(view.SummaryStats(snap.Reports, h.Board.Tables(), h.now()))
}

// GetNext returns the countdown banner.
func (h *Handlers) GetNext(c *fiber.Ctx) error {
	snap := h.Board.Current()
	return c.JSON(view.NextBanner(snap.Reports, h.Board.Tables(), h.now()))
}

func (h *Handlers) GetTimeChart(c *fiber.Ctx) error {
	return h.sendChart(c, "time", func(snap refresh.Snapshot) view.Series {
		return view.TimeDistribution(snap.Reports, h.Board.Tables())
	})
}

func (h *Handlers) GetDurationChart(c *fiber.Ctx) error {
	return h.sendChart(c, "duration", func(snap refresh.Snapshot) view.Series {
		return view.DurationChart(snap.Reports, h.Board.Tables())
	})
}

// sendChart serves a chart from the response cache. Charts only depend on the
// report list, so the cache is bound to the snapshot it was built from.
func (h *Handlers) sendChart(c *fiber.Ctx, name string, build func(refresh.Snapshot) view.Series) error {
	snap := h.Board.Current()

	h.chartCacheMu.RLock()
	if data, ok := h.cachedChart(name, snap); ok {
		h.chartCacheMu.RUnlock()
		return sendCachedJSON(c, data)
	}
	h.chartCacheMu.RUnlock()

	h.chartCacheMu.Lock()
	defer h.chartCacheMu.Unlock()

	// Double-check after acquiring write lock.
	if data, ok := h.cachedChart(name, snap); ok {
		return sendCachedJSON(c, data)
	}

	data, err := json.Marshal(build(snap))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "marshal error"})
	}
	if h.chartCache == nil || time.Since(h.chartCacheAt) >= ChartCacheTTL || !h.chartCacheSnap.Equal(snap.CheckedAt) {
		h.chartCache = make(map[string][]byte)
		h.chartCacheAt = time.Now()
		h.chartCacheSnap = snap.CheckedAt
	}
	h.chartCache[name] = data
	return sendCachedJSON(c, data)
}

// cachedChart must be called with chartCacheMu held.
func (h *Handlers) cachedChart(name string, snap refresh.Snapshot) ([]byte, bool) {
	data, ok := h.chartCache[name]
	if !ok || time.Since(h.chartCacheAt) >= ChartCacheTTL || !h.chartCacheSnap.Equal(snap.CheckedAt) {
		return nil, false
	}
	return data, true
}

func sendCachedJSON(c *fiber.Ctx, data []byte) error {
	c.Set("Content-Type", "application/json")
	c.Set("Cache-Control", "public, max-age="+strconv.Itoa(ChartCacheMaxAgeSec))
	return c.Send(data)
}

func (h *Handlers) dropChartCache() {
	h.chartCacheMu.Lock()
	h.chartCache = nil
	h.chartCacheMu.Unlock()
}

// PostRefresh runs one TTL-governed refresh and returns the snapshot meta.
func (h *Handlers) PostRefresh(c *fiber.Ctx) error {
	snap := h.Board.Refresh(c.UserContext())
	h.dropChartCache()
	return c.JSON(snap)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// PostVisibility suspends or resumes the poll timer.
func (h *Handlers) PostVisibility(c *fiber.Ctx) error {
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil || req.Visible == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": `expected {"visible": bool}`})
	}

	// The board outlives the request; a resumed timer must not stop with it.
	snap := h.Board.SetVisible(context.Background(), *req.Visible)
	if *req.Visible {
		h.dropChartCache()
	}
	h.Logger.Info("visibility changed", zap.Bool("visible", *req.Visible), zap.Bool("polling", h.Board.Running()))
	return c.JSON(fiber.Map{
		"visible": *req.Visible,
		"polling": h.Board.Running(),
		"meta":    snap,
	})
}

// GetHealth reports the policy state, the age of the data and whether the
// feed host answers pings.
func (h *Handlers) GetHealth(c *fiber.Ctx) error {
	snap := h.Board.Current()
	resp := fiber.Map{
		"status":  "ok",
		"state":   h.Board.State(),
		"default": snap.Default,
		"polling": h.Board.Running(),
	}
	if !snap.CachedAt.IsZero() {
		resp["cached_at"] = snap.CachedAt
		resp["cache_age"] = humanize.RelTime(snap.CachedAt, h.now(), "ago", "from now")
	}
	if snap.Warning != "" {
		resp["warning"] = snap.Warning
	}
	if h.Probe != nil {
		reachable := h.Probe.Reachable(c.UserContext())
		resp["feed_host"] = h.Probe.Host()
		resp["feed_reachable"] = reachable
		if !reachable {
			resp["status"] = "degraded"
		}
	}
	return c.JSON(resp)
}

// GetSnapshots lists recently archived fetches.
// Query params: ?limit=20 (max 200).
func (h *Handlers) GetSnapshots(c *fiber.Ctx) error {
	if h.DB == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "archive disabled"})
	}

	limit := c.QueryInt("limit", DefaultSnapshotLimit)
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	limit = min(limit, MaxSnapshotLimit)

	snaps, err := h.DB.RecentSnapshots(c.UserContext(), limit)
	if err != nil {
		h.Logger.Error("load snapshots", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load snapshots"})
	}
	if snaps == nil {
		snaps = make([]database.SnapshotInfo, 0)
	}
	return c.JSON(fiber.Map{"snapshots": snaps})
}
