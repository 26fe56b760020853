// Package refresh decides, per request, whether the report dataset comes from
// the cache, the feed, an expired cache entry, or the built-in defaults, and
// runs the recurring freshness check.
package refresh

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"boss-spawn-board/internal/cache"
	"boss-spawn-board/internal/feed"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
)

// State is where the freshness policy currently stands.
type State string

const (
	StateFreshCache  State = "fresh_cache"
	StateStaleCache  State = "stale_cache"
	StateNoCache     State = "no_cache"
	StateFetching    State = "fetching"
	StateFetchFailed State = "fetch_failed"
)

// Fetcher downloads the normalized report list.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.MonsterReport, error)
}

// Result is the outcome of one GetCurrentDataset call. Found is false only
// when the feed failed and no cache entry exists at all.
type Result struct {
	Reports  []models.MonsterReport
	Found    bool
	State    State
	Fetched  bool // true when Reports came from the network in this call
	CachedAt time.Time
	Warning  error // fetch failure absorbed by a fallback
}

// Snapshot is the dataset currently shown to readers.
type Snapshot struct {
	Reports   []models.MonsterReport `json:"-"`
	State     State                  `json:"state"`
	Default   bool                   `json:"default"`
	Fetched   bool                   `json:"fetched"`
	CachedAt  time.Time              `json:"cached_at"`
	CheckedAt time.Time              `json:"checked_at"`
	Warning   string                 `json:"warning,omitempty"`
}

// Listener is called after a refresh that fetched new data from the feed.
type Listener func(ctx context.Context, snap Snapshot)

// Options configures a Service. Zero values fall back to the defaults noted.
type Options struct {
	Key      string                        // cache slot, required
	TTL      time.Duration                 // required
	Interval time.Duration                 // required
	Source   lookup.Source                 // default static tables; replays cached reports
	Now      func() time.Time              // default time.Now
	Defaults func() []models.MonsterReport // default DefaultReports
}

type ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) Chan() <-chan time.Time { return t.C }

// Service owns the freshness policy, the current snapshot, and the poll timer.
type Service struct {
	cache    *cache.Cache
	fetcher  Fetcher
	source   lookup.Source
	logger   *zap.Logger
	key      string
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	defaults func() []models.MonsterReport

	newTicker func(time.Duration) ticker
	flight    singleflight.Group

	mu        sync.RWMutex
	current   Snapshot
	state     State
	listeners []Listener

	timerMu sync.Mutex
	stop    chan struct{}
}

func NewService(c *cache.Cache, f Fetcher, logger *zap.Logger, opts Options) *Service {
	s := &Service{
		cache:    c,
		fetcher:  f,
		source:   opts.Source,
		logger:   logger,
		key:      opts.Key,
		ttl:      opts.TTL,
		interval: opts.Interval,
		now:      opts.Now,
		defaults: opts.Defaults,
		newTicker: func(d time.Duration) ticker {
			return realTicker{time.NewTicker(d)}
		},
		state: StateNoCache,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaults == nil {
		s.defaults = DefaultReports
	}
	if s.source == nil {
		s.source = lookup.NewStaticSource(lookup.NewTables())
	}
	s.current = Snapshot{Reports: s.defaults(), State: StateNoCache, Default: true}
	return s
}

// OnFetched registers l to run after every refresh that hit the network.
func (s *Service) OnFetched(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// GetCurrentDataset applies the freshness policy:
// a fresh cache entry is returned without a network call; otherwise the feed
// is fetched and cached; if that fails an expired entry is returned, and only
// when there is no entry at all is the result not Found.
func (s *Service) GetCurrentDataset(ctx context.Context) Result {
	now := s.now()
	if entry, ok := s.cache.ReadFresh(ctx, s.key, s.ttl, now); ok {
		s.observe(entry.Data)
		s.setState(StateFreshCache)
		s.logger.Debug("serving cached reports",
			zap.String("age", humanize.RelTime(entry.Time(), now, "old", "ahead")),
			zap.Duration("valid_for", s.ttl-entry.Age(now)),
		)
		return Result{Reports: entry.Data, Found: true, State: StateFreshCache, CachedAt: entry.Time()}
	}

	s.setState(StateFetching)
	// Concurrent callers share one network call; only the caller that ran it
	// reports Fetched, so listeners fire once per fetch.
	ran := false
	v, err, _ := s.flight.Do(s.key, func() (any, error) {
		ran = true
		return s.fetchAndStore(ctx)
	})
	if err == nil {
		res := v.(Result)
		res.Fetched = ran
		s.setState(StateFreshCache)
		return res
	}

	s.setState(StateFetchFailed)
	s.logger.Warn("feed fetch failed", zap.String("kind", failureKind(err)), zap.Error(err))

	if entry, ok := s.cache.Read(ctx, s.key); ok {
		s.observe(entry.Data)
		s.setState(StateStaleCache)
		s.logger.Warn("serving expired cache",
			zap.String("age", humanize.RelTime(entry.Time(), now, "old", "ahead")),
		)
		return Result{Reports: entry.Data, Found: true, State: StateStaleCache, CachedAt: entry.Time(), Warning: err}
	}

	s.setState(StateNoCache)
	return Result{State: StateNoCache, Warning: err}
}

func (s *Service) fetchAndStore(ctx context.Context) (Result, error) {
	reports, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}

	entry := models.NewCacheEntry(s.now(), reports)
	if err := s.cache.Write(ctx, s.key, entry); err != nil {
		s.logger.Warn("cache write failed, continuing with fetched data", zap.Error(err))
	}
	s.logger.Info("reports refreshed from feed", zap.Int("reports", len(reports)))
	return Result{Reports: reports, Found: true, State: StateFreshCache, Fetched: true, CachedAt: entry.Time()}, nil
}

func (s *Service) observe(reports []models.MonsterReport) {
	if u := s.source.Observe(reports); !u.Empty() {
		s.logger.Debug("lookup tables updated",
			zap.Int("monsters", len(u.Monsters)),
			zap.Int("moves", len(u.Moves)),
		)
	}
}

func failureKind(err error) string {
	var netErr *feed.NetworkError
	var parseErr *feed.ParseError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "unknown"
	}
}

// Refresh runs GetCurrentDataset, substitutes the built-in defaults when
// nothing usable came back, and publishes the result as the current snapshot.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	res := s.GetCurrentDataset(ctx)

	snap := Snapshot{
		Reports:   res.Reports,
		State:     res.State,
		Fetched:   res.Fetched,
		CachedAt:  res.CachedAt,
		CheckedAt: s.now(),
	}
	if res.Warning != nil {
		snap.Warning = res.Warning.Error()
	}
	if !res.Found || len(res.Reports) == 0 {
		snap.Reports = s.defaults()
		snap.Default = true
	}

	s.mu.Lock()
	s.current = snap
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if snap.Fetched {
		for _, l := range listeners {
			l(ctx, snap)
		}
	}
	return snap
}

// Current returns the last published snapshot.
func (s *Service) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// State returns the live policy state, including fetching.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Tables exposes the lookup tables the snapshot should be rendered with.
func (s *Service) Tables() *lookup.Tables {
	return s.source.Tables()
}

// Start begins the recurring freshness check. Each tick calls Refresh; the
// TTL decides whether that reaches the network. Calling Start on a running
// service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	t := s.newTicker(s.interval)
	go s.loop(ctx, t, stop)
	s.logger.Info("refresh timer started", zap.Duration("interval", s.interval), zap.Duration("ttl", s.ttl))
}

func (s *Service) loop(ctx context.Context, t ticker, stop chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.timerMu.Lock()
			if s.stop == stop {
				s.stop = nil
			}
			s.timerMu.Unlock()
			return
		case <-stop:
			return
		case <-t.Chan():
			s.Refresh(ctx)
		}
	}
}

// Stop cancels the timer. A fetch already in flight runs to completion.
func (s *Service) Stop() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	s.logger.Info("refresh timer stopped")
}

// Running reports whether the timer is active.
func (s *Service) Running() bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	return s.stop != nil
}

// SetVisible suspends the timer while the audience is away. Becoming visible
// runs one immediate refresh and restarts the timer; missed ticks are not
// replayed.
func (s *Service) SetVisible(ctx context.Context, visible bool) Snapshot {
	if !visible {
		s.Stop()
		return s.Current()
	}
	snap := s.Refresh(ctx)
	s.Start(ctx)
	return snap
}
