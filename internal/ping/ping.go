package ping

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// PingHost sends ICMP pings to the target and returns true if reachable.
func PingHost(ctx context.Context, target string, logger *zap.Logger) bool {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		logger.Warn("failed to create pinger", zap.String("target", target), zap.Error(err))
		return false
	}
	pinger.Count = 3
	pinger.Timeout = 5 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.RunWithContext(ctx); err != nil {
		logger.Debug("ping failed", zap.String("target", target), zap.Error(err))
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// HostFromURL extracts the hostname a feed URL points at.
func HostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("feed url %q has no host", raw)
	}
	return u.Hostname(), nil
}

// Prober reports feed-host reachability, remembering the answer for a while
// so health checks do not send ICMP on every request.
type Prober struct {
	host   string
	ttl    time.Duration
	probe  func(ctx context.Context, host string) bool
	logger *zap.Logger

	mu        sync.Mutex
	checkedAt time.Time
	reachable bool
}

// NewProber probes host with ICMP, caching results for ttl.
func NewProber(host string, ttl time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		host: host,
		ttl:  ttl,
		probe: func(ctx context.Context, h string) bool {
			return PingHost(ctx, h, logger)
		},
		logger: logger,
	}
}

// Host returns the probed hostname.
func (p *Prober) Host() string { return p.host }

// Reachable returns the cached result, probing again once it is older than ttl.
func (p *Prober) Reachable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.checkedAt.IsZero() && time.Since(p.checkedAt) < p.ttl {
		return p.reachable
	}
	p.reachable = p.probe(ctx, p.host)
	p.checkedAt = time.Now()
	if !p.reachable {
		p.logger.Warn("feed host unreachable", zap.String("host", p.host))
	}
	return p.reachable
}
