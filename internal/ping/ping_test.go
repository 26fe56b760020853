package ping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHostFromURL(t *testing.T) {
	tests := map[string]struct {
		url string

		want    string
		wantErr bool
	}{
		"Https url":   {url: "https://mmo.ydev.tech/monster/current", want: "mmo.ydev.tech"},
		"With port":   {url: "http://127.0.0.1:8080/feed", want: "127.0.0.1"},
		"No host":     {url: "/monster/current", wantErr: true},
		"Invalid url": {url: "http://[::1", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := HostFromURL(tc.url)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProber_CachesResult(t *testing.T) {
	calls := 0
	p := NewProber("feed.example", time.Hour, zap.NewNop())
	p.probe = func(_ context.Context, host string) bool {
		calls++
		assert.Equal(t, "feed.example", host)
		return true
	}

	assert.True(t, p.Reachable(context.Background()))
	assert.True(t, p.Reachable(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestProber_ProbesAgainAfterTTL(t *testing.T) {
	results := []bool{false, true}
	p := NewProber("feed.example", time.Nanosecond, zap.NewNop())
	p.probe = func(context.Context, string) bool {
		r := results[0]
		results = results[1:]
		return r
	}

	assert.False(t, p.Reachable(context.Background()))
	time.Sleep(time.Millisecond)
	assert.True(t, p.Reachable(context.Background()))
}
