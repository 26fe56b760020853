package cache

import (
	"fmt"
)

// Open returns the backend named by kind ("redis", "file" or "memory") and a
// func that releases it.
func Open(kind, redisURL, dir string) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case "redis":
		r, err := NewRedis(redisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case "file":
		f, err := NewFile(dir)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	case "memory":
		return NewMemory(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}
