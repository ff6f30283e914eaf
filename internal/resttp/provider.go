package resttp

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BaseURLProvider resolves the base URL of the task service before each
// request. Implementations may integrate with service discovery systems and
// must be safe for concurrent use.

type BaseURLProvider interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticBase is a provider backed by a fixed URL.
type StaticBase string

func (s StaticBase) BaseURL(ctx context.Context) (string, error) {
	_ = ctx
	if s == "" {
		return "", ErrNoBaseURL
	}
	return string(s), nil
}

// DiscoveredBase resolves the base URL through a lookup function once and
// caches the result. Concurrent first calls share a single lookup.
type DiscoveredBase struct {
	lookup func(ctx context.Context) (string, error)

	sf   singleflight.Group
	mu   sync.RWMutex
	base string
}

func NewDiscoveredBase(lookup func(ctx context.Context) (string, error)) *DiscoveredBase {
	return &DiscoveredBase{lookup: lookup}
}

func (d *DiscoveredBase) BaseURL(ctx context.Context) (string, error) {
	d.mu.RLock()
	base := d.base
	d.mu.RUnlock()
	if base != "" {
		return base, nil
	}
	v, err, _ := d.sf.Do("base", func() (any, error) {
		b, err := d.lookup(ctx)
		if err != nil {
			return nil, err
		}
		if b == "" {
			return nil, ErrNoBaseURL
		}
		d.mu.Lock()
		d.base = b
		d.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached base URL so the next call looks it up again.
func (d *DiscoveredBase) Invalidate() {
	d.mu.Lock()
	d.base = ""
	d.mu.Unlock()
}
