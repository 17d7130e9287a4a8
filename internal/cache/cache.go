// Package cache memoizes expensive lookups in an in-process ristretto cache.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"golang.org/x/sync/singleflight"
)

// Metrics receives one call per lookup.
type Metrics interface {
	CacheHit()
	CacheMiss()
}

type nometrics struct{}

func (nometrics) CacheHit()  {}
func (nometrics) CacheMiss() {}

// NewRistretto sizes a ristretto cache to hold roughly maxItems entries.
// Every entry costs 1.
func NewRistretto(maxItems int64) (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxItems * 10,
		MaxCost:            maxItems,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
}

// Loader is a read-through cache. Concurrent misses on one key share a
// single call to the load function.
type Loader[T any] struct {
	manager *cache.Cache[T]
	group   singleflight.Group
	ttl     time.Duration
	metrics Metrics

	// gen is bumped by Clear; a load started under an older generation is
	// returned to its callers but not stored.
	mu  sync.Mutex
	gen uint64
}

func New[T any](client *ristretto.Cache, ttl time.Duration, metrics Metrics) *Loader[T] {
	if metrics == nil {
		metrics = nometrics{}
	}
	return &Loader[T]{
		manager: cache.New[T](ristretto_store.NewRistretto(client)),
		ttl:     ttl,
		metrics: metrics,
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss. Load
// errors are returned as-is and never cached. The shared load outlives a
// cancelled caller; that caller alone gets ctx.Err().
func (l *Loader[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, err := l.manager.Get(ctx, key); err == nil {
		l.metrics.CacheHit()
		return v, nil
	}
	l.metrics.CacheMiss()

	gen := l.generation()
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		val, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		l.store(loadCtx, gen, key, val)
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (l *Loader[T]) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func (l *Loader[T]) store(ctx context.Context, gen uint64, key string, val T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	_ = l.manager.Set(ctx, key, val, store.WithExpiration(l.ttl), store.WithCost(1))
}

// Clear drops every entry, including any load still in flight.
func (l *Loader[T]) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	return l.manager.Clear(ctx)
}
