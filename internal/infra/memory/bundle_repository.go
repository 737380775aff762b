package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcqbank-service/internal/domain"
)

// BundleLoader fetches a bundle from its backing store (file dir, Postgres).
type BundleLoader interface {
	LoadBundle(ctx context.Context, seq int) (domain.Bundle, error)
}

// BundleRepository caches bundles with TTL so a running session does not
// re-read its bundle from disk or the database for every question.
type BundleRepository struct {
	loader BundleLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedBundle
}

type cachedBundle struct {
	bundle    domain.Bundle
	expiresAt time.Time
}

func NewBundleRepository(loader BundleLoader, ttl time.Duration) *BundleRepository {
	return &BundleRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedBundle),
	}
}

func (r *BundleRepository) GetBundle(ctx context.Context, seq int) (domain.Bundle, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[seq]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bundle, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(strconv.Itoa(seq), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[seq]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bundle, nil
		}
		r.mu.RUnlock()

		bundle, err := r.loader.LoadBundle(ctx, seq)
		if err != nil {
			return domain.Bundle{}, err
		}

		r.mu.Lock()
		r.cache[seq] = cachedBundle{bundle: bundle, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return bundle, nil
	})
	if err != nil {
		return domain.Bundle{}, err
	}
	return result.(domain.Bundle), nil
}

func (r *BundleRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBundleLoader serves bundles from an in-memory map (tests/demos).
type StaticBundleLoader struct {
	bundles map[int]domain.Bundle
}

func NewStaticBundleLoader(bundles map[int]domain.Bundle) *StaticBundleLoader {
	return &StaticBundleLoader{bundles: bundles}
}

func (l *StaticBundleLoader) LoadBundle(_ context.Context, seq int) (domain.Bundle, error) {
	if b, ok := l.bundles[seq]; ok {
		return b, nil
	}
	return domain.Bundle{}, domain.ErrBundleNotFound
}
