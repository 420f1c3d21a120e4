package kv

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

// minimum size freecache accepts
const minCacheSize = 512 * 1024

// CachedStore is a read-through cache in front of another Store. Writes go
// to the backing store first and then replace the cached value, so a read
// after a successful write never serves stale data from this process.
type CachedStore struct {
	backing   Store
	cache     *freecache.Cache
	expireSec int
}

func NewCachedStore(backing Store, cacheSize, expireSec int) *CachedStore {
	if cacheSize < minCacheSize {
		cacheSize = minCacheSize
	}
	return &CachedStore{
		backing:   backing,
		cache:     freecache.NewCache(cacheSize),
		expireSec: expireSec,
	}
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if val, err := s.cache.Get([]byte(key)); err == nil {
		log.Tracef("kv cache hit: %s", key)
		return val, nil
	}

	val, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set([]byte(key), val, s.expireSec); err != nil {
		log.Warnf("kv cache set [%s]: %s", key, err)
	}
	return val, nil
}

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.backing.Set(ctx, key, value); err != nil {
		s.cache.Del([]byte(key))
		return err
	}

	if err := s.cache.Set([]byte(key), value, s.expireSec); err != nil {
		// value too large for the cache; make sure no older copy is served
		s.cache.Del([]byte(key))
		if !errors.Is(err, freecache.ErrLargeEntry) {
			log.Warnf("kv cache set [%s]: %s", key, err)
		}
	}
	return nil
}

func (s *CachedStore) Del(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return s.backing.Del(ctx, key)
}

func (s *CachedStore) HitRate() float64 {
	return s.cache.HitRate()
}
