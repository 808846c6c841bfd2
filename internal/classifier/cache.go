package classifier

import (
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// TrainFunc fits a classifier and reports the corpus version it was fit on.
// That version can be newer than the one the caller looked up when a
// re-enrollment lands in between.
type TrainFunc func() (*Trained, int64, error)

// Cache keeps trained classifiers keyed by section and corpus version, so
// repeated attendance sessions on an unchanged roster skip retraining.
// Re-enrollment bumps the version, which makes old entries unreachable;
// Invalidate drops them eagerly.
//
// The cache runs no janitor goroutine. Expired entries are swept on every
// miss, which is the only time the cache grows.
type Cache struct {
	items *cache.Cache
	group singleflight.Group
}

// NewCache creates a cache whose entries expire ttl after they were trained.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{items: cache.New(ttl, 0)}
}

// Key returns the cache key for a section at a corpus version.
func Key(section string, version int64) string {
	return section + "@" + strconv.FormatInt(version, 10)
}

// GetOrTrain returns the cached classifier for (section, version), or calls
// train once even under concurrent callers. The result is stored under the
// version train reports. The bool reports a cache hit.
func (c *Cache) GetOrTrain(section string, version int64, train TrainFunc) (*Trained, bool, error) {
	key := Key(section, version)
	if v, ok := c.items.Get(key); ok {
		return v.(*Trained), true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.items.Get(key); ok {
			return v, nil
		}
		c.items.DeleteExpired()
		t, trained, err := train()
		if err != nil {
			return nil, err
		}
		c.items.Set(Key(section, trained), t, cache.DefaultExpiration)
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Trained), false, nil
}

// Invalidate drops every cached version of section.
func (c *Cache) Invalidate(section string) int {
	var dropped int
	for key := range c.items.Items() {
		i := strings.LastIndexByte(key, '@')
		if i >= 0 && key[:i] == section {
			c.items.Delete(key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of cached classifiers. Expired entries count until
// the next miss sweeps them.
func (c *Cache) Len() int { return c.items.ItemCount() }
