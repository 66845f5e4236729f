package session

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache is the per-instance id→session map. It is bounded, never
// consulted by Find, and exists for LocalSize diagnostics.
type localCache struct {
	entries *lru.Cache[string, *Session]
}

func newLocalCache(size int) *localCache {
	if size <= 0 {
		return &localCache{}
	}
	entries, err := lru.New[string, *Session](size)
	if err != nil {
		return &localCache{}
	}
	return &localCache{entries: entries}
}

func (c *localCache) add(id string, s *Session) {
	if c.entries != nil && id != "" {
		c.entries.Add(id, s)
	}
}

func (c *localCache) remove(id string) {
	if c.entries != nil {
		c.entries.Remove(id)
	}
}

func (c *localCache) purge() {
	if c.entries != nil {
		c.entries.Purge()
	}
}

func (c *localCache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}
