// Package local is the in-process LRU in front of the shared coverage cache.
package local

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/healpix-index/internal/core/model"
)

// Cache holds recently used coverage results. Stored slices are shared with
// callers and must be treated as read-only.
type Cache struct {
	lru *lru.Cache[string, model.Pixels]
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, model.Pixels](size)
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) Get(key string) (model.Pixels, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Add(key string, px model.Pixels) {
	c.lru.Add(key, px)
}

func (c *Cache) Remove(key string) {
	c.lru.Remove(key)
}

func (c *Cache) Len() int { return c.lru.Len() }
