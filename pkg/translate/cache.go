package translate

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached remembers successful lookups of the wrapped provider. Misses and
// failures are not cached so a later lookup can still succeed.
type Cached struct {
	next  Provider
	cache *lru.Cache[string, *Result]
}

// NewCached wraps next with an LRU cache holding up to size results.
func NewCached(next Provider, size int) (*Cached, error) {
	c, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	return &Cached{next: next, cache: c}, nil
}

// Translate implements Provider.
func (c *Cached) Translate(ctx context.Context, word string) (*Result, error) {
	if res, ok := c.cache.Get(word); ok {
		return res, nil
	}
	res, err := c.next.Translate(ctx, word)
	if err != nil {
		return nil, err
	}
	c.cache.Add(word, res)
	return res, nil
}

// Len returns the number of cached results.
func (c *Cached) Len() int { return c.cache.Len() }
