package engine

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"intakectl/internal/coverage"
	"intakectl/internal/taxonomy"
	"intakectl/internal/tree"
)

// Cached wraps a Manager and memoizes parsed messages per fixture path.
// Coverage and taxonomy calls go straight to the wrapped manager.
type Cached struct {
	Manager
	cache *cache.Cache
}

// NewCached creates a Cached manager whose entries live for ttl.
func NewCached(m Manager, ttl time.Duration) *Cached {
	return &Cached{
		Manager: m,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// GetParsedMessage returns a copy of the cached event for the fixture, parsing
// it on the first call. Failures are not cached.
func (c *Cached) GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error) {
	if cached, found := c.cache.Get(fixturePath); found {
		return tree.CopyMap(cached.(map[string]interface{})), nil
	}

	event, err := c.Manager.GetParsedMessage(ctx, fixturePath)
	if err != nil {
		return nil, err
	}
	c.cache.Set(fixturePath, tree.CopyMap(event), cache.DefaultExpiration)
	return event, nil
}

// GetCoverage implements Manager.
func (c *Cached) GetCoverage(ctx context.Context, module, format string) (coverage.Report, error) {
	return c.Manager.GetCoverage(ctx, module, format)
}

// GetTaxonomy implements Manager.
func (c *Cached) GetTaxonomy(ctx context.Context, module, format string) (taxonomy.Report, error) {
	return c.Manager.GetTaxonomy(ctx, module, format)
}
