// cache.go provides a small read-through cache for per-version runtime
// dependency lists, the hottest read on the detail page. Entries expire
// quickly and pushes invalidate the affected version, so the projection
// never serves dependencies from a half-written state.
package registry

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gem-registry/gem-registry/internal/db/models"
)

// DependencyCache caches runtime dependency lists keyed by version ID
type DependencyCache struct {
	cache *gocache.Cache
}

// NewDependencyCache creates a cache with the given entry TTL
func NewDependencyCache(ttl time.Duration) *DependencyCache {
	return &DependencyCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached dependency list for a version, if present
func (c *DependencyCache) Get(versionID string) ([]*models.Dependency, bool) {
	v, ok := c.cache.Get(versionID)
	if !ok {
		return nil, false
	}
	deps, ok := v.([]*models.Dependency)
	return deps, ok
}

// Set stores a dependency list for a version
func (c *DependencyCache) Set(versionID string, deps []*models.Dependency) {
	c.cache.SetDefault(versionID, deps)
}

// Invalidate drops the cached list for a version
func (c *DependencyCache) Invalidate(versionID string) {
	c.cache.Delete(versionID)
}
