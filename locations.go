package chairside

import (
	"context"
	"time"

	"github.com/chairside/chairside/internal/square"
)

const locationCacheTTL = 12 * time.Hour

// locationName resolves a location id to its display name, caching results
// in Redis. Location names change rarely; a stale name only affects copy in
// notifications, so cache failures fall through to the API silently.
func (c *Chairside) locationName(ctx context.Context, locationID string) string {
	if locationID == "" {
		return ""
	}

	cacheKey := "location:name:" + locationID
	var name string
	if err := c.cache.Get(ctx, cacheKey, &name); err == nil && name != "" {
		return name
	}

	location, err := c.square.RetrieveLocation(ctx, locationID)
	if err != nil {
		square.LogAPIError("retrieve location", err)
		return ""
	}
	_ = c.cache.Set(ctx, cacheKey, location.Name, locationCacheTTL)
	return location.Name
}
