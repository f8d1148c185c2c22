package export

import (
	"context"
	"sync"

	"media-export/internal/library"
	"media-export/internal/logging"
)

// CacheController owns the store's bulk pre-fetch session for a run.
// Invariant: at most one session is active at a time. The cache exists only
// to reduce thumbnail latency during fan-out; a run is correct with or
// without it.
type CacheController struct {
	store library.Store

	mu     sync.Mutex
	active bool
}

// NewCacheController creates a controller over the given store.
func NewCacheController(store library.Store) *CacheController {
	return &CacheController{store: store}
}

// Start begins a pre-fetch session for the given assets. Starting while a
// session is active stops the old session first. Starting with an empty
// asset set or a non-positive target size is a safe no-op: the store has
// nothing to pre-fetch, so no session is activated.
func (c *CacheController) Start(ctx context.Context, assets []library.Asset, width, height int) error {
	if len(assets) == 0 || width <= 0 || height <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		logging.Debug("Cache session already active, stopping it before restart")
		c.store.StopCaching()
		c.active = false
	}

	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}

	if err := c.store.StartCaching(ctx, ids, width, height); err != nil {
		return err
	}

	c.active = true
	return nil
}

// Stop ends the active session. Stopping when inactive is a safe no-op.
func (c *CacheController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}

	c.store.StopCaching()
	c.active = false
}

// Active reports whether a session is currently running.
func (c *CacheController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
