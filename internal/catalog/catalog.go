package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/pkg/logger"
)

// Catalog is a read-through cache over the reward-item catalog. The
// authoring wizard's item-selection and chance-assignment steps both need
// the catalog; they share this one collaborator instead of each fetching
// `/admin/items` on their own.
type Catalog struct {
	logger  *logger.Logger
	gateway models.Gateway

	mu     sync.RWMutex
	items  []*models.Item
	byID   map[string]*models.Item
	loaded bool
}

// New creates an empty catalog backed by the gateway.
func New(gw models.Gateway, logger *logger.Logger) *Catalog {
	return &Catalog{
		logger:  logger,
		gateway: gw,
	}
}

// Items returns the cached catalog, fetching it on first use.
func (c *Catalog) Items(ctx context.Context) ([]*models.Item, error) {
	c.mu.RLock()
	if c.loaded {
		items := make([]*models.Item, len(c.items))
		copy(items, c.items)
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	items, err := c.gateway.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load item catalog: %w", err)
	}

	byID := make(map[string]*models.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	c.mu.Lock()
	c.items = items
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug("Item catalog loaded ", "count ", len(items))

	result := make([]*models.Item, len(items))
	copy(result, items)
	return result, nil
}

// Item returns one catalog entry by identifier, loading the catalog if
// needed. The second return value reports whether the item exists.
func (c *Catalog) Item(ctx context.Context, id string) (*models.Item, bool, error) {
	if _, err := c.Items(ctx); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.byID[id]
	return item, ok, nil
}

// Invalidate drops the cached catalog; the next read fetches fresh data.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.byID = nil
	c.loaded = false
	c.mu.Unlock()
}
