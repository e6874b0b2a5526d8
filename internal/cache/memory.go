package cache

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/models"
)

// MemoryCache is the default, non-persistent Cache.
type MemoryCache struct {
	mu            sync.RWMutex
	authoritative map[string]*models.List
	overlay       map[string]*models.List
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		authoritative: make(map[string]*models.List),
		overlay:       make(map[string]*models.List),
	}
}

func (c *MemoryCache) Get(ctx context.Context, listID string) (*models.List, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getLocked(listID)
}

func (c *MemoryCache) getLocked(listID string) (*models.List, error) {
	if l, ok := c.overlay[listID]; ok {
		return l.Clone(), nil
	}
	if l, ok := c.authoritative[listID]; ok {
		return l.Clone(), nil
	}
	return nil, common.ErrNotFound
}

func (c *MemoryCache) SetFromRemote(ctx context.Context, l *models.List) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative[l.ID] = l.Clone()
	return nil
}

func (c *MemoryCache) ApplyOptimistic(ctx context.Context, listID string, apply Transform) (*models.List, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.getLocked(listID)
	if err != nil {
		return nil, err
	}
	next, err := apply(base)
	if err != nil {
		return nil, err
	}
	c.overlay[listID] = next.Clone()
	return next, nil
}

func (c *MemoryCache) ClearOptimistic(ctx context.Context, listID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overlay, listID)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, listID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overlay, listID)
	delete(c.authoritative, listID)
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authoritative = make(map[string]*models.List)
	c.overlay = make(map[string]*models.List)
	return nil
}
