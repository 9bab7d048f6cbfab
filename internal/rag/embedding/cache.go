package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader builds a model for an identity. It is called at most once per identity
// unless the load fails.
type Loader func(ctx context.Context, id string) (Model, error)

// ModelCache holds loaded models keyed by identity. Concurrent first requests for the
// same identity share one load; loading a new identity never disturbs models in use.
type ModelCache struct {
	loader Loader
	mu     sync.RWMutex
	models map[string]Model
	group  singleflight.Group
}

func NewModelCache(loader Loader) *ModelCache {
	return &ModelCache{loader: loader, models: map[string]Model{}}
}

func (c *ModelCache) Get(ctx context.Context, id string) (Model, error) {
	c.mu.RLock()
	m, ok := c.models[id]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.models[id]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}
		loaded, err := c.loader(ctx, id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.models[id] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}
