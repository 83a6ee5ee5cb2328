package gateway

import (
	"context"

	"go.uber.org/zap"
)

// SnapshotCache is the read-through cache used by CachedGateway.
// Implemented by cache.RedisCache.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// CachedGateway decorates a Gateway with snapshot caching on the list
// paths. Cache failures degrade to direct reads; they never fail the
// request. Every successful mutation invalidates its scope's snapshot.
type CachedGateway struct {
	Gateway

	cache SnapshotCache
	log   *zap.Logger
}

func NewCachedGateway(inner Gateway, c SnapshotCache, log *zap.Logger) *CachedGateway {
	return &CachedGateway{Gateway: inner, cache: c, log: log}
}

func itemsKey(courseID, category string) string {
	return "studio:items:" + courseID + ":" + category
}

func outlineKey(courseID string) string {
	return "studio:outline:" + courseID
}

func (g *CachedGateway) ListItems(ctx context.Context, courseID, category string) ([]Item, error) {
	key := itemsKey(courseID, category)
	var cached []Item
	hit, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	items, err := g.Gateway.ListItems(ctx, courseID, category)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, key, items); err != nil {
		g.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

func (g *CachedGateway) CreateItem(ctx context.Context, item Item) (Item, error) {
	created, err := g.Gateway.CreateItem(ctx, item)
	if err == nil {
		g.invalidate(ctx, itemsKey(item.CourseID, item.Category))
	}
	return created, err
}

func (g *CachedGateway) RepositionItems(ctx context.Context, courseID, category string, moves []Reposition) error {
	err := g.Gateway.RepositionItems(ctx, courseID, category, moves)
	if err == nil {
		g.invalidate(ctx, itemsKey(courseID, category))
	}
	return err
}

func (g *CachedGateway) SetItemsVisibility(ctx context.Context, courseID, category string, visible bool) error {
	err := g.Gateway.SetItemsVisibility(ctx, courseID, category, visible)
	if err == nil {
		g.invalidate(ctx, itemsKey(courseID, category))
	}
	return err
}

func (g *CachedGateway) UpdateItem(ctx context.Context, courseID, category, id, content string) error {
	err := g.Gateway.UpdateItem(ctx, courseID, category, id, content)
	if err == nil {
		g.invalidate(ctx, itemsKey(courseID, category))
	}
	return err
}

func (g *CachedGateway) DeleteItem(ctx context.Context, courseID, category, id string) error {
	err := g.Gateway.DeleteItem(ctx, courseID, category, id)
	if err == nil {
		g.invalidate(ctx, itemsKey(courseID, category))
	}
	return err
}

func (g *CachedGateway) GetOutline(ctx context.Context, courseID string) ([]SectionRecord, error) {
	key := outlineKey(courseID)
	var cached []SectionRecord
	hit, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	sections, err := g.Gateway.GetOutline(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, key, sections); err != nil {
		g.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return sections, nil
}

func (g *CachedGateway) SaveOutline(ctx context.Context, courseID string, sections []SectionRecord) ([]SectionRecord, error) {
	saved, err := g.Gateway.SaveOutline(ctx, courseID, sections)
	if err == nil {
		g.invalidate(ctx, outlineKey(courseID))
	}
	return saved, err
}

func (g *CachedGateway) invalidate(ctx context.Context, key string) {
	if err := g.cache.Delete(ctx, key); err != nil {
		g.log.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}
