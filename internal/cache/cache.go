package cache

import (
	"context"
	"time"

	"kamepos/backend/internal/domain"
)

// CatalogCache holds the rendered product list between admin edits so the
// grid does not hit the repository on every poll.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// CatalogNotifier feeds catalog change events to the POS/admin UIs. The
// checkout core never consumes this feed; it is publish-only here.
type CatalogNotifier interface {
	PublishCatalogEvent(ctx context.Context, event domain.CatalogEvent) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProducts(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}

type NoopCatalogNotifier struct{}

func (NoopCatalogNotifier) PublishCatalogEvent(_ context.Context, _ domain.CatalogEvent) error {
	return nil
}
