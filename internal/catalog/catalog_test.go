package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/pkg/logger"
)

type itemsGateway struct {
	items []*models.Item
	err   error
	calls atomic.Int32
}

func (g *itemsGateway) ListItems(ctx context.Context) ([]*models.Item, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return g.items, nil
}

func (g *itemsGateway) ListContainers(ctx context.Context) ([]*models.ContainerConfig, error) {
	return nil, nil
}

func (g *itemsGateway) CreateContainer(ctx context.Context, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	return nil, nil
}

func (g *itemsGateway) UpdateContainer(ctx context.Context, id string, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	return nil, nil
}

func (g *itemsGateway) ToggleContainerActive(ctx context.Context, id string) (*models.ContainerConfig, error) {
	return nil, nil
}

func (g *itemsGateway) DeleteContainer(ctx context.Context, id string) error { return nil }

func (g *itemsGateway) ListShopItems(ctx context.Context) ([]*models.ShopItem, error) {
	return nil, nil
}

func TestCatalogReadThrough(t *testing.T) {
	gw := &itemsGateway{items: []*models.Item{{ID: "sword", Name: "Sword"}, {ID: "shield", Name: "Shield"}}}
	cat := New(gw, logger.NewNop())
	ctx := context.Background()

	// Several consumers, one fetch.
	for i := 0; i < 3; i++ {
		items, err := cat.Items(ctx)
		if err != nil {
			t.Fatalf("Items() = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("items = %d entries, want 2", len(items))
		}
	}
	if got := gw.calls.Load(); got != 1 {
		t.Errorf("gateway calls = %d, want 1", got)
	}

	item, ok, err := cat.Item(ctx, "sword")
	if err != nil || !ok {
		t.Fatalf("Item() = %v, %v, %v", item, ok, err)
	}
	if item.Name != "Sword" {
		t.Errorf("item = %+v", item)
	}

	if _, ok, _ := cat.Item(ctx, "axe"); ok {
		t.Error("unknown item reported as present")
	}
}

func TestCatalogInvalidate(t *testing.T) {
	gw := &itemsGateway{items: []*models.Item{{ID: "sword"}}}
	cat := New(gw, logger.NewNop())
	ctx := context.Background()

	if _, err := cat.Items(ctx); err != nil {
		t.Fatal(err)
	}
	cat.Invalidate()
	if _, err := cat.Items(ctx); err != nil {
		t.Fatal(err)
	}
	if got := gw.calls.Load(); got != 2 {
		t.Errorf("gateway calls = %d, want 2 after invalidation", got)
	}
}

func TestCatalogPropagatesErrors(t *testing.T) {
	wantErr := errors.New("backend down")
	gw := &itemsGateway{err: wantErr}
	cat := New(gw, logger.NewNop())

	_, err := cat.Items(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Items() = %v, want wrapped gateway error", err)
	}
	if gw.calls.Load() != 1 {
		t.Errorf("calls = %d", gw.calls.Load())
	}

	// A failed fetch is not cached.
	gw.err = nil
	gw.items = []*models.Item{{ID: "sword"}}
	if _, err := cat.Items(context.Background()); err != nil {
		t.Fatal(err)
	}
}
