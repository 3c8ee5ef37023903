package models

import "context"

// Gateway is the authenticated request layer against the remote registry API.
// It performs no caching; the registry store owns the snapshot.
type Gateway interface {
	ListContainers(ctx context.Context) ([]*ContainerConfig, error)
	CreateContainer(ctx context.Context, cfg *ContainerConfig) (*ContainerConfig, error)
	UpdateContainer(ctx context.Context, id string, cfg *ContainerConfig) (*ContainerConfig, error)
	ToggleContainerActive(ctx context.Context, id string) (*ContainerConfig, error)
	DeleteContainer(ctx context.Context, id string) error

	ListItems(ctx context.Context) ([]*Item, error)
	ListShopItems(ctx context.Context) ([]*ShopItem, error)
}
