package models

import "context"

// RegistryI is the client-side view of the container registry.
type RegistryI interface {
	// Refresh replaces the held snapshot with the server's current list.
	Refresh(ctx context.Context) error
	// Containers returns the current snapshot.
	Containers() []*ContainerConfig
	// Loading reports whether the initial fetch is still pending.
	Loading() bool

	Create(ctx context.Context, cfg *ContainerConfig) (*ContainerConfig, error)
	Update(ctx context.Context, id string, cfg *ContainerConfig) (*ContainerConfig, error)
	ToggleActive(ctx context.Context, id string) (*ContainerConfig, error)
	Delete(ctx context.Context, id string) error
}
