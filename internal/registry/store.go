package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/internal/session"
	"github.com/nothingcube/regsync/pkg/logger"
)

// Store holds the authoritative client-side snapshot of the container list.
// Consistency after a mutation is always re-established by a full refetch:
// the client never patches its local view, it replaces it wholesale with
// whatever the server returns. Two racing refreshes are not serialized; the
// snapshot ends up equal to whichever refresh completed last.
type Store struct {
	logger   *logger.Logger
	gateway  models.Gateway
	session  *session.Session
	notifier models.Notifier

	mu         sync.RWMutex
	containers []*models.ContainerConfig
	loading    bool
}

// New creates a store. It starts in the loading state until the first
// refresh settles.
func New(gw models.Gateway, sess *session.Session, notifier models.Notifier, logger *logger.Logger) *Store {
	return &Store{
		logger:   logger,
		gateway:  gw,
		session:  sess,
		notifier: notifier,
		loading:  true,
	}
}

// Containers returns the current snapshot. The returned slice is a copy;
// records are shared and must be treated as read-only.
func (s *Store) Containers() []*models.ContainerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	containers := make([]*models.ContainerConfig, len(s.containers))
	copy(containers, s.containers)
	return containers
}

// Loading reports whether the initial fetch is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Refresh replaces the held collection with the server's current list.
// Without a credential it settles the loading flag and leaves the collection
// untouched; that is "not yet authenticated", not an error. On a failed list
// call the previous snapshot stays in place and the failure is surfaced once
// through the notifier.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.session.Authenticated() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return nil
	}

	containers, err := s.gateway.ListContainers(ctx)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.logger.Error("Failed to refresh container registry ", "error ", err)
		s.notifier.Notify(models.LevelError, refreshFailureMessage(err))
		return err
	}

	s.mu.Lock()
	s.containers = containers
	s.loading = false
	s.mu.Unlock()

	s.logger.Debug("Container registry refreshed ", "count ", len(containers))
	return nil
}

// Create submits a new container and refetches the registry before
// returning the created record.
func (s *Store) Create(ctx context.Context, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	created, err := s.gateway.CreateContainer(ctx, cfg)
	if err != nil {
		s.notifier.Notify(models.LevelError, mutationFailureMessage(err))
		return nil, err
	}
	// The refresh reports its own failures; the mutation already succeeded.
	_ = s.Refresh(ctx)
	return created, nil
}

// Update submits changes to an existing container and refetches.
func (s *Store) Update(ctx context.Context, id string, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	updated, err := s.gateway.UpdateContainer(ctx, id, cfg)
	if err != nil {
		s.notifier.Notify(models.LevelError, mutationFailureMessage(err))
		return nil, err
	}
	_ = s.Refresh(ctx)
	return updated, nil
}

// ToggleActive flips a container's activation flag on the server and
// refetches.
func (s *Store) ToggleActive(ctx context.Context, id string) (*models.ContainerConfig, error) {
	updated, err := s.gateway.ToggleContainerActive(ctx, id)
	if err != nil {
		s.notifier.Notify(models.LevelError, mutationFailureMessage(err))
		return nil, err
	}
	_ = s.Refresh(ctx)
	return updated, nil
}

// Delete removes a container on the server and refetches.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gateway.DeleteContainer(ctx, id); err != nil {
		s.notifier.Notify(models.LevelError, mutationFailureMessage(err))
		return err
	}
	_ = s.Refresh(ctx)
	return nil
}

func refreshFailureMessage(err error) string {
	var remote *models.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	if errors.Is(err, models.ErrSessionExpired) {
		return "Session expired, please sign in again"
	}
	return "Failed to load containers"
}

func mutationFailureMessage(err error) string {
	var remote *models.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	if errors.Is(err, models.ErrSessionExpired) {
		return "Session expired, please sign in again"
	}
	if errors.Is(err, models.ErrUnauthenticated) {
		return "Not authenticated"
	}
	return "Request to the registry failed"
}

var _ models.RegistryI = (*Store)(nil)
