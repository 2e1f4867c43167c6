// Package hybrid is the data surface the rest of the application uses.
//
// [Service] routes every entity operation to the on-device store or to the
// cloud API depending on the active workspace, injects the workspace id into
// every payload, keeps live queries bound to the active workspace and moves
// the local workspace into the cloud with [Service.MigrateLocalDataToCloud].
//
// Operations pin the active workspace through the resolver for their whole
// duration, so a workspace switch never lands in the middle of one.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ItIsGreg/Raki-sub002/pkg/client"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/session"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/ItIsGreg/Raki-sub002/pkg/workspace"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Remote is the cloud backend.
type Remote interface {
	store.EntityStore

	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	GetWorkspace(ctx context.Context, id models.WorkspaceID) (*models.Workspace, error)
	UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error
	DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error

	Events(ctx context.Context) (*client.EventStream, error)
}

// Sessions reports the authentication state.
type Sessions interface {
	Token() (string, bool)
	Current() *session.Session
}

const (
	DefaultMigrationConcurrency = 4
	DefaultMigrationRate        = 20
	DefaultMigrationBurst       = 8
)

type Service struct {
	local    store.Store
	remote   Remote
	resolver *workspace.Resolver
	sessions Sessions
	log      zerolog.Logger

	concurrency int
	limit       rate.Limit
	burst       int

	// changes feeds live queries with the changes of the active workspace
	changes *store.Notifier
	feed    *cloudFeed
	cleanup []func()

	migrating sync.Mutex
	closeOnce sync.Once
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMigrationLimits bounds the cloud creates of a migration phase:
// at most concurrency in flight, at most perSecond started per second with
// bursts of up to burst. A non-positive rate disables the rate limit.
func WithMigrationLimits(concurrency int, perSecond float64, burst int) Option {
	return func(s *Service) {
		if concurrency > 0 {
			s.concurrency = concurrency
		}
		if perSecond > 0 {
			s.limit = rate.Limit(perSecond)
		} else {
			s.limit = rate.Inf
		}
		if burst > 0 {
			s.burst = burst
		}
	}
}

// New wires the service to the resolver and to local change notifications.
// Call Close to release the subscriptions and the cloud event stream.
func New(local store.Store, remote Remote, resolver *workspace.Resolver, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		local:       local,
		remote:      remote,
		resolver:    resolver,
		sessions:    sessions,
		log:         zerolog.Nop(),
		concurrency: DefaultMigrationConcurrency,
		limit:       rate.Limit(DefaultMigrationRate),
		burst:       DefaultMigrationBurst,
		changes:     store.NewNotifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feed = newCloudFeed(remote, s.changes, s.log)

	for _, collection := range liveCollections {
		s.cleanup = append(s.cleanup, local.Changes().Subscribe(collection, s.forwardLocal))
	}
	s.cleanup = append(s.cleanup, resolver.Subscribe(s.onTransition))
	if active := resolver.Active(); !active.IsLocal() {
		s.feed.bind(active)
	}
	return s
}

// Close stops following the active workspace. Live queries keep their last
// snapshot.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		for _, fn := range s.cleanup {
			fn()
		}
		s.feed.close()
	})
}

// Changes is the notifier live queries subscribe to. It only carries changes
// of the active workspace, plus a reset on every switch.
func (s *Service) Changes() *store.Notifier {
	return s.changes
}

func (s *Service) forwardLocal(c store.Change) {
	if active := s.resolver.Active(); active.IsLocal() && c.WorkspaceID == active.ID {
		s.changes.Publish(c)
	}
}

func (s *Service) onTransition(t workspace.Transition) {
	s.feed.bind(t.To)
	s.changes.Reset(t.To.ID)
}

// route pins the active workspace and picks its backend. The caller must
// call release when the operation is done.
func (s *Service) route() (backend store.EntityStore, ws models.WorkspaceID, release func(), err error) {
	active, release := s.resolver.Acquire()
	if active.IsLocal() {
		return s.local, active.ID, release, nil
	}
	if _, ok := s.sessions.Token(); !ok {
		release()
		return nil, models.WorkspaceID{}, nil, fmt.Errorf("workspace %s: %w", active.ID, constants.ErrUnauthenticated)
	}
	return s.remote, active.ID, release, nil
}

func (s *Service) with(fn func(b store.EntityStore, ws models.WorkspaceID) error) error {
	b, ws, release, err := s.route()
	if err != nil {
		return err
	}
	defer release()
	return fn(b, ws)
}

func withResult[T any](s *Service, fn func(b store.EntityStore, ws models.WorkspaceID) (T, error)) (T, error) {
	b, ws, release, err := s.route()
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return fn(b, ws)
}

// ActiveWorkspace returns the workspace operations are currently routed to.
func (s *Service) ActiveWorkspace() models.Workspace {
	return s.resolver.Active()
}

// SetActiveWorkspace switches to the workspace with the given id. Cloud
// workspaces are looked up on the server first.
func (s *Service) SetActiveWorkspace(ctx context.Context, id models.WorkspaceID) error {
	if id == models.LocalWorkspaceID {
		return s.resolver.Set(ctx, models.LocalWorkspace())
	}
	if _, ok := s.sessions.Token(); !ok {
		return fmt.Errorf("switch to workspace %s: %w", id, constants.ErrUnauthenticated)
	}
	ws, err := s.remote.GetWorkspace(ctx, id)
	if err != nil {
		return fmt.Errorf("switch to workspace %s: %w", id, err)
	}
	return s.resolver.Set(ctx, *ws)
}

// ListWorkspaces returns the local workspace followed by the cloud
// workspaces of the signed in user. When the cloud cannot be reached the
// local workspace is still returned together with the error.
func (s *Service) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	result := []models.Workspace{models.LocalWorkspace()}
	if _, ok := s.sessions.Token(); !ok {
		return result, nil
	}
	cloud, err := s.remote.ListWorkspaces(ctx)
	if err != nil {
		return result, fmt.Errorf("list cloud workspaces: %w", err)
	}
	return append(result, cloud...), nil
}

// CreateWorkspace creates a cloud workspace. It does not switch to it.
func (s *Service) CreateWorkspace(ctx context.Context, name, description string) (*models.Workspace, error) {
	ws := &models.Workspace{Name: name, Description: description, StorageType: models.StorageCloud}
	if err := ws.Validate().AsError(); err != nil {
		return nil, err
	}
	if _, ok := s.sessions.Token(); !ok {
		return nil, constants.ErrUnauthenticated
	}
	if err := s.remote.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// RenameWorkspace updates the name and description of a cloud workspace.
func (s *Service) RenameWorkspace(ctx context.Context, id models.WorkspaceID, name, description string) (*models.Workspace, error) {
	if id == models.LocalWorkspaceID {
		return nil, store.Integrity(models.EntityWorkspace, "the local workspace cannot be renamed")
	}
	if _, ok := s.sessions.Token(); !ok {
		return nil, constants.ErrUnauthenticated
	}
	ws, err := s.remote.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	ws.Name, ws.Description = name, description
	if err := ws.Validate().AsError(); err != nil {
		return nil, err
	}
	if err := s.remote.UpdateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	if s.resolver.Active().ID == id {
		if err := s.resolver.Set(ctx, *ws); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

// DeleteWorkspace deletes a cloud workspace and everything in it. Deleting
// the active workspace switches to the local one first.
func (s *Service) DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error {
	if id == models.LocalWorkspaceID {
		return store.Integrity(models.EntityWorkspace, "the local workspace cannot be deleted")
	}
	if _, ok := s.sessions.Token(); !ok {
		return constants.ErrUnauthenticated
	}
	if s.resolver.Active().ID == id {
		if err := s.resolver.Set(ctx, models.LocalWorkspace()); err != nil {
			return err
		}
	}
	if err := s.remote.DeleteWorkspace(ctx, id); err != nil && !errors.Is(err, constants.ErrNotFound) {
		return err
	}
	return nil
}
