// Package workspace tracks which workspace is active on the device.
//
// The [Resolver] is a small state machine: it starts Unresolved, becomes
// LocalActive on Start and moves between LocalActive and CloudActive as the
// user signs in, picks a workspace or signs out.
//
// Data operations take the read side of the resolver's gate with
// [Resolver.Acquire] for their whole duration. A switch takes the write
// side, so it waits for every in-flight operation to finish and no
// operation ever observes a workspace change halfway through.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/session"
	"github.com/rs/zerolog"
)

type State int

const (
	StateUnresolved State = iota
	StateLocalActive
	StateCloudActive
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateLocalActive:
		return "local"
	case StateCloudActive:
		return "cloud"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition is delivered to subscribers after every switch.
type Transition struct {
	From  models.Workspace
	To    models.Workspace
	State State
}

// UsageStore persists when cloud workspaces were last active.
type UsageStore interface {
	TouchWorkspace(ctx context.Context, ws models.WorkspaceID, user models.UserID) error
	RecentWorkspaces(ctx context.Context, user models.UserID) ([]models.WorkspaceUsage, error)
	ForgetWorkspaces(ctx context.Context, user models.UserID) error
}

// CloudWorkspaces lists the workspaces of the signed in user.
type CloudWorkspaces interface {
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
}

// Sessions reports the current session, nil when signed out.
type Sessions interface {
	Current() *session.Session
}

type Resolver struct {
	usage    UsageStore
	cloud    CloudWorkspaces
	sessions Sessions
	log      zerolog.Logger

	// gate is read-held by in-flight data operations and write-held by a switch
	gate sync.RWMutex
	// op serializes switches and their notifications
	op sync.Mutex

	mu     sync.RWMutex
	state  State
	active models.Workspace

	subMu   sync.Mutex
	nextSub uint64
	subs    map[uint64]func(Transition)
	order   []uint64
}

type Option func(*Resolver)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func NewResolver(usage UsageStore, cloud CloudWorkspaces, sessions Sessions, opts ...Option) *Resolver {
	r := &Resolver{
		usage:    usage,
		cloud:    cloud,
		sessions: sessions,
		log:      zerolog.Nop(),
		subs:     make(map[uint64]func(Transition)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start moves an unresolved resolver to the local workspace. It is a no-op
// once a workspace has been resolved.
func (r *Resolver) Start(ctx context.Context) {
	r.op.Lock()
	defer r.op.Unlock()
	if r.State() != StateUnresolved {
		return
	}
	r.switchTo(models.LocalWorkspace())
}

func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Active returns the active workspace. Before Start it is the local
// workspace.
func (r *Resolver) Active() models.Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == StateUnresolved {
		return models.LocalWorkspace()
	}
	return r.active
}

// Acquire pins the active workspace until release is called. Switches wait
// for every pinned operation to release.
func (r *Resolver) Acquire() (models.Workspace, func()) {
	r.gate.RLock()
	var once sync.Once
	return r.Active(), func() { once.Do(r.gate.RUnlock) }
}

// Set switches to ws. A cloud workspace needs a session; switching to it
// records a usage entry for the signed in user.
func (r *Resolver) Set(ctx context.Context, ws models.Workspace) error {
	r.op.Lock()
	defer r.op.Unlock()

	if ws.IsLocal() || ws.ID == models.LocalWorkspaceID {
		r.switchTo(models.LocalWorkspace())
		return nil
	}
	s := r.sessions.Current()
	if s == nil {
		return fmt.Errorf("switch to workspace %s: %w", ws.ID, constants.ErrUnauthenticated)
	}
	r.touch(ctx, ws.ID, s.User.ID)
	r.switchTo(ws)
	return nil
}

// HandleSession reacts to session transitions. After sign-in it picks the
// most recently used cloud workspace, falling back to the default one and
// then to the most recently updated one. A token refresh keeps the active
// workspace. Sign-out returns to the local workspace; account deletion also
// forgets the user's usage records.
func (r *Resolver) HandleSession(ctx context.Context, ev session.Event) error {
	r.op.Lock()
	defer r.op.Unlock()

	switch ev.Kind {
	case session.EventAcquired:
		return r.resolveCloud(ctx, ev.Session)
	case session.EventRefreshed:
		r.log.Debug().Str("workspace", r.Active().ID.String()).Msg("session refreshed, keeping workspace")
	case session.EventCleared:
		r.switchTo(models.LocalWorkspace())
	case session.EventDeleted:
		r.switchTo(models.LocalWorkspace())
		if ev.Session != nil {
			if err := r.usage.ForgetWorkspaces(ctx, ev.Session.User.ID); err != nil {
				return fmt.Errorf("forget workspace usage: %w", err)
			}
		}
	}
	return nil
}

func (r *Resolver) resolveCloud(ctx context.Context, s *session.Session) error {
	if s == nil {
		r.switchTo(models.LocalWorkspace())
		return nil
	}
	workspaces, err := r.cloud.ListWorkspaces(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not list cloud workspaces, staying local")
		r.switchTo(models.LocalWorkspace())
		return fmt.Errorf("list cloud workspaces: %w", err)
	}

	recent, err := r.usage.RecentWorkspaces(ctx, s.User.ID)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not read workspace usage")
	}

	ws, ok := Pick(workspaces, recent)
	if !ok {
		r.switchTo(models.LocalWorkspace())
		return nil
	}
	r.touch(ctx, ws.ID, s.User.ID)
	r.switchTo(ws)
	return nil
}

// Pick chooses the workspace to activate after sign-in: the first of
// recent that still exists, else the default workspace, else the most
// recently updated one.
func Pick(workspaces []models.Workspace, recent []models.WorkspaceUsage) (models.Workspace, bool) {
	if len(workspaces) == 0 {
		return models.Workspace{}, false
	}
	byID := make(map[models.WorkspaceID]models.Workspace, len(workspaces))
	for _, ws := range workspaces {
		byID[ws.ID] = ws
	}
	for _, u := range recent {
		if ws, ok := byID[u.WorkspaceID]; ok {
			return ws, true
		}
	}
	for _, ws := range workspaces {
		if ws.IsDefault {
			return ws, true
		}
	}
	sorted := append([]models.Workspace(nil), workspaces...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted[0], true
}

// Subscribe registers fn for transitions. Callbacks run after the switch,
// outside the gate, in transition order.
func (r *Resolver) Subscribe(fn func(Transition)) (unsubscribe func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = fn
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			delete(r.subs, id)
			for i, sid := range r.order {
				if sid == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (r *Resolver) touch(ctx context.Context, ws models.WorkspaceID, user models.UserID) {
	if err := r.usage.TouchWorkspace(ctx, ws, user); err != nil {
		r.log.Warn().Err(err).Str("workspace", ws.String()).Msg("could not record workspace usage")
	}
}

// switchTo must be called with op held.
func (r *Resolver) switchTo(ws models.Workspace) {
	state := StateCloudActive
	if ws.IsLocal() {
		state = StateLocalActive
	}

	r.gate.Lock()
	r.mu.Lock()
	from := r.active
	unchanged := r.state == state && r.active.ID == ws.ID
	r.state = state
	r.active = ws
	r.mu.Unlock()
	r.gate.Unlock()

	if unchanged {
		return
	}
	r.log.Info().Str("workspace", ws.ID.String()).Stringer("state", state).Msg("active workspace switched")

	r.subMu.Lock()
	fns := make([]func(Transition), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.subs[id])
	}
	r.subMu.Unlock()

	t := Transition{From: from, To: ws, State: state}
	for _, fn := range fns {
		fn(t)
	}
}
