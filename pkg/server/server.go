// Package server is the reference cloud backend for the Raki client.
//
// It serves the REST surface in [github.com/ItIsGreg/Raki-sub002/pkg/api]
// on top of any [store.Store]:
//
//	GET    /health                                   - liveness
//	GET    /metrics                                  - Prometheus metrics
//
//	POST   /auth/register                            - create account and default workspace
//	POST   /auth/login                               - exchange credentials for a token
//	POST   /auth/logout                              - drop the token
//	POST   /auth/refresh                             - exchange the token for a new one
//	POST   /auth/change-password                     - replace the password
//	GET    /auth/me                                  - current user
//	DELETE /auth/me                                  - delete the account and its workspaces
//
//	GET    /data/workspaces                          - workspaces of the caller
//	POST   /data/workspaces                          - create a cloud workspace
//	GET    /data/workspaces/{ws}                     - read
//	PUT    /data/workspaces/{ws}                     - rename
//	DELETE /data/workspaces/{ws}                     - delete with everything in it
//	GET    /data/workspaces/{ws}/{collection}        - list, optional parent filter
//	POST   /data/workspaces/{ws}/{collection}        - create
//	GET    /data/workspaces/{ws}/{collection}/{id}   - read
//	PUT    /data/workspaces/{ws}/{collection}/{id}   - update
//	DELETE /data/workspaces/{ws}/{collection}/{id}   - delete with children
//	GET    /data/profiles, /data/datasets            - default workspace aliases (also POST)
//	GET    /data/events                              - websocket change events
//
// Tokens are opaque random strings kept in memory for seven days. POST
// requests may carry an Idempotency-Key header; a repeated key replays the
// first response instead of creating again.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// SessionTTL is how long a token stays valid.
	SessionTTL = 7 * 24 * time.Hour
	// IdempotencyTTL is how long a response is replayed for a repeated key.
	IdempotencyTTL = 24 * time.Hour
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	// DefaultWorkspaceName is created for every new account.
	DefaultWorkspaceName = "My Cloud Workspace"

	maxBodyBytes = 8 << 20
)

type Server struct {
	store    store.Store
	log      zerolog.Logger
	readOnly atomic.Bool

	sessions *cache.Cache
	replays  *cache.Cache
	keys     *keyLocks
	owners   *cache.Cache

	hub     *hub
	metrics *metrics
	router  *mux.Router
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithReadOnly starts the server in maintenance mode.
func WithReadOnly(readOnly bool) Option {
	return func(s *Server) { s.readOnly.Store(readOnly) }
}

// New builds the server on st. The store must already be migrated.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		log:      zerolog.Nop(),
		sessions: cache.New(SessionTTL, time.Hour),
		replays:  cache.New(IdempotencyTTL, time.Hour),
		keys:     newKeyLocks(),
		owners:   cache.New(time.Hour, 10*time.Minute),
		metrics:  newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = store.NewReadOnlyStore(st, s.readOnly.Load)
	s.hub = newHub(s.store, s.owners, s.log)
	s.metrics.gauge("event_connections", "Open websocket event streams", func() float64 {
		return float64(s.hub.total())
	})
	s.router = s.routes()
	return s
}

// SetReadOnly toggles maintenance mode at runtime.
func (s *Server) SetReadOnly(readOnly bool) {
	s.readOnly.Store(readOnly)
	s.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close disconnects event stream clients.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.metrics.middleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	auth := router.PathPrefix(api.AuthPrefix).Subrouter()
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.authenticated(s.handleRefresh)).Methods(http.MethodPost)
	auth.HandleFunc("/change-password", s.authenticated(s.handleChangePassword)).Methods(http.MethodPost)
	auth.HandleFunc("/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)
	auth.HandleFunc("/me", s.authenticated(s.handleDeleteMe)).Methods(http.MethodDelete)

	data := router.PathPrefix(api.DataPrefix).Subrouter()
	data.HandleFunc("/events", s.authenticated(s.hub.handleEvents)).Methods(http.MethodGet)
	data.HandleFunc("/workspaces", s.authenticated(s.handleListWorkspaces)).Methods(http.MethodGet)
	data.HandleFunc("/workspaces", s.authenticated(s.idempotent(s.handleCreateWorkspace))).Methods(http.MethodPost)
	data.HandleFunc("/workspaces/{ws}", s.authenticated(s.handleGetWorkspace)).Methods(http.MethodGet)
	data.HandleFunc("/workspaces/{ws}", s.authenticated(s.handleUpdateWorkspace)).Methods(http.MethodPut)
	data.HandleFunc("/workspaces/{ws}", s.authenticated(s.handleDeleteWorkspace)).Methods(http.MethodDelete)

	for _, res := range s.resources() {
		collection := "/workspaces/{ws}/" + api.Segment(res.entity)
		data.HandleFunc(collection, s.authenticated(s.inWorkspace(res.list))).Methods(http.MethodGet)
		data.HandleFunc(collection, s.authenticated(s.idempotent(s.inWorkspace(res.create)))).Methods(http.MethodPost)
		data.HandleFunc(collection+"/{id}", s.authenticated(s.inWorkspace(res.get))).Methods(http.MethodGet)
		data.HandleFunc(collection+"/{id}", s.authenticated(s.inWorkspace(res.update))).Methods(http.MethodPut)
		data.HandleFunc(collection+"/{id}", s.authenticated(s.inWorkspace(res.delete))).Methods(http.MethodDelete)

		if res.alias {
			alias := "/" + api.Segment(res.entity)
			data.HandleFunc(alias, s.authenticated(s.inDefaultWorkspace(res.list))).Methods(http.MethodGet)
			data.HandleFunc(alias, s.authenticated(s.idempotent(s.inDefaultWorkspace(res.create)))).Methods(http.MethodPost)
		}
	}
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"read_only": s.readOnly.Load(),
		"time":      time.Now().Unix(),
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Bool("read_only", s.readOnly.Load()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down server")
		s.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return err
	}
}
