package raki

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/client"
	"github.com/ItIsGreg/Raki-sub002/pkg/hybrid"
	"github.com/ItIsGreg/Raki-sub002/pkg/keyring"
	"github.com/ItIsGreg/Raki-sub002/pkg/logger"
	"github.com/ItIsGreg/Raki-sub002/pkg/session"
	"github.com/ItIsGreg/Raki-sub002/pkg/store/sqlstore"
	"github.com/ItIsGreg/Raki-sub002/pkg/workspace"
	"github.com/rs/zerolog"
)

const (
	requestTimeout = 30 * time.Second
	slowQuery      = 200 * time.Millisecond
)

// App is one device: the local database, the session, the workspace
// resolver and the hybrid service on top of them.
type App struct {
	config   *Config
	out      io.Writer
	log      zerolog.Logger
	local    *sqlstore.Store
	api      *client.Client
	sessions *session.Manager
	resolver *workspace.Resolver
	svc      *hybrid.Service
	cleanup  []func()
}

// New opens the local database, restores the stored session and resolves
// the active workspace. Command output goes to out.
func New(ctx context.Context, config *Config, logs *logger.LogData, out io.Writer) (*App, error) {
	if err := os.MkdirAll(config.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{config: config, out: out, log: logs.Component("app")}

	local, err := sqlstore.OpenSQLite(config.LocalDBPath(),
		sqlstore.WithLogger(logs.Component("sqlstore")),
		sqlstore.WithSlowThreshold(slowQuery),
	)
	if err != nil {
		return nil, err
	}
	a.local = local
	a.cleanup = append(a.cleanup, func() { _ = local.Close() })
	if err := local.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}
	if _, err := local.EnsureLocalWorkspace(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tokens := keyring.New(serviceName,
		keyring.WithUser(config.ServerURL),
		keyring.WithFallbackFile(filepath.Join(config.DataDir, "credentials.json"), config.KeyringPassphrase),
		keyring.WithLogger(logs.Component("keyring")),
	)

	a.api = client.NewClient(config.ServerURL, client.WithLogger(logs.Component("client")))
	a.sessions = session.NewManager(a.api, tokens, session.WithLogger(logs.Component("session")))
	a.resolver = workspace.NewResolver(local, a.api, a.sessions, workspace.WithLogger(logs.Component("workspace")))

	unsubscribe := a.sessions.Subscribe(func(ev session.Event) {
		if err := a.resolver.HandleSession(ctx, ev); err != nil {
			a.log.Warn().Err(err).Str("event", ev.Kind.String()).Msg("workspace resolution failed")
		}
	})
	a.cleanup = append(a.cleanup, unsubscribe)
	a.resolver.Start(ctx)

	a.svc = hybrid.New(local, a.api, a.resolver, a.sessions,
		hybrid.WithLogger(logs.Component("hybrid")),
		hybrid.WithMigrationLimits(config.MigrationConcurrency, config.MigrationRate, config.MigrationBurst),
	)
	a.cleanup = append(a.cleanup, a.svc.Close)

	restoreCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := a.sessions.Restore(restoreCtx); err != nil {
		a.log.Warn().Err(err).Msg("could not restore session")
	}
	return a, nil
}

// Close releases everything New acquired, newest first.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// Service exposes the data surface, mainly for tests.
func (a *App) Service() *hybrid.Service {
	return a.svc
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
