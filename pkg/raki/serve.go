package raki

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/ItIsGreg/Raki-sub002/pkg/logger"
	"github.com/ItIsGreg/Raki-sub002/pkg/server"
	"github.com/ItIsGreg/Raki-sub002/pkg/store/sqlstore"
)

// Serve runs the cloud API until ctx is cancelled. The store is Postgres
// when a DSN is configured and a SQLite file otherwise.
func Serve(ctx context.Context, _ *ServeCommand, config *Config, logs *logger.LogData) error {
	log := logs.Component("serve")
	storeOpts := []sqlstore.Option{
		sqlstore.WithLogger(logs.Component("sqlstore")),
		sqlstore.WithSlowThreshold(slowQuery),
	}

	var (
		st  *sqlstore.Store
		err error
	)
	if config.PostgresDSN != "" {
		st, err = sqlstore.OpenPostgres(config.PostgresDSN, storeOpts...)
		if err != nil {
			return err
		}
		log.Info().Msg("connected to PostgreSQL")
	} else {
		path := config.CloudDBPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		st, err = sqlstore.OpenSQLite(path, storeOpts...)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("opened SQLite database")
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	srv := server.New(st,
		server.WithLogger(logs.Component("server")),
		server.WithReadOnly(config.ReadOnly),
	)
	defer srv.Close()
	return srv.Run(ctx, net.JoinHostPort("", config.Port))
}
