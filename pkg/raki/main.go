package raki

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ItIsGreg/Raki-sub002/pkg/logger"
)

// Main is the entry point of the raki command. It can be called from tests
// without building the binary; cancelling ctx stops a running server.
//
// # Environment Variables
//
//	RAKI_SERVER_URL             - cloud API base URL (default: http://localhost:8080)
//	RAKI_DATA_DIR               - local database and credential directory
//	RAKI_SQLITE_PATH            - local database file
//	RAKI_SERVER_DB_PATH         - server SQLite file
//	POSTGRES_DSN                - server Postgres connection string, replaces SQLite
//	PORT                        - server port (default: 8080)
//	LOG_LEVEL, LOG_FILE         - logging
//	RAKI_PASSWORD               - password for register and login
//	RAKI_KEYRING_PASSPHRASE     - key of the credential file used without a system keyring
//	RAKI_MIGRATION_CONCURRENCY  - cloud creates in flight during a migration
//	RAKI_MIGRATION_RATE         - cloud creates per second during a migration
//	RAKI_MIGRATION_BURST        - burst of the migration rate limit
//	RAKI_READ_ONLY              - start the server in read-only mode
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, nil)
}

// run is Main with explicit writers. A nil logOut logs to stderr.
func run(ctx context.Context, args []string, out, logOut io.Writer) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	build := logger.New().WithLevel(config.LogLevel).FromPath(config.LogFile)
	if logOut != nil {
		build = build.FromBuffer(logOut)
	} else {
		build = build.Console(config.LogFile == "")
	}
	logs, err := build.Make()
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logs.Close()

	if c, ok := cmd.(*ServeCommand); ok {
		if err := Serve(ctx, c, config, logs); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	app, err := New(ctx, config, logs, out)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *RegisterCommand:
		err = app.Register(ctx, c)
	case *LoginCommand:
		err = app.Login(ctx, c)
	case *LogoutCommand:
		err = app.Logout(ctx)
	case *DeleteAccountCommand:
		err = app.DeleteAccount(ctx)
	case *StatusCommand:
		err = app.Status(ctx)
	case *WorkspacesCommand:
		err = app.Workspaces(ctx, c)
	case *UseCommand:
		err = app.Use(ctx, c)
	case *MigrateCommand:
		err = app.Migrate(ctx, c)
	case *ExportCommand:
		err = app.Export(ctx, c)
	case *ImportCommand:
		err = app.Import(ctx, c)
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name(), err)
	}
	return nil
}
