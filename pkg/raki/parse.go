package raki

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

const usage = `Usage: raki [flags] <command> [arguments]

Commands:
  serve                               Run the cloud API server
  register <email>                    Create an account and sign in
  login <email>                       Sign in
  logout                              Sign out, the local workspace becomes active
  delete-account                      Delete the account and its cloud workspaces
  status                              Show the session and the active workspace
  workspaces [list]                   List workspaces
  workspaces create <name>            Create a cloud workspace
  workspaces rename <id> <name>       Rename a cloud workspace
  workspaces delete <id>              Delete a cloud workspace
  use <id|local>                      Activate a workspace
  migrate                             Copy the local workspace into the cloud
  export <file>                       Write the active workspace to a snapshot file
  import <file>                       Add a snapshot to the active workspace

Passwords are read from -password or RAKI_PASSWORD.

Examples:
  raki -port 9000 serve
  RAKI_PASSWORD=secret raki register ada@example.com
  raki workspaces create -description "Discharge letters" Letters
  raki -target 5f0c... migrate
  raki export backup.cbor`

// Parse parses command line arguments and returns the command to execute
// and the configuration shared by all commands.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("raki", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var (
		configFile  = flagSet.String("config", "", "YAML configuration file")
		envFile     = flagSet.String("env-file", ".env", "dotenv file loaded into the environment")
		server      = flagSet.String("server", "", "Cloud API base URL")
		dataDir     = flagSet.String("data-dir", "", "Directory for the local database and credentials")
		sqlitePath  = flagSet.String("sqlite", "", "Local database file (default <data-dir>/raki.db)")
		serverDB    = flagSet.String("server-db", "", "Server SQLite file when no Postgres DSN is set")
		postgresDSN = flagSet.String("postgres-dsn", "", "Server Postgres connection string")
		port        = flagSet.String("port", "", "Server port")
		readOnly    = flagSet.Bool("read-only", false, "Start the server in read-only mode")
		logLevel    = flagSet.String("log-level", "", "trace, debug, info, warn or error")
		logFile     = flagSet.String("log-file", "", "Write logs to this file instead of stderr")
		concurrency = flagSet.Int("migration-concurrency", 0, "Cloud creates in flight during a migration")
		migRate     = flagSet.Float64("migration-rate", 0, "Cloud creates per second during a migration, 0 for unlimited")
		burst       = flagSet.Int("migration-burst", 0, "Burst of the migration rate limit")
		password    = flagSet.String("password", "", "Account password for register and login")
		target      = flagSet.String("target", "", "Cloud workspace id to migrate into")
		description = flagSet.String("description", "", "Workspace description")
	)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, errors.New(usage)
		}
		return nil, nil, fmt.Errorf("%w\n\n%s", err, usage)
	}

	remaining := flagSet.Args()
	if len(remaining) == 0 {
		return nil, nil, fmt.Errorf("subcommand required\n\n%s", usage)
	}

	cmd, err := parseCommand(remaining[0], remaining[1:], *target, *description)
	if err != nil {
		return nil, nil, err
	}

	if err := loadEnvFile(*envFile); err != nil {
		return nil, nil, err
	}
	config := defaultConfig()
	if err := config.applyEnv(); err != nil {
		return nil, nil, err
	}
	if *configFile != "" {
		if err := config.applyFile(*configFile); err != nil {
			return nil, nil, err
		}
	}

	// explicit flags win over the environment and the file
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			config.ServerURL = *server
		case "data-dir":
			config.DataDir = *dataDir
		case "sqlite":
			config.SQLitePath = *sqlitePath
		case "server-db":
			config.ServerDBPath = *serverDB
		case "postgres-dsn":
			config.PostgresDSN = *postgresDSN
		case "port":
			config.Port = *port
		case "read-only":
			config.ReadOnly = *readOnly
		case "log-level":
			config.LogLevel = *logLevel
		case "log-file":
			config.LogFile = *logFile
		case "migration-concurrency":
			config.MigrationConcurrency = *concurrency
		case "migration-rate":
			config.MigrationRate = *migRate
		case "migration-burst":
			config.MigrationBurst = *burst
		case "password":
			config.Password = *password
		}
	})
	if err := config.validate(); err != nil {
		return nil, nil, err
	}

	switch cmd.(type) {
	case *RegisterCommand, *LoginCommand:
		if config.Password == "" {
			return nil, nil, fmt.Errorf("%s needs a password: use -password or RAKI_PASSWORD", cmd.Name())
		}
	}
	return cmd, config, nil
}

func parseCommand(name string, args []string, target, description string) (Command, error) {
	want := func(n int, what string) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %s", name, what)
		}
		return nil
	}

	switch name {
	case "serve":
		return &ServeCommand{}, want(0, "no arguments")
	case "register":
		if err := want(1, "an email address"); err != nil {
			return nil, err
		}
		return &RegisterCommand{Email: args[0]}, nil
	case "login":
		if err := want(1, "an email address"); err != nil {
			return nil, err
		}
		return &LoginCommand{Email: args[0]}, nil
	case "logout":
		return &LogoutCommand{}, want(0, "no arguments")
	case "delete-account":
		return &DeleteAccountCommand{}, want(0, "no arguments")
	case "status":
		return &StatusCommand{}, want(0, "no arguments")
	case "workspaces":
		return parseWorkspaces(args, description)
	case "use":
		if err := want(1, "a workspace id or \"local\""); err != nil {
			return nil, err
		}
		return &UseCommand{Workspace: args[0]}, nil
	case "migrate":
		return &MigrateCommand{Target: target}, want(0, "no arguments, use -target to pick the workspace")
	case "export":
		if err := want(1, "a file name"); err != nil {
			return nil, err
		}
		return &ExportCommand{Path: args[0]}, nil
	case "import":
		if err := want(1, "a file name"); err != nil {
			return nil, err
		}
		return &ImportCommand{Path: args[0]}, nil
	}
	return nil, fmt.Errorf("unknown command: %s\n\n%s", name, usage)
}

func parseWorkspaces(args []string, description string) (Command, error) {
	if len(args) == 0 || args[0] == "list" {
		if len(args) > 1 {
			return nil, errors.New("workspaces list expects no arguments")
		}
		return &WorkspacesCommand{Action: "list"}, nil
	}

	// flags may follow the action, as in "workspaces create -description x name"
	sub := flag.NewFlagSet("workspaces "+args[0], flag.ContinueOnError)
	sub.SetOutput(io.Discard)
	desc := sub.String("description", description, "Workspace description")
	if err := sub.Parse(args[1:]); err != nil {
		return nil, err
	}
	rest := sub.Args()

	cmd := &WorkspacesCommand{Action: args[0], Description: *desc}
	switch args[0] {
	case "create":
		if len(rest) != 1 {
			return nil, errors.New("workspaces create expects a name")
		}
		cmd.WorkspaceName = rest[0]
	case "rename":
		if len(rest) != 2 {
			return nil, errors.New("workspaces rename expects an id and a name")
		}
		cmd.ID, cmd.WorkspaceName = rest[0], rest[1]
	case "delete":
		if len(rest) != 1 {
			return nil, errors.New("workspaces delete expects an id")
		}
		cmd.ID = rest[0]
	default:
		return nil, fmt.Errorf("unknown workspaces action: %s", args[0])
	}
	return cmd, nil
}
