package raki

// Command is one CLI operation together with its arguments. [Parse]
// returns one and [Main] dispatches on its concrete type.
type Command interface {
	Name() string
}

// ServeCommand runs the cloud API server.
type ServeCommand struct{}

func (*ServeCommand) Name() string { return "serve" }

// RegisterCommand creates an account and signs in.
type RegisterCommand struct {
	Email string
}

func (*RegisterCommand) Name() string { return "register" }

type LoginCommand struct {
	Email string
}

func (*LoginCommand) Name() string { return "login" }

type LogoutCommand struct{}

func (*LogoutCommand) Name() string { return "logout" }

// DeleteAccountCommand deletes the signed in account and every cloud
// workspace it owns. Local data is kept.
type DeleteAccountCommand struct{}

func (*DeleteAccountCommand) Name() string { return "delete-account" }

// StatusCommand prints the session and the active workspace.
type StatusCommand struct{}

func (*StatusCommand) Name() string { return "status" }

// WorkspacesCommand lists or manages cloud workspaces.
type WorkspacesCommand struct {
	Action        string // list, create, rename or delete
	ID            string
	WorkspaceName string
	Description   string
}

func (*WorkspacesCommand) Name() string { return "workspaces" }

// UseCommand activates a workspace. "local" selects the on-device one.
type UseCommand struct {
	Workspace string
}

func (*UseCommand) Name() string { return "use" }

// MigrateCommand copies the local workspace into a cloud workspace.
type MigrateCommand struct {
	Target string
}

func (*MigrateCommand) Name() string { return "migrate" }

type ExportCommand struct {
	Path string
}

func (*ExportCommand) Name() string { return "export" }

type ImportCommand struct {
	Path string
}

func (*ImportCommand) Name() string { return "import" }
