package raki

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ItIsGreg/Raki-sub002/pkg/hybrid"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

func (a *App) Register(ctx context.Context, c *RegisterCommand) error {
	s, err := a.sessions.Register(ctx, c.Email, a.config.Password)
	if err != nil {
		return err
	}
	a.printf("registered %s\n", s.User.Email)
	a.printActive()
	return nil
}

func (a *App) Login(ctx context.Context, c *LoginCommand) error {
	s, err := a.sessions.Login(ctx, c.Email, a.config.Password)
	if err != nil {
		return err
	}
	a.printf("signed in as %s\n", s.User.Email)
	a.printActive()
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if a.sessions.Current() == nil {
		a.printf("not signed in\n")
		return nil
	}
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	a.printf("signed out\n")
	a.printActive()
	return nil
}

func (a *App) DeleteAccount(ctx context.Context) error {
	if err := a.sessions.DeleteAccount(ctx); err != nil {
		return err
	}
	a.printf("account deleted, local data was kept\n")
	a.printActive()
	return nil
}

func (a *App) Status(ctx context.Context) error {
	a.printf("server:    %s\n", a.config.ServerURL)
	switch s := a.sessions.Current(); {
	case s == nil:
		a.printf("session:   signed out\n")
	case s.Offline:
		a.printf("session:   %s (offline)\n", s.User.Email)
	default:
		a.printf("session:   %s\n", s.User.Email)
	}
	a.printActive()
	return nil
}

func (a *App) Workspaces(ctx context.Context, c *WorkspacesCommand) error {
	switch c.Action {
	case "create":
		ws, err := a.svc.CreateWorkspace(ctx, c.WorkspaceName, c.Description)
		if err != nil {
			return err
		}
		a.printf("created workspace %s %s\n", ws.ID, ws.Name)
		return nil
	case "rename":
		id, err := models.ParseWorkspaceID(c.ID)
		if err != nil {
			return err
		}
		ws, err := a.svc.RenameWorkspace(ctx, id, c.WorkspaceName, c.Description)
		if err != nil {
			return err
		}
		a.printf("renamed workspace %s to %s\n", ws.ID, ws.Name)
		return nil
	case "delete":
		id, err := models.ParseWorkspaceID(c.ID)
		if err != nil {
			return err
		}
		if err := a.svc.DeleteWorkspace(ctx, id); err != nil {
			return err
		}
		a.printf("deleted workspace %s\n", id)
		a.printActive()
		return nil
	}

	workspaces, listErr := a.svc.ListWorkspaces(ctx)
	active := a.svc.ActiveWorkspace().ID
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSTORAGE\tDEFAULT")
	for _, ws := range workspaces {
		marker := ""
		if ws.ID == active {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", marker, ws.ID, ws.Name, ws.StorageType, ws.IsDefault)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return listErr
}

func (a *App) Use(ctx context.Context, c *UseCommand) error {
	id := models.LocalWorkspaceID
	if c.Workspace != "local" {
		var err error
		if id, err = models.ParseWorkspaceID(c.Workspace); err != nil {
			return err
		}
	}
	if err := a.svc.SetActiveWorkspace(ctx, id); err != nil {
		return err
	}
	a.printActive()
	return nil
}

func (a *App) Migrate(ctx context.Context, c *MigrateCommand) error {
	var opts hybrid.MigrationOptions
	if c.Target != "" {
		id, err := models.ParseWorkspaceID(c.Target)
		if err != nil {
			return err
		}
		opts.Target = id
	}

	report, err := a.svc.MigrateLocalDataToCloud(ctx, opts)
	if report != nil {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PHASE\tCOLLECTION\tCREATED\tSKIPPED")
		for _, p := range report.Phases {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", p.Phase, p.EntityType, p.Created, p.Skipped)
		}
		if flushErr := tw.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
	}
	var partial *hybrid.PartialMigrationError
	if errors.As(err, &partial) {
		a.printf("migration stopped in phase %d, run migrate again to resume\n", partial.Phase)
	}
	if err != nil {
		return err
	}
	a.printf("migrated into %s %s\n", report.Target.ID, report.Target.Name)
	return nil
}

func (a *App) Export(ctx context.Context, c *ExportCommand) (err error) {
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	snap, err := a.svc.Export(ctx, f)
	if err != nil {
		return err
	}
	a.printf("exported workspace %s to %s\n", snap.Workspace, c.Path)
	a.printCounts(snap.Counts())
	return nil
}

func (a *App) Import(ctx context.Context, c *ImportCommand) error {
	//nolint:gosec // the path is chosen by the user running the command
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	created, err := a.svc.Import(ctx, f)
	if created != nil {
		a.printCounts(created)
	}
	if err != nil {
		return err
	}
	a.printf("imported %s into %s\n", c.Path, a.svc.ActiveWorkspace().Name)
	return nil
}

func (a *App) printActive() {
	ws := a.svc.ActiveWorkspace()
	a.printf("workspace: %s (%s, %s)\n", ws.Name, ws.StorageType, ws.ID)
}

func (a *App) printCounts(counts map[models.EntityType]int) {
	for _, entity := range models.MigrationOrder {
		a.printf("  %-20s %d\n", entity, counts[entity])
	}
}
