package client

import (
	"context"
	"net/http"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// ListWorkspaces returns the cloud workspaces of the current user.
func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	var result []models.Workspace
	if err := c.call(ctx, http.MethodGet, api.WorkspacesPath(), nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateWorkspace creates a cloud workspace and fills in the stored values.
func (c *Client) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	return c.call(ctx, http.MethodPost, api.WorkspacesPath(), nil, workspace, workspace)
}

func (c *Client) GetWorkspace(ctx context.Context, id models.WorkspaceID) (*models.Workspace, error) {
	var result models.Workspace
	if err := c.call(ctx, http.MethodGet, api.WorkspacePath(id), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	return c.call(ctx, http.MethodPut, api.WorkspacePath(workspace.ID), nil, workspace, workspace)
}

func (c *Client) DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error {
	return c.call(ctx, http.MethodDelete, api.WorkspacePath(id), nil, nil, nil)
}
