// Package api holds the wire types and routes shared by the cloud client and
// the reference server.
package api

import (
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

const (
	AuthPrefix = "/auth"
	DataPrefix = "/data"

	TokenTypeBearer = "bearer"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user,omitempty"`
}

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	Detail  string   `json:"detail"`
	Reasons []string `json:"reasons,omitempty"`
}

// Segment returns the path segment of an entity collection, e.g.
// "annotated-texts".
func Segment(entity models.EntityType) string {
	switch entity {
	case models.EntityProfile:
		return "profiles"
	case models.EntityProfilePoint:
		return "profile-points"
	case models.EntityDataset:
		return "datasets"
	case models.EntityText:
		return "texts"
	case models.EntityAnnotatedDataset:
		return "annotated-datasets"
	case models.EntityAnnotatedText:
		return "annotated-texts"
	case models.EntityDataPoint:
		return "data-points"
	case models.EntityWorkspace:
		return "workspaces"
	}
	return string(entity)
}

// ModeFilter is the list query parameter that restricts profiles and
// datasets to one mode.
const ModeFilter = "mode"

// ParentFilter names the list query parameter that restricts a collection
// to the children of one parent, or "" for root collections.
func ParentFilter(entity models.EntityType) string {
	switch entity {
	case models.EntityProfilePoint:
		return "profile_id"
	case models.EntityText:
		return "dataset_id"
	case models.EntityAnnotatedText:
		return "annotated_dataset_id"
	case models.EntityDataPoint:
		return "annotated_text_id"
	}
	return ""
}

func WorkspacesPath() string {
	return DataPrefix + "/workspaces"
}

func WorkspacePath(ws models.WorkspaceID) string {
	return fmt.Sprintf("%s/workspaces/%s", DataPrefix, ws)
}

// CollectionPath is the path of an entity collection inside a workspace.
func CollectionPath(ws models.WorkspaceID, entity models.EntityType) string {
	return fmt.Sprintf("%s/%s", WorkspacePath(ws), Segment(entity))
}

// EntityPath is the path of one entity inside a workspace.
func EntityPath(ws models.WorkspaceID, entity models.EntityType, id fmt.Stringer) string {
	return fmt.Sprintf("%s/%s", CollectionPath(ws, entity), id)
}

func EventsPath() string {
	return DataPrefix + "/events"
}
