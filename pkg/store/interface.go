// Package store defines the persistence interfaces shared by the on-device
// entity store, the server store and the cloud gateway.
//
// [EntityStore] is the CRUD surface over the annotation entities. It is
// implemented by [github.com/ItIsGreg/Raki-sub002/pkg/store/sqlstore.Store]
// (local SQLite or server Postgres) and by
// [github.com/ItIsGreg/Raki-sub002/pkg/client.Client] (the cloud API), which
// is what lets the hybrid service route an operation to either backend
// without knowing which one it got.
//
// [Store] adds what only a database can provide: users, workspaces, the
// durable migration mapping table, workspace usage records and change
// notification for live queries.
//
// # Workspace isolation
//
// Every read and delete takes the workspace id explicitly. An entity that
// exists but belongs to another workspace is reported as not found, so an
// operation issued against one workspace can never observe another.
//
// # Errors
//
// Implementations report missing rows with an error wrapping
// [constants.ErrNotFound], foreign keys that do not resolve inside the
// workspace with [*IntegrityError], and exhausted storage with
// [*StorageFullError].
package store

import (
	"context"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// EntityStore is the CRUD surface over the workspace scoped entities.
//
// Create methods assign the id and timestamps on the passed value. The
// WorkspaceID of the value decides where it is stored; children must name
// the workspace of their parent. Update replaces the mutable fields of an
// existing row in the same workspace. Delete cascades to children.
//
// List methods with a parent argument return only the children of that
// parent; a zero parent id lists the whole workspace. The ByMode variants
// keep the rows of one mode; the zero mode keeps all of them.
type EntityStore interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	DeleteProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) error
	ListProfiles(ctx context.Context, ws models.WorkspaceID) ([]models.Profile, error)
	ListProfilesByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Profile, error)

	CreateProfilePoint(ctx context.Context, point *models.ProfilePoint) error
	GetProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) (*models.ProfilePoint, error)
	UpdateProfilePoint(ctx context.Context, point *models.ProfilePoint) error
	DeleteProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) error
	ListProfilePoints(ctx context.Context, ws models.WorkspaceID, profileID models.ProfileID) ([]models.ProfilePoint, error)

	CreateDataset(ctx context.Context, dataset *models.Dataset) error
	GetDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) (*models.Dataset, error)
	UpdateDataset(ctx context.Context, dataset *models.Dataset) error
	DeleteDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) error
	ListDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.Dataset, error)
	ListDatasetsByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Dataset, error)

	CreateText(ctx context.Context, text *models.Text) error
	GetText(ctx context.Context, ws models.WorkspaceID, id models.TextID) (*models.Text, error)
	UpdateText(ctx context.Context, text *models.Text) error
	DeleteText(ctx context.Context, ws models.WorkspaceID, id models.TextID) error
	ListTexts(ctx context.Context, ws models.WorkspaceID, datasetID models.DatasetID) ([]models.Text, error)

	CreateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error
	GetAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) (*models.AnnotatedDataset, error)
	UpdateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error
	DeleteAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) error
	ListAnnotatedDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.AnnotatedDataset, error)

	CreateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error
	GetAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) (*models.AnnotatedText, error)
	UpdateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error
	DeleteAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) error
	ListAnnotatedTexts(ctx context.Context, ws models.WorkspaceID, annotatedDatasetID models.AnnotatedDatasetID) ([]models.AnnotatedText, error)

	CreateDataPoint(ctx context.Context, dp *models.DataPoint) error
	GetDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) (*models.DataPoint, error)
	UpdateDataPoint(ctx context.Context, dp *models.DataPoint) error
	DeleteDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) error
	ListDataPoints(ctx context.Context, ws models.WorkspaceID, annotatedTextID models.AnnotatedTextID) ([]models.DataPoint, error)
}

// WorkspaceStore manages workspaces themselves.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	GetWorkspace(ctx context.Context, id models.WorkspaceID) (*models.Workspace, error)
	UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error
	DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error
	// ListWorkspaces returns the workspaces owned by the user. The zero
	// user lists ownerless (on-device) workspaces.
	ListWorkspaces(ctx context.Context, owner models.UserID) ([]models.Workspace, error)
}

// Store is a full database backed implementation.
type Store interface {
	EntityStore
	WorkspaceStore

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// DeleteUser removes the user and every workspace the user owns.
	DeleteUser(ctx context.Context, id models.UserID) error

	// GetMapping returns the cloud id recorded for a local entity in the
	// target workspace, or an error wrapping constants.ErrNotFound.
	GetMapping(ctx context.Context, target models.WorkspaceID, entity models.EntityType, localID string) (*models.MigrationMapping, error)
	SaveMapping(ctx context.Context, mapping *models.MigrationMapping) error
	ListMappings(ctx context.Context, target models.WorkspaceID) ([]models.MigrationMapping, error)
	// MappingTargets lists the workspaces that have received migrated data,
	// most recent first.
	MappingTargets(ctx context.Context) ([]models.WorkspaceID, error)

	TouchWorkspace(ctx context.Context, ws models.WorkspaceID, user models.UserID) error
	// RecentWorkspaces returns the usage records of the user, most recent first.
	RecentWorkspaces(ctx context.Context, user models.UserID) ([]models.WorkspaceUsage, error)
	ForgetWorkspaces(ctx context.Context, user models.UserID) error

	// Changes is the notifier every committed mutation is published to.
	Changes() *Notifier

	// Migrate brings the schema to the current version.
	Migrate(ctx context.Context) error
	Close() error
}
