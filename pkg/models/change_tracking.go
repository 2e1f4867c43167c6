package models

import (
	"time"
)

// EntityType names an entity collection. The values double as table names
// and as the path segment of the cloud API.
type EntityType string

const (
	EntityWorkspace        EntityType = "workspaces"
	EntityProfile          EntityType = "profiles"
	EntityProfilePoint     EntityType = "profile_points"
	EntityDataset          EntityType = "datasets"
	EntityText             EntityType = "texts"
	EntityAnnotatedDataset EntityType = "annotated_datasets"
	EntityAnnotatedText    EntityType = "annotated_texts"
	EntityDataPoint        EntityType = "data_points"
)

// MigrationOrder lists the migrated collections parents first. Every
// foreign key of an entity points into a collection earlier in the list.
var MigrationOrder = []EntityType{
	EntityProfile,
	EntityProfilePoint,
	EntityDataset,
	EntityText,
	EntityAnnotatedDataset,
	EntityAnnotatedText,
	EntityDataPoint,
}

// Phase returns the 1-based migration phase of the collection, or 0 if the
// collection is not migrated.
func (e EntityType) Phase() int {
	for i, t := range MigrationOrder {
		if t == e {
			return i + 1
		}
	}
	return 0
}

// ChangeOperation represents the type of store mutation
type ChangeOperation string

const (
	ChangeOperationCreate ChangeOperation = "CREATE"
	ChangeOperationUpdate ChangeOperation = "UPDATE"
	ChangeOperationDelete ChangeOperation = "DELETE"
)

// MigrationMapping records that a local entity has been created in a cloud
// workspace under a new id.
//
// Rows are written as soon as the cloud create succeeds, so the table
// survives an interrupted migration and the next attempt skips everything
// already pushed. The unique index on (target workspace, entity type, local
// id) is what makes creation at-most-once per target.
type MigrationMapping struct {
	ID                uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TargetWorkspaceID WorkspaceID `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_local" json:"target_workspace_id"`
	EntityType        EntityType  `gorm:"not null;uniqueIndex:idx_mapping_local" json:"entity_type"`
	LocalID           string      `gorm:"not null;uniqueIndex:idx_mapping_local" json:"local_id"`
	CloudID           string      `gorm:"not null" json:"cloud_id"`
	Phase             int         `gorm:"not null" json:"phase"`
	CreatedAt         time.Time   `json:"created_at"`
}

// TableName returns the table name for the migration mapping model
func (MigrationMapping) TableName() string {
	return "migration_mappings"
}

// WorkspaceUsage remembers when a cloud workspace was last active on this
// device, to pick the most recently used one after login.
type WorkspaceUsage struct {
	WorkspaceID WorkspaceID `gorm:"type:uuid;primaryKey" json:"workspace_id"`
	UserID      UserID      `gorm:"type:uuid;index;not null" json:"user_id"`
	UsedAt      time.Time   `gorm:"not null" json:"used_at"`
}

// TableName returns the table name for the workspace usage model
func (WorkspaceUsage) TableName() string {
	return "workspace_usages"
}

// SchemaVersion is the single-row table recording the store schema version.
type SchemaVersion struct {
	ID        uint      `gorm:"primaryKey"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}
