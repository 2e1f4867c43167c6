package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StorageType selects the backend a workspace lives in.
type StorageType string

const (
	StorageLocal StorageType = "local"
	StorageCloud StorageType = "cloud"
)

// Mode is the annotation mode of profiles, datasets and annotated datasets.
type Mode string

const (
	ModeDatapointExtraction Mode = "datapoint_extraction"
	ModeTextSegmentation    Mode = "text_segmentation"
)

// ParseMode parses a mode name. The empty string is the zero Mode, which
// list filters read as "any mode".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "", ModeDatapointExtraction, ModeTextSegmentation:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Datatype describes the value a profile point extracts.
type Datatype string

const (
	DatatypeText     Datatype = "text"
	DatatypeNumber   Datatype = "number"
	DatatypeValueset Datatype = "valueset"
)

// LocalWorkspaceName is the display name of the on-device workspace.
const LocalWorkspaceName = "My Local Workspace"

// Workspace is the unit of data isolation and backend selection.
type Workspace struct {
	ID          WorkspaceID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string      `json:"name" gorm:"not null"`
	Description string      `json:"description"`
	StorageType StorageType `json:"storage_type" gorm:"not null;default:cloud"`
	OwnerID     UserID      `json:"user_id,omitempty" gorm:"type:uuid;index"`
	IsDefault   bool        `json:"is_default"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID.IsZero() {
		w.ID = NewWorkspaceID()
	}
	return nil
}

// IsLocal reports whether the workspace lives in the on-device store.
func (w Workspace) IsLocal() bool {
	return w.StorageType == StorageLocal
}

// LocalWorkspace returns the implicit workspace that always exists on the device.
func LocalWorkspace() Workspace {
	return Workspace{
		ID:          LocalWorkspaceID,
		Name:        LocalWorkspaceName,
		StorageType: StorageLocal,
		IsDefault:   true,
	}
}

// User is a cloud account. Only the server persists users.
type User struct {
	ID           UserID    `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-" gorm:"not null"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// ProfileExample is a worked example attached to a profile.
type ProfileExample struct {
	Text   string `json:"text"`
	Output any    `json:"output"`
}

// Profile describes what to extract or segment; it owns profile points.
type Profile struct {
	ID          ProfileID       `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID WorkspaceID     `json:"workspace_id" gorm:"type:uuid;index;not null"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	Mode        Mode            `json:"mode" gorm:"not null"`
	Example     *ProfileExample `json:"example,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewProfileID()
	}
	return nil
}

// ProfilePoint is a named field definition within a profile. Points of
// text segmentation profiles use the same record with an empty datatype.
type ProfilePoint struct {
	ID              ProfilePointID `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID     WorkspaceID    `json:"workspace_id" gorm:"type:uuid;index;not null"`
	ProfileID       ProfileID      `json:"profile_id" gorm:"type:uuid;index;not null"`
	Name            string         `json:"name" gorm:"not null"`
	Explanation     string         `json:"explanation"`
	Synonyms        []string       `json:"synonyms" gorm:"serializer:json"`
	Datatype        Datatype       `json:"datatype"`
	Valueset        []string       `json:"valueset,omitempty" gorm:"serializer:json"`
	Unit            *string        `json:"unit,omitempty"`
	Order           int            `json:"order" gorm:"column:sort_order"`
	PreviousPointID ProfilePointID `json:"previous_point_id" gorm:"type:uuid"`
	NextPointID     ProfilePointID `json:"next_point_id" gorm:"type:uuid"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p *ProfilePoint) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewProfilePointID()
	}
	return nil
}

// Dataset groups source texts.
type Dataset struct {
	ID          DatasetID   `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID WorkspaceID `json:"workspace_id" gorm:"type:uuid;index;not null"`
	Name        string      `json:"name" gorm:"not null"`
	Description string      `json:"description"`
	Mode        Mode        `json:"mode" gorm:"not null"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID.IsZero() {
		d.ID = NewDatasetID()
	}
	return nil
}

// Text is one source document of a dataset.
type Text struct {
	ID          TextID      `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID WorkspaceID `json:"workspace_id" gorm:"type:uuid;index;not null"`
	DatasetID   DatasetID   `json:"dataset_id" gorm:"type:uuid;index;not null"`
	Filename    string      `json:"filename"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (t *Text) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewTextID()
	}
	return nil
}

// AnnotatedDataset binds a dataset and a profile of the same workspace for annotation.
type AnnotatedDataset struct {
	ID          AnnotatedDatasetID `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID WorkspaceID        `json:"workspace_id" gorm:"type:uuid;index;not null"`
	Name        string             `json:"name" gorm:"not null"`
	Description string             `json:"description"`
	DatasetID   DatasetID          `json:"dataset_id" gorm:"type:uuid;index;not null"`
	ProfileID   ProfileID          `json:"profile_id" gorm:"type:uuid;index;not null"`
	Mode        Mode               `json:"mode" gorm:"not null"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (a *AnnotatedDataset) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewAnnotatedDatasetID()
	}
	return nil
}

// AnnotatedText is the annotation state of one text within an annotated dataset.
type AnnotatedText struct {
	ID                 AnnotatedTextID    `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID        WorkspaceID        `json:"workspace_id" gorm:"type:uuid;index;not null"`
	AnnotatedDatasetID AnnotatedDatasetID `json:"annotated_dataset_id" gorm:"type:uuid;uniqueIndex:idx_annotated_text_pair;not null"`
	TextID             TextID             `json:"text_id" gorm:"type:uuid;uniqueIndex:idx_annotated_text_pair;index;not null"`
	Verified           bool               `json:"verified"`
	AIFaulty           bool               `json:"ai_faulty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (a *AnnotatedText) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewAnnotatedTextID()
	}
	return nil
}

// Span is a half-open character offset range [Start, End) into a text.
// It travels as a two element JSON array.
type Span struct {
	Start int
	End   int
}

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("match must be [start, end]: %w", err)
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Value implements the driver.Valuer interface for database storage
func (s Span) Value() (driver.Value, error) {
	return s.MarshalJSON()
}

// Scan implements the sql.Scanner interface for database retrieval
func (s *Span) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Span", value)
	}
}

func (Span) GormDataType() string { return "text" }

// Len is the number of characters the span covers.
func (s Span) Len() int { return s.End - s.Start }

// DataPoint is one extracted or annotated value, optionally anchored to a span of the text.
type DataPoint struct {
	ID              DataPointID     `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID     WorkspaceID     `json:"workspace_id" gorm:"type:uuid;index;not null"`
	AnnotatedTextID AnnotatedTextID `json:"annotated_text_id" gorm:"type:uuid;index;not null"`
	ProfilePointID  ProfilePointID  `json:"profile_point_id" gorm:"type:uuid;index"`
	Name            string          `json:"name"`
	Value           string          `json:"value"`
	Match           *Span           `json:"match,omitempty"`
	Verified        bool            `json:"verified"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (d *DataPoint) BeforeCreate(tx *gorm.DB) error {
	if d.ID.IsZero() {
		d.ID = NewDataPointID()
	}
	return nil
}
