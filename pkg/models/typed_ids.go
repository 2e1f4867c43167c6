package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// binaryUUIDTag is the CBOR tag for a 16 byte UUID.
const binaryUUIDTag = 37

// idKind ties an ID to the collection it identifies.
type idKind interface {
	collection() string
}

type (
	workspaceKind        struct{}
	userKind             struct{}
	profileKind          struct{}
	profilePointKind     struct{}
	datasetKind          struct{}
	textKind             struct{}
	annotatedDatasetKind struct{}
	annotatedTextKind    struct{}
	dataPointKind        struct{}
)

func (workspaceKind) collection() string        { return "workspaces" }
func (userKind) collection() string             { return "users" }
func (profileKind) collection() string          { return "profiles" }
func (profilePointKind) collection() string     { return "profile_points" }
func (datasetKind) collection() string          { return "datasets" }
func (textKind) collection() string             { return "texts" }
func (annotatedDatasetKind) collection() string { return "annotated_datasets" }
func (annotatedTextKind) collection() string    { return "annotated_texts" }
func (dataPointKind) collection() string        { return "data_points" }

// ID is a UUID that can only be assigned to IDs of the same kind, so a
// ProfileID can never be passed where a DatasetID is expected.
type ID[K idKind] struct {
	uuid uuid.UUID
}

type (
	WorkspaceID        = ID[workspaceKind]
	UserID             = ID[userKind]
	ProfileID          = ID[profileKind]
	ProfilePointID     = ID[profilePointKind]
	DatasetID          = ID[datasetKind]
	TextID             = ID[textKind]
	AnnotatedDatasetID = ID[annotatedDatasetKind]
	AnnotatedTextID    = ID[annotatedTextKind]
	DataPointID        = ID[dataPointKind]
)

// LocalWorkspaceID is the fixed id of the on-device workspace.
var LocalWorkspaceID = WorkspaceID{uuid: uuid.MustParse("00000000-0000-4000-8000-000000000001")}

func newID[K idKind]() ID[K] {
	return ID[K]{uuid: uuid.New()}
}

func parseID[K idKind](s string) (ID[K], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		var k K
		return ID[K]{}, fmt.Errorf("invalid %s ID: %w", k.collection(), err)
	}
	return ID[K]{uuid: id}, nil
}

func NewWorkspaceID() WorkspaceID               { return newID[workspaceKind]() }
func NewUserID() UserID                         { return newID[userKind]() }
func NewProfileID() ProfileID                   { return newID[profileKind]() }
func NewProfilePointID() ProfilePointID         { return newID[profilePointKind]() }
func NewDatasetID() DatasetID                   { return newID[datasetKind]() }
func NewTextID() TextID                         { return newID[textKind]() }
func NewAnnotatedDatasetID() AnnotatedDatasetID { return newID[annotatedDatasetKind]() }
func NewAnnotatedTextID() AnnotatedTextID       { return newID[annotatedTextKind]() }
func NewDataPointID() DataPointID               { return newID[dataPointKind]() }

func ParseWorkspaceID(s string) (WorkspaceID, error) { return parseID[workspaceKind](s) }
func ParseUserID(s string) (UserID, error)           { return parseID[userKind](s) }
func ParseProfileID(s string) (ProfileID, error)     { return parseID[profileKind](s) }
func ParseProfilePointID(s string) (ProfilePointID, error) {
	return parseID[profilePointKind](s)
}
func ParseDatasetID(s string) (DatasetID, error) { return parseID[datasetKind](s) }
func ParseTextID(s string) (TextID, error)       { return parseID[textKind](s) }
func ParseAnnotatedDatasetID(s string) (AnnotatedDatasetID, error) {
	return parseID[annotatedDatasetKind](s)
}
func ParseAnnotatedTextID(s string) (AnnotatedTextID, error) {
	return parseID[annotatedTextKind](s)
}
func ParseDataPointID(s string) (DataPointID, error) { return parseID[dataPointKind](s) }

func (id ID[K]) UUID() uuid.UUID { return id.uuid }
func (id ID[K]) IsZero() bool    { return id.uuid == uuid.Nil }

// String returns the canonical UUID form, or "" for the zero ID.
func (id ID[K]) String() string {
	if id.IsZero() {
		return ""
	}
	return id.uuid.String()
}

// Collection names the table the ID belongs to.
func (id ID[K]) Collection() string {
	var k K
	return k.collection()
}

func (id ID[K]) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.uuid.String())
}

func (id *ID[K]) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		id.uuid = uuid.Nil
		return nil
	}
	parsed, err := uuid.Parse(*s)
	if err != nil {
		return fmt.Errorf("invalid %s ID: %w", id.Collection(), err)
	}
	id.uuid = parsed
	return nil
}

// MarshalCBOR encodes the ID as a tagged binary UUID, or null when zero.
func (id ID[K]) MarshalCBOR() ([]byte, error) {
	if id.IsZero() {
		return cbor.Marshal(nil)
	}
	return cbor.Marshal(cbor.Tag{Number: binaryUUIDTag, Content: id.uuid[:]})
}

func (id *ID[K]) UnmarshalCBOR(data []byte) error {
	// null and undefined
	if len(data) == 1 && (data[0] == 0xf6 || data[0] == 0xf7) {
		id.uuid = uuid.Nil
		return nil
	}
	var raw cbor.RawTag
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid %s ID: %w", id.Collection(), err)
	}
	if raw.Number != binaryUUIDTag {
		return fmt.Errorf("invalid %s ID: unexpected CBOR tag %d", id.Collection(), raw.Number)
	}
	var b []byte
	if err := cbor.Unmarshal(raw.Content, &b); err != nil {
		return fmt.Errorf("invalid %s ID: %w", id.Collection(), err)
	}
	parsed, err := uuid.FromBytes(b)
	if err != nil {
		return fmt.Errorf("invalid %s ID: %w", id.Collection(), err)
	}
	id.uuid = parsed
	return nil
}

func (id ID[K]) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.uuid.String(), nil
}

func (id *ID[K]) Scan(value any) error {
	return scanUUID(value, &id.uuid)
}

func (ID[K]) GormDataType() string { return "uuid" }

func scanUUID(value any, target *uuid.UUID) error {
	switch v := value.(type) {
	case nil:
		*target = uuid.Nil
		return nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
		return nil
	case []byte:
		if len(v) == 16 {
			copy(target[:], v)
			return nil
		}
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
		return nil
	case [16]byte:
		*target = uuid.UUID(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
}
