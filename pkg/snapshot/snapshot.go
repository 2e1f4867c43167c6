// Package snapshot writes a workspace to a single CBOR document and reads it
// back into any workspace.
//
// A snapshot is the backup of the on-device workspace: migration to the
// cloud never deletes local data, and an export taken before signing out
// can be imported on another device or after a reinstall. Import always
// creates new entities with fresh ids, rewriting every foreign key, so a
// snapshot can be imported into a workspace that already holds data.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is written into every snapshot. Read rejects other versions.
const FormatVersion = 1

// ErrVersion is returned for snapshots of an unsupported format version.
var ErrVersion = errors.New("unsupported snapshot version")

type Snapshot struct {
	Version    int               `cbor:"version"`
	ExportedAt time.Time         `cbor:"exported_at"`
	Workspace  models.WorkspaceID `cbor:"workspace"`

	Profiles          []models.Profile          `cbor:"profiles"`
	ProfilePoints     []models.ProfilePoint     `cbor:"profile_points"`
	Datasets          []models.Dataset          `cbor:"datasets"`
	Texts             []models.Text             `cbor:"texts"`
	AnnotatedDatasets []models.AnnotatedDataset `cbor:"annotated_datasets"`
	AnnotatedTexts    []models.AnnotatedText    `cbor:"annotated_texts"`
	DataPoints        []models.DataPoint        `cbor:"data_points"`
}

// Counts returns the number of entities per collection.
func (s *Snapshot) Counts() map[models.EntityType]int {
	return map[models.EntityType]int{
		models.EntityProfile:          len(s.Profiles),
		models.EntityProfilePoint:     len(s.ProfilePoints),
		models.EntityDataset:          len(s.Datasets),
		models.EntityText:             len(s.Texts),
		models.EntityAnnotatedDataset: len(s.AnnotatedDatasets),
		models.EntityAnnotatedText:    len(s.AnnotatedTexts),
		models.EntityDataPoint:        len(s.DataPoints),
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:    cbor.SortCanonical,
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		// profile examples hold arbitrary JSON-like values
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Take reads every entity of the workspace.
func Take(ctx context.Context, src store.EntityStore, ws models.WorkspaceID) (*Snapshot, error) {
	s := &Snapshot{Version: FormatVersion, ExportedAt: time.Now().UTC(), Workspace: ws}
	var err error
	if s.Profiles, err = src.ListProfiles(ctx, ws); err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	if s.ProfilePoints, err = src.ListProfilePoints(ctx, ws, models.ProfileID{}); err != nil {
		return nil, fmt.Errorf("read profile points: %w", err)
	}
	if s.Datasets, err = src.ListDatasets(ctx, ws); err != nil {
		return nil, fmt.Errorf("read datasets: %w", err)
	}
	if s.Texts, err = src.ListTexts(ctx, ws, models.DatasetID{}); err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}
	if s.AnnotatedDatasets, err = src.ListAnnotatedDatasets(ctx, ws); err != nil {
		return nil, fmt.Errorf("read annotated datasets: %w", err)
	}
	if s.AnnotatedTexts, err = src.ListAnnotatedTexts(ctx, ws, models.AnnotatedDatasetID{}); err != nil {
		return nil, fmt.Errorf("read annotated texts: %w", err)
	}
	if s.DataPoints, err = src.ListDataPoints(ctx, ws, models.AnnotatedTextID{}); err != nil {
		return nil, fmt.Errorf("read data points: %w", err)
	}
	return s, nil
}

// Export writes a snapshot of the workspace to w.
func Export(ctx context.Context, src store.EntityStore, ws models.WorkspaceID, w io.Writer) (*Snapshot, error) {
	s, err := Take(ctx, src, ws)
	if err != nil {
		return nil, err
	}
	if err := encMode.NewEncoder(w).Encode(s); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return s, nil
}

// Read decodes a snapshot written by Export.
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}
