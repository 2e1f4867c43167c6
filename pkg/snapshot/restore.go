package snapshot

import (
	"context"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

// Restore creates the entities of the snapshot in ws, parents first, and
// returns how many were created per collection. On error the entities
// created so far stay in place.
func Restore(ctx context.Context, dst store.EntityStore, ws models.WorkspaceID, s *Snapshot) (map[models.EntityType]int, error) {
	r := &restorer{ws: ws, ids: make(map[string]string), created: make(map[models.EntityType]int)}

	for _, p := range s.Profiles {
		old := p.ID
		p.ID, p.WorkspaceID = models.ProfileID{}, ws
		if err := dst.CreateProfile(ctx, &p); err != nil {
			return r.created, r.fail(models.EntityProfile, old, err)
		}
		r.record(models.EntityProfile, old, p.ID)
	}

	for _, p := range s.ProfilePoints {
		old := p.ID
		profileID, err := remap(r, models.EntityProfile, p.ProfileID, models.ParseProfileID)
		if err != nil {
			return r.created, r.fail(models.EntityProfilePoint, old, err)
		}
		p.ID, p.WorkspaceID, p.ProfileID = models.ProfilePointID{}, ws, profileID
		p.PreviousPointID, p.NextPointID = models.ProfilePointID{}, models.ProfilePointID{}
		if err := dst.CreateProfilePoint(ctx, &p); err != nil {
			return r.created, r.fail(models.EntityProfilePoint, old, err)
		}
		r.record(models.EntityProfilePoint, old, p.ID)
	}

	for _, d := range s.Datasets {
		old := d.ID
		d.ID, d.WorkspaceID = models.DatasetID{}, ws
		if err := dst.CreateDataset(ctx, &d); err != nil {
			return r.created, r.fail(models.EntityDataset, old, err)
		}
		r.record(models.EntityDataset, old, d.ID)
	}

	for _, t := range s.Texts {
		old := t.ID
		datasetID, err := remap(r, models.EntityDataset, t.DatasetID, models.ParseDatasetID)
		if err != nil {
			return r.created, r.fail(models.EntityText, old, err)
		}
		t.ID, t.WorkspaceID, t.DatasetID = models.TextID{}, ws, datasetID
		if err := dst.CreateText(ctx, &t); err != nil {
			return r.created, r.fail(models.EntityText, old, err)
		}
		r.record(models.EntityText, old, t.ID)
	}

	for _, a := range s.AnnotatedDatasets {
		old := a.ID
		datasetID, err := remap(r, models.EntityDataset, a.DatasetID, models.ParseDatasetID)
		if err != nil {
			return r.created, r.fail(models.EntityAnnotatedDataset, old, err)
		}
		profileID, err := remap(r, models.EntityProfile, a.ProfileID, models.ParseProfileID)
		if err != nil {
			return r.created, r.fail(models.EntityAnnotatedDataset, old, err)
		}
		a.ID, a.WorkspaceID, a.DatasetID, a.ProfileID = models.AnnotatedDatasetID{}, ws, datasetID, profileID
		if err := dst.CreateAnnotatedDataset(ctx, &a); err != nil {
			return r.created, r.fail(models.EntityAnnotatedDataset, old, err)
		}
		r.record(models.EntityAnnotatedDataset, old, a.ID)
	}

	for _, a := range s.AnnotatedTexts {
		old := a.ID
		adID, err := remap(r, models.EntityAnnotatedDataset, a.AnnotatedDatasetID, models.ParseAnnotatedDatasetID)
		if err != nil {
			return r.created, r.fail(models.EntityAnnotatedText, old, err)
		}
		textID, err := remap(r, models.EntityText, a.TextID, models.ParseTextID)
		if err != nil {
			return r.created, r.fail(models.EntityAnnotatedText, old, err)
		}
		a.ID, a.WorkspaceID, a.AnnotatedDatasetID, a.TextID = models.AnnotatedTextID{}, ws, adID, textID
		if err := dst.CreateAnnotatedText(ctx, &a); err != nil {
			return r.created, r.fail(models.EntityAnnotatedText, old, err)
		}
		r.record(models.EntityAnnotatedText, old, a.ID)
	}

	for _, d := range s.DataPoints {
		old := d.ID
		atID, err := remap(r, models.EntityAnnotatedText, d.AnnotatedTextID, models.ParseAnnotatedTextID)
		if err != nil {
			return r.created, r.fail(models.EntityDataPoint, old, err)
		}
		var pointID models.ProfilePointID
		if !d.ProfilePointID.IsZero() {
			if pointID, err = remap(r, models.EntityProfilePoint, d.ProfilePointID, models.ParseProfilePointID); err != nil {
				return r.created, r.fail(models.EntityDataPoint, old, err)
			}
		}
		d.ID, d.WorkspaceID, d.AnnotatedTextID, d.ProfilePointID = models.DataPointID{}, ws, atID, pointID
		if err := dst.CreateDataPoint(ctx, &d); err != nil {
			return r.created, r.fail(models.EntityDataPoint, old, err)
		}
		r.created[models.EntityDataPoint]++
	}
	return r.created, nil
}

type restorer struct {
	ws      models.WorkspaceID
	ids     map[string]string
	created map[models.EntityType]int
}

func key(entity models.EntityType, id fmt.Stringer) string {
	return string(entity) + ":" + id.String()
}

func (r *restorer) record(entity models.EntityType, old, created fmt.Stringer) {
	r.ids[key(entity, old)] = created.String()
	r.created[entity]++
}

func (r *restorer) fail(entity models.EntityType, old fmt.Stringer, err error) error {
	return fmt.Errorf("restore %s %s: %w", entity, old, err)
}

func remap[K any](r *restorer, entity models.EntityType, old fmt.Stringer, parse func(string) (K, error)) (K, error) {
	var zero K
	id, ok := r.ids[key(entity, old)]
	if !ok {
		return zero, store.Integrity(entity, "%s %s is not part of the snapshot", entity, old)
	}
	return parse(id)
}
