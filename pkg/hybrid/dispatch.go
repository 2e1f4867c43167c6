package hybrid

import (
	"context"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// The untyped operations dispatch on the entity type. Payloads are pointers
// to the model of the entity type; ids and parents are canonical UUID
// strings.

func mismatch(entity models.EntityType, payload any) error {
	return models.Invalid(entity, fmt.Sprintf("payload %T does not match %s", payload, entity)).AsError()
}

func badID(entity models.EntityType, err error) error {
	return models.Invalid(entity, err.Error()).AsError()
}

// Create creates the payload in the active workspace.
func (s *Service) Create(ctx context.Context, entity models.EntityType, payload any) error {
	switch entity {
	case models.EntityProfile:
		if v, ok := payload.(*models.Profile); ok {
			return s.CreateProfile(ctx, v)
		}
	case models.EntityProfilePoint:
		if v, ok := payload.(*models.ProfilePoint); ok {
			return s.CreateProfilePoint(ctx, v)
		}
	case models.EntityDataset:
		if v, ok := payload.(*models.Dataset); ok {
			return s.CreateDataset(ctx, v)
		}
	case models.EntityText:
		if v, ok := payload.(*models.Text); ok {
			return s.CreateText(ctx, v)
		}
	case models.EntityAnnotatedDataset:
		if v, ok := payload.(*models.AnnotatedDataset); ok {
			return s.CreateAnnotatedDataset(ctx, v)
		}
	case models.EntityAnnotatedText:
		if v, ok := payload.(*models.AnnotatedText); ok {
			return s.CreateAnnotatedText(ctx, v)
		}
	case models.EntityDataPoint:
		if v, ok := payload.(*models.DataPoint); ok {
			return s.CreateDataPoint(ctx, v)
		}
	default:
		return models.Invalid(entity, "unknown entity type").AsError()
	}
	return mismatch(entity, payload)
}

// Update replaces the mutable fields of the payload's entity.
func (s *Service) Update(ctx context.Context, entity models.EntityType, payload any) error {
	switch entity {
	case models.EntityProfile:
		if v, ok := payload.(*models.Profile); ok {
			return s.UpdateProfile(ctx, v)
		}
	case models.EntityProfilePoint:
		if v, ok := payload.(*models.ProfilePoint); ok {
			return s.UpdateProfilePoint(ctx, v)
		}
	case models.EntityDataset:
		if v, ok := payload.(*models.Dataset); ok {
			return s.UpdateDataset(ctx, v)
		}
	case models.EntityText:
		if v, ok := payload.(*models.Text); ok {
			return s.UpdateText(ctx, v)
		}
	case models.EntityAnnotatedDataset:
		if v, ok := payload.(*models.AnnotatedDataset); ok {
			return s.UpdateAnnotatedDataset(ctx, v)
		}
	case models.EntityAnnotatedText:
		if v, ok := payload.(*models.AnnotatedText); ok {
			return s.UpdateAnnotatedText(ctx, v)
		}
	case models.EntityDataPoint:
		if v, ok := payload.(*models.DataPoint); ok {
			return s.UpdateDataPoint(ctx, v)
		}
	default:
		return models.Invalid(entity, "unknown entity type").AsError()
	}
	return mismatch(entity, payload)
}

// Get returns a pointer to the entity model.
func (s *Service) Get(ctx context.Context, entity models.EntityType, id string) (any, error) {
	switch entity {
	case models.EntityProfile:
		return getBy(ctx, entity, id, models.ParseProfileID, s.GetProfile)
	case models.EntityProfilePoint:
		return getBy(ctx, entity, id, models.ParseProfilePointID, s.GetProfilePoint)
	case models.EntityDataset:
		return getBy(ctx, entity, id, models.ParseDatasetID, s.GetDataset)
	case models.EntityText:
		return getBy(ctx, entity, id, models.ParseTextID, s.GetText)
	case models.EntityAnnotatedDataset:
		return getBy(ctx, entity, id, models.ParseAnnotatedDatasetID, s.GetAnnotatedDataset)
	case models.EntityAnnotatedText:
		return getBy(ctx, entity, id, models.ParseAnnotatedTextID, s.GetAnnotatedText)
	case models.EntityDataPoint:
		return getBy(ctx, entity, id, models.ParseDataPointID, s.GetDataPoint)
	}
	return nil, models.Invalid(entity, "unknown entity type").AsError()
}

// Delete deletes the entity and its children.
func (s *Service) Delete(ctx context.Context, entity models.EntityType, id string) error {
	switch entity {
	case models.EntityProfile:
		return deleteBy(ctx, entity, id, models.ParseProfileID, s.DeleteProfile)
	case models.EntityProfilePoint:
		return deleteBy(ctx, entity, id, models.ParseProfilePointID, s.DeleteProfilePoint)
	case models.EntityDataset:
		return deleteBy(ctx, entity, id, models.ParseDatasetID, s.DeleteDataset)
	case models.EntityText:
		return deleteBy(ctx, entity, id, models.ParseTextID, s.DeleteText)
	case models.EntityAnnotatedDataset:
		return deleteBy(ctx, entity, id, models.ParseAnnotatedDatasetID, s.DeleteAnnotatedDataset)
	case models.EntityAnnotatedText:
		return deleteBy(ctx, entity, id, models.ParseAnnotatedTextID, s.DeleteAnnotatedText)
	case models.EntityDataPoint:
		return deleteBy(ctx, entity, id, models.ParseDataPointID, s.DeleteDataPoint)
	}
	return models.Invalid(entity, "unknown entity type").AsError()
}

// ListAny lists the collection as a slice of model values. The filter is
// the parent id of a child collection and the mode of profiles and datasets.
func (s *Service) ListAny(ctx context.Context, entity models.EntityType, parent string) ([]any, error) {
	switch entity {
	case models.EntityWorkspace:
		return boxed(s.ListWorkspaces(ctx))
	case models.EntityProfile:
		return listBy(ctx, entity, parent, models.ParseMode, s.ListProfilesByMode)
	case models.EntityProfilePoint:
		return listBy(ctx, entity, parent, models.ParseProfileID, s.ListProfilePoints)
	case models.EntityDataset:
		return listBy(ctx, entity, parent, models.ParseMode, s.ListDatasetsByMode)
	case models.EntityText:
		return listBy(ctx, entity, parent, models.ParseDatasetID, s.ListTexts)
	case models.EntityAnnotatedDataset:
		return boxed(s.ListAnnotatedDatasets(ctx))
	case models.EntityAnnotatedText:
		return listBy(ctx, entity, parent, models.ParseAnnotatedDatasetID, s.ListAnnotatedTexts)
	case models.EntityDataPoint:
		return listBy(ctx, entity, parent, models.ParseAnnotatedTextID, s.ListDataPoints)
	}
	return nil, models.Invalid(entity, "unknown entity type").AsError()
}

func getBy[ID any, T any](ctx context.Context, entity models.EntityType, raw string, parse func(string) (ID, error), get func(context.Context, ID) (*T, error)) (any, error) {
	id, err := parse(raw)
	if err != nil {
		return nil, badID(entity, err)
	}
	v, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func deleteBy[ID any](ctx context.Context, entity models.EntityType, raw string, parse func(string) (ID, error), del func(context.Context, ID) error) error {
	id, err := parse(raw)
	if err != nil {
		return badID(entity, err)
	}
	return del(ctx, id)
}

func listBy[ID any, T any](ctx context.Context, entity models.EntityType, rawParent string, parse func(string) (ID, error), list func(context.Context, ID) ([]T, error)) ([]any, error) {
	var parent ID
	if rawParent != "" {
		p, err := parse(rawParent)
		if err != nil {
			return nil, badID(entity, err)
		}
		parent = p
	}
	return boxed(list(ctx, parent))
}

func boxed[T any](items []T, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i := range items {
		out[i] = items[i]
	}
	return out, nil
}
