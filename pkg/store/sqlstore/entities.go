package sqlstore

import (
	"context"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"gorm.io/gorm"
)

const byCreation = "created_at, id"

// Profile operations

func (s *Store) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := requireWorkspace(tx, models.EntityProfile, profile.WorkspaceID); err != nil {
			return err
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfile, models.ChangeOperationCreate, profile.ID, profile.WorkspaceID)
		return nil
	})
}

func (s *Store) GetProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.get(ctx, &profile, models.EntityProfile, ws, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.Profile](tx, models.EntityProfile, profile.WorkspaceID, profile.ID)
		if err != nil {
			return err
		}
		profile.CreatedAt = existing.CreatedAt
		if err := tx.Save(profile).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfile, models.ChangeOperationUpdate, profile.ID, profile.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.Profile](tx, models.EntityProfile, ws, id); err != nil {
			return err
		}
		if err := cascadeProfile(tx, changes, ws, id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfile, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListProfiles(ctx context.Context, ws models.WorkspaceID) ([]models.Profile, error) {
	return s.ListProfilesByMode(ctx, ws, "")
}

func (s *Store) ListProfilesByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Profile, error) {
	return list[models.Profile](ctx, withMode(s.db, mode), ws, "", nil, byCreation)
}

// Profile point operations

// CreateProfilePoint appends the point to its profile unless it carries an
// explicit order, in which case it is placed by that order. The previous and
// next links are derived from the order and never taken from the payload.
func (s *Store) CreateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := point.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := inherit(tx, models.EntityProfilePoint, &point.WorkspaceID, parent(models.EntityProfile, point.ProfileID)); err != nil {
			return err
		}
		if point.Order == 0 {
			order, err := appendOrder(tx, point.ProfileID)
			if err != nil {
				return err
			}
			point.Order = order
		}
		point.PreviousPointID = models.ProfilePointID{}
		point.NextPointID = models.ProfilePointID{}
		if err := tx.Create(point).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfilePoint, models.ChangeOperationCreate, point.ID, point.WorkspaceID)
		return relinkProfilePoints(tx, changes, point.WorkspaceID, point.ProfileID, point)
	})
}

func (s *Store) GetProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) (*models.ProfilePoint, error) {
	var point models.ProfilePoint
	if err := s.get(ctx, &point, models.EntityProfilePoint, ws, id); err != nil {
		return nil, err
	}
	return &point, nil
}

// UpdateProfilePoint saves the point. A changed order moves the point; the
// profile of a point cannot change.
func (s *Store) UpdateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := point.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.ProfilePoint](tx, models.EntityProfilePoint, point.WorkspaceID, point.ID)
		if err != nil {
			return err
		}
		if existing.ProfileID != point.ProfileID {
			return store.Integrity(models.EntityProfilePoint, "profile point %s cannot move to another profile", point.ID)
		}
		point.CreatedAt = existing.CreatedAt
		point.PreviousPointID = existing.PreviousPointID
		point.NextPointID = existing.NextPointID
		if err := tx.Save(point).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfilePoint, models.ChangeOperationUpdate, point.ID, point.WorkspaceID)
		if existing.Order == point.Order {
			return nil
		}
		return relinkProfilePoints(tx, changes, point.WorkspaceID, point.ProfileID, point)
	})
}

// DeleteProfilePoint removes the point, detaches the data points that
// referenced it and closes the gap in the linked list.
func (s *Store) DeleteProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		point, err := take[models.ProfilePoint](tx, models.EntityProfilePoint, ws, id)
		if err != nil {
			return err
		}
		if err := detachDataPoints(tx, changes, ws, "profile_point_id = ?", id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.ProfilePoint{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityProfilePoint, models.ChangeOperationDelete, id, ws)
		return relinkProfilePoints(tx, changes, ws, point.ProfileID, nil)
	})
}

func (s *Store) ListProfilePoints(ctx context.Context, ws models.WorkspaceID, profileID models.ProfileID) ([]models.ProfilePoint, error) {
	return list[models.ProfilePoint](ctx, s.db, ws, "profile_id", profileID, "profile_id, sort_order, created_at, id")
}

// Dataset operations

func (s *Store) CreateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := dataset.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := requireWorkspace(tx, models.EntityDataset, dataset.WorkspaceID); err != nil {
			return err
		}
		if err := tx.Create(dataset).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataset, models.ChangeOperationCreate, dataset.ID, dataset.WorkspaceID)
		return nil
	})
}

func (s *Store) GetDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.get(ctx, &dataset, models.EntityDataset, ws, id); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (s *Store) UpdateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := dataset.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.Dataset](tx, models.EntityDataset, dataset.WorkspaceID, dataset.ID)
		if err != nil {
			return err
		}
		dataset.CreatedAt = existing.CreatedAt
		if err := tx.Save(dataset).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataset, models.ChangeOperationUpdate, dataset.ID, dataset.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.Dataset](tx, models.EntityDataset, ws, id); err != nil {
			return err
		}
		if err := cascadeDataset(tx, changes, ws, id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Dataset{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataset, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.Dataset, error) {
	return s.ListDatasetsByMode(ctx, ws, "")
}

func (s *Store) ListDatasetsByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Dataset, error) {
	return list[models.Dataset](ctx, withMode(s.db, mode), ws, "", nil, byCreation)
}

// Text operations

func (s *Store) CreateText(ctx context.Context, text *models.Text) error {
	if err := text.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := inherit(tx, models.EntityText, &text.WorkspaceID, parent(models.EntityDataset, text.DatasetID)); err != nil {
			return err
		}
		if err := tx.Create(text).Error; err != nil {
			return err
		}
		changes.add(models.EntityText, models.ChangeOperationCreate, text.ID, text.WorkspaceID)
		return nil
	})
}

func (s *Store) GetText(ctx context.Context, ws models.WorkspaceID, id models.TextID) (*models.Text, error) {
	var text models.Text
	if err := s.get(ctx, &text, models.EntityText, ws, id); err != nil {
		return nil, err
	}
	return &text, nil
}

func (s *Store) UpdateText(ctx context.Context, text *models.Text) error {
	if err := text.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.Text](tx, models.EntityText, text.WorkspaceID, text.ID)
		if err != nil {
			return err
		}
		if err := inherit(tx, models.EntityText, &text.WorkspaceID, parent(models.EntityDataset, text.DatasetID)); err != nil {
			return err
		}
		if existing.Text != text.Text {
			if err := checkSpans(tx, text); err != nil {
				return err
			}
		}
		text.CreatedAt = existing.CreatedAt
		if err := tx.Save(text).Error; err != nil {
			return err
		}
		changes.add(models.EntityText, models.ChangeOperationUpdate, text.ID, text.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteText(ctx context.Context, ws models.WorkspaceID, id models.TextID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.Text](tx, models.EntityText, ws, id); err != nil {
			return err
		}
		if err := cascadeText(tx, changes, ws, id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Text{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityText, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListTexts(ctx context.Context, ws models.WorkspaceID, datasetID models.DatasetID) ([]models.Text, error) {
	return list[models.Text](ctx, s.db, ws, "dataset_id", datasetID, byCreation)
}

// Annotated dataset operations

func (s *Store) CreateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := ad.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := inherit(tx, models.EntityAnnotatedDataset, &ad.WorkspaceID,
			parent(models.EntityDataset, ad.DatasetID),
			parent(models.EntityProfile, ad.ProfileID),
		); err != nil {
			return err
		}
		if err := tx.Create(ad).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedDataset, models.ChangeOperationCreate, ad.ID, ad.WorkspaceID)
		return nil
	})
}

func (s *Store) GetAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) (*models.AnnotatedDataset, error) {
	var ad models.AnnotatedDataset
	if err := s.get(ctx, &ad, models.EntityAnnotatedDataset, ws, id); err != nil {
		return nil, err
	}
	return &ad, nil
}

func (s *Store) UpdateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := ad.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.AnnotatedDataset](tx, models.EntityAnnotatedDataset, ad.WorkspaceID, ad.ID)
		if err != nil {
			return err
		}
		if err := inherit(tx, models.EntityAnnotatedDataset, &ad.WorkspaceID,
			parent(models.EntityDataset, ad.DatasetID),
			parent(models.EntityProfile, ad.ProfileID),
		); err != nil {
			return err
		}
		ad.CreatedAt = existing.CreatedAt
		if err := tx.Save(ad).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedDataset, models.ChangeOperationUpdate, ad.ID, ad.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.AnnotatedDataset](tx, models.EntityAnnotatedDataset, ws, id); err != nil {
			return err
		}
		if err := cascadeAnnotatedTexts(tx, changes, ws, "annotated_dataset_id = ?", id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.AnnotatedDataset{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedDataset, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListAnnotatedDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.AnnotatedDataset, error) {
	return list[models.AnnotatedDataset](ctx, s.db, ws, "", nil, byCreation)
}

// Annotated text operations

func (s *Store) CreateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := at.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := checkAnnotatedText(tx, at); err != nil {
			return err
		}
		if err := tx.Create(at).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedText, models.ChangeOperationCreate, at.ID, at.WorkspaceID)
		return nil
	})
}

func (s *Store) GetAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) (*models.AnnotatedText, error) {
	var at models.AnnotatedText
	if err := s.get(ctx, &at, models.EntityAnnotatedText, ws, id); err != nil {
		return nil, err
	}
	return &at, nil
}

func (s *Store) UpdateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := at.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.AnnotatedText](tx, models.EntityAnnotatedText, at.WorkspaceID, at.ID)
		if err != nil {
			return err
		}
		if err := checkAnnotatedText(tx, at); err != nil {
			return err
		}
		at.CreatedAt = existing.CreatedAt
		if err := tx.Save(at).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedText, models.ChangeOperationUpdate, at.ID, at.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.AnnotatedText](tx, models.EntityAnnotatedText, ws, id); err != nil {
			return err
		}
		if err := deleteWhere(tx, changes, models.EntityDataPoint, ws, &models.DataPoint{}, "annotated_text_id = ?", id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.AnnotatedText{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityAnnotatedText, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListAnnotatedTexts(ctx context.Context, ws models.WorkspaceID, annotatedDatasetID models.AnnotatedDatasetID) ([]models.AnnotatedText, error) {
	return list[models.AnnotatedText](ctx, s.db, ws, "annotated_dataset_id", annotatedDatasetID, byCreation)
}

// Data point operations

func (s *Store) CreateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := dp.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if err := checkDataPoint(tx, dp); err != nil {
			return err
		}
		if err := tx.Create(dp).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataPoint, models.ChangeOperationCreate, dp.ID, dp.WorkspaceID)
		return nil
	})
}

func (s *Store) GetDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) (*models.DataPoint, error) {
	var dp models.DataPoint
	if err := s.get(ctx, &dp, models.EntityDataPoint, ws, id); err != nil {
		return nil, err
	}
	return &dp, nil
}

func (s *Store) UpdateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := dp.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		existing, err := take[models.DataPoint](tx, models.EntityDataPoint, dp.WorkspaceID, dp.ID)
		if err != nil {
			return err
		}
		if err := checkDataPoint(tx, dp); err != nil {
			return err
		}
		dp.CreatedAt = existing.CreatedAt
		if err := tx.Save(dp).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataPoint, models.ChangeOperationUpdate, dp.ID, dp.WorkspaceID)
		return nil
	})
}

func (s *Store) DeleteDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if _, err := take[models.DataPoint](tx, models.EntityDataPoint, ws, id); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.DataPoint{}).Error; err != nil {
			return err
		}
		changes.add(models.EntityDataPoint, models.ChangeOperationDelete, id, ws)
		return nil
	})
}

func (s *Store) ListDataPoints(ctx context.Context, ws models.WorkspaceID, annotatedTextID models.AnnotatedTextID) ([]models.DataPoint, error) {
	return list[models.DataPoint](ctx, s.db, ws, "annotated_text_id", annotatedTextID, byCreation)
}

// checkDataPoint resolves the parents of a data point and checks its match
// against the annotated text's source text.
func checkDataPoint(tx *gorm.DB, dp *models.DataPoint) error {
	if err := inherit(tx, models.EntityDataPoint, &dp.WorkspaceID,
		parent(models.EntityAnnotatedText, dp.AnnotatedTextID),
		optionalParent(models.EntityProfilePoint, dp.ProfilePointID),
	); err != nil {
		return err
	}
	if dp.Match == nil {
		return nil
	}
	var source models.Text
	err := tx.Table("texts").
		Joins("JOIN annotated_texts ON annotated_texts.text_id = texts.id").
		Where("annotated_texts.id = ?", dp.AnnotatedTextID).
		Select("texts.*").
		Take(&source).Error
	if err != nil {
		return store.Integrity(models.EntityDataPoint, "source text of annotated text %s: %v", dp.AnnotatedTextID, err)
	}
	return dp.ValidateMatch(source.Text).AsError()
}

// checkSpans rejects new content for a text when a data point annotating it
// has a match that would no longer fit.
func checkSpans(tx *gorm.DB, text *models.Text) error {
	var points []models.DataPoint
	err := tx.Model(&models.DataPoint{}).
		Joins("JOIN annotated_texts ON annotated_texts.id = data_points.annotated_text_id").
		Where("annotated_texts.text_id = ?", text.ID).
		Select("data_points.*").
		Find(&points).Error
	if err != nil {
		return err
	}
	for _, dp := range points {
		if err := dp.ValidateMatch(text.Text).AsError(); err != nil {
			return store.Integrity(models.EntityText, "data point %s no longer fits text %s: %v", dp.ID, text.ID, err)
		}
	}
	return nil
}

// checkAnnotatedText resolves the parents of an annotated text. The text
// must belong to the annotated dataset's dataset and may be annotated only
// once per annotated dataset.
func checkAnnotatedText(tx *gorm.DB, at *models.AnnotatedText) error {
	if err := inherit(tx, models.EntityAnnotatedText, &at.WorkspaceID,
		parent(models.EntityAnnotatedDataset, at.AnnotatedDatasetID),
		parent(models.EntityText, at.TextID),
	); err != nil {
		return err
	}

	var datasets []models.DatasetID
	if err := tx.Model(&models.AnnotatedDataset{}).Where("id = ?", at.AnnotatedDatasetID).Limit(1).Pluck("dataset_id", &datasets).Error; err != nil {
		return err
	}
	var n int64
	if err := tx.Model(&models.Text{}).Where("id = ? AND dataset_id IN ?", at.TextID, datasets).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.Integrity(models.EntityAnnotatedText, "text %s is not part of the dataset of annotated dataset %s", at.TextID, at.AnnotatedDatasetID)
	}

	q := tx.Model(&models.AnnotatedText{}).Where("annotated_dataset_id = ? AND text_id = ?", at.AnnotatedDatasetID, at.TextID)
	if !at.ID.IsZero() {
		q = q.Where("id <> ?", at.ID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return store.Integrity(models.EntityAnnotatedText, "text %s is already annotated in annotated dataset %s", at.TextID, at.AnnotatedDatasetID)
	}
	return nil
}
