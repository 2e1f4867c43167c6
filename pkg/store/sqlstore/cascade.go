package sqlstore

import (
	"database/sql"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/ordering"
	"gorm.io/gorm"
)

func idsWhere(tx *gorm.DB, model any, query string, args ...any) *gorm.DB {
	return tx.Model(model).Select("id").Where(query, args...)
}

// cascadeAnnotatedTexts deletes the annotated texts matching the condition
// together with their data points.
func cascadeAnnotatedTexts(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, query string, args ...any) error {
	if err := deleteWhere(tx, changes, models.EntityDataPoint, ws, &models.DataPoint{},
		"annotated_text_id IN (?)", idsWhere(tx, &models.AnnotatedText{}, query, args...)); err != nil {
		return err
	}
	return deleteWhere(tx, changes, models.EntityAnnotatedText, ws, &models.AnnotatedText{}, query, args...)
}

// cascadeProfile removes everything that hangs off a profile: its annotated
// datasets (with their texts and data points) and its points.
func cascadeProfile(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, id models.ProfileID) error {
	ads := idsWhere(tx, &models.AnnotatedDataset{}, "profile_id = ?", id)
	if err := cascadeAnnotatedTexts(tx, changes, ws, "annotated_dataset_id IN (?)", ads); err != nil {
		return err
	}
	if err := deleteWhere(tx, changes, models.EntityAnnotatedDataset, ws, &models.AnnotatedDataset{}, "profile_id = ?", id); err != nil {
		return err
	}
	points := idsWhere(tx, &models.ProfilePoint{}, "profile_id = ?", id)
	if err := detachDataPoints(tx, changes, ws, "profile_point_id IN (?)", points); err != nil {
		return err
	}
	return deleteWhere(tx, changes, models.EntityProfilePoint, ws, &models.ProfilePoint{}, "profile_id = ?", id)
}

// cascadeDataset removes the texts of a dataset and every annotated dataset
// built on it.
func cascadeDataset(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, id models.DatasetID) error {
	ads := idsWhere(tx, &models.AnnotatedDataset{}, "dataset_id = ?", id)
	texts := idsWhere(tx, &models.Text{}, "dataset_id = ?", id)
	if err := cascadeAnnotatedTexts(tx, changes, ws, "annotated_dataset_id IN (?) OR text_id IN (?)", ads, texts); err != nil {
		return err
	}
	if err := deleteWhere(tx, changes, models.EntityAnnotatedDataset, ws, &models.AnnotatedDataset{}, "dataset_id = ?", id); err != nil {
		return err
	}
	return deleteWhere(tx, changes, models.EntityText, ws, &models.Text{}, "dataset_id = ?", id)
}

func cascadeText(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, id models.TextID) error {
	return cascadeAnnotatedTexts(tx, changes, ws, "text_id = ?", id)
}

// detachDataPoints clears the profile point reference of matching data points.
func detachDataPoints(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, query string, args ...any) error {
	res := tx.Model(&models.DataPoint{}).Where(query, args...).Update("profile_point_id", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		changes.add(models.EntityDataPoint, models.ChangeOperationUpdate, nil, ws)
	}
	return nil
}

// cascadeWorkspace removes every row of the workspace, children first, and
// the bookkeeping that refers to it.
func cascadeWorkspace(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID) error {
	for i := len(models.MigrationOrder) - 1; i >= 0; i-- {
		entity := models.MigrationOrder[i]
		if err := deleteWhere(tx, changes, entity, ws, modelFor(entity), "workspace_id = ?", ws); err != nil {
			return err
		}
	}
	if err := tx.Where("target_workspace_id = ?", ws).Delete(&models.MigrationMapping{}).Error; err != nil {
		return err
	}
	return tx.Where("workspace_id = ?", ws).Delete(&models.WorkspaceUsage{}).Error
}

func modelFor(entity models.EntityType) any {
	switch entity {
	case models.EntityProfile:
		return &models.Profile{}
	case models.EntityProfilePoint:
		return &models.ProfilePoint{}
	case models.EntityDataset:
		return &models.Dataset{}
	case models.EntityText:
		return &models.Text{}
	case models.EntityAnnotatedDataset:
		return &models.AnnotatedDataset{}
	case models.EntityAnnotatedText:
		return &models.AnnotatedText{}
	case models.EntityDataPoint:
		return &models.DataPoint{}
	case models.EntityWorkspace:
		return &models.Workspace{}
	}
	return nil
}

// appendOrder returns the order that places a new point after the last
// point of the profile.
func appendOrder(tx *gorm.DB, profileID models.ProfileID) (int, error) {
	var last sql.NullInt64
	err := tx.Model(&models.ProfilePoint{}).
		Where("profile_id = ?", profileID).
		Select("MAX(sort_order)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return ordering.After(int(last.Int64)), nil
}

// relinkProfilePoints rewrites the previous/next links of the profile's
// points to follow their order. When saved is one of the points its links
// are updated in place as well.
func relinkProfilePoints(tx *gorm.DB, changes *changeSet, ws models.WorkspaceID, profileID models.ProfileID, saved *models.ProfilePoint) error {
	var points []models.ProfilePoint
	if err := tx.Where("profile_id = ?", profileID).Order("sort_order, created_at, id").Find(&points).Error; err != nil {
		return err
	}
	for i, link := range ordering.Links(points) {
		p := points[i]
		if saved != nil && saved.ID == p.ID {
			saved.PreviousPointID, saved.NextPointID = link.Previous, link.Next
		}
		if p.PreviousPointID == link.Previous && p.NextPointID == link.Next {
			continue
		}
		err := tx.Model(&models.ProfilePoint{}).Where("id = ?", p.ID).UpdateColumns(map[string]any{
			"previous_point_id": link.Previous,
			"next_point_id":     link.Next,
		}).Error
		if err != nil {
			return err
		}
		if saved == nil || saved.ID != p.ID {
			changes.add(models.EntityProfilePoint, models.ChangeOperationUpdate, p.ID, ws)
		}
	}
	return nil
}
