package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"gorm.io/gorm"
)

// entityID is satisfied by every typed id.
type entityID interface {
	driver.Valuer
	fmt.Stringer
	IsZero() bool
}

// take loads one row of the workspace, reporting a row of another
// workspace as missing.
func take[T any](tx *gorm.DB, entity models.EntityType, ws models.WorkspaceID, id entityID) (*T, error) {
	var row T
	err := tx.Where("id = ? AND workspace_id = ?", id, ws).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) get(ctx context.Context, dest any, entity models.EntityType, ws models.WorkspaceID, id entityID) error {
	err := s.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, ws).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NotFound(entity, id)
	}
	return translate(err)
}

// list returns the rows of the workspace, optionally restricted to the
// children of one parent.
func list[T any](ctx context.Context, db *gorm.DB, ws models.WorkspaceID, parentColumn string, parent entityID, order string) ([]T, error) {
	q := db.WithContext(ctx).Where("workspace_id = ?", ws)
	if parentColumn != "" && parent != nil && !parent.IsZero() {
		q = q.Where(parentColumn+" = ?", parent)
	}
	rows := make([]T, 0)
	if err := q.Order(order).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// withMode restricts a query to one mode. The zero mode matches every row.
func withMode(db *gorm.DB, mode models.Mode) *gorm.DB {
	if mode == "" {
		return db
	}
	return db.Where("mode = ?", mode)
}

// requireWorkspace checks that a root entity names an existing workspace.
func requireWorkspace(tx *gorm.DB, entity models.EntityType, ws models.WorkspaceID) error {
	if ws.IsZero() {
		return store.Integrity(entity, "workspace_id is required")
	}
	var n int64
	if err := tx.Model(&models.Workspace{}).Where("id = ?", ws).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.Integrity(entity, "workspace %s does not exist", ws)
	}
	return nil
}

// parentWorkspace returns the workspace of a parent row.
func parentWorkspace(tx *gorm.DB, entity, parent models.EntityType, id entityID) (models.WorkspaceID, error) {
	var ws models.WorkspaceID
	if id.IsZero() {
		return ws, store.Integrity(entity, "%s reference is required", parent)
	}
	var ids []models.WorkspaceID
	if err := tx.Table(string(parent)).Where("id = ?", id).Limit(1).Pluck("workspace_id", &ids).Error; err != nil {
		return ws, err
	}
	if len(ids) == 0 {
		return ws, store.Integrity(entity, "%s %s does not exist", parent, id)
	}
	return ids[0], nil
}

// inherit sets *ws from the first parent when it is unset and rejects
// parents that live in another workspace.
func inherit(tx *gorm.DB, entity models.EntityType, ws *models.WorkspaceID, parents ...parentRef) error {
	for _, p := range parents {
		if p.optional && p.id.IsZero() {
			continue
		}
		parentWS, err := parentWorkspace(tx, entity, p.entity, p.id)
		if err != nil {
			return err
		}
		if ws.IsZero() {
			*ws = parentWS
			continue
		}
		if *ws != parentWS {
			return store.Integrity(entity, "%s %s belongs to workspace %s, not %s", p.entity, p.id, parentWS, *ws)
		}
	}
	return nil
}

type parentRef struct {
	entity   models.EntityType
	id       entityID
	optional bool
}

func parent(entity models.EntityType, id entityID) parentRef {
	return parentRef{entity: entity, id: id}
}

func optionalParent(entity models.EntityType, id entityID) parentRef {
	return parentRef{entity: entity, id: id, optional: true}
}

// deleteWhere deletes the rows of model matching the condition and records
// one change for the collection when anything was removed.
func deleteWhere(tx *gorm.DB, changes *changeSet, collection models.EntityType, ws models.WorkspaceID, model any, query string, args ...any) error {
	res := tx.Where(query, args...).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		changes.add(collection, models.ChangeOperationDelete, nil, ws)
	}
	return nil
}
