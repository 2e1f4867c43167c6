package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Workspace operations

func (s *Store) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if err := workspace.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		if !workspace.OwnerID.IsZero() {
			var n int64
			if err := tx.Model(&models.User{}).Where("id = ?", workspace.OwnerID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return store.Integrity(models.EntityWorkspace, "owner %s does not exist", workspace.OwnerID)
			}
		}
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}
		changes.add(models.EntityWorkspace, models.ChangeOperationCreate, workspace.ID, workspace.ID)
		return nil
	})
}

func (s *Store) GetWorkspace(ctx context.Context, id models.WorkspaceID) (*models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound(models.EntityWorkspace, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &workspace, nil
}

// UpdateWorkspace saves the name, description and default flag. Storage
// type and owner are fixed at creation.
func (s *Store) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if err := workspace.Validate().AsError(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		var existing models.Workspace
		err := tx.Where("id = ?", workspace.ID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.NotFound(models.EntityWorkspace, workspace.ID)
		}
		if err != nil {
			return err
		}
		existing.Name = workspace.Name
		existing.Description = workspace.Description
		existing.IsDefault = workspace.IsDefault
		if err := tx.Model(&existing).Select("name", "description", "is_default").Updates(&existing).Error; err != nil {
			return err
		}
		*workspace = existing
		changes.add(models.EntityWorkspace, models.ChangeOperationUpdate, workspace.ID, workspace.ID)
		return nil
	})
}

// DeleteWorkspace removes the workspace with all of its entities, the
// migration mappings targeting it and its usage records.
func (s *Store) DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		return deleteWorkspace(tx, changes, id)
	})
}

func deleteWorkspace(tx *gorm.DB, changes *changeSet, id models.WorkspaceID) error {
	if id == models.LocalWorkspaceID {
		return store.Integrity(models.EntityWorkspace, "the local workspace cannot be deleted")
	}
	if err := cascadeWorkspace(tx, changes, id); err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Workspace{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.NotFound(models.EntityWorkspace, id)
	}
	changes.add(models.EntityWorkspace, models.ChangeOperationDelete, id, id)
	return nil
}

func (s *Store) ListWorkspaces(ctx context.Context, owner models.UserID) ([]models.Workspace, error) {
	q := s.db.WithContext(ctx)
	if owner.IsZero() {
		q = q.Where("owner_id IS NULL")
	} else {
		q = q.Where("owner_id = ?", owner)
	}
	workspaces := make([]models.Workspace, 0)
	if err := q.Order("created_at, id").Find(&workspaces).Error; err != nil {
		return nil, translate(err)
	}
	return workspaces, nil
}

// User operations

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user. A taken email reports constants.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.Email == "" {
		return models.Invalid(models.EntityType("users"), "email is required").AsError()
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, constants.ErrNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", email, constants.ErrNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Select("email", "full_name", "password_hash", "is_active").
		Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, constants.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id models.UserID) error {
	return s.write(ctx, func(tx *gorm.DB, changes *changeSet) error {
		var owned []models.WorkspaceID
		if err := tx.Model(&models.Workspace{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		for _, ws := range owned {
			if err := deleteWorkspace(tx, changes, ws); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.WorkspaceUsage{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", id, constants.ErrNotFound)
		}
		return nil
	})
}

// Workspace usage

// TouchWorkspace records that the user made ws active now.
func (s *Store) TouchWorkspace(ctx context.Context, ws models.WorkspaceID, user models.UserID) error {
	usage := models.WorkspaceUsage{WorkspaceID: ws, UserID: user, UsedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "used_at"}),
	}).Create(&usage).Error
	return translate(err)
}

func (s *Store) RecentWorkspaces(ctx context.Context, user models.UserID) ([]models.WorkspaceUsage, error) {
	usages := make([]models.WorkspaceUsage, 0)
	err := s.db.WithContext(ctx).Where("user_id = ?", user).Order("used_at DESC").Find(&usages).Error
	if err != nil {
		return nil, translate(err)
	}
	return usages, nil
}

func (s *Store) ForgetWorkspaces(ctx context.Context, user models.UserID) error {
	return translate(s.db.WithContext(ctx).Where("user_id = ?", user).Delete(&models.WorkspaceUsage{}).Error)
}

// Migration mappings

func (s *Store) GetMapping(ctx context.Context, target models.WorkspaceID, entity models.EntityType, localID string) (*models.MigrationMapping, error) {
	var mapping models.MigrationMapping
	err := s.db.WithContext(ctx).
		Where("target_workspace_id = ? AND entity_type = ? AND local_id = ?", target, entity, localID).
		Take(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("mapping of %s %s in %s: %w", entity, localID, target, constants.ErrNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// SaveMapping records the mapping, replacing the cloud id of an existing
// mapping for the same local entity and target.
func (s *Store) SaveMapping(ctx context.Context, mapping *models.MigrationMapping) error {
	if mapping.Phase == 0 {
		mapping.Phase = mapping.EntityType.Phase()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "target_workspace_id"},
			{Name: "entity_type"},
			{Name: "local_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"cloud_id", "phase"}),
	}).Create(mapping).Error
	return translate(err)
}

func (s *Store) ListMappings(ctx context.Context, target models.WorkspaceID) ([]models.MigrationMapping, error) {
	mappings := make([]models.MigrationMapping, 0)
	err := s.db.WithContext(ctx).Where("target_workspace_id = ?", target).Order("phase, id").Find(&mappings).Error
	if err != nil {
		return nil, translate(err)
	}
	return mappings, nil
}

func (s *Store) MappingTargets(ctx context.Context) ([]models.WorkspaceID, error) {
	var targets []models.WorkspaceID
	err := s.db.WithContext(ctx).Model(&models.MigrationMapping{}).
		Group("target_workspace_id").
		Order("MAX(id) DESC").
		Pluck("target_workspace_id", &targets).Error
	if err != nil {
		return nil, translate(err)
	}
	return targets, nil
}
