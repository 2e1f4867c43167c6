package store

import (
	"context"
	"fmt"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects every write while isReadOnly
// returns true. Reads, mapping and usage bookkeeping pass through.
//
// The server uses it for maintenance windows: the flag can be flipped at
// runtime without recreating the store.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly(op string) error {
	if r.isReadOnly() {
		return fmt.Errorf("%s: %w", op, constants.ErrReadOnly)
	}
	return nil
}

func (r *ReadOnlyStore) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if err := r.checkReadOnly("CreateWorkspace"); err != nil {
		return err
	}
	return r.Store.CreateWorkspace(ctx, workspace)
}

func (r *ReadOnlyStore) UpdateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if err := r.checkReadOnly("UpdateWorkspace"); err != nil {
		return err
	}
	return r.Store.UpdateWorkspace(ctx, workspace)
}

func (r *ReadOnlyStore) DeleteWorkspace(ctx context.Context, id models.WorkspaceID) error {
	if err := r.checkReadOnly("DeleteWorkspace"); err != nil {
		return err
	}
	return r.Store.DeleteWorkspace(ctx, id)
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly("CreateUser"); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly("UpdateUser"); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) DeleteUser(ctx context.Context, id models.UserID) error {
	if err := r.checkReadOnly("DeleteUser"); err != nil {
		return err
	}
	return r.Store.DeleteUser(ctx, id)
}

func (r *ReadOnlyStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := r.checkReadOnly("CreateProfile"); err != nil {
		return err
	}
	return r.Store.CreateProfile(ctx, profile)
}

func (r *ReadOnlyStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	if err := r.checkReadOnly("UpdateProfile"); err != nil {
		return err
	}
	return r.Store.UpdateProfile(ctx, profile)
}

func (r *ReadOnlyStore) DeleteProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) error {
	if err := r.checkReadOnly("DeleteProfile"); err != nil {
		return err
	}
	return r.Store.DeleteProfile(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := r.checkReadOnly("CreateProfilePoint"); err != nil {
		return err
	}
	return r.Store.CreateProfilePoint(ctx, point)
}

func (r *ReadOnlyStore) UpdateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := r.checkReadOnly("UpdateProfilePoint"); err != nil {
		return err
	}
	return r.Store.UpdateProfilePoint(ctx, point)
}

func (r *ReadOnlyStore) DeleteProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) error {
	if err := r.checkReadOnly("DeleteProfilePoint"); err != nil {
		return err
	}
	return r.Store.DeleteProfilePoint(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := r.checkReadOnly("CreateDataset"); err != nil {
		return err
	}
	return r.Store.CreateDataset(ctx, dataset)
}

func (r *ReadOnlyStore) UpdateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := r.checkReadOnly("UpdateDataset"); err != nil {
		return err
	}
	return r.Store.UpdateDataset(ctx, dataset)
}

func (r *ReadOnlyStore) DeleteDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) error {
	if err := r.checkReadOnly("DeleteDataset"); err != nil {
		return err
	}
	return r.Store.DeleteDataset(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateText(ctx context.Context, text *models.Text) error {
	if err := r.checkReadOnly("CreateText"); err != nil {
		return err
	}
	return r.Store.CreateText(ctx, text)
}

func (r *ReadOnlyStore) UpdateText(ctx context.Context, text *models.Text) error {
	if err := r.checkReadOnly("UpdateText"); err != nil {
		return err
	}
	return r.Store.UpdateText(ctx, text)
}

func (r *ReadOnlyStore) DeleteText(ctx context.Context, ws models.WorkspaceID, id models.TextID) error {
	if err := r.checkReadOnly("DeleteText"); err != nil {
		return err
	}
	return r.Store.DeleteText(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := r.checkReadOnly("CreateAnnotatedDataset"); err != nil {
		return err
	}
	return r.Store.CreateAnnotatedDataset(ctx, ad)
}

func (r *ReadOnlyStore) UpdateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := r.checkReadOnly("UpdateAnnotatedDataset"); err != nil {
		return err
	}
	return r.Store.UpdateAnnotatedDataset(ctx, ad)
}

func (r *ReadOnlyStore) DeleteAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) error {
	if err := r.checkReadOnly("DeleteAnnotatedDataset"); err != nil {
		return err
	}
	return r.Store.DeleteAnnotatedDataset(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := r.checkReadOnly("CreateAnnotatedText"); err != nil {
		return err
	}
	return r.Store.CreateAnnotatedText(ctx, at)
}

func (r *ReadOnlyStore) UpdateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := r.checkReadOnly("UpdateAnnotatedText"); err != nil {
		return err
	}
	return r.Store.UpdateAnnotatedText(ctx, at)
}

func (r *ReadOnlyStore) DeleteAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) error {
	if err := r.checkReadOnly("DeleteAnnotatedText"); err != nil {
		return err
	}
	return r.Store.DeleteAnnotatedText(ctx, ws, id)
}

func (r *ReadOnlyStore) CreateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := r.checkReadOnly("CreateDataPoint"); err != nil {
		return err
	}
	return r.Store.CreateDataPoint(ctx, dp)
}

func (r *ReadOnlyStore) UpdateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := r.checkReadOnly("UpdateDataPoint"); err != nil {
		return err
	}
	return r.Store.UpdateDataPoint(ctx, dp)
}

func (r *ReadOnlyStore) DeleteDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) error {
	if err := r.checkReadOnly("DeleteDataPoint"); err != nil {
		return err
	}
	return r.Store.DeleteDataPoint(ctx, ws, id)
}
