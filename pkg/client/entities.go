package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

var _ store.EntityStore = (*Client)(nil)

// The entity methods address the workspace named by the payload (create,
// update) or by the ws argument. Creates fill the passed value with the
// stored entity, including the id the server assigned.

func create[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, v *T) error {
	return c.call(ctx, http.MethodPost, api.CollectionPath(ws, entity), nil, v, v)
}

func get[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, id fmt.Stringer) (*T, error) {
	var v T
	if err := c.call(ctx, http.MethodGet, api.EntityPath(ws, entity, id), nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func update[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, id fmt.Stringer, v *T) error {
	return c.call(ctx, http.MethodPut, api.EntityPath(ws, entity, id), nil, v, v)
}

func remove(ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, id fmt.Stringer) error {
	return c.call(ctx, http.MethodDelete, api.EntityPath(ws, entity, id), nil, nil, nil)
}

func list[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, parent interface {
	fmt.Stringer
	IsZero() bool
}) ([]T, error) {
	var query url.Values
	if parent != nil && !parent.IsZero() {
		query = url.Values{api.ParentFilter(entity): {parent.String()}}
	}
	return fetch[T](ctx, c, ws, entity, query)
}

func listByMode[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, mode models.Mode) ([]T, error) {
	var query url.Values
	if mode != "" {
		query = url.Values{api.ModeFilter: {string(mode)}}
	}
	return fetch[T](ctx, c, ws, entity, query)
}

func fetch[T any](ctx context.Context, c *Client, ws models.WorkspaceID, entity models.EntityType, query url.Values) ([]T, error) {
	result := make([]T, 0)
	if err := c.call(ctx, http.MethodGet, api.CollectionPath(ws, entity), query, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Profile operations

func (c *Client) CreateProfile(ctx context.Context, profile *models.Profile) error {
	return create(ctx, c, profile.WorkspaceID, models.EntityProfile, profile)
}

func (c *Client) GetProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) (*models.Profile, error) {
	return get[models.Profile](ctx, c, ws, models.EntityProfile, id)
}

func (c *Client) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	return update(ctx, c, profile.WorkspaceID, models.EntityProfile, profile.ID, profile)
}

func (c *Client) DeleteProfile(ctx context.Context, ws models.WorkspaceID, id models.ProfileID) error {
	return remove(ctx, c, ws, models.EntityProfile, id)
}

func (c *Client) ListProfiles(ctx context.Context, ws models.WorkspaceID) ([]models.Profile, error) {
	return listByMode[models.Profile](ctx, c, ws, models.EntityProfile, "")
}

func (c *Client) ListProfilesByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Profile, error) {
	return listByMode[models.Profile](ctx, c, ws, models.EntityProfile, mode)
}

// ProfilePoint operations

func (c *Client) CreateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	return create(ctx, c, point.WorkspaceID, models.EntityProfilePoint, point)
}

func (c *Client) GetProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) (*models.ProfilePoint, error) {
	return get[models.ProfilePoint](ctx, c, ws, models.EntityProfilePoint, id)
}

func (c *Client) UpdateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	return update(ctx, c, point.WorkspaceID, models.EntityProfilePoint, point.ID, point)
}

func (c *Client) DeleteProfilePoint(ctx context.Context, ws models.WorkspaceID, id models.ProfilePointID) error {
	return remove(ctx, c, ws, models.EntityProfilePoint, id)
}

func (c *Client) ListProfilePoints(ctx context.Context, ws models.WorkspaceID, profileID models.ProfileID) ([]models.ProfilePoint, error) {
	return list[models.ProfilePoint](ctx, c, ws, models.EntityProfilePoint, profileID)
}

// Dataset operations

func (c *Client) CreateDataset(ctx context.Context, dataset *models.Dataset) error {
	return create(ctx, c, dataset.WorkspaceID, models.EntityDataset, dataset)
}

func (c *Client) GetDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) (*models.Dataset, error) {
	return get[models.Dataset](ctx, c, ws, models.EntityDataset, id)
}

func (c *Client) UpdateDataset(ctx context.Context, dataset *models.Dataset) error {
	return update(ctx, c, dataset.WorkspaceID, models.EntityDataset, dataset.ID, dataset)
}

func (c *Client) DeleteDataset(ctx context.Context, ws models.WorkspaceID, id models.DatasetID) error {
	return remove(ctx, c, ws, models.EntityDataset, id)
}

func (c *Client) ListDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.Dataset, error) {
	return listByMode[models.Dataset](ctx, c, ws, models.EntityDataset, "")
}

func (c *Client) ListDatasetsByMode(ctx context.Context, ws models.WorkspaceID, mode models.Mode) ([]models.Dataset, error) {
	return listByMode[models.Dataset](ctx, c, ws, models.EntityDataset, mode)
}

// Text operations

func (c *Client) CreateText(ctx context.Context, text *models.Text) error {
	return create(ctx, c, text.WorkspaceID, models.EntityText, text)
}

func (c *Client) GetText(ctx context.Context, ws models.WorkspaceID, id models.TextID) (*models.Text, error) {
	return get[models.Text](ctx, c, ws, models.EntityText, id)
}

func (c *Client) UpdateText(ctx context.Context, text *models.Text) error {
	return update(ctx, c, text.WorkspaceID, models.EntityText, text.ID, text)
}

func (c *Client) DeleteText(ctx context.Context, ws models.WorkspaceID, id models.TextID) error {
	return remove(ctx, c, ws, models.EntityText, id)
}

func (c *Client) ListTexts(ctx context.Context, ws models.WorkspaceID, datasetID models.DatasetID) ([]models.Text, error) {
	return list[models.Text](ctx, c, ws, models.EntityText, datasetID)
}

// AnnotatedDataset operations

func (c *Client) CreateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	return create(ctx, c, ad.WorkspaceID, models.EntityAnnotatedDataset, ad)
}

func (c *Client) GetAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) (*models.AnnotatedDataset, error) {
	return get[models.AnnotatedDataset](ctx, c, ws, models.EntityAnnotatedDataset, id)
}

func (c *Client) UpdateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	return update(ctx, c, ad.WorkspaceID, models.EntityAnnotatedDataset, ad.ID, ad)
}

func (c *Client) DeleteAnnotatedDataset(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedDatasetID) error {
	return remove(ctx, c, ws, models.EntityAnnotatedDataset, id)
}

func (c *Client) ListAnnotatedDatasets(ctx context.Context, ws models.WorkspaceID) ([]models.AnnotatedDataset, error) {
	return list[models.AnnotatedDataset](ctx, c, ws, models.EntityAnnotatedDataset, nil)
}

// AnnotatedText operations

func (c *Client) CreateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	return create(ctx, c, at.WorkspaceID, models.EntityAnnotatedText, at)
}

func (c *Client) GetAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) (*models.AnnotatedText, error) {
	return get[models.AnnotatedText](ctx, c, ws, models.EntityAnnotatedText, id)
}

func (c *Client) UpdateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	return update(ctx, c, at.WorkspaceID, models.EntityAnnotatedText, at.ID, at)
}

func (c *Client) DeleteAnnotatedText(ctx context.Context, ws models.WorkspaceID, id models.AnnotatedTextID) error {
	return remove(ctx, c, ws, models.EntityAnnotatedText, id)
}

func (c *Client) ListAnnotatedTexts(ctx context.Context, ws models.WorkspaceID, annotatedDatasetID models.AnnotatedDatasetID) ([]models.AnnotatedText, error) {
	return list[models.AnnotatedText](ctx, c, ws, models.EntityAnnotatedText, annotatedDatasetID)
}

// DataPoint operations

func (c *Client) CreateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	return create(ctx, c, dp.WorkspaceID, models.EntityDataPoint, dp)
}

func (c *Client) GetDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) (*models.DataPoint, error) {
	return get[models.DataPoint](ctx, c, ws, models.EntityDataPoint, id)
}

func (c *Client) UpdateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	return update(ctx, c, dp.WorkspaceID, models.EntityDataPoint, dp.ID, dp)
}

func (c *Client) DeleteDataPoint(ctx context.Context, ws models.WorkspaceID, id models.DataPointID) error {
	return remove(ctx, c, ws, models.EntityDataPoint, id)
}

func (c *Client) ListDataPoints(ctx context.Context, ws models.WorkspaceID, annotatedTextID models.AnnotatedTextID) ([]models.DataPoint, error) {
	return list[models.DataPoint](ctx, c, ws, models.EntityDataPoint, annotatedTextID)
}

// ListDefaultProfiles lists the profiles of the caller's default workspace.
func (c *Client) ListDefaultProfiles(ctx context.Context) ([]models.Profile, error) {
	result := make([]models.Profile, 0)
	if err := c.call(ctx, http.MethodGet, api.DataPrefix+"/profiles", nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListDefaultDatasets lists the datasets of the caller's default workspace.
func (c *Client) ListDefaultDatasets(ctx context.Context) ([]models.Dataset, error) {
	result := make([]models.Dataset, 0)
	if err := c.call(ctx, http.MethodGet, api.DataPrefix+"/datasets", nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
