package hybrid

import (
	"context"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

// The typed entity operations validate the payload, pin the active
// workspace, overwrite the payload's workspace id with it and hand the call
// to the backend of that workspace. Backend errors are returned unchanged.

// Profile operations

func (s *Service) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		profile.WorkspaceID = ws
		return b.CreateProfile(ctx, profile)
	})
}

func (s *Service) GetProfile(ctx context.Context, id models.ProfileID) (*models.Profile, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.Profile, error) {
		return b.GetProfile(ctx, ws, id)
	})
}

func (s *Service) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		profile.WorkspaceID = ws
		return b.UpdateProfile(ctx, profile)
	})
}

func (s *Service) DeleteProfile(ctx context.Context, id models.ProfileID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteProfile(ctx, ws, id)
	})
}

func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.Profile, error) {
		return b.ListProfiles(ctx, ws)
	})
}

// ListProfilesByMode lists the profiles of one mode; the zero mode lists all.
func (s *Service) ListProfilesByMode(ctx context.Context, mode models.Mode) ([]models.Profile, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.Profile, error) {
		return b.ListProfilesByMode(ctx, ws, mode)
	})
}

// ProfilePoint operations

func (s *Service) CreateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := point.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		point.WorkspaceID = ws
		return b.CreateProfilePoint(ctx, point)
	})
}

func (s *Service) GetProfilePoint(ctx context.Context, id models.ProfilePointID) (*models.ProfilePoint, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.ProfilePoint, error) {
		return b.GetProfilePoint(ctx, ws, id)
	})
}

func (s *Service) UpdateProfilePoint(ctx context.Context, point *models.ProfilePoint) error {
	if err := point.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		point.WorkspaceID = ws
		return b.UpdateProfilePoint(ctx, point)
	})
}

func (s *Service) DeleteProfilePoint(ctx context.Context, id models.ProfilePointID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteProfilePoint(ctx, ws, id)
	})
}

func (s *Service) ListProfilePoints(ctx context.Context, profileID models.ProfileID) ([]models.ProfilePoint, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.ProfilePoint, error) {
		return b.ListProfilePoints(ctx, ws, profileID)
	})
}

// Dataset operations

func (s *Service) CreateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := dataset.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		dataset.WorkspaceID = ws
		return b.CreateDataset(ctx, dataset)
	})
}

func (s *Service) GetDataset(ctx context.Context, id models.DatasetID) (*models.Dataset, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.Dataset, error) {
		return b.GetDataset(ctx, ws, id)
	})
}

func (s *Service) UpdateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := dataset.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		dataset.WorkspaceID = ws
		return b.UpdateDataset(ctx, dataset)
	})
}

func (s *Service) DeleteDataset(ctx context.Context, id models.DatasetID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteDataset(ctx, ws, id)
	})
}

func (s *Service) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.Dataset, error) {
		return b.ListDatasets(ctx, ws)
	})
}

func (s *Service) ListDatasetsByMode(ctx context.Context, mode models.Mode) ([]models.Dataset, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.Dataset, error) {
		return b.ListDatasetsByMode(ctx, ws, mode)
	})
}

// Text operations

func (s *Service) CreateText(ctx context.Context, text *models.Text) error {
	if err := text.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		text.WorkspaceID = ws
		return b.CreateText(ctx, text)
	})
}

func (s *Service) GetText(ctx context.Context, id models.TextID) (*models.Text, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.Text, error) {
		return b.GetText(ctx, ws, id)
	})
}

func (s *Service) UpdateText(ctx context.Context, text *models.Text) error {
	if err := text.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		text.WorkspaceID = ws
		return b.UpdateText(ctx, text)
	})
}

func (s *Service) DeleteText(ctx context.Context, id models.TextID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteText(ctx, ws, id)
	})
}

func (s *Service) ListTexts(ctx context.Context, datasetID models.DatasetID) ([]models.Text, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.Text, error) {
		return b.ListTexts(ctx, ws, datasetID)
	})
}

// AnnotatedDataset operations

func (s *Service) CreateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := ad.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		ad.WorkspaceID = ws
		return b.CreateAnnotatedDataset(ctx, ad)
	})
}

func (s *Service) GetAnnotatedDataset(ctx context.Context, id models.AnnotatedDatasetID) (*models.AnnotatedDataset, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.AnnotatedDataset, error) {
		return b.GetAnnotatedDataset(ctx, ws, id)
	})
}

func (s *Service) UpdateAnnotatedDataset(ctx context.Context, ad *models.AnnotatedDataset) error {
	if err := ad.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		ad.WorkspaceID = ws
		return b.UpdateAnnotatedDataset(ctx, ad)
	})
}

func (s *Service) DeleteAnnotatedDataset(ctx context.Context, id models.AnnotatedDatasetID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteAnnotatedDataset(ctx, ws, id)
	})
}

func (s *Service) ListAnnotatedDatasets(ctx context.Context) ([]models.AnnotatedDataset, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.AnnotatedDataset, error) {
		return b.ListAnnotatedDatasets(ctx, ws)
	})
}

// AnnotatedText operations

func (s *Service) CreateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := at.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		at.WorkspaceID = ws
		return b.CreateAnnotatedText(ctx, at)
	})
}

func (s *Service) GetAnnotatedText(ctx context.Context, id models.AnnotatedTextID) (*models.AnnotatedText, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.AnnotatedText, error) {
		return b.GetAnnotatedText(ctx, ws, id)
	})
}

func (s *Service) UpdateAnnotatedText(ctx context.Context, at *models.AnnotatedText) error {
	if err := at.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		at.WorkspaceID = ws
		return b.UpdateAnnotatedText(ctx, at)
	})
}

func (s *Service) DeleteAnnotatedText(ctx context.Context, id models.AnnotatedTextID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteAnnotatedText(ctx, ws, id)
	})
}

func (s *Service) ListAnnotatedTexts(ctx context.Context, annotatedDatasetID models.AnnotatedDatasetID) ([]models.AnnotatedText, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.AnnotatedText, error) {
		return b.ListAnnotatedTexts(ctx, ws, annotatedDatasetID)
	})
}

// DataPoint operations

func (s *Service) CreateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := dp.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		dp.WorkspaceID = ws
		return b.CreateDataPoint(ctx, dp)
	})
}

func (s *Service) GetDataPoint(ctx context.Context, id models.DataPointID) (*models.DataPoint, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) (*models.DataPoint, error) {
		return b.GetDataPoint(ctx, ws, id)
	})
}

func (s *Service) UpdateDataPoint(ctx context.Context, dp *models.DataPoint) error {
	if err := dp.Validate().AsError(); err != nil {
		return err
	}
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		dp.WorkspaceID = ws
		return b.UpdateDataPoint(ctx, dp)
	})
}

func (s *Service) DeleteDataPoint(ctx context.Context, id models.DataPointID) error {
	return s.with(func(b store.EntityStore, ws models.WorkspaceID) error {
		return b.DeleteDataPoint(ctx, ws, id)
	})
}

func (s *Service) ListDataPoints(ctx context.Context, annotatedTextID models.AnnotatedTextID) ([]models.DataPoint, error) {
	return withResult(s, func(b store.EntityStore, ws models.WorkspaceID) ([]models.DataPoint, error) {
		return b.ListDataPoints(ctx, ws, annotatedTextID)
	})
}
