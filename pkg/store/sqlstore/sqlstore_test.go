package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(memoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	_, err = s.EnsureLocalWorkspace(context.Background())
	require.NoError(t, err)
	return s
}

// fixture is a complete entity tree in one workspace.
type fixture struct {
	ws      models.WorkspaceID
	profile *models.Profile
	point   *models.ProfilePoint
	dataset *models.Dataset
	text    *models.Text
	ad      *models.AnnotatedDataset
	at      *models.AnnotatedText
	dp      *models.DataPoint
}

func seed(t *testing.T, s *Store, ws models.WorkspaceID) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{ws: ws}

	f.profile = &models.Profile{WorkspaceID: ws, Name: "Medication", Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateProfile(ctx, f.profile))

	f.point = &models.ProfilePoint{ProfileID: f.profile.ID, Name: "Dose", Datatype: models.DatatypeNumber}
	require.NoError(t, s.CreateProfilePoint(ctx, f.point))

	f.dataset = &models.Dataset{WorkspaceID: ws, Name: "Discharge letters", Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateDataset(ctx, f.dataset))

	f.text = &models.Text{DatasetID: f.dataset.ID, Filename: "letter.txt", Text: "Aspirin 100 mg"}
	require.NoError(t, s.CreateText(ctx, f.text))

	f.ad = &models.AnnotatedDataset{Name: "Run 1", DatasetID: f.dataset.ID, ProfileID: f.profile.ID, Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateAnnotatedDataset(ctx, f.ad))

	f.at = &models.AnnotatedText{AnnotatedDatasetID: f.ad.ID, TextID: f.text.ID}
	require.NoError(t, s.CreateAnnotatedText(ctx, f.at))

	f.dp = &models.DataPoint{AnnotatedTextID: f.at.ID, ProfilePointID: f.point.ID, Name: "Dose", Value: "100", Match: &models.Span{Start: 8, End: 11}}
	require.NoError(t, s.CreateDataPoint(ctx, f.dp))
	return f
}

func cloudWorkspace(t *testing.T, s *Store, name string) models.WorkspaceID {
	t.Helper()
	ws := &models.Workspace{Name: name, StorageType: models.StorageCloud}
	require.NoError(t, s.CreateWorkspace(context.Background(), ws))
	return ws.ID
}

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	require.NoError(t, s.Migrate(ctx), "migrate must be repeatable")

	require.NoError(t, s.db.Model(&models.SchemaVersion{}).Where("id = ?", 1).Update("version", CurrentSchemaVersion+1).Error)
	assert.Error(t, s.Migrate(ctx))
}

func TestEnsureLocalWorkspace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ws, err := s.EnsureLocalWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.LocalWorkspaceID, ws.ID)
	assert.True(t, ws.IsLocal())
	assert.Equal(t, models.LocalWorkspaceName, ws.Name)

	local, err := s.ListWorkspaces(ctx, models.UserID{})
	require.NoError(t, err)
	assert.Len(t, local, 1)

	assert.ErrorIs(t, s.DeleteWorkspace(ctx, models.LocalWorkspaceID), constants.ErrIntegrity)
}

func TestCreateDerivesWorkspaceFromParent(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s, models.LocalWorkspaceID)

	for _, ws := range []models.WorkspaceID{f.point.WorkspaceID, f.text.WorkspaceID, f.ad.WorkspaceID, f.at.WorkspaceID, f.dp.WorkspaceID} {
		assert.Equal(t, models.LocalWorkspaceID, ws)
	}
	assert.False(t, f.dp.ID.IsZero())
	assert.False(t, f.dp.CreatedAt.IsZero())

	got, err := s.GetDataPoint(context.Background(), models.LocalWorkspaceID, f.dp.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.Span{Start: 8, End: 11}, got.Match)
	assert.Equal(t, f.point.ID, got.ProfilePointID)
}

func TestWorkspaceIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)
	other := cloudWorkspace(t, s, "Other")

	_, err := s.GetProfile(ctx, other, f.profile.ID)
	assert.ErrorIs(t, err, constants.ErrNotFound)
	assert.True(t, store.IsNotFound(s.DeleteDataset(ctx, other, f.dataset.ID)))

	profiles, err := s.ListProfiles(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, profiles)

	// the rows are untouched
	_, err = s.GetDataset(ctx, models.LocalWorkspaceID, f.dataset.ID)
	assert.NoError(t, err)
}

func TestCrossWorkspaceReferencesAreRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)
	other := cloudWorkspace(t, s, "Other")

	otherDataset := &models.Dataset{WorkspaceID: other, Name: "Foreign", Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateDataset(ctx, otherDataset))

	ad := &models.AnnotatedDataset{Name: "Mixed", DatasetID: otherDataset.ID, ProfileID: f.profile.ID, Mode: models.ModeDatapointExtraction}
	err := s.CreateAnnotatedDataset(ctx, ad)
	var integrity *store.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, models.EntityAnnotatedDataset, integrity.Entity)

	text := &models.Text{WorkspaceID: other, DatasetID: f.dataset.ID, Filename: "x.txt"}
	assert.ErrorIs(t, s.CreateText(ctx, text), constants.ErrIntegrity)

	missing := &models.Text{DatasetID: models.NewDatasetID(), Filename: "x.txt"}
	assert.ErrorIs(t, s.CreateText(ctx, missing), constants.ErrIntegrity)

	orphan := &models.Profile{WorkspaceID: models.NewWorkspaceID(), Name: "Orphan", Mode: models.ModeTextSegmentation}
	assert.ErrorIs(t, s.CreateProfile(ctx, orphan), constants.ErrIntegrity)

	texts, err := s.ListTexts(ctx, other, models.DatasetID{})
	require.NoError(t, err)
	assert.Empty(t, texts, "a rejected create must not leave a row behind")
}

func TestValidationAndMatchBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	err := s.CreateProfile(ctx, &models.Profile{WorkspaceID: models.LocalWorkspaceID, Name: "  ", Mode: models.ModeDatapointExtraction})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, constants.ErrValidation)

	// "Aspirin 100 mg" has 14 characters
	dp := &models.DataPoint{AnnotatedTextID: f.at.ID, Name: "Dose", Match: &models.Span{Start: 8, End: 15}}
	assert.ErrorIs(t, s.CreateDataPoint(ctx, dp), constants.ErrValidation)

	dp.Match = &models.Span{Start: 8, End: 14}
	assert.NoError(t, s.CreateDataPoint(ctx, dp))
}

func TestTextEditKeepsSpansInBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	tail := &models.DataPoint{AnnotatedTextID: f.at.ID, Name: "Unit", Match: &models.Span{Start: 8, End: 14}}
	require.NoError(t, s.CreateDataPoint(ctx, tail))

	f.text.Text = "Asp"
	err := s.UpdateText(ctx, f.text)
	var integrity *store.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, models.EntityText, integrity.Entity)

	got, err := s.GetText(ctx, models.LocalWorkspaceID, f.text.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin 100 mg", got.Text, "a rejected edit must not be stored")

	// spans up to 14 still fit
	f.text.Text = "Aspirin 100 mcg"
	require.NoError(t, s.UpdateText(ctx, f.text))

	require.NoError(t, s.DeleteDataPoint(ctx, models.LocalWorkspaceID, tail.ID))
	f.text.Text = "Aspirin 1 g"
	require.NoError(t, s.UpdateText(ctx, f.text), "the remaining match [8,11) fits 11 characters")
}

func TestAnnotatedTextIsUniquePerText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	twin := &models.AnnotatedText{AnnotatedDatasetID: f.ad.ID, TextID: f.text.ID}
	assert.ErrorIs(t, s.CreateAnnotatedText(ctx, twin), constants.ErrIntegrity)

	other := &models.Dataset{WorkspaceID: models.LocalWorkspaceID, Name: "Reports", Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateDataset(ctx, other))
	stray := &models.Text{DatasetID: other.ID, Filename: "report.txt", Text: "Ibuprofen"}
	require.NoError(t, s.CreateText(ctx, stray))

	foreign := &models.AnnotatedText{AnnotatedDatasetID: f.ad.ID, TextID: stray.ID}
	assert.ErrorIs(t, s.CreateAnnotatedText(ctx, foreign), constants.ErrIntegrity, "the text must come from the annotated dataset's dataset")

	second := &models.AnnotatedDataset{Name: "Run 2", DatasetID: f.dataset.ID, ProfileID: f.profile.ID, Mode: models.ModeDatapointExtraction}
	require.NoError(t, s.CreateAnnotatedDataset(ctx, second))
	require.NoError(t, s.CreateAnnotatedText(ctx, &models.AnnotatedText{AnnotatedDatasetID: second.ID, TextID: f.text.ID}))

	ats, err := s.ListAnnotatedTexts(ctx, models.LocalWorkspaceID, f.ad.ID)
	require.NoError(t, err)
	assert.Len(t, ats, 1)
}

func TestListByMode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	sections := &models.Profile{WorkspaceID: models.LocalWorkspaceID, Name: "Sections", Mode: models.ModeTextSegmentation}
	require.NoError(t, s.CreateProfile(ctx, sections))
	reports := &models.Dataset{WorkspaceID: models.LocalWorkspaceID, Name: "Reports", Mode: models.ModeTextSegmentation}
	require.NoError(t, s.CreateDataset(ctx, reports))

	profiles, err := s.ListProfilesByMode(ctx, models.LocalWorkspaceID, models.ModeDatapointExtraction)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, f.profile.ID, profiles[0].ID)

	datasets, err := s.ListDatasetsByMode(ctx, models.LocalWorkspaceID, models.ModeTextSegmentation)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, reports.ID, datasets[0].ID)

	all, err := s.ListDatasets(ctx, models.LocalWorkspaceID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	f.profile.Name = "Medication v2"
	f.profile.Example = &models.ProfileExample{Text: "Ibuprofen 400 mg", Output: map[string]any{"Dose": "400"}}
	require.NoError(t, s.UpdateProfile(ctx, f.profile))

	got, err := s.GetProfile(ctx, models.LocalWorkspaceID, f.profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medication v2", got.Name)
	require.NotNil(t, got.Example)
	assert.Equal(t, "Ibuprofen 400 mg", got.Example.Text)
	assert.True(t, got.CreatedAt.Equal(f.profile.CreatedAt))

	f.at.Verified = true
	f.at.AIFaulty = true
	require.NoError(t, s.UpdateAnnotatedText(ctx, f.at))
	at, err := s.GetAnnotatedText(ctx, models.LocalWorkspaceID, f.at.ID)
	require.NoError(t, err)
	assert.True(t, at.Verified)
	assert.True(t, at.AIFaulty)

	missing := &models.Dataset{ID: models.NewDatasetID(), WorkspaceID: models.LocalWorkspaceID, Name: "x", Mode: models.ModeDatapointExtraction}
	assert.ErrorIs(t, s.UpdateDataset(ctx, missing), constants.ErrNotFound)
}

func TestProfilePointsAreLinkedInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, models.LocalWorkspaceID)

	second := &models.ProfilePoint{ProfileID: f.profile.ID, Name: "Frequency", Datatype: models.DatatypeText}
	require.NoError(t, s.CreateProfilePoint(ctx, second))
	third := &models.ProfilePoint{ProfileID: f.profile.ID, Name: "Route", Datatype: models.DatatypeValueset, Valueset: []string{"oral", "iv"}}
	require.NoError(t, s.CreateProfilePoint(ctx, third))

	points, err := s.ListProfilePoints(ctx, models.LocalWorkspaceID, f.profile.ID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []int{1000, 2000, 3000}, []int{points[0].Order, points[1].Order, points[2].Order})
	assert.True(t, points[0].PreviousPointID.IsZero())
	assert.Equal(t, second.ID, points[0].NextPointID)
	assert.Equal(t, f.point.ID, points[1].PreviousPointID)
	assert.Equal(t, third.ID, points[1].NextPointID)
	assert.Equal(t, second.ID, third.PreviousPointID, "links are written back to the created value")

	// move the last point to the front
	third.Order = 500
	require.NoError(t, s.UpdateProfilePoint(ctx, third))
	points, err = s.ListProfilePoints(ctx, models.LocalWorkspaceID, f.profile.ID)
	require.NoError(t, err)
	assert.Equal(t, third.ID, points[0].ID)
	assert.Equal(t, f.point.ID, points[0].NextPointID)

	require.NoError(t, s.DeleteProfilePoint(ctx, models.LocalWorkspaceID, f.point.ID))
	points, err = s.ListProfilePoints(ctx, models.LocalWorkspaceID, f.profile.ID)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, second.ID, points[0].NextPointID)
	assert.Equal(t, third.ID, points[1].PreviousPointID)

	dp, err := s.GetDataPoint(ctx, models.LocalWorkspaceID, f.dp.ID)
	require.NoError(t, err)
	assert.True(t, dp.ProfilePointID.IsZero(), "data points survive their profile point")
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()

	count := func(t *testing.T, s *Store, model any) int64 {
		var n int64
		require.NoError(t, s.db.Model(model).Count(&n).Error)
		return n
	}

	t.Run("profile", func(t *testing.T) {
		s := newTestStore(t)
		f := seed(t, s, models.LocalWorkspaceID)
		require.NoError(t, s.DeleteProfile(ctx, f.ws, f.profile.ID))

		assert.Zero(t, count(t, s, &models.ProfilePoint{}))
		assert.Zero(t, count(t, s, &models.AnnotatedDataset{}))
		assert.Zero(t, count(t, s, &models.AnnotatedText{}))
		assert.Zero(t, count(t, s, &models.DataPoint{}))
		assert.EqualValues(t, 1, count(t, s, &models.Text{}))
	})

	t.Run("dataset", func(t *testing.T) {
		s := newTestStore(t)
		f := seed(t, s, models.LocalWorkspaceID)
		require.NoError(t, s.DeleteDataset(ctx, f.ws, f.dataset.ID))

		assert.Zero(t, count(t, s, &models.Text{}))
		assert.Zero(t, count(t, s, &models.AnnotatedDataset{}))
		assert.Zero(t, count(t, s, &models.DataPoint{}))
		assert.EqualValues(t, 1, count(t, s, &models.ProfilePoint{}))
	})

	t.Run("text", func(t *testing.T) {
		s := newTestStore(t)
		f := seed(t, s, models.LocalWorkspaceID)
		require.NoError(t, s.DeleteText(ctx, f.ws, f.text.ID))

		assert.Zero(t, count(t, s, &models.AnnotatedText{}))
		assert.Zero(t, count(t, s, &models.DataPoint{}))
		assert.EqualValues(t, 1, count(t, s, &models.AnnotatedDataset{}))
	})

	t.Run("workspace", func(t *testing.T) {
		s := newTestStore(t)
		ws := cloudWorkspace(t, s, "Cloud")
		seed(t, s, ws)
		local := seed(t, s, models.LocalWorkspaceID)
		require.NoError(t, s.SaveMapping(ctx, &models.MigrationMapping{TargetWorkspaceID: ws, EntityType: models.EntityProfile, LocalID: local.profile.ID.String(), CloudID: "x"}))

		require.NoError(t, s.DeleteWorkspace(ctx, ws))
		assert.EqualValues(t, 1, count(t, s, &models.DataPoint{}))
		assert.EqualValues(t, 1, count(t, s, &models.Profile{}))
		assert.Zero(t, count(t, s, &models.MigrationMapping{}))
		assert.ErrorIs(t, s.DeleteWorkspace(ctx, ws), constants.ErrNotFound)
	})
}

func TestChangesArePublishedAfterCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []store.Change
	record := func(c store.Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	}
	for _, e := range models.MigrationOrder {
		s.Changes().Subscribe(e, record)
	}

	f := seed(t, s, models.LocalWorkspaceID)
	assert.Len(t, got, len(models.MigrationOrder))
	assert.Equal(t, store.Change{Collection: models.EntityProfile, Op: models.ChangeOperationCreate, ID: f.profile.ID.String(), WorkspaceID: models.LocalWorkspaceID}, got[0])

	got = nil
	require.NoError(t, s.DeleteProfile(ctx, f.ws, f.profile.ID))
	collections := map[models.EntityType]bool{}
	for _, c := range got {
		collections[c.Collection] = true
		assert.Equal(t, models.ChangeOperationDelete, c.Op)
	}
	assert.True(t, collections[models.EntityProfile])
	assert.True(t, collections[models.EntityProfilePoint])
	assert.True(t, collections[models.EntityAnnotatedDataset])
	assert.True(t, collections[models.EntityAnnotatedText])
	assert.True(t, collections[models.EntityDataPoint])

	got = nil
	err := s.CreateText(ctx, &models.Text{DatasetID: models.NewDatasetID(), Filename: "x.txt"})
	require.Error(t, err)
	assert.Empty(t, got, "failed writes publish nothing")
}

func TestUsersAndOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: " Ada@Example.com ", FullName: "Ada", PasswordHash: "hash", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.Equal(t, "ada@example.com", user.Email)

	dup := &models.User{Email: "ada@example.com", PasswordHash: "hash"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), constants.ErrConflict)

	byEmail, err := s.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	ws := &models.Workspace{Name: "My Cloud Workspace", StorageType: models.StorageCloud, OwnerID: user.ID, IsDefault: true}
	require.NoError(t, s.CreateWorkspace(ctx, ws))
	seed(t, s, ws.ID)

	owned, err := s.ListWorkspaces(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.True(t, owned[0].IsDefault)

	ws.Name = "Renamed"
	ws.StorageType = models.StorageLocal
	require.NoError(t, s.UpdateWorkspace(ctx, ws))
	assert.Equal(t, models.StorageCloud, ws.StorageType, "storage type is fixed")
	assert.Equal(t, "Renamed", ws.Name)

	require.NoError(t, s.DeleteUser(ctx, user.ID))
	_, err = s.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, constants.ErrNotFound)
	_, err = s.GetWorkspace(ctx, ws.ID)
	assert.ErrorIs(t, err, constants.ErrNotFound)

	assert.ErrorIs(t, s.CreateWorkspace(ctx, &models.Workspace{Name: "x", StorageType: models.StorageCloud, OwnerID: models.NewUserID()}), constants.ErrIntegrity)
}

func TestMappings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, second := models.NewWorkspaceID(), models.NewWorkspaceID()

	_, err := s.GetMapping(ctx, first, models.EntityProfile, "p1")
	assert.ErrorIs(t, err, constants.ErrNotFound)

	require.NoError(t, s.SaveMapping(ctx, &models.MigrationMapping{TargetWorkspaceID: first, EntityType: models.EntityProfile, LocalID: "p1", CloudID: "c1"}))
	require.NoError(t, s.SaveMapping(ctx, &models.MigrationMapping{TargetWorkspaceID: first, EntityType: models.EntityDataset, LocalID: "d1", CloudID: "c2"}))
	require.NoError(t, s.SaveMapping(ctx, &models.MigrationMapping{TargetWorkspaceID: second, EntityType: models.EntityProfile, LocalID: "p1", CloudID: "c3"}))

	m, err := s.GetMapping(ctx, first, models.EntityProfile, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c1", m.CloudID)
	assert.Equal(t, 1, m.Phase)

	// saving again replaces the cloud id instead of duplicating the row
	require.NoError(t, s.SaveMapping(ctx, &models.MigrationMapping{TargetWorkspaceID: first, EntityType: models.EntityProfile, LocalID: "p1", CloudID: "c9"}))
	mappings, err := s.ListMappings(ctx, first)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "c9", mappings[0].CloudID)
	assert.Equal(t, models.EntityDataset, mappings[1].EntityType)

	targets, err := s.MappingTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestWorkspaceUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := models.NewUserID()
	a, b := models.NewWorkspaceID(), models.NewWorkspaceID()

	require.NoError(t, s.TouchWorkspace(ctx, a, user))
	require.NoError(t, s.TouchWorkspace(ctx, b, user))
	require.NoError(t, s.TouchWorkspace(ctx, a, user))

	recent, err := s.RecentWorkspaces(ctx, user)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, a, recent[0].WorkspaceID)

	require.NoError(t, s.ForgetWorkspaces(ctx, user))
	recent, err = s.RecentWorkspaces(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestTranslate(t *testing.T) {
	full := translate(errors.New("database or disk is full"))
	var sf *store.StorageFullError
	require.ErrorAs(t, full, &sf)
	assert.ErrorIs(t, full, constants.ErrStorageFull)

	assert.ErrorIs(t, translate(errors.New("ERROR: could not extend file (SQLSTATE 53100)")), constants.ErrStorageFull)

	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain))
	assert.Nil(t, translate(nil))
}
