package hybrid_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/hybrid"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// localTree is a complete entity tree in the local workspace.
type localTree struct {
	profile *models.Profile
	drug    *models.ProfilePoint
	dose    *models.ProfilePoint
	dataset *models.Dataset
	text    *models.Text
	ad      *models.AnnotatedDataset
	at      *models.AnnotatedText
	dp      *models.DataPoint
}

const treeSize = 8

func seedLocal(t *testing.T, e *env) localTree {
	t.Helper()
	ctx := context.Background()
	require.True(t, e.svc.ActiveWorkspace().IsLocal())
	var tr localTree

	tr.profile = newProfile("Medication")
	require.NoError(t, e.svc.CreateProfile(ctx, tr.profile))
	tr.drug = &models.ProfilePoint{ProfileID: tr.profile.ID, Name: "Drug", Datatype: models.DatatypeText}
	require.NoError(t, e.svc.CreateProfilePoint(ctx, tr.drug))
	tr.dose = &models.ProfilePoint{ProfileID: tr.profile.ID, Name: "Dose", Datatype: models.DatatypeNumber}
	require.NoError(t, e.svc.CreateProfilePoint(ctx, tr.dose))

	tr.dataset = &models.Dataset{Name: "Letters", Mode: models.ModeDatapointExtraction}
	require.NoError(t, e.svc.CreateDataset(ctx, tr.dataset))
	tr.text = &models.Text{DatasetID: tr.dataset.ID, Filename: "a.txt", Text: "Aspirin 100 mg"}
	require.NoError(t, e.svc.CreateText(ctx, tr.text))

	tr.ad = &models.AnnotatedDataset{Name: "Run 1", DatasetID: tr.dataset.ID, ProfileID: tr.profile.ID, Mode: models.ModeDatapointExtraction}
	require.NoError(t, e.svc.CreateAnnotatedDataset(ctx, tr.ad))
	tr.at = &models.AnnotatedText{AnnotatedDatasetID: tr.ad.ID, TextID: tr.text.ID}
	require.NoError(t, e.svc.CreateAnnotatedText(ctx, tr.at))
	tr.dp = &models.DataPoint{AnnotatedTextID: tr.at.ID, ProfilePointID: tr.dose.ID, Name: "Dose", Value: "100", Match: &models.Span{Start: 8, End: 11}}
	require.NoError(t, e.svc.CreateDataPoint(ctx, tr.dp))
	return tr
}

func cloudIDs(t *testing.T, e *env, target models.WorkspaceID) map[string]string {
	t.Helper()
	rows, err := e.local.ListMappings(context.Background(), target)
	require.NoError(t, err)
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.LocalID] = row.CloudID
	}
	return out
}

func TestMigrateRequiresSession(t *testing.T) {
	e := newEnv(t, nil)
	seedLocal(t, e)

	_, err := e.svc.MigrateLocalDataToCloud(context.Background(), hybrid.MigrationOptions{})
	assert.ErrorIs(t, err, constants.ErrUnauthenticated)
}

func TestMigrateCopiesLocalWorkspace(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	tr := seedLocal(t, e)
	e.signUp(t)
	target := e.svc.ActiveWorkspace()

	report, err := e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{})
	require.NoError(t, err)
	assert.Equal(t, target.ID, report.Target.ID)
	assert.Equal(t, treeSize, report.Created())
	assert.Zero(t, report.Skipped())
	require.Len(t, report.Phases, len(models.MigrationOrder))
	for i, phase := range report.Phases {
		assert.Equal(t, i+1, phase.Phase)
		assert.Equal(t, models.MigrationOrder[i], phase.EntityType)
	}
	assert.Equal(t, 2, report.Phases[1].Created)
	assert.Equal(t, target.ID, e.svc.ActiveWorkspace().ID)

	ids := cloudIDs(t, e, target.ID)
	require.Len(t, ids, treeSize)

	dps, err := e.api.ListDataPoints(ctx, target.ID, models.AnnotatedTextID{})
	require.NoError(t, err)
	require.Len(t, dps, 1)
	assert.Equal(t, ids[tr.at.ID.String()], dps[0].AnnotatedTextID.String())
	assert.Equal(t, ids[tr.dose.ID.String()], dps[0].ProfilePointID.String())
	assert.Equal(t, "100", dps[0].Value)

	ads, err := e.api.ListAnnotatedDatasets(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, ids[tr.dataset.ID.String()], ads[0].DatasetID.String())
	assert.Equal(t, ids[tr.profile.ID.String()], ads[0].ProfileID.String())

	points, err := e.api.ListProfilePoints(ctx, target.ID, models.ProfileID{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drug", "Dose"}, names(points), "order survives the migration")

	// the local workspace is left untouched
	localPoints, err := e.local.ListProfilePoints(ctx, models.LocalWorkspaceID, tr.profile.ID)
	require.NoError(t, err)
	require.Len(t, localPoints, 2)
	assert.Equal(t, tr.drug.ID, localPoints[0].ID)
}

func TestMigrateTwiceCreatesNothingNew(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	seedLocal(t, e)
	e.signUp(t)

	first, err := e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{})
	require.NoError(t, err)

	second, err := e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.Target.ID, second.Target.ID)
	assert.Zero(t, second.Created())
	assert.Equal(t, treeSize, second.Skipped())

	profiles, err := e.api.ListProfiles(ctx, first.Target.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

// failingTexts fails text creates while armed.
type failingTexts struct {
	hybrid.Remote
	armed atomic.Bool
}

var errInjected = errors.New("injected failure")

func (f *failingTexts) CreateText(ctx context.Context, text *models.Text) error {
	if f.armed.Load() {
		return errInjected
	}
	return f.Remote.CreateText(ctx, text)
}

func TestMigrateResumesAfterFailure(t *testing.T) {
	var remote *failingTexts
	e := newEnv(t, func(r hybrid.Remote) hybrid.Remote {
		remote = &failingTexts{Remote: r}
		return remote
	})
	ctx := context.Background()
	tr := seedLocal(t, e)
	e.signUp(t)
	target := e.svc.ActiveWorkspace()
	require.NoError(t, e.svc.SetActiveWorkspace(ctx, models.LocalWorkspaceID))

	remote.armed.Store(true)
	report, err := e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{Target: target.ID})
	var partial *hybrid.PartialMigrationError
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, models.EntityText.Phase(), partial.Phase)
	assert.Equal(t, models.EntityText, partial.EntityType)
	assert.Equal(t, tr.text.ID.String(), partial.LocalID)
	require.NotNil(t, report)
	assert.Equal(t, 4, report.Created(), "profile, two points and the dataset made it")
	assert.True(t, e.svc.ActiveWorkspace().IsLocal(), "a failed migration does not switch")

	remote.armed.Store(false)
	// no explicit target: the earlier attempt's target is picked up again
	report, err = e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{})
	require.NoError(t, err)
	assert.Equal(t, target.ID, report.Target.ID)
	assert.Equal(t, 4, report.Skipped())
	assert.Equal(t, treeSize-4, report.Created())
	assert.Equal(t, target.ID, e.svc.ActiveWorkspace().ID)

	profiles, err := e.api.ListProfiles(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, 1, "nothing was duplicated")
}

func TestMigrateCreatesTargetWhenUserHasNone(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	seedLocal(t, e)
	e.signUp(t)
	require.NoError(t, e.svc.DeleteWorkspace(ctx, e.svc.ActiveWorkspace().ID))

	report, err := e.svc.MigrateLocalDataToCloud(ctx, hybrid.MigrationOptions{})
	require.NoError(t, err)
	assert.Equal(t, hybrid.MigratedWorkspaceName, report.Target.Name)
	assert.Equal(t, treeSize, report.Created())
	assert.Equal(t, report.Target.ID, e.svc.ActiveWorkspace().ID)
}

func TestIdempotencyKey(t *testing.T) {
	ws := models.NewWorkspaceID()
	key := hybrid.IdempotencyKey(ws, models.EntityText, "abc")
	assert.Equal(t, ws.String()+":texts:abc", key)
}
