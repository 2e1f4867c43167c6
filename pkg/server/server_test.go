package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/client"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testPassword = "correct horse battery"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// keep-alive connections of the test HTTP clients
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		// go-cache janitors of the servers under test
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	st, err := sqlstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	srv := New(st, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = st.Close()
	})
	return srv, ts
}

// signUp registers an account and returns a client holding its token.
func signUp(t *testing.T, ts *httptest.Server, email string) (*client.Client, *models.User) {
	t.Helper()
	ctx := context.Background()
	c := client.NewClient(ts.URL)
	_, err := c.Register(ctx, email, testPassword, "Test User")
	require.NoError(t, err)
	tok, err := c.Login(ctx, email, testPassword)
	require.NoError(t, err)
	c.SetAuthToken(tok.AccessToken)
	return c, tok.User
}

func defaultWorkspace(t *testing.T, c *client.Client) models.Workspace {
	t.Helper()
	workspaces, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	return workspaces[0]
}

func TestRegisterCreatesDefaultWorkspace(t *testing.T) {
	_, ts := newTestServer(t)
	c, user := signUp(t, ts, "ada@example.com")

	ws := defaultWorkspace(t, c)
	assert.Equal(t, DefaultWorkspaceName, ws.Name)
	assert.Equal(t, models.StorageCloud, ws.StorageType)
	assert.True(t, ws.IsDefault)
	assert.Equal(t, user.ID, ws.OwnerID)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)
}

func TestRegisterRejects(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	signUp(t, ts, "ada@example.com")

	c := client.NewClient(ts.URL)
	_, err := c.Register(ctx, "ada@example.com", testPassword, "")
	assert.ErrorIs(t, err, constants.ErrConflict)

	_, err = c.Register(ctx, "not-an-email", "short", "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Reasons, 2)
}

func TestLoginWrongPassword(t *testing.T) {
	_, ts := newTestServer(t)
	signUp(t, ts, "ada@example.com")

	c := client.NewClient(ts.URL)
	_, err := c.Login(context.Background(), "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, constants.ErrUnauthorized)

	_, err = c.Login(context.Background(), "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestUnauthenticatedRequests(t *testing.T) {
	_, ts := newTestServer(t)
	c := client.NewClient(ts.URL)

	_, err := c.ListWorkspaces(context.Background())
	assert.ErrorIs(t, err, constants.ErrUnauthorized)

	c.SetAuthToken("forged")
	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestLogoutAndRefresh(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")
	old := c.AuthToken()

	tok, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old, tok.AccessToken)

	stale := client.NewClient(ts.URL)
	stale.SetAuthToken(old)
	_, err = stale.Me(ctx)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)

	c.SetAuthToken(tok.AccessToken)
	require.NoError(t, c.Logout(ctx))
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")

	err := c.ChangePassword(ctx, "wrong password", "another long one")
	assert.ErrorIs(t, err, constants.ErrUnauthorized)

	require.NoError(t, c.ChangePassword(ctx, testPassword, "another long one"))

	fresh := client.NewClient(ts.URL)
	_, err = fresh.Login(ctx, "ada@example.com", testPassword)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
	_, err = fresh.Login(ctx, "ada@example.com", "another long one")
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")

	require.NoError(t, c.DeleteAccount(ctx))
	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)

	_, err = c.Login(ctx, "ada@example.com", testPassword)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestWorkspaceOwnership(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	ada, _ := signUp(t, ts, "ada@example.com")
	bob, _ := signUp(t, ts, "bob@example.com")
	adaWS := defaultWorkspace(t, ada)

	_, err := bob.GetWorkspace(ctx, adaWS.ID)
	assert.ErrorIs(t, err, constants.ErrForbidden)

	_, err = bob.ListProfiles(ctx, adaWS.ID)
	assert.ErrorIs(t, err, constants.ErrForbidden)

	err = bob.CreateProfile(ctx, &models.Profile{WorkspaceID: adaWS.ID, Name: "Stolen", Mode: models.ModeDatapointExtraction})
	assert.ErrorIs(t, err, constants.ErrForbidden)

	_, err = bob.GetWorkspace(ctx, models.NewWorkspaceID())
	assert.ErrorIs(t, err, constants.ErrNotFound)
}

func TestWorkspaceCRUD(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, user := signUp(t, ts, "ada@example.com")

	ws := &models.Workspace{Name: "Trials", StorageType: models.StorageLocal}
	require.NoError(t, c.CreateWorkspace(ctx, ws))
	assert.False(t, ws.ID.IsZero())
	assert.Equal(t, models.StorageCloud, ws.StorageType, "server workspaces are always cloud")
	assert.Equal(t, user.ID, ws.OwnerID)

	ws.Name = "Trials 2025"
	require.NoError(t, c.UpdateWorkspace(ctx, ws))
	got, err := c.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trials 2025", got.Name)

	p := &models.Profile{WorkspaceID: ws.ID, Name: "Vitals", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(ctx, p))

	require.NoError(t, c.DeleteWorkspace(ctx, ws.ID))
	_, err = c.GetWorkspace(ctx, ws.ID)
	assert.ErrorIs(t, err, constants.ErrNotFound)
}

func TestEntityLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")
	ws := defaultWorkspace(t, c).ID

	profile := &models.Profile{WorkspaceID: ws, Name: "Medication", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(ctx, profile))
	require.False(t, profile.ID.IsZero())

	first := &models.ProfilePoint{WorkspaceID: ws, ProfileID: profile.ID, Name: "Drug", Datatype: models.DatatypeText}
	require.NoError(t, c.CreateProfilePoint(ctx, first))
	second := &models.ProfilePoint{WorkspaceID: ws, ProfileID: profile.ID, Name: "Dose", Datatype: models.DatatypeNumber}
	require.NoError(t, c.CreateProfilePoint(ctx, second))

	points, err := c.ListProfilePoints(ctx, ws, profile.ID)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, second.ID, points[0].NextPointID)
	assert.Equal(t, first.ID, points[1].PreviousPointID)

	profile.Name = "Medications"
	require.NoError(t, c.UpdateProfile(ctx, profile))
	got, err := c.GetProfile(ctx, ws, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medications", got.Name)

	dataset := &models.Dataset{WorkspaceID: ws, Name: "Letters", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateDataset(ctx, dataset))
	text := &models.Text{WorkspaceID: ws, DatasetID: dataset.ID, Filename: "a.txt", Text: "Aspirin 100 mg"}
	require.NoError(t, c.CreateText(ctx, text))

	require.NoError(t, c.DeleteProfile(ctx, ws, profile.ID))
	_, err = c.GetProfilePoint(ctx, ws, first.ID)
	assert.ErrorIs(t, err, constants.ErrNotFound, "points are deleted with their profile")

	texts, err := c.ListTexts(ctx, ws, dataset.ID)
	require.NoError(t, err)
	assert.Len(t, texts, 1)
}

func TestCreateValidation(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")
	ws := defaultWorkspace(t, c).ID

	err := c.CreateProfile(ctx, &models.Profile{WorkspaceID: ws, Mode: models.ModeDatapointExtraction})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	err = c.CreateText(ctx, &models.Text{WorkspaceID: ws, DatasetID: models.NewDatasetID(), Text: "orphan"})
	assert.ErrorIs(t, err, constants.ErrValidation, "integrity failures travel as 422")
}

func TestParentFilterRejectsMalformedID(t *testing.T) {
	_, ts := newTestServer(t)
	c, _ := signUp(t, ts, "ada@example.com")
	ws := defaultWorkspace(t, c).ID

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/data/workspaces/"+ws.String()+"/texts?dataset_id=nope", nil)
	require.NoError(t, err)
	req.Header.Set(constants.AuthorizationHeader, constants.BearerPrefix+c.AuthToken())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDefaultWorkspaceAlias(t *testing.T) {
	_, ts := newTestServer(t)
	c, _ := signUp(t, ts, "ada@example.com")

	body := strings.NewReader(`{"name":"Vitals","mode":"datapoint_extraction"}`)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/data/profiles", body)
	require.NoError(t, err)
	req.Header.Set(constants.AuthorizationHeader, constants.BearerPrefix+c.AuthToken())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	profiles, err := c.ListProfiles(context.Background(), defaultWorkspace(t, c).ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Vitals", profiles[0].Name)
}

func TestIdempotentCreateReplays(t *testing.T) {
	_, ts := newTestServer(t)
	c, _ := signUp(t, ts, "ada@example.com")
	ws := defaultWorkspace(t, c).ID
	ctx := client.WithIdempotencyKey(context.Background(), "migration:profiles:1")

	first := &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(ctx, first))
	again := &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(ctx, again))
	assert.Equal(t, first.ID, again.ID)

	other := &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(client.WithIdempotencyKey(context.Background(), "migration:profiles:2"), other))
	assert.NotEqual(t, first.ID, other.ID)

	profiles, err := c.ListProfiles(context.Background(), ws)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestIdempotencyKeysAreScopedToUser(t *testing.T) {
	_, ts := newTestServer(t)
	ada, _ := signUp(t, ts, "ada@example.com")
	bob, _ := signUp(t, ts, "bob@example.com")
	ctx := client.WithIdempotencyKey(context.Background(), "same-key")

	a := &models.Workspace{Name: "A"}
	require.NoError(t, ada.CreateWorkspace(ctx, a))
	b := &models.Workspace{Name: "B"}
	require.NoError(t, bob.CreateWorkspace(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "B", b.Name)
}

func TestReadOnlyMode(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx := context.Background()
	c, _ := signUp(t, ts, "ada@example.com")
	ws := defaultWorkspace(t, c).ID

	srv.SetReadOnly(true)
	err := c.CreateProfile(ctx, &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	_, err = c.ListProfiles(ctx, ws)
	assert.NoError(t, err, "reads keep working")

	srv.SetReadOnly(false)
	assert.NoError(t, c.CreateProfile(ctx, &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction}))
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, WithReadOnly(true))

	health, err := client.NewClient(ts.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["read_only"])

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `raki_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, string(body), "raki_event_connections 0")
}

func TestEventsDeliverOwnChanges(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx := context.Background()
	ada, adaUser := signUp(t, ts, "ada@example.com")
	bob, _ := signUp(t, ts, "bob@example.com")
	ws := defaultWorkspace(t, ada).ID

	stream, err := ada.Events(ctx)
	require.NoError(t, err)
	defer stream.Close()
	require.Eventually(t, func() bool { return srv.hub.connections(adaUser.ID) == 1 }, time.Second, 10*time.Millisecond)

	// bob's writes must not reach ada
	require.NoError(t, bob.CreateWorkspace(ctx, &models.Workspace{Name: "Bob's"}))

	profile := &models.Profile{WorkspaceID: ws, Name: "Vitals", Mode: models.ModeDatapointExtraction}
	require.NoError(t, ada.CreateProfile(ctx, profile))

	select {
	case change := <-stream.Notifications():
		assert.Equal(t, models.EntityProfile, change.Collection)
		assert.Equal(t, models.ChangeOperationCreate, change.Op)
		assert.Equal(t, profile.ID.String(), change.ID)
		assert.Equal(t, ws, change.WorkspaceID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, stream.Close())
	assert.NoError(t, stream.Err())
	assert.Eventually(t, func() bool { return srv.hub.connections(adaUser.ID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestEventsRequireToken(t *testing.T) {
	_, ts := newTestServer(t)
	c := client.NewClient(ts.URL)
	c.SetAuthToken("forged")

	_, err := c.Events(context.Background())
	assert.True(t, errors.Is(err, constants.ErrUnauthorized), "got %v", err)
}
