package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://raki.test"

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	c := NewClient(testBaseURL+"/", WithHTTPClient(&http.Client{Transport: transport}))
	return c, transport
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	c, _ := newMockClient(t)
	assert.Equal(t, testBaseURL, c.BaseURL())
	assert.False(t, c.HasToken())

	c.SetAuthToken("abc")
	assert.True(t, c.HasToken())
	assert.Equal(t, "abc", c.AuthToken())
}

func TestStatusMapping(t *testing.T) {
	ws := models.NewWorkspaceID()
	id := models.NewProfileID()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"detail":"token expired"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, constants.ErrUnauthorized)
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "token expired", apiErr.Message)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, constants.ErrForbidden)
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"detail":"profile not found"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, constants.ErrNotFound)
				assert.True(t, store.IsNotFound(err))
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, constants.ErrConflict)
			},
		},
		{
			name:   "validation",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":"invalid profile","reasons":["name is required"]}`,
			check: func(t *testing.T, err error) {
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, []string{"name is required"}, verr.Reasons)
				assert.ErrorIs(t, err, constants.ErrValidation)
			},
		},
		{
			name:   "storage full",
			status: http.StatusInsufficientStorage,
			body:   `{"detail":"quota exceeded"}`,
			check: func(t *testing.T, err error) {
				var full *store.StorageFullError
				require.ErrorAs(t, err, &full)
				assert.ErrorIs(t, err, constants.ErrStorageFull)
			},
		},
		{
			name:   "other status",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
				assert.Equal(t, "boom", apiErr.Message)
				assert.NoError(t, apiErr.Unwrap())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport := newMockClient(t)
			transport.RegisterResponder(http.MethodGet, testBaseURL+api.EntityPath(ws, models.EntityProfile, id),
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.GetProfile(context.Background(), ws, id)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkError(t *testing.T) {
	c, transport := newMockClient(t)
	cause := errors.New("connection refused")
	transport.RegisterResponder(http.MethodGet, testBaseURL+api.WorkspacesPath(), httpmock.NewErrorResponder(cause))

	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrNetwork)
	assert.ErrorIs(t, err, cause)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, netErr.Op, api.WorkspacesPath())
}

func TestBearerHeader(t *testing.T) {
	c, transport := newMockClient(t)
	var seen []string
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/auth/me",
		func(req *http.Request) (*http.Response, error) {
			seen = append(seen, req.Header.Get(constants.AuthorizationHeader))
			return httpmock.NewJsonResponse(http.StatusOK, models.User{Email: "ann@example.com"})
		})

	_, err := c.Me(context.Background())
	require.NoError(t, err)

	c.SetAuthToken("secret")
	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)

	assert.Equal(t, []string{"", "Bearer secret"}, seen)
}

func TestLoginDoesNotInstallToken(t *testing.T) {
	c, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/auth/login",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, api.TokenResponse{AccessToken: "tok", TokenType: api.TokenTypeBearer}))

	resp, err := c.Login(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.False(t, c.HasToken())
}

func TestCreateFillsServerValues(t *testing.T) {
	c, transport := newMockClient(t)
	ws := models.NewWorkspaceID()
	assigned := models.NewProfileID()

	transport.RegisterResponder(http.MethodPost, testBaseURL+api.CollectionPath(ws, models.EntityProfile),
		func(req *http.Request) (*http.Response, error) {
			var in models.Profile
			if err := decodeJSON(req, &in); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			in.ID = assigned
			return httpmock.NewJsonResponse(http.StatusCreated, in)
		})

	p := &models.Profile{WorkspaceID: ws, Name: "Meds", Mode: models.ModeDatapointExtraction}
	require.NoError(t, c.CreateProfile(context.Background(), p))
	assert.Equal(t, assigned, p.ID)
	assert.Equal(t, "Meds", p.Name)
}

func TestIdempotencyKeyOnlyOnPost(t *testing.T) {
	c, transport := newMockClient(t)
	ws := models.NewWorkspaceID()
	var keys []string
	record := func(status int, body any) httpmock.Responder {
		return func(req *http.Request) (*http.Response, error) {
			keys = append(keys, req.Header.Get(constants.IdempotencyHeader))
			return httpmock.NewJsonResponse(status, body)
		}
	}
	transport.RegisterResponder(http.MethodPost, testBaseURL+api.CollectionPath(ws, models.EntityDataset),
		record(http.StatusCreated, models.Dataset{ID: models.NewDatasetID(), WorkspaceID: ws, Name: "d", Mode: models.ModeDatapointExtraction}))
	transport.RegisterResponder(http.MethodGet, testBaseURL+api.CollectionPath(ws, models.EntityDataset),
		record(http.StatusOK, []models.Dataset{}))

	ctx := WithIdempotencyKey(context.Background(), "ws:datasets:local-1")
	require.NoError(t, c.CreateDataset(ctx, &models.Dataset{WorkspaceID: ws, Name: "d", Mode: models.ModeDatapointExtraction}))
	_, err := c.ListDatasets(ctx, ws)
	require.NoError(t, err)
	require.NoError(t, c.CreateDataset(context.Background(), &models.Dataset{WorkspaceID: ws, Name: "d", Mode: models.ModeDatapointExtraction}))

	assert.Equal(t, []string{"ws:datasets:local-1", "", ""}, keys)
}

func TestListParentFilter(t *testing.T) {
	c, transport := newMockClient(t)
	ws := models.NewWorkspaceID()
	profile := models.NewProfileID()
	path := testBaseURL + api.CollectionPath(ws, models.EntityProfilePoint)

	transport.RegisterResponderWithQuery(http.MethodGet, path, map[string]string{"profile_id": profile.String()},
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []models.ProfilePoint{{Name: "dose", ProfileID: profile}}))
	transport.RegisterResponder(http.MethodGet, path,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []models.ProfilePoint{}))

	points, err := c.ListProfilePoints(context.Background(), ws, profile)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "dose", points[0].Name)

	all, err := c.ListProfilePoints(context.Background(), ws, models.ProfileID{})
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestListModeFilter(t *testing.T) {
	c, transport := newMockClient(t)
	ws := models.NewWorkspaceID()
	path := testBaseURL + api.CollectionPath(ws, models.EntityProfile)

	transport.RegisterResponderWithQuery(http.MethodGet, path, map[string]string{api.ModeFilter: string(models.ModeTextSegmentation)},
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []models.Profile{{Name: "Sections", Mode: models.ModeTextSegmentation}}))
	transport.RegisterResponder(http.MethodGet, path,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []models.Profile{}))

	profiles, err := c.ListProfilesByMode(context.Background(), ws, models.ModeTextSegmentation)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Sections", profiles[0].Name)

	profiles, err = c.ListProfiles(context.Background(), ws)
	require.NoError(t, err)
	assert.Empty(t, profiles, "no mode sends no filter")
}

func TestDeleteNoContent(t *testing.T) {
	c, transport := newMockClient(t)
	ws := models.NewWorkspaceID()
	id := models.NewTextID()
	transport.RegisterResponder(http.MethodDelete, testBaseURL+api.EntityPath(ws, models.EntityText, id),
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	require.NoError(t, c.DeleteText(context.Background(), ws, id))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestEventsRequiresToken(t *testing.T) {
	c, transport := newMockClient(t)
	_, err := c.Events(context.Background())
	assert.ErrorIs(t, err, constants.ErrUnauthenticated)
	assert.Zero(t, transport.GetTotalCallCount())
}

func decodeJSON(req *http.Request, v any) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}
