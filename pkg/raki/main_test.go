package raki

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/server"
	"github.com/ItIsGreg/Raki-sub002/pkg/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
	"go.uber.org/goleak"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse battery"
)

func TestMain(m *testing.M) {
	gokeyring.MockInit()
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

func newCloud(t *testing.T) string {
	t.Helper()
	st, err := sqlstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	srv := server.New(st)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = st.Close()
	})
	return ts.URL
}

// device runs commands against one data directory, like repeated
// invocations of the binary on the same machine.
type device struct {
	t    *testing.T
	args []string
}

func newDevice(t *testing.T, serverURL string) *device {
	dir := t.TempDir()
	return &device{t: t, args: []string{
		noEnvFile,
		"-server", serverURL,
		"-data-dir", dir,
		"-password", testPassword,
		"-migration-rate", "0",
	}}
}

func (d *device) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), append(append([]string{}, d.args...), args...), &out, io.Discard)
	return out.String(), err
}

func (d *device) must(args ...string) string {
	d.t.Helper()
	out, err := d.run(args...)
	require.NoError(d.t, err, out)
	return out
}

func (d *device) localDB() string {
	return filepath.Join(d.args[4], "raki.db")
}

func seedLocal(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	st, err := sqlstore.OpenSQLite(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))
	_, err = st.EnsureLocalWorkspace(ctx)
	require.NoError(t, err)

	profile := &models.Profile{WorkspaceID: models.LocalWorkspaceID, Name: "Medication", Mode: models.ModeDatapointExtraction}
	require.NoError(t, st.CreateProfile(ctx, profile))
	require.NoError(t, st.CreateProfilePoint(ctx, &models.ProfilePoint{ProfileID: profile.ID, Name: "Drug", Datatype: models.DatatypeText}))
	dataset := &models.Dataset{WorkspaceID: models.LocalWorkspaceID, Name: "Letters", Mode: models.ModeDatapointExtraction}
	require.NoError(t, st.CreateDataset(ctx, dataset))
	require.NoError(t, st.CreateText(ctx, &models.Text{DatasetID: dataset.ID, Filename: "a.txt", Text: "Aspirin"}))
}

func TestCommandsEndToEnd(t *testing.T) {
	d := newDevice(t, newCloud(t))
	seedLocal(t, d.localDB())

	out := d.must("status")
	assert.Contains(t, out, "session:   signed out")
	assert.Contains(t, out, "workspace: "+models.LocalWorkspaceName+" (local,")

	out = d.must("register", testEmail)
	assert.Contains(t, out, "registered "+testEmail)
	assert.Contains(t, out, server.DefaultWorkspaceName+" (cloud,")

	out = d.must("workspaces")
	assert.Contains(t, out, models.LocalWorkspaceName)
	assert.Contains(t, out, server.DefaultWorkspaceName)

	d.must("use", "local")
	out = d.must("migrate")
	assert.Contains(t, out, "migrated into")
	assert.Contains(t, out, "profile_points")

	// the session and the migrated workspace survive a restart
	out = d.must("status")
	assert.Contains(t, out, "session:   "+testEmail)
	assert.Contains(t, out, server.DefaultWorkspaceName+" (cloud,")

	backup := filepath.Join(t.TempDir(), "backup.cbor")
	out = d.must("export", backup)
	assert.Contains(t, out, "exported workspace")

	out = d.must("workspaces", "create", "-description", "restored from backup", "Second")
	fields := strings.Fields(out)
	require.Len(t, fields, 4, out)
	second := fields[2]

	d.must("use", second)
	out = d.must("import", backup)
	assert.Contains(t, out, "imported")
	assert.Regexp(t, `profiles\s+1`, out)
	assert.Regexp(t, `texts\s+1`, out)

	d.must("workspaces", "rename", second, "Restored")
	out = d.must("workspaces")
	assert.Contains(t, out, "Restored")

	out = d.must("workspaces", "delete", second)
	assert.Contains(t, out, "workspace: "+models.LocalWorkspaceName)

	out = d.must("logout")
	assert.Contains(t, out, "signed out")
	out = d.must("status")
	assert.Contains(t, out, "session:   signed out")

	out = d.must("login", testEmail)
	assert.Contains(t, out, "signed in as "+testEmail)

	out = d.must("delete-account")
	assert.Contains(t, out, "account deleted")
	assert.Contains(t, out, models.LocalWorkspaceName)

	_, err := d.run("login", testEmail)
	assert.Error(t, err, "the account is gone")
}

func TestCommandErrors(t *testing.T) {
	d := newDevice(t, newCloud(t))

	_, err := d.run("use", "not-a-uuid")
	assert.Error(t, err)

	_, err = d.run("migrate")
	assert.ErrorContains(t, err, "migrate failed")

	_, err = d.run("workspaces", "create", "Cloud only")
	assert.Error(t, err, "creating a cloud workspace needs a session")

	_, err = d.run("import", filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{noEnvFile, "-data-dir", dir, "-port", "0", "serve"}, io.Discard, io.Discard)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.FileExists(t, filepath.Join(dir, "cloud.db"))
}
