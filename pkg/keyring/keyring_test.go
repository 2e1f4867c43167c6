package keyring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleCredentials() session.Credentials {
	return session.Credentials{
		Token:     "tok-123",
		TokenType: "bearer",
		UserID:    models.NewUserID(),
		Email:     "ada@example.com",
		SavedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSystemKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	ts := New("raki-test", WithUser("alice"))
	_, isSystem := ts.backend.(systemBackend)
	require.True(t, isSystem)

	creds, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	want := sampleCredentials()
	require.NoError(t, ts.Save(ctx, want))

	got, err := ts.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, ts.Clear(ctx))
	require.NoError(t, ts.Clear(ctx), "clearing twice is fine")
	got, err = ts.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFallbackWhenKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(assert.AnError)
	t.Cleanup(keyring.MockInit)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	ts := New("raki-test", WithFallbackFile(path, "secret"))
	_, isFile := ts.backend.(*FileKeyring)
	require.True(t, isFile)

	want := sampleCredentials()
	require.NoError(t, ts.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), want.Token, "tokens are encrypted at rest")

	got, err := NewFileTokenStore("raki-test", path, "secret").Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Token, got.Token)

	_, err = NewFileTokenStore("raki-test", path, "wrong").Load(ctx)
	assert.Error(t, err)

	require.NoError(t, ts.Clear(ctx))
	got, err = ts.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileKeyringKeepsEntriesApart(t *testing.T) {
	fk := NewFileKeyring(filepath.Join(t.TempDir(), "k.json"), "pw")

	require.NoError(t, fk.Set("svc", "a", "one"))
	require.NoError(t, fk.Set("svc", "b", "two"))
	require.NoError(t, fk.Delete("svc", "a"))

	_, err := fk.Get("svc", "a")
	assert.ErrorIs(t, err, errEntryNotFound)
	v, err := fk.Get("svc", "b")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}
