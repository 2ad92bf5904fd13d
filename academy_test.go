package academy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	academy "github.com/aiacademy/academy-client"
	"github.com/aiacademy/academy-client/internal/config"
)

func TestAssemblesWithFileStorageAndStaticProvider(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())

	client, err := academy.New(context.Background(), config.New(), academy.Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	state := client.Start(context.Background())
	require.False(t, state.IsAuthenticated)

	// The demo user logs in, and the session survives a fresh restore.
	require.NoError(t, client.Store.Login(context.Background(), "user@example.com", "password123"))
	require.True(t, client.Store.Authenticated())

	restored := client.Store.Restore()
	require.True(t, restored.IsAuthenticated)
}

func TestAssemblesWithSQLiteStorage(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("SESSION_STORAGE", config.StorageSQLite)

	client, err := academy.New(context.Background(), config.New(), academy.Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	require.NoError(t, client.Store.Login(context.Background(), "user@example.com", "password123"))
	require.True(t, client.Store.Restore().IsAuthenticated)
}

func TestStartActivatesMonitorForRestoredSession(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())

	client, err := academy.New(context.Background(), config.New(), academy.Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	require.NoError(t, client.Store.Login(context.Background(), "user@example.com", "password123"))

	state := client.Start(context.Background())
	require.True(t, state.IsAuthenticated)
	require.NotZero(t, client.Activity.ListenerCount())
}

func TestUnknownStorageBackend(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("SESSION_STORAGE", "parchment")

	_, err := academy.New(context.Background(), config.New(), academy.Options{})
	require.Error(t, err)
}

func TestOidcProviderRequiresAuthorizer(t *testing.T) {
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("AUTH_PROVIDER", config.ProviderOidc)

	_, err := academy.New(context.Background(), config.New(), academy.Options{})
	require.Error(t, err)
}
