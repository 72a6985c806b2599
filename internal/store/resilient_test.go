package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaewonYunDS/Filmind/internal/database"
)

func TestResilient_OpensAfterConsecutiveFailures(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	resilient := NewResilient(NewRemote(db))
	assert.True(t, resilient.Available())

	// Kill the backing store so every call fails
	require.NoError(t, db.Close())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := resilient.ListForums(ctx)
		assert.Error(t, err)
	}

	assert.False(t, resilient.Available())
}

func TestResilient_DomainErrorsDoNotTrip(t *testing.T) {
	remote := newTestRemote(t)
	resilient := NewResilient(remote)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := resilient.GetThread(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	assert.True(t, resilient.Available())
}

func TestSelector_Pick(t *testing.T) {
	remote := NewResilient(newTestRemote(t))
	local := NewLocal()
	selector := NewSelector(remote, local)

	// Guest always lands on the local store
	backend, identity := selector.Pick(nil)
	assert.Same(t, local, backend)
	assert.Equal(t, "Guest", identity.DisplayName)

	// Authenticated actor with a healthy remote store lands there
	alice := testIdentity("alice")
	backend, identity = selector.Pick(&alice)
	assert.Same(t, remote, backend)
	assert.Equal(t, alice.ID, identity.ID)
}

func TestSelector_NoRemoteConfigured(t *testing.T) {
	local := NewLocal()
	selector := NewSelector(nil, local)

	alice := testIdentity("alice")
	backend, identity := selector.Pick(&alice)
	assert.Same(t, local, backend)
	assert.Equal(t, alice.ID, identity.ID)
	assert.False(t, selector.RemoteAvailable())
}
