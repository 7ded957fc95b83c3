package userconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRedirect(t *testing.T) {
	store := New(t.TempDir())

	location, err := store.TakePendingRedirect()
	require.NoError(t, err)
	assert.Empty(t, location)

	require.NoError(t, store.SetPendingRedirect("/admin/users"))

	location, err = store.TakePendingRedirect()
	require.NoError(t, err)
	assert.Equal(t, "/admin/users", location)

	// Taking clears it
	location, err = store.TakePendingRedirect()
	require.NoError(t, err)
	assert.Empty(t, location)
}

func TestLoad_Malformed(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{oops"), 0644))

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}
