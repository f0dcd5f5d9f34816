package blocklist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "blocklist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBlockUnblock(t *testing.T) {
	db := openTemp(t)

	blocked, err := db.IsBlocked("USB1")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, db.Add("USB1", "firmware stick"))
	require.NoError(t, db.Add("USB1", "second reason ignored"))
	require.NoError(t, db.Add("CAMERA", ""))

	blocked, err = db.IsBlocked("USB1")
	require.NoError(t, err)
	assert.True(t, blocked)

	entries, err := db.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "CAMERA", entries[0].Label)
	assert.Equal(t, "USB1", entries[1].Label)
	assert.Equal(t, "firmware stick", entries[1].Reason)
	assert.False(t, entries[1].CreatedAt.IsZero())

	removed, err := db.Remove("USB1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = db.Remove("USB1")
	require.NoError(t, err)
	assert.False(t, removed)

	blocked, err = db.IsBlocked("USB1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocklist.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Add("USB1", ""))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	blocked, err := db.IsBlocked("USB1")
	require.NoError(t, err)
	assert.True(t, blocked)
}
