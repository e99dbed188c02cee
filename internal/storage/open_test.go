package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	s, err := Open(ctx, Options{Backend: BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
	_, err = os.Stat(filepath.Join(dir, SQLiteFile))
	assert.NoError(t, err)

	dir = t.TempDir()
	s, err = Open(ctx, Options{Backend: BackendJSON, DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)
	require.NoError(t, s.Close())
	_, err = os.Stat(filepath.Join(dir, NotesFile))
	assert.NoError(t, err)
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "postgres", DataDir: t.TempDir()})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Backend: BackendJSON})
	assert.Error(t, err)
}
