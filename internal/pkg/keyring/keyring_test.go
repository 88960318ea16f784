package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDerivesStableKeys(t *testing.T) {
	kr := New(t.TempDir(), nil)

	key1, err := kr.Get("owner-a")
	require.NoError(t, err)
	require.Len(t, key1, 32)

	key2, err := kr.Get("owner-a")
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	other, err := kr.Get("owner-b")
	require.NoError(t, err)
	assert.NotEqual(t, key1, other)
}

func TestGetRejectsEmptyOwner(t *testing.T) {
	kr := New(t.TempDir(), nil)
	_, err := kr.Get("  ")
	require.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestKeysSurviveRestartAndClear(t *testing.T) {
	dir := t.TempDir()

	kr := New(dir, nil)
	key, err := kr.Get("owner-a")
	require.NoError(t, err)

	// Clear drops memory only; the persisted secret yields the same key.
	kr.Clear()
	again, err := kr.Get("owner-a")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	// A fresh instance against the same keystore also agrees.
	restarted := New(dir, nil)
	fresh, err := restarted.Get("owner-a")
	require.NoError(t, err)
	assert.Equal(t, key, fresh)
}

func TestSecretFilePermissions(t *testing.T) {
	dir := t.TempDir()
	kr := New(dir, nil)
	_, err := kr.Get("owner-a")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, secretFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCorruptSecretIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, secretFile), []byte("short"), 0o600))

	kr := New(dir, nil)
	_, err := kr.Get("owner-a")
	require.ErrorIs(t, err, ErrKeyUnavailable)
}
