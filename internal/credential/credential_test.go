package credential

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keyPath := filepath.Join(dir, "keys", "credential.key")
	return NewStore(db, keyPath), keyPath
}

func TestRoundTrip(t *testing.T) {
	s, keyPath := newTestStore(t)
	require.NoError(t, s.Set("  sk-live-123  "))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	sealed, err := s.Get()
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "sk-live-123")

	plain, err := s.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", plain)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestSetEmptyDeletes(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("sk"))
	require.NoError(t, s.Set(""))

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestDecryptFailsClosed(t *testing.T) {
	s, keyPath := newTestStore(t)
	require.NoError(t, s.Set("sk-live-123"))
	sealed, err := s.Get()
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = s.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCredentialUnreadable)

	_, err = s.Decrypt([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCredentialUnreadable)

	require.NoError(t, os.WriteFile(keyPath, make([]byte, 32), 0o600))
	_, err = s.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrCredentialUnreadable)

	require.NoError(t, os.Remove(keyPath))
	_, err = s.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrCredentialUnreadable)
}

func TestKeyIsReused(t *testing.T) {
	s, keyPath := newTestStore(t)
	require.NoError(t, s.Set("one"))
	first, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	require.NoError(t, s.Set("two"))
	second, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sealed, err := s.Get()
	require.NoError(t, err)
	plain, err := s.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "two", plain)
}
