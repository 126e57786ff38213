package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	key := []byte("tb:0001")
	require.NoError(t, store.Set(key, []byte(`{"wdl":2}`)))

	value, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"wdl":2}`), value)
}

func TestStoreGetMissing(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	key := []byte("doomed")
	require.NoError(t, store.Set(key, []byte("x")))
	require.NoError(t, store.Delete(key))

	_, err = store.Get(key)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, store.Delete(key))
}

func TestStoreCountPrefix(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set([]byte("tb:a"), []byte("1")))
	require.NoError(t, store.Set([]byte("tb:b"), []byte("2")))
	require.NoError(t, store.Set([]byte("other"), []byte("3")))

	n, err := store.CountPrefix([]byte("tb:"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set([]byte("persist"), []byte("yes")))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	value, err := store.Get([]byte("persist"))
	require.NoError(t, err)
	require.Equal(t, []byte("yes"), value)
}
