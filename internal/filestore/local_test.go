package filestore_test

import (
	"context"
	"testing"

	"hermes/internal/config"
	"hermes/internal/filestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocal_PutGetDelete тестирует основной цикл работы с файлом
func TestLocal_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	fs, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Put(ctx, "documents/a/contract.txt", []byte("v1"), "text/plain"))
	require.NoError(t, fs.Put(ctx, "documents/a/contract.txt", []byte("v2"), "text/plain"))

	data, err := fs.Get(ctx, "documents/a/contract.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, fs.Delete(ctx, "documents/a/contract.txt"))
	require.NoError(t, fs.Delete(ctx, "documents/a/contract.txt"))

	_, err = fs.Get(ctx, "documents/a/contract.txt")
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

// TestLocal_InvalidKey тестирует защиту от выхода за каталог
func TestLocal_InvalidKey(t *testing.T) {
	ctx := context.Background()
	fs, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "a/../../b", "/"} {
		err := fs.Put(ctx, key, []byte("x"), "")
		assert.ErrorIs(t, err, filestore.ErrInvalidKey, key)
	}
}

// TestNew тестирует выбор реализации
func TestNew(t *testing.T) {
	ctx := context.Background()

	store, err := filestore.New(ctx, config.FilesConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &filestore.Local{}, store)

	_, err = filestore.New(ctx, config.FilesConfig{Type: "ftp"})
	assert.Error(t, err)

	_, err = filestore.New(ctx, config.FilesConfig{Type: "s3"})
	assert.Error(t, err)
}
