package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewLocalStorage(tempDir, 1024)
	require.NoError(t, err)

	t.Run("StoreFromBytes", func(t *testing.T) {
		ctx := context.Background()
		testData := []byte("fake image bytes")

		path, err := storage.StoreFromBytes(ctx, testData, "png")
		require.NoError(t, err)
		assert.True(t, filepath.HasPrefix(path, tempDir))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, testData, content)

		require.NoError(t, storage.Delete(ctx, path))
	})

	t.Run("RejectsUnsupportedExtension", func(t *testing.T) {
		_, err := storage.StoreFromBytes(context.Background(), []byte("data"), "exe")
		assert.Error(t, err)
	})

	t.Run("EnforcesMaxSize", func(t *testing.T) {
		big := make([]byte, 2048)
		_, err := storage.StoreFromBytes(context.Background(), big, "jpg")
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()

		path, err := storage.StoreFromBytes(ctx, []byte("test"), "jpeg")
		require.NoError(t, err)

		require.NoError(t, storage.Delete(ctx, path))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		// Paths outside the staging directory are refused
		err = storage.Delete(ctx, "/tmp/outside")
		assert.Error(t, err)
	})
}

func TestNewLocalStorage(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), 0)
	assert.NoError(t, err)
	assert.NotNil(t, storage)
}
