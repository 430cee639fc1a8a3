package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func writePNG(t *testing.T, dir, name string, mt gocv.MatType) string {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 128), 8, 8, mt)
	defer img.Close()

	path := filepath.Join(dir, name)
	require.True(t, gocv.IMWrite(path, img))
	return path
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	table, err := LoadTable([]string{
		writePNG(t, dir, "smile.png", gocv.MatTypeCV8UC4),
		writePNG(t, dir, "plain.png", gocv.MatTypeCV8UC3),
		writePNG(t, dir, "gray.png", gocv.MatTypeCV8UC1),
	})
	require.NoError(t, err)
	defer table.Close()

	assert.Equal(t, 3, table.Len())

	smile, ok := table.Lookup(1)
	require.True(t, ok)
	assert.True(t, smile.HasAlpha())
	assert.Equal(t, filepath.Join(dir, "smile.png"), smile.Path())

	plain, ok := table.Lookup(2)
	require.True(t, ok)
	assert.False(t, plain.HasAlpha())

	gray, ok := table.Lookup(3)
	require.True(t, ok)
	assert.False(t, gray.HasAlpha(), "grayscale assets are converted to BGR")
}

func TestLookupMisses(t *testing.T) {
	table := NewTable(asset(t, 4, 4, gocv.MatTypeCV8UC3, gocv.NewScalar(0, 0, 0, 0)))

	for _, m := range []int{0, -1, 2, 1000} {
		_, ok := table.Lookup(m)
		assert.False(t, ok, "mode %d", m)
	}
	_, ok := table.Lookup(1)
	assert.True(t, ok)
}

func TestLoadTableMissingAsset(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "angry.png")

	_, err := LoadTable([]string{writePNG(t, dir, "smile.png", gocv.MatTypeCV8UC4), missing})
	require.Error(t, err)

	var assetErr *AssetError
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, 2, assetErr.Mode)
	assert.Equal(t, missing, assetErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadTableUndecodableAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := LoadTable([]string{path})
	assert.Error(t, err)
}
