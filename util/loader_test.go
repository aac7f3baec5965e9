package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn-pipeline/ingest"
)

func TestLoadDirectoryImageFilesSortsByFrameNumber(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-2.jpg", "frame-0.jpg", "frame-1.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("fake-bytes"), 0o644))
	}

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{files[0].Frame, files[1].Frame, files[2].Frame})
}

func TestLoadDirectoryImageFilesSkipsUnrecognizedExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-0.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.bmp"), []byte("x"), 0o644))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestLoadDirectoryImageFilesSetsFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-0.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-2.webp"), []byte("x"), 0o644))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, ingest.FormatJPEG, files[0].Format)
	assert.Equal(t, ingest.FormatPNG, files[1].Format)
	assert.Equal(t, ingest.FormatWebP, files[2].Format)
}
