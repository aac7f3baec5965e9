package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-dnn-pipeline/ingest"
)

// ImageFile is one frame-NNN.<ext> still image discovered on disk, already
// carrying the ingest.Format its extension implies so callers can hand it
// straight to ingest.Frame without re-deriving the container format.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number of the image file.
	Frame int
	// Format is the compressed still-image container ingest.Frame expects.
	Format ingest.Format
}

// extFormats maps a recognized file extension to the ingest.Format it
// decodes as. bmp is deliberately absent: ingest has no BMP decode path, so
// a bmp file has nowhere useful to go once loaded.
var extFormats = map[string]ingest.Format{
	".jpg":  ingest.FormatJPEG,
	".jpeg": ingest.FormatJPEG,
	".png":  ingest.FormatPNG,
	".webp": ingest.FormatWebP,
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := filepath.Ext(file.Name())
		format, ok := extFormats[ext]
		if !ok {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, readErr
		}
		frame, err := strconv.Atoi(strings.TrimSuffix(strings.ReplaceAll(file.Name(), "frame-", ""), ext))
		if err != nil {
			return nil, err
		}
		images = append(images, ImageFile{
			Path:   imgPath,
			Data:   data,
			Frame:  frame,
			Format: format,
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Frame < images[j].Frame
	})

	return images, nil
}
