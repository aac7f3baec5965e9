package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMatRejectsEmptyData(t *testing.T) {
	_, err := DecodeMat(nil, FormatJPEG)
	assert.Error(t, err)
}

func TestDecodeMatRejectsUnsupportedFormat(t *testing.T) {
	_, err := DecodeMat([]byte{0xFF}, Format("bmp"))
	assert.Error(t, err)
}

func TestDecodeImageRejectsEmptyData(t *testing.T) {
	_, err := DecodeImage(nil, FormatPNG)
	assert.Error(t, err)
}

func TestDecodeImageRejectsUnsupportedFormat(t *testing.T) {
	_, err := DecodeImage([]byte{0x01, 0x02}, Format("tiff"))
	assert.Error(t, err)
}

func TestFrameRejectsEmptyData(t *testing.T) {
	_, err := Frame(nil, FormatWebP)
	assert.Error(t, err)
}
