// Package ingest decodes compressed still-image bytes (JPEG, PNG, WebP) into
// the preprocess.Frame shapes the pipeline consumes, so a caller can feed
// file or network bytes straight in without hand-rolling a decode step per
// format.
package ingest

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/cshum/vipsgen/vips"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
)

// Format names a supported compressed still-image container.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// DecodeMat decodes data into a BGR gocv.Mat via libvips, the fast path
// preprocess.Frame prefers (gocv.Resize then drives the rest of the Blob
// stage). Format is accepted but unused by vips' own format sniffing; it is
// kept so callers can fail fast on an unsupported container before paying
// for the decode.
func DecodeMat(data []byte, format Format) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), errors.New("ingest: empty image data")
	}
	if err := checkSupported(format); err != nil {
		return gocv.NewMat(), err
	}

	img, err := vips.NewImageFromBuffer(data, &vips.LoadOptions{Access: vips.AccessSequential})
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "ingest: vips load")
	}
	defer img.Close()

	encoded, err := img.JpegsaveBuffer(&vips.JpegsaveBufferOptions{})
	if err != nil || len(encoded) == 0 {
		return gocv.NewMat(), errors.New("ingest: vips re-encode to jpeg failed")
	}

	mat, err := gocv.IMDecode(encoded, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "ingest: gocv decode")
	}
	if mat.Empty() {
		return mat, errors.New("ingest: decoded to an empty Mat")
	}
	return mat, nil
}

// DecodeImage decodes data into a Go-native image.Image, the fallback path
// preprocess.Frame uses when no Mat is available (a Custom preproc seat that
// has no OpenCV dependency, for instance).
func DecodeImage(data []byte, format Format) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("ingest: empty image data")
	}
	switch format {
	case FormatJPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		return img, errors.Wrap(err, "ingest: jpeg decode")
	case FormatPNG:
		img, err := png.Decode(bytes.NewReader(data))
		return img, errors.Wrap(err, "ingest: png decode")
	case FormatWebP:
		img, err := webp.Decode(bytes.NewReader(data))
		return img, errors.Wrap(err, "ingest: webp decode")
	default:
		return nil, errors.Errorf("ingest: unsupported format %q", format)
	}
}

// Frame decodes data via DecodeMat and wraps the result in a
// preprocess.Frame, for callers that want a one-call path from raw bytes to
// the pipeline's Process input.
func Frame(data []byte, format Format) (preprocess.Frame, error) {
	mat, err := DecodeMat(data, format)
	if err != nil {
		return preprocess.Frame{}, err
	}
	return preprocess.Frame{Mat: mat}, nil
}

func checkSupported(format Format) error {
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
		return nil
	default:
		return errors.Errorf("ingest: unsupported format %q", format)
	}
}
