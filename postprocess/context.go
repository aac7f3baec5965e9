// Package postprocess decodes Network output tensors into labeled results
// (classifications, detections, or segmentation masks) and renders overlays.
// It implements the Classify, Detect, and Segment built-in variants plus a
// Custom seat.
package postprocess

import "github.com/nvr-ai/go-dnn-pipeline/tensorspec"

// Context supplies the source frame size and the crop/resize transform the
// PreProcessor applied, so decoders can return results in original-image
// coordinates instead of network input coordinates.
type Context struct {
	SrcWidth, SrcHeight int
	// NetWidth/NetHeight are the dimensions the PreProcessor resized to.
	NetWidth, NetHeight int
	// CropX/CropY/CropWidth/CropHeight describe the region of the source
	// frame the PreProcessor cropped before resizing. CropWidth/CropHeight
	// default to SrcWidth/SrcHeight when no crop was applied.
	CropX, CropY, CropWidth, CropHeight int
}

// ToOriginal maps a rectangle in network-input coordinates back to the
// original source frame.
func (c Context) ToOriginal(r tensorspec.Rect) tensorspec.Rect {
	cw, ch := c.CropWidth, c.CropHeight
	if cw == 0 {
		cw = c.SrcWidth
	}
	if ch == 0 {
		ch = c.SrcHeight
	}
	sx := float32(cw) / float32(c.NetWidth)
	sy := float32(ch) / float32(c.NetHeight)
	out := tensorspec.Rect{
		X1: r.X1*sx + float32(c.CropX),
		Y1: r.Y1*sy + float32(c.CropY),
		X2: r.X2*sx + float32(c.CropX),
		Y2: r.Y2*sy + float32(c.CropY),
	}
	tensorspec.ClampRect(&out, float32(c.SrcWidth), float32(c.SrcHeight))
	return out
}
