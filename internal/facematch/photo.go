package facematch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyCrop is returned when a box does not overlap the image at all.
var ErrEmptyCrop = errors.New("crop has no area")

// ErrEmptyImage is returned for decoded images with zero width or height.
var ErrEmptyImage = errors.New("image has zero area")

// DecodePhoto decodes a classroom photo and normalizes it to RGBA with origin (0,0).
// Every later stage works in that single color space.
func DecodePhoto(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToRGBA(img)
}

// ToRGBA copies img into an RGBA image whose bounds start at (0,0).
func ToRGBA(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

// CropFace cuts box out of img and scales it to a size x size square.
// The box is clipped to the image bounds first, so a box that hangs over an
// edge yields the visible part. Only a box with no visible area fails.
func CropFace(img image.Image, box BoundingBox, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid face size %d", size)
	}
	if box.Empty() {
		return nil, fmt.Errorf("box %s: %w", box, ErrEmptyCrop)
	}
	bounds := img.Bounds()
	r := box.Normalize().Rect(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("box %s: %w", box, ErrEmptyCrop)
	}

	face := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(face, face.Bounds(), img, r, xdraw.Src, nil)
	return face, nil
}
