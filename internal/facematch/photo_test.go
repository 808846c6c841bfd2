package facematch

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodePhoto(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(8, 6, color.White)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := DecodePhoto(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodePhoto: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecodePhoto_Garbage(t *testing.T) {
	if _, err := DecodePhoto([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestToRGBA_ShiftsOrigin(t *testing.T) {
	src := solidImage(20, 20, color.Black)
	sub := src.SubImage(image.Rect(10, 10, 20, 20))

	out, err := ToRGBA(sub)
	if err != nil {
		t.Fatalf("ToRGBA: %v", err)
	}
	if out.Bounds().Min != (image.Point{}) {
		t.Errorf("expected origin (0,0), got %v", out.Bounds().Min)
	}
	if out.Bounds().Dx() != 10 {
		t.Errorf("expected width 10, got %d", out.Bounds().Dx())
	}
}

func TestToRGBA_Empty(t *testing.T) {
	_, err := ToRGBA(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestCropFace(t *testing.T) {
	img := solidImage(100, 80, color.RGBA{R: 200, A: 255})

	tests := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{"inside", BoundingBox{10, 10, 30, 30}, false},
		{"overhangs right edge", BoundingBox{90, 10, 40, 40}, false},
		{"negative origin corrected", BoundingBox{-5, -5, 20, 20}, false},
		{"fully outside", BoundingBox{200, 200, 10, 10}, true},
		{"zero width", BoundingBox{10, 10, 0, 10}, true},
		{"negative height", BoundingBox{10, 40, 10, -20}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face, err := CropFace(img, tt.box, 160)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyCrop) {
					t.Errorf("expected ErrEmptyCrop, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CropFace: %v", err)
			}
			if face.Bounds() != image.Rect(0, 0, 160, 160) {
				t.Errorf("expected 160x160 face, got %v", face.Bounds())
			}
			r, _, _, _ := face.At(80, 80).RGBA()
			if r>>8 != 200 {
				t.Errorf("expected red channel 200, got %d", r>>8)
			}
		})
	}
}

func TestCropFace_SubImageBounds(t *testing.T) {
	img := solidImage(100, 100, color.White)
	sub := img.SubImage(image.Rect(50, 50, 100, 100))

	// Box coordinates are relative to the sub-image origin.
	face, err := CropFace(sub, BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}, 32)
	if err != nil {
		t.Fatalf("CropFace: %v", err)
	}
	if face.Bounds().Dx() != 32 {
		t.Errorf("expected 32px face, got %d", face.Bounds().Dx())
	}
}
