package facematch

import "image"

// Normalize applies absolute-value correction to the origin of a detector box.
// Some detectors report slightly negative coordinates for faces touching the border.
func (b BoundingBox) Normalize() BoundingBox {
	if b.X < 0 {
		b.X = -b.X
	}
	if b.Y < 0 {
		b.Y = -b.Y
	}
	return b
}

// Offset translates a box from sub-image space into parent-image space.
func (b BoundingBox) Offset(dx, dy int) BoundingBox {
	b.X += dx
	b.Y += dy
	return b
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Rect converts the box to an image.Rectangle anchored at origin.
func (b BoundingBox) Rect(origin image.Point) image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Add(origin)
}

// FromRect converts a rectangle to a box relative to origin.
func FromRect(r image.Rectangle, origin image.Point) BoundingBox {
	r = r.Sub(origin)
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ComputeIoU calculates Intersection over Union between two boxes in the same coordinate system.
func ComputeIoU(a, b BoundingBox) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}

	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Width*a.Height+b.Width*b.Height) - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
