package image

import (
	"fmt"
	"image"
)

// Region is a non-degenerate axis-aligned rectangle [X1, X2) x [Y1, Y2) over the pixel grid.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func NewRegion(r image.Rectangle) Region {
	return Region{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

func (r Region) Width() int {
	return r.X2 - r.X1
}

func (r Region) Height() int {
	return r.Y2 - r.Y1
}

func (r Region) Area() int {
	return r.Width() * r.Height()
}

func (r Region) SmallerSide() int {
	return min(r.Width(), r.Height())
}

// IsLandscape reports width >= height. Squares count as landscape and are therefore cut by a
// vertical line into a left and a right half.
func (r Region) IsLandscape() bool {
	return r.Width() >= r.Height()
}

func (r Region) IsPortrait() bool {
	return !r.IsLandscape()
}

func (r Region) Min() image.Point {
	return image.Point{X: r.X1, Y: r.Y1}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Split halves the region across its longer side. The first half gets floor(n/2) pixels and the
// second the remainder, so a 1 pixel wide side cannot be split and yields an empty first half.
// Callers stop recursing well before that.
func (r Region) Split() (Region, Region) {
	if r.IsLandscape() {
		mid := r.X1 + r.Width()/2
		return Region{X1: r.X1, Y1: r.Y1, X2: mid, Y2: r.Y2}, Region{X1: mid, Y1: r.Y1, X2: r.X2, Y2: r.Y2}
	}
	mid := r.Y1 + r.Height()/2
	return Region{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: mid}, Region{X1: r.X1, Y1: mid, X2: r.X2, Y2: r.Y2}
}

func (r Region) Overlaps(o Region) bool {
	return r.Rect().Overlaps(o.Rect())
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}
