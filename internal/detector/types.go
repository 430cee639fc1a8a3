package detector

import (
	"errors"
	"image"
	"math"
)

// ErrDetection wraps any failure of a single detection call
var ErrDetection = errors.New("detection failed")

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// BoundingBox is a raw detector box in frame coordinates
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Landmarks represents 5 facial landmark points
type Landmarks struct {
	LeftEye    Point
	RightEye   Point
	Nose       Point
	LeftMouth  Point
	RightMouth Point
}

// Face represents a detected face. Landmarks are zero for backends that do
// not produce them.
type Face struct {
	BoundingBox BoundingBox
	Landmarks   Landmarks
	Score       float32
}

// Box returns the face rectangle rounded to integer pixels
func (f Face) Box() Box {
	x1 := int(math.Round(float64(f.BoundingBox.X1)))
	y1 := int(math.Round(float64(f.BoundingBox.Y1)))
	x2 := int(math.Round(float64(f.BoundingBox.X2)))
	y2 := int(math.Round(float64(f.BoundingBox.Y2)))
	return Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Box is an integer face rectangle with its origin at the top-left corner
type Box struct {
	X, Y          int
	Width, Height int
}

// Rect returns the box as an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box covers no pixels
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Clamp returns the part of the box inside a width x height frame. The
// result is empty when the box has a non-positive size or lies outside.
func (b Box) Clamp(width, height int) image.Rectangle {
	if b.Empty() {
		return image.Rectangle{}
	}
	return b.Rect().Intersect(image.Rect(0, 0, width, height))
}
