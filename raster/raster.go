/*
Package raster holds the geometry and error kinds shared by every stage of
the e-paper encoding pipeline.

A frame is described by its Size only; pixel data travels between stages as
standard library images (*image.NRGBA before quantization, *image.Paletted
after). Each stage checks the dimensions it is handed and reports a
DimensionError when they do not match what it was configured for.
*/
package raster

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidInput is returned for an empty or undecodable source image.
	ErrInvalidInput = errors.New("raster: invalid input")
	// ErrDimensionMismatch is matched by every DimensionError.
	ErrDimensionMismatch = errors.New("raster: dimension mismatch")
)

// Size is the width and height of a frame in pixels.
type Size struct {
	Width  int
	Height int
}

// SizeOf returns the Size of r.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// Empty reports whether s has no pixels.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Pixels returns the number of pixels in a frame of size s.
func (s Size) Pixels() int {
	if s.Empty() {
		return 0
	}
	return s.Width * s.Height
}

// PackedLen returns the number of bytes needed to hold a frame of size s at
// two pixels per byte.
func (s Size) PackedLen() int {
	return (s.Pixels() + 1) >> 1
}

// Rect returns the rectangle of size s anchored at the origin.
func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DimensionError reports a frame handed to a stage with the wrong size.
type DimensionError struct {
	Stage string
	Want  Size
	Got   Size
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: image is %s, want %s", e.Stage, e.Got, e.Want)
}

// Unwrap allows errors.Is(err, ErrDimensionMismatch).
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// Check returns a DimensionError for stage if got differs from want.
func Check(stage string, want, got Size) error {
	if want != got {
		return &DimensionError{Stage: stage, Want: want, Got: got}
	}
	return nil
}
