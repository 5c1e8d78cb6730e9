package raster

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	tests := []struct {
		name      string
		size      Size
		empty     bool
		pixels    int
		packedLen int
	}{
		{"panel", Size{480, 800}, false, 384000, 192000},
		{"2x2", Size{2, 2}, false, 4, 2},
		{"odd", Size{3, 1}, false, 3, 2},
		{"single", Size{1, 1}, false, 1, 1},
		{"zero width", Size{0, 10}, true, 0, 0},
		{"negative", Size{-1, 10}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.size.Empty())
			assert.Equal(t, tt.pixels, tt.size.Pixels())
			assert.Equal(t, tt.packedLen, tt.size.PackedLen())
		})
	}
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, Size{4, 2}, SizeOf(image.Rect(10, 20, 14, 22)))
	assert.Equal(t, image.Rect(0, 0, 4, 2), Size{4, 2}.Rect())
	assert.Equal(t, "480x800", Size{480, 800}.String())
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("pack", Size{2, 2}, Size{2, 2}))

	err := Check("pack", Size{480, 800}, Size{2, 2})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.EqualError(t, err, "pack: image is 2x2, want 480x800")

	var de *DimensionError
	if assert.True(t, errors.As(err, &de)) {
		assert.Equal(t, Size{480, 800}, de.Want)
		assert.Equal(t, Size{2, 2}, de.Got)
	}
}
