package stereo

import (
	"image"
	"math"
)

// Map is a dense disparity map. Values accumulate as float64 during row
// processing and are rescaled into [0,255] by Normalize once every row
// has been traversed. Cells no traversal ever wrote stay at zero, which
// is what visually separates occluded pixels from real matches after the
// contrast stretch.
type Map struct {
	W, H int
	Vals []float64 // len = W*H, row-major
}

// NewMap returns a zeroed w x h disparity map.
func NewMap(w, h int) *Map {
	return &Map{W: w, H: h, Vals: make([]float64, w*h)}
}

// Idx maps (x, y) to the flat buffer index.
func (m *Map) Idx(x, y int) int { return y*m.W + x }

// Max returns the largest value in the map, or 0 for an empty map.
func (m *Map) Max() float64 {
	max := 0.0
	for _, v := range m.Vals {
		if v > max {
			max = v
		}
	}
	return max
}

// Normalize rescales the map in place so its maximum becomes 255 and
// truncates each cell to an integer. A map whose maximum is already 255
// is left untouched, so normalizing twice is a no-op.
//
// A zero maximum means no match was ever recorded (degenerate input);
// the map is defined to stay all zero rather than dividing by zero.
func (m *Map) Normalize() {
	max := m.Max()
	if max == 0 {
		return
	}
	scale := 255.0 / max
	for i, v := range m.Vals {
		m.Vals[i] = math.Trunc(v * scale)
	}
}

// Gray renders the map as an 8-bit grayscale image. Values are clamped
// to [0,255] as a final guard; after Normalize nothing should be outside
// that range.
func (m *Map) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, v := range m.Vals {
		switch {
		case v < 0:
			img.Pix[i] = 0
		case v > 255:
			img.Pix[i] = 255
		default:
			img.Pix[i] = uint8(v)
		}
	}
	return img
}
