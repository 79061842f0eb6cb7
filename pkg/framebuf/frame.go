// Package framebuf holds rendered frames as floating point buffers and
// writes them out, either as 8-bit images or as compressed raw dumps that
// keep depth, step count and trap channels for later compositing.
package framebuf

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Frame is a linear RGB image plus per-pixel march data.
type Frame struct {
	Width  int
	Height int
	Color  []float64 // 3 per pixel, row-major
	Depth  []float64 // distance travelled; +Inf on miss
	Steps  []float64 // march steps per pixel
	Trap   []float64 // first trap slot of the hit
}

// New allocates a black frame.
func New(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("framebuf: invalid size %dx%d", width, height)
	}
	n := width * height
	f := &Frame{
		Width:  width,
		Height: height,
		Color:  make([]float64, 3*n),
		Depth:  make([]float64, n),
		Steps:  make([]float64, n),
		Trap:   make([]float64, n),
	}
	for i := range f.Depth {
		f.Depth[i] = math.Inf(1)
	}
	return f, nil
}

// Pixel is everything written for one pixel.
type Pixel struct {
	Color [3]float64
	Depth float64
	Steps int
	Trap  float64
}

// Set writes a pixel. Rows may be written from different goroutines as long
// as no two goroutines write the same pixel.
func (f *Frame) Set(x, y int, p Pixel) {
	i := y*f.Width + x
	f.Color[3*i] = p.Color[0]
	f.Color[3*i+1] = p.Color[1]
	f.Color[3*i+2] = p.Color[2]
	f.Depth[i] = p.Depth
	f.Steps[i] = float64(p.Steps)
	f.Trap[i] = p.Trap
}

// At returns the colour at (x, y).
func (f *Frame) At(x, y int) [3]float64 {
	i := 3 * (y*f.Width + x)
	return [3]float64{f.Color[i], f.Color[i+1], f.Color[i+2]}
}

// Image converts the colour channels to 8-bit, clamping to [0, 1].
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: 255})
		}
	}
	return img
}

func to8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Width:  f.Width,
		Height: f.Height,
		Color:  append([]float64(nil), f.Color...),
		Depth:  append([]float64(nil), f.Depth...),
		Steps:  append([]float64(nil), f.Steps...),
		Trap:   append([]float64(nil), f.Trap...),
	}
}
