package framebuf

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Effect rewrites the colour channels of a finished frame in place. scale
// is the supersampling factor of the frame, so pixel-sized parameters cover
// the same share of the output image whatever the factor.
type Effect interface {
	Apply(f *Frame, scale int)
}

// Effects run in order.
type Effects []Effect

// Apply runs every effect over f.
func (es Effects) Apply(f *Frame, scale int) {
	if scale < 1 {
		scale = 1
	}
	for _, e := range es {
		e.Apply(f, scale)
	}
}

// Compile-time interface checks.
var (
	_ Effect = ColorShift{}
	_ Effect = Blur{}
	_ Effect = Bloom{}
)

// ShiftMode is the arithmetic a ColorShift applies.
type ShiftMode int

const (
	ShiftMul ShiftMode = iota
	ShiftDiv
	ShiftAdd
	ShiftSub
)

func (m ShiftMode) String() string {
	switch m {
	case ShiftMul:
		return "mul"
	case ShiftDiv:
		return "div"
	case ShiftAdd:
		return "add"
	case ShiftSub:
		return "sub"
	default:
		return "unknown"
	}
}

// ParseShiftMode is the inverse of ShiftMode.String.
func ParseShiftMode(s string) (ShiftMode, error) {
	for m := ShiftMul; m <= ShiftSub; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("framebuf: unknown color shift mode %q", s)
}

// ColorShift combines every pixel with Color, channel by channel. Dividing
// by a zero channel leaves that channel alone.
type ColorShift struct {
	Color [3]float64
	Mode  ShiftMode
}

// Shift returns c combined with the shift colour.
func (cs ColorShift) Shift(c [3]float64) [3]float64 {
	for i := range c {
		k := cs.Color[i]
		switch cs.Mode {
		case ShiftMul:
			c[i] *= k
		case ShiftDiv:
			if k != 0 {
				c[i] /= k
			}
		case ShiftAdd:
			c[i] += k
		case ShiftSub:
			c[i] -= k
		}
	}
	return c
}

func (cs ColorShift) Apply(f *Frame, _ int) {
	for i := 0; i+2 < len(f.Color); i += 3 {
		c := cs.Shift([3]float64{f.Color[i], f.Color[i+1], f.Color[i+2]})
		copy(f.Color[i:i+3], c[:])
	}
}

// Blur is a gaussian blur with a standard deviation of Size output pixels.
type Blur struct {
	Size float64
}

func (b Blur) Apply(f *Frame, scale int) {
	copy(f.Color, gaussian(f.Color, f.Width, f.Height, b.Size*float64(scale)))
}

// Bloom makes bright areas glow: channels above Cut are blurred by Size
// output pixels and added back scaled by Factor.
type Bloom struct {
	Cut    float64
	Factor float64
	Size   float64
}

func (b Bloom) Apply(f *Frame, scale int) {
	bright := make([]float64, len(f.Color))
	for i, v := range f.Color {
		if v > b.Cut {
			bright[i] = v
		}
	}
	glow := gaussian(bright, f.Width, f.Height, b.Size*float64(scale))
	for i := range f.Color {
		f.Color[i] += glow[i] * b.Factor
	}
}

// gaussian blurs an interleaved RGB buffer with standard deviation sigma
// pixels. The separable passes run through a draw.Kernel resampling the
// image onto itself; values are mapped into 16-bit range and back, so
// colours outside [0, 1] survive.
func gaussian(rgb []float64, w, h int, sigma float64) []float64 {
	out := append([]float64(nil), rgb...)
	if !(sigma > 0) || math.IsInf(sigma, 0) || w*h == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range rgb {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if !(hi > lo) {
		return out
	}
	span := hi - lo
	enc := func(v float64) uint16 {
		v = (v - lo) / span
		if !(v > 0) {
			return 0
		}
		if v >= 1 {
			return 0xffff
		}
		return uint16(v*0xffff + 0.5)
	}

	src := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 3 * (y*w + x)
			src.SetRGBA64(x, y, color.RGBA64{R: enc(rgb[i]), G: enc(rgb[i+1]), B: enc(rgb[i+2]), A: 0xffff})
		}
	}

	twoVar := 2 * sigma * sigma
	kernel := &draw.Kernel{
		Support: 3 * sigma,
		At:      func(t float64) float64 { return math.Exp(-t * t / twoVar) },
	}
	dst := image.NewRGBA64(src.Bounds())
	kernel.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := dst.RGBA64At(x, y)
			i := 3 * (y*w + x)
			out[i] = lo + float64(c.R)/0xffff*span
			out[i+1] = lo + float64(c.G)/0xffff*span
			out[i+2] = lo + float64(c.B)/0xffff*span
		}
	}
	return out
}
