// Package light provides the light sources used for shading and for
// volumetric in-scattering.
package light

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Illumination describes how a light reaches a point.
type Illumination struct {
	Distance  float64    // to the light; math.MaxFloat64 for lights at infinity
	Direction v3.Vec     // unit vector from the point towards the light
	Intensity [3]float64 // RGB radiance arriving at the point
}

// Light is a source that can be sampled from any point. Illuminate must be
// safe for concurrent use once Evaluate has returned.
type Light interface {
	Illuminate(p v3.Vec) Illumination
	Evaluate(src param.Source, t float64)
	Clone() Light
}

// Compile-time interface checks.
var (
	_ Light = (*Directional)(nil)
	_ Light = (*Point)(nil)
)

// Directional is a light at infinity shining along Direction.
type Directional struct {
	Direction param.Vec3
	Color     param.Vec3
	Intensity param.Scalar

	toLight  v3.Vec
	radiance [3]float64
}

// NewDirectional returns a directional light resolved at t = 0.
func NewDirectional(direction, color param.Vec3, intensity param.Scalar) *Directional {
	d := &Directional{Direction: direction, Color: color, Intensity: intensity}
	d.Evaluate(nil, 0)
	return d
}

func (d *Directional) Evaluate(src param.Source, t float64) {
	dir := d.Direction.Resolve(src, t)
	d.toLight = normalize(v3.Vec{X: -dir.X, Y: -dir.Y, Z: -dir.Z})
	d.radiance = scaled(d.Color.Resolve(src, t), d.Intensity.Resolve(src, t))
}

func (d *Directional) Clone() Light {
	c := *d
	return &c
}

func (d *Directional) Illuminate(v3.Vec) Illumination {
	return Illumination{
		Distance:  math.MaxFloat64,
		Direction: d.toLight,
		Intensity: d.radiance,
	}
}

// Point radiates uniformly from Position with inverse-square falloff.
type Point struct {
	Position  param.Vec3
	Color     param.Vec3
	Intensity param.Scalar

	pos   v3.Vec
	power [3]float64
}

// NewPoint returns a point light resolved at t = 0.
func NewPoint(position, color param.Vec3, intensity param.Scalar) *Point {
	pl := &Point{Position: position, Color: color, Intensity: intensity}
	pl.Evaluate(nil, 0)
	return pl
}

func (pl *Point) Evaluate(src param.Source, t float64) {
	pl.pos = pl.Position.Resolve(src, t)
	pl.power = scaled(pl.Color.Resolve(src, t), pl.Intensity.Resolve(src, t))
}

func (pl *Point) Clone() Light {
	c := *pl
	return &c
}

// Illuminate returns zero intensity for a point at the light itself.
func (pl *Point) Illuminate(p v3.Vec) Illumination {
	d := pl.pos.Sub(p)
	r := d.Length()
	if r == 0 {
		return Illumination{}
	}
	falloff := 1 / (4 * math.Pi * r * r)
	return Illumination{
		Distance:  r,
		Direction: d.MulScalar(1 / r),
		Intensity: [3]float64{pl.power[0] * falloff, pl.power[1] * falloff, pl.power[2] * falloff},
	}
}

func scaled(c v3.Vec, k float64) [3]float64 {
	return [3]float64{c.X * k, c.Y * k, c.Z * k}
}

func normalize(v v3.Vec) v3.Vec {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}
