package field

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Modifier is a domain warp applied to a leaf's local point before the
// distance function runs. Apply must be pure; Evaluate refreshes the
// modifier's resolved parameters.
type Modifier interface {
	Apply(p v3.Vec) v3.Vec
	Evaluate(src param.Source, t float64)
	Clone() Modifier
}

// Compile-time interface checks.
var (
	_ Modifier = (*Distort)(nil)
	_ Modifier = (*Twist)(nil)
	_ Modifier = (*Bend)(nil)
	_ Modifier = (*Repeat)(nil)
)

// Chain applies modifiers in order.
type Chain []Modifier

// Apply runs every modifier over p.
func (c Chain) Apply(p v3.Vec) v3.Vec {
	for _, m := range c {
		p = m.Apply(p)
	}
	return p
}

// Evaluate forwards to every modifier.
func (c Chain) Evaluate(src param.Source, t float64) {
	for _, m := range c {
		m.Evaluate(src, t)
	}
}

// Clone deep-copies the chain.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	for i, m := range c {
		out[i] = m.Clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Distort
// ---------------------------------------------------------------------------

// Distort adds a sinusoidal displacement
// factor*sin(f*x+o.x)*sin(f*y+o.y)*sin(f*z+o.z) to every axis.
type Distort struct {
	Factor    param.Scalar
	Frequency param.Scalar
	Offset    param.Vec3

	factor, freq float64
	offset       v3.Vec
}

// NewDistort returns a Distort resolved at t = 0.
func NewDistort(factor, frequency param.Scalar, offset param.Vec3) *Distort {
	d := &Distort{Factor: factor, Frequency: frequency, Offset: offset}
	d.Evaluate(nil, 0)
	return d
}

func (d *Distort) Apply(p v3.Vec) v3.Vec {
	m := math.Sin(d.freq*p.X+d.offset.X) *
		math.Sin(d.freq*p.Y+d.offset.Y) *
		math.Sin(d.freq*p.Z+d.offset.Z) * d.factor
	return v3.Vec{X: p.X + m, Y: p.Y + m, Z: p.Z + m}
}

func (d *Distort) Evaluate(src param.Source, t float64) {
	d.factor = d.Factor.Resolve(src, t)
	d.freq = d.Frequency.Resolve(src, t)
	d.offset = d.Offset.Resolve(src, t)
}

func (d *Distort) Clone() Modifier {
	c := *d
	return &c
}

// ---------------------------------------------------------------------------
// Twist / Bend
// ---------------------------------------------------------------------------

// Twist rotates the xz plane by Rate*y radians.
type Twist struct {
	Rate param.Scalar
	rate float64
}

// NewTwist returns a Twist resolved at t = 0.
func NewTwist(rate param.Scalar) *Twist {
	tw := &Twist{Rate: rate}
	tw.Evaluate(nil, 0)
	return tw
}

func (tw *Twist) Apply(p v3.Vec) v3.Vec {
	s, c := math.Sincos(tw.rate * p.Y)
	return v3.Vec{X: c*p.X - s*p.Z, Y: p.Y, Z: s*p.X + c*p.Z}
}

func (tw *Twist) Evaluate(src param.Source, t float64) {
	tw.rate = tw.Rate.Resolve(src, t)
}

func (tw *Twist) Clone() Modifier {
	c := *tw
	return &c
}

// Bend rotates the xy plane by Rate*x radians.
type Bend struct {
	Rate param.Scalar
	rate float64
}

// NewBend returns a Bend resolved at t = 0.
func NewBend(rate param.Scalar) *Bend {
	b := &Bend{Rate: rate}
	b.Evaluate(nil, 0)
	return b
}

func (b *Bend) Apply(p v3.Vec) v3.Vec {
	s, c := math.Sincos(b.rate * p.X)
	return v3.Vec{X: c*p.X - s*p.Y, Y: s*p.X + c*p.Y, Z: p.Z}
}

func (b *Bend) Evaluate(src param.Source, t float64) {
	b.rate = b.Rate.Resolve(src, t)
}

func (b *Bend) Clone() Modifier {
	c := *b
	return &c
}

// ---------------------------------------------------------------------------
// Repeat
// ---------------------------------------------------------------------------

// Repeat tiles space with the given period per axis. A period of zero leaves
// that axis untouched. A positive Limit caps the number of copies on each
// side of the origin for that axis.
type Repeat struct {
	Period param.Vec3
	Limit  [3]float64

	period v3.Vec
}

// NewRepeat returns a Repeat resolved at t = 0.
func NewRepeat(period param.Vec3, limit [3]float64) *Repeat {
	r := &Repeat{Period: period, Limit: limit}
	r.Evaluate(nil, 0)
	return r
}

func (r *Repeat) Apply(p v3.Vec) v3.Vec {
	return v3.Vec{
		X: repeatAxis(p.X, r.period.X, r.Limit[0]),
		Y: repeatAxis(p.Y, r.period.Y, r.Limit[1]),
		Z: repeatAxis(p.Z, r.period.Z, r.Limit[2]),
	}
}

func (r *Repeat) Evaluate(src param.Source, t float64) {
	r.period = r.Period.Resolve(src, t)
}

func (r *Repeat) Clone() Modifier {
	c := *r
	return &c
}

func repeatAxis(x, c, limit float64) float64 {
	if c == 0 || !finite(c) {
		return x
	}
	if limit > 0 {
		n := math.Round(x / c)
		n = math.Max(-limit, math.Min(limit, n))
		return x - c*n
	}
	return floorMod(x+0.5*c, c) - 0.5*c
}

// floorMod is the modulus with the sign of the divisor.
func floorMod(x, c float64) float64 {
	return x - c*math.Floor(x/c)
}
