package field

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ Node = (*Sphere)(nil)
	_ Node = (*Torus)(nil)
	_ Node = (*Cube)(nil)
	_ Node = (*Mandelbulb)(nil)
	_ Node = (*Julia)(nil)
	_ Node = (*Composite)(nil)

	_ Leaf = (*Sphere)(nil)
	_ Leaf = (*Julia)(nil)
)

// shape holds what every leaf has in common: placement, domain warps and
// material.
type shape struct {
	Transform Transform
	Modifiers Chain
	Material  MaterialParams

	material Material
}

// Leaf is implemented by every primitive. Callers outside the package use it
// to inspect placement and surface without switching on concrete types.
type Leaf interface {
	Node
	Placement() *Transform
	Surface() MaterialParams
	Warps() Chain
}

// Option configures a leaf at construction.
type Option func(*shape)

// WithPosition sets the leaf's translation.
func WithPosition(p param.Vec3) Option {
	return func(s *shape) { s.Transform.Position = p }
}

// WithRotation sets the leaf's Euler rotation in degrees.
func WithRotation(r param.Vec3) Option {
	return func(s *shape) { s.Transform.Rotation = r }
}

// WithScale sets the leaf's per-axis scale.
func WithScale(sc param.Vec3) Option {
	return func(s *shape) { s.Transform.Scale = sc }
}

// WithModifiers appends domain warps, applied in order.
func WithModifiers(ms ...Modifier) Option {
	return func(s *shape) { s.Modifiers = append(s.Modifiers, ms...) }
}

// WithMaterial sets the leaf's material.
func WithMaterial(m MaterialParams) Option {
	return func(s *shape) { s.Material = m }
}

func newShape(opts []Option) shape {
	s := shape{
		Transform: Identity(),
		Material:  ConstMaterial(DirectMaterial()),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *shape) evaluate(src param.Source, t float64) {
	s.Transform.Evaluate(src, t)
	s.Modifiers.Evaluate(src, t)
	s.material = s.Material.Resolve(src, t)
}

// local maps p into the leaf frame and runs the modifier chain.
func (s *shape) local(p v3.Vec) (v3.Vec, bool) {
	q, ok := s.Transform.ToLocal(p)
	if !ok {
		return q, false
	}
	return s.Modifiers.Apply(q), true
}

func (s *shape) sample(d float64, trap Trap) Sample {
	if d != FarDistance {
		d *= s.Transform.DistanceScale()
	}
	return Sample{Distance: d, Trap: trap, Material: s.material}
}

func (s *shape) Placement() *Transform   { return &s.Transform }
func (s *shape) Surface() MaterialParams { return s.Material }
func (s *shape) Warps() Chain            { return s.Modifiers }

func (s *shape) far() Sample {
	return Far(s.material)
}

func (s *shape) clone() shape {
	c := *s
	c.Modifiers = s.Modifiers.Clone()
	return c
}

// ---------------------------------------------------------------------------
// Sphere
// ---------------------------------------------------------------------------

// Sphere is centred on its local origin.
type Sphere struct {
	shape
	Radius param.Scalar

	radius float64
}

// NewSphere returns a sphere resolved at t = 0.
func NewSphere(radius param.Scalar, opts ...Option) *Sphere {
	s := &Sphere{shape: newShape(opts), Radius: radius}
	s.Evaluate(nil, 0)
	return s
}

func (s *Sphere) Kind() Kind { return KindSphere }
func (s *Sphere) node()      {}

func (s *Sphere) Query(p v3.Vec) Sample {
	q, ok := s.local(p)
	if !ok {
		return s.far()
	}
	return s.sample(q.Length()-s.radius, Trap{})
}

func (s *Sphere) Evaluate(src param.Source, t float64) {
	s.evaluate(src, t)
	s.radius = s.Radius.Resolve(src, t)
}

func (s *Sphere) Clone() Node {
	c := *s
	c.shape = s.shape.clone()
	return &c
}

// ---------------------------------------------------------------------------
// Torus
// ---------------------------------------------------------------------------

// Torus lies in the local xz plane.
type Torus struct {
	shape
	Major param.Scalar
	Minor param.Scalar

	major, minor float64
}

// NewTorus returns a torus resolved at t = 0.
func NewTorus(major, minor param.Scalar, opts ...Option) *Torus {
	tr := &Torus{shape: newShape(opts), Major: major, Minor: minor}
	tr.Evaluate(nil, 0)
	return tr
}

func (tr *Torus) Kind() Kind { return KindTorus }
func (tr *Torus) node()      {}

func (tr *Torus) Query(p v3.Vec) Sample {
	q, ok := tr.local(p)
	if !ok {
		return tr.far()
	}
	l := math.Sqrt(q.X*q.X+q.Z*q.Z) - tr.major
	return tr.sample(math.Sqrt(l*l+q.Y*q.Y)-tr.minor, Trap{})
}

func (tr *Torus) Evaluate(src param.Source, t float64) {
	tr.evaluate(src, t)
	tr.major = tr.Major.Resolve(src, t)
	tr.minor = tr.Minor.Resolve(src, t)
}

func (tr *Torus) Clone() Node {
	c := *tr
	c.shape = tr.shape.clone()
	return &c
}

// ---------------------------------------------------------------------------
// Cube
// ---------------------------------------------------------------------------

// Cube is an axis-aligned box; Size holds the half extents.
type Cube struct {
	shape
	Size param.Vec3

	size v3.Vec
}

// NewCube returns a box resolved at t = 0.
func NewCube(size param.Vec3, opts ...Option) *Cube {
	c := &Cube{shape: newShape(opts), Size: size}
	c.Evaluate(nil, 0)
	return c
}

func (c *Cube) Kind() Kind { return KindCube }
func (c *Cube) node()      {}

func (c *Cube) Query(p v3.Vec) Sample {
	q, ok := c.local(p)
	if !ok {
		return c.far()
	}
	d := q.Abs().Sub(c.size)
	inside := math.Min(math.Max(d.X, math.Max(d.Y, d.Z)), 0)
	outside := v3.Vec{X: math.Max(d.X, 0), Y: math.Max(d.Y, 0), Z: math.Max(d.Z, 0)}
	return c.sample(inside+outside.Length(), Trap{})
}

func (c *Cube) Evaluate(src param.Source, t float64) {
	c.evaluate(src, t)
	c.size = c.Size.Resolve(src, t)
}

func (c *Cube) Clone() Node {
	cp := *c
	cp.shape = c.shape.clone()
	return &cp
}
