// Package solver sphere-traces rays through a list of root distance fields.
//
// A Solver is read-only during Solve and SolveSimple, so one frame can be
// rendered from many goroutines. Evaluate is the only mutator and must run
// alone, before the frame's rays are traced.
package solver

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ray is a half-line. Direction must be unit length.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// At returns the point at distance d along the ray.
func (r Ray) At(d float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(d))
}

// Intersection is the outcome of a primary ray.
type Intersection struct {
	Hit      bool
	Distance float64 // distance travelled along the ray
	Steps    int
	Position v3.Vec
	Normal   v3.Vec // zero unless Hit
	Trap     field.Trap
	Material field.Material
}

// ShadowResult is the outcome of a visibility ray.
type ShadowResult struct {
	Hit      bool
	Distance float64
	Steps    int
}

// Solver owns the root fields of a scene. The roots are shared, not copied:
// callers that keep their own references must not Evaluate them while a
// frame is being traced.
type Solver struct {
	cfg      Config
	roots    []field.Node
	fallback field.Material
}

// New returns a solver over roots. An empty root list is valid and never
// hits anything.
func New(cfg Config, roots ...field.Node) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{
		cfg:      cfg,
		roots:    append([]field.Node(nil), roots...),
		fallback: field.DirectMaterial(),
	}, nil
}

// Config returns the solver's tunables.
func (s *Solver) Config() Config { return s.cfg }

// Roots returns the root list. The slice is a copy; the nodes are not.
func (s *Solver) Roots() []field.Node {
	return append([]field.Node(nil), s.roots...)
}

// Evaluate resolves every root at time t.
func (s *Solver) Evaluate(src param.Source, t float64) {
	for _, r := range s.roots {
		r.Evaluate(src, t)
	}
}

// QueryWorld returns the closest root sample at p. With no roots the
// distance is field.FarDistance.
func (s *Solver) QueryWorld(p v3.Vec) field.Sample {
	best := field.Far(s.fallback)
	for _, r := range s.roots {
		if smp := r.Query(p); smp.Distance < best.Distance {
			best = smp
		}
	}
	return best
}

// Solve marches a primary ray. A hit carries the surface normal; if the
// field has no usable gradient at the hit point the result is reported as
// a miss with a zero normal.
func (s *Solver) Solve(ray Ray) Intersection {
	pos := ray.Origin
	total := 0.0
	for step := 0; step < s.cfg.StepLimit; step++ {
		smp := s.QueryWorld(pos)
		if smp.Distance < s.cfg.MinDist {
			res := Intersection{
				Hit:      true,
				Distance: total,
				Steps:    step,
				Position: pos,
				Trap:     smp.Trap,
				Material: smp.Material,
			}
			n, ok := s.Normal(pos)
			if !ok {
				res.Hit = false
				return res
			}
			res.Normal = n
			return res
		}
		if smp.Distance > s.cfg.MaxDist {
			return Intersection{
				Distance: total,
				Steps:    step,
				Position: pos,
				Trap:     smp.Trap,
				Material: smp.Material,
			}
		}
		total += smp.Distance
		pos = pos.Add(ray.Direction.MulScalar(smp.Distance))
	}
	return Intersection{
		Distance: total,
		Steps:    s.cfg.StepLimit,
		Position: pos,
		Material: s.fallback,
	}
}

// SolveSimple marches a visibility ray, giving up once the ray has travelled
// past maxDistance. It uses the light tunables and reports no surface data.
func (s *Solver) SolveSimple(ray Ray, maxDistance float64) ShadowResult {
	pos := ray.Origin
	total := 0.0
	for step := 0; step < s.cfg.LightStepLimit; step++ {
		d := s.QueryWorld(pos).Distance
		if d < s.cfg.LightMinDist {
			return ShadowResult{Hit: true, Distance: total, Steps: step}
		}
		if d > s.cfg.MaxDist || total > maxDistance {
			return ShadowResult{Distance: total, Steps: step}
		}
		total += d
		pos = pos.Add(ray.Direction.MulScalar(d))
	}
	return ShadowResult{Distance: total, Steps: s.cfg.LightStepLimit}
}

// Normal estimates the unit gradient at p by central differences. ok is
// false when the gradient vanishes or is not finite.
func (s *Solver) Normal(p v3.Vec) (v3.Vec, bool) {
	e := s.cfg.NormalEpsilon
	dx := v3.Vec{X: e}
	dy := v3.Vec{Y: e}
	dz := v3.Vec{Z: e}
	g := v3.Vec{
		X: s.QueryWorld(p.Add(dx)).Distance - s.QueryWorld(p.Sub(dx)).Distance,
		Y: s.QueryWorld(p.Add(dy)).Distance - s.QueryWorld(p.Sub(dy)).Distance,
		Z: s.QueryWorld(p.Add(dz)).Distance - s.QueryWorld(p.Sub(dz)).Distance,
	}
	l := g.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v3.Vec{}, false
	}
	return g.MulScalar(1 / l), true
}
