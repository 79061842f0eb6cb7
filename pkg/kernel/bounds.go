package kernel

import (
	"fmt"
	"math"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/param"
)

// Bounds is an axis-aligned box.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Empty reports whether the box has no volume.
func (b Bounds) Empty() bool {
	return !(b.Min[0] < b.Max[0] && b.Min[1] < b.Max[1] && b.Min[2] < b.Max[2])
}

// Union returns the smallest box containing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], o.Min[i])
		b.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return b
}

// Intersect returns the overlap of b and o, which may be empty.
func (b Bounds) Intersect(o Bounds) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Max(b.Min[i], o.Min[i])
		b.Max[i] = math.Min(b.Max[i], o.Max[i])
	}
	return b
}

// Pad grows the box by d on every side.
func (b Bounds) Pad(d float64) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] -= d
		b.Max[i] += d
	}
	return b
}

// Cube returns the box of half width r around c.
func Cube(c [3]float64, r float64) Bounds {
	return Bounds{
		Min: [3]float64{c[0] - r, c[1] - r, c[2] - r},
		Max: [3]float64{c[0] + r, c[1] + r, c[2] + r},
	}
}

// Local radii of the fractals' interesting region.
const (
	mandelbulbRadius = 1.2
	juliaRadius      = 2.0
)

// EstimateBounds returns a conservative box around the surface of n at time
// t. It fails for fields that extend without limit, such as unbounded
// repetition.
func EstimateBounds(n field.Node, src param.Source, t float64) (Bounds, error) {
	switch v := n.(type) {
	case *field.Composite:
		return compositeBounds(v, src, t)
	case field.Leaf:
		return leafBounds(v, src, t)
	}
	return Bounds{}, fmt.Errorf("kernel: no bounds for %s", n.Kind())
}

func compositeBounds(c *field.Composite, src param.Source, t float64) (Bounds, error) {
	children := c.Children()
	boxes := make([]Bounds, len(children))
	for i, ch := range children {
		b, err := EstimateBounds(ch, src, t)
		if err != nil {
			// The cutter of a subtraction may be unbounded.
			if i == 0 && (c.Op == field.OpSubtract || c.Op == field.OpSmoothSubtract) {
				continue
			}
			return Bounds{}, err
		}
		boxes[i] = b
	}

	pad := 0.0
	if c.Op.Smooth() {
		pad = math.Max(c.K.Resolve(src, t), 0)
	}

	var out Bounds
	switch c.Op {
	case field.OpUnion, field.OpSmoothUnion:
		out = boxes[0]
		for _, b := range boxes[1:] {
			out = out.Union(b)
		}
	case field.OpIntersect, field.OpSmoothIntersect:
		out = boxes[0]
		for _, b := range boxes[1:] {
			out = out.Intersect(b)
		}
	case field.OpSubtract, field.OpSmoothSubtract:
		out = boxes[1]
		for _, b := range boxes[2:] {
			out = out.Intersect(b)
		}
	default:
		return Bounds{}, fmt.Errorf("kernel: no bounds for %s", c.Op)
	}
	return out.Pad(pad), nil
}

func leafBounds(l field.Leaf, src param.Source, t float64) (Bounds, error) {
	var r float64
	switch v := l.(type) {
	case *field.Sphere:
		r = math.Abs(v.Radius.Resolve(src, t))
	case *field.Torus:
		r = math.Abs(v.Major.Resolve(src, t)) + math.Abs(v.Minor.Resolve(src, t))
	case *field.Cube:
		s := v.Size.Resolve(src, t)
		r = s.Abs().Length()
	case *field.Mandelbulb:
		r = mandelbulbRadius
	case *field.Julia:
		r = juliaRadius
	default:
		return Bounds{}, fmt.Errorf("kernel: no bounds for %s", l.Kind())
	}

	for _, m := range l.Warps() {
		switch v := m.(type) {
		case *field.Twist, *field.Bend:
			// rotations about an axis through the origin keep the radius
		case *field.Distort:
			r += math.Abs(v.Factor.Resolve(src, t)) * math.Sqrt(3)
		case *field.Repeat:
			p := v.Period.Resolve(src, t)
			var ext [3]float64
			for i, c := range [3]float64{p.X, p.Y, p.Z} {
				if c == 0 {
					continue
				}
				if v.Limit[i] <= 0 {
					return Bounds{}, fmt.Errorf("kernel: %s repeats without limit", l.Kind())
				}
				ext[i] = math.Abs(c) * v.Limit[i]
			}
			r += math.Sqrt(ext[0]*ext[0] + ext[1]*ext[1] + ext[2]*ext[2])
		}
	}

	tr := l.Placement()
	pos := tr.Position.Resolve(src, t)
	sc := tr.Scale.Resolve(src, t).Abs()
	maxScale := math.Max(sc.X, math.Max(sc.Y, sc.Z))
	if maxScale == 0 {
		return Bounds{}, fmt.Errorf("kernel: %s has zero scale", l.Kind())
	}
	return Cube([3]float64{pos.X, pos.Y, pos.Z}, r*maxScale), nil
}
