package field

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Transform places a leaf in its parent's frame. Rotation is in degrees,
// applied X then Y then Z; scale is applied before rotation and translation
// after it.
//
// A scaled leaf is measured in its local frame and the result multiplied by
// the smallest absolute scale factor, so it does not report the raw local
// distance. Uniform scale stays exact: a unit sphere scaled by 2 is 2 away
// from (4, 0, 0). Non-uniform scale underestimates, which keeps marching
// safe.
type Transform struct {
	Position param.Vec3
	Rotation param.Vec3
	Scale    param.Vec3

	inverse    sdf.M44
	identity   bool
	degenerate bool
	minScale   float64
}

// Identity returns a transform with no translation, no rotation and unit scale.
func Identity() Transform {
	tr := Transform{
		Position: param.ConstVec3(0, 0, 0),
		Rotation: param.ConstVec3(0, 0, 0),
		Scale:    param.ConstVec3(1, 1, 1),
	}
	tr.Evaluate(nil, 0)
	return tr
}

// Evaluate rebuilds the inverse matrix for time t.
func (tr *Transform) Evaluate(src param.Source, t float64) {
	pos := tr.Position.Resolve(src, t)
	rot := tr.Rotation.Resolve(src, t)
	scl := tr.Scale.Resolve(src, t)

	tr.identity = pos == (v3.Vec{}) && rot == (v3.Vec{}) && scl == (v3.Vec{X: 1, Y: 1, Z: 1})
	tr.minScale = math.Min(math.Abs(scl.X), math.Min(math.Abs(scl.Y), math.Abs(scl.Z)))
	tr.degenerate = tr.minScale == 0 || !finite(tr.minScale)
	if tr.identity || tr.degenerate {
		tr.inverse = sdf.Identity3d()
		return
	}

	rx := sdf.RotateX(rot.X * math.Pi / 180)
	ry := sdf.RotateY(rot.Y * math.Pi / 180)
	rz := sdf.RotateZ(rot.Z * math.Pi / 180)
	fwd := sdf.Translate3d(pos).Mul(rz.Mul(ry).Mul(rx)).Mul(sdf.Scale3d(scl))
	tr.inverse = fwd.Inverse()
}

// ToLocal maps a parent-frame point into the leaf's frame. ok is false when
// a scale component is zero and no inverse exists.
func (tr *Transform) ToLocal(p v3.Vec) (v3.Vec, bool) {
	if tr.degenerate {
		return p, false
	}
	if tr.identity {
		return p, true
	}
	return tr.inverse.MulPosition(p), true
}

// DistanceScale converts a local-frame distance back into the parent frame.
// For non-uniform scale the smallest factor keeps the bound conservative.
func (tr *Transform) DistanceScale() float64 {
	if tr.identity {
		return 1
	}
	return tr.minScale
}
