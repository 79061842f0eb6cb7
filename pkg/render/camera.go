package render

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/solver"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultFOV is the vertical field of view, in degrees, at which the image
// plane sits one unit tall at unit distance.
var DefaultFOV = 2 * math.Atan(0.5) * 180 / math.Pi

// Camera looks down its local -z axis. Rotation is in degrees (pitch about
// x, yaw about y, roll about z).
//
// With a zero LensRadius it is a pinhole and everything is sharp. A positive
// LensRadius makes it a thin lens: rays leave from a disk of that radius and
// converge on the plane FocalDistance in front of the camera, so geometry off
// that plane blurs once several rays per pixel are averaged.
type Camera struct {
	Position      param.Vec3
	Rotation      param.Vec3
	FOV           param.Scalar
	LensRadius    param.Scalar
	FocalDistance param.Scalar

	pos   v3.Vec
	rot   sdf.M44
	plane float64
	lens  float64
	focus float64
}

// NewCamera returns a pinhole camera resolved at t = 0.
func NewCamera(position, rotation param.Vec3, fov param.Scalar) *Camera {
	return NewThinLensCamera(position, rotation, fov, param.Const(0), param.Const(0))
}

// NewThinLensCamera returns a thin lens camera resolved at t = 0.
func NewThinLensCamera(position, rotation param.Vec3, fov, lensRadius, focalDistance param.Scalar) *Camera {
	c := &Camera{
		Position:      position,
		Rotation:      rotation,
		FOV:           fov,
		LensRadius:    lensRadius,
		FocalDistance: focalDistance,
	}
	c.Evaluate(nil, 0)
	return c
}

// DefaultCamera sits at (0, 0, 10) looking at the origin.
func DefaultCamera() *Camera {
	return NewCamera(param.ConstVec3(0, 0, 10), param.ConstVec3(0, 0, 0), param.Const(DefaultFOV))
}

// Evaluate resolves the camera at time t.
func (c *Camera) Evaluate(src param.Source, t float64) {
	c.pos = c.Position.Resolve(src, t)
	r := c.Rotation.Resolve(src, t)
	rx := sdf.RotateX(r.X * math.Pi / 180)
	ry := sdf.RotateY(r.Y * math.Pi / 180)
	rz := sdf.RotateZ(r.Z * math.Pi / 180)
	c.rot = rz.Mul(ry).Mul(rx)

	fov := c.FOV.Resolve(src, t)
	if !(fov > 0 && fov < 180) {
		fov = DefaultFOV
	}
	c.plane = 2 * math.Tan(fov*math.Pi/360)

	c.lens = c.LensRadius.Resolve(src, t)
	c.focus = c.FocalDistance.Resolve(src, t)
	if !(c.lens > 0 && c.focus > 0) || math.IsInf(c.lens, 0) || math.IsInf(c.focus, 0) {
		c.lens, c.focus = 0, 0
	}
}

// HasLens reports whether the camera currently samples a lens disk.
func (c *Camera) HasLens() bool {
	return c.lens > 0
}

// Clone returns an independent copy.
func (c *Camera) Clone() *Camera {
	cp := *c
	return &cp
}

// Ray returns the unit ray through image position (x, y) of a width by
// height image. x and y are continuous pixel coordinates with (0, 0) at the
// top-left corner. The ray leaves from the lens centre.
func (c *Camera) Ray(x, y float64, width, height int) solver.Ray {
	return c.LensRay(x, y, width, height, 0.5, 0.5)
}

// LensRay is Ray leaving from the lens point that (u, v) in [0, 1)² maps to.
// A pinhole camera ignores u and v.
func (c *Camera) LensRay(x, y float64, width, height int, u, v float64) solver.Ray {
	w, h := float64(width), float64(height)
	rx := ((x/w - 0.5) * w / h) * c.plane
	ry := ((1 - y/h) - 0.5) * c.plane
	dir := v3.Vec{X: rx, Y: ry, Z: -1}
	if c.lens == 0 {
		return solver.Ray{Origin: c.pos, Direction: c.rot.MulPosition(dir).Normalize()}
	}

	// dir has unit depth, so scaling it by the focal distance lands on the
	// plane of focus
	focus := dir.MulScalar(c.focus)
	lx, ly := concentricDisk(u, v)
	onLens := v3.Vec{X: lx * c.lens, Y: ly * c.lens}
	return solver.Ray{
		Origin:    c.pos.Add(c.rot.MulPosition(onLens)),
		Direction: c.rot.MulPosition(focus.Sub(onLens)).Normalize(),
	}
}

// concentricDisk maps the unit square onto the unit disk, keeping strata
// adjacent (Shirley and Chiu).
func concentricDisk(u, v float64) (float64, float64) {
	ox, oy := 2*u-1, 2*v-1
	if ox == 0 && oy == 0 {
		return 0, 0
	}
	var r, theta float64
	if math.Abs(ox) > math.Abs(oy) {
		r, theta = ox, math.Pi/4*(oy/ox)
	} else {
		r, theta = oy, math.Pi/2-math.Pi/4*(ox/oy)
	}
	s, c := math.Sincos(theta)
	return r * c, r * s
}
