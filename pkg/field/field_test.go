package field

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const tol = 1e-12

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

func assertNear(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s = %.15g, want %.15g (eps %g)", name, got, want, eps)
	}
}

func unitSphereAt(x float64) *Sphere {
	return NewSphere(param.Const(1), WithPosition(param.ConstVec3(x, 0, 0)))
}

var samplePoints = []v3.Vec{
	vec(0, 0, 0), vec(1, 2, 3), vec(-3, 0.5, 0.25), vec(0.1, -0.2, 5),
	vec(10, -10, 10), vec(0.5, 0.5, 0.5), vec(-1.5, 0, 0), vec(2, 0, 0),
}

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

func TestSphereExact(t *testing.T) {
	s := NewSphere(param.Const(2))
	for _, p := range samplePoints {
		assertNear(t, "distance", s.Query(p).Distance, p.Length()-2, tol)
	}
}

func TestSphereDefaultMaterial(t *testing.T) {
	s := NewSphere(param.Const(1))
	if got := s.Query(vec(0, 0, 3)).Material; got != DirectMaterial() {
		t.Fatalf("material = %+v, want direct %+v", got, DirectMaterial())
	}
	m := NewSphere(param.Const(1), WithMaterial(ConstMaterial(BaseMaterial())))
	if got := m.Query(vec(0, 0, 3)).Material; got != BaseMaterial() {
		t.Fatalf("material = %+v, want base", got)
	}
}

func TestTorusExact(t *testing.T) {
	tr := NewTorus(param.Const(3), param.Const(0.5))
	for _, p := range samplePoints {
		l := math.Sqrt(p.X*p.X+p.Z*p.Z) - 3
		want := math.Sqrt(l*l+p.Y*p.Y) - 0.5
		assertNear(t, "distance", tr.Query(p).Distance, want, tol)
	}
	// on the tube centre line
	assertNear(t, "centre", tr.Query(vec(3, 0, 0)).Distance, -0.5, tol)
}

func TestCubeExact(t *testing.T) {
	c := NewCube(param.ConstVec3(1, 2, 3))
	tests := []struct {
		p    v3.Vec
		want float64
	}{
		{vec(0, 0, 0), -1},
		{vec(2, 0, 0), 1},
		{vec(0, 5, 0), 3},
		{vec(2, 3, 0), math.Sqrt2},
		{vec(0.5, 1.5, 2), -0.5},
	}
	for _, tt := range tests {
		assertNear(t, "distance", c.Query(tt.p).Distance, tt.want, tol)
	}
}

func TestTransformTranslateRotateScale(t *testing.T) {
	moved := NewSphere(param.Const(1), WithPosition(param.ConstVec3(5, 0, 0)))
	assertNear(t, "translated", moved.Query(vec(5, 0, 0)).Distance, -1, 1e-9)
	assertNear(t, "translated outside", moved.Query(vec(7, 0, 0)).Distance, 1, 1e-9)

	// a long box rotated 90 degrees about z now extends along y
	box := NewCube(param.ConstVec3(4, 1, 1), WithRotation(param.ConstVec3(0, 0, 90)))
	assertNear(t, "rotated along y", box.Query(vec(0, 3.5, 0)).Distance, -0.5, 1e-9)
	assertNear(t, "rotated along x", box.Query(vec(3.5, 0, 0)).Distance, 2.5, 1e-9)

	// uniform scale keeps distances exact
	big := NewSphere(param.Const(1), WithScale(param.ConstVec3(2, 2, 2)))
	assertNear(t, "scaled", big.Query(vec(0, 0, 5)).Distance, 3, 1e-9)
}

func TestScaledDistanceUsesSmallestFactor(t *testing.T) {
	tests := []struct {
		name  string
		scale param.Vec3
		at    v3.Vec
		want  float64
	}{
		// local point (2, 0, 0) is 1 from the unit sphere, times 2
		{"uniform", param.ConstVec3(2, 2, 2), vec(4, 0, 0), 2},
		// local (2, 0, 0) again, but only the unit y and z factors count,
		// so the true gap of 2 is underestimated
		{"stretched along x", param.ConstVec3(2, 1, 1), vec(4, 0, 0), 1},
		{"squashed along y", param.ConstVec3(1, 0.5, 1), vec(0, 0, 3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSphere(param.Const(1), WithScale(tt.scale))
			assertNear(t, "distance", s.Query(tt.at).Distance, tt.want, 1e-9)
		})
	}
}

func TestTransformDegenerateScale(t *testing.T) {
	s := NewSphere(param.Const(1), WithScale(param.ConstVec3(1, 0, 1)))
	if d := s.Query(vec(0, 0, 0)).Distance; d != FarDistance {
		t.Fatalf("distance = %v, want FarDistance", d)
	}
}

func TestEvaluateRefreshesParameters(t *testing.T) {
	tb := param.NewTable()
	tb.Set("r", param.Interpolator{Min: 1, Max: 3, Interval: 2})
	tb.Set("x", param.Constant(10))
	s := NewSphere(param.Bind("r", 1),
		WithPosition(param.Vec3{param.Bind("x", 0), param.Const(0), param.Const(0)}))

	// before Evaluate the defaults apply
	assertNear(t, "default", s.Query(vec(0, 0, 0)).Distance, -1, tol)

	s.Evaluate(tb, 1)
	assertNear(t, "t=1", s.Query(vec(10, 0, 0)).Distance, -2, 1e-9)

	// idempotent for a fixed t
	s.Evaluate(tb, 1)
	assertNear(t, "t=1 again", s.Query(vec(10, 0, 0)).Distance, -2, 1e-9)
}

// ---------------------------------------------------------------------------
// Fractals
// ---------------------------------------------------------------------------

func TestMandelbulbFarPointEscapesImmediately(t *testing.T) {
	m := NewMandelbulb(param.Const(8))
	p := vec(3, 0, 0)
	got := m.Query(p)
	// escapes on iteration 0 with dr = 1
	assertNear(t, "distance", got.Distance, 0.5*math.Log(3)*3, tol)
	if got.Trap != (Trap{0, 0, 0, 0}) {
		t.Fatalf("trap = %v, want zero iterations", got.Trap)
	}
}

func TestMandelbulbTrapIsIterationCount(t *testing.T) {
	m := NewMandelbulb(param.Const(8))
	got := m.Query(vec(0.5, 0.5, 0.5))
	n := got.Trap[0]
	if n < 0 || n > 14 {
		t.Fatalf("iteration count %v outside [0,14]", n)
	}
	for i := 1; i < 4; i++ {
		if got.Trap[i] != n {
			t.Fatalf("trap slots differ: %v", got.Trap)
		}
	}
}

func TestFractalDegeneracyIsFar(t *testing.T) {
	m := NewMandelbulb(param.Const(8))
	if d := m.Query(vec(0, 0, 0)).Distance; d != FarDistance {
		t.Fatalf("mandelbulb origin distance = %v, want FarDistance", d)
	}
	// with c = 0 the origin is a fixed point and |z|^2 stays 0
	j := NewJulia([4]param.Scalar{})
	if d := j.Query(vec(0, 0, 0)).Distance; d != FarDistance {
		t.Fatalf("julia origin distance = %v, want FarDistance", d)
	}
}

func TestJuliaEstimate(t *testing.T) {
	c := [4]param.Scalar{param.Const(-0.2), param.Const(0.8), param.Const(0), param.Const(0)}
	j := NewJulia(c)
	for _, p := range samplePoints {
		d := j.Query(p).Distance
		if math.IsNaN(d) || math.IsInf(d, 0) {
			t.Fatalf("distance at %v = %v", p, d)
		}
	}
	// a far point escapes after one iteration: z = (x^2 + cx, cy, 0, 0)
	p := vec(3, 0, 0)
	z0 := 9 - 0.2
	mz2 := z0*z0 + 0.8*0.8
	md2 := 4 * 9.0
	want := 0.25 * math.Sqrt(mz2/md2) * math.Log(mz2)
	got := j.Query(p)
	assertNear(t, "distance", got.Distance, want, tol)
	if got.Trap[1] != 0 || got.Trap[2] != 0 {
		t.Fatalf("trap minima = %v, want y and z at 0", got.Trap)
	}
}

// ---------------------------------------------------------------------------
// Composite
// ---------------------------------------------------------------------------

func TestCompositeNeedsTwoChildren(t *testing.T) {
	_, err := Union(unitSphereAt(0))
	if !errors.Is(err, ErrTooFewChildren) {
		t.Fatalf("err = %v, want ErrTooFewChildren", err)
	}
	if _, err := Union(unitSphereAt(0), nil); err == nil {
		t.Fatal("expected error for nil child")
	}
}

func TestCSGAlgebra(t *testing.T) {
	a := NewSphere(param.Const(2))
	b := NewCube(param.ConstVec3(1, 1, 1), WithPosition(param.ConstVec3(1, 0, 0)))
	u, _ := Union(a, b)
	i, _ := Intersect(a, b)
	s, _ := Subtract(a, b)
	for _, p := range samplePoints {
		da, db := a.Query(p).Distance, b.Query(p).Distance
		assertNear(t, "union", u.Query(p).Distance, math.Min(da, db), tol)
		assertNear(t, "intersect", i.Query(p).Distance, math.Max(da, db), tol)
		assertNear(t, "subtract", s.Query(p).Distance, math.Max(-da, db), tol)
	}
}

func TestUnionTwoSpheres(t *testing.T) {
	u, err := Union(unitSphereAt(-2), unitSphereAt(2))
	if err != nil {
		t.Fatal(err)
	}
	assertNear(t, "union", u.Query(vec(0, 0, 0)).Distance, 1, 1e-9)

	const k = 0.5
	su, err := SmoothUnion(param.Const(k), unitSphereAt(-2), unitSphereAt(2))
	if err != nil {
		t.Fatal(err)
	}
	// equal distances: h = 0.5, mix = 1, minus k/4
	want := 1 - k*0.25
	got := su.Query(vec(0, 0, 0)).Distance
	assertNear(t, "smooth union", got, want, 1e-9)
	if got >= 1 {
		t.Fatalf("smooth union %v not strictly below union", got)
	}
}

func TestSubtractShell(t *testing.T) {
	s, err := Subtract(NewSphere(param.Const(2)), NewSphere(param.Const(1)))
	if err != nil {
		t.Fatal(err)
	}
	assertNear(t, "shell", s.Query(vec(1.5, 0, 0)).Distance, 0.5, tol)
	assertNear(t, "shell diag", s.Query(vec(0, 1.5, 0)).Distance, 0.5, tol)
}

func TestSmoothConvergesToSharp(t *testing.T) {
	a, b := unitSphereAt(-1.2), unitSphereAt(1.3)
	u, _ := Union(a, b)
	in, _ := Intersect(a, b)
	for _, k := range []float64{1, 0.1, 0.01, 0.001} {
		su, _ := SmoothUnion(param.Const(k), a, b)
		si, _ := SmoothIntersect(param.Const(k), a, b)
		for _, p := range samplePoints {
			if diff := math.Abs(su.Query(p).Distance - u.Query(p).Distance); diff > k+tol {
				t.Fatalf("k=%v smooth union differs by %v at %v", k, diff, p)
			}
			if diff := math.Abs(si.Query(p).Distance - in.Query(p).Distance); diff > k+tol {
				t.Fatalf("k=%v smooth intersect differs by %v at %v", k, diff, p)
			}
		}
	}
}

func TestSmoothZeroKIsSharp(t *testing.T) {
	a, b := unitSphereAt(-1), unitSphereAt(1.5)
	u, _ := Union(a, b)
	su, _ := SmoothUnion(param.Const(0), a, b)
	ss, _ := SmoothSubtract(param.Const(0), a, b)
	for _, p := range samplePoints {
		d := su.Query(p).Distance
		if math.IsNaN(d) {
			t.Fatalf("NaN at %v", p)
		}
		assertNear(t, "k=0 union", d, u.Query(p).Distance, tol)
		want := math.Max(b.Query(p).Distance, -a.Query(p).Distance)
		assertNear(t, "k=0 subtract", ss.Query(p).Distance, want, tol)
	}
}

func TestMaterialTravelsWithWinner(t *testing.T) {
	red := Material{Albedo: 0.9, Diffuse: 1}
	blue := Material{Albedo: 0.1, Diffuse: 1}
	a := NewSphere(param.Const(1), WithPosition(param.ConstVec3(-2, 0, 0)), WithMaterial(ConstMaterial(red)))
	b := NewSphere(param.Const(1), WithPosition(param.ConstVec3(2, 0, 0)), WithMaterial(ConstMaterial(blue)))

	u, _ := Union(a, b)
	if m := u.Query(vec(-2, 0, 0)).Material; m != red {
		t.Fatalf("near a: material %+v, want red", m)
	}
	if m := u.Query(vec(2, 0, 0)).Material; m != blue {
		t.Fatalf("near b: material %+v, want blue", m)
	}
	// exact tie: the accumulator (first child) keeps it
	if m := u.Query(vec(0, 0, 0)).Material; m != red {
		t.Fatalf("tie: material %+v, want red", m)
	}

	// smooth ops always take the latest child
	su, _ := SmoothUnion(param.Const(0.5), a, b)
	if m := su.Query(vec(-2, 0, 0)).Material; m != blue {
		t.Fatalf("smooth: material %+v, want blue", m)
	}
}

func TestSubtractIsOrdered(t *testing.T) {
	big, small := NewSphere(param.Const(2)), NewSphere(param.Const(1))
	ab, _ := Subtract(big, small)
	ba, _ := Subtract(small, big)
	p := vec(1.5, 0, 0)
	if ab.Query(p).Distance == ba.Query(p).Distance {
		t.Fatal("subtract should not be commutative")
	}
}

func TestCompositeEvaluateForwards(t *testing.T) {
	tb := param.NewTable()
	tb.Set("k", param.Constant(0.5))
	tb.Set("r", param.Constant(2))
	a := NewSphere(param.Bind("r", 1), WithPosition(param.ConstVec3(-3, 0, 0)))
	b := unitSphereAt(2)
	su, _ := SmoothUnion(param.Bind("k", 0), a, b)

	su.Evaluate(tb, 0)
	// a now has radius 2; both children sit 1 unit from the origin
	want := 1 - 0.5*0.25
	assertNear(t, "after evaluate", su.Query(vec(0, 0, 0)).Distance, want, 1e-9)
}

func TestNestedComposite(t *testing.T) {
	inner, _ := Union(unitSphereAt(-2), unitSphereAt(2))
	outer, err := Subtract(NewSphere(param.Const(0.5)), inner)
	if err != nil {
		t.Fatal(err)
	}
	assertNear(t, "nested", outer.Query(vec(2, 0, 0)).Distance, -1, 1e-9)
	if n := Count(outer); n != 5 {
		t.Fatalf("Count = %d, want 5", n)
	}
	if n := len(Leaves(outer)); n != 3 {
		t.Fatalf("Leaves = %d, want 3", n)
	}
}

func TestOpString(t *testing.T) {
	for op, want := range map[Op]string{
		OpUnion: "union", OpSmoothSubtract: "smooth-subtract", Op(99): "unknown",
	} {
		if got := op.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", op, got, want)
		}
	}
	if OpIntersect.Smooth() || !OpSmoothIntersect.Smooth() {
		t.Error("Smooth() misclassifies ops")
	}
}

// ---------------------------------------------------------------------------
// Clone and determinism
// ---------------------------------------------------------------------------

func TestCloneIsIndependent(t *testing.T) {
	tb := param.NewTable()
	tb.Set("r", param.Interpolator{Min: 1, Max: 2, Interval: 1})
	orig, _ := Union(
		NewSphere(param.Bind("r", 1), WithModifiers(NewTwist(param.Const(0.3)))),
		unitSphereAt(4),
	)
	cp := orig.Clone()

	orig.Evaluate(tb, 0.5)
	cp.Evaluate(tb, 0)

	p := vec(0, 0, 3)
	assertNear(t, "original", orig.Query(p).Distance, 3-1.5, 1e-9)
	assertNear(t, "clone", cp.Query(p).Distance, 3-1, 1e-9)
}

func TestQueryIsDeterministic(t *testing.T) {
	j := NewJulia([4]param.Scalar{param.Const(-0.4), param.Const(0.6), param.Const(0), param.Const(0)})
	m := NewMandelbulb(param.Const(8), WithModifiers(NewDistort(param.Const(0.1), param.Const(3), param.ConstVec3(0, 0, 0))))
	root, _ := SmoothUnion(param.Const(0.2), j, m)
	for _, p := range samplePoints {
		a, b := root.Query(p), root.Query(p)
		if math.Float64bits(a.Distance) != math.Float64bits(b.Distance) || a.Trap != b.Trap {
			t.Fatalf("query at %v not deterministic: %v vs %v", p, a, b)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		n    Node
		want string
	}{
		{NewSphere(param.Const(1)), "sphere"},
		{NewTorus(param.Const(1), param.Const(0.2)), "torus"},
		{NewCube(param.ConstVec3(1, 1, 1)), "cube"},
		{NewMandelbulb(param.Const(8)), "mandelbulb"},
		{NewJulia([4]param.Scalar{}), "julia"},
	}
	for _, tt := range tests {
		if got := tt.n.Kind().String(); got != tt.want {
			t.Errorf("Kind = %q, want %q", got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Modifiers
// ---------------------------------------------------------------------------

func TestModifiers(t *testing.T) {
	half := math.Pi / 2
	repeatX := func(period, limit float64) *Repeat {
		return NewRepeat(param.ConstVec3(period, 0, 0), [3]float64{limit, 0, 0})
	}
	twist := func() Modifier { return NewTwist(param.Const(half)) }

	tests := []struct {
		name string
		mod  interface{ Apply(v3.Vec) v3.Vec }
		in   v3.Vec
		want v3.Vec
	}{
		{"distort crest", NewDistort(param.Const(0.5), param.Const(1), param.ConstVec3(0, 0, 0)),
			vec(half, half, half), vec(half+0.5, half+0.5, half+0.5)},
		{"distort offset", NewDistort(param.Const(0.5), param.Const(1), param.ConstVec3(half, half, half)),
			vec(0, 0, 0), vec(0.5, 0.5, 0.5)},
		{"distort node", NewDistort(param.Const(0.5), param.Const(2), param.ConstVec3(0, 0, 0)),
			vec(0, 1, 1), vec(0, 1, 1)},
		{"distort trough", NewDistort(param.Const(0.25), param.Const(1), param.ConstVec3(0, 0, 0)),
			vec(-half, half, half), vec(-half-0.25, half-0.25, half-0.25)},

		{"twist at y=0", twist(), vec(1, 0, 0), vec(1, 0, 0)},
		{"twist quarter turn", twist(), vec(1, 1, 0), vec(0, 1, 1)},
		{"twist half turn", twist(), vec(1, 2, 0), vec(-1, 2, 0)},
		{"bend quarter turn", NewBend(param.Const(half)), vec(1, 0, 0), vec(0, 1, 0)},
		{"bend keeps z", NewBend(param.Const(math.Pi / 4)), vec(2, 0, 3), vec(0, 2, 3)},

		{"repeat positive", repeatX(4, 0), vec(5, 0, 0), vec(1, 0, 0)},
		{"repeat negative", repeatX(4, 0), vec(-5, 0, 0), vec(-1, 0, 0)},
		{"repeat far negative", repeatX(4, 0), vec(-13, 0, 0), vec(-1, 0, 0)},
		{"repeat inside cell", repeatX(4, 0), vec(1.5, 0, 0), vec(1.5, 0, 0)},
		{"limited repeat clamps", repeatX(4, 1), vec(13, 0, 0), vec(9, 0, 0)},
		{"limited repeat clamps negative", repeatX(4, 1), vec(-13, 0, 0), vec(-9, 0, 0)},
		{"limited repeat within limit", repeatX(4, 1), vec(3, 0, 0), vec(-1, 0, 0)},
		{"zero period untouched", NewRepeat(param.ConstVec3(4, 0, 4), [3]float64{}),
			vec(5, 7, -5), vec(1, 7, -1)},

		{"chain twist then repeat", Chain{twist(), repeatX(4, 0)}, vec(5, 1, 0), vec(0, 1, 5)},
		{"chain repeat then twist", Chain{repeatX(4, 0), twist()}, vec(5, 1, 0), vec(0, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mod.Apply(tt.in)
			if got.Sub(tt.want).Length() > 1e-9 {
				t.Fatalf("Apply(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModifiedLeafUsesWarpedPoint(t *testing.T) {
	s := NewSphere(param.Const(1), WithModifiers(NewRepeat(param.ConstVec3(4, 0, 0), [3]float64{})))
	assertNear(t, "copy at x=4", s.Query(vec(4, 0, 0)).Distance, -1, 1e-9)
	assertNear(t, "copy at x=-8", s.Query(vec(-8, 0, 0)).Distance, -1, 1e-9)
	assertNear(t, "between copies", s.Query(vec(2, 0, 0)).Distance, 1, 1e-9)
}
