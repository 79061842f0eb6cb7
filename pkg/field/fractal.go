package field

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	mandelbulbIterations = 15
	mandelbulbBailout    = 2.0
	juliaIterations      = 11
	juliaBailout         = 4.0 // on |z|^2
)

// ---------------------------------------------------------------------------
// Mandelbulb
// ---------------------------------------------------------------------------

// Mandelbulb is the power-n spherical Mandelbrot set. Its distance is an
// estimate, not exact. The trap reports the escape iteration in every slot.
type Mandelbulb struct {
	shape
	Power param.Scalar

	power float64
}

// NewMandelbulb returns a mandelbulb resolved at t = 0.
func NewMandelbulb(power param.Scalar, opts ...Option) *Mandelbulb {
	m := &Mandelbulb{shape: newShape(opts), Power: power}
	m.Evaluate(nil, 0)
	return m
}

func (m *Mandelbulb) Kind() Kind { return KindMandelbulb }
func (m *Mandelbulb) node()      {}

func (m *Mandelbulb) Query(p v3.Vec) Sample {
	q, ok := m.local(p)
	if !ok {
		return m.far()
	}
	d, n := mandelbulb(q, m.power)
	f := float64(n)
	return m.sample(d, Trap{f, f, f, f})
}

// mandelbulb returns the distance estimate and the last iteration index.
func mandelbulb(p v3.Vec, power float64) (float64, int) {
	z := p
	dr := 1.0
	r := 0.0
	n := 0
	for i := 0; i < mandelbulbIterations; i++ {
		n = i
		r = z.Length()
		if r > mandelbulbBailout {
			break
		}
		if r == 0 {
			return FarDistance, n
		}
		theta := math.Acos(z.Z/r) * power
		phi := math.Atan2(z.Y, z.X) * power
		dr = math.Pow(r, power-1)*power*dr + 1
		zr := math.Pow(r, power)

		st, ct := math.Sincos(theta)
		sp, cp := math.Sincos(phi)
		z = v3.Vec{X: st * cp * zr, Y: sp * st * zr, Z: ct * zr}.Add(p)
	}
	if r == 0 || dr == 0 {
		return FarDistance, n
	}
	d := 0.5 * math.Log(r) * r / dr
	if !finite(d) {
		return FarDistance, n
	}
	return d, n
}

func (m *Mandelbulb) Evaluate(src param.Source, t float64) {
	m.evaluate(src, t)
	m.power = m.Power.Resolve(src, t)
}

func (m *Mandelbulb) Clone() Node {
	c := *m
	c.shape = m.shape.clone()
	return &c
}

// ---------------------------------------------------------------------------
// Julia
// ---------------------------------------------------------------------------

// Julia is a 3D slice (w = 0) of the quaternion Julia set z <- z^2 + C.
// The trap holds the running minima of |x|, |y|, |z| and |q|^2.
type Julia struct {
	shape
	C [4]param.Scalar

	c [4]float64
}

// NewJulia returns a julia set resolved at t = 0.
func NewJulia(c [4]param.Scalar, opts ...Option) *Julia {
	j := &Julia{shape: newShape(opts), C: c}
	j.Evaluate(nil, 0)
	return j
}

func (j *Julia) Kind() Kind { return KindJulia }
func (j *Julia) node()      {}

func (j *Julia) Query(p v3.Vec) Sample {
	q, ok := j.local(p)
	if !ok {
		return j.far()
	}
	d, trap := julia(q, j.c)
	return j.sample(d, trap)
}

func julia(p v3.Vec, c [4]float64) (float64, Trap) {
	z := [4]float64{p.X, p.Y, p.Z, 0}
	md2 := 1.0
	mz2 := dot4(z, z)
	trap := Trap{math.Abs(z[0]), math.Abs(z[1]), math.Abs(z[2]), mz2}

	for i := 0; i < juliaIterations; i++ {
		md2 *= 4 * mz2
		z = [4]float64{
			z[0]*z[0] - z[1]*z[1] - z[2]*z[2] - z[3]*z[3] + c[0],
			2*z[0]*z[1] + c[1],
			2*z[0]*z[2] + c[2],
			2*z[0]*z[3] + c[3],
		}
		mz2 = dot4(z, z)
		trap = Trap{
			math.Min(trap[0], math.Abs(z[0])),
			math.Min(trap[1], math.Abs(z[1])),
			math.Min(trap[2], math.Abs(z[2])),
			math.Min(trap[3], mz2),
		}
		if mz2 > juliaBailout {
			break
		}
	}
	if mz2 <= 0 || md2 <= 0 {
		return FarDistance, trap
	}
	d := 0.25 * math.Sqrt(mz2/md2) * math.Log(mz2)
	if !finite(d) {
		return FarDistance, trap
	}
	return d, trap
}

func dot4(a, b [4]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

func (j *Julia) Evaluate(src param.Source, t float64) {
	j.evaluate(src, t)
	for i := range j.C {
		j.c[i] = j.C[i].Resolve(src, t)
	}
}

func (j *Julia) Clone() Node {
	c := *j
	c.shape = j.shape.clone()
	return &c
}
