package param

// Ease remaps a normalized position f in [0,1].
type Ease interface {
	Ease(f float64) float64
}

// Linear leaves f unchanged.
type Linear struct{}

// Ease implements Ease.
func (Linear) Ease(f float64) float64 { return f }

// Smoothstep is a polynomial ease. Order 1 is the cubic smoothstep, order 2
// the quintic smootherstep; any other order uses a steeper 9th degree curve.
type Smoothstep struct {
	Order int
}

// Ease implements Ease.
func (s Smoothstep) Ease(f float64) float64 {
	switch s.Order {
	case 1:
		return f * f * (3 - 2*f)
	case 2:
		return f * f * f * (f*(f*6-15) + 10)
	}
	sq := f * f
	sqsq := sq * sq
	return sqsq * (25 - 48*f + sq*(25-sqsq))
}

// CatmullRom evaluates a Catmull-Rom segment from 0 to 1 with outer control
// points P0 and P3, which allows overshoot at either end.
type CatmullRom struct {
	P0 float64
	P3 float64
}

// Ease implements Ease.
func (c CatmullRom) Ease(f float64) float64 {
	const p1, p2 = 0.0, 1.0
	p0, p3 := c.P0, c.P3
	return 0.5 * ((2 * p1) +
		(-p0+p2)*f +
		(2*p0-5*p1+4*p2-p3)*f*f +
		(-p0+3*p1-3*p2+p3)*f*f*f)
}
