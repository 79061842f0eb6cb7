package field

import (
	"errors"
	"fmt"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrTooFewChildren is returned when a composite is built with fewer than
// two children.
var ErrTooFewChildren = errors.New("composite needs at least two children")

// Op is a CSG combination rule.
type Op int

const (
	OpUnion Op = iota
	OpSubtract
	OpIntersect
	OpSmoothUnion
	OpSmoothSubtract
	OpSmoothIntersect
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	case OpSmoothUnion:
		return "smooth-union"
	case OpSmoothSubtract:
		return "smooth-subtract"
	case OpSmoothIntersect:
		return "smooth-intersect"
	default:
		return "unknown"
	}
}

// Smooth reports whether the op blends with a smoothing factor.
func (o Op) Smooth() bool {
	return o == OpSmoothUnion || o == OpSmoothSubtract || o == OpSmoothIntersect
}

// Composite folds its children left to right with Op. It has no transform of
// its own: points arrive in the parent's frame and are passed on unchanged.
//
// Sharp ops keep the sample whose distance wins, ties going to the
// accumulator. Smooth ops take trap and material from the child most recently
// folded in. Child order matters for both subtract variants.
type Composite struct {
	Op Op
	K  param.Scalar // smoothing radius, ignored by sharp ops

	k        float64
	children []Node
}

// NewComposite combines children with op. Children are owned by the
// composite from here on.
func NewComposite(op Op, k param.Scalar, children ...Node) (*Composite, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("field: %s with %d children: %w", op, len(children), ErrTooFewChildren)
	}
	for i, ch := range children {
		if ch == nil {
			return nil, fmt.Errorf("field: %s child %d is nil", op, i)
		}
	}
	c := &Composite{
		Op:       op,
		K:        k,
		children: append([]Node(nil), children...),
	}
	c.k = c.K.Resolve(nil, 0)
	return c, nil
}

// Union returns the sharp union of children.
func Union(children ...Node) (*Composite, error) {
	return NewComposite(OpUnion, param.Scalar{}, children...)
}

// Subtract returns max(-children[0], children[1], ...).
func Subtract(children ...Node) (*Composite, error) {
	return NewComposite(OpSubtract, param.Scalar{}, children...)
}

// Intersect returns the sharp intersection of children.
func Intersect(children ...Node) (*Composite, error) {
	return NewComposite(OpIntersect, param.Scalar{}, children...)
}

// SmoothUnion blends children with radius k.
func SmoothUnion(k param.Scalar, children ...Node) (*Composite, error) {
	return NewComposite(OpSmoothUnion, k, children...)
}

// SmoothSubtract blends the subtraction with radius k.
func SmoothSubtract(k param.Scalar, children ...Node) (*Composite, error) {
	return NewComposite(OpSmoothSubtract, k, children...)
}

// SmoothIntersect blends the intersection with radius k.
func SmoothIntersect(k param.Scalar, children ...Node) (*Composite, error) {
	return NewComposite(OpSmoothIntersect, k, children...)
}

func (c *Composite) Kind() Kind { return KindComposite }
func (c *Composite) node()      {}

// Children returns the child list. The slice is a copy; the nodes are not.
func (c *Composite) Children() []Node {
	return append([]Node(nil), c.children...)
}

func (c *Composite) Query(p v3.Vec) Sample {
	acc := c.children[0].Query(p)
	if c.Op == OpSubtract {
		acc.Distance = -acc.Distance
	}
	for _, ch := range c.children[1:] {
		acc = combine(c.Op, c.k, acc, ch.Query(p))
	}
	return acc
}

// combine folds one child sample into the accumulator.
func combine(op Op, k float64, acc, child Sample) Sample {
	switch op {
	case OpUnion:
		if child.Distance < acc.Distance {
			return child
		}
		return acc
	case OpSubtract, OpIntersect:
		if child.Distance > acc.Distance {
			return child
		}
		return acc
	}

	a, b := acc.Distance, child.Distance
	out := child
	if k <= 0 {
		// the blend collapses to its sharp limit
		switch op {
		case OpSmoothUnion:
			out.Distance = min(b, a)
		case OpSmoothSubtract:
			out.Distance = max(b, -a)
		case OpSmoothIntersect:
			out.Distance = max(b, a)
		}
		return out
	}
	switch op {
	case OpSmoothUnion:
		h := clamp01(0.5 + 0.5*(b-a)/k)
		out.Distance = mix(b, a, h) - k*h*(1-h)
	case OpSmoothSubtract:
		h := clamp01(0.5 - 0.5*(b+a)/k)
		out.Distance = mix(b, -a, h) + k*h*(1-h)
	case OpSmoothIntersect:
		h := clamp01(0.5 - 0.5*(b-a)/k)
		out.Distance = mix(b, a, h) + k*h*(1-h)
	}
	return out
}

func (c *Composite) Evaluate(src param.Source, t float64) {
	for _, ch := range c.children {
		ch.Evaluate(src, t)
	}
	c.k = c.K.Resolve(src, t)
}

func (c *Composite) Clone() Node {
	cp := *c
	cp.children = make([]Node, len(c.children))
	for i, ch := range c.children {
		cp.children[i] = ch.Clone()
	}
	return &cp
}
