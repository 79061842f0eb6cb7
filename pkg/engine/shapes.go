package engine

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/param"
	zygo "github.com/glycerine/zygomys/zygo"
)

// placement keywords accepted by every shape.
var leafKeywords = []string{"at", "rotate", "scale", "material", "modifiers"}

// leafOptions reads the placement, material and modifier keywords.
func (b *builder) leafOptions(fn string, pa kwArgs) ([]field.Option, error) {
	var opts []field.Option
	if v, ok := pa.kw["at"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: at: %w", fn, err)
		}
		opts = append(opts, field.WithPosition(vec))
	}
	if v, ok := pa.kw["rotate"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: rotate: %w", fn, err)
		}
		opts = append(opts, field.WithRotation(vec))
	}
	if v, ok := pa.kw["scale"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: scale: %w", fn, err)
		}
		opts = append(opts, field.WithScale(vec))
	}
	if v, ok := pa.kw["material"]; ok {
		m, err := toMaterial(v)
		if err != nil {
			return nil, fmt.Errorf("%s: material: %w", fn, err)
		}
		opts = append(opts, field.WithMaterial(m))
	}
	if v, ok := pa.kw["modifiers"]; ok {
		ms, err := toModifiers(v)
		if err != nil {
			return nil, fmt.Errorf("%s: modifiers: %w", fn, err)
		}
		opts = append(opts, field.WithModifiers(ms...))
	}
	return opts, nil
}

// leafArgs parses args for a shape taking the given keywords plus placement.
// Leading positional arguments stand in for the shape's own keywords, in
// order.
func (b *builder) leafArgs(fn string, args []zygo.Sexp, own ...string) (kwArgs, []field.Option, error) {
	pa := parseArgs(args)
	if err := pa.only(fn, append(append([]string(nil), own...), leafKeywords...)...); err != nil {
		return pa, nil, err
	}
	if len(pa.positional) > len(own) {
		return pa, nil, fmt.Errorf("%s: expected at most %d positional arguments, got %d", fn, len(own), len(pa.positional))
	}
	for i, v := range pa.positional {
		if _, dup := pa.kw[own[i]]; dup {
			return pa, nil, fmt.Errorf("%s: %s given both positionally and as :%s", fn, own[i], own[i])
		}
		pa.kw[own[i]] = v
	}
	opts, err := b.leafOptions(fn, pa)
	return pa, opts, err
}

func (b *builder) registerShapes(env *zygo.Zlisp) {

	// -----------------------------------------------------------------------
	// (sphere :radius 1 :at (vec3 0 1 0) :material m)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, opts, err := b.leafArgs("sphere", args, "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := b.scalarKW("sphere", pa, "radius", param.Const(1))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNode{node: field.NewSphere(r, opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (torus :major 1 :minor 0.25)
	// -----------------------------------------------------------------------
	env.AddFunction("torus", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, opts, err := b.leafArgs("torus", args, "major", "minor")
		if err != nil {
			return zygo.SexpNull, err
		}
		major, err := b.scalarKW("torus", pa, "major", param.Const(1))
		if err != nil {
			return zygo.SexpNull, err
		}
		minor, err := b.scalarKW("torus", pa, "minor", param.Const(0.25))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNode{node: field.NewTorus(major, minor, opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (cube :size (vec3 1 2 1))   ; half extents, a number means all three
	// -----------------------------------------------------------------------
	env.AddFunction("cube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, opts, err := b.leafArgs("cube", args, "size")
		if err != nil {
			return zygo.SexpNull, err
		}
		size, err := b.vec3KW("cube", pa, "size", param.ConstVec3(1, 1, 1))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNode{node: field.NewCube(size, opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (mandelbulb :power 8)
	// -----------------------------------------------------------------------
	env.AddFunction("mandelbulb", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, opts, err := b.leafArgs("mandelbulb", args, "power")
		if err != nil {
			return zygo.SexpNull, err
		}
		power, err := b.scalarKW("mandelbulb", pa, "power", param.Const(8))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNode{node: field.NewMandelbulb(power, opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (julia :c (vec4 -0.2 0.6 0.2 0))
	// -----------------------------------------------------------------------
	env.AddFunction("julia", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa, opts, err := b.leafArgs("julia", args, "c")
		if err != nil {
			return zygo.SexpNull, err
		}
		c := [4]param.Scalar{param.Const(-0.2), param.Const(0.6), param.Const(0.2), param.Const(0)}
		if v, ok := pa.kw["c"]; ok {
			if c, err = toVec4(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("julia: c: %w", err)
			}
		}
		return &sexpNode{node: field.NewJulia(c, opts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (subtract cutter a ...), (intersect a b ...)
	// (smooth-union :k 0.5 a b ...) and the smooth variants
	// -----------------------------------------------------------------------
	for _, op := range []field.Op{
		field.OpUnion, field.OpSubtract, field.OpIntersect,
		field.OpSmoothUnion, field.OpSmoothSubtract, field.OpSmoothIntersect,
	} {
		op := op
		fn := op.String()
		env.AddFunction(snakeCase(fn), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			var k param.Scalar
			if op.Smooth() {
				if err := pa.only(fn, "k"); err != nil {
					return zygo.SexpNull, err
				}
				var err error
				if k, err = b.scalarKW(fn, pa, "k", param.Const(0.5)); err != nil {
					return zygo.SexpNull, err
				}
			} else if err := pa.only(fn); err != nil {
				return zygo.SexpNull, err
			}

			children := make([]field.Node, 0, len(pa.positional))
			for i, a := range pa.positional {
				n, err := toNode(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: child %d: %w", fn, i, err)
				}
				children = append(children, n)
			}
			c, err := field.NewComposite(op, k, children...)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpNode{node: c}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (material :albedo 0.18 :specular 0.2 :diffuse 0.8 :exponent 10)
	// (material :preset :base)
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("material", "preset", "albedo", "specular", "diffuse", "exponent"); err != nil {
			return zygo.SexpNull, err
		}
		base := field.DirectMaterial()
		if v, ok := pa.kw["preset"]; ok {
			preset, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: preset: %w", err)
			}
			switch preset {
			case "direct":
			case "base":
				base = field.BaseMaterial()
			default:
				return zygo.SexpNull, fmt.Errorf("material: invalid preset %q, expected direct or base", preset)
			}
		}
		mp := field.ConstMaterial(base)
		var err error
		if mp.Albedo, err = b.scalarKW("material", pa, "albedo", mp.Albedo); err != nil {
			return zygo.SexpNull, err
		}
		if mp.Specular, err = b.scalarKW("material", pa, "specular", mp.Specular); err != nil {
			return zygo.SexpNull, err
		}
		if mp.Diffuse, err = b.scalarKW("material", pa, "diffuse", mp.Diffuse); err != nil {
			return zygo.SexpNull, err
		}
		if mp.Exponent, err = b.scalarKW("material", pa, "exponent", mp.Exponent); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMaterial{mat: mp}, nil
	})

	// -----------------------------------------------------------------------
	// Modifiers: (distort :factor 0.1 :frequency 4 :offset (vec3 ..)),
	// (twist 0.5), (bend 0.2), (repeat :period (vec3 4 0 4) :limit (vec3 2 0 2))
	// -----------------------------------------------------------------------
	env.AddFunction("distort", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("distort", "factor", "frequency", "offset"); err != nil {
			return zygo.SexpNull, err
		}
		factor, err := b.scalarKW("distort", pa, "factor", param.Const(0.1))
		if err != nil {
			return zygo.SexpNull, err
		}
		freq, err := b.scalarKW("distort", pa, "frequency", param.Const(1))
		if err != nil {
			return zygo.SexpNull, err
		}
		offset, err := b.vec3KW("distort", pa, "offset", param.ConstVec3(0, 0, 0))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpModifier{name: "distort", mod: field.NewDistort(factor, freq, offset)}, nil
	})

	for _, warp := range []struct {
		name string
		make func(param.Scalar) field.Modifier
	}{
		{"twist", func(r param.Scalar) field.Modifier { return field.NewTwist(r) }},
		{"bend", func(r param.Scalar) field.Modifier { return field.NewBend(r) }},
	} {
		warp := warp
		env.AddFunction(warp.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := pa.only(warp.name, "rate"); err != nil {
				return zygo.SexpNull, err
			}
			if len(pa.positional) == 1 {
				pa.kw["rate"] = pa.positional[0]
			}
			rate, err := b.scalarKW(warp.name, pa, "rate", param.Const(0))
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpModifier{name: warp.name, mod: warp.make(rate)}, nil
		})
	}

	env.AddFunction("repeat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("repeat", "period", "limit"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) == 1 {
			pa.kw["period"] = pa.positional[0]
		}
		period, err := b.vec3KW("repeat", pa, "period", param.ConstVec3(0, 0, 0))
		if err != nil {
			return zygo.SexpNull, err
		}
		limit, err := b.constVec3KW("repeat", pa, "limit", [3]float64{})
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpModifier{name: "repeat", mod: field.NewRepeat(period, limit)}, nil
	})
}

// snakeCase turns an op name such as smooth-union into the identifier the
// preprocessor produces for it.
func snakeCase(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}
