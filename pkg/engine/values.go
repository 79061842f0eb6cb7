package engine

import (
	"fmt"
	"math"

	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/render"
	zygo "github.com/glycerine/zygomys/zygo"
)

func (b *builder) registerValues(env *zygo.Zlisp) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3), (vec4 1 2 3 4); components may be tracks
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v param.Vec3
		for i, a := range args {
			s, err := toScalar(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = s
		}
		return &sexpVec3{vec: v}, nil
	})

	env.AddFunction("vec4", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("vec4 requires exactly 4 arguments, got %d", len(args))
		}
		var v [4]param.Scalar
		for i, a := range args {
			s, err := toScalar(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec4: %c: %w", "xyzw"[i], err)
			}
			v[i] = s
		}
		return &sexpVec4{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (lerp 0 1 :interval 2 :oscillate true :ease :smooth)
	// -----------------------------------------------------------------------
	env.AddFunction("lerp", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("lerp", "interval", "oscillate", "ease"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("lerp requires min and max, got %d arguments", len(pa.positional))
		}
		ip := param.Interpolator{Interval: 1}
		var err error
		if ip.Min, err = toFloat64(pa.positional[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("lerp: min: %w", err)
		}
		if ip.Max, err = toFloat64(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("lerp: max: %w", err)
		}
		if v, ok := pa.kw["interval"]; ok {
			if ip.Interval, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("lerp: interval: %w", err)
			}
			if ip.Interval <= 0 {
				return zygo.SexpNull, fmt.Errorf("lerp: interval must be positive, got %g", ip.Interval)
			}
		}
		if v, ok := pa.kw["oscillate"]; ok {
			if ip.Oscillate, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("lerp: oscillate: %w", err)
			}
		}
		if v, ok := pa.kw["ease"]; ok {
			if ip.Ease, err = toEase(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("lerp: ease: %w", err)
			}
		}
		return b.track(ip), nil
	})

	// -----------------------------------------------------------------------
	// (wave :amplitude 1 :frequency 2 :phase 0 :offset 0)
	// -----------------------------------------------------------------------
	env.AddFunction("wave", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("wave", "amplitude", "frequency", "phase", "offset"); err != nil {
			return zygo.SexpNull, err
		}
		w := param.Wave{Amplitude: 1, Frequency: 1}
		for key, dst := range map[string]*float64{
			"amplitude": &w.Amplitude,
			"frequency": &w.Frequency,
			"phase":     &w.Phase,
			"offset":    &w.Offset,
		} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wave: %s: %w", key, err)
			}
			*dst = f
		}
		return b.track(w), nil
	})

	// -----------------------------------------------------------------------
	// (keyframes (key 0 1) (key 2 3 :ease :smooth) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("key", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("key", "ease"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("key requires a time and a value, got %d arguments", len(pa.positional))
		}
		var k param.Key
		var err error
		if k.Time, err = toFloat64(pa.positional[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("key: time: %w", err)
		}
		if k.Value, err = toFloat64(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("key: value: %w", err)
		}
		if v, ok := pa.kw["ease"]; ok {
			if k.Ease, err = toEase(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("key: ease: %w", err)
			}
		}
		return &sexpKey{key: k}, nil
	})

	env.AddFunction("keyframes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("keyframes requires at least one key")
		}
		keys := make([]param.Key, 0, len(args))
		for i, a := range args {
			k, ok := a.(*sexpKey)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("keyframes: entry %d: expected key, got %T (%s)", i, a, a.SexpString(nil))
			}
			keys = append(keys, k.key)
		}
		return b.track(param.NewKeyframes(keys...)), nil
	})
}

func (b *builder) registerScene(env *zygo.Zlisp) {

	// -----------------------------------------------------------------------
	// (show "name" node) registers a root; (show node) picks a name.
	// -----------------------------------------------------------------------
	env.AddFunction("show", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var rootName string
		switch len(args) {
		case 1:
		case 2:
			s, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("show: name: %w", err)
			}
			rootName = s
			args = args[1:]
		default:
			return zygo.SexpNull, fmt.Errorf("show requires a shape and an optional name, got %d arguments", len(args))
		}
		n, err := toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("show: %w", err)
		}
		if err := b.sc.AddRoot(rootName, n); err != nil {
			return zygo.SexpNull, fmt.Errorf("show: %w", err)
		}
		return args[0], nil
	})

	// -----------------------------------------------------------------------
	// (camera :at (vec3 0 0 10) :rotate (vec3 0 0 0) :fov 53)
	// :pitch and :yaw are shorthands for the x and y rotation.
	// :lens-radius and :focal-distance turn on depth of field.
	// -----------------------------------------------------------------------
	env.AddFunction("camera", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("camera", "at", "rotate", "pitch", "yaw", "fov", "lens-radius", "focal-distance"); err != nil {
			return zygo.SexpNull, err
		}
		cam := b.sc.Camera
		pos, err := b.vec3KW("camera", pa, "at", cam.Position)
		if err != nil {
			return zygo.SexpNull, err
		}
		rot, err := b.vec3KW("camera", pa, "rotate", cam.Rotation)
		if err != nil {
			return zygo.SexpNull, err
		}
		if rot[0], err = b.scalarKW("camera", pa, "pitch", rot[0]); err != nil {
			return zygo.SexpNull, err
		}
		if rot[1], err = b.scalarKW("camera", pa, "yaw", rot[1]); err != nil {
			return zygo.SexpNull, err
		}
		fov, err := b.scalarKW("camera", pa, "fov", cam.FOV)
		if err != nil {
			return zygo.SexpNull, err
		}
		lens, err := b.scalarKW("camera", pa, "lens-radius", cam.LensRadius)
		if err != nil {
			return zygo.SexpNull, err
		}
		focus, err := b.scalarKW("camera", pa, "focal-distance", cam.FocalDistance)
		if err != nil {
			return zygo.SexpNull, err
		}
		b.sc.Camera = render.NewThinLensCamera(pos, rot, fov, lens, focus)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (point-light :at (vec3 0 5 0) :color (vec3 1 1 1) :intensity 100)
	// (sun :direction (vec3 -1 -1 -1) :color (vec3 1 1 1) :intensity 1)
	// -----------------------------------------------------------------------
	env.AddFunction("point_light", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("point-light", "at", "color", "intensity"); err != nil {
			return zygo.SexpNull, err
		}
		pos, err := b.vec3KW("point-light", pa, "at", param.ConstVec3(0, 0, 0))
		if err != nil {
			return zygo.SexpNull, err
		}
		col, err := b.vec3KW("point-light", pa, "color", param.ConstVec3(1, 1, 1))
		if err != nil {
			return zygo.SexpNull, err
		}
		// 4π cancels the inverse-square falloff at distance one.
		in, err := b.scalarKW("point-light", pa, "intensity", param.Const(4*math.Pi))
		if err != nil {
			return zygo.SexpNull, err
		}
		l := light.NewPoint(pos, col, in)
		b.sc.AddLight(l)
		return &sexpLight{light: l}, nil
	})

	env.AddFunction("sun", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("sun", "direction", "color", "intensity"); err != nil {
			return zygo.SexpNull, err
		}
		dir, err := b.vec3KW("sun", pa, "direction", param.ConstVec3(0, -1, 0))
		if err != nil {
			return zygo.SexpNull, err
		}
		col, err := b.vec3KW("sun", pa, "color", param.ConstVec3(1, 1, 1))
		if err != nil {
			return zygo.SexpNull, err
		}
		in, err := b.scalarKW("sun", pa, "intensity", param.Const(1))
		if err != nil {
			return zygo.SexpNull, err
		}
		l := light.NewDirectional(dir, col, in)
		b.sc.AddLight(l)
		return &sexpLight{light: l}, nil
	})

	// -----------------------------------------------------------------------
	// (settings :width 800 :height 600 :mode :lit :fps 24 :duration 2 ...)
	// -----------------------------------------------------------------------
	env.AddFunction("settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("settings",
			"width", "height", "fps", "duration", "supersample", "jitter", "seed",
			"mode", "color", "background", "ambient", "density",
			"min-dist", "max-dist", "step-limit", "light-min-dist", "light-step-limit", "normal-epsilon",
		); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, b.applySettings(pa)
	})

	// -----------------------------------------------------------------------
	// Post effects, applied to each frame in the order written.
	// (color-shift :color (vec3 1 0.9 0.8) :mode :mul)
	// (bloom :cut 0.8 :factor 0.5 :size 4)
	// (blur :size 1.5)
	// -----------------------------------------------------------------------
	env.AddFunction("color_shift", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("color-shift", "color", "mode"); err != nil {
			return zygo.SexpNull, err
		}
		col, err := b.constVec3KW("color-shift", pa, "color", [3]float64{1, 1, 1})
		if err != nil {
			return zygo.SexpNull, err
		}
		mode := framebuf.ShiftMul
		if v, ok := pa.kw["mode"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("color-shift: mode: %w", err)
			}
			if mode, err = framebuf.ParseShiftMode(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("color-shift: %w", err)
			}
		}
		b.addEffect(framebuf.ColorShift{Color: col, Mode: mode})
		return zygo.SexpNull, nil
	})

	env.AddFunction("bloom", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("bloom", "cut", "factor", "size"); err != nil {
			return zygo.SexpNull, err
		}
		bl := framebuf.Bloom{Cut: 0.8, Factor: 0.5, Size: 2}
		for key, dst := range map[string]*float64{"cut": &bl.Cut, "factor": &bl.Factor, "size": &bl.Size} {
			if err := floatKW("bloom", pa, key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		b.addEffect(bl)
		return zygo.SexpNull, nil
	})

	env.AddFunction("blur", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("blur", "size"); err != nil {
			return zygo.SexpNull, err
		}
		bl := framebuf.Blur{Size: 1}
		if len(pa.positional) > 1 {
			return zygo.SexpNull, fmt.Errorf("blur: expected at most one size, got %d", len(pa.positional))
		}
		if len(pa.positional) == 1 {
			f, err := toFloat64(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("blur: %w", err)
			}
			bl.Size = f
		}
		if err := floatKW("blur", pa, "size", &bl.Size); err != nil {
			return zygo.SexpNull, err
		}
		b.addEffect(bl)
		return zygo.SexpNull, nil
	})
}

func (b *builder) addEffect(e framebuf.Effect) {
	b.sc.Settings.Effects = append(b.sc.Settings.Effects, e)
}

// floatKW stores a plain number keyword into dst when present.
func floatKW(fn string, pa kwArgs, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

func (b *builder) applySettings(pa kwArgs) error {
	set := &b.sc.Settings

	floats := map[string]*float64{
		"fps":            &set.FPS,
		"duration":       &set.Duration,
		"density":        &set.Shading.VolumeDensity,
		"jitter":         &set.Jitter,
		"min-dist":       &set.Solver.MinDist,
		"max-dist":       &set.Solver.MaxDist,
		"light-min-dist": &set.Solver.LightMinDist,
		"normal-epsilon": &set.Solver.NormalEpsilon,
	}
	for key, dst := range floats {
		if v, ok := pa.kw[key]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return fmt.Errorf("settings: %s: %w", key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"width":            &set.Width,
		"height":           &set.Height,
		"supersample":      &set.Supersample,
		"step-limit":       &set.Solver.StepLimit,
		"light-step-limit": &set.Solver.LightStepLimit,
	}
	for key, dst := range ints {
		if v, ok := pa.kw[key]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return fmt.Errorf("settings: %s: %w", key, err)
			}
			if f != math.Trunc(f) {
				return fmt.Errorf("settings: %s: expected a whole number, got %g", key, f)
			}
			*dst = int(f)
		}
	}

	if v, ok := pa.kw["seed"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("settings: seed: %w", err)
		}
		if f < 0 || f != math.Trunc(f) {
			return fmt.Errorf("settings: seed: expected a whole number, got %g", f)
		}
		set.Seed = uint64(f)
	}

	if v, ok := pa.kw["mode"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("settings: mode: %w", err)
		}
		m, err := render.ParseMode(s)
		if err != nil {
			return fmt.Errorf("settings: mode: %w", err)
		}
		set.Shading.Mode = m
	}

	var err error
	if set.Shading.Color, err = b.constVec3KW("settings", pa, "color", set.Shading.Color); err != nil {
		return err
	}
	if set.Shading.Background, err = b.constVec3KW("settings", pa, "background", set.Shading.Background); err != nil {
		return err
	}
	if set.Shading.Ambient, err = b.constVec3KW("settings", pa, "ambient", set.Shading.Ambient); err != nil {
		return err
	}
	return nil
}
