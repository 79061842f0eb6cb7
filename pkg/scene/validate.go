package scene

import (
	"fmt"
	"math"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/render"
)

// Severity indicates whether a finding blocks rendering or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks rendering
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single finding.
type ValidationError struct {
	Root     string // which root has the problem (empty if scene-level)
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.Root == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] root %s: %s", e.Severity, e.Root, e.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the structural, geometric and shading checks. Animated
// values are checked at t = 0. The scene is not modified.
func Validate(s *Scene) ValidationResult {
	var all []ValidationError
	all = append(all, validateStructure(s)...)
	all = append(all, validateGeometry(s)...)
	all = append(all, validateShading(s)...)

	var result ValidationResult
	for _, e := range all {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Tier 1: structure
// ---------------------------------------------------------------------------

func validateStructure(s *Scene) []ValidationError {
	var errs []ValidationError

	if len(s.Roots) == 0 {
		errs = append(errs, ValidationError{
			Message:  "scene has no roots; every ray will miss",
			Severity: SeverityWarning,
		})
	}
	if s.Camera == nil {
		errs = append(errs, ValidationError{Message: "scene has no camera", Severity: SeverityError})
	}

	for i, r := range s.Roots {
		if r.Node == nil {
			errs = append(errs, ValidationError{Root: r.Name, Message: "root is nil", Severity: SeverityError})
		}
		if idx, ok := s.NameIndex[r.Name]; !ok || idx != i {
			errs = append(errs, ValidationError{
				Root:     r.Name,
				Message:  "name index is out of date",
				Severity: SeverityError,
			})
		}
	}
	if len(s.NameIndex) != len(s.Roots) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("name index has %d entries for %d roots", len(s.NameIndex), len(s.Roots)),
			Severity: SeverityError,
		})
	}

	// A node reachable twice is evaluated twice per frame and split apart by
	// Clone.
	owner := make(map[field.Node]string)
	for _, r := range s.Roots {
		if r.Node == nil {
			continue
		}
		field.Walk(r.Node, func(n field.Node) bool {
			if prev, seen := owner[n]; seen {
				errs = append(errs, ValidationError{
					Root:     r.Name,
					Message:  fmt.Sprintf("%s node is shared with root %s", n.Kind(), prev),
					Severity: SeverityWarning,
				})
				return false
			}
			owner[n] = r.Name
			return true
		})
	}

	for _, r := range s.Roots {
		if r.Node == nil {
			continue
		}
		for _, id := range unboundIDs(s.Params, nodeScalars(r.Node)) {
			errs = append(errs, ValidationError{
				Root:     r.Name,
				Message:  fmt.Sprintf("parameter %q has no track; its default is used", id),
				Severity: SeverityWarning,
			})
		}
	}
	var global []param.Scalar
	for _, l := range s.Lights {
		global = append(global, lightScalars(l)...)
	}
	if s.Camera != nil {
		global = append(global, s.Camera.Position[:]...)
		global = append(global, s.Camera.Rotation[:]...)
		global = append(global, s.Camera.FOV, s.Camera.LensRadius, s.Camera.FocalDistance)
	}
	for _, id := range unboundIDs(s.Params, global) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("parameter %q has no track; its default is used", id),
			Severity: SeverityWarning,
		})
	}

	return errs
}

func unboundIDs(tb *param.Table, scalars []param.Scalar) []param.ID {
	var out []param.ID
	seen := make(map[param.ID]bool)
	for _, sc := range scalars {
		if !sc.Animated() || seen[sc.ID] {
			continue
		}
		seen[sc.ID] = true
		if _, ok := tb.Track(sc.ID); !ok {
			out = append(out, sc.ID)
		}
	}
	return out
}

// nodeScalars lists every parameter under n.
func nodeScalars(n field.Node) []param.Scalar {
	var out []param.Scalar
	field.Walk(n, func(n field.Node) bool {
		if leaf, ok := n.(field.Leaf); ok {
			tr := leaf.Placement()
			out = append(out, tr.Position[:]...)
			out = append(out, tr.Rotation[:]...)
			out = append(out, tr.Scale[:]...)
			m := leaf.Surface()
			out = append(out, m.Albedo, m.Specular, m.Diffuse, m.Exponent)
			for _, mod := range leaf.Warps() {
				out = append(out, modifierScalars(mod)...)
			}
		}
		switch v := n.(type) {
		case *field.Sphere:
			out = append(out, v.Radius)
		case *field.Torus:
			out = append(out, v.Major, v.Minor)
		case *field.Cube:
			out = append(out, v.Size[:]...)
		case *field.Mandelbulb:
			out = append(out, v.Power)
		case *field.Julia:
			out = append(out, v.C[:]...)
		case *field.Composite:
			out = append(out, v.K)
		}
		return true
	})
	return out
}

func modifierScalars(m field.Modifier) []param.Scalar {
	switch v := m.(type) {
	case *field.Distort:
		return append([]param.Scalar{v.Factor, v.Frequency}, v.Offset[:]...)
	case *field.Twist:
		return []param.Scalar{v.Rate}
	case *field.Bend:
		return []param.Scalar{v.Rate}
	case *field.Repeat:
		return v.Period[:]
	}
	return nil
}

func lightScalars(l light.Light) []param.Scalar {
	var out []param.Scalar
	switch v := l.(type) {
	case *light.Directional:
		out = append(out, v.Direction[:]...)
		out = append(out, v.Color[:]...)
		out = append(out, v.Intensity)
	case *light.Point:
		out = append(out, v.Position[:]...)
		out = append(out, v.Color[:]...)
		out = append(out, v.Intensity)
	}
	return out
}

// ---------------------------------------------------------------------------
// Tier 2: geometry at t = 0
// ---------------------------------------------------------------------------

func validateGeometry(s *Scene) []ValidationError {
	var errs []ValidationError
	src := s.Params

	for _, r := range s.Roots {
		if r.Node == nil {
			continue
		}
		report := func(sev Severity, format string, args ...interface{}) {
			errs = append(errs, ValidationError{Root: r.Name, Message: fmt.Sprintf(format, args...), Severity: sev})
		}

		field.Walk(r.Node, func(n field.Node) bool {
			if leaf, ok := n.(field.Leaf); ok {
				sc := leaf.Placement().Scale.Resolve(src, 0)
				if sc.X == 0 || sc.Y == 0 || sc.Z == 0 {
					report(SeverityError, "%s has zero scale %v; it will never be hit", n.Kind(), sc)
				}
				for _, mod := range leaf.Warps() {
					if rp, ok := mod.(*field.Repeat); ok {
						p := rp.Period.Resolve(src, 0)
						if p.X < 0 || p.Y < 0 || p.Z < 0 {
							report(SeverityError, "repeat period %v is negative", p)
						}
					}
				}
			}

			switch v := n.(type) {
			case *field.Sphere:
				if rad := v.Radius.Resolve(src, 0); rad <= 0 {
					report(SeverityError, "sphere radius is %.4f, must be positive", rad)
				}
			case *field.Torus:
				if minor := v.Minor.Resolve(src, 0); minor <= 0 {
					report(SeverityError, "torus minor radius is %.4f, must be positive", minor)
				}
				if major := v.Major.Resolve(src, 0); major < 0 {
					report(SeverityError, "torus major radius is %.4f, must not be negative", major)
				}
			case *field.Cube:
				size := v.Size.Resolve(src, 0)
				for axis, e := range [3]float64{size.X, size.Y, size.Z} {
					if e <= 0 {
						report(SeverityError, "cube half extent %c is %.4f, must be positive", "XYZ"[axis], e)
					}
				}
			case *field.Mandelbulb:
				if pw := v.Power.Resolve(src, 0); pw < 1 {
					report(SeverityWarning, "mandelbulb power %.4f is below 1; the estimate is unreliable", pw)
				}
			case *field.Composite:
				if v.Op.Smooth() {
					if k := v.K.Resolve(src, 0); k <= 0 {
						report(SeverityWarning, "%s radius is %.4f; it behaves like the sharp op", v.Op, k)
					}
				}
			}
			return true
		})
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 3: shading and settings
// ---------------------------------------------------------------------------

func validateShading(s *Scene) []ValidationError {
	var errs []ValidationError
	set := s.Settings

	if err := set.Solver.Validate(); err != nil {
		errs = append(errs, ValidationError{Message: err.Error(), Severity: SeverityError})
	}
	if set.Width <= 0 || set.Height <= 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("frame size %dx%d must be positive", set.Width, set.Height),
			Severity: SeverityError,
		})
	}
	if set.Supersample < 1 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("supersample %d must be at least 1", set.Supersample),
			Severity: SeverityError,
		})
	}
	if set.Duration < 0 || (set.Duration > 0 && !(set.FPS > 0)) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("animation of %.3fs at %.3f fps is not playable", set.Duration, set.FPS),
			Severity: SeverityError,
		})
	}

	if !(set.Jitter >= 0 && set.Jitter <= 1) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("jitter %.3f must be in [0, 1]", set.Jitter),
			Severity: SeverityError,
		})
	}
	errs = append(errs, validateEffects(set.Effects)...)

	if set.Shading.Mode.Lit() && len(s.Lights) == 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("%s shading with no lights renders ambient only", set.Shading.Mode),
			Severity: SeverityWarning,
		})
	}
	if set.Shading.Mode == render.ModeVolumetric && set.Shading.VolumeDensity <= 0 {
		errs = append(errs, ValidationError{
			Message:  "volumetric shading with zero density adds no light",
			Severity: SeverityWarning,
		})
	}
	if cam := s.Camera; cam != nil {
		if fov := cam.FOV.Resolve(s.Params, 0); !(fov > 0 && fov < 180) {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("camera field of view %.2f must be in (0, 180) degrees", fov),
				Severity: SeverityError,
			})
		}
		lens, focus := cam.LensRadius.Resolve(s.Params, 0), cam.FocalDistance.Resolve(s.Params, 0)
		if lens < 0 || focus < 0 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("camera lens radius %.3f and focal distance %.3f must not be negative", lens, focus),
				Severity: SeverityError,
			})
		} else if lens > 0 && focus == 0 {
			errs = append(errs, ValidationError{
				Message:  "camera has a lens but no focal distance; it renders as a pinhole",
				Severity: SeverityWarning,
			})
		}
		if cam.HasLens() && set.Supersample < 2 {
			errs = append(errs, ValidationError{
				Message:  "thin lens camera with supersample 1 takes one lens sample per pixel; expect noise",
				Severity: SeverityWarning,
			})
		}
	}

	for _, r := range s.Roots {
		if r.Node == nil {
			continue
		}
		field.Walk(r.Node, func(n field.Node) bool {
			leaf, ok := n.(field.Leaf)
			if !ok {
				return true
			}
			m := leaf.Surface().Resolve(s.Params, 0)
			if m.Albedo < 0 || m.Albedo > 1 {
				errs = append(errs, ValidationError{
					Root:     r.Name,
					Message:  fmt.Sprintf("%s albedo %.3f is outside [0, 1]", n.Kind(), m.Albedo),
					Severity: SeverityWarning,
				})
			}
			if m.Exponent < 0 || math.IsNaN(m.Exponent) {
				errs = append(errs, ValidationError{
					Root:     r.Name,
					Message:  fmt.Sprintf("%s specular exponent %.3f must not be negative", n.Kind(), m.Exponent),
					Severity: SeverityError,
				})
			}
			return true
		})
	}
	return errs
}

func validateEffects(effects framebuf.Effects) []ValidationError {
	var errs []ValidationError
	report := func(sev Severity, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Message: fmt.Sprintf(format, args...), Severity: sev})
	}
	for i, e := range effects {
		switch v := e.(type) {
		case framebuf.Blur:
			if v.Size < 0 || math.IsNaN(v.Size) {
				report(SeverityError, "effect %d: blur size %.3f must not be negative", i, v.Size)
			}
		case framebuf.Bloom:
			if v.Size < 0 || math.IsNaN(v.Size) {
				report(SeverityError, "effect %d: bloom size %.3f must not be negative", i, v.Size)
			}
			if v.Factor == 0 {
				report(SeverityWarning, "effect %d: bloom factor is zero; it adds nothing", i)
			}
		case framebuf.ColorShift:
			if v.Mode == framebuf.ShiftDiv {
				for axis, k := range v.Color {
					if k == 0 {
						report(SeverityWarning, "effect %d: color shift divides channel %c by zero; it is left alone", i, "RGB"[axis])
					}
				}
			}
		}
	}
	return errs
}
