package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/solver"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func resultHasError(r ValidationResult, substr string) bool {
	for _, e := range r.Errors {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func resultHasWarning(r ValidationResult, substr string) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func mustAdd(t *testing.T, s *Scene, name string, n field.Node) {
	t.Helper()
	if err := s.AddRoot(name, n); err != nil {
		t.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// Scene
// ---------------------------------------------------------------------------

func TestAddRootNames(t *testing.T) {
	s := New()
	mustAdd(t, s, "ball", field.NewSphere(param.Const(1)))
	mustAdd(t, s, "", field.NewSphere(param.Const(2)))

	if err := s.AddRoot("ball", field.NewSphere(param.Const(3))); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if err := s.AddRoot("nil", nil); err == nil {
		t.Fatal("nil root accepted")
	}
	if len(s.Roots) != 2 || s.Roots[1].Name != "root1" {
		t.Fatalf("roots = %+v", s.Roots)
	}
	if s.Lookup("ball") == nil || s.Lookup("root1") == nil || s.Lookup("missing") != nil {
		t.Fatal("lookup mismatch")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New().MustLookup("nothing")
}

func TestEvaluateMovesRootsAndCamera(t *testing.T) {
	s := New()
	s.Params.Set("r", param.NewKeyframes(param.Key{Time: 0, Value: 1}, param.Key{Time: 2, Value: 3}))
	s.Params.Set("cz", param.Interpolator{Min: 10, Max: 30, Interval: 2})
	mustAdd(t, s, "ball", field.NewSphere(param.Bind("r", 1)))
	s.Camera = render.NewCamera(
		param.Vec3{param.Const(0), param.Const(0), param.Bind("cz", 10)},
		param.ConstVec3(0, 0, 0), param.Const(render.DefaultFOV))

	s.Evaluate(1)
	if d := s.MustLookup("ball").Query(v3.Vec{}).Distance; math.Abs(d+2) > 1e-12 {
		t.Fatalf("distance at origin = %v, want -2", d)
	}
	if o := s.Camera.Ray(0, 0, 2, 2).Origin; math.Abs(o.Z-20) > 1e-12 {
		t.Fatalf("camera z = %v, want 20", o.Z)
	}
}

func TestSolverOverRoots(t *testing.T) {
	s := New()
	mustAdd(t, s, "a", field.NewSphere(param.Const(1)))
	mustAdd(t, s, "b", field.NewSphere(param.Const(1), field.WithPosition(param.ConstVec3(5, 0, 0))))

	sv, err := s.Solver(solver.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	hit := sv.Solve(solver.Ray{Origin: v3.Vec{X: 5, Z: 10}, Direction: v3.Vec{Z: -1}})
	if !hit.Hit || math.Abs(hit.Position.Z-1) > 1e-2 {
		t.Fatalf("intersection = %+v", hit)
	}

	bad := solver.DefaultConfig()
	bad.StepLimit = 0
	if _, err := s.Solver(bad); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	s.Params.Set("r", param.Interpolator{Min: 1, Max: 9, Interval: 2})
	mustAdd(t, s, "ball", field.NewSphere(param.Bind("r", 1)))
	s.AddLight(light.NewPoint(param.ConstVec3(0, 5, 0), param.ConstVec3(1, 1, 1), param.Const(10)))

	cp := s.Clone()
	cp.Evaluate(1)

	if d := s.MustLookup("ball").Query(v3.Vec{}).Distance; d != -1 {
		t.Fatalf("original moved: %v", d)
	}
	if d := cp.MustLookup("ball").Query(v3.Vec{}).Distance; d != -5 {
		t.Fatalf("clone distance = %v, want -5", d)
	}
	if cp.Lights[0] == s.Lights[0] || cp.Camera == s.Camera {
		t.Fatal("clone shares lights or camera")
	}
	if cp.Params != s.Params {
		t.Fatal("clone should share the track table")
	}
	if len(cp.Shading().Lights) != 1 {
		t.Fatal("clone shading lost its lights")
	}
}

func TestFrameCount(t *testing.T) {
	cases := []struct {
		fps, dur float64
		want     int
	}{
		{24, 0, 1},
		{24, 1, 24},
		{30, 2.5, 75},
		{0, 3, 1},
	}
	for _, tc := range cases {
		got := Settings{FPS: tc.fps, Duration: tc.dur}.FrameCount()
		if got != tc.want {
			t.Errorf("FrameCount(%v fps, %vs) = %d, want %d", tc.fps, tc.dur, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateCleanScene(t *testing.T) {
	s := New()
	mustAdd(t, s, "ball", field.NewSphere(param.Const(1)))
	r := Validate(s)
	if !r.OK() || len(r.Warnings) != 0 {
		t.Fatalf("unexpected findings: %+v", r)
	}
}

func TestValidateEmptySceneWarns(t *testing.T) {
	r := Validate(New())
	if !r.OK() || !resultHasWarning(r, "no roots") {
		t.Fatalf("result = %+v", r)
	}
}

func TestValidateGeometry(t *testing.T) {
	cases := []struct {
		name    string
		node    field.Node
		message string
		warning bool
	}{
		{"zero radius", field.NewSphere(param.Const(0)), "sphere radius", false},
		{"negative minor", field.NewTorus(param.Const(1), param.Const(-0.1)), "minor radius", false},
		{"flat cube", field.NewCube(param.ConstVec3(1, 0, 1)), "half extent Y", false},
		{"zero scale", field.NewSphere(param.Const(1), field.WithScale(param.ConstVec3(1, 0, 1))), "zero scale", false},
		{"negative repeat", field.NewSphere(param.Const(1),
			field.WithModifiers(field.NewRepeat(param.ConstVec3(-1, 0, 0), [3]float64{}))), "repeat period", false},
		{"low power", field.NewMandelbulb(param.Const(0.5)), "power", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			mustAdd(t, s, "x", tc.node)
			r := Validate(s)
			if tc.warning {
				if !resultHasWarning(r, tc.message) {
					t.Fatalf("warnings %+v lack %q", r.Warnings, tc.message)
				}
				return
			}
			if !resultHasError(r, tc.message) {
				t.Fatalf("errors %+v lack %q", r.Errors, tc.message)
			}
			if r.Errors[0].Root != "x" {
				t.Fatalf("error root = %q", r.Errors[0].Root)
			}
		})
	}
}

func TestValidateSmoothRadius(t *testing.T) {
	u, err := field.SmoothUnion(param.Const(0),
		field.NewSphere(param.Const(1)), field.NewSphere(param.Const(1)))
	if err != nil {
		t.Fatal(err)
	}
	s := New()
	mustAdd(t, s, "blend", u)
	r := Validate(s)
	if !r.OK() || !resultHasWarning(r, "smooth-union radius") {
		t.Fatalf("result = %+v", r)
	}
}

func TestValidateUsesTracksAtTimeZero(t *testing.T) {
	s := New()
	s.Params.Set("r", param.Interpolator{Min: -1, Max: 1, Interval: 1})
	mustAdd(t, s, "ball", field.NewSphere(param.Bind("r", 1)))
	if r := Validate(s); !resultHasError(r, "sphere radius is -1") {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestValidateUnboundParameter(t *testing.T) {
	s := New()
	mustAdd(t, s, "ball", field.NewSphere(param.Bind("ghost", 1)))
	r := Validate(s)
	if !r.OK() || !resultHasWarning(r, `"ghost" has no track`) {
		t.Fatalf("result = %+v", r)
	}
}

func TestValidateSharedNode(t *testing.T) {
	ball := field.NewSphere(param.Const(1))
	u, err := field.Union(ball, field.NewCube(param.ConstVec3(1, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	s := New()
	mustAdd(t, s, "pair", u)
	mustAdd(t, s, "ball", ball)
	if r := Validate(s); !resultHasWarning(r, "shared with root pair") {
		t.Fatalf("warnings = %+v", r.Warnings)
	}
}

func TestValidateShading(t *testing.T) {
	s := New()
	mustAdd(t, s, "ball", field.NewSphere(param.Const(1),
		field.WithMaterial(field.ConstMaterial(field.Material{Albedo: 2, Exponent: -1}))))
	s.Settings.Shading.Mode = render.ModeLit
	s.Settings.Width = 0
	s.Settings.Duration = 2
	s.Settings.FPS = 0
	s.Camera = render.NewCamera(param.ConstVec3(0, 0, 10), param.ConstVec3(0, 0, 0), param.Const(180))

	r := Validate(s)
	for _, msg := range []string{"frame size", "not playable", "field of view", "exponent"} {
		if !resultHasError(r, msg) {
			t.Errorf("errors lack %q: %+v", msg, r.Errors)
		}
	}
	for _, msg := range []string{"no lights", "albedo"} {
		if !resultHasWarning(r, msg) {
			t.Errorf("warnings lack %q: %+v", msg, r.Warnings)
		}
	}
}

func TestValidateLensAndEffects(t *testing.T) {
	cases := []struct {
		name    string
		edit    func(s *Scene)
		message string
		warning bool
	}{
		{"jitter above one", func(s *Scene) { s.Settings.Jitter = 1.5 }, "jitter", false},
		{"negative lens", func(s *Scene) {
			s.Camera = render.NewThinLensCamera(param.ConstVec3(0, 0, 10), param.ConstVec3(0, 0, 0),
				param.Const(render.DefaultFOV), param.Const(-0.1), param.Const(10))
		}, "lens radius", false},
		{"lens without focus", func(s *Scene) {
			s.Camera = render.NewThinLensCamera(param.ConstVec3(0, 0, 10), param.ConstVec3(0, 0, 0),
				param.Const(render.DefaultFOV), param.Const(0.1), param.Const(0))
		}, "no focal distance", true},
		{"single lens sample", func(s *Scene) {
			s.Camera = render.NewThinLensCamera(param.ConstVec3(0, 0, 10), param.ConstVec3(0, 0, 0),
				param.Const(render.DefaultFOV), param.Const(0.1), param.Const(10))
		}, "one lens sample", true},
		{"negative blur", func(s *Scene) {
			s.Settings.Effects = framebuf.Effects{framebuf.Blur{Size: -1}}
		}, "blur size", false},
		{"negative bloom", func(s *Scene) {
			s.Settings.Effects = framebuf.Effects{framebuf.Bloom{Cut: 0.8, Factor: 1, Size: -2}}
		}, "bloom size", false},
		{"idle bloom", func(s *Scene) {
			s.Settings.Effects = framebuf.Effects{framebuf.Bloom{Cut: 0.8, Size: 2}}
		}, "bloom factor", true},
		{"divide by zero", func(s *Scene) {
			s.Settings.Effects = framebuf.Effects{framebuf.ColorShift{Color: [3]float64{1, 0, 1}, Mode: framebuf.ShiftDiv}}
		}, "channel G", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			mustAdd(t, s, "ball", field.NewSphere(param.Const(1)))
			tc.edit(s)
			r := Validate(s)
			if tc.warning {
				if !r.OK() || !resultHasWarning(r, tc.message) {
					t.Fatalf("result %+v lacks warning %q", r, tc.message)
				}
				return
			}
			if !resultHasError(r, tc.message) {
				t.Fatalf("errors %+v lack %q", r.Errors, tc.message)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Root: "ball", Message: "bad", Severity: SeverityError}
	if got := e.Error(); got != "[error] root ball: bad" {
		t.Fatalf("Error() = %q", got)
	}
	w := ValidationError{Message: "meh", Severity: SeverityWarning}
	if got := w.Error(); got != "[warning] meh" {
		t.Fatalf("Error() = %q", got)
	}
}
