// Package scene bundles everything needed to render: named root fields, the
// camera, lights, animation tracks and per-scene settings.
package scene

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/solver"
)

// Settings are the render defaults a scene asks for. Environment and
// command line overrides are applied on top by the caller.
type Settings struct {
	Solver      solver.Config `json:"solver"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	FPS         float64       `json:"fps"`
	Duration    float64       `json:"duration"` // seconds of animation
	Supersample int           `json:"supersample"`
	// Jitter and Seed feed render.Options of the same names.
	Jitter  float64 `json:"jitter"`
	Seed    uint64  `json:"seed"`
	Shading render.Shading
	// Effects post-process every finished frame, in order.
	Effects framebuf.Effects
}

// DefaultSettings returns a 640x480 still with default solver tunables.
func DefaultSettings() Settings {
	return Settings{
		Solver:      solver.DefaultConfig(),
		Width:       640,
		Height:      480,
		FPS:         24,
		Supersample: 1,
		Shading:     render.DefaultShading(),
	}
}

// FrameCount returns the number of frames covering Duration at FPS, at
// least one.
func (s Settings) FrameCount() int {
	n := int(s.Duration*s.FPS + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// Root is a named top-level field.
type Root struct {
	Name string
	Node field.Node
}

// Scene is produced by evaluating a scene script. Roots and lights are
// owned by the scene; Clone gives an independent copy for rendering another
// instant concurrently.
type Scene struct {
	Roots     []Root
	NameIndex map[string]int
	Camera    *render.Camera
	Lights    []light.Light
	Params    *param.Table
	Settings  Settings
	Version   uint64
}

// New creates an empty scene with default settings.
func New() *Scene {
	return &Scene{
		NameIndex: make(map[string]int),
		Camera:    render.DefaultCamera(),
		Params:    param.NewTable(),
		Settings:  DefaultSettings(),
	}
}

// AddRoot registers a named root. Names must be unique; an empty name is
// replaced by "rootN".
func (s *Scene) AddRoot(name string, n field.Node) error {
	if n == nil {
		return fmt.Errorf("scene: root %q is nil", name)
	}
	if name == "" {
		name = fmt.Sprintf("root%d", len(s.Roots))
	}
	if _, dup := s.NameIndex[name]; dup {
		return fmt.Errorf("scene: duplicate root name %q", name)
	}
	s.NameIndex[name] = len(s.Roots)
	s.Roots = append(s.Roots, Root{Name: name, Node: n})
	return nil
}

// AddLight appends a light.
func (s *Scene) AddLight(l light.Light) {
	s.Lights = append(s.Lights, l)
}

// Lookup returns the root with the given name, or nil.
func (s *Scene) Lookup(name string) field.Node {
	i, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Roots[i].Node
}

// MustLookup returns the root with the given name, or panics.
func (s *Scene) MustLookup(name string) field.Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no root named %q", name))
	}
	return n
}

// Nodes returns the root fields in declaration order.
func (s *Scene) Nodes() []field.Node {
	out := make([]field.Node, len(s.Roots))
	for i, r := range s.Roots {
		out[i] = r.Node
	}
	return out
}

// NodeCount returns the total number of field nodes under all roots.
func (s *Scene) NodeCount() int {
	total := 0
	for _, r := range s.Roots {
		total += field.Count(r.Node)
	}
	return total
}

// Evaluate resolves roots, lights and camera at time t. It must not run
// while a frame of this scene is being traced.
func (s *Scene) Evaluate(t float64) {
	for _, r := range s.Roots {
		r.Node.Evaluate(s.Params, t)
	}
	for _, l := range s.Lights {
		l.Evaluate(s.Params, t)
	}
	if s.Camera != nil {
		s.Camera.Evaluate(s.Params, t)
	}
}

// Shading returns the scene's shading settings with its lights attached.
func (s *Scene) Shading() render.Shading {
	sh := s.Settings.Shading
	sh.Lights = s.Lights
	return sh
}

// Solver builds a solver over the scene's roots with cfg.
func (s *Scene) Solver(cfg solver.Config) (*solver.Solver, error) {
	sv, err := solver.New(cfg, s.Nodes()...)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return sv, nil
}

// Clone deep-copies roots, lights and camera. The track table is shared: it
// is read-only after the scene is built.
func (s *Scene) Clone() *Scene {
	cp := &Scene{
		Roots:     make([]Root, len(s.Roots)),
		NameIndex: make(map[string]int, len(s.NameIndex)),
		Params:    s.Params,
		Settings:  s.Settings,
		Version:   s.Version,
	}
	for i, r := range s.Roots {
		cp.Roots[i] = Root{Name: r.Name, Node: r.Node.Clone()}
	}
	for k, v := range s.NameIndex {
		cp.NameIndex[k] = v
	}
	for _, l := range s.Lights {
		cp.Lights = append(cp.Lights, l.Clone())
	}
	if s.Camera != nil {
		cp.Camera = s.Camera.Clone()
	}
	return cp
}
