// Package render drives the solver to produce images: it generates camera
// rays, shades the intersections and spreads the rows of a frame across a
// worker pool.
//
// A frame is rendered in two phases. The field tree is first evaluated for
// the frame's time by the caller, with no rendering in flight; only then are
// rows traced, concurrently and read-only.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/solver"
)

// ErrNoShadowQuery is returned when a lit mode is requested from a tracer
// that cannot answer visibility queries.
var ErrNoShadowQuery = errors.New("render: lit shading needs a tracer with SolveSimple")

// Logger receives progress lines. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Tracer answers primary rays.
type Tracer interface {
	Solve(ray solver.Ray) solver.Intersection
}

// ShadowTracer also answers visibility rays.
type ShadowTracer interface {
	Tracer
	SolveSimple(ray solver.Ray, maxDistance float64) solver.ShadowResult
}

// VolumeTracer gathers light along primary rays.
type VolumeTracer interface {
	SolveVolumetric(ray solver.Ray, lights []light.Light) solver.VolumetricResult
}

// configured tracers expose the tunables the shadow bias follows.
type configured interface {
	Config() solver.Config
}

// Compile-time interface checks.
var (
	_ ShadowTracer = (*solver.Solver)(nil)
	_ VolumeTracer = (*solver.Solver)(nil)
	_ configured   = (*solver.Solver)(nil)
)

// shadowBias lifts shadow origins clear of both hit thresholds so a shadow
// ray never terminates on the surface it leaves.
func shadowBias(tr Tracer) float64 {
	minDist, lightMin := solver.DefaultMinDist, solver.DefaultLightMinDist
	if c, ok := tr.(configured); ok {
		cfg := c.Config()
		minDist, lightMin = cfg.MinDist, cfg.LightMinDist
	}
	return 2 * math.Max(minDist, lightMin)
}

// Options configures a Renderer.
type Options struct {
	Width   int
	Height  int
	Workers int // 0 means one per CPU
	// Supersample renders Supersample x Supersample rays per output pixel.
	Supersample int
	// Jitter moves each ray off its sample centre by up to half a sample
	// times Jitter, in [0, 1]. Zero keeps the regular grid.
	Jitter float64
	// Seed drives jitter and lens sampling. A frame is reproducible for a
	// given seed regardless of Workers.
	Seed uint64
	// ShadowBias offsets shadow ray origins along the normal. Zero derives
	// it from the tracer's MinDist and LightMinDist.
	ShadowBias float64
	// StepLimit normalises ModeSteps output.
	StepLimit int
	Shading   Shading
	Logger    Logger
}

// DefaultOptions renders a 640x480 normal map.
func DefaultOptions() Options {
	return Options{
		Width:       640,
		Height:      480,
		Supersample: 1,
		StepLimit:   solver.DefaultStepLimit,
		Shading:     DefaultShading(),
	}
}

// Renderer turns a tracer and a camera into frames.
type Renderer struct {
	tracer Tracer
	volume VolumeTracer
	camera *Camera
	opts   Options
	shader shader
}

// New validates the options against the tracer's capabilities.
func New(tr Tracer, cam *Camera, opts Options) (*Renderer, error) {
	if tr == nil || cam == nil {
		return nil, fmt.Errorf("render: tracer and camera are required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	if opts.StepLimit <= 0 {
		opts.StepLimit = solver.DefaultStepLimit
	}
	if !(opts.Jitter > 0) {
		opts.Jitter = 0
	}
	opts.Jitter = math.Min(opts.Jitter, 1)
	if opts.ShadowBias <= 0 {
		opts.ShadowBias = shadowBias(tr)
	}

	r := &Renderer{tracer: tr, camera: cam, opts: opts}
	r.shader = shader{
		Shading:   opts.Shading,
		bias:      opts.ShadowBias,
		stepLimit: float64(opts.StepLimit),
	}
	if opts.Shading.Mode.Lit() {
		st, ok := tr.(ShadowTracer)
		if !ok {
			return nil, fmt.Errorf("render: %s mode: %w", opts.Shading.Mode, ErrNoShadowQuery)
		}
		r.shader.shadow = st
	}
	if opts.Shading.Mode == ModeVolumetric {
		vt, ok := tr.(VolumeTracer)
		if !ok {
			return nil, fmt.Errorf("render: volumetric mode needs a tracer with SolveVolumetric")
		}
		r.volume = vt
	}
	return r, nil
}

// Options returns the effective options.
func (r *Renderer) Options() Options { return r.opts }

// FrameSize returns the size of the buffer Render produces, which is the
// output size times the supersampling factor.
func (r *Renderer) FrameSize() (int, int) {
	return r.opts.Width * r.opts.Supersample, r.opts.Height * r.opts.Supersample
}

// Render traces one frame. The field tree must already be evaluated and
// must not change until Render returns.
func (r *Renderer) Render(ctx context.Context) (*framebuf.Frame, error) {
	w, h := r.FrameSize()
	frame, err := framebuf.New(w, h)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pool := newWorkerPool(h, r.opts.Workers, func(y int) int {
		if ctx.Err() != nil {
			return 0
		}
		return r.renderRow(frame, y)
	})
	pool.Start()
	for y := 0; y < h; y++ {
		pool.Submit(rowTask{Y: y})
	}
	pool.Stop()

	hits := 0
	for res := range pool.Results() {
		hits += res.Hits
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render: frame cancelled: %w", err)
	}
	if r.opts.Logger != nil {
		r.opts.Logger.Printf("render: %dx%d in %v, %d of %d pixels hit",
			w, h, time.Since(start).Round(time.Millisecond), hits, w*h)
	}
	return frame, nil
}

func (r *Renderer) renderRow(frame *framebuf.Frame, y int) int {
	var rng *rand.Rand
	lens := r.camera.HasLens()
	if r.opts.Jitter > 0 || lens {
		rng = rand.New(rand.NewPCG(r.opts.Seed, uint64(y)))
	}

	hits := 0
	for x := 0; x < frame.Width; x++ {
		sx, sy := float64(x)+0.5, float64(y)+0.5
		u, v := 0.5, 0.5
		if rng != nil {
			sx += (rng.Float64() - 0.5) * r.opts.Jitter
			sy += (rng.Float64() - 0.5) * r.opts.Jitter
			if lens {
				u, v = rng.Float64(), rng.Float64()
			}
		}
		px := r.trace(r.camera.LensRay(sx, sy, frame.Width, frame.Height, u, v))
		if !math.IsInf(px.Depth, 1) {
			hits++
		}
		frame.Set(x, y, px)
	}
	return hits
}

// trace shades one primary ray.
func (r *Renderer) trace(ray solver.Ray) framebuf.Pixel {
	var (
		hit  solver.Intersection
		path [3]float64
	)
	if r.volume != nil {
		res := r.volume.SolveVolumetric(ray, r.shader.Lights)
		hit, path = res.Intersection, res.PathLight
	} else {
		hit = r.tracer.Solve(ray)
	}

	px := framebuf.Pixel{Steps: hit.Steps, Depth: math.Inf(1)}
	if hit.Hit {
		px.Color = r.shader.surface(ray, hit)
		px.Depth = hit.Distance
		px.Trap = hit.Trap[0]
	} else {
		px.Color = r.shader.miss()
	}
	k := r.shader.VolumeDensity
	for i := range px.Color {
		px.Color[i] += path[i] * k
	}
	return px
}
