package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/sdfmarch/pkg/config"
	"github.com/chazu/sdfmarch/pkg/engine"
	"github.com/chazu/sdfmarch/pkg/framebuf"
	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/chazu/sdfmarch/pkg/kernel/sdfx"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/scene"
	"github.com/chazu/sdfmarch/pkg/tessellate"
)

// App runs the script to scene to image pipeline.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *log.Logger
}

// Diagnostic is an error or warning tied to an optional source location.
type Diagnostic struct {
	Line    int
	Col     int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// LoadResult is the outcome of evaluating and validating a script. Scene is
// nil whenever Errors is non-empty.
type LoadResult struct {
	Scene    *scene.Scene
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
		log:    logger,
	}
}

// Load evaluates source and validates the resulting scene.
func (a *App) Load(source string) LoadResult {
	var result LoadResult

	// Step 1: Evaluate the script into a scene.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Printf("evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 2: Validate the scene before any ray is cast.
	vr := scene.Validate(sc)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Message: w.Error()})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, Diagnostic{Message: e.Error()})
		}
		return result
	}

	result.Scene = sc
	return result
}

// Job describes one render run. Zero values fall back to the scene's
// settings.
type Job struct {
	Config config.Config
	Width  int
	Height int
	Mode   string
	// Frames overrides the scene's frame count. One renders a still.
	Frames int
	// Time is the scene time of a still.
	Time   float64
	Out    string
	Format framebuf.Format
	// Raw, when set, also dumps every channel of each frame.
	Raw string
}

// Render renders sc according to job and returns the files written.
func (a *App) Render(ctx context.Context, sc *scene.Scene, job Job) ([]string, error) {
	set := sc.Settings
	if job.Width > 0 {
		set.Width = job.Width
	}
	if job.Height > 0 {
		set.Height = job.Height
	}

	shading := sc.Shading()
	if job.Mode != "" {
		mode, err := render.ParseMode(job.Mode)
		if err != nil {
			return nil, err
		}
		shading.Mode = mode
	}

	sv, err := sc.Solver(job.Config.Solver)
	if err != nil {
		return nil, err
	}
	opts := render.DefaultOptions()
	opts.Width = set.Width
	opts.Height = set.Height
	opts.Workers = job.Config.Workers
	opts.Supersample = job.Config.Supersample
	opts.Jitter = set.Jitter
	opts.Seed = set.Seed
	opts.StepLimit = job.Config.Solver.StepLimit
	opts.Shading = shading
	opts.Logger = a.log
	r, err := render.New(sv, sc.Camera, opts)
	if err != nil {
		return nil, err
	}

	frames := job.Frames
	if frames <= 0 {
		frames = 1
		if set.Duration > 0 {
			frames = set.FrameCount()
		}
	}

	var written []string
	emit := func(i int, t float64, frame *framebuf.Frame) error {
		path := framePath(job.Out, i, frames)
		// effects touch the picture only; the raw dump keeps what was traced
		img := frame
		if len(set.Effects) > 0 {
			img = frame.Clone()
			set.Effects.Apply(img, opts.Supersample)
		}
		if err := writeImage(path, img, job.Format, opts.Supersample); err != nil {
			return err
		}
		written = append(written, path)
		if job.Raw != "" {
			raw := framePath(job.Raw, i, frames)
			if err := writeRaw(raw, frame); err != nil {
				return err
			}
			written = append(written, raw)
		}
		return nil
	}

	if frames == 1 {
		sc.Evaluate(job.Time)
		frame, err := r.Render(ctx)
		if err != nil {
			return nil, err
		}
		if err := emit(0, job.Time, frame); err != nil {
			return nil, err
		}
		return written, nil
	}

	tl := render.Timeline{FPS: set.FPS, Count: frames}
	if err := r.Animate(ctx, tl, sc.Evaluate, emit); err != nil {
		return written, err
	}
	return written, nil
}

// ExportSTL tessellates every root of sc at time t into one STL file per
// root and returns the files written.
func (a *App) ExportSTL(sc *scene.Scene, dir string, cells int, t float64) ([]string, error) {
	meshes, err := tessellate.Tessellate(sc, a.kernel, tessellate.Options{Cells: cells, Time: t, Padding: -1})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, m := range meshes {
		if m.IsEmpty() {
			a.log.Printf("stl: root %s produced no triangles, skipped", m.Name)
			continue
		}
		path := filepath.Join(dir, m.Name+".stl")
		if err := a.kernel.SaveSTL(path, m); err != nil {
			return written, err
		}
		a.log.Printf("stl: %s, %d triangles", path, m.TriangleCount())
		written = append(written, path)
	}
	return written, nil
}

// framePath numbers path for frame i of an animation. A path containing a
// printf verb is formatted directly; otherwise the number goes before the
// extension.
func framePath(path string, i, frames int) string {
	if frames <= 1 {
		return path
	}
	if strings.Contains(path, "%") {
		return fmt.Sprintf(path, i)
	}
	ext := filepath.Ext(path)
	if strings.HasSuffix(path, ".sdfr"+ext) {
		ext = ".sdfr" + ext
	}
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), i, ext)
}

func writeImage(path string, frame *framebuf.Frame, format framebuf.Format, supersample int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	img := framebuf.Downscale(frame.Image(), supersample)
	err = framebuf.Encode(f, img, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeRaw(path string, frame *framebuf.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = framebuf.WriteRaw(f, frame, framebuf.CodecFromPath(path))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
