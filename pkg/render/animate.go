package render

import (
	"context"
	"fmt"

	"github.com/chazu/sdfmarch/pkg/framebuf"
)

// Timeline selects which frames of an animation to render.
type Timeline struct {
	FPS   float64
	First int
	Count int
}

// Time returns the scene time of frame i.
func (tl Timeline) Time(i int) float64 {
	if tl.FPS <= 0 {
		return 0
	}
	return float64(i) / tl.FPS
}

// EvaluateFunc resolves every animated value of the scene at time t. It runs
// with no rendering in flight.
type EvaluateFunc func(t float64)

// FrameFunc receives each finished frame in order.
type FrameFunc func(index int, t float64, frame *framebuf.Frame) error

// Animate renders the frames of tl one after another: evaluate, then trace
// the frame in parallel, then hand it to emit.
func (r *Renderer) Animate(ctx context.Context, tl Timeline, evaluate EvaluateFunc, emit FrameFunc) error {
	if tl.Count <= 0 {
		return fmt.Errorf("render: timeline has no frames")
	}
	for i := tl.First; i < tl.First+tl.Count; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render: animation stopped before frame %d: %w", i, err)
		}
		t := tl.Time(i)
		if evaluate != nil {
			evaluate(t)
		}
		frame, err := r.Render(ctx)
		if err != nil {
			return fmt.Errorf("render: frame %d: %w", i, err)
		}
		if err := emit(i, t, frame); err != nil {
			return fmt.Errorf("render: emit frame %d: %w", i, err)
		}
		if r.opts.Logger != nil {
			r.opts.Logger.Printf("render: frame %d (t=%.3fs) done", i, t)
		}
	}
	return nil
}
