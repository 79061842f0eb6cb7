// Command sdfmarch renders a scene script by sphere tracing.
//
// Usage:
//
//	sdfmarch [flags] scene.lisp
//
// Solver tunables come from the script's settings form, then from
// SDFMARCH_* environment variables, then from flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/chazu/sdfmarch/pkg/config"
	"github.com/chazu/sdfmarch/pkg/framebuf"
)

func main() {
	var (
		width       = flag.Int("width", 0, "image width (0 uses the scene setting)")
		height      = flag.Int("height", 0, "image height (0 uses the scene setting)")
		mode        = flag.String("mode", "", "shading mode: normal, color, steps, trap, lit or volumetric")
		frames      = flag.Int("frames", 0, "number of frames (0 uses the scene's duration)")
		at          = flag.Float64("time", 0, "scene time of a still image")
		out         = flag.String("out", "out.png", "output image; animations are numbered")
		raw         = flag.String("raw", "", "also dump raw channels (.sdfr, .sdfr.zst or .sdfr.sz)")
		workers     = flag.Int("workers", -1, "render workers (0 means one per CPU)")
		supersample = flag.Int("supersample", 0, "rays per pixel along each axis")
		jitter      = flag.Float64("jitter", -1, "random ray offset within each sample, 0 to 1 (negative uses the scene setting)")
		noEffects   = flag.Bool("no-effects", false, "skip the scene's post effects")
		stlDir      = flag.String("stl", "", "export one STL per root into this directory")
		cells       = flag.Int("cells", 0, "marching cubes resolution for STL export")
		noRender    = flag.Bool("no-render", false, "skip the image, e.g. for STL export only")
		quiet       = flag.Bool("q", false, "suppress progress output")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scene.lisp\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "sdfmarch: ", log.LstdFlags)
	if *quiet {
		logger.SetOutput(io.Discard)
	}

	env, err := config.Load(config.Default())
	if err != nil {
		log.Fatal(err)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read scene: %v", err)
	}

	app := NewApp(logger)
	app.engine.Timeout = env.ScriptTimeout
	res := app.Load(string(source))
	for _, w := range res.Warnings {
		logger.Printf("warning: %s", w)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "%s: %s\n", flag.Arg(0), e)
		}
		os.Exit(1)
	}
	sc := res.Scene

	// Scene settings, then environment, then flags.
	base := config.Default()
	base.Solver = sc.Settings.Solver
	base.Supersample = sc.Settings.Supersample
	base.ScriptTimeout = env.ScriptTimeout
	cfg, err := config.Load(base)
	if err != nil {
		log.Fatal(err)
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if *supersample > 0 {
		cfg.Supersample = *supersample
	}
	if *jitter >= 0 {
		sc.Settings.Jitter = math.Min(*jitter, 1)
	}
	if *noEffects {
		sc.Settings.Effects = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *stlDir != "" {
		files, err := app.ExportSTL(sc, *stlDir, *cells, *at)
		if err != nil {
			log.Fatalf("stl export: %v", err)
		}
		logger.Printf("wrote %d STL files", len(files))
	}
	if *noRender {
		return
	}

	format, err := framebuf.FormatFromPath(*out)
	if err != nil {
		log.Fatal(err)
	}
	start := time.Now()
	files, err := app.Render(ctx, sc, Job{
		Config: cfg,
		Width:  *width,
		Height: *height,
		Mode:   *mode,
		Frames: *frames,
		Time:   *at,
		Out:    *out,
		Format: format,
		Raw:    *raw,
	})
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("wrote %d files in %v", len(files), time.Since(start).Round(time.Millisecond))
}
