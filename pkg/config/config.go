// Package config reads run-time overrides for a render from environment
// variables. Overrides sit between the scene's own settings and explicit
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/sdfmarch/pkg/solver"
)

const (
	// DefaultWorkers lets the renderer use one worker per CPU.
	DefaultWorkers = 0
	// DefaultSupersample renders one ray per pixel.
	DefaultSupersample = 1
	// DefaultScriptTimeout bounds scene script evaluation.
	DefaultScriptTimeout = 5 * time.Second
)

// Environment variable names.
const (
	EnvMinDist        = "SDFMARCH_MIN_DIST"
	EnvMaxDist        = "SDFMARCH_MAX_DIST"
	EnvStepLimit      = "SDFMARCH_STEP_LIMIT"
	EnvLightMinDist   = "SDFMARCH_LIGHT_MIN_DIST"
	EnvLightStepLimit = "SDFMARCH_LIGHT_STEP_LIMIT"
	EnvNormalEpsilon  = "SDFMARCH_NORMAL_EPSILON"
	EnvWorkers        = "SDFMARCH_WORKERS"
	EnvSupersample    = "SDFMARCH_SUPERSAMPLE"
	EnvScriptTimeout  = "SDFMARCH_SCRIPT_TIMEOUT"
)

// Config captures every tunable a run can override.
type Config struct {
	Solver        solver.Config
	Workers       int
	Supersample   int
	ScriptTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solver:        solver.DefaultConfig(),
		Workers:       DefaultWorkers,
		Supersample:   DefaultSupersample,
		ScriptTimeout: DefaultScriptTimeout,
	}
}

// Load applies environment overrides on top of base and validates the
// result. Every malformed variable is reported, not just the first.
func Load(base Config) (Config, error) {
	cfg := base
	var problems []string

	floatVar := func(key string, dst *float64) {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) {
			problems = append(problems, fmt.Sprintf("%s must be a positive number, got %q", key, raw))
			return
		}
		*dst = v
	}
	intVar := func(key string, dst *int, lo int) {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < lo {
			problems = append(problems, fmt.Sprintf("%s must be an integer >= %d, got %q", key, lo, raw))
			return
		}
		*dst = v
	}

	floatVar(EnvMinDist, &cfg.Solver.MinDist)
	floatVar(EnvMaxDist, &cfg.Solver.MaxDist)
	intVar(EnvStepLimit, &cfg.Solver.StepLimit, 1)
	floatVar(EnvLightMinDist, &cfg.Solver.LightMinDist)
	intVar(EnvLightStepLimit, &cfg.Solver.LightStepLimit, 1)
	floatVar(EnvNormalEpsilon, &cfg.Solver.NormalEpsilon)
	intVar(EnvWorkers, &cfg.Workers, 0)
	intVar(EnvSupersample, &cfg.Supersample, 1)

	if raw := strings.TrimSpace(os.Getenv(EnvScriptTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be a positive duration, got %q", EnvScriptTimeout, raw))
		} else {
			cfg.ScriptTimeout = d
		}
	}

	if len(problems) > 0 {
		return base, errors.New("config: " + strings.Join(problems, "; "))
	}
	if err := cfg.Solver.Validate(); err != nil {
		return base, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
