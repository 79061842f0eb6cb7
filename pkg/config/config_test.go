package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/sdfmarch/pkg/solver"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvMinDist, "0.0005")
	t.Setenv(EnvMaxDist, " 50 ")
	t.Setenv(EnvStepLimit, "64")
	t.Setenv(EnvLightStepLimit, "32")
	t.Setenv(EnvNormalEpsilon, "1e-4")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvSupersample, "2")
	t.Setenv(EnvScriptTimeout, "750ms")

	cfg, err := Load(Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := solver.Config{
		MinDist:        0.0005,
		MaxDist:        50,
		StepLimit:      64,
		LightMinDist:   solver.DefaultLightMinDist,
		LightStepLimit: 32,
		NormalEpsilon:  1e-4,
	}
	if cfg.Solver != want {
		t.Fatalf("solver = %+v, want %+v", cfg.Solver, want)
	}
	if cfg.Workers != 3 || cfg.Supersample != 2 || cfg.ScriptTimeout != 750*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv(EnvMinDist, "tiny")
	t.Setenv(EnvStepLimit, "0")
	t.Setenv(EnvScriptTimeout, "-1s")

	base := Default()
	cfg, err := Load(base)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{EnvMinDist, EnvStepLimit, EnvScriptTimeout} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
	if cfg != base {
		t.Fatal("failed Load should return the base config")
	}
}

func TestLoadValidatesCombination(t *testing.T) {
	t.Setenv(EnvMinDist, "10")
	t.Setenv(EnvMaxDist, "5")
	_, err := Load(Default())
	if !errors.Is(err, solver.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
