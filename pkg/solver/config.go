package solver

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid solver config")

// Default tunables.
const (
	DefaultMinDist        = 0.001
	DefaultMaxDist        = 300.0
	DefaultStepLimit      = 256
	DefaultLightMinDist   = 0.001
	DefaultLightStepLimit = 256
	DefaultNormalEpsilon  = 0.001
)

// Config holds the marching tunables. It is copied into a Solver and stays
// fixed for the Solver's lifetime.
type Config struct {
	MinDist        float64 `json:"min_dist"`         // primary hit threshold
	MaxDist        float64 `json:"max_dist"`         // escape threshold on a single sample
	StepLimit      int     `json:"step_limit"`       // primary step budget
	LightMinDist   float64 `json:"light_min_dist"`   // shadow hit threshold
	LightStepLimit int     `json:"light_step_limit"` // shadow step budget
	NormalEpsilon  float64 `json:"normal_epsilon"`   // central difference offset
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		MinDist:        DefaultMinDist,
		MaxDist:        DefaultMaxDist,
		StepLimit:      DefaultStepLimit,
		LightMinDist:   DefaultLightMinDist,
		LightStepLimit: DefaultLightStepLimit,
		NormalEpsilon:  DefaultNormalEpsilon,
	}
}

// Validate checks that every tunable is usable.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"min_dist", c.MinDist},
		{"max_dist", c.MaxDist},
		{"light_min_dist", c.LightMinDist},
		{"normal_epsilon", c.NormalEpsilon},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("solver: %s must be a positive finite number, got %v: %w", p.name, p.v, ErrInvalidConfig)
		}
	}
	if c.MaxDist <= c.MinDist {
		return fmt.Errorf("solver: max_dist %v must exceed min_dist %v: %w", c.MaxDist, c.MinDist, ErrInvalidConfig)
	}
	if c.StepLimit <= 0 {
		return fmt.Errorf("solver: step_limit must be positive, got %d: %w", c.StepLimit, ErrInvalidConfig)
	}
	if c.LightStepLimit <= 0 {
		return fmt.Errorf("solver: light_step_limit must be positive, got %d: %w", c.LightStepLimit, ErrInvalidConfig)
	}
	return nil
}
