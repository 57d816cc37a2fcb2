// File: internal/config/humanoid_config.go
// HumanoidConfig holds the tunable parameters of the simulated pointer used as
// the last click strategy: movement timing (Fitts's law), path shape, and
// press/release hold duration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// HumanoidConfig tunes the simulated pointer.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Fitts's law coefficients, MT = A + B*log2(1 + D/W), in milliseconds.
	FittsA float64 `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB float64 `mapstructure:"fitts_b" yaml:"fitts_b"`
	// StepsPerSecond is the sampling rate of pointer moves along the path.
	StepsPerSecond float64 `mapstructure:"steps_per_second" yaml:"steps_per_second"`
	// MaxSteps caps the number of path points sent to the provider.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// CurveJitter scales the random offset of the Bezier control points
	// relative to the travel distance.
	CurveJitter float64 `mapstructure:"curve_jitter" yaml:"curve_jitter"`
	// TargetInset keeps the click point away from the element border (0..0.5).
	TargetInset    float64 `mapstructure:"target_inset" yaml:"target_inset"`
	ClickHoldMinMs int     `mapstructure:"click_hold_min_ms" yaml:"click_hold_min_ms"`
	ClickHoldMaxMs int     `mapstructure:"click_hold_max_ms" yaml:"click_hold_max_ms"`
	Seed           int64   `mapstructure:"seed" yaml:"seed"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("humanoid.enabled", true)
	v.SetDefault("humanoid.fitts_a", 100.0)
	v.SetDefault("humanoid.fitts_b", 150.0)
	v.SetDefault("humanoid.steps_per_second", 60.0)
	v.SetDefault("humanoid.max_steps", 40)
	v.SetDefault("humanoid.curve_jitter", 0.15)
	v.SetDefault("humanoid.target_inset", 0.25)
	v.SetDefault("humanoid.click_hold_min_ms", 60)
	v.SetDefault("humanoid.click_hold_max_ms", 140)
	v.SetDefault("humanoid.seed", 0)
}

// Validate checks the humanoid configuration.
func (h *HumanoidConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if h.FittsA < 0 || h.FittsB < 0 {
		return fmt.Errorf("fitts_a and fitts_b must not be negative")
	}
	if h.MaxSteps < 2 {
		return fmt.Errorf("max_steps must be at least 2")
	}
	if h.TargetInset < 0 || h.TargetInset > 0.5 {
		return fmt.Errorf("target_inset must be between 0.0 and 0.5")
	}
	if h.ClickHoldMinMs < 0 || h.ClickHoldMaxMs < h.ClickHoldMinMs {
		return fmt.Errorf("click_hold_min_ms must be >= 0 and <= click_hold_max_ms")
	}
	return nil
}
