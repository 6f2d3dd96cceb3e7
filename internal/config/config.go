// Package config holds the immutable per-run stencil configuration.
// Values are populated from .stencilforge.yaml, STENCILFORGE_* env vars,
// CLI flags, and optional TOML board profiles, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StencilConfig is one run's configuration snapshot. It is validated
// once at pipeline entry and never mutated afterwards.
type StencilConfig struct {
	PastePatterns   []string `mapstructure:"paste_patterns" validate:"min=1"`
	OutlinePatterns []string `mapstructure:"outline_patterns"`

	ThicknessMM     float64 `mapstructure:"thickness_mm" validate:"gt=0"`
	PasteOffsetMM   float64 `mapstructure:"paste_offset_mm"`
	OutlineMarginMM float64 `mapstructure:"outline_margin_mm" validate:"gte=0"`
	OutputMode      string  `mapstructure:"output_mode" validate:"oneof=holes_only solid_with_cutouts"`
	ArcSteps        int     `mapstructure:"arc_steps" validate:"gte=8"`
	CurveResolution int     `mapstructure:"curve_resolution" validate:"gte=4"`

	LocatorEnabled      bool    `mapstructure:"locator_enabled"`
	LocatorMode         string  `mapstructure:"locator_mode" validate:"oneof=wall step"`
	LocatorHeightMM     float64 `mapstructure:"locator_height_mm" validate:"gte=0"`
	LocatorWidthMM      float64 `mapstructure:"locator_width_mm" validate:"gte=0"`
	LocatorClearanceMM  float64 `mapstructure:"locator_clearance_mm" validate:"gte=0"`
	LocatorStepHeightMM float64 `mapstructure:"locator_step_height_mm" validate:"gte=0"`
	LocatorStepWidthMM  float64 `mapstructure:"locator_step_width_mm" validate:"gte=0"`
	LocatorOpenSide     string  `mapstructure:"locator_open_side" validate:"oneof=none top bottom left right"`
	LocatorOpenWidthMM  float64 `mapstructure:"locator_open_width_mm" validate:"gte=0"`

	ModelBackend            string  `mapstructure:"model_backend" validate:"oneof=earcut scanline"`
	STLLinearDeflectionMM   float64 `mapstructure:"stl_linear_deflection_mm" validate:"gt=0"`
	STLAngularDeflectionRad float64 `mapstructure:"stl_angular_deflection_rad" validate:"gt=0"`
	STLFormat               string  `mapstructure:"stl_format" validate:"oneof=binary ascii"`

	QFNRegenEnabled        bool    `mapstructure:"qfn_regen_enabled"`
	QFNMinFeatureMM        float64 `mapstructure:"qfn_min_feature_mm" validate:"gt=0"`
	QFNConfidenceThreshold float64 `mapstructure:"qfn_confidence_threshold" validate:"gte=0,lte=1"`
	QFNMaxPadWidthMM       float64 `mapstructure:"qfn_max_pad_width_mm" validate:"gt=0"`

	Verbose bool `mapstructure:"verbose"`
}

// ValidationError reports every invalid configuration value at once so
// the user can fix a config file in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// SetDefaults registers the built-in default for every key on v. Called
// once at CLI startup before any config file is read.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paste_patterns", []string{"*.gtp", "*paste*top*", "*-f_paste*", "*.crm", "*topsolder*"})
	v.SetDefault("outline_patterns", []string{"*.gko", "*.gm1", "*outline*", "*edge_cuts*", "*.gml"})
	v.SetDefault("thickness_mm", 0.12)
	v.SetDefault("paste_offset_mm", -0.05)
	v.SetDefault("outline_margin_mm", 5.0)
	v.SetDefault("output_mode", "solid_with_cutouts")
	v.SetDefault("arc_steps", 64)
	v.SetDefault("curve_resolution", 16)
	v.SetDefault("locator_enabled", false)
	v.SetDefault("locator_mode", "wall")
	v.SetDefault("locator_height_mm", 2.0)
	v.SetDefault("locator_width_mm", 2.0)
	v.SetDefault("locator_clearance_mm", 0.2)
	v.SetDefault("locator_step_height_mm", 1.0)
	v.SetDefault("locator_step_width_mm", 2.0)
	v.SetDefault("locator_open_side", "none")
	v.SetDefault("locator_open_width_mm", 0.0)
	v.SetDefault("model_backend", "earcut")
	v.SetDefault("stl_linear_deflection_mm", 0.01)
	v.SetDefault("stl_angular_deflection_rad", 0.5)
	v.SetDefault("stl_format", "binary")
	v.SetDefault("qfn_regen_enabled", false)
	v.SetDefault("qfn_min_feature_mm", 0.28)
	v.SetDefault("qfn_confidence_threshold", 0.7)
	v.SetDefault("qfn_max_pad_width_mm", 0.5)
	v.SetDefault("verbose", false)
}

// Load unmarshals the current viper state into a StencilConfig.
func Load(v *viper.Viper) (StencilConfig, error) {
	var cfg StencilConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return StencilConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() StencilConfig {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := Load(v)
	return cfg
}

// Validate checks every field and returns a ValidationError naming each
// violation. The pipeline calls this exactly once before doing any I/O.
func (c StencilConfig) Validate() error {
	var problems []string
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	if c.LocatorEnabled && c.LocatorMode == "wall" && c.LocatorWidthMM <= 0 {
		problems = append(problems, "locator_width_mm must be positive when the wall locator is enabled")
	}
	if c.LocatorOpenSide != "none" && c.LocatorOpenWidthMM <= 0 {
		problems = append(problems, "locator_open_width_mm must be positive when locator_open_side is set")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
