package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/integrators"
	"github.com/san-kum/suspopt/internal/objective"
	"github.com/san-kum/suspopt/internal/optim"
	"github.com/san-kum/suspopt/internal/physics"
)

const (
	DefaultSpeed        = 15.0
	DefaultRampHeight   = 0.1524
	DefaultRampAngleDeg = 45.0
	DefaultDuration     = 3.0
	DefaultSamples      = 100
	DefaultDamping      = 1000.0
)

type Config struct {
	Vehicle    VehicleConfig    `yaml:"vehicle"`
	Suspension RangeConfig      `yaml:"suspension_compression"`
	Tire       RangeConfig      `yaml:"tire_compression"`
	Road       RoadConfig       `yaml:"road"`
	Simulation SimulationConfig `yaml:"simulation"`
	Objective  ObjectiveConfig  `yaml:"objective"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type VehicleConfig struct {
	Gravity      float64 `yaml:"gravity"`
	SprungMass   float64 `yaml:"sprung_mass"`
	UnsprungMass float64 `yaml:"unsprung_mass"`
}

// RangeConfig is a static compression range in metres.
type RangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type RoadConfig struct {
	Speed      float64 `yaml:"speed"`
	RampHeight float64 `yaml:"ramp_height"`
	RampAngle  float64 `yaml:"ramp_angle_deg"`
}

type SimulationConfig struct {
	Duration float64 `yaml:"duration"`
	Samples  int     `yaml:"samples"`
	RelTol   float64 `yaml:"rel_tol"`
	AbsTol   float64 `yaml:"abs_tol"`
	MaxStep  float64 `yaml:"max_step"`
	MaxSteps int     `yaml:"max_steps"`
}

type ObjectiveConfig struct {
	BoundPenalty  float64 `yaml:"bound_penalty"`
	AccelLimitG   float64 `yaml:"accel_limit_g"`
	DivergedScore float64 `yaml:"diverged_score"`
}

// GuessConfig is the starting point of the search. A zero stiffness means
// "start at the lower stiffness bound".
type GuessConfig struct {
	K1 float64 `yaml:"k1"`
	C1 float64 `yaml:"c1"`
	K2 float64 `yaml:"k2"`
}

type SearchConfig struct {
	InitialGuess    GuessConfig `yaml:"initial_guess"`
	MaxIterations   int         `yaml:"max_iterations"`
	MaxEvaluations  int         `yaml:"max_evaluations"`
	FuncTolerance   float64     `yaml:"func_tolerance"`
	StallIterations int         `yaml:"stall_iterations"`
	SimplexScale    float64     `yaml:"simplex_scale"`
	// GridPoints > 0 runs a coarse sweep with this many points per axis and
	// starts the simplex from its best point.
	GridPoints   int        `yaml:"grid_points"`
	DampingRange [2]float64 `yaml:"damping_range"`
	Workers      int        `yaml:"workers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	integ := integrators.DefaultOptions()
	obj := objective.DefaultSettings()
	return &Config{
		Vehicle: VehicleConfig{
			Gravity:      physics.DefaultGravity,
			SprungMass:   physics.DefaultSprungMass,
			UnsprungMass: physics.DefaultUnsprungMass,
		},
		Suspension: RangeConfig{Min: 0.0762, Max: 0.1524},
		Tire:       RangeConfig{Min: 0.01905, Max: 0.0381},
		Road: RoadConfig{
			Speed:      DefaultSpeed,
			RampHeight: DefaultRampHeight,
			RampAngle:  DefaultRampAngleDeg,
		},
		Simulation: SimulationConfig{
			Duration: DefaultDuration,
			Samples:  DefaultSamples,
			RelTol:   integ.RelTol,
			AbsTol:   integ.AbsTol,
			MaxStep:  integ.MaxStep,
			MaxSteps: integ.MaxSteps,
		},
		Objective: ObjectiveConfig{
			BoundPenalty:  obj.BoundPenalty,
			AccelLimitG:   obj.AccelLimitG,
			DivergedScore: obj.DivergedScore,
		},
		Search: SearchConfig{
			InitialGuess:    GuessConfig{C1: DefaultDamping},
			MaxIterations:   optim.DefaultMaxIterations,
			MaxEvaluations:  optim.DefaultMaxEvaluations,
			FuncTolerance:   optim.DefaultFuncTolerance,
			StallIterations: optim.DefaultStallIterations,
			SimplexScale:    optim.DefaultSimplexScale,
			DampingRange:    [2]float64{100, 10000},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what the component constructors do not: sample grid
// shape and search sweep settings. Physical inputs are checked where they
// are turned into bounds and road profiles.
func (c *Config) Validate() error {
	if !(c.Simulation.Duration > 0) {
		return dynamo.Invalid("simulation duration must be positive, got %g", c.Simulation.Duration)
	}
	if c.Simulation.Samples < 2 {
		return dynamo.Invalid("need at least 2 samples, got %d", c.Simulation.Samples)
	}
	if c.Search.GridPoints < 0 {
		return dynamo.Invalid("grid points must be non-negative, got %d", c.Search.GridPoints)
	}
	if c.Search.GridPoints > 0 {
		lo, hi := c.Search.DampingRange[0], c.Search.DampingRange[1]
		if lo < 0 || hi < lo {
			return dynamo.Invalid("damping range (%g, %g) is invalid", lo, hi)
		}
	}
	return nil
}

func (c *Config) Constants() physics.Constants {
	return physics.Constants{
		Gravity:      c.Vehicle.Gravity,
		SprungMass:   c.Vehicle.SprungMass,
		UnsprungMass: c.Vehicle.UnsprungMass,
	}
}

func (c *Config) SuspensionRange() physics.ComplianceRange {
	return physics.ComplianceRange{Min: c.Suspension.Min, Max: c.Suspension.Max}
}

func (c *Config) TireRange() physics.ComplianceRange {
	return physics.ComplianceRange{Min: c.Tire.Min, Max: c.Tire.Max}
}

func (c *Config) IntegrationOptions() integrators.Options {
	opts := integrators.DefaultOptions()
	opts.RelTol = c.Simulation.RelTol
	opts.AbsTol = c.Simulation.AbsTol
	opts.MaxStep = c.Simulation.MaxStep
	opts.MaxSteps = c.Simulation.MaxSteps
	return opts
}

func (c *Config) ObjectiveSettings() objective.Settings {
	return objective.Settings{
		BoundPenalty:  c.Objective.BoundPenalty,
		AccelLimitG:   c.Objective.AccelLimitG,
		DivergedScore: c.Objective.DivergedScore,
	}
}

// TimeGrid is Samples evenly spaced times over [0, Duration].
func (c *Config) TimeGrid() []float64 {
	return optim.Linspace(0, c.Simulation.Duration, c.Simulation.Samples)
}
