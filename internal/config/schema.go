package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Optimizer  string           `yaml:"optimizer" validate:"oneof=greedy genetic"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Topology   TopologyConfig   `yaml:"topology"`
	Hydraulics HydraulicsConfig `yaml:"hydraulics"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Genetic    GeneticConfig    `yaml:"genetic"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes" validate:"gt=0"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// TopologyConfig controls how features are snapped into a network
type TopologyConfig struct {
	SnapTolerance float64 `yaml:"snap_tolerance" validate:"gt=0"`   // metres
	Precision     int     `yaml:"precision" validate:"gte=0,lte=9"` // decimals used to deduplicate endpoints
}

// HydraulicsConfig holds the solver settings
type HydraulicsConfig struct {
	MaxVelocity          float64 `yaml:"max_velocity" validate:"gt=0"`          // m/s
	MinPressure          float64 `yaml:"min_pressure"`                          // mca
	SourcePressure       float64 `yaml:"source_pressure"`                       // mca
	DefaultEmitterFlow   float64 `yaml:"default_emitter_flow" validate:"gte=0"` // m³/h
	SimultaneousSectors  float64 `yaml:"simultaneous_sectors" validate:"gt=0"`
	RoughnessCoefficient float64 `yaml:"roughness_coefficient" validate:"gt=0"`
	MaxIterations        int     `yaml:"max_iterations" validate:"gte=0"`
	HoseDamping          float64 `yaml:"hose_damping" validate:"gte=0"`
	CyclePolicy          string  `yaml:"cycle_policy" validate:"oneof=reject spanning_tree"`
}

// CatalogConfig holds the commercial diameter sets (mm) and their unit costs
type CatalogConfig struct {
	DiameterSet         []float64           `yaml:"diameter_set" validate:"required,min=1,dive,gt=0"`
	HoseDiameterSet     []float64           `yaml:"hose_diameter_set" validate:"required,min=1,dive,gt=0"`
	UnitCostPerDiameter map[float64]float64 `yaml:"unit_cost_per_diameter" validate:"dive,gte=0"`
}

// GeneticConfig holds the genetic search hyperparameters
type GeneticConfig struct {
	PopulationSize int     `yaml:"population_size" validate:"gte=1"`
	Generations    int     `yaml:"generations" validate:"gte=0"`
	MutationRate   float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`
	ElitismCount   int     `yaml:"elitism_count" validate:"gte=0"`
	TournamentSize int     `yaml:"tournament_size" validate:"gte=1"`
	Seed           *int64  `yaml:"seed,omitempty"` // nil = seeded from the clock
	ProgressEvery  int     `yaml:"progress_every" validate:"gte=1"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
