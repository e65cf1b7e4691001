// Package config provides configuration management for pipenet.
//
// The config file holds the design defaults: snap tolerance, solver
// limits, the diameter catalog and the genetic search hyperparameters.
// Values missing from the file keep their defaults. Design runs are
// stored in the database, never in the config.
//
// Config file locations (priority order):
//  1. $PIPENET_CONFIG
//  2. ./pipenet.yaml
//  3. $XDG_CONFIG_HOME/pipenet/config.yaml
//  4. ~/.config/pipenet/config.yaml
//  5. /etc/pipenet/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"pipenet/internal/domain"
	"pipenet/internal/genetic"
	"pipenet/internal/hydraulics"
	"pipenet/internal/topology"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads and validates config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML on top of the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	// Explicit sets replace the defaults instead of merging into them
	cfg.Catalog = CatalogConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	params := hydraulics.DefaultParams()
	cat := domain.DefaultCatalog()

	return &Config{
		Version:   1,
		Optimizer: string(domain.OptimizerGreedy),
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: Duration(10 * time.Second),
			MaxUploadBytes:  10 << 20,
		},
		Database: DatabaseConfig{Path: "./pipenet.db"},
		Topology: TopologyConfig{
			SnapTolerance: topology.DefaultTolerance,
			Precision:     topology.DefaultPrecision,
		},
		Hydraulics: HydraulicsConfig{
			MaxVelocity:          params.MaxVelocity,
			MinPressure:          params.MinPressure,
			SourcePressure:       params.SourcePressure,
			DefaultEmitterFlow:   params.DefaultEmitterFlow,
			SimultaneousSectors:  params.SimultaneousSectors,
			RoughnessCoefficient: params.Roughness,
			MaxIterations:        params.MaxIterations,
			HoseDamping:          params.HoseDamping,
			CyclePolicy:          string(params.CyclePolicy),
		},
		Catalog: CatalogConfig{
			DiameterSet:         cat.Standard,
			HoseDiameterSet:     cat.Hose,
			UnitCostPerDiameter: cat.UnitCost,
		},
		Genetic: GeneticConfig{
			PopulationSize: genetic.DefaultPopulationSize,
			Generations:    genetic.DefaultGenerations,
			MutationRate:   genetic.DefaultMutationRate,
			ElitismCount:   genetic.DefaultElitism,
			TournamentSize: genetic.DefaultTournamentSize,
			ProgressEvery:  10,
		},
	}
}

// applyDefaults fills in values a partial file leaves empty
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Optimizer == "" {
		c.Optimizer = defaults.Optimizer
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Database.Path == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Hydraulics.CyclePolicy == "" {
		c.Hydraulics.CyclePolicy = defaults.Hydraulics.CyclePolicy
	}
	if len(c.Catalog.DiameterSet) == 0 {
		c.Catalog.DiameterSet = defaults.Catalog.DiameterSet
	}
	if len(c.Catalog.HoseDiameterSet) == 0 {
		c.Catalog.HoseDiameterSet = defaults.Catalog.HoseDiameterSet
	}
	if c.Catalog.UnitCostPerDiameter == nil {
		c.Catalog.UnitCostPerDiameter = defaults.Catalog.UnitCostPerDiameter
	}
}

// DomainCatalog converts the catalog section into a domain.Catalog
func (c *Config) DomainCatalog() domain.Catalog {
	return domain.Catalog{
		Standard: c.Catalog.DiameterSet,
		Hose:     c.Catalog.HoseDiameterSet,
		UnitCost: c.Catalog.UnitCostPerDiameter,
	}
}

// HydraulicParams converts the hydraulics section into solver params
func (c *Config) HydraulicParams() hydraulics.Params {
	h := c.Hydraulics
	return hydraulics.Params{
		MaxVelocity:         h.MaxVelocity,
		MinPressure:         h.MinPressure,
		SourcePressure:      h.SourcePressure,
		DefaultEmitterFlow:  h.DefaultEmitterFlow,
		SimultaneousSectors: h.SimultaneousSectors,
		Roughness:           h.RoughnessCoefficient,
		MaxIterations:       h.MaxIterations,
		HoseDamping:         h.HoseDamping,
		CyclePolicy:         hydraulics.CyclePolicy(h.CyclePolicy),
	}
}

// SolverOptions returns the options for hydraulics.New
func (c *Config) SolverOptions() []hydraulics.Option {
	return []hydraulics.Option{
		hydraulics.WithParams(c.HydraulicParams()),
		hydraulics.WithCatalog(c.DomainCatalog()),
	}
}

// BuilderOptions returns the options for topology.NewBuilder
func (c *Config) BuilderOptions() []topology.Option {
	return []topology.Option{
		topology.WithTolerance(c.Topology.SnapTolerance),
		topology.WithPrecision(c.Topology.Precision),
		topology.WithDefaultEmitterFlow(c.Hydraulics.DefaultEmitterFlow),
	}
}

// GeneticOptions returns the options for genetic.New. A configured seed
// is used only when seed is nil.
func (c *Config) GeneticOptions(seed *int64) []genetic.Option {
	g := c.Genetic
	opts := []genetic.Option{
		genetic.WithPopulationSize(g.PopulationSize),
		genetic.WithGenerations(g.Generations),
		genetic.WithMutationRate(g.MutationRate),
		genetic.WithElitism(g.ElitismCount),
		genetic.WithTournamentSize(g.TournamentSize),
	}
	if seed == nil {
		seed = g.Seed
	}
	if seed != nil {
		opts = append(opts, genetic.WithSeed(*seed))
	}
	return opts
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	h := c.Hydraulics
	summary := fmt.Sprintf("Optimizer: %s, Database: %s\n", c.Optimizer, c.Database.Path)
	summary += fmt.Sprintf("Pressure: min %.1f mca, source %.1f mca; Velocity: max %.2f m/s; C=%.0f\n",
		h.MinPressure, h.SourcePressure, h.MaxVelocity, h.RoughnessCoefficient)
	summary += fmt.Sprintf("Diameters: %v (hose %v)", c.Catalog.DiameterSet, c.Catalog.HoseDiameterSet)
	return summary
}
