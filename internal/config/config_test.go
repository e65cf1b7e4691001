package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pipenet/internal/domain"
	"pipenet/internal/hydraulics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Optimizer != "greedy" {
		t.Errorf("Optimizer = %s, want greedy", cfg.Optimizer)
	}
	if cfg.Database.Path == "" {
		t.Error("Database.Path should not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	assert.Equal(t, hydraulics.DefaultParams(), cfg.HydraulicParams())
	assert.Equal(t, domain.DefaultCatalog(), cfg.DomainCatalog())
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
optimizer: genetic
hydraulics:
  min_pressure: 15
genetic:
  generations: 20
  seed: 42
`))
	require.NoError(t, err)

	assert.Equal(t, "genetic", cfg.Optimizer)
	assert.Equal(t, 15.0, cfg.Hydraulics.MinPressure)
	assert.Equal(t, hydraulics.DefaultParams().SourcePressure, cfg.Hydraulics.SourcePressure)
	assert.Equal(t, 20, cfg.Genetic.Generations)
	assert.Equal(t, 50, cfg.Genetic.PopulationSize)
	require.NotNil(t, cfg.Genetic.Seed)
	assert.Equal(t, int64(42), *cfg.Genetic.Seed)
	assert.Equal(t, domain.DefaultCatalog().Standard, cfg.Catalog.DiameterSet)
}

func TestParseCatalogReplacesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
catalog:
  diameter_set: [40, 60]
  unit_cost_per_diameter:
    40: 2
    60: 4
`))
	require.NoError(t, err)

	cat := cfg.DomainCatalog()
	assert.Equal(t, []float64{40, 60}, cat.Standard)
	assert.Equal(t, []float64{16, 20}, cat.Hose)
	assert.Equal(t, map[float64]float64{40: 2, 60: 4}, cat.UnitCost)
	assert.Equal(t, domain.DefaultUnitCost, cat.Cost(32))
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown optimizer", "optimizer: annealing", "Optimizer"},
		{"zero tolerance", "topology:\n  snap_tolerance: 0", "SnapTolerance"},
		{"precision too large", "topology:\n  precision: 12", "Precision"},
		{"bad cycle policy", "hydraulics:\n  cycle_policy: ignore", "CyclePolicy"},
		{"mutation above one", "genetic:\n  mutation_rate: 2", "MutationRate"},
		{"negative diameter", "catalog:\n  diameter_set: [32, -50]", "DiameterSet"},
		{"unsorted set", "catalog:\n  diameter_set: [50, 32]", "not strictly increasing"},
		{"elitism above population", "genetic:\n  population_size: 2\n  elitism_count: 3", "elitism_count"},
		{"malformed yaml", "hydraulics: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnsortedCatalogWrapsSentinel(t *testing.T) {
	_, err := Parse([]byte("catalog:\n  hose_diameter_set: [20, 16]"))
	assert.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestGeneticOptionsSeedPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.GeneticOptions(nil), 5)

	configured := int64(1)
	cfg.Genetic.Seed = &configured
	assert.Len(t, cfg.GeneticOptions(nil), 6)

	explicit := int64(2)
	assert.Len(t, cfg.GeneticOptions(&explicit), 6)
}

func TestSaveAndLoad(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Optimizer = "genetic"
	cfg.Hydraulics.CyclePolicy = string(hydraulics.CycleSpanningTree)
	cfg.Server.ShutdownTimeout = Duration(30 * time.Second)
	seed := int64(7)
	cfg.Genetic.Seed = &seed

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	assert.Equal(t, cfg, loaded)
}

func TestLoadFromMissingPath(t *testing.T) {
	_, path, err := LoadFromPath("/nonexistent/pipenet.yaml")
	assert.Error(t, err)
	assert.Equal(t, "/nonexistent/pipenet.yaml", path)
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	// Should find config in working directory
	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	// Existing explicit path wins
	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("optimizer: genetic\n"), 0644))
	t.Setenv(EnvConfigPath, explicit)
	assert.Equal(t, explicit, FindConfigPath())

	loaded, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, "genetic", loaded.Optimizer)
}

func TestSearchPathsOrder(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/explicit.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/user")

	paths := SearchPaths()
	require.Len(t, paths, 5)
	assert.Equal(t, "/tmp/explicit.yaml", paths[0])
	assert.Equal(t, ConfigFileName, filepath.Base(paths[1]))
	assert.Equal(t, "/xdg/pipenet/config.yaml", paths[2])
	assert.Equal(t, "/home/user/.config/pipenet/config.yaml", paths[3])
	assert.Equal(t, "/etc/pipenet/config.yaml", paths[4])
	assert.Equal(t, "/xdg/pipenet/config.yaml", DefaultConfigPath())
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
