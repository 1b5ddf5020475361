// Package config provides configuration loading for the plague engine:
// global tunables, job schedule and per-species profiles. Defaults are
// embedded; an optional YAML file overrides them wholesale. Reloading
// produces a fresh Config value, never mutates a live one.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable the engine reads.
type Config struct {
	Settings SettingsConfig   `yaml:"settings"`
	Symbols  SymbolsConfig    `yaml:"symbols"`
	Plague   PlagueConfig     `yaml:"plague"`
	Species  []SpeciesProfile `yaml:"species"`
}

// SettingsConfig holds miscellaneous switches.
type SettingsConfig struct {
	Debug bool `yaml:"debug"`
}

// SymbolsConfig holds the status symbols composed into display labels.
type SymbolsConfig struct {
	Plague string `yaml:"plague"`
	Breed  string `yaml:"breed"`
}

// PlagueConfig holds the probability model and damage tunables.
type PlagueConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Formula    string         `yaml:"formula"`
	BaseChance float64        `yaml:"base-chance"`
	Weather    WeatherFactors `yaml:"weather-factor"`
	Biome      BiomeFactors   `yaml:"biome-factor"`
	Damage     DamageConfig   `yaml:"damage"`
	Schedule   ScheduleConfig `yaml:"schedule"`
}

// WeatherFactors is the per-weather-state coefficient table.
type WeatherFactors struct {
	Clear float64 `yaml:"clear"`
	Rain  float64 `yaml:"rain"`
	Storm float64 `yaml:"storm"`
}

// BiomeFactors holds biome coefficients. Only the default is consulted by
// the scan path.
type BiomeFactors struct {
	Default float64 `yaml:"default"`
}

// DamageConfig tunes the lethality engine's periodic damage.
type DamageConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Amount    float64 `yaml:"amount" json:"amount"`
	MinHealth float64 `yaml:"min-health" json:"min_health"`
}

// ScheduleConfig holds job cadences, all in seconds.
type ScheduleConfig struct {
	InfectionCheck      int `yaml:"infection-check"`
	InfectionCheckDelay int `yaml:"infection-check-delay"`
	EnvironmentUpdate   int `yaml:"environment-update"`
	DamageInterval      int `yaml:"damage-interval"`
	DamageDelay         int `yaml:"damage-delay"`
}

// SpeciesProfile is one species' tunables. Immutable once loaded; a reload
// replaces the whole profile map.
type SpeciesProfile struct {
	Type            string  `yaml:"type" json:"type"`
	Desc            string  `yaml:"desc" json:"desc"`
	SpeciesFactor   float64 `yaml:"speciesFactor" json:"species_factor"`
	ChunkLimit      int     `yaml:"chunkLimit" json:"chunk_limit"`
	CorpseDropRate  int     `yaml:"corpseDropRate" json:"corpse_drop_rate"`
	CorpseSpawnID   string  `yaml:"corpseSpawnId" json:"corpse_spawn_id"`
	MaxBreedTimes   int     `yaml:"maxBreedTimes" json:"max_breed_times"`
	PlagueDeathTime int     `yaml:"plagueDeathTime" json:"plague_death_time"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("parse embedded defaults: %w", err)
	}
	return &cfg, nil
}

// Load returns the configuration from path, or the embedded defaults when
// path is empty or the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// SpeciesMap indexes the species list by type name. Later duplicates win,
// matching file order semantics.
func (c *Config) SpeciesMap() map[string]SpeciesProfile {
	m := make(map[string]SpeciesProfile, len(c.Species))
	for _, sp := range c.Species {
		m[sp.Type] = sp
	}
	return m
}
