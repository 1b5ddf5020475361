package plague

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/environment"
	"github.com/RookieCuzz/RookiePlague/internal/registry"
	"github.com/RookieCuzz/RookiePlague/internal/store"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// testConfig returns a minimal config: one COW species with limit 10 and a
// formula the tests override when they need specific probabilities.
func testConfig(formula string) *config.Config {
	return &config.Config{
		Symbols: config.SymbolsConfig{Plague: "P", Breed: "B"},
		Plague: config.PlagueConfig{
			Enabled:    true,
			Formula:    formula,
			BaseChance: 0.1,
			Weather:    config.WeatherFactors{Clear: 1.0, Rain: 1.2, Storm: 1.5},
			Biome:      config.BiomeFactors{Default: 1.0},
			Damage:     config.DamageConfig{Enabled: true, Amount: 1.0, MinHealth: 0.5},
		},
		Species: []config.SpeciesProfile{
			{
				Type:            "COW",
				SpeciesFactor:   1.0,
				ChunkLimit:      10,
				CorpseDropRate:  100,
				CorpseSpawnID:   "cow_corpse",
				MaxBreedTimes:   5,
				PlagueDeathTime: 300,
			},
		},
	}
}

type testRig struct {
	engine *Engine
	world  *world.Memory
	store  *store.Store
	reg    *registry.Registry
	env    *environment.Cache
}

func newTestRig(t *testing.T, cfg *config.Config) *testRig {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "plague.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	w := world.NewMemory()
	env := environment.NewCache()
	reg := registry.New()

	e := New(w, st, env, reg, cfg)
	e.SetRand(rand.New(rand.NewSource(1)))
	e.Start()

	t.Cleanup(func() {
		e.Close()
		st.Close()
	})

	return &testRig{engine: e, world: w, store: st, reg: reg, env: env}
}

// spawnHerd puts n live creatures of one species into a cell.
func spawnHerd(cell *world.MemoryCell, species string, n int) []*world.MemoryEntity {
	out := make([]*world.MemoryEntity, n)
	for i := range out {
		out[i] = cell.Spawn(species, 10)
	}
	return out
}

// recordingSpawner counts spawns and can simulate absence or failure.
type recordingSpawner struct {
	available bool
	fail      bool
	spawned   []string
}

func (s *recordingSpawner) Available() bool { return s.available }

func (s *recordingSpawner) Spawn(region, spawnID string) error {
	if s.fail {
		return fmt.Errorf("spawn %s in %s: backend down", spawnID, region)
	}
	s.spawned = append(s.spawned, spawnID)
	return nil
}

// recordingDisplay captures the last label pushed per entity.
type recordingDisplay struct {
	labels map[string]string
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{labels: make(map[string]string)}
}

func (d *recordingDisplay) UpdateDisplay(e world.Entity, label string) {
	d.labels[e.ID().String()] = label
}
