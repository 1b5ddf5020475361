// Package plague implements the epidemic engine: density-driven infection
// spread across spatial cells, time-bounded lethality with corpse drops, and
// breeding control for infected or exhausted animals.
//
// The engine splits work across two contexts. The scan context (the
// infection scan job's goroutine) only reads: live entity enumeration, the
// environment cache and the compiled formula. Everything that mutates —
// store writes, registry membership, entity health, environment refresh —
// runs on the single apply goroutine, so no write ever races another.
package plague

import (
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/environment"
	"github.com/RookieCuzz/RookiePlague/internal/formula"
	"github.com/RookieCuzz/RookiePlague/internal/registry"
	"github.com/RookieCuzz/RookiePlague/internal/store"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// Rules is one immutable snapshot of the engine's tunables: the compiled
// formula, global coefficients and the per-species profile map. A config
// reload swaps the whole snapshot; in-flight scans keep the one they loaded.
type Rules struct {
	Formula      *formula.Formula
	BaseChance   float64
	Weather      config.WeatherFactors
	BiomeDefault float64
	Damage       config.DamageConfig
	Symbols      config.SymbolsConfig
	Profiles     map[string]config.SpeciesProfile
}

func (r *Rules) weatherFactor(w environment.Weather) float64 {
	switch w {
	case environment.WeatherStorm:
		return r.Weather.Storm
	case environment.WeatherRain:
		return r.Weather.Rain
	default:
		return r.Weather.Clear
	}
}

// Engine wires the plague subsystem together.
type Engine struct {
	world    world.World
	store    *store.Store
	env      *environment.Cache
	infected *registry.Registry
	spawner  world.CorpseSpawner
	display  world.DisplayUpdater

	rules atomic.Pointer[Rules]

	rngMu sync.Mutex
	rng   *rand.Rand

	apply     chan func()
	applyDone chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	jobsMu    sync.Mutex
	scanJob   *jobHandle
	damageJob *jobHandle
	envJob    *jobHandle
}

// New creates an engine over the given collaborators and installs the
// initial rules from cfg. The corpse spawner and display updater default to
// no-ops; set them before Start.
func New(w world.World, st *store.Store, env *environment.Cache, reg *registry.Registry, cfg *config.Config) *Engine {
	e := &Engine{
		world:     w,
		store:     st,
		env:       env,
		infected:  reg,
		spawner:   world.NopSpawner{},
		display:   world.NopDisplay{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		apply:     make(chan func(), applyQueueDepth),
		applyDone: make(chan struct{}),
	}
	e.Reload(cfg)
	return e
}

// SetSpawner installs the corpse-spawning integration. Call before Start.
func (e *Engine) SetSpawner(s world.CorpseSpawner) {
	e.spawner = s
}

// SetDisplay installs the name-display updater. Call before Start.
func (e *Engine) SetDisplay(d world.DisplayUpdater) {
	e.display = d
}

// SetRand replaces the sampling source. Test hook; call before Start.
func (e *Engine) SetRand(r *rand.Rand) {
	e.rng = r
}

// Reload compiles cfg into a new rules snapshot and installs it atomically.
// A formula that fails to compile keeps the previously compiled one (or
// leaves infection disabled when there has never been one) and is logged.
func (e *Engine) Reload(cfg *config.Config) {
	prev := e.rules.Load()

	f, err := formula.Compile(cfg.Plague.Formula)
	if err != nil {
		if prev != nil && prev.Formula != nil {
			f = prev.Formula
			slog.Error("formula compile failed, keeping previous", "formula", cfg.Plague.Formula, "error", err)
		} else {
			slog.Error("formula compile failed, infection disabled", "formula", cfg.Plague.Formula, "error", err)
		}
	}

	rules := &Rules{
		Formula:      f,
		BaseChance:   cfg.Plague.BaseChance,
		Weather:      cfg.Plague.Weather,
		BiomeDefault: cfg.Plague.Biome.Default,
		Damage:       cfg.Plague.Damage,
		Symbols:      cfg.Symbols,
		Profiles:     cfg.SpeciesMap(),
	}
	e.rules.Store(rules)
	slog.Info("plague rules installed", "species", len(rules.Profiles), "base_chance", rules.BaseChance)
}

// Rules returns the current rules snapshot.
func (e *Engine) Rules() *Rules {
	return e.rules.Load()
}

// FormulaSource returns the formula string currently in effect, or "" when
// no formula ever compiled.
func (e *Engine) FormulaSource() string {
	r := e.rules.Load()
	if r.Formula == nil {
		return ""
	}
	return r.Formula.Source()
}

func (e *Engine) randFloat() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

// rollPercent returns a uniform roll in 1..100 for corpse drops.
func (e *Engine) rollPercent() int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(100) + 1
}
