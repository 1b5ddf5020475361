package plague

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/formula"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// ScanStats summarizes one infection scan pass.
type ScanStats struct {
	CellsScanned   int
	CellsProcessed int // cells where at least one species exceeded its limit
	Rebuilt        int // persisted infections re-added to the registry
	Marked         int // entities handed to the apply context for infection
	Elapsed        time.Duration
}

// speciesGroup collects one species' live members within one cell, with the
// cell's region name cached for the weather lookup.
type speciesGroup struct {
	species string
	region  string
	members []world.Entity
}

// scanPass scans every loaded cell on the caller's goroutine (the scan
// context) and hands each cell's infection batch to the apply context.
func (e *Engine) scanPass() ScanStats {
	start := time.Now()
	rules := e.rules.Load()
	var stats ScanStats

	for _, cell := range e.world.LoadedCells() {
		stats.CellsScanned++
		batch, rebuilt, overLimit := e.scanCell(cell, rules)
		stats.Rebuilt += rebuilt
		if overLimit {
			stats.CellsProcessed++
		}
		if len(batch) > 0 {
			stats.Marked += len(batch)
			b := batch
			e.submit(func() { e.applyInfections(b) })
		}
	}

	stats.Elapsed = time.Since(start)
	slog.Info("infection scan complete",
		"cells", stats.CellsScanned,
		"over_limit", stats.CellsProcessed,
		"rebuilt", stats.Rebuilt,
		"marked", stats.Marked,
		"elapsed", stats.Elapsed)
	return stats
}

// scanCell computes one cell's infection batch without mutating any
// persisted state; all writes happen later on the apply context. As a side
// effect it re-adds persisted infections to the in-memory registry, which
// rebuilds the index after a restart (duplicate adds are no-ops).
func (e *Engine) scanCell(cell world.Cell, rules *Rules) (toInfect []uuid.UUID, rebuilt int, overLimit bool) {
	groups := make(map[string]*speciesGroup)
	alreadyInfected := make(map[uuid.UUID]bool)

	for _, ent := range cell.Entities() {
		g := groups[ent.Species()]
		if g == nil {
			g = &speciesGroup{species: ent.Species(), region: cell.Region()}
			groups[ent.Species()] = g
		}
		g.members = append(g.members, ent)

		if e.store.IsInfected(ent.ID()) {
			alreadyInfected[ent.ID()] = true
			e.infected.Add(ent.ID())
			rebuilt++
		}
	}

	for _, g := range groups {
		prof, ok := rules.Profiles[g.species]
		if !ok {
			slog.Debug("species has no profile, skipping", "species", g.species)
			continue
		}

		count, limit := len(g.members), prof.ChunkLimit
		if count <= limit {
			continue
		}
		overLimit = true

		p := e.groupProbability(g, prof, rules, count, limit)
		if p <= 0 {
			continue
		}

		for _, ent := range g.members {
			if alreadyInfected[ent.ID()] {
				continue
			}
			if e.randFloat() < p {
				toInfect = append(toInfect, ent.ID())
			}
		}
	}

	return toInfect, rebuilt, overLimit
}

// groupProbability evaluates the formula once for a species group and
// clamps the result to [0, 1]. Evaluation failure is fail-safe: the group
// gets probability 0 and the fault is logged.
func (e *Engine) groupProbability(g *speciesGroup, prof config.SpeciesProfile, rules *Rules, count, limit int) float64 {
	if rules.Formula == nil {
		slog.Warn("no compiled formula, using probability 0", "species", g.species)
		return 0
	}

	vars := formula.Variables{
		BaseChance:    rules.BaseChance,
		SpeciesFactor: prof.SpeciesFactor,
		Count:         float64(count),
		Limit:         float64(limit),
		WeatherFactor: rules.weatherFactor(e.env.RegionWeather(g.region)),
		BiomeFactor:   rules.BiomeDefault,
		Players:       float64(e.env.Population()),
	}

	raw, err := rules.Formula.Eval(vars)
	if err != nil {
		slog.Error("formula evaluation failed, group skipped", "species", g.species, "error", err)
		return 0
	}

	p := formula.Clamp(raw)
	slog.Debug("group probability computed",
		"species", g.species, "count", count, "limit", limit, "probability", p)
	return p
}

// ProcessCell scans a single cell and hands its infection batch to the
// apply context without waiting. Exposed for the command surface.
func (e *Engine) ProcessCell(cell world.Cell) int {
	batch, _, _ := e.scanCell(cell, e.rules.Load())
	if len(batch) > 0 {
		e.submit(func() { e.applyInfections(batch) })
	}
	return len(batch)
}

// RunScanOnce performs one full scan pass and waits until its batches have
// been applied. The scheduled scan job never waits; this entry point serves
// the command surface and tests.
func (e *Engine) RunScanOnce() ScanStats {
	stats := e.scanPass()
	e.submitWait(func() {})
	return stats
}
