package plague

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// applyQueueDepth bounds the scan→apply hand-off. A scan that outruns the
// apply loop past this depth drops the batch with a log line rather than
// block; the next scan regenerates it.
const applyQueueDepth = 64

// Start launches the apply goroutine. Must be called before any job starts
// or any Run*Once entry point is used.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		go e.applyLoop()
		slog.Info("apply loop started")
	})
}

// Close stops every running job, drains the apply queue and shuts the
// engine down. The engine must not be used after Close.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.jobsMu.Lock()
		jobs := []*jobHandle{e.scanJob, e.damageJob, e.envJob}
		e.scanJob, e.damageJob, e.envJob = nil, nil, nil
		e.jobsMu.Unlock()
		for _, j := range jobs {
			if j != nil {
				j.stop()
			}
		}

		close(e.apply)
		<-e.applyDone
		e.env.Clear()
		slog.Info("plague engine closed")
	})
}

// submit hands an operation to the apply context without waiting. Returns
// false when the queue is full and the operation was dropped.
func (e *Engine) submit(op func()) bool {
	select {
	case e.apply <- op:
		return true
	default:
		slog.Warn("apply queue full, dropping batch")
		return false
	}
}

// submitWait hands an operation to the apply context and blocks until it
// has run. Used by the manual Run*Once entry points.
func (e *Engine) submitWait(op func()) {
	done := make(chan struct{})
	e.apply <- func() {
		defer close(done)
		op()
	}
	<-done
}

func (e *Engine) applyLoop() {
	defer close(e.applyDone)
	for op := range e.apply {
		runApplyOp(op)
	}
}

func runApplyOp(op func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("apply operation panicked", "panic", r)
		}
	}()
	op()
}

// applyInfections marks a scanned batch infected. Runs on the apply
// context: every entry is re-validated against the live world and the store
// before anything is written, since the batch was computed concurrently.
func (e *Engine) applyInfections(ids []uuid.UUID) int {
	applied := 0
	for _, id := range ids {
		ent, ok := e.world.Resolve(id)
		if !ok || !ent.Valid() {
			slog.Debug("entity vanished before infection applied", "entity", id)
			continue
		}
		if e.store.IsInfected(id) {
			continue
		}

		e.store.SetInfected(id, true)
		e.infected.Add(id)
		e.refreshDisplay(ent)
		applied++
		slog.Debug("entity infected", "entity", id, "species", ent.Species())
	}

	if applied > 0 {
		slog.Info("infection batch applied", "count", applied)
	}
	return applied
}

// refreshDisplay recomputes an entity's status label from its current state
// and pushes it to the display collaborator.
func (e *Engine) refreshDisplay(ent world.Entity) {
	rules := e.rules.Load()

	breedMaxed := false
	if prof, ok := rules.Profiles[ent.Species()]; ok {
		breedMaxed = e.store.BreedCount(ent.ID()) >= prof.MaxBreedTimes
	}
	label := DisplayLabel(rules.Symbols, e.store.IsInfected(ent.ID()), breedMaxed)
	e.display.UpdateDisplay(ent, label)
}

// refreshEnvironment re-reads world signals into the environment cache.
// Runs on the apply context, which is the cache's only writer.
func (e *Engine) refreshEnvironment() {
	e.env.UpdatePopulation(e.world.OnlinePopulation())
	for _, region := range e.world.Regions() {
		e.env.UpdateRegionWeather(region, e.world.RegionWeather(region))
	}
	slog.Debug("environment cache refreshed", "population", e.env.Population())
}

// RunEnvironmentOnce refreshes the environment cache on the apply context
// and waits for it. Used at startup so the first scan sees live signals.
func (e *Engine) RunEnvironmentOnce() {
	e.submitWait(e.refreshEnvironment)
}

// ClearEntity wipes an entity's persisted state and registry membership on
// the apply context and clears its display. Admin operation; also the cure
// path.
func (e *Engine) ClearEntity(id uuid.UUID) {
	e.submitWait(func() {
		e.store.ClearAll(id)
		e.infected.Remove(id)
		if ent, ok := e.world.Resolve(id); ok {
			e.refreshDisplay(ent)
		}
		slog.Info("entity state cleared", "entity", id)
	})
}

// ReconcileFromStore rebuilds the infected registry from persisted state.
// Idempotent and safe to run while scans are active: duplicate adds are
// no-ops, and entities that no longer exist get evicted by the next damage
// tick.
func (e *Engine) ReconcileFromStore() int {
	ids := e.store.InfectedIDs()
	for _, id := range ids {
		e.infected.Add(id)
	}
	slog.Info("infected registry reconciled", "entries", len(ids))
	return len(ids)
}
