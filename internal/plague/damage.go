package plague

import (
	"log/slog"

	"github.com/RookieCuzz/RookiePlague/internal/config"
)

// DamageStats summarizes one lethality tick.
type DamageStats struct {
	Damaged int
	Died    int
	Corpses int
	Evicted int
}

// RunDamageOnce executes one damage tick on the apply context and waits for
// its result.
func (e *Engine) RunDamageOnce() DamageStats {
	var stats DamageStats
	e.submitWait(func() { stats = e.damageTick() })
	return stats
}

// damageTick degrades every infected entity and resolves deaths. Must run
// on the apply context. Each entry is re-validated first: an entity that
// vanished or was cured since the registry last saw it is evicted, never
// damaged.
//
// Death is driven purely by elapsed infection time against the species'
// configured duration. Periodic damage floors health at the configured
// minimum and never kills on its own.
func (e *Engine) damageTick() DamageStats {
	rules := e.rules.Load()
	var stats DamageStats

	for _, id := range e.infected.Snapshot() {
		ent, ok := e.world.Resolve(id)
		if !ok || !ent.Valid() {
			e.infected.Remove(id)
			stats.Evicted++
			slog.Debug("evicting vanished entity", "entity", id)
			continue
		}
		if !e.store.IsInfected(id) {
			e.infected.Remove(id)
			stats.Evicted++
			continue
		}

		prof, ok := rules.Profiles[ent.Species()]
		if !ok {
			slog.Debug("species has no profile, skipping", "species", ent.Species())
			continue
		}

		if e.store.InfectedDurationSeconds(id) >= int64(prof.PlagueDeathTime) {
			region := ent.Region()
			species := ent.Species()
			ent.Kill()
			e.infected.Remove(id)
			e.store.ClearAll(id)
			stats.Died++
			slog.Info("entity died of plague",
				"entity", id, "species", species, "death_time_sec", prof.PlagueDeathTime)

			if e.trySpawnCorpse(prof, region) {
				stats.Corpses++
			}
			continue
		}

		current := ent.Health()
		next := current - rules.Damage.Amount
		if next < rules.Damage.MinHealth {
			next = rules.Damage.MinHealth
		}
		if next < current {
			ent.SetHealth(next)
			stats.Damaged++
			slog.Debug("plague damage applied", "entity", id, "health", next)
		}
	}

	if stats.Damaged > 0 || stats.Died > 0 || stats.Evicted > 0 {
		slog.Info("damage tick complete",
			"damaged", stats.Damaged,
			"died", stats.Died,
			"corpses", stats.Corpses,
			"evicted", stats.Evicted)
	}
	return stats
}

// trySpawnCorpse rolls the species' drop chance and asks the spawner for a
// successor. Spawner faults are logged and give up without retry.
func (e *Engine) trySpawnCorpse(prof config.SpeciesProfile, region string) bool {
	if prof.CorpseSpawnID == "" || prof.CorpseDropRate <= 0 {
		return false
	}

	if roll := e.rollPercent(); roll > prof.CorpseDropRate {
		return false
	}

	if !e.spawner.Available() {
		slog.Warn("corpse spawner unavailable", "spawn_id", prof.CorpseSpawnID)
		return false
	}
	if err := e.spawner.Spawn(region, prof.CorpseSpawnID); err != nil {
		slog.Warn("corpse spawn failed", "spawn_id", prof.CorpseSpawnID, "error", err)
		return false
	}

	slog.Debug("corpse spawned", "spawn_id", prof.CorpseSpawnID, "region", region)
	return true
}
