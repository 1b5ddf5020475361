package plague

import (
	"testing"
	"time"

	"github.com/RookieCuzz/RookiePlague/internal/environment"
)

func TestScan_NoInfectionAtOrBelowLimit(t *testing.T) {
	// Certain-infection formula: only the density gate can stop it.
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 10) // limit is exactly 10

	stats := rig.engine.RunScanOnce()

	if stats.Marked != 0 {
		t.Errorf("marked %d entities at count == limit, want 0", stats.Marked)
	}
	if rig.reg.Len() != 0 {
		t.Errorf("registry has %d entries, want 0", rig.reg.Len())
	}
}

func TestScan_CertainInfectionAboveLimit(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	herd := spawnHerd(cell, "COW", 11)

	stats := rig.engine.RunScanOnce()

	if stats.Marked != 11 {
		t.Errorf("marked = %d, want all 11", stats.Marked)
	}
	if stats.CellsProcessed != 1 {
		t.Errorf("cells processed = %d, want 1", stats.CellsProcessed)
	}
	for _, e := range herd {
		if !rig.store.IsInfected(e.ID()) {
			t.Errorf("entity %s not infected after apply", e.ID())
		}
		if !rig.reg.Contains(e.ID()) {
			t.Errorf("entity %s missing from registry", e.ID())
		}
	}
}

func TestScan_RawProbabilityAboveOneClampsToCertain(t *testing.T) {
	rig := newTestRig(t, testConfig("5.0"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 11)

	stats := rig.engine.RunScanOnce()
	if stats.Marked != 11 {
		t.Errorf("marked = %d with clamped probability 1.0, want 11", stats.Marked)
	}
}

func TestScan_ZeroProbabilityInfectsNothing(t *testing.T) {
	rig := newTestRig(t, testConfig("0.0"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 50)

	if stats := rig.engine.RunScanOnce(); stats.Marked != 0 {
		t.Errorf("marked = %d with probability 0, want 0", stats.Marked)
	}
}

func TestScan_AlreadyInfectedAreSkipped(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	herd := spawnHerd(cell, "COW", 12)

	rig.store.SetInfected(herd[0].ID(), true)
	rig.store.SetInfected(herd[1].ID(), true)

	stats := rig.engine.RunScanOnce()
	if stats.Marked != 10 {
		t.Errorf("marked = %d, want the 10 uninfected", stats.Marked)
	}
	if stats.Rebuilt != 2 {
		t.Errorf("rebuilt = %d, want 2 persisted infections re-indexed", stats.Rebuilt)
	}
}

func TestScan_RepeatScanAddsNothingNew(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 11)

	rig.engine.RunScanOnce()
	first := rig.reg.Len()

	stats := rig.engine.RunScanOnce()
	if stats.Marked != 0 {
		t.Errorf("second scan marked %d, want 0", stats.Marked)
	}
	if rig.reg.Len() != first {
		t.Errorf("registry grew from %d to %d on idempotent re-scan", first, rig.reg.Len())
	}
}

func TestScan_SpeciesWithoutProfileIgnored(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "WOLF", 40) // no profile configured

	stats := rig.engine.RunScanOnce()
	if stats.Marked != 0 || stats.CellsProcessed != 0 {
		t.Errorf("unprofiled species produced stats %+v", stats)
	}
}

func TestScan_BadFormulaFailsSafeToZero(t *testing.T) {
	// Compile failure at construction leaves no formula installed.
	rig := newTestRig(t, testConfig("baseChance *"))
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 50)

	if stats := rig.engine.RunScanOnce(); stats.Marked != 0 {
		t.Errorf("marked = %d without a compiled formula, want 0", stats.Marked)
	}
}

func TestScan_WeatherFactorComesFromCache(t *testing.T) {
	// Formula passes the weather factor straight through; storm factor 1.5
	// clamps to 1.0 and clear factor is dropped to 0 so the effect of the
	// cached state is directly observable.
	cfg := testConfig("weatherFactor - 1")
	rig := newTestRig(t, cfg)
	cell := rig.world.AddCell("overworld", "plains")
	spawnHerd(cell, "COW", 11)

	// Clear weather: factor 1.0 → probability 0.
	if stats := rig.engine.RunScanOnce(); stats.Marked != 0 {
		t.Fatalf("clear weather marked %d, want 0", stats.Marked)
	}

	// Storm weather: factor 1.5 → probability 0.5 clamps into play.
	rig.world.SetRegionWeather("overworld", environment.WeatherStorm)
	rig.engine.RunEnvironmentOnce()
	if stats := rig.engine.RunScanOnce(); stats.Marked == 0 {
		t.Error("storm weather should mark some entities")
	}
}

func TestScan_StatisticalRate(t *testing.T) {
	// Limit 10, factor 1.0, formula baseChance*speciesFactor, baseChance
	// 0.1 → group probability 0.1. Across many trials the marked fraction
	// should hover near 10%.
	cfg := testConfig("baseChance * speciesFactor")
	const trials = 200
	const herdSize = 11

	marked := 0
	rig := newTestRig(t, cfg)
	for i := 0; i < trials; i++ {
		cell := rig.world.AddCell("overworld", "plains")
		spawnHerd(cell, "COW", herdSize)
		batch, _, _ := rig.engine.scanCell(cell, rig.engine.Rules())
		marked += len(batch)
	}

	rate := float64(marked) / float64(trials*herdSize)
	if rate < 0.05 || rate > 0.15 {
		t.Errorf("observed infection rate %.3f, want ≈0.10", rate)
	}
}

func TestApply_SkipsEntityInfectedBetweenScanAndApply(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	herd := spawnHerd(cell, "COW", 11)

	batch, _, _ := rig.engine.scanCell(cell, rig.engine.Rules())
	if len(batch) != 11 {
		t.Fatalf("batch = %d entities, want 11", len(batch))
	}

	// A racing pass wins and infects one batch member before ours applies.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rig.store.SetClock(func() time.Time { return base })
	rig.store.SetInfected(batch[0], true)
	rig.reg.Add(batch[0])
	rig.store.SetClock(func() time.Time { return base.Add(time.Minute) })

	var applied int
	rig.engine.submitWait(func() { applied = rig.engine.applyInfections(batch) })

	if applied != 10 {
		t.Errorf("applied = %d, want 10 with one member already infected", applied)
	}
	if got := rig.reg.Len(); got != 11 {
		t.Errorf("registry len = %d, want 11", got)
	}

	// The skipped member keeps its original infection timestamp; a re-apply
	// must not restamp it.
	at, ok := rig.store.InfectedAt(batch[0])
	if !ok || !at.Equal(base) {
		t.Errorf("infected-at = %v (ok=%v), want the original stamp %v", at, ok, base)
	}

	for _, e := range herd {
		if !rig.store.IsInfected(e.ID()) {
			t.Errorf("entity %s not infected after apply", e.ID())
		}
	}
}

func TestProcessCell_HandsOffSingleCell(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	hot := rig.world.AddCell("overworld", "plains")
	cold := rig.world.AddCell("overworld", "forest")
	spawnHerd(hot, "COW", 11)
	coldHerd := spawnHerd(cold, "COW", 11)

	marked := rig.engine.ProcessCell(hot)
	rig.engine.RunDamageOnce() // barrier: forces the batch through apply

	if marked != 11 {
		t.Errorf("ProcessCell marked %d, want 11", marked)
	}
	for _, e := range coldHerd {
		if rig.store.IsInfected(e.ID()) {
			t.Error("ProcessCell leaked into a cell it was not given")
			break
		}
	}
}

func TestReconcileFromStore_RebuildsExactly(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	herd := spawnHerd(cell, "COW", 5)

	rig.store.SetInfected(herd[0].ID(), true)
	rig.store.SetInfected(herd[3].ID(), true)

	rig.reg.Clear()
	if n := rig.engine.ReconcileFromStore(); n != 2 {
		t.Fatalf("reconciled %d entries, want 2", n)
	}

	snap := rig.reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("registry has %d entries, want 2", len(snap))
	}
	for _, id := range snap {
		if !rig.store.IsInfected(id) {
			t.Errorf("registry entry %s is not infected in the store", id)
		}
	}
}

func TestRunEnvironmentOnce_PopulatesCache(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	rig.world.AddCell("overworld", "plains")
	rig.world.SetOnlinePopulation(37)
	rig.world.SetRegionWeather("overworld", environment.WeatherRain)

	rig.engine.RunEnvironmentOnce()

	if got := rig.env.Population(); got != 37 {
		t.Errorf("cached population = %d, want 37", got)
	}
	if got := rig.env.RegionWeather("overworld"); got != environment.WeatherRain {
		t.Errorf("cached weather = %v, want RAIN", got)
	}
	if time.Since(rig.env.LastUpdated()) > time.Minute {
		t.Error("cache update timestamp not refreshed")
	}
}
