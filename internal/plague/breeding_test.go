package plague

import (
	"testing"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

func breedingPair(rig *testRig) (*world.MemoryEntity, *world.MemoryEntity) {
	cell := rig.world.AddCell("overworld", "plains")
	return cell.Spawn("COW", 10), cell.Spawn("COW", 10)
}

func TestCheckBreed_HealthyPairUnderLimit(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)

	check := rig.engine.CheckBreed(mother, father)
	if !check.OK {
		t.Fatalf("healthy pair blocked: %+v", check)
	}
}

func TestCheckBreed_InfectedMotherBlocks(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)
	rig.store.SetInfected(mother.ID(), true)

	check := rig.engine.CheckBreed(mother, father)
	if check.OK || check.Reason != BlockInfected || check.Which != ParticipantMother {
		t.Errorf("check = %+v, want mother blocked for infection", check)
	}
}

func TestCheckBreed_InfectedFatherBlocks(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)
	rig.store.SetInfected(father.ID(), true)

	check := rig.engine.CheckBreed(mother, father)
	if check.OK || check.Reason != BlockInfected || check.Which != ParticipantFather {
		t.Errorf("check = %+v, want father blocked for infection", check)
	}
}

func TestCheckBreed_BothInfectedReportsMother(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)
	rig.store.SetInfected(mother.ID(), true)
	rig.store.SetInfected(father.ID(), true)

	check := rig.engine.CheckBreed(mother, father)
	if check.Which != ParticipantMother {
		t.Errorf("which = %v, want mother reported first", check.Which)
	}
}

func TestCheckBreed_LimitBlocksAtCeiling(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0")) // COW max 5
	mother, father := breedingPair(rig)
	rig.store.SetBreedCount(father.ID(), 5)

	check := rig.engine.CheckBreed(mother, father)
	if check.OK || check.Reason != BlockBreedLimit || check.Which != ParticipantFather {
		t.Fatalf("check = %+v, want father blocked at limit", check)
	}
	if check.Current != 5 || check.Max != 5 {
		t.Errorf("current/max = %d/%d, want 5/5", check.Current, check.Max)
	}

	// One below the ceiling still passes.
	rig.store.SetBreedCount(father.ID(), 4)
	if check := rig.engine.CheckBreed(mother, father); !check.OK {
		t.Errorf("pair below ceiling blocked: %+v", check)
	}
}

func TestCheckBreed_InfectionGatePrecedesLimit(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)
	rig.store.SetInfected(mother.ID(), true)
	rig.store.SetBreedCount(mother.ID(), 99) // fails both gates

	check := rig.engine.CheckBreed(mother, father)
	if check.Reason != BlockInfected {
		t.Errorf("reason = %v, want infection reported before the limit", check.Reason)
	}
}

func TestCheckBreed_UnprofiledSpeciesHasNoCeiling(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	cell := rig.world.AddCell("overworld", "plains")
	mother := cell.Spawn("WOLF", 10)
	father := cell.Spawn("WOLF", 10)
	rig.store.SetBreedCount(mother.ID(), 1000)

	if check := rig.engine.CheckBreed(mother, father); !check.OK {
		t.Errorf("unprofiled species blocked: %+v", check)
	}
}

func TestRecordSuccessfulBreed_IncrementsBoth(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	mother, father := breedingPair(rig)
	rig.store.SetBreedCount(mother.ID(), 2)

	res := rig.engine.RecordSuccessfulBreed(mother, father)
	if res.MotherOld != 2 || res.MotherNew != 3 {
		t.Errorf("mother %d -> %d, want 2 -> 3", res.MotherOld, res.MotherNew)
	}
	if res.FatherOld != 0 || res.FatherNew != 1 {
		t.Errorf("father %d -> %d, want 0 -> 1", res.FatherOld, res.FatherNew)
	}
	if got := rig.store.BreedCount(mother.ID()); got != 3 {
		t.Errorf("persisted mother count = %d, want 3", got)
	}
}

func TestRecordSuccessfulBreed_RefreshesDisplays(t *testing.T) {
	rig := newTestRig(t, testConfig("1.0"))
	disp := newRecordingDisplay()
	rig.engine.SetDisplay(disp)

	mother, father := breedingPair(rig)
	rig.store.SetBreedCount(mother.ID(), 4) // this breed maxes her out

	rig.engine.RecordSuccessfulBreed(mother, father)
	if got := disp.labels[mother.ID().String()]; got != "B" {
		t.Errorf("mother label = %q, want %q", got, "B")
	}
	if got := disp.labels[father.ID().String()]; got != "" {
		t.Errorf("father label = %q, want empty", got)
	}
}

func TestDisplayLabel(t *testing.T) {
	sym := config.SymbolsConfig{Plague: "☣", Breed: "✕"}
	cases := []struct {
		infected, maxed bool
		want            string
	}{
		{false, false, ""},
		{true, false, "☣"},
		{false, true, "✕"},
		{true, true, "☣ ✕"},
	}
	for _, tc := range cases {
		if got := DisplayLabel(sym, tc.infected, tc.maxed); got != tc.want {
			t.Errorf("DisplayLabel(%v, %v) = %q, want %q", tc.infected, tc.maxed, got, tc.want)
		}
	}
}
