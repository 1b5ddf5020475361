package plague

import (
	"log/slog"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// Participant identifies which breeding partner tripped a gate.
type Participant int

const (
	ParticipantMother Participant = iota
	ParticipantFather
)

func (p Participant) String() string {
	if p == ParticipantFather {
		return "father"
	}
	return "mother"
}

// BlockReason says why breeding was refused.
type BlockReason int

const (
	BlockNone BlockReason = iota
	BlockInfected
	BlockBreedLimit
)

// BreedCheck is the outcome of a pre-breeding gate.
type BreedCheck struct {
	OK      bool
	Reason  BlockReason
	Which   Participant
	Current int // breed count that tripped the limit gate
	Max     int
}

func breedOK() BreedCheck {
	return BreedCheck{OK: true}
}

// CheckInfectionStatus blocks breeding when either participant is infected.
// The mother is checked first, so a doubly infected pair reports her.
func (e *Engine) CheckInfectionStatus(mother, father world.Entity) BreedCheck {
	if e.store.IsInfected(mother.ID()) {
		slog.Debug("breeding blocked, mother infected", "entity", mother.ID())
		return BreedCheck{Reason: BlockInfected, Which: ParticipantMother}
	}
	if e.store.IsInfected(father.ID()) {
		slog.Debug("breeding blocked, father infected", "entity", father.ID())
		return BreedCheck{Reason: BlockInfected, Which: ParticipantFather}
	}
	return breedOK()
}

// CheckBreedLimit blocks breeding when either participant has reached the
// given breed ceiling.
func (e *Engine) CheckBreedLimit(mother, father world.Entity, maxBreedTimes int) BreedCheck {
	if n := e.store.BreedCount(mother.ID()); n >= maxBreedTimes {
		slog.Debug("breeding blocked, mother at limit", "entity", mother.ID(), "count", n, "max", maxBreedTimes)
		return BreedCheck{Reason: BlockBreedLimit, Which: ParticipantMother, Current: n, Max: maxBreedTimes}
	}
	if n := e.store.BreedCount(father.ID()); n >= maxBreedTimes {
		slog.Debug("breeding blocked, father at limit", "entity", father.ID(), "count", n, "max", maxBreedTimes)
		return BreedCheck{Reason: BlockBreedLimit, Which: ParticipantFather, Current: n, Max: maxBreedTimes}
	}
	return breedOK()
}

// CheckBreed runs both gates in order: infection always precedes the limit
// check, so a pair failing both reports the infection. A species without a
// profile has no breed ceiling.
func (e *Engine) CheckBreed(mother, father world.Entity) BreedCheck {
	if check := e.CheckInfectionStatus(mother, father); !check.OK {
		return check
	}
	prof, ok := e.rules.Load().Profiles[mother.Species()]
	if !ok {
		return breedOK()
	}
	return e.CheckBreedLimit(mother, father, prof.MaxBreedTimes)
}

// BreedResult reports the count changes from a successful breed.
type BreedResult struct {
	MotherOld, MotherNew int
	FatherOld, FatherNew int
}

// RecordSuccessfulBreed increments both participants' breed counts by one —
// the only path that increments them — and refreshes both displays.
func (e *Engine) RecordSuccessfulBreed(mother, father world.Entity) BreedResult {
	res := BreedResult{
		MotherOld: e.store.BreedCount(mother.ID()),
		FatherOld: e.store.BreedCount(father.ID()),
	}
	res.MotherNew = e.store.IncrementBreedCount(mother.ID())
	res.FatherNew = e.store.IncrementBreedCount(father.ID())

	e.refreshDisplay(mother)
	e.refreshDisplay(father)

	slog.Debug("breed recorded",
		"mother", mother.ID(), "mother_count", res.MotherNew,
		"father", father.ID(), "father_count", res.FatherNew)
	return res
}

// DisplayLabel composes an entity's status label from its two flags. Pure;
// an entity with neither flag gets an empty label, which clears the display.
func DisplayLabel(sym config.SymbolsConfig, infected, breedMaxed bool) string {
	switch {
	case infected && breedMaxed:
		return sym.Plague + " " + sym.Breed
	case infected:
		return sym.Plague
	case breedMaxed:
		return sym.Breed
	default:
		return ""
	}
}
