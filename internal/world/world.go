// Package world defines the collaborator surface the plague engine runs
// against: enumeration of regions, loaded cells and live creatures, plus the
// optional corpse-spawning and display-update capabilities. The engine only
// ever sees these interfaces; the game server supplies the real thing, and
// the in-memory implementation here backs the demo binary and tests.
package world

import (
	"github.com/google/uuid"

	"github.com/RookieCuzz/RookiePlague/internal/environment"
)

// Entity is an opaque handle to one live creature.
type Entity interface {
	ID() uuid.UUID
	Species() string
	Region() string

	// Valid reports whether the handle still resolves to a live creature.
	Valid() bool

	Health() float64
	SetHealth(h float64)

	// Kill removes the creature from the world outright.
	Kill()
}

// Cell is a fixed-size chunk of the world, the unit of population density.
type Cell interface {
	Region() string
	Biome() string

	// Entities returns the live creatures currently inside the cell.
	Entities() []Entity
}

// World enumerates the parts of the game world the engine reads. All methods
// must be safe to call from the scan goroutine.
type World interface {
	Regions() []string

	// RegionWeather reports the region's live weather. Read only by the
	// environment refresh job; scan code reads the cache instead.
	RegionWeather(region string) environment.Weather

	LoadedCells() []Cell

	// Resolve maps an identifier back to a live entity, if it still exists.
	Resolve(id uuid.UUID) (Entity, bool)

	OnlinePopulation() int
}
