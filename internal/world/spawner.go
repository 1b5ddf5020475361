package world

import "errors"

// ErrSpawnerUnavailable is returned by spawners that have no backing
// integration to create creatures with.
var ErrSpawnerUnavailable = errors.New("corpse spawner not available")

// CorpseSpawner creates a successor creature when a plague death drops a
// corpse. Implementations wrap whatever spawning integration the server has;
// Available lets callers probe without attempting a spawn.
type CorpseSpawner interface {
	Available() bool
	Spawn(region string, spawnID string) error
}

// NopSpawner is the no-op implementation used when no spawning integration
// is present. It is never available and every spawn fails.
type NopSpawner struct{}

func (NopSpawner) Available() bool { return false }

func (NopSpawner) Spawn(string, string) error { return ErrSpawnerUnavailable }

// DisplayUpdater pushes a computed status label to wherever a creature's
// name is rendered. An empty label clears the display.
type DisplayUpdater interface {
	UpdateDisplay(e Entity, label string)
}

// NopDisplay discards display updates.
type NopDisplay struct{}

func (NopDisplay) UpdateDisplay(Entity, string) {}
