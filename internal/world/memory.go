package world

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/RookieCuzz/RookiePlague/internal/environment"
)

// Memory is an in-memory World backing the demo binary and tests. Mutating
// accessors take an internal lock, so a concurrent scan enumerating entities
// while the apply goroutine damages or kills them stays race-free.
type Memory struct {
	mu      sync.RWMutex
	online  int
	weather map[string]environment.Weather
	regions []string
	cells   []*MemoryCell
	index   map[uuid.UUID]*MemoryEntity
}

// NewMemory returns an empty in-memory world.
func NewMemory() *Memory {
	return &Memory{
		weather: make(map[string]environment.Weather),
		index:   make(map[uuid.UUID]*MemoryEntity),
	}
}

// NewDemoWorld builds a world with a grid of cells per region, assigning
// each cell a biome from simplex noise so the demo landscape hangs together.
func NewDemoWorld(seed int64, regions []string, cellsPerRegion int) *Memory {
	m := NewMemory()
	noise := opensimplex.NewNormalized(seed)
	biomes := []string{"plains", "forest", "swamp", "desert"}

	for ri, region := range regions {
		for ci := 0; ci < cellsPerRegion; ci++ {
			v := noise.Eval2(float64(ci)*0.35, float64(ri)*0.35)
			biome := biomes[int(v*float64(len(biomes)))%len(biomes)]
			m.AddCell(region, biome)
		}
	}
	return m
}

// AddCell creates an empty cell in the given region.
func (m *Memory) AddCell(region, biome string) *MemoryCell {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &MemoryCell{world: m, region: region, biome: biome}
	m.cells = append(m.cells, c)
	if _, ok := m.weather[region]; !ok {
		m.weather[region] = environment.WeatherClear
		m.regions = append(m.regions, region)
	}
	return c
}

// SetOnlinePopulation sets the reported online population.
func (m *Memory) SetOnlinePopulation(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = n
}

// SetRegionWeather sets the live weather for a region.
func (m *Memory) SetRegionWeather(region string, w environment.Weather) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weather[region] = w
}

// Regions implements World.
func (m *Memory) Regions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.regions))
	copy(out, m.regions)
	return out
}

// RegionWeather implements World.
func (m *Memory) RegionWeather(region string) environment.Weather {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weather[region]
}

// LoadedCells implements World.
func (m *Memory) LoadedCells() []Cell {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cell, len(m.cells))
	for i, c := range m.cells {
		out[i] = c
	}
	return out
}

// Resolve implements World. Dead entities no longer resolve.
func (m *Memory) Resolve(id uuid.UUID) (Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.index[id]
	if !ok || !e.alive {
		return nil, false
	}
	return e, true
}

// OnlinePopulation implements World.
func (m *Memory) OnlinePopulation() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// LiveCount returns the number of live entities across all cells.
func (m *Memory) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.index {
		if e.alive {
			n++
		}
	}
	return n
}

// MemoryCell is one spatial cell of a Memory world.
type MemoryCell struct {
	world   *Memory
	region  string
	biome   string
	members []*MemoryEntity
}

func (c *MemoryCell) Region() string { return c.region }

func (c *MemoryCell) Biome() string { return c.biome }

// Entities returns the cell's live creatures as a snapshot slice.
func (c *MemoryCell) Entities() []Entity {
	c.world.mu.RLock()
	defer c.world.mu.RUnlock()
	out := make([]Entity, 0, len(c.members))
	for _, e := range c.members {
		if e.alive {
			out = append(out, e)
		}
	}
	return out
}

// Spawn adds a live creature of the given species to the cell.
func (c *MemoryCell) Spawn(species string, health float64) *MemoryEntity {
	c.world.mu.Lock()
	defer c.world.mu.Unlock()

	e := &MemoryEntity{
		world:   c.world,
		id:      uuid.New(),
		species: species,
		region:  c.region,
		health:  health,
		alive:   true,
	}
	c.members = append(c.members, e)
	c.world.index[e.id] = e
	return e
}

// MemoryEntity is one creature in a Memory world.
type MemoryEntity struct {
	world   *Memory
	id      uuid.UUID
	species string
	region  string
	health  float64
	alive   bool
}

func (e *MemoryEntity) ID() uuid.UUID { return e.id }

func (e *MemoryEntity) Species() string { return e.species }

func (e *MemoryEntity) Region() string { return e.region }

func (e *MemoryEntity) Valid() bool {
	e.world.mu.RLock()
	defer e.world.mu.RUnlock()
	return e.alive
}

func (e *MemoryEntity) Health() float64 {
	e.world.mu.RLock()
	defer e.world.mu.RUnlock()
	return e.health
}

func (e *MemoryEntity) SetHealth(h float64) {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	e.health = h
}

func (e *MemoryEntity) Kill() {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	e.health = 0
	e.alive = false
}

func (e *MemoryEntity) String() string {
	return fmt.Sprintf("%s(%s)", e.species, e.id)
}
