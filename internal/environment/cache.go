// Package environment caches world-level signals read by the infection
// formula: online population and per-region weather. The environment refresh
// job is the single writer; scan goroutines read without locking.
package environment

import (
	"sync"
	"sync/atomic"
	"time"
)

// Weather classifies a region's current weather state.
type Weather int

const (
	WeatherClear Weather = iota
	WeatherRain
	WeatherStorm
)

func (w Weather) String() string {
	switch w {
	case WeatherRain:
		return "RAIN"
	case WeatherStorm:
		return "STORM"
	default:
		return "CLEAR"
	}
}

// Cache is a single-writer, multi-reader snapshot of environment signals.
// Readers never block and never observe torn values.
type Cache struct {
	population atomic.Int64
	weather    sync.Map // region name → Weather
	updatedAt  atomic.Int64
}

// NewCache returns an empty cache stamped with the current time.
func NewCache() *Cache {
	c := &Cache{}
	c.updatedAt.Store(time.Now().UnixMilli())
	return c
}

// UpdatePopulation records the online population. Writer-only.
func (c *Cache) UpdatePopulation(n int) {
	c.population.Store(int64(n))
	c.updatedAt.Store(time.Now().UnixMilli())
}

// UpdateRegionWeather records a region's weather. Writer-only.
func (c *Cache) UpdateRegionWeather(region string, w Weather) {
	c.weather.Store(region, w)
	c.updatedAt.Store(time.Now().UnixMilli())
}

// Population returns the cached online population. Safe from any goroutine.
func (c *Cache) Population() int {
	return int(c.population.Load())
}

// RegionWeather returns the cached weather for a region, defaulting to
// WeatherClear when the region has never been reported.
func (c *Cache) RegionWeather(region string) Weather {
	v, ok := c.weather.Load(region)
	if !ok {
		return WeatherClear
	}
	return v.(Weather)
}

// WeatherSnapshot returns a copy of every region's cached weather.
func (c *Cache) WeatherSnapshot() map[string]Weather {
	out := make(map[string]Weather)
	c.weather.Range(func(k, v any) bool {
		out[k.(string)] = v.(Weather)
		return true
	})
	return out
}

// LastUpdated returns the time of the most recent write.
func (c *Cache) LastUpdated() time.Time {
	return time.UnixMilli(c.updatedAt.Load())
}

// Clear resets the cache to its initial state. Called on shutdown.
func (c *Cache) Clear() {
	c.population.Store(0)
	c.weather.Range(func(k, _ any) bool {
		c.weather.Delete(k)
		return true
	})
	c.updatedAt.Store(time.Now().UnixMilli())
}
