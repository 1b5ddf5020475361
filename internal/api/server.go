// Package api provides the HTTP API for observing and controlling the
// plague engine. GET endpoints are public (read-only observation). POST
// endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/environment"
	"github.com/RookieCuzz/RookiePlague/internal/plague"
	"github.com/RookieCuzz/RookiePlague/internal/registry"
	"github.com/RookieCuzz/RookiePlague/internal/store"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

// Server serves plague state over HTTP.
type Server struct {
	Engine   *plague.Engine
	World    world.World
	Store    *store.Store
	Infected *registry.Registry
	Env      *environment.Cache

	Port       int
	AdminKey   string // Bearer token for POST endpoints. Empty = POST disabled.
	ConfigPath string // Config file re-read by POST /reload.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// Manual scan and damage triggers walk the whole world; keep abuse out.
	triggerLimiter := NewRateLimiter(30, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/infected", s.handleInfected)
	mux.HandleFunc("/api/v1/species", s.handleSpecies)
	mux.HandleFunc("/api/v1/environment", s.handleEnvironment)
	mux.HandleFunc("/api/v1/cells", s.handleCells)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/scan", s.adminOnly(RateLimitMiddleware(triggerLimiter, s.handleScan)))
	mux.HandleFunc("/api/v1/damage", s.adminOnly(RateLimitMiddleware(triggerLimiter, s.handleDamage)))
	mux.HandleFunc("/api/v1/reload", s.adminOnly(s.handleReload))
	mux.HandleFunc("/api/v1/clear", s.adminOnly(s.handleClear))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rules := s.Engine.Rules()
	writeJSON(w, map[string]any{
		"formula":     s.Engine.FormulaSource(),
		"base_chance": rules.BaseChance,
		"damage":      rules.Damage,
		"species":     len(rules.Profiles),
		"infected":    s.Infected.Len(),
		"population":  s.Env.Population(),
		"jobs":        s.Engine.Jobs(),
	})
}

type infectedEntry struct {
	ID              string  `json:"id"`
	Species         string  `json:"species"`
	Region          string  `json:"region"`
	Health          float64 `json:"health"`
	InfectedSeconds int64   `json:"infected_seconds"`
}

// handleInfected lists every tracked infection that still resolves to a
// live entity. Stale registry entries are reported as a count only; the
// damage tick is what evicts them.
func (s *Server) handleInfected(w http.ResponseWriter, r *http.Request) {
	ids := s.Infected.Snapshot()
	entries := make([]infectedEntry, 0, len(ids))
	stale := 0

	for _, id := range ids {
		ent, ok := s.World.Resolve(id)
		if !ok || !ent.Valid() {
			stale++
			continue
		}
		entries = append(entries, infectedEntry{
			ID:              id.String(),
			Species:         ent.Species(),
			Region:          ent.Region(),
			Health:          ent.Health(),
			InfectedSeconds: s.Store.InfectedDurationSeconds(id),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	writeJSON(w, map[string]any{
		"count":   len(entries),
		"stale":   stale,
		"entries": entries,
	})
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	profiles := s.Engine.Rules().Profiles
	out := make([]config.SpeciesProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	writeJSON(w, out)
}

func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	weather := make(map[string]string)
	for region, wth := range s.Env.WeatherSnapshot() {
		weather[region] = wth.String()
	}
	writeJSON(w, map[string]any{
		"population": s.Env.Population(),
		"weather":    weather,
		"updated_at": s.Env.LastUpdated().UTC().Format(time.RFC3339),
	})
}

type cellEntry struct {
	Region   string         `json:"region"`
	Biome    string         `json:"biome"`
	Count    int            `json:"count"`
	Species  map[string]int `json:"species"`
	Infected int            `json:"infected"`
}

// handleCells reports population density per spatial cell, the same view
// the scan works from.
func (s *Server) handleCells(w http.ResponseWriter, r *http.Request) {
	cells := s.World.LoadedCells()
	out := make([]cellEntry, 0, len(cells))

	for _, cell := range cells {
		entry := cellEntry{
			Region:  cell.Region(),
			Biome:   cell.Biome(),
			Species: make(map[string]int),
		}
		for _, ent := range cell.Entities() {
			entry.Count++
			entry.Species[ent.Species()]++
			if s.Infected.Contains(ent.ID()) {
				entry.Infected++
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, out)
}

// handleScan runs one full infection scan synchronously and reports its
// statistics.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.RunScanOnce()
	writeJSON(w, stats)
}

// handleDamage runs one lethality tick synchronously and reports its
// statistics.
func (s *Server) handleDamage(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.RunDamageOnce()
	writeJSON(w, stats)
}

// handleReload re-reads the config file and installs the new rules.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("reload: %v", err), http.StatusUnprocessableEntity)
		return
	}
	s.Engine.Reload(cfg)
	writeJSON(w, map[string]any{
		"formula": s.Engine.FormulaSource(),
		"species": len(s.Engine.Rules().Profiles),
	})
}

// handleClear wipes one entity's persisted plague state: infection flag,
// timestamp and breed count. POST /api/v1/clear?id=<uuid>.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("bad entity id: %v", err), http.StatusBadRequest)
		return
	}
	s.Engine.ClearEntity(id)
	writeJSON(w, map[string]any{"cleared": id.String()})
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no PLAGUESIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
