// Command plaguesim runs the epidemic engine over an in-memory demo world.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/RookieCuzz/RookiePlague/internal/api"
	"github.com/RookieCuzz/RookiePlague/internal/config"
	"github.com/RookieCuzz/RookiePlague/internal/environment"
	"github.com/RookieCuzz/RookiePlague/internal/plague"
	"github.com/RookieCuzz/RookiePlague/internal/registry"
	"github.com/RookieCuzz/RookiePlague/internal/store"
	"github.com/RookieCuzz/RookiePlague/internal/world"
)

func main() {
	cfgPath := flag.String("config", "plague.yml", "config file (embedded defaults when missing)")
	dbPath := flag.String("db", "data/plague.db", "entity state database")
	apiPort := flag.Int("port", 8080, "HTTP API port")
	seed := flag.Int64("seed", 42, "demo world seed")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", *cfgPath, "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Settings.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("RookiePlague — epidemic & population control engine")
	slog.Info("config loaded",
		"path", *cfgPath,
		"species", len(cfg.Species),
		"formula", cfg.Plague.Formula,
		"plague_enabled", cfg.Plague.Enabled,
	)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		slog.Error("failed to create data directory", "path", filepath.Dir(*dbPath), "error", err)
		os.Exit(1)
	}
	st, err := store.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store opened", "path", *dbPath)

	// ── Demo World ────────────────────────────────────────────────────
	regions := []string{"overworld", "highlands", "marshes"}
	w := world.NewDemoWorld(*seed, regions, 4)
	populateDemoHerds(w, cfg, *seed)
	w.SetOnlinePopulation(12)
	w.SetRegionWeather("marshes", environment.WeatherStorm)
	slog.Info("demo world ready", "regions", len(regions), "cells", len(w.LoadedCells()), "creatures", w.LiveCount())

	// ── Engine ────────────────────────────────────────────────────────
	env := environment.NewCache()
	infected := registry.New()

	engine := plague.New(w, st, env, infected, cfg)
	engine.Start()

	restored := engine.ReconcileFromStore()
	if restored > 0 {
		slog.Info("restored infections from previous run", "count", restored)
	}
	engine.RunEnvironmentOnce()

	sched := cfg.Plague.Schedule
	if cfg.Plague.Enabled {
		engine.StartScanJob(
			time.Duration(sched.InfectionCheck)*time.Second,
			time.Duration(sched.InfectionCheckDelay)*time.Second,
		)
		engine.StartEnvironmentJob(time.Duration(sched.EnvironmentUpdate) * time.Second)
		if cfg.Plague.Damage.Enabled {
			engine.StartDamageJob(
				time.Duration(sched.DamageInterval)*time.Second,
				time.Duration(sched.DamageDelay)*time.Second,
			)
		}
	} else {
		slog.Warn("plague disabled in config; no jobs scheduled")
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("PLAGUESIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("PLAGUESIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Engine:     engine,
		World:      w,
		Store:      st,
		Infected:   infected,
		Env:        env,
		Port:       *apiPort,
		AdminKey:   adminKey,
		ConfigPath: *cfgPath,
	}
	apiServer.Start()

	fmt.Printf("\n%d creatures across %d regions. Tracking %d infections.\n",
		w.LiveCount(), len(regions), infected.Len())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *apiPort)
	fmt.Println("Running... (Ctrl+C to stop, SIGHUP to reload config)")

	// ── Signals ───────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			reloaded, err := config.Load(*cfgPath)
			if err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			engine.Reload(reloaded)
			slog.Info("config reloaded", "species", len(reloaded.Species))
			continue
		}
		slog.Info("received signal, shutting down", "signal", sig)
		break
	}

	engine.Close()
	fmt.Println("Engine stopped. Entity state saved.")
}

// populateDemoHerds fills the demo cells with herds of the configured
// species. Roughly a third of the herds exceed their cell limit so the
// density term has something to bite on.
func populateDemoHerds(w *world.Memory, cfg *config.Config, seed int64) {
	if len(cfg.Species) == 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed + 1))

	for i, cell := range w.LoadedCells() {
		prof := cfg.Species[i%len(cfg.Species)]
		size := 2 + rng.Intn(prof.ChunkLimit)
		if i%3 == 0 {
			size = prof.ChunkLimit + 1 + rng.Intn(5)
		}

		mc, ok := cell.(*world.MemoryCell)
		if !ok {
			continue
		}
		for n := 0; n < size; n++ {
			mc.Spawn(prof.Type, 10)
		}
	}
}
