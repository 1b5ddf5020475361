package plague

import (
	"log/slog"
	"sync"
	"time"
)

// jobHandle owns one periodic job's goroutine. The handle is created
// running and stopped exactly once; stop blocks until the goroutine exits.
type jobHandle struct {
	name     string
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startJob(name string, interval, delay time.Duration, tick func()) *jobHandle {
	j := &jobHandle{
		name: name,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go j.run(interval, delay, tick)
	slog.Info("job started", "job", name, "interval", interval, "delay", delay)
	return j
}

func (j *jobHandle) run(interval, delay time.Duration, tick func()) {
	defer close(j.done)

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-j.quit:
			return
		}
	}
	safeTick(j.name, tick)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			safeTick(j.name, tick)
		case <-j.quit:
			return
		}
	}
}

func (j *jobHandle) stop() {
	j.stopOnce.Do(func() { close(j.quit) })
	<-j.done
	slog.Info("job stopped", "job", j.name)
}

// safeTick runs one job tick, recovering panics so a bad tick never kills
// the cadence.
func safeTick(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job tick panicked", "job", name, "panic", r)
		}
	}()
	fn()
}

// StartScanJob starts the periodic infection scan on its own goroutine, the
// scan context. Starting an already running job is a logged no-op.
func (e *Engine) StartScanJob(interval, delay time.Duration) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if e.scanJob != nil {
		slog.Warn("scan job already running")
		return
	}
	e.scanJob = startJob("infection-scan", interval, delay, func() { e.scanPass() })
}

// StopScanJob stops the infection scan job. Stopping a stopped job is a
// logged no-op. Batches already handed off still apply.
func (e *Engine) StopScanJob() {
	e.jobsMu.Lock()
	j := e.scanJob
	e.scanJob = nil
	e.jobsMu.Unlock()
	if j == nil {
		slog.Warn("scan job not running")
		return
	}
	j.stop()
}

// StartDamageJob starts the periodic lethality tick. Each tick runs on the
// apply context.
func (e *Engine) StartDamageJob(interval, delay time.Duration) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if e.damageJob != nil {
		slog.Warn("damage job already running")
		return
	}
	e.damageJob = startJob("plague-damage", interval, delay, func() {
		e.submit(func() { e.damageTick() })
	})
}

// StopDamageJob stops the lethality tick job.
func (e *Engine) StopDamageJob() {
	e.jobsMu.Lock()
	j := e.damageJob
	e.damageJob = nil
	e.jobsMu.Unlock()
	if j == nil {
		slog.Warn("damage job not running")
		return
	}
	j.stop()
}

// StartEnvironmentJob starts the periodic environment cache refresh. Each
// refresh runs on the apply context, the cache's single writer.
func (e *Engine) StartEnvironmentJob(interval time.Duration) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if e.envJob != nil {
		slog.Warn("environment job already running")
		return
	}
	e.envJob = startJob("environment-refresh", interval, 0, func() {
		e.submit(e.refreshEnvironment)
	})
}

// StopEnvironmentJob stops the environment refresh job.
func (e *Engine) StopEnvironmentJob() {
	e.jobsMu.Lock()
	j := e.envJob
	e.envJob = nil
	e.jobsMu.Unlock()
	if j == nil {
		slog.Warn("environment job not running")
		return
	}
	j.stop()
}

// JobStatus reports which periodic jobs are currently running.
type JobStatus struct {
	Scan        bool `json:"scan"`
	Damage      bool `json:"damage"`
	Environment bool `json:"environment"`
}

// Jobs returns the current job status.
func (e *Engine) Jobs() JobStatus {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	return JobStatus{
		Scan:        e.scanJob != nil,
		Damage:      e.damageJob != nil,
		Environment: e.envJob != nil,
	}
}
