// Package store provides SQLite-backed per-entity plague state: breed count,
// infection flag and infection timestamp. State survives restarts and is the
// source of truth the in-memory infected registry is rebuilt from.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection for per-entity state access. A read or
// write failure for one entity is non-fatal: reads fall back to defaults and
// writes are dropped, both logged.
type Store struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entity_state (
		id TEXT PRIMARY KEY,
		breed_count INTEGER NOT NULL DEFAULT 0,
		infected INTEGER NOT NULL DEFAULT 0,
		infected_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_entity_state_infected ON entity_state(infected);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BreedCount returns an entity's recorded breed count, 0 when absent.
func (s *Store) BreedCount(id uuid.UUID) int {
	var n int
	err := s.conn.Get(&n, "SELECT breed_count FROM entity_state WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return 0
	}
	if err != nil {
		slog.Warn("read breed count failed, using 0", "entity", id, "error", err)
		return 0
	}
	return n
}

// SetBreedCount writes an entity's breed count, creating the row if needed.
func (s *Store) SetBreedCount(id uuid.UUID, n int) {
	_, err := s.conn.Exec(`
		INSERT INTO entity_state (id, breed_count) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET breed_count = excluded.breed_count`,
		id.String(), n)
	if err != nil {
		slog.Warn("write breed count failed, dropped", "entity", id, "count", n, "error", err)
	}
}

// IncrementBreedCount adds one to an entity's breed count and returns the
// new value. This is the only path that increases the count.
func (s *Store) IncrementBreedCount(id uuid.UUID) int {
	n := s.BreedCount(id) + 1
	s.SetBreedCount(id, n)
	return n
}

// IsInfected reports whether an entity is flagged infected.
func (s *Store) IsInfected(id uuid.UUID) bool {
	var infected int
	err := s.conn.Get(&infected, "SELECT infected FROM entity_state WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		slog.Warn("read infected flag failed, using false", "entity", id, "error", err)
		return false
	}
	return infected == 1
}

// SetInfected flags or clears an entity's infection. Flagging stamps the
// current time; clearing removes the timestamp, keeping the invariant that
// a timestamp exists exactly when the flag is set.
func (s *Store) SetInfected(id uuid.UUID, infected bool) {
	var err error
	if infected {
		_, err = s.conn.Exec(`
			INSERT INTO entity_state (id, infected, infected_at) VALUES (?, 1, ?)
			ON CONFLICT(id) DO UPDATE SET infected = 1, infected_at = excluded.infected_at`,
			id.String(), s.now().UnixMilli())
	} else {
		_, err = s.conn.Exec(`
			INSERT INTO entity_state (id, infected, infected_at) VALUES (?, 0, NULL)
			ON CONFLICT(id) DO UPDATE SET infected = 0, infected_at = NULL`,
			id.String())
	}
	if err != nil {
		slog.Warn("write infected flag failed, dropped", "entity", id, "infected", infected, "error", err)
	}
}

// InfectedAt returns the infection timestamp, or false when not infected.
func (s *Store) InfectedAt(id uuid.UUID) (time.Time, bool) {
	var at sql.NullInt64
	err := s.conn.Get(&at, "SELECT infected_at FROM entity_state WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false
	}
	if err != nil {
		slog.Warn("read infected time failed", "entity", id, "error", err)
		return time.Time{}, false
	}
	if !at.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(at.Int64), true
}

// InfectedDurationSeconds returns how long an entity has been infected, in
// whole seconds, and 0 when it is not infected.
func (s *Store) InfectedDurationSeconds(id uuid.UUID) int64 {
	if !s.IsInfected(id) {
		return 0
	}
	at, ok := s.InfectedAt(id)
	if !ok {
		return 0
	}
	return int64(s.now().Sub(at) / time.Second)
}

// ClearAll deletes every stored field for an entity.
func (s *Store) ClearAll(id uuid.UUID) {
	_, err := s.conn.Exec("DELETE FROM entity_state WHERE id = ?", id.String())
	if err != nil {
		slog.Warn("clear entity state failed", "entity", id, "error", err)
	}
}

// InfectedIDs returns every entity whose persisted state has the infection
// flag set. Used to reconcile the in-memory registry after a restart.
func (s *Store) InfectedIDs() []uuid.UUID {
	var raw []string
	err := s.conn.Select(&raw, "SELECT id FROM entity_state WHERE infected = 1")
	if err != nil {
		slog.Warn("list infected entities failed", "error", err)
		return nil
	}

	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			slog.Warn("skipping malformed entity id", "id", r, "error", err)
			continue
		}
		out = append(out, id)
	}
	return out
}
