// Package persistence provides SQLite-based storage for village runs:
// full save snapshots, the current entity table and append-only archives
// of every event and decision.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/savefile"
)

// ErrNoSnapshot is returned when the database holds no save to load.
var ErrNoSnapshot = errors.New("no saved snapshot")

// DB wraps a SQLite connection for village persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		game_day INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		archetype TEXT NOT NULL,
		active INTEGER NOT NULL,
		components_json TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS events (
		run_id TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		sub_kind TEXT NOT NULL,
		game_day INTEGER NOT NULL,
		game_time TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		target_id INTEGER NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (run_id, event_id)
	);

	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL,
		decision_id INTEGER NOT NULL,
		entity_id INTEGER NOT NULL,
		entity_name TEXT NOT NULL,
		game_day INTEGER NOT NULL,
		game_time TEXT NOT NULL,
		action TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		reasoning TEXT NOT NULL,
		outcome TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (run_id, decision_id)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_saved ON snapshots(saved_at);
	CREATE INDEX IF NOT EXISTS idx_events_day ON events(run_id, game_day);
	CREATE INDEX IF NOT EXISTS idx_decisions_entity ON decisions(run_id, entity_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Snapshot is one stored save.
type Snapshot struct {
	ID      string `db:"id"`
	RunID   string `db:"run_id"`
	GameDay int    `db:"game_day"`
	SavedAt int64  `db:"saved_at"`
	Data    []byte `db:"data"`
}

// SaveSnapshot stores a save file and returns its id.
func (db *DB) SaveSnapshot(runID string, day int, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO snapshots (id, run_id, game_day, saved_at, data) VALUES (?, ?, ?, ?, ?)",
		id, runID, day, time.Now().UnixNano(), string(data),
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the newest save, optionally restricted to one run.
func (db *DB) LatestSnapshot(runID string) (*Snapshot, error) {
	var s Snapshot
	var err error
	if runID == "" {
		err = db.conn.Get(&s, "SELECT id, run_id, game_day, saved_at, data FROM snapshots ORDER BY saved_at DESC LIMIT 1")
	} else {
		err = db.conn.Get(&s, "SELECT id, run_id, game_day, saved_at, data FROM snapshots WHERE run_id = ? ORDER BY saved_at DESC LIMIT 1", runID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &s, nil
}

// SaveEntities writes every entity of the run (full replace).
func (db *DB) SaveEntities(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entities WHERE run_id = ?", sim.RunID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO entities
		(run_id, id, name, archetype, active, components_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range sim.Registry.All() {
		view, err := sim.Entity(e.ID)
		if err != nil {
			return err
		}
		comps, err := json.Marshal(view.Components)
		if err != nil {
			return fmt.Errorf("encode entity %d: %w", e.ID, err)
		}
		active := 0
		if e.Active {
			active = 1
		}
		if _, err := stmt.Exec(sim.RunID, e.ID, e.Name, e.Archetype, active, string(comps)); err != nil {
			return fmt.Errorf("insert entity %d: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// ArchiveEvents appends events to the archive. Events already archived
// for the run are skipped, so the whole ring can be passed every time.
func (db *DB) ArchiveEvents(runID string, events []event.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		res, err := tx.Exec(`INSERT OR IGNORE INTO events
			(run_id, event_id, kind, sub_kind, game_day, game_time, source_id, target_id, location, description, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, e.ID, e.Kind.String(), e.SubKind.String(), e.GameDay, e.GameTime,
			e.Source, e.Target, e.Location, e.Description, string(data),
		)
		if err != nil {
			return 0, fmt.Errorf("insert event %d: %w", e.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	return added, tx.Commit()
}

// ArchiveDecisions appends decision records, skipping ones already stored.
func (db *DB) ArchiveDecisions(runID string, records []decision.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode decision %d: %w", r.ID, err)
		}
		ok := 0
		if r.Succeeded {
			ok = 1
		}
		res, err := tx.Exec(`INSERT OR IGNORE INTO decisions
			(run_id, decision_id, entity_id, entity_name, game_day, game_time, action, succeeded, reasoning, outcome, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.ID, r.EntityID, r.EntityName, r.GameDay, r.GameTime,
			r.ChosenAction.String(), ok, r.Reasoning, r.Outcome, string(data),
		)
		if err != nil {
			return 0, fmt.Errorf("insert decision %d: %w", r.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	return added, tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save: entities, both archives, a
// snapshot and the run metadata.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	slog.Info("saving world state", "run", sim.RunID, "day", sim.Clock.Day, "entities", sim.Registry.Len())

	if err := db.SaveEntities(sim); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	events, err := db.ArchiveEvents(sim.RunID, sim.Events.All())
	if err != nil {
		return fmt.Errorf("archive events: %w", err)
	}
	decisions, err := db.ArchiveDecisions(sim.RunID, sim.Decisions.All())
	if err != nil {
		return fmt.Errorf("archive decisions: %w", err)
	}
	data, err := savefile.Encode(sim)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := db.SaveSnapshot(sim.RunID, sim.Clock.Day, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := db.SaveMeta("run_id", sim.RunID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_day", strconv.Itoa(sim.Clock.Day)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved", "events_archived", events, "decisions_archived", decisions, "bytes", len(data))
	return nil
}

// LoadWorldState rebuilds the newest saved simulation.
func (db *DB) LoadWorldState(opts config.Options, simOpts ...engine.Option) (*engine.Simulation, error) {
	snap, err := db.LatestSnapshot("")
	if err != nil {
		return nil, err
	}
	sim, err := savefile.Decode(snap.Data, opts, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	slog.Info("world state loaded", "snapshot", snap.ID, "run", snap.RunID, "day", snap.GameDay)
	return sim, nil
}

// EventRow is an archived event.
type EventRow struct {
	EventID     uint64 `db:"event_id"`
	Kind        string `db:"kind"`
	SubKind     string `db:"sub_kind"`
	GameDay     int    `db:"game_day"`
	GameTime    string `db:"game_time"`
	SourceID    int    `db:"source_id"`
	TargetID    int    `db:"target_id"`
	Location    string `db:"location"`
	Description string `db:"description"`
}

// RecentEvents returns the most recent N archived events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		`SELECT event_id, kind, sub_kind, game_day, game_time, source_id, target_id, location, description
		 FROM events WHERE run_id = ? ORDER BY event_id DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}

// DecisionsFor returns the archived decisions of one entity, newest first,
// decoded back into full records.
func (db *DB) DecisionsFor(runID string, entity int, limit int) ([]decision.Record, error) {
	var rows []string
	err := db.conn.Select(&rows,
		"SELECT data FROM decisions WHERE run_id = ? AND entity_id = ? ORDER BY decision_id DESC LIMIT ?",
		runID, entity, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]decision.Record, 0, len(rows))
	for _, data := range rows {
		var r decision.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
