package telemetry

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists a run's final counters to a local sqlite database so
// architecture variants can be compared across runs (spec.md §2
// ambient stack).
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) a sqlite database at path and
// ensures its schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT NOT NULL,
	unit   TEXT NOT NULL,
	ticks  INTEGER NOT NULL,
	active INTEGER NOT NULL,
	stall  INTEGER NOT NULL,
	bytes  INTEGER NOT NULL,
	energy_pj REAL NOT NULL,
	PRIMARY KEY (run_id, unit)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save writes runID's final snapshot, one row per unit.
func (s *Store) Save(runID string, snap Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
INSERT OR REPLACE INTO runs (run_id, unit, ticks, active, stall, bytes, energy_pj)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for name, u := range snap.Units {
		if _, err := stmt.Exec(runID, name, snap.Ticks, u.ActiveTicks, u.StallTicks, u.Bytes, u.EnergyPJ); err != nil {
			tx.Rollback()
			return fmt.Errorf("telemetry: save unit %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
