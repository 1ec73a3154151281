package telemetry

import (
	"log/slog"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Telemetry ties a run's Counters to a run id and an optional sqlite
// Store, and registers an atexit hook so a simulation killed mid-run
// (or panicking on a fatal assertion, spec.md §7) still flushes its
// last snapshot (spec.md §2 ambient stack).
type Telemetry struct {
	RunID    string
	Counters *Counters
	store    *Store
}

// New starts a Telemetry with a fresh xid run id. If storePath is
// non-empty, a sqlite Store is opened and an atexit hook registered to
// save the final snapshot to it.
func New(storePath string) (*Telemetry, error) {
	t := &Telemetry{
		RunID:    xid.New().String(),
		Counters: NewCounters(),
	}

	if storePath == "" {
		return t, nil
	}

	store, err := OpenStore(storePath)
	if err != nil {
		return nil, err
	}
	t.store = store

	atexit.Register(func() {
		if err := t.store.Save(t.RunID, t.Counters.Snapshot()); err != nil {
			slog.Error("telemetry: final flush failed", "run_id", t.RunID, "error", err)
			return
		}
		t.store.Close()
	})

	return t, nil
}

// Flush saves the current snapshot immediately, e.g. at the end of a
// clean run (the atexit hook exists for the unclean-exit case).
func (t *Telemetry) Flush() error {
	if t.store == nil {
		return nil
	}
	return t.store.Save(t.RunID, t.Counters.Snapshot())
}

// Report renders the current snapshot as a human-readable table.
func (t *Telemetry) Report() string {
	return Report(t.RunID, t.Counters.Snapshot())
}
