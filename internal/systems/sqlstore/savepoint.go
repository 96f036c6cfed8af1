package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/wander/internal/obs"
)

// SavepointStore wraps a SQLite database and implements checkpointing
// with SQL SAVEPOINTs.
//
// Rollback discipline: SQLite releases every savepoint established
// after the one being rolled back to. A handle that was released this
// way cannot be used again, so callers must roll back in reverse order
// of checkpointing. Depth-first exploration satisfies this naturally;
// breadth-first exploration does not and will fail with a released
// savepoint error. Use SnapshotStore when the traversal order is not
// strictly last-in-first-out.
type SavepointStore struct {
	db     *sql.DB
	tables []string
	next   int
	active map[string]int // handle -> issue order
}

// NewSavepointStore builds a savepoint-backed store over db. Observations
// include every listed table, dumped in rowid order.
func NewSavepointStore(db *sql.DB, tables ...string) (*SavepointStore, error) {
	for _, t := range tables {
		if err := validTableName(t); err != nil {
			return nil, err
		}
	}
	return &SavepointStore{
		db:     db,
		tables: tables,
		active: make(map[string]int),
	}, nil
}

func (s *SavepointStore) Checkpoint(ctx context.Context, name string) (string, error) {
	s.next++
	handle := fmt.Sprintf("sp_%d", s.next)
	if _, err := s.db.ExecContext(ctx, "SAVEPOINT "+handle); err != nil {
		return "", fmt.Errorf("savepoint %s: %w", handle, err)
	}
	s.active[handle] = s.next
	return handle, nil
}

func (s *SavepointStore) Rollback(ctx context.Context, handle string) error {
	order, ok := s.active[handle]
	if !ok {
		return fmt.Errorf("savepoint %q released or never issued", handle)
	}
	if _, err := s.db.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+handle); err != nil {
		return fmt.Errorf("rollback to %s: %w", handle, err)
	}
	// SQLite releases all savepoints taken after the target.
	for h, o := range s.active {
		if o > order {
			delete(s.active, h)
		}
	}
	return nil
}

func (s *SavepointStore) Observe(ctx context.Context) (obs.Observation, error) {
	data := make(map[string]any, len(s.tables))
	for _, t := range s.tables {
		rows, err := dumpTable(ctx, s.db, t)
		if err != nil {
			return obs.Observation{}, err
		}
		data[t] = rows
	}
	return obs.Observation{Data: data}, nil
}
