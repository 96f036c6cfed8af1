package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/wander/internal/obs"
)

// SnapshotStore wraps a SQLite database and implements checkpointing by
// copying the watched tables into memory. Rollback deletes the live
// rows and reinserts the snapshot, so any checkpoint can be restored in
// any order, as many times as needed. This is the adapter to use with
// breadth-first or randomized exploration.
type SnapshotStore struct {
	db        *sql.DB
	tables    []string
	next      int
	snapshots map[string]map[string][]map[string]any // handle -> table -> rows
}

// NewSnapshotStore builds a snapshot-backed store over db covering the
// listed tables. Tables not listed are neither observed nor restored.
func NewSnapshotStore(db *sql.DB, tables ...string) (*SnapshotStore, error) {
	for _, t := range tables {
		if err := validTableName(t); err != nil {
			return nil, err
		}
	}
	return &SnapshotStore{
		db:        db,
		tables:    tables,
		snapshots: make(map[string]map[string][]map[string]any),
	}, nil
}

func (s *SnapshotStore) Checkpoint(ctx context.Context, name string) (string, error) {
	snap := make(map[string][]map[string]any, len(s.tables))
	for _, t := range s.tables {
		rows, err := dumpTable(ctx, s.db, t)
		if err != nil {
			return "", err
		}
		snap[t] = rows
	}

	s.next++
	handle := fmt.Sprintf("snap_%d", s.next)
	s.snapshots[handle] = snap
	return handle, nil
}

func (s *SnapshotStore) Rollback(ctx context.Context, handle string) error {
	snap, ok := s.snapshots[handle]
	if !ok {
		return fmt.Errorf("unknown snapshot %q", handle)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}

	for _, t := range s.tables {
		if err := restoreTable(ctx, tx, t, snap[t]); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Observe(ctx context.Context) (obs.Observation, error) {
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

func restoreTable(ctx context.Context, tx *sql.Tx, table string, rows []map[string]any) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", table)); err != nil {
		return fmt.Errorf("restore %s: clear: %w", table, err)
	}

	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = fmt.Sprintf("%q", col)
			marks[i] = "?"
			args[i] = row[col]
		}

		stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
			table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("restore %s: insert: %w", table, err)
		}
	}
	return nil
}
