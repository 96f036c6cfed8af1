package world

import (
	"errors"
	"fmt"
)

// RollbackError reports that a system's rollback failed. This is fatal for
// the run: with one system rolled back and another not, the World is in an
// unknown-consistency state and continuing would manufacture false
// violations.
type RollbackError struct {
	// System is the registered name of the adapter that failed.
	System string

	// CheckpointID identifies the checkpoint that was being restored.
	CheckpointID string

	// Err is the adapter's underlying error.
	Err error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of system %q to checkpoint %s failed: %v", e.System, e.CheckpointID, e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// IsRollbackError reports whether err is (or wraps) a RollbackError.
func IsRollbackError(err error) bool {
	var re *RollbackError
	return errors.As(err, &re)
}
