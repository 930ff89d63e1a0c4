// Package invoke is the single structured entry point over backup and
// restore: it validates operation parameters and dispatches to the
// appropriate runner, returning the run's summary object or a typed error.
package invoke

import (
	"context"
	"fmt"

	"github.com/poolsnap/poolsnap/pkg/types"
)

// Operation selects what an invocation does.
type Operation string

const (
	OperationBackup  Operation = "backup"
	OperationRestore Operation = "restore"
)

// Request carries the operation selector and its parameters.
type Request struct {
	Operation    Operation `json:"operation"`
	PoolID       string    `json:"user_pool_id,omitempty"`
	SnapshotKey  string    `json:"snapshot_key,omitempty"`
	TargetPoolID string    `json:"target_user_pool_id,omitempty"`
}

// MissingParameterError reports a required parameter absent from a request.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Parameter)
}

// UnknownOperationError reports an operation selector the handler does not
// recognize.
type UnknownOperationError struct {
	Operation Operation
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q, use %q or %q", e.Operation, OperationBackup, OperationRestore)
}

// BackupRunner is the backup side of the invocation surface.
type BackupRunner interface {
	Build(ctx context.Context, poolID string) (*types.BackupReport, error)
}

// RestoreRunner is the restore side of the invocation surface.
type RestoreRunner interface {
	Restore(ctx context.Context, snapshotKey, targetPoolID string) (*types.RestoreReport, error)
}

// Handler dispatches requests to the runners.
type Handler struct {
	backup  BackupRunner
	restore RestoreRunner
}

// NewHandler creates a Handler.
func NewHandler(backup BackupRunner, restore RestoreRunner) *Handler {
	return &Handler{backup: backup, restore: restore}
}

// Handle validates the request and runs the selected operation. The result
// is the operation's summary object; a caller never infers success from the
// absence of an error alone.
func (h *Handler) Handle(ctx context.Context, req Request) (any, error) {
	switch req.Operation {
	case OperationBackup:
		if req.PoolID == "" {
			return nil, &MissingParameterError{Parameter: "user_pool_id"}
		}
		return h.backup.Build(ctx, req.PoolID)
	case OperationRestore:
		if req.SnapshotKey == "" {
			return nil, &MissingParameterError{Parameter: "snapshot_key"}
		}
		return h.restore.Restore(ctx, req.SnapshotKey, req.TargetPoolID)
	default:
		return nil, &UnknownOperationError{Operation: req.Operation}
	}
}
