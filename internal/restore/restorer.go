// Package restore replays a snapshot into a target user pool.
//
// A restore run is a forward-only, best-effort replay, not a transaction:
// groups are fully restored before any user, memberships are attempted only
// after their user, and every per-entity failure is isolated so one bad
// record cannot abort the rest of the run. Re-running a restore against a
// partially populated pool converges instead of erroring, because entities
// that already exist count as restored.
package restore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/poolsnap/poolsnap/internal/directory"
	"github.com/poolsnap/poolsnap/internal/storage"
	"github.com/poolsnap/poolsnap/pkg/types"
)

// systemAttributes are managed by the identity service and never valid on a
// create request.
var systemAttributes = map[string]bool{
	"sub": true,
}

// Restorer replays snapshots into a target pool.
type Restorer struct {
	dir       directory.Client
	store     storage.Store
	log       *zap.Logger
	passwords PasswordSource
}

// NewRestorer creates a Restorer that generates a fresh temporary
// credential per user.
func NewRestorer(dir directory.Client, store storage.Store, log *zap.Logger) *Restorer {
	return &Restorer{
		dir:       dir,
		store:     store,
		log:       log,
		passwords: GeneratedPasswords{},
	}
}

// SetPasswordSource replaces the temporary-credential strategy.
func (r *Restorer) SetPasswordSource(src PasswordSource) {
	r.passwords = src
}

// Restore loads the snapshot stored under snapshotKey and replays it into
// targetPoolID. When targetPoolID is empty a new pool is created from the
// snapshot's pool metadata with the read-only fields stripped.
//
// A missing or malformed snapshot and a rejected pool creation are fatal;
// everything past that point is per-entity best effort, reported in the
// returned RestoreReport.
func (r *Restorer) Restore(ctx context.Context, snapshotKey, targetPoolID string) (*types.RestoreReport, error) {
	data, err := r.store.Get(ctx, snapshotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", snapshotKey, err)
	}
	snap, err := types.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	poolID := targetPoolID
	if poolID == "" {
		poolID, err = r.createPool(ctx, snap)
		if err != nil {
			return nil, err
		}
	} else {
		// An existing target only ever gains users and groups; its
		// pool-level settings are left untouched.
		r.log.Info("restoring into existing user pool", zap.String("pool_id", poolID))
	}

	report := &types.RestoreReport{
		PoolID:            poolID,
		FailedUsers:       []string{},
		SnapshotTimestamp: snap.Timestamp,
	}

	// Groups first: membership assignment requires the group to exist.
	for _, group := range snap.Groups {
		r.restoreGroup(ctx, poolID, group, report)
	}

	for _, user := range snap.Users {
		r.restoreUser(ctx, poolID, user, report)
	}

	r.log.Info("restore completed",
		zap.String("pool_id", poolID),
		zap.Int("users_restored", report.UsersRestored),
		zap.Int("groups_restored", report.GroupsRestored),
		zap.Int("memberships_restored", report.MembershipsRestored),
		zap.Int("failed_users", len(report.FailedUsers)))
	return report, nil
}

func (r *Restorer) createPool(ctx context.Context, snap *types.Snapshot) (string, error) {
	name := snap.Pool.DisplayName()
	if name == "" {
		name = "restored-" + snap.Timestamp.UTC().Format(time.DateOnly)
	}

	poolID, err := r.dir.CreatePool(ctx, name, snap.Pool.CreateView())
	if err != nil {
		return "", fmt.Errorf("failed to create user pool: %w", err)
	}
	return poolID, nil
}

// restoreGroup creates one group. Pre-existence counts as restored; any
// other failure is logged and skipped so user restoration can still make
// progress without the group.
func (r *Restorer) restoreGroup(ctx context.Context, poolID string, group types.GroupRecord, report *types.RestoreReport) {
	err := r.dir.CreateGroup(ctx, poolID, group)
	switch {
	case err == nil:
		report.GroupsRestored++
	case errors.Is(err, directory.ErrAlreadyExists):
		r.log.Info("group already exists, counting as restored",
			zap.String("group", group.Name))
		report.GroupsRestored++
	default:
		r.log.Warn("failed to restore group",
			zap.String("group", group.Name),
			zap.Error(err))
	}
}

// restoreUser creates one user and then attempts every membership edge the
// snapshot recorded for it. A pre-existing username counts as restored and
// still gets its memberships attempted; any other creation failure marks
// the user failed and skips its memberships.
func (r *Restorer) restoreUser(ctx context.Context, poolID string, user types.UserRecord, report *types.RestoreReport) {
	password, err := r.passwords.TemporaryPassword(user.Username)
	if err != nil {
		r.log.Warn("failed to obtain temporary password",
			zap.String("username", user.Username),
			zap.Error(err))
		report.FailedUsers = append(report.FailedUsers, user.Username)
		return
	}

	err = r.dir.CreateUser(ctx, poolID, directory.NewUser{
		Username:          user.Username,
		Attributes:        submittableAttributes(user.Attributes),
		TemporaryPassword: password,
	})
	switch {
	case err == nil:
		if user.Status == types.UserStatusConfirmed {
			// The snapshot recorded a confirmed user; promote the
			// credential so the restored user does not come back in the
			// force-change-password state.
			if err := r.dir.SetPermanentPassword(ctx, poolID, user.Username, password); err != nil {
				r.log.Warn("failed to set permanent password",
					zap.String("username", user.Username),
					zap.Error(err))
				report.FailedUsers = append(report.FailedUsers, user.Username)
				return
			}
		}
		report.UsersRestored++
	case errors.Is(err, directory.ErrAlreadyExists):
		r.log.Info("user already exists, counting as restored",
			zap.String("username", user.Username))
		report.UsersRestored++
	default:
		r.log.Warn("failed to restore user",
			zap.String("username", user.Username),
			zap.Error(err))
		report.FailedUsers = append(report.FailedUsers, user.Username)
		return
	}

	for _, groupName := range user.Groups {
		r.restoreMembership(ctx, poolID, user.Username, groupName, report)
	}
}

// restoreMembership records one membership edge. Each edge is independent:
// a failure affects neither the user's other edges nor the user itself. A
// directory that reports the edge as already present is treated as an
// idempotent no-op success.
func (r *Restorer) restoreMembership(ctx context.Context, poolID, username, groupName string, report *types.RestoreReport) {
	err := r.dir.AddUserToGroup(ctx, poolID, username, groupName)
	switch {
	case err == nil:
		report.MembershipsRestored++
	case errors.Is(err, directory.ErrAlreadyExists):
		r.log.Info("membership already present",
			zap.String("username", username),
			zap.String("group", groupName))
		report.MembershipsRestored++
	default:
		r.log.Warn("failed to add user to group",
			zap.String("username", username),
			zap.String("group", groupName),
			zap.Error(err))
	}
}

// submittableAttributes drops attributes the identity service manages
// itself.
func submittableAttributes(attrs []types.Attribute) []types.Attribute {
	result := make([]types.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		if systemAttributes[attr.Name] {
			continue
		}
		result = append(result, attr)
	}
	return result
}
