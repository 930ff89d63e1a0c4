// Package directory abstracts the identity service that owns user pools,
// users, and groups. The Client capability set is everything the backup
// builder and the restore orchestrator need; both are written against this
// interface so they can be exercised without a real directory behind them.
package directory

import (
	"context"
	"errors"

	"github.com/poolsnap/poolsnap/pkg/types"
)

// ErrAlreadyExists marks a create call that failed only because the entity
// is already present in the target pool. Callers decide whether that is a
// success (idempotent restore) or a real failure; implementations must
// return it wrapped so errors.Is works.
var ErrAlreadyExists = errors.New("entity already exists")

// ErrNotFound marks a lookup for an entity the directory does not know.
var ErrNotFound = errors.New("entity not found")

// NewUser carries everything needed to create one user. The notification
// that the identity service would normally send on creation is always
// suppressed.
type NewUser struct {
	Username          string
	Attributes        []types.Attribute
	TemporaryPassword string
}

// Client is the directory capability set.
type Client interface {
	// DescribePool returns the pool configuration document verbatim.
	DescribePool(ctx context.Context, poolID string) (types.PoolMetadata, error)

	// ListUsers returns every user in the pool, draining pagination. The
	// returned records carry no group memberships; use ListUserGroups to
	// enrich them.
	ListUsers(ctx context.Context, poolID string) ([]types.UserRecord, error)

	// ListUserGroups returns the names of the groups the user belongs to.
	ListUserGroups(ctx context.Context, poolID, username string) ([]string, error)

	// ListGroups returns every group definition in the pool.
	ListGroups(ctx context.Context, poolID string) ([]types.GroupRecord, error)

	// CreatePool creates a new pool with the given display name from a
	// submittable settings view and returns the assigned pool identifier.
	CreatePool(ctx context.Context, name string, settings types.PoolMetadata) (string, error)

	// CreateGroup creates one group. Returns ErrAlreadyExists (wrapped)
	// when the group name is taken.
	CreateGroup(ctx context.Context, poolID string, group types.GroupRecord) error

	// CreateUser creates one user with notification suppressed. Returns
	// ErrAlreadyExists (wrapped) when the username is taken.
	CreateUser(ctx context.Context, poolID string, user NewUser) error

	// SetPermanentPassword promotes the user's credential to a permanent
	// one.
	SetPermanentPassword(ctx context.Context, poolID, username, password string) error

	// AddUserToGroup records a membership edge. May return
	// ErrAlreadyExists (wrapped) when the edge is already present.
	AddUserToGroup(ctx context.Context, poolID, username, groupName string) error
}
