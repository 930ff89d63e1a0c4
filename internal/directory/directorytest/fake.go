// Package directorytest provides an in-memory directory.Client for tests.
package directorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/poolsnap/poolsnap/internal/directory"
	"github.com/poolsnap/poolsnap/pkg/types"
)

// User is one user held by the fake, including the credential state the
// restore orchestrator is expected to produce.
type User struct {
	Record            types.UserRecord
	TemporaryPassword string
	PermanentPassword string
}

// Pool is one user pool held by the fake.
type Pool struct {
	Metadata types.PoolMetadata
	Groups   map[string]types.GroupRecord
	Users    map[string]*User
	// Memberships maps username to the set of group names.
	Memberships map[string]map[string]bool
}

// Fake is an in-memory directory.Client. Failure injection hooks let tests
// exercise the per-entity error paths; Calls records every mutating and
// listing operation in invocation order.
type Fake struct {
	mu    sync.Mutex
	Pools map[string]*Pool

	// Calls records operations as "op pool args..." strings.
	Calls []string

	// NextPoolID is returned by the next CreatePool call.
	NextPoolID string

	// DuplicateMembershipErr is returned by AddUserToGroup when the edge
	// already exists. Leave nil to treat re-adding as a no-op success.
	DuplicateMembershipErr error

	DescribePoolErr   error
	ListUsersErr      error
	ListGroupsErr     error
	CreatePoolErr     error
	UserGroupsErr     map[string]error
	CreateGroupErr    map[string]error
	CreateUserErr     map[string]error
	SetPasswordErr    map[string]error
	AddToGroupErr     map[string]error
	CreatedPoolName   string
	CreatedPoolConfig types.PoolMetadata
}

// New returns an empty fake with one pre-created pool per given id.
func New(poolIDs ...string) *Fake {
	f := &Fake{
		Pools:      map[string]*Pool{},
		NextPoolID: "pool-new",
	}
	for _, id := range poolIDs {
		f.AddPool(id, types.PoolMetadata{"Id": id, "Name": "pool-" + id})
	}
	return f
}

// AddPool registers a pool with the given metadata.
func (f *Fake) AddPool(id string, meta types.PoolMetadata) *Pool {
	pool := &Pool{
		Metadata:    meta,
		Groups:      map[string]types.GroupRecord{},
		Users:       map[string]*User{},
		Memberships: map[string]map[string]bool{},
	}
	f.Pools[id] = pool
	return pool
}

// SeedUser adds a user (and its membership edges) to an existing pool.
func (f *Fake) SeedUser(poolID string, record types.UserRecord) {
	pool := f.Pools[poolID]
	pool.Users[record.Username] = &User{Record: record}
	for _, group := range record.Groups {
		f.addMembership(pool, record.Username, group)
	}
}

// SeedGroup adds a group definition to an existing pool.
func (f *Fake) SeedGroup(poolID string, group types.GroupRecord) {
	f.Pools[poolID].Groups[group.Name] = group
}

func (f *Fake) addMembership(pool *Pool, username, group string) {
	if pool.Memberships[username] == nil {
		pool.Memberships[username] = map[string]bool{}
	}
	pool.Memberships[username][group] = true
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) pool(id string) (*Pool, error) {
	pool, ok := f.Pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s", directory.ErrNotFound, id)
	}
	return pool, nil
}

func (f *Fake) DescribePool(ctx context.Context, poolID string) (types.PoolMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("describe-pool %s", poolID)
	if f.DescribePoolErr != nil {
		return nil, f.DescribePoolErr
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return nil, err
	}
	return pool.Metadata, nil
}

func (f *Fake) ListUsers(ctx context.Context, poolID string) ([]types.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-users %s", poolID)
	if f.ListUsersErr != nil {
		return nil, f.ListUsersErr
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return nil, err
	}
	var users []types.UserRecord
	for _, name := range sortedKeys(pool.Users) {
		record := pool.Users[name].Record
		record.Groups = nil // memberships come from ListUserGroups
		users = append(users, record)
	}
	return users, nil
}

func (f *Fake) ListUserGroups(ctx context.Context, poolID, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-user-groups %s %s", poolID, username)
	if err := f.UserGroupsErr[username]; err != nil {
		return nil, err
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return nil, err
	}
	var groups []string
	for group := range pool.Memberships[username] {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups, nil
}

func (f *Fake) ListGroups(ctx context.Context, poolID string) ([]types.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-groups %s", poolID)
	if f.ListGroupsErr != nil {
		return nil, f.ListGroupsErr
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return nil, err
	}
	var groups []types.GroupRecord
	for _, name := range sortedKeys(pool.Groups) {
		groups = append(groups, pool.Groups[name])
	}
	return groups, nil
}

func (f *Fake) CreatePool(ctx context.Context, name string, settings types.PoolMetadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-pool %s", name)
	if f.CreatePoolErr != nil {
		return "", f.CreatePoolErr
	}
	f.CreatedPoolName = name
	f.CreatedPoolConfig = settings
	f.AddPool(f.NextPoolID, settings)
	return f.NextPoolID, nil
}

func (f *Fake) CreateGroup(ctx context.Context, poolID string, group types.GroupRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-group %s %s", poolID, group.Name)
	if err := f.CreateGroupErr[group.Name]; err != nil {
		return err
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return err
	}
	if _, exists := pool.Groups[group.Name]; exists {
		return fmt.Errorf("%w: group %s", directory.ErrAlreadyExists, group.Name)
	}
	pool.Groups[group.Name] = group
	return nil
}

func (f *Fake) CreateUser(ctx context.Context, poolID string, user directory.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-user %s %s", poolID, user.Username)
	if err := f.CreateUserErr[user.Username]; err != nil {
		return err
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return err
	}
	if _, exists := pool.Users[user.Username]; exists {
		return fmt.Errorf("%w: user %s", directory.ErrAlreadyExists, user.Username)
	}
	pool.Users[user.Username] = &User{
		Record: types.UserRecord{
			Username:   user.Username,
			Attributes: user.Attributes,
			Status:     "FORCE_CHANGE_PASSWORD",
			Enabled:    true,
		},
		TemporaryPassword: user.TemporaryPassword,
	}
	return nil
}

func (f *Fake) SetPermanentPassword(ctx context.Context, poolID, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set-permanent-password %s %s", poolID, username)
	if err := f.SetPasswordErr[username]; err != nil {
		return err
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return err
	}
	user, ok := pool.Users[username]
	if !ok {
		return fmt.Errorf("%w: user %s", directory.ErrNotFound, username)
	}
	user.PermanentPassword = password
	user.Record.Status = types.UserStatusConfirmed
	return nil
}

func (f *Fake) AddUserToGroup(ctx context.Context, poolID, username, groupName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add-user-to-group %s %s %s", poolID, username, groupName)
	if err := f.AddToGroupErr[username+"/"+groupName]; err != nil {
		return err
	}
	pool, err := f.pool(poolID)
	if err != nil {
		return err
	}
	if _, ok := pool.Groups[groupName]; !ok {
		return fmt.Errorf("%w: group %s", directory.ErrNotFound, groupName)
	}
	if _, ok := pool.Users[username]; !ok {
		return fmt.Errorf("%w: user %s", directory.ErrNotFound, username)
	}
	if pool.Memberships[username][groupName] {
		return f.DuplicateMembershipErr
	}
	f.addMembership(pool, username, groupName)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ directory.Client = (*Fake)(nil)
