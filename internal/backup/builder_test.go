package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/poolsnap/poolsnap/internal/directory/directorytest"
	"github.com/poolsnap/poolsnap/internal/storage"
	"github.com/poolsnap/poolsnap/pkg/types"
)

func seededSource() *directorytest.Fake {
	dir := directorytest.New()
	dir.AddPool("src", types.PoolMetadata{"Id": "src", "Name": "prod-users"})
	dir.SeedGroup("src", types.GroupRecord{Name: "admins", Description: "Administrators"})
	dir.SeedUser("src", types.UserRecord{
		Username:   "alice",
		Attributes: []types.Attribute{{Name: "email", Value: "alice@example.com"}},
		Status:     types.UserStatusConfirmed,
		Enabled:    true,
		Groups:     []string{"admins"},
	})
	dir.SeedUser("src", types.UserRecord{
		Username: "bob",
		Status:   "UNCONFIRMED",
		Enabled:  true,
	})
	return dir
}

func newTestBuilder(t *testing.T, dir *directorytest.Fake) (*Builder, storage.Store) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	builder := NewBuilder(dir, store, zaptest.NewLogger(t))
	builder.now = func() time.Time {
		return time.Date(2024, 3, 5, 4, 5, 6, 0, time.UTC)
	}
	return builder, store
}

func TestBuildSnapshot(t *testing.T) {
	dir := seededSource()
	builder, store := newTestBuilder(t, dir)

	report, err := builder.Build(context.Background(), "src")
	require.NoError(t, err)

	assert.Equal(t, 2, report.UsersBackedUp)
	assert.Equal(t, 1, report.GroupsBackedUp)
	assert.Equal(t, "cognito-backups/src/2024-03-05_04-05-06.json", report.SnapshotKey)
	assert.Contains(t, report.Location, report.SnapshotKey)

	data, err := store.Get(context.Background(), report.SnapshotKey)
	require.NoError(t, err)
	snap, err := types.DecodeSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 5, 4, 5, 6, 0, time.UTC), snap.Timestamp)
	assert.Equal(t, "src", snap.Pool.ID())
	require.Len(t, snap.Users, 2)
	assert.Equal(t, []string{"admins"}, snap.Users[0].Groups)
	assert.Empty(t, snap.Users[1].Groups)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, "admins", snap.Groups[0].Name)
}

func TestBuildDistinctKeysForDistinctRuns(t *testing.T) {
	dir := seededSource()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	builder := NewBuilder(dir, store, zaptest.NewLogger(t))

	ts := time.Date(2024, 3, 5, 4, 5, 6, 0, time.UTC)
	builder.now = func() time.Time { return ts }
	first, err := builder.Build(context.Background(), "src")
	require.NoError(t, err)

	builder.now = func() time.Time { return ts.Add(time.Second) }
	second, err := builder.Build(context.Background(), "src")
	require.NoError(t, err)

	assert.NotEqual(t, first.SnapshotKey, second.SnapshotKey)
}

func TestBuildToleratesPerUserMembershipFailure(t *testing.T) {
	dir := seededSource()
	dir.UserGroupsErr = map[string]error{"alice": errors.New("not authorized")}
	builder, store := newTestBuilder(t, dir)

	report, err := builder.Build(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, 2, report.UsersBackedUp)

	data, err := store.Get(context.Background(), report.SnapshotKey)
	require.NoError(t, err)
	snap, err := types.DecodeSnapshot(data)
	require.NoError(t, err)

	// alice's group set degrades to empty; the backup itself succeeds.
	for _, user := range snap.Users {
		if user.Username == "alice" {
			assert.Empty(t, user.Groups)
		}
	}
}

func TestBuildToleratesGroupListingFailure(t *testing.T) {
	dir := seededSource()
	dir.ListGroupsErr = errors.New("throttled")
	builder, store := newTestBuilder(t, dir)

	report, err := builder.Build(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, 0, report.GroupsBackedUp)

	data, err := store.Get(context.Background(), report.SnapshotKey)
	require.NoError(t, err)
	snap, err := types.DecodeSnapshot(data)
	require.NoError(t, err)

	// Group definitions are missing but membership edges survive in the
	// user records.
	assert.Empty(t, snap.Groups)
	assert.Equal(t, []string{"admins"}, snap.Users[0].Groups)
}

func TestBuildFailsWhenPoolUnreachable(t *testing.T) {
	dir := seededSource()
	dir.DescribePoolErr = errors.New("connection refused")
	builder, _ := newTestBuilder(t, dir)

	_, err := builder.Build(context.Background(), "src")
	assert.Error(t, err)
}

func TestBuildFailsWhenUserListingFails(t *testing.T) {
	dir := seededSource()
	dir.ListUsersErr = errors.New("connection reset")
	builder, _ := newTestBuilder(t, dir)

	_, err := builder.Build(context.Background(), "src")
	assert.Error(t, err)
}
