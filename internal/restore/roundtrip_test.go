package restore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/poolsnap/poolsnap/internal/backup"
	"github.com/poolsnap/poolsnap/internal/directory/directorytest"
	"github.com/poolsnap/poolsnap/internal/storage"
	"github.com/poolsnap/poolsnap/pkg/types"
)

// TestBackupRestoreRoundTrip drives the full pipeline: a snapshot built
// from one directory and replayed into an empty pool reproduces the same
// usernames, group names, and membership edges.
func TestBackupRestoreRoundTrip(t *testing.T) {
	precedence := int32(1)
	source := directorytest.New()
	source.AddPool("src", types.PoolMetadata{"Id": "src", "Name": "prod-users"})
	source.SeedGroup("src", types.GroupRecord{Name: "admins", Precedence: &precedence})
	source.SeedGroup("src", types.GroupRecord{Name: "readers"})
	source.SeedUser("src", types.UserRecord{
		Username: "alice",
		Status:   types.UserStatusConfirmed,
		Enabled:  true,
		Groups:   []string{"admins", "readers"},
	})
	source.SeedUser("src", types.UserRecord{
		Username: "bob",
		Status:   "UNCONFIRMED",
		Enabled:  true,
		Groups:   []string{"readers"},
	})
	source.SeedUser("src", types.UserRecord{
		Username: "carol",
		Status:   types.UserStatusConfirmed,
		Enabled:  true,
	})

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	builderReport, err := backup.NewBuilder(source, store, logger).Build(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, 3, builderReport.UsersBackedUp)
	assert.Equal(t, 2, builderReport.GroupsBackedUp)

	target := directorytest.New("target")
	report, err := NewRestorer(target, store, logger).Restore(context.Background(), builderReport.SnapshotKey, "target")
	require.NoError(t, err)

	assert.Equal(t, 3, report.UsersRestored)
	assert.Equal(t, 2, report.GroupsRestored)
	assert.Equal(t, 3, report.MembershipsRestored)
	assert.Empty(t, report.FailedUsers)

	srcPool, dstPool := source.Pools["src"], target.Pools["target"]
	assert.ElementsMatch(t, poolKeys(srcPool.Users), poolKeys(dstPool.Users))
	assert.ElementsMatch(t, poolKeys(srcPool.Groups), poolKeys(dstPool.Groups))
	assert.ElementsMatch(t, membershipEdges(srcPool), membershipEdges(dstPool))
}

func poolKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func membershipEdges(pool *directorytest.Pool) []string {
	var edges []string
	for username, groups := range pool.Memberships {
		for group := range groups {
			edges = append(edges, username+"/"+group)
		}
	}
	return edges
}
