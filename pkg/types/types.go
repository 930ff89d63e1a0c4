package types

import (
	"encoding/json"
	"fmt"
	"path"
	"time"
)

// snapshotKeyPrefix namespaces snapshot objects inside a bucket or directory.
const snapshotKeyPrefix = "cognito-backups"

// snapshotKeyTimeLayout is second-resolution so that two runs against the
// same pool always produce distinct keys.
const snapshotKeyTimeLayout = "2006-01-02_15-04-05"

// UserStatusConfirmed is the user status that gets a permanent credential
// at restore time.
const UserStatusConfirmed = "CONFIRMED"

// PoolReadOnlyFields are the pool-level attributes assigned by the identity
// service itself. They are captured in a snapshot for traceability but must
// never appear in a create request.
var PoolReadOnlyFields = []string{
	"Id",
	"Name",
	"Status",
	"CreationDate",
	"LastModifiedDate",
	"Arn",
}

// PoolMetadata is the verbatim pool configuration document as returned by
// the identity service at backup time.
type PoolMetadata map[string]any

// CreateView returns the submittable view of the metadata: a copy with
// every read-only field stripped. The receiver is not modified.
func (m PoolMetadata) CreateView() PoolMetadata {
	view := make(PoolMetadata, len(m))
	for k, v := range m {
		view[k] = v
	}
	for _, field := range PoolReadOnlyFields {
		delete(view, field)
	}
	return view
}

// ID returns the source pool identifier recorded in the metadata, if any.
func (m PoolMetadata) ID() string {
	return m.stringField("Id")
}

// DisplayName returns the source pool display name recorded in the
// metadata, if any.
func (m PoolMetadata) DisplayName() string {
	return m.stringField("Name")
}

func (m PoolMetadata) stringField(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Attribute is a single user attribute name/value pair.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UserRecord is one user as captured at snapshot time. Groups is a
// denormalized copy of the user's group memberships, captured once; it is
// not kept in sync with the directory after the snapshot is taken.
type UserRecord struct {
	Username   string      `json:"username"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Status     string      `json:"status,omitempty"`
	Enabled    bool        `json:"enabled"`
	Groups     []string    `json:"groups,omitempty"`
}

// GroupRecord is one group definition as captured at snapshot time. Members
// are not stored here; membership edges are reconstructed from the Groups
// list embedded in each UserRecord.
type GroupRecord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Precedence  *int32 `json:"precedence,omitempty"`
}

// Snapshot is an immutable point-in-time capture of a user pool's users,
// groups, and membership edges.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Pool      PoolMetadata  `json:"pool"`
	Users     []UserRecord  `json:"users"`
	Groups    []GroupRecord `json:"groups"`
}

// Encode serializes the snapshot to its canonical JSON document form.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot document produced by Encode.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// SnapshotKey derives the storage key for a snapshot of the given pool
// taken at the given time.
func SnapshotKey(poolID string, ts time.Time) string {
	return path.Join(snapshotKeyPrefix, poolID, ts.UTC().Format(snapshotKeyTimeLayout)+".json")
}

// BackupReport summarizes one backup run.
type BackupReport struct {
	Location       string `json:"backup_location"`
	SnapshotKey    string `json:"snapshot_key"`
	UsersBackedUp  int    `json:"users_backed_up"`
	GroupsBackedUp int    `json:"groups_backed_up"`
}

// RestoreReport summarizes one restore run. FailedUsers lists usernames
// whose creation failed irrecoverably; a non-empty list marks a partial
// restore, not a failed run.
type RestoreReport struct {
	PoolID              string    `json:"user_pool_id"`
	UsersRestored       int       `json:"users_restored"`
	GroupsRestored      int       `json:"groups_restored"`
	MembershipsRestored int       `json:"user_group_memberships_restored"`
	FailedUsers         []string  `json:"failed_users"`
	SnapshotTimestamp   time.Time `json:"backup_timestamp"`
}
