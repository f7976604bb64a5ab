package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/survey"
)

func archiveResource(service, resourceType, id string, data map[string]any) *survey.Resource {
	return survey.NewResource(id, service, resourceType, survey.ContextInfo{
		Name:      "111122223333:us-east-1:" + service,
		AccountID: "111122223333",
		Region:    "us-east-1",
		Service:   service,
	}, survey.FromAny(data))
}

func frozenStore(t *testing.T, resources ...*survey.Resource) *survey.Store {
	t.Helper()
	store := survey.NewStore()
	for _, r := range resources {
		require.NoError(t, store.Put(r))
	}
	store.Freeze()
	return store
}

func TestRecordScanAndState(t *testing.T) {
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	rev, err := a.RecordScan(frozenStore(t,
		archiveResource("ec2", "instances", "i-1", map[string]any{"State": "running"}),
		archiveResource("kms", "keys", "k-1", map[string]any{"Enabled": true}),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
	assert.Equal(t, int64(1), a.CurrentRevision())

	state, err := a.State("ec2", "instances", "i-1")
	require.NoError(t, err)
	assert.True(t, state.Exists)
	assert.Equal(t, int64(1), state.FirstSeenRev)
	assert.Equal(t, int64(1), state.LastSeenRev)

	record, err := a.RecordAt(rev, "ec2", "instances", "i-1")
	require.NoError(t, err)
	assert.Equal(t, "i-1", record["id"])

	_, err = a.State("ec2", "instances", "i-9")
	assert.Error(t, err)
}

func TestRecordScanMarksDisappeared(t *testing.T) {
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RecordScan(frozenStore(t,
		archiveResource("ec2", "instances", "i-1", nil),
		archiveResource("ec2", "instances", "i-2", nil),
	))
	require.NoError(t, err)

	rev2, err := a.RecordScan(frozenStore(t,
		archiveResource("ec2", "instances", "i-1", nil),
	))
	require.NoError(t, err)

	gone, err := a.State("ec2", "instances", "i-2")
	require.NoError(t, err)
	assert.False(t, gone.Exists)
	assert.Equal(t, rev2, gone.DisappearedRev)

	still, err := a.State("ec2", "instances", "i-1")
	require.NoError(t, err)
	assert.True(t, still.Exists)
	assert.Equal(t, rev2, still.LastSeenRev)

	disappeared := a.Disappeared()
	require.Len(t, disappeared, 1)
	assert.Equal(t, "i-2", disappeared[0].ID)
}

func TestByType(t *testing.T) {
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RecordScan(frozenStore(t,
		archiveResource("ec2", "instances", "i-1", nil),
		archiveResource("ec2", "volumes", "vol-1", nil),
		archiveResource("kms", "keys", "k-1", nil),
	))
	require.NoError(t, err)

	states := a.ByType("ec2", "instances")
	require.Len(t, states, 1)
	assert.Equal(t, "i-1", states[0].ID)
}

func TestArchiveReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()

	a, err := NewArchive(dir)
	require.NoError(t, err)
	_, err = a.RecordScan(frozenStore(t,
		archiveResource("ec2", "instances", "i-1", nil),
	))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	reopened, err := NewArchive(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, int64(1), reopened.CurrentRevision())
	state, err := reopened.State("ec2", "instances", "i-1")
	require.NoError(t, err)
	assert.True(t, state.Exists)
	assert.Equal(t, int64(1), state.LastSeenRev)
}

func TestCompact(t *testing.T) {
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 3; i++ {
		_, err = a.RecordScan(frozenStore(t,
			archiveResource("ec2", "instances", "i-1", map[string]any{"scan": i}),
		))
		require.NoError(t, err)
	}

	require.NoError(t, a.Compact(1))

	_, err = a.RecordAt(1, "ec2", "instances", "i-1")
	assert.Error(t, err, "old revision compacted away")
	_, err = a.RecordAt(3, "ec2", "instances", "i-1")
	assert.NoError(t, err, "recent revision kept")
}
