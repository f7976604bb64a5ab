package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/survey"
)

func diffStore(t *testing.T, resources ...*survey.Resource) *survey.Store {
	t.Helper()
	store := survey.NewStore()
	for _, r := range resources {
		require.NoError(t, store.Put(r))
	}
	store.Freeze()
	return store
}

func diffResource(id, state string) *survey.Resource {
	info := survey.ContextInfo{Name: "prod:us-east-1:ec2", AccountID: "111", Region: "us-east-1", Service: "ec2"}
	return survey.NewResource(id, "ec2", "instances", info,
		survey.FromAny(map[string]any{"State": state}))
}

func TestChangesBetweenRevisions(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer archive.Close()

	rev1, err := archive.RecordScan(diffStore(t,
		diffResource("i-1", "running"),
		diffResource("i-2", "running"),
	))
	require.NoError(t, err)

	rev2, err := archive.RecordScan(diffStore(t,
		diffResource("i-1", "stopped"),
		diffResource("i-3", "running"),
	))
	require.NoError(t, err)

	events, err := archive.Changes(rev1, rev2)
	require.NoError(t, err)
	require.Len(t, events, 3)

	byID := make(map[string]ChangeEvent)
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	assert.Equal(t, ChangeModified, byID["i-1"].ChangeType)
	assert.Equal(t, "running", byID["i-1"].Previous["data"].(map[string]any)["State"])
	assert.Equal(t, "stopped", byID["i-1"].Current["data"].(map[string]any)["State"])
	assert.Equal(t, ChangeDisappeared, byID["i-2"].ChangeType)
	assert.Nil(t, byID["i-2"].Current)
	assert.Equal(t, ChangeCreated, byID["i-3"].ChangeType)
	assert.Nil(t, byID["i-3"].Previous)
}

func TestChangesNoDifference(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer archive.Close()

	_, err = archive.RecordScan(diffStore(t, diffResource("i-1", "running")))
	require.NoError(t, err)
	rev2, err := archive.RecordScan(diffStore(t, diffResource("i-1", "running")))
	require.NoError(t, err)

	events, err := archive.Changes(rev2-1, rev2)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestChangesSortedAndValidated(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer archive.Close()

	_, err = archive.Changes(1, 1)
	assert.Error(t, err)

	_, err = archive.Changes(1, 99)
	assert.Error(t, err)
}
