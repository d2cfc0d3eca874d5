package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestBeginAndFinish(t *testing.T) {
	j := setupTestJournal(t)
	j.now = stepClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	rec, err := j.Begin(KindCreate, "")
	require.NoError(t, err)
	assert.Len(t, rec.ID, 32)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Nil(t, rec.Finished)

	stored, err := j.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, stored.Status)
	assert.Nil(t, stored.Finished)

	rec.Archive = "/hal/.backups/halbackup-20240102030405.tar"
	require.NoError(t, j.Finish(rec, nil))

	stored, err = j.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, KindCreate, stored.Kind)
	assert.Equal(t, rec.Archive, stored.Archive)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), stored.Started)
	require.NotNil(t, stored.Finished)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC), *stored.Finished)
	assert.Empty(t, stored.ErrorMessage)
}

func TestFinishWithError(t *testing.T) {
	j := setupTestJournal(t)

	rec, err := j.Begin(KindRestore, "/tmp/halbackup-20240101000000.tar")
	require.NoError(t, err)
	require.NoError(t, j.Finish(rec, errors.New("archive format failure")))

	stored, err := j.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "archive format failure", stored.ErrorMessage)
	assert.Equal(t, "/tmp/halbackup-20240101000000.tar", stored.Archive)
}

func TestListNewestFirst(t *testing.T) {
	j := setupTestJournal(t)
	j.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for _, kind := range []Kind{KindCreate, KindCreate, KindRollback} {
		rec, err := j.Begin(kind, "")
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, KindRollback, all[0].Kind)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListEmpty(t *testing.T) {
	records, err := setupTestJournal(t).List(10)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetMissing(t *testing.T) {
	_, err := setupTestJournal(t).Get("nope")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishUnknownRecord(t *testing.T) {
	err := setupTestJournal(t).Finish(&Record{ID: "nope"}, nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenOnDiskPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	rec, err := j.Begin(KindCreate, "a.tar")
	require.NoError(t, err)
	require.NoError(t, j.Finish(rec, nil))
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, StatusCompleted, records[0].Status)
}
