package halyard

import (
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFileNameIsSortable(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(36 * time.Hour),
		base,
		base.Add(9 * time.Second),
		base.Add(10 * time.Second),
		base.AddDate(1, 0, 0),
	}

	names := make([]string, 0, len(times))
	for _, ts := range times {
		names = append(names, BackupFileName(ts))
	}
	sort.Strings(names)

	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	for i, ts := range sorted {
		assert.Equal(t, BackupFileName(ts), names[i])
	}
}

func TestBackupFileNameUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2023, 1, 2, 2, 0, 0, 0, loc)

	assert.Equal(t, "halbackup-20230102000000.tar", BackupFileName(ts))
}

func TestBackupTimeRoundTrip(t *testing.T) {
	ts := time.Date(2023, 1, 3, 4, 5, 6, 0, time.UTC)

	parsed, err := BackupTime(BackupFileName(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	_, err = BackupTime("halbackup-Tue_Jan_03_04-05-06_UTC_2023.tar")
	assert.Error(t, err)
	_, err = BackupTime("other.tar")
	assert.Error(t, err)
}

func TestIsBackupFileName(t *testing.T) {
	assert.True(t, IsBackupFileName("halbackup-20230101000000.tar"))
	assert.True(t, IsBackupFileName("halbackup-Sun_Jan_01_00-00-00_UTC_2023.tar"))
	assert.False(t, IsBackupFileName(".halbackup-123.tmp"))
	assert.False(t, IsBackupFileName("config"))
}

func TestConfigModeString(t *testing.T) {
	assert.Equal(t, "primary", ConfigPrimary.String())
	assert.Equal(t, "backup", ConfigBackup.String())
	assert.Equal(t, "ConfigMode(7)", ConfigMode(7).String())
}

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("restore: %w", IOError("write", "/tmp/x", errors.New("disk full")))

	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrArchiveFormat)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, "write /tmp/x: disk full", errors.Unwrap(err).Error())

	rot := RotationError("/backups", ErrNoRollbackTarget)
	assert.ErrorIs(t, rot, ErrRotation)
	assert.ErrorIs(t, rot, ErrNoRollbackTarget)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWithCleanup(t *testing.T) {
	closeErr := errors.New("close failed")

	assert.NoError(t, WithCleanup(nil, "close", "a.tar", nil))

	only := WithCleanup(nil, "close", "a.tar", closeErr)
	assert.ErrorIs(t, only, ErrCleanup)
	assert.Equal(t, KindCleanup, KindOf(only))

	primary := IOError("write", "a.tar", errors.New("short write"))
	both := WithCleanup(primary, "close", "a.tar", closeErr)
	assert.ErrorIs(t, both, ErrIO)
	assert.ErrorIs(t, both, ErrCleanup)
	assert.ErrorIs(t, both, closeErr)
	assert.Equal(t, KindIO, KindOf(both))

	assert.Same(t, primary, WithCleanup(primary, "close", "a.tar", nil))
}
