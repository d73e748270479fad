package layoutcompare

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

func TestMatchesUnpartitionedDiskByFsType(t *testing.T) {
	captured := &factmodel.Disk{FsType: factmodel.FsExt4}
	liveMatch := &factmodel.Disk{FsType: factmodel.FsExt4}
	liveMismatch := &factmodel.Disk{FsType: factmodel.FsXfs}

	require.True(t, Matches(captured, liveMatch))
	require.False(t, Matches(captured, liveMismatch))
}

func TestMatchesUnpartitionedDiskWithNoFsNeverMatches(t *testing.T) {
	captured := &factmodel.Disk{}
	live := &factmodel.Disk{}

	require.False(t, Matches(captured, live))
}

func TestMatchesPartitionedDiskRequiresSameStartSectors(t *testing.T) {
	captured := &factmodel.Disk{Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048},
		2: {Number: 2, Start: 1050624},
	}}
	liveSame := &factmodel.Disk{Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048},
		2: {Number: 2, Start: 1050624},
	}}
	liveShifted := &factmodel.Disk{Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048},
		2: {Number: 2, Start: 2050624},
	}}
	liveMissing := &factmodel.Disk{Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048},
	}}

	require.True(t, Matches(captured, liveSame))
	require.False(t, Matches(captured, liveShifted))
	require.False(t, Matches(captured, liveMissing))
}

func TestNeedsRepartitionIsComplement(t *testing.T) {
	captured := &factmodel.Disk{FsType: factmodel.FsExt4}
	live := &factmodel.Disk{FsType: factmodel.FsExt4}

	require.False(t, NeedsRepartition(captured, live))
	require.True(t, NeedsRepartition(captured, nil))
}
