package factcollect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

func fabricatedFactSet() *factmodel.FactSet {
	fs := factmodel.NewFactSet()
	fs.Disks["/dev/sda"] = &factmodel.Disk{
		Path:      "/dev/sda",
		Serial:    "S1",
		Size:      200000,
		TableType: factmodel.TableMsdos,
		Partitions: map[int]*factmodel.Partition{
			1: {Number: 1, Start: 2048, End: 2099199, Type: factmodel.PartNormal, Flags: []factmodel.PartitionFlag{factmodel.FlagBoot}, FsType: factmodel.FsExt4, FsUUID: "U1"},
			2: {Number: 2, Start: 2099200, End: 199999999, Type: factmodel.PartNormal, Flags: []factmodel.PartitionFlag{factmodel.FlagLvm}},
		},
	}
	fs.Mnts["/boot"] = factmodel.Mount{MountPoint: "/boot", Path: "/dev/sda1", Kind: factmodel.KindPart, FsType: factmodel.FsExt4, FsUUID: "U1"}
	fs.Misc = factmodel.Misc{Arch: "x86_64", Hostname: "host1", UEFI: false, BkVgs: []string{"vg0"}}
	return fs
}

func TestRoundTripFactIdentity(t *testing.T) {
	dir := t.TempDir()
	original := fabricatedFactSet()

	require.NoError(t, SaveFactSet(dir, original))

	loaded, err := LoadFactSet(dir)
	require.NoError(t, err)

	require.Equal(t, original.Disks["/dev/sda"].Serial, loaded.Disks["/dev/sda"].Serial)
	require.Equal(t, original.Disks["/dev/sda"].Size, loaded.Disks["/dev/sda"].Size)
	require.Len(t, loaded.Disks["/dev/sda"].Partitions, 2)
	require.Equal(t, original.Disks["/dev/sda"].Partitions[1].FsUUID, loaded.Disks["/dev/sda"].Partitions[1].FsUUID)
	require.True(t, loaded.Disks["/dev/sda"].Partitions[2].HasFlag(factmodel.FlagLvm))
	require.Equal(t, original.Mnts["/boot"].Path, loaded.Mnts["/boot"].Path)
	require.Equal(t, original.Misc.Hostname, loaded.Misc.Hostname)
	require.Equal(t, []string{"vg0"}, loaded.Misc.BkVgs)
}

func TestCheckFactsMatchOnIdenticalSave(t *testing.T) {
	refDir := t.TempDir()
	scratchDir := t.TempDir()
	fs := fabricatedFactSet()

	require.NoError(t, SaveFactSet(refDir, fs))
	require.NoError(t, SaveFactSet(scratchDir, fs))

	for _, name := range []string{disksFile, lvmFile, mntsFile, miscFile} {
		ref, err := loadFile(refDir, name)
		require.NoError(t, err)
		cur, err := loadFile(scratchDir, name)
		require.NoError(t, err)
		require.Equal(t, ref, cur)
	}
}

func loadFile(dir, name string) ([]byte, error) {
	return readValidated(dir, name)
}
