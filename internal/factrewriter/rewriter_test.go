package factrewriter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/diskmatcher"
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

func sampleFactSet() *factmodel.FactSet {
	fs := factmodel.NewFactSet()
	fs.Disks["/dev/sda"] = &factmodel.Disk{Path: "/dev/sda", Size: 1000}
	fs.Mnts["/boot"] = factmodel.Mount{MountPoint: "/boot", Path: "/dev/sda1", Kind: factmodel.KindPart, Parent: "/dev/sda"}
	fs.Mnts["/"] = factmodel.Mount{MountPoint: "/", Path: "/dev/vg0/root", Kind: factmodel.KindLvm, Vg: "vg0"}
	fs.Lvm.Pvs = []factmodel.Pv{
		{PvName: "/dev/sda2", VgName: "vg0", Parent: "/dev/sda"},
	}
	fs.Misc.MdInfo = map[string]factmodel.MdArray{
		"md0": {Name: "md0", Members: []string{"sda3", "sdb1"}},
	}
	fs.Misc.Luks = map[string]factmodel.LuksContainer{
		"/dev/sda4": {Path: "/dev/sda4", UUID: "U1", BackingKind: factmodel.LuksOnPart},
	}
	return fs
}

func TestApplyEmptyMapIsNoop(t *testing.T) {
	fs := sampleFactSet()
	before, err := fs.Clone()
	require.NoError(t, err)

	Apply(fs, nil)

	require.Equal(t, before.Disks, fs.Disks)
	require.Equal(t, before.Mnts, fs.Mnts)
}

func TestApplyRewritesDiskMountsPvsAndMdAndLuks(t *testing.T) {
	fs := sampleFactSet()

	Apply(fs, []diskmatcher.RenamePair{{Old: "/dev/sda", New: "/dev/sdz"}})

	require.NotContains(t, fs.Disks, "/dev/sda")
	require.Contains(t, fs.Disks, "/dev/sdz")
	require.Equal(t, "/dev/sdz", fs.Disks["/dev/sdz"].Path)

	require.Equal(t, "/dev/sdz1", fs.Mnts["/boot"].Path)
	require.Equal(t, "/dev/sdz", fs.Mnts["/boot"].Parent)

	require.Equal(t, "/dev/sdz2", fs.Lvm.Pvs[0].PvName)
	require.Equal(t, "/dev/sdz", fs.Lvm.Pvs[0].Parent)

	require.ElementsMatch(t, []string{"sdb1", "sdz3"}, fs.Misc.MdInfo["md0"].Members)

	_, oldPresent := fs.Misc.Luks["/dev/sda4"]
	require.False(t, oldPresent)
	require.Contains(t, fs.Misc.Luks, "/dev/sdz4")
}

func TestApplyInsertsPForDigitEndingDiskNames(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Disks["/dev/sda"] = &factmodel.Disk{Path: "/dev/sda"}
	fs.Mnts["/boot"] = factmodel.Mount{MountPoint: "/boot", Path: "/dev/sda1", Kind: factmodel.KindPart, Parent: "/dev/sda"}

	Apply(fs, []diskmatcher.RenamePair{{Old: "/dev/sda", New: "/dev/nvme0n1"}})

	require.Equal(t, "/dev/nvme0n1p1", fs.Mnts["/boot"].Path)
}

func TestApplyIdentityPairIsSkipped(t *testing.T) {
	fs := sampleFactSet()
	Apply(fs, []diskmatcher.RenamePair{{Old: "/dev/sda", New: "/dev/sda"}})

	require.Contains(t, fs.Disks, "/dev/sda")
	require.Equal(t, "/dev/sda1", fs.Mnts["/boot"].Path)
}

func TestApplyRestoresOriginalWhenSwappedBack(t *testing.T) {
	fs := sampleFactSet()
	original, err := fs.Clone()
	require.NoError(t, err)

	Apply(fs, []diskmatcher.RenamePair{{Old: "/dev/sda", New: "/dev/sdz"}})
	Apply(fs, []diskmatcher.RenamePair{{Old: "/dev/sdz", New: "/dev/sda"}})

	require.Equal(t, original.Mnts["/boot"].Path, fs.Mnts["/boot"].Path)
	require.Equal(t, original.Lvm.Pvs[0].PvName, fs.Lvm.Pvs[0].PvName)
}
