package topologyfilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

func baseFactSet() *factmodel.FactSet {
	fs := factmodel.NewFactSet()
	fs.Disks["/dev/sda"] = &factmodel.Disk{Path: "/dev/sda"}
	fs.Disks["/dev/sdb"] = &factmodel.Disk{Path: "/dev/sdb"}
	fs.Disks["/dev/sdc"] = &factmodel.Disk{Path: "/dev/sdc"}
	fs.Mnts["/boot"] = factmodel.Mount{MountPoint: "/boot", Path: "/dev/sda1", Kind: factmodel.KindPart, Parent: "/dev/sda"}
	fs.Mnts["/"] = factmodel.Mount{MountPoint: "/", Path: "/dev/vg0/root", Kind: factmodel.KindLvm, Vg: "vg0"}
	fs.Mnts["/data"] = factmodel.Mount{MountPoint: "/data", Path: "/dev/scratch/lv0", Kind: factmodel.KindLvm, Vg: "scratch"}
	fs.Lvm.Pvs = []factmodel.Pv{
		{PvName: "/dev/sdb1", VgName: "vg0", Parent: "/dev/sdb"},
		{PvName: "/dev/sdc1", VgName: "scratch", Parent: "/dev/sdc"},
	}
	return fs
}

func TestFilterExcludesVg(t *testing.T) {
	fs := baseFactSet()
	vgs := Filter(fs, Exclusions{BkExcludeVgs: []string{"scratch"}})

	require.NotContains(t, vgs, "scratch")
	require.Contains(t, vgs, "vg0")
	require.NotContains(t, fs.Mnts, "/data")
}

func TestFilterPrunesDisksOfExcludedVg(t *testing.T) {
	fs := baseFactSet()
	Filter(fs, Exclusions{BkExcludeVgs: []string{"scratch"}})

	require.NotContains(t, fs.Disks, "/dev/sdc")
	require.Contains(t, fs.Disks, "/dev/sda")
	require.Contains(t, fs.Disks, "/dev/sdb")
}

func TestFilterExcludesVgByDisk(t *testing.T) {
	fs := baseFactSet()
	vgs := Filter(fs, Exclusions{BkExcludeDisks: []string{"/dev/sdc"}})

	require.NotContains(t, vgs, "scratch")
	require.NotContains(t, fs.Disks, "/dev/sdc")
}

func TestFilterKeepsMdMemberParentDisks(t *testing.T) {
	fs := baseFactSet()
	fs.Mnts["/home"] = factmodel.Mount{MountPoint: "/home", MdDevname: "/dev/md/home", Kind: factmodel.KindMdArray}
	fs.Misc.MdInfo = map[string]factmodel.MdArray{
		"home": {Name: "home", Members: []string{"sda2", "sdb2"}},
	}

	Filter(fs, Exclusions{})

	require.Contains(t, fs.Disks, "/dev/sda")
	require.Contains(t, fs.Disks, "/dev/sdb")
}

func TestFilterKeepsDiskBackingMdBackedPv(t *testing.T) {
	fs := baseFactSet()
	fs.Disks["/dev/sdd"] = &factmodel.Disk{Path: "/dev/sdd"}
	fs.Disks["/dev/sde"] = &factmodel.Disk{Path: "/dev/sde"}
	fs.Mnts["/srv"] = factmodel.Mount{MountPoint: "/srv", Path: "/dev/vgmd/lv0", Kind: factmodel.KindLvm, Vg: "vgmd"}
	fs.Misc.MdInfo = map[string]factmodel.MdArray{
		"mdpv": {Name: "mdpv", Members: []string{"sdd1", "sde1"}},
	}
	fs.Lvm.Pvs = append(fs.Lvm.Pvs, factmodel.Pv{
		PvName: "/dev/md/mdpv",
		VgName: "vgmd",
		MdDev:  true,
	})

	Filter(fs, Exclusions{})

	require.Contains(t, fs.Disks, "/dev/sdd")
	require.Contains(t, fs.Disks, "/dev/sde")
}

func TestFilterSoundness(t *testing.T) {
	fs := baseFactSet()
	vgs := Filter(fs, Exclusions{BkExcludeDisks: []string{"/dev/sdc"}})

	vgSet := map[string]bool{}
	for _, v := range vgs {
		vgSet[v] = true
	}
	for _, m := range fs.Mnts {
		if m.Vg != "" {
			require.True(t, vgSet[m.Vg])
		}
	}
	for d := range fs.Disks {
		require.NotContains(t, []string{"/dev/sdc"}, d)
	}
}
