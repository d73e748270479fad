// Package topologyfilter implements the Topology Filter (C3): applying
// exclusion policy to prune a FactSet down to only what must be restored,
// grounded on planb's backup.py VG/disk pruning helpers (get_bk_vgs,
// cleanup_disks) and spec §4.3.
package topologyfilter

import (
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

// Exclusions is the subset of internal/config's policy this filter
// consumes.
type Exclusions struct {
	BkExcludeVgs   []string
	BkExcludeDisks []string
	// ScratchMount is excluded from disk pruning's mount scan: mounts
	// rooted under it are never considered (spec §4.3).
	ScratchMount string
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Filter applies VG filtering then disk pruning to fs in place, returning
// the surviving VG list in discovery order with duplicates removed (spec
// §4.3: "VG filtering before disk pruning, because the filter must still
// be able to resolve PVs→parent disks").
func Filter(fs *factmodel.FactSet, ex Exclusions) []string {
	vgs := filterVgs(fs, ex)
	pruneDisks(fs, ex, vgs)
	return vgs
}

// filterVgs implements spec §4.3's "VG determination": for each mount
// whose kind is lvm or crypt and whose parent is unset, consider its VG.
func filterVgs(fs *factmodel.FactSet, ex Exclusions) []string {
	excludedVgs := map[string]bool{}
	for _, v := range ex.BkExcludeVgs {
		excludedVgs[v] = true
	}

	var order []string
	seen := map[string]bool{}
	candidateVgs := map[string]bool{}

	for mp, m := range fs.Mnts {
		if isUnderScratch(mp, ex.ScratchMount) {
			continue
		}
		if (m.Kind != factmodel.KindLvm && m.Kind != factmodel.KindCrypt) || m.Parent != "" {
			continue
		}
		vg := m.Vg
		if vg == "" {
			continue
		}
		if !seen[vg] {
			seen[vg] = true
			order = append(order, vg)
			candidateVgs[vg] = true
		}
	}

	// A VG excluded directly, or excluded because one of its PVs sits on
	// an excluded disk, drops every mount that references it.
	for vg := range candidateVgs {
		if excludedVgs[vg] {
			continue
		}
		for _, pv := range fs.Lvm.PvsForVg(vg) {
			if pv.Parent != "" {
				if contains(ex.BkExcludeDisks, pv.Parent) {
					excludedVgs[vg] = true
					break
				}
			} else if contains(ex.BkExcludeDisks, pv.PvName) {
				excludedVgs[vg] = true
				break
			}
		}
	}

	var survivors []string
	for _, vg := range order {
		if !excludedVgs[vg] {
			survivors = append(survivors, vg)
		}
	}

	for mp, m := range fs.Mnts {
		if (m.Kind == factmodel.KindLvm || m.Kind == factmodel.KindCrypt) && m.Parent == "" && excludedVgs[m.Vg] {
			delete(fs.Mnts, mp)
		}
	}

	return survivors
}

// pruneDisks implements spec §4.3's "disk pruning": compute the set of
// disks referenced by surviving mounts (including via MD members and LVM
// PVs), keep only those.
func pruneDisks(fs *factmodel.FactSet, ex Exclusions, survivingVgs []string) {
	keep := map[string]bool{}

	for mp, m := range fs.Mnts {
		if isUnderScratch(mp, ex.ScratchMount) {
			continue
		}
		switch m.Kind {
		case factmodel.KindPart, factmodel.KindPartOnMpath, factmodel.KindMpath, factmodel.KindDisk:
			if m.Parent != "" {
				keep[m.Parent] = true
			} else {
				keep[m.Path] = true
			}
		}
		if m.MdDevname != "" {
			if arr, ok := fs.Misc.MdInfo[mdArrayName(m.MdDevname)]; ok {
				keepMdMemberDisks(keep, arr)
			}
		}
	}

	survivingSet := map[string]bool{}
	for _, vg := range survivingVgs {
		survivingSet[vg] = true
	}
	for _, pv := range fs.Lvm.Pvs {
		if !survivingSet[pv.VgName] {
			continue
		}
		switch {
		case pv.MdDev:
			if arr, ok := fs.Misc.MdInfo[mdArrayName(pv.PvName)]; ok {
				keepMdMemberDisks(keep, arr)
			}
		case pv.Parent != "":
			keep[pv.Parent] = true
		default:
			keep[pv.PvName] = true
		}
	}

	for path := range fs.Disks {
		if contains(ex.BkExcludeDisks, path) {
			delete(fs.Disks, path)
			continue
		}
		if !keep[path] {
			delete(fs.Disks, path)
		}
	}
}

func isUnderScratch(mountPoint, scratchMount string) bool {
	if scratchMount == "" {
		return false
	}
	if mountPoint == scratchMount {
		return true
	}
	if len(mountPoint) > len(scratchMount) && mountPoint[:len(scratchMount)+1] == scratchMount+"/" {
		return true
	}
	return false
}

// keepMdMemberDisks marks every parent disk backing an MD array's members
// as kept, resolving each bare member name (e.g. "sda1") to its parent
// disk path ("/dev/sda") rather than keeping the member path itself —
// fs.Disks is keyed by disk path, so keeping "/dev/sda1" would never match
// and the disk backing a partition-based MD array would be pruned.
func keepMdMemberDisks(keep map[string]bool, arr factmodel.MdArray) {
	for _, member := range arr.Members {
		keep["/dev/"+factmodel.MemberDiskBasename(member)] = true
	}
}

func mdArrayName(mdDevname string) string {
	const prefix = "/dev/md/"
	if len(mdDevname) > len(prefix) {
		return mdDevname[len(prefix):]
	}
	return mdDevname
}
