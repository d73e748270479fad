// Package factrewriter implements the Fact Rewriter (C5): applying the
// Disk Matcher's rename map across every dependent reference in a
// FactSet, grounded on spec §4.5 and planb's recover.py rename application
// (device-path substitution ahead of cmp_disk_layout/reconstruction).
package factrewriter

import (
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/diskmatcher"
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

// Apply rewrites fs in place for each (old, new) pair, left to right, per
// spec §4.5. Once a mount has been rewritten by an earlier pair, later
// pairs do not revisit it, so chained pairs cannot clobber each other.
func Apply(fs *factmodel.FactSet, pairs []diskmatcher.RenamePair) {
	rewrittenMounts := map[string]bool{}

	for _, p := range pairs {
		if p.Old == p.New {
			continue
		}
		rewriteDisks(fs, p.Old, p.New)
		rewriteMounts(fs, p.Old, p.New, rewrittenMounts)
		rewriteMdMembers(fs, p.Old, p.New)
		rewritePvs(fs, p.Old, p.New)
		rewriteLuks(fs, p.Old, p.New)
	}
}

func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// alphabeticPrefix strips the trailing run of digits from a kernel device
// name, e.g. "sda" from "sda1". Only the last digit run goes, so
// "nvme0n1p2" gives "nvme0n1p" and "nvme0n1" gives "nvme0n".
func alphabeticPrefix(name string) string {
	i := len(name)
	for i > 0 && isDigit(name[i-1]) {
		i--
	}
	return name[:i]
}

func trailingDigits(name string) string {
	i := len(name)
	for i > 0 && isDigit(name[i-1]) {
		i--
	}
	return name[i:]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func rewriteDisks(fs *factmodel.FactSet, old, new string) {
	d, ok := fs.Disks[old]
	if !ok {
		return
	}
	delete(fs.Disks, old)
	d.Path = new
	fs.Disks[new] = d
}

func rewriteMounts(fs *factmodel.FactSet, old, new string, rewritten map[string]bool) {
	for key, m := range fs.Mnts {
		if rewritten[key] {
			continue
		}
		switch m.Kind {
		case factmodel.KindPart, factmodel.KindPartOnMpath, factmodel.KindMpath, factmodel.KindDisk:
		default:
			continue
		}

		changed := false
		if m.Parent == old {
			m.Parent = new
			changed = true
		}
		if strings.HasPrefix(m.Path, old) {
			suffix := m.Path[len(old):]
			if suffix == "" {
				m.Path = new
				changed = true
			} else if isPartitionSuffix(suffix) && (m.Kind == factmodel.KindPart || m.Kind == factmodel.KindPartOnMpath) {
				m.Path = rewritePartitionPath(old, new, m.Path)
				changed = true
			}
		}
		if changed {
			fs.Mnts[key] = m
			rewritten[key] = true
		}
	}
}

// isPartitionSuffix reports whether suffix looks like a bare partition
// number or number-with-p-prefix tail ("1", "p1"), as opposed to an
// unrelated path that merely shares old as a string prefix.
func isPartitionSuffix(suffix string) bool {
	s := strings.TrimPrefix(suffix, "p")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// rewritePartitionPath replaces the old disk prefix of path with new,
// applying the "insert p iff new ends in a digit" rule from spec §9.
func rewritePartitionPath(old, new, path string) string {
	suffix := strings.TrimPrefix(path[len(old):], "p")
	newBase := basename(new)
	if len(newBase) > 0 && isDigit(newBase[len(newBase)-1]) {
		return new + "p" + suffix
	}
	return new + suffix
}

func rewriteMdMembers(fs *factmodel.FactSet, old, new string) {
	oldBase := basename(old)
	newBase := basename(new)
	for name, arr := range fs.Misc.MdInfo {
		changed := false
		members := make([]string, len(arr.Members))
		for i, member := range arr.Members {
			if alphabeticPrefix(member) == oldBase {
				members[i] = newBase + trailingDigits(member)
				changed = true
			} else {
				members[i] = member
			}
		}
		if changed {
			arr.Members = members
			arr.SortMembers()
			fs.Misc.MdInfo[name] = arr
		}
	}
}

func rewritePvs(fs *factmodel.FactSet, old, new string) {
	for i, pv := range fs.Lvm.Pvs {
		if pv.Parent == "" {
			if pv.PvName == old {
				fs.Lvm.Pvs[i].PvName = new
			}
			continue
		}
		if pv.Parent != old {
			continue
		}
		fs.Lvm.Pvs[i].Parent = new
		if isPartitionSuffix(strings.TrimPrefix(pv.PvName, old)) {
			fs.Lvm.Pvs[i].PvName = rewritePartitionPath(old, new, pv.PvName)
		}
	}
}

func rewriteLuks(fs *factmodel.FactSet, old, new string) {
	oldBase := basename(old)
	newBase := basename(new)

	type rename struct {
		oldKey, newKey string
		container      factmodel.LuksContainer
	}
	var renames []rename
	for key, container := range fs.Misc.Luks {
		if alphabeticPrefix(basename(key)) != oldBase {
			continue
		}
		digits := trailingDigits(basename(key))
		newKey := dirOf(key) + newBase + digits
		container.Path = newKey
		renames = append(renames, rename{oldKey: key, newKey: newKey, container: container})
	}
	for _, r := range renames {
		delete(fs.Misc.Luks, r.oldKey)
		fs.Misc.Luks[r.newKey] = r.container
	}
}

func dirOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i+1]
}
