// Package layoutcompare implements the Layout Comparator (C6): deciding
// whether a live disk's on-disk layout already matches a captured disk's
// recorded layout closely enough to skip repartitioning, grounded on
// planb's recover.py:Recover.cmp_disk_layout and spec §4.6.
package layoutcompare

import "github.com/open-edge-platform/pbr-storage/internal/factmodel"

// Matches reports whether live's layout already satisfies captured's
// recorded layout, after C5 has rewritten captured's references onto
// live's path.
//
// A disk with no recorded partitions matches only if it carries a
// compatible filesystem record (same fs_type present on both sides). A
// partitioned disk matches only if every captured partition number is
// present on live with an identical start sector; any missing partition
// or start-sector mismatch requires repartitioning.
func Matches(captured, live *factmodel.Disk) bool {
	if live == nil {
		return false
	}
	if len(captured.Partitions) == 0 {
		return captured.FsType != "" && captured.FsType == live.FsType
	}
	for num, cp := range captured.Partitions {
		lp, ok := live.Partitions[num]
		if !ok {
			return false
		}
		if lp.Start != cp.Start {
			return false
		}
	}
	return true
}

// NeedsRepartition is the complement of Matches, named for call sites that
// read more naturally as a positive "should we repartition" check (C7
// Stage 1 consumes this directly).
func NeedsRepartition(captured, live *factmodel.Disk) bool {
	return !Matches(captured, live)
}
