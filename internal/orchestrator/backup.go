package orchestrator

import (
	"bufio"
	"os"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factcollect"
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/topologyfilter"
)

// RunBackup drives the backup flow: enumerate disks, collect facts,
// filter by exclusion policy, cross-check against the live mount table,
// persist, and hand off to the archive subsystem (spec §4.8: "C2 → freeze
// → rescue-medium handoff → archive handoff"). Rescue-medium assembly and
// archive creation are out of core scope (spec.md Non-goals): when Archive
// is set, its CreateFrom packages the scratch tree; cmd/pbr leaves Archive
// nil, so by default no archive is created.
func (o *Orchestrator) RunBackup() (err error) {
	if _, scratchErr := o.newScratchDir(); scratchErr != nil {
		return scratchErr
	}
	defer o.cleanup()
	defer func() {
		if r := recover(); r != nil {
			err = pbrerrors.General("panic during backup, recovered at orchestrator boundary")
		}
	}()

	diskPaths, err := o.Collector.EnumerateDisks()
	if err != nil {
		return err
	}

	fs, err := o.Collector.Collect(diskPaths, nil)
	if err != nil {
		return err
	}

	vgs := topologyfilter.Filter(fs, topologyfilter.Exclusions{
		BkExcludeVgs:   o.Config.BkExcludeVgs,
		BkExcludeDisks: o.Config.BkExcludeDisks,
		ScratchMount:   o.scratchDir,
	})
	fs.Misc.BkVgs = vgs

	if err := verifyMountsAgainstFstab(fs.Mnts); err != nil {
		return err
	}

	if err := factcollect.SaveFactSet(hostFactsDir, fs); err != nil {
		return err
	}

	if o.Archive != nil {
		if err := o.Archive.CreateFrom(o.scratchDir, o.excludedScratchPaths()); err != nil {
			return err
		}
	}
	return nil
}

// verifyMountsAgainstFstab is the fstab cross-check supplemented feature
// (SPEC_FULL.md §4, grounded on planb's backup.py:cmp_mnts_fstab): every
// non-pseudo mount recorded in /etc/fstab must also appear in the
// collected mount table, catching a mid-backup unmount the collector
// would otherwise silently miss.
func verifyMountsAgainstFstab(mnts factmodel.Mounts) error {
	entries, err := readFstab("/etc/fstab")
	if err != nil {
		// No fstab (or unreadable) is not fatal: some rescue contexts
		// run against a minimal root with no fstab file at all.
		return nil
	}
	collected := map[string]bool{}
	for _, m := range mnts {
		collected[m.MountPoint] = true
	}
	for _, mp := range entries {
		if !collected[mp] {
			return pbrerrors.General("mount point " + mp + " is listed in /etc/fstab but was not seen by the fact collector; it may have been unmounted mid-backup")
		}
	}
	return nil
}

// readFstab returns the mount-point column of every non-comment,
// non-pseudo-filesystem line in an fstab file.
func readFstab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var points []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mp, fsType := fields[1], fields[2]
		if mp == "none" || mp == "swap" {
			continue
		}
		switch fsType {
		case "proc", "sysfs", "devtmpfs", "devpts", "tmpfs", "swap":
			continue
		}
		points = append(points, mp)
	}
	return points, scanner.Err()
}
