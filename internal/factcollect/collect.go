// Package factcollect implements the Fact Collector (C2): building the
// complete FactSet from a live host by composing partition-layout, MD,
// LUKS, LVM, mount, and Misc sub-collectors, grounded on planb's
// facts.py/parted.py/md.py/luks.py/lvm.py. A failed probe of a disk, an
// LVM physical volume, a mounted device, or a block device in the MD and
// LUKS sweeps aborts collection with an error. A partition node that udev
// does not report is the exception: it is logged, and the partition is
// recorded without filesystem fields.
package factcollect

import (
	"fmt"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/udevprobe"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

var log = logger.Logger()

// Collector composes every C2 sub-collector against one host.
type Collector struct {
	exec   shell.Executor
	prober *udevprobe.Prober
	// FactsDir is where LUKS header backups and LVM metadata backups are
	// written alongside the four JSON documents (spec §6).
	FactsDir string
}

// NewCollector returns a Collector using the default shell executor and a
// default-configured Prober.
func NewCollector(factsDir string) *Collector {
	return &Collector{exec: shell.Default, prober: udevprobe.NewProber(), FactsDir: factsDir}
}

// EnumerateDisks lists every enumerable disk on the host, per udevprobe's
// filter rules (spec §4.1). Both the backup flow (to decide what to
// collect) and the restore flow (to build the Disk Matcher's live side)
// call this.
func (c *Collector) EnumerateDisks() ([]string, error) {
	return c.prober.EnumerateDisks()
}

// Collect builds a complete FactSet: partition layout for every given disk
// path, MD info, LUKS descriptors (with header backups), the LVM report,
// the mount/swap table, and the Misc record. bkVgs is the VG list computed
// by the Topology Filter (C3) before Misc is assembled, per spec §4.2.
func (c *Collector) Collect(diskPaths []string, bkVgs []string) (*factmodel.FactSet, error) {
	fs := factmodel.NewFactSet()

	for _, path := range diskPaths {
		disk, err := c.CollectDisk(path)
		if err != nil {
			return nil, pbrerrors.GeneralWrap(fmt.Sprintf("collecting partition layout for %s", path), err)
		}
		fs.Disks[path] = disk
	}

	mdInfo, err := c.CollectMdInfo()
	if err != nil {
		return nil, pbrerrors.GeneralWrap("collecting MD info", err)
	}

	luks, err := c.CollectLuks()
	if err != nil {
		return nil, pbrerrors.GeneralWrap("collecting LUKS descriptors", err)
	}

	lvm, err := c.CollectLvmReport()
	if err != nil {
		return nil, err
	}
	fs.Lvm = lvm

	mnts, err := c.CollectMounts()
	if err != nil {
		return nil, pbrerrors.GeneralWrap("collecting mount table", err)
	}
	fs.Mnts = mnts

	misc, err := c.CollectMisc(bkVgs, mdInfo, luks)
	if err != nil {
		return nil, pbrerrors.GeneralWrap("collecting misc facts", err)
	}
	fs.Misc = misc

	log.Infof("factcollect: collected %d disks, %d mounts, %d VGs", len(fs.Disks), len(fs.Mnts), len(bkVgs))
	return fs, nil
}
