package reconstruct

import (
	"sort"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
)

// PartitionEditor is the Stage 1 capability: writing a fresh label with the
// captured partitions over a disk's existing table, and settling udev so
// the next stage sees the new partition nodes. Grounded on planb's
// parted.py partition-table rewrite (new-label/add-partition/commit),
// reimplemented against go-diskfs instead of shelling to parted. Other
// on-disk signatures (filesystem or RAID superblocks) are not wiped.
type PartitionEditor interface {
	WriteTable(diskPath string, disk *factmodel.Disk) error
	SettleUdev() error
}

// DiskfsPartitionEditor is the production PartitionEditor, built directly
// on top of github.com/diskfs/go-diskfs.
type DiskfsPartitionEditor struct {
	Settle func() error
}

// WriteTable writes the captured table type and its partitions, in number
// order, to diskPath in a single go-diskfs Partition call. There is no
// per-partition add step: any error from that call aborts the disk with an
// error, and no partition is skipped.
func (e DiskfsPartitionEditor) WriteTable(diskPath string, d *factmodel.Disk) error {
	dk, err := diskfs.Open(diskPath)
	if err != nil {
		return pbrerrors.RunCmdWrap("opening "+diskPath+" for repartitioning", err)
	}
	defer dk.Close()

	nums := d.SortedPartitionNumbers()

	switch d.TableType {
	case factmodel.TableGpt:
		table := &gpt.Table{
			ProtectiveMBR:      true,
			LogicalSectorSize:  512,
			PhysicalSectorSize: 512,
		}
		for _, n := range nums {
			p := d.Partitions[n]
			table.Partitions = append(table.Partitions, &gpt.Partition{
				Start: p.Start,
				End:   p.End,
				Type:  gptTypeFor(p),
				Name:  p.Name,
			})
		}
		if err := dk.Partition(table); err != nil {
			return pbrerrors.RunCmdWrap("writing gpt table to "+diskPath, err)
		}
	case factmodel.TableMsdos:
		table := &mbr.Table{
			LogicalSectorSize:  512,
			PhysicalSectorSize: 512,
		}
		for _, n := range nums {
			p := d.Partitions[n]
			table.Partitions = append(table.Partitions, &mbr.Partition{
				Bootable: p.HasFlag(factmodel.FlagBoot),
				Type:     mbrTypeFor(p),
				Start:    uint32(p.Start),
				Size:     uint32(p.End - p.Start + 1),
			})
		}
		if err := dk.Partition(table); err != nil {
			return pbrerrors.RunCmdWrap("writing msdos table to "+diskPath, err)
		}
	default:
		return pbrerrors.General("disk " + diskPath + " has no repartitionable table type recorded")
	}

	return nil
}

// gptTypeFor maps a captured partition's flag set to the GPT type GUID it
// must be re-created with, per spec §3's "flag semantics must round-trip
// through re-creation" invariant. A zero type GUID is GPT's "Unused Entry"
// sentinel, so an unmapped partition would otherwise be written as
// nonexistent to the kernel's partition scanner.
func gptTypeFor(p *factmodel.Partition) gpt.Type {
	switch {
	case p.HasFlag(factmodel.FlagEsp):
		return gpt.Type("C12A7328-F81F-11D2-BA4B-00A0C93EC93B") // EFI System Partition
	case p.HasFlag(factmodel.FlagBiosGrub):
		return gpt.Type("21686148-6449-6E6F-744E-656564454649") // BIOS boot
	case p.HasFlag(factmodel.FlagLvm):
		return gpt.Type("E6D6D379-F507-44C2-A23C-238F2A3DF928") // Linux LVM
	case p.HasFlag(factmodel.FlagRaid):
		return gpt.Type("A19D880F-05FC-4D3B-A006-743F0F84911E") // Linux RAID
	case p.HasFlag(factmodel.FlagSwap):
		return gpt.Type("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F") // Linux swap
	case p.HasFlag(factmodel.FlagPrep):
		return gpt.Type("9E1A2D38-C612-4316-AA26-8B49521E5A8B") // PowerPC PReP boot
	default:
		return gpt.Type("0FC63DAF-8483-4772-8E79-3D69D8477DE4") // Linux filesystem data
	}
}

// mbrTypeFor is gptTypeFor's MBR counterpart: the classic partition type
// byte. bios_grub has no MBR equivalent (it is a GPT-only concept), so it
// falls through to the Linux-filesystem default.
func mbrTypeFor(p *factmodel.Partition) mbr.Type {
	switch {
	case p.HasFlag(factmodel.FlagEsp):
		return mbr.Type(0xef) // EFI System
	case p.HasFlag(factmodel.FlagLvm):
		return mbr.Type(0x8e) // Linux LVM
	case p.HasFlag(factmodel.FlagRaid):
		return mbr.Type(0xfd) // Linux raid autodetect
	case p.HasFlag(factmodel.FlagSwap):
		return mbr.Type(0x82) // Linux swap
	case p.HasFlag(factmodel.FlagPrep):
		return mbr.Type(0x41) // PReP boot
	default:
		return mbr.Type(0x83) // Linux
	}
}

// SettleUdev blocks until the kernel has published the new partition
// nodes, matching spec §5's "issue a udev settle after any device-table
// change" rule.
func (e DiskfsPartitionEditor) SettleUdev() error {
	if e.Settle != nil {
		return e.Settle()
	}
	return nil
}

func (r *Reconstructor) stage1Partitions(fs *factmodel.FactSet, live map[string]*factmodel.Disk) error {
	needed := disksNeedingRepartition(fs, live)
	sort.Strings(needed)

	for _, path := range needed {
		log.Infof("reconstruct: repartitioning %s", path)
		if err := r.Partitions.WriteTable(path, fs.Disks[path]); err != nil {
			return err
		}
	}
	if len(needed) > 0 {
		if err := r.Partitions.SettleUdev(); err != nil {
			return pbrerrors.RunCmdWrap("settling udev after repartitioning", err)
		}
	}
	return nil
}
