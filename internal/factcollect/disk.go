package factcollect

import (
	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
)

// CollectDisk reads the live partition table for one disk (via go-diskfs,
// replacing parted) and enriches every partition with filesystem
// attributes from udev, matching planb's parted.py:get_part_layout. Disks
// without a recognizable table, or with a "loop" label, become leaf
// records carrying only fs_type/fs_uuid (spec §9).
func (c *Collector) CollectDisk(path string) (*factmodel.Disk, error) {
	a, err := c.prober.FromPath(path)
	if err != nil {
		return nil, pbrerrors.RunCmdWrap("probing disk "+path, err)
	}

	d := &factmodel.Disk{
		Path:   path,
		Serial: a.Get("ID_SERIAL_SHORT"),
		WWN:    a.Get("ID_WWN"),
		IDPath: a.Get("ID_PATH"),
	}

	disk, err := diskfs.Open(path)
	if err != nil {
		// No parted-openable device (e.g. a plain filesystem with no
		// partition table): record only the filesystem attributes.
		d.FsType = factmodel.FilesystemType(a.Get("ID_FS_TYPE"))
		d.FsUUID = a.Get("ID_FS_UUID")
		return d, nil
	}
	defer disk.Close()

	d.Size = uint64(disk.Size)

	table, err := disk.GetPartitionTable()
	if err != nil {
		d.FsType = factmodel.FilesystemType(a.Get("ID_FS_TYPE"))
		d.FsUUID = a.Get("ID_FS_UUID")
		return d, nil
	}

	d.Partitions = map[int]*factmodel.Partition{}

	switch t := table.(type) {
	case *gpt.Table:
		d.TableType = factmodel.TableGpt
		for i, p := range t.Partitions {
			if p.Start == 0 && p.End == 0 {
				continue
			}
			number := i + 1
			part, err := c.enrichPartition(path, number, p.Start, p.End, factmodel.PartNormal, p.Name)
			if err != nil {
				return nil, err
			}
			d.Partitions[number] = part
		}
	case *mbr.Table:
		d.TableType = factmodel.TableMsdos
		for i, p := range t.Partitions {
			if p.Size == 0 {
				continue
			}
			number := i + 1
			start := uint64(p.Start)
			end := start + uint64(p.Size) - 1
			partType := factmodel.PartNormal
			if number > 4 {
				partType = factmodel.PartLogical
			}
			part, err := c.enrichPartition(path, number, start, end, partType, "")
			if err != nil {
				return nil, err
			}
			d.Partitions[number] = part
		}
	default:
		d.TableType = factmodel.TableNone
		d.FsType = factmodel.FilesystemType(a.Get("ID_FS_TYPE"))
		d.FsUUID = a.Get("ID_FS_UUID")
	}

	return d, nil
}

func (c *Collector) enrichPartition(diskPath string, number int, start, end uint64, ptype factmodel.PartitionType, name string) (*factmodel.Partition, error) {
	node := factmodel.PartitionNodePath(diskPath, number)
	part := &factmodel.Partition{
		Number: number,
		Start:  start,
		End:    end,
		Type:   ptype,
		Name:   name,
	}

	pa, err := c.prober.FromPath(node)
	if err != nil {
		log.Warnf("factcollect: partition node %s not yet present in udev, leaving fs fields empty", node)
		return part, nil
	}
	part.FsType = factmodel.FilesystemType(pa.Get("ID_FS_TYPE"))
	part.FsUUID = pa.Get("ID_FS_UUID")
	part.FsLabel = pa.Get("ID_FS_LABEL")
	return part, nil
}
