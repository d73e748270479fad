package factcollect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/udevprobe"
)

// CollectMounts reads /proc/mounts and /proc/swaps and classifies every
// backing device, matching planb's fs.py:get_mnts. Swap entries get
// synthetic SWAP-<n> keys per spec §3.
func (c *Collector) CollectMounts() (factmodel.Mounts, error) {
	out := factmodel.Mounts{}

	mountLines, err := readStripFilter("/proc/mounts")
	if err != nil {
		return nil, err
	}
	for _, line := range mountLines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if err := c.addMountEntry(out, fields[0], fields[1]); err != nil {
			return nil, err
		}
	}

	swapLines, err := readStripFilter("/proc/swaps")
	if err != nil {
		return nil, err
	}
	i := 0
	for _, line := range swapLines {
		fields := strings.Fields(line)
		if len(fields) < 1 {
			continue
		}
		if err := c.addMountEntry(out, fields[0], fmt.Sprintf("SWAP-%d", i)); err != nil {
			return nil, err
		}
		i++
	}

	return out, nil
}

// readStripFilter mirrors fs.py's read_strip_filter: read a file, strip
// whitespace, keep only lines starting with "/" but not "//" (network
// mounts' leading slashes in fstab-shaped listings).
func readStripFilter(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("factcollect: read %s: %w", path, err)
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
			out = append(out, line)
		}
	}
	return out, nil
}

func (c *Collector) addMountEntry(out factmodel.Mounts, dev, mountPoint string) error {
	if strings.HasPrefix(dev, "/dev/zram") {
		return nil
	}

	a, err := c.prober.FromPath(dev)
	if err != nil {
		return fmt.Errorf("factcollect: mount probe %s: %w", dev, err)
	}

	if strings.HasPrefix(dev, "/dev/dm-") {
		dev = "/dev/mapper/" + a.Get("DM_NAME")
	}

	kind := udevprobe.Classify(a)

	var vg, parent, mdDevname string
	switch kind {
	case factmodel.KindLvm:
		vg = a.Get("DM_VG_NAME")
		if mdName := a.Get("MD_DEVNAME"); mdName != "" {
			mdDevname = "/dev/md/" + mdName
		}
	case factmodel.KindPart, factmodel.KindPartRaid:
		parent = parentDiskOf(a)
	case factmodel.KindPartOnMpath:
		parent = "/dev/mapper/" + a.Get("DM_MPATH")
	case factmodel.KindMdArray:
		if a.Props["DEVTYPE"] == "partition" {
			parent = parentDiskOf(a)
		} else if mdName := a.Get("MD_DEVNAME"); mdName != "" {
			mdDevname = "/dev/md/" + mdName
		}
	case factmodel.KindCrypt:
		slaves, _ := filepath.Glob(filepath.Join("/sys/block", a.KernelName, "slaves", "*"))
		if len(slaves) > 0 {
			slaveName := filepath.Base(slaves[0])
			dmNameFile := filepath.Join(slaves[0], "dm", "name")
			if _, statErr := os.Stat(dmNameFile); statErr == nil {
				slaveAttrs, err := c.prober.FromPath("/dev/" + slaveName)
				if err == nil {
					vg = slaveAttrs.Get("DM_VG_NAME")
				}
			} else {
				parent = "/dev/" + slaveName
			}
		}
	}

	out[mountPoint] = factmodel.Mount{
		MountPoint: mountPoint,
		Path:       dev,
		KernelName: a.DeviceNode,
		FsType:     factmodel.FilesystemType(a.Get("ID_FS_TYPE")),
		FsUUID:     a.Get("ID_FS_UUID"),
		FsLabel:    a.Get("ID_FS_LABEL"),
		Kind:       kind,
		Vg:         vg,
		Parent:     parent,
		MdDevname:  mdDevname,
	}
	return nil
}
