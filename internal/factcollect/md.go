package factcollect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

// CollectMdInfo records every assembled MD array visible on the host,
// keyed by md_devname (else kernel name), matching planb's
// md.py:get_md_info: a disk is an MD array when its DEVLINKS contain
// /dev/disk/by-id/md-uuid, and its member set comes from
// /sys/block/<d>/slaves/.
func (c *Collector) CollectMdInfo() (map[string]factmodel.MdArray, error) {
	devPaths, err := c.allBlockDevices()
	if err != nil {
		return nil, err
	}

	out := map[string]factmodel.MdArray{}
	for _, path := range devPaths {
		a, err := c.prober.FromPath(path)
		if err != nil {
			return nil, fmt.Errorf("factcollect: md probe %s: %w", path, err)
		}
		if a.Get("DEVTYPE") != "disk" {
			continue
		}
		hasMdUUID := false
		for _, link := range a.Symlinks {
			if strings.Contains(link, "/dev/disk/by-id/md-uuid") {
				hasMdUUID = true
				break
			}
		}
		if !hasMdUUID {
			continue
		}

		name := a.Get("MD_DEVNAME")
		if name == "" {
			name = a.KernelName
		}

		slavesDir := filepath.Join("/sys/block", a.KernelName, "slaves")
		entries, err := os.ReadDir(slavesDir)
		if err != nil {
			return nil, fmt.Errorf("factcollect: list slaves for %s: %w", name, err)
		}
		devs := make([]string, 0, len(entries))
		for _, e := range entries {
			devs = append(devs, e.Name())
		}
		sort.Strings(devs)

		out[name] = factmodel.MdArray{
			Name:            name,
			Members:         devs,
			Level:           a.Get("MD_LEVEL"),
			MetadataVersion: a.Get("MD_METADATA"),
			UUID:            a.Get("MD_UUID"),
		}
	}
	return out, nil
}
