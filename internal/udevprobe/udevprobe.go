// Package udevprobe implements the Device Probe (C1): enumerating block
// devices and classifying each by udev attribute, the way planb's
// get_dev_type/parted.py disk loop does it over pyudev. There is no cgo
// libudev binding in the teacher's or pack's dependency graph, so this
// shells out to udevadm(8) via the teacher's shell.Executor abstraction
// (internal/utils/shell), the same pattern the teacher uses for every
// other external tool.
package udevprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

var log = logger.Logger()

// Attrs is the raw udev property record for one block device, spec §4.1's
// "attribute record containing: device node, kernel name, DEVTYPE,
// symlinks, ID_FS_*, ID_SERIAL_SHORT, ID_WWN, ID_PATH, ID_BUS, DM_UUID,
// DM_NAME, DM_VG_NAME, DM_MPATH, MD_*, PARTN, DM_MULTIPATH_DEVICE_PATH."
type Attrs struct {
	DeviceNode string
	KernelName string
	Symlinks   []string
	Props      map[string]string
}

// Get returns a udev property value, or "" if unset.
func (a Attrs) Get(key string) string { return a.Props[key] }

// GetBool mirrors pyudev's `.get(key, False)` truthiness check used
// throughout planb for DM_MULTIPATH_DEVICE_PATH and similar flags.
func (a Attrs) GetBool(key string) bool {
	v, ok := a.Props[key]
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err == nil {
		return n != 0
	}
	return v != "" && v != "0"
}

// Classify derives a DeviceKind from a device's udev attributes, matching
// planb's utils.get_dev_type exactly (spec §3 DeviceType, §4.1 classify).
func Classify(a Attrs) factmodel.DeviceKind {
	if dmUUID, ok := a.Props["DM_UUID"]; ok && dmUUID != "" {
		switch {
		case strings.HasPrefix(dmUUID, "LVM"):
			return factmodel.KindLvm
		case strings.HasPrefix(dmUUID, "mpath"):
			return factmodel.KindMpath
		case strings.HasPrefix(dmUUID, "part"):
			if strings.Contains(dmUUID, "mpath") {
				return factmodel.KindPartOnMpath
			}
		case strings.HasPrefix(dmUUID, "CRYPT-LUKS"):
			return factmodel.KindCrypt
		}
	}
	if lvl, ok := a.Props["MD_LEVEL"]; ok && lvl != "" {
		if a.GetBool("PARTN") {
			return factmodel.KindPartRaid
		}
		return factmodel.KindMdArray
	}
	switch a.Props["DEVTYPE"] {
	case "partition":
		return factmodel.KindPart
	case "disk":
		return factmodel.KindDisk
	}
	return ""
}

// Prober queries udev (via udevadm) and the sysfs holders tree to
// enumerate and classify block devices.
type Prober struct {
	exec shell.Executor
}

// NewProber returns a Prober using the default shell executor.
func NewProber() *Prober {
	return &Prober{exec: shell.Default}
}

// NewProberWithExecutor injects a custom executor, used by tests.
func NewProberWithExecutor(e shell.Executor) *Prober {
	return &Prober{exec: e}
}

// FromPath queries udev for the device at the given path, e.g. /dev/sda.
func (p *Prober) FromPath(path string) (Attrs, error) {
	return p.query("--name=" + path)
}

// FromKernelName queries udev for a device by its bare kernel name, e.g. sda1.
func (p *Prober) FromKernelName(name string) (Attrs, error) {
	return p.FromPath("/dev/" + name)
}

func (p *Prober) query(nameArg string) (Attrs, error) {
	cmdStr := "udevadm info --query=property " + nameArg
	out, err := p.exec.ExecCmdSilent(cmdStr, false, shell.HostPath, nil)
	if err != nil {
		return Attrs{}, pbrerrors.RunCmdWrap(cmdStr, err)
	}
	return parseProperties(out), nil
}

func parseProperties(out string) Attrs {
	a := Attrs{Props: map[string]string{}}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "DEVLINKS=") {
			for _, l := range strings.Fields(strings.TrimPrefix(line, "DEVLINKS=")) {
				a.Symlinks = append(a.Symlinks, l)
			}
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		a.Props[k] = v
		switch k {
		case "DEVNAME":
			a.DeviceNode = v
			a.KernelName = filepath.Base(v)
		}
	}
	return a
}

// HasMpathHolder reports whether the device at kernelName is held by a
// multipath device-mapper target, per the sysfs holders check in
// parted.py (pyudev's DM_MULTIPATH_DEVICE_PATH is unreliable in the
// recovery environment, so this walks /sys/block/<d>/holders/*/dm/uuid
// directly, exactly as the source does).
func HasMpathHolder(kernelName string) bool {
	matches, err := filepath.Glob(filepath.Join("/sys/block", kernelName, "holders", "*", "dm", "uuid"))
	if err != nil || len(matches) == 0 {
		return false
	}
	b, err := os.ReadFile(matches[0])
	if err != nil {
		return false
	}
	fields := strings.Fields(string(b))
	return len(fields) > 0 && strings.HasPrefix(fields[0], "mpath-")
}

// IsEnumerableDisk applies the "enumerable disks" filter rules from spec
// §4.1: reject /dev/loop*, MD_NAME-set devices, ID_TYPE containing "cd",
// ID_BUS == "usb", DM_MULTIPATH_DEVICE_PATH truthy paths, and any dm-*
// device whose DM_UUID doesn't start with "mpath-".
func IsEnumerableDisk(a Attrs) bool {
	if strings.HasPrefix(a.DeviceNode, "/dev/loop") {
		return false
	}
	if a.Get("MD_NAME") != "" {
		return false
	}
	if strings.Contains(a.Get("ID_TYPE"), "cd") {
		return false
	}
	if a.Get("ID_BUS") == "usb" {
		return false
	}
	if a.GetBool("DM_MULTIPATH_DEVICE_PATH") {
		return false
	}
	if strings.Contains(a.DeviceNode, "dm-") {
		if !strings.HasPrefix(a.Get("DM_UUID"), "mpath-") {
			return false
		}
	}
	if HasMpathHolder(a.KernelName) {
		return false
	}
	return true
}

// EnumerateDisks lists every enumerable disk on the host, returning the
// canonical path to use as the disk's FactSet key: /dev/mapper/<DM_NAME>
// for multipath targets, else the plain device node.
func (p *Prober) EnumerateDisks() ([]string, error) {
	const cmdStr = "lsblk -d -n -o NAME -p"
	out, err := p.exec.ExecCmdSilent(cmdStr, false, shell.HostPath, nil)
	if err != nil {
		return nil, pbrerrors.RunCmdWrap(cmdStr, err)
	}

	var disks []string
	var errs []error
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		a, err := p.FromPath(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !IsEnumerableDisk(a) {
			continue
		}
		canonical := a.DeviceNode
		if strings.Contains(a.DeviceNode, "dm-") && strings.HasPrefix(a.Get("DM_UUID"), "mpath-") {
			canonical = "/dev/mapper/" + a.Get("DM_NAME")
		}
		disks = append(disks, canonical)
	}
	if len(errs) > 0 {
		log.Warnf("udevprobe: %d device(s) failed attribute query during enumeration", len(errs))
		return disks, fmt.Errorf("udevprobe: enumeration had %d probe failure(s): %w", len(errs), errs[0])
	}
	sort.Strings(disks)
	return disks, nil
}
