package factcollect

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// allBlockDevices lists every block device node on the host (disks,
// partitions, dm targets, md arrays), the Go equivalent of iterating
// udev_ctx.list_devices(subsystem='block') with no DEVTYPE filter.
func (c *Collector) allBlockDevices() ([]string, error) {
	const cmdStr = "lsblk -l -n -o NAME -p"
	out, err := c.exec.ExecCmdSilent(cmdStr, false, shell.HostPath, nil)
	if err != nil {
		return nil, pbrerrors.RunCmdWrap(cmdStr, err)
	}
	var devs []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			devs = append(devs, line)
		}
	}
	return devs, nil
}

// CollectLuks finds every LUKS-encrypted block device and dumps its header
// to FactsDir/luks/<basename>.backup, matching planb's luks.py:
// get_luks_devs plus the header-backup step spec §4.2 requires ("for each,
// dump the LUKS header to a sidecar file named <basename>.backup").
func (c *Collector) CollectLuks() (map[string]factmodel.LuksContainer, error) {
	devs, err := c.allBlockDevices()
	if err != nil {
		return nil, err
	}

	out := map[string]factmodel.LuksContainer{}
	for _, path := range devs {
		a, err := c.prober.FromPath(path)
		if err != nil {
			return nil, fmt.Errorf("factcollect: luks probe %s: %w", path, err)
		}
		if a.Get("ID_FS_TYPE") != string(factmodel.FsLuks) {
			continue
		}

		var key string
		kind := factmodel.LuksOnPart
		if dmName := a.Get("DM_NAME"); dmName != "" {
			key = "/dev/mapper/" + dmName
			kind = factmodel.LuksOnLvm
		} else {
			key = a.DeviceNode
		}

		container := factmodel.LuksContainer{
			Path:           key,
			UUID:           a.Get("ID_FS_UUID"),
			Version:        a.Get("ID_FS_VERSION"),
			BackingKind:    kind,
			BackupBasename: filepath.Base(path),
		}
		out[key] = container

		if err := c.backupLuksHeader(path); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Collector) backupLuksHeader(devicePath string) error {
	dir := filepath.Join(c.FactsDir, "luks")
	cmdStr := fmt.Sprintf("mkdir -p %s && cryptsetup luksHeaderBackup %s --header-backup-file %s",
		dir, devicePath, filepath.Join(dir, filepath.Base(devicePath)+".backup"))
	if _, err := c.exec.ExecCmdSilent(cmdStr, true, shell.HostPath, nil); err != nil {
		return pbrerrors.RunCmdWrap("luksHeaderBackup "+devicePath, err)
	}
	return nil
}
