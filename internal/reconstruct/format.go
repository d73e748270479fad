package reconstruct

import (
	"fmt"
	"sort"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// Formatter is the Stage 6 capability, grounded on planb's fs.py:fmt_fs.
type Formatter interface {
	DeviceExists(devicePath string) bool
	Format(devicePath string, fsType factmodel.FilesystemType, uuid, label string) error
}

// ShellFormatter is the production Formatter, wrapping the mkfs family via
// shell.Executor.
type ShellFormatter struct {
	Exec   shell.Executor
	Exists func(devicePath string) bool
}

func (f ShellFormatter) DeviceExists(devicePath string) bool {
	if f.Exists == nil {
		return true
	}
	return f.Exists(devicePath)
}

// Format builds the type-appropriate mkfs invocation. Unsupported types are
// fatal (spec §4.7 Stage 6, planb's fmt_fs else branch).
func (f ShellFormatter) Format(devicePath string, fsType factmodel.FilesystemType, uuid, label string) error {
	cmd, err := mkfsCommand(devicePath, fsType, uuid, label)
	if err != nil {
		return err
	}
	if _, err := f.Exec.ExecCmdWithStream(cmd, true, "", nil); err != nil {
		if strings.Contains(err.Error(), "is mounted") {
			return pbrerrors.RunCmdWrap("formatting "+devicePath+": device is mounted, unmount and retry", err)
		}
		return pbrerrors.RunCmdWrap("formatting "+devicePath+" as "+string(fsType), err)
	}
	return nil
}

func mkfsCommand(devicePath string, fsType factmodel.FilesystemType, uuid, label string) (string, error) {
	switch factmodel.FormatKindOf(fsType) {
	case factmodel.FormatExt:
		cmd := fmt.Sprintf("mkfs.%s -U %s", fsType, uuid)
		if label != "" {
			cmd += " -L " + label
		}
		return cmd + " " + devicePath, nil
	case factmodel.FormatXfs:
		cmd := "mkfs.xfs -f"
		if label != "" {
			cmd += " -L " + label
		}
		return cmd + fmt.Sprintf(" -m uuid=%s %s", uuid, devicePath), nil
	case factmodel.FormatVfat:
		stripped := strings.ReplaceAll(uuid, "-", "")
		cmd := "mkfs.fat -F 16 -i " + stripped
		if label != "" {
			cmd += " -n " + label
		}
		return cmd + " " + devicePath, nil
	case factmodel.FormatSwap:
		cmd := "mkswap -U " + uuid
		if label != "" {
			cmd += " -L " + label
		}
		return cmd + " " + devicePath, nil
	default:
		return "", pbrerrors.General("unsupported filesystem type " + string(fsType) + " for " + devicePath)
	}
}

func (r *Reconstructor) stage6Filesystems(fs *factmodel.FactSet) error {
	if r.Format == nil {
		return pbrerrors.General("no Formatter configured for stage 6")
	}

	var keys []string
	for k := range fs.Mnts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := fs.Mnts[k]
		if m.FsType == "" {
			continue
		}
		if !r.Format.DeviceExists(m.Path) {
			return pbrerrors.Exists("cannot format " + m.Path + ": not a valid device")
		}
		log.Infof("reconstruct: formatting %s as %s", m.Path, m.FsType)
		if err := r.Format.Format(m.Path, m.FsType, m.FsUUID, m.FsLabel); err != nil {
			return err
		}
	}
	return nil
}
