package reconstruct

import (
	"fmt"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// LUKSAdmin is the Stage 3/5 capability, grounded on planb's luks.py
// (luks_check): open an already-present container by UUID, or restore its
// header from the sidecar backup and then open it.
type LUKSAdmin interface {
	// FindOpenByUUID reports whether a device with uuid is already
	// present on the host and, if so, opens it.
	FindOpenByUUID(uuid string) (found bool, err error)
	RestoreHeader(devicePath, backupFile string) error
	Open(devicePath, uuid string) error
}

// ShellLUKSAdmin is the production LUKSAdmin, wrapping cryptsetup via
// shell.Executor.
type ShellLUKSAdmin struct {
	Exec shell.Executor
	// PresentUUIDs lists ID_FS_UUID values of crypto_LUKS block devices
	// currently visible on the host (sourced from udevprobe, mirroring
	// planb's udev_ctx.list_devices scan in luks_check).
	PresentUUIDs func() (map[string]string, error)
}

func (l ShellLUKSAdmin) FindOpenByUUID(uuid string) (bool, error) {
	if l.PresentUUIDs == nil {
		return false, nil
	}
	present, err := l.PresentUUIDs()
	if err != nil {
		return false, pbrerrors.RunCmdWrap("scanning for present luks device with uuid "+uuid, err)
	}
	dev, ok := present[uuid]
	if !ok {
		return false, nil
	}
	if err := l.Open(dev, uuid); err != nil {
		return false, err
	}
	return true, nil
}

func (l ShellLUKSAdmin) RestoreHeader(devicePath, backupFile string) error {
	cmd := fmt.Sprintf("cryptsetup -q luksHeaderRestore %s --header-backup-file %s", devicePath, backupFile)
	if _, err := l.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("restoring luks header on "+devicePath, err)
	}
	return nil
}

func (l ShellLUKSAdmin) Open(devicePath, uuid string) error {
	cmd := fmt.Sprintf("cryptsetup luksOpen %s luks-%s", devicePath, uuid)
	if _, err := l.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("opening luks device "+devicePath, err)
	}
	return nil
}

// luksBackupFile is the sidecar header path written by the Fact Collector
// (spec §6: "luks/<basename>.backup"), keyed off the container's
// collection-time basename rather than its current (possibly rewritten by
// C5) device path, since the sidecar file on disk was never renamed.
func luksBackupFile(factsDir, backupBasename string) string {
	return factsDir + "/luks/" + backupBasename + ".backup"
}

func (r *Reconstructor) runLuksStage(fs *factmodel.FactSet, kind factmodel.LuksBackingKind, factsDir string) error {
	if len(fs.Misc.Luks) == 0 {
		return nil
	}
	if r.LUKS == nil {
		return pbrerrors.General("captured facts reference luks containers but no LUKSAdmin is configured")
	}

	for devicePath, container := range fs.Misc.Luks {
		if container.BackingKind != kind {
			continue
		}
		found, err := r.LUKS.FindOpenByUUID(container.UUID)
		if err != nil {
			return err
		}
		if found {
			log.Infof("reconstruct: luks device with uuid %s already present, opened", container.UUID)
			continue
		}
		if err := r.LUKS.RestoreHeader(devicePath, luksBackupFile(factsDir, container.BackupBasename)); err != nil {
			return err
		}
		if err := r.LUKS.Open(devicePath, container.UUID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconstructor) stage3LuksOnPartitions(fs *factmodel.FactSet) error {
	return r.runLuksStage(fs, factmodel.LuksOnPart, r.FactsDir)
}

func (r *Reconstructor) stage5LuksOnLvs(fs *factmodel.FactSet) error {
	return r.runLuksStage(fs, factmodel.LuksOnLvm, r.FactsDir)
}
