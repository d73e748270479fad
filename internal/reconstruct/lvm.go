package reconstruct

import (
	"fmt"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// LVMAdmin is the Stage 4 capability, grounded on planb's lvm.py
// (RecoveryLVM.lvm_check / matching_lvm, restore_pv_metadata,
// restore_vg_metadata, activate_vg, deactivate_vgs).
type LVMAdmin interface {
	DeactivateAll() error
	Activate(vg string) error
	// CurrentReport re-runs pvs/vgs/lvs, mirroring RecoveryLVM's "query a
	// fresh lvm report after re-partitioning".
	CurrentReport() (factmodel.LvmReport, error)
	RestorePvMetadata(pvName, pvUUID, vgName, metadataBackupFile string) error
	RestoreVgMetadata(vgName, metadataBackupFile string) error
	PvDeviceExists(pvName string) bool
}

// ShellLVMAdmin is the production LVMAdmin, wrapping LVM tools via
// shell.Executor.
type ShellLVMAdmin struct {
	Exec      shell.Executor
	Report    func() (factmodel.LvmReport, error)
	PathExist func(path string) bool
}

func (l ShellLVMAdmin) DeactivateAll() error {
	out, err := l.Exec.ExecCmdSilent("vgchange -an", true, "", nil)
	if err == nil {
		return nil
	}
	// planb's deactivate_vgs: "open logical volume" in the command output
	// is logged and tolerated, anything else is fatal.
	if containsSubstring(out, "open logical volume") || errContainsOpenLogicalVolume(err) {
		log.Warnf("reconstruct: vgchange -an reported an open logical volume: %v", err)
		return nil
	}
	return pbrerrors.RunCmdWrap("deactivating volume groups", err)
}

func errContainsOpenLogicalVolume(err error) bool {
	return err != nil && containsSubstring(err.Error(), "open logical volume")
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func (l ShellLVMAdmin) Activate(vg string) error {
	if _, err := l.Exec.ExecCmdSilent("vgchange -ay "+vg, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("activating volume group "+vg, err)
	}
	return nil
}

func (l ShellLVMAdmin) CurrentReport() (factmodel.LvmReport, error) {
	if l.Report == nil {
		return factmodel.LvmReport{}, nil
	}
	return l.Report()
}

func (l ShellLVMAdmin) RestorePvMetadata(pvName, pvUUID, vgName, metadataBackupFile string) error {
	if _, err := l.Exec.ExecCmdSilent("pvremove -ffy "+pvName, true, "", nil); err != nil {
		log.Warnf("reconstruct: pvremove on %s returned in error, re-deactivating vgs: %v", pvName, err)
		_ = l.DeactivateAll()
	}
	cmd := fmt.Sprintf("pvcreate -ff --uuid %s --restorefile %s %s", pvUUID, metadataBackupFile, pvName)
	if _, err := l.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("restoring pv metadata on "+pvName, err)
	}
	return nil
}

func (l ShellLVMAdmin) RestoreVgMetadata(vgName, metadataBackupFile string) error {
	cmd := fmt.Sprintf("vgcfgrestore --force -f %s %s", metadataBackupFile, vgName)
	if _, err := l.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("restoring vg metadata for "+vgName, err)
	}
	return nil
}

func (l ShellLVMAdmin) PvDeviceExists(pvName string) bool {
	if l.PathExist == nil {
		return true
	}
	return l.PathExist(pvName)
}

func vgcfgBackupFile(factsDir, vg string) string {
	return factsDir + "/vgcfg/" + vg
}

func (r *Reconstructor) stage4Lvm(fs *factmodel.FactSet) error {
	if len(fs.Misc.BkVgs) == 0 {
		return nil
	}
	if r.LVM == nil {
		return pbrerrors.General("captured facts reference volume groups but no LVMAdmin is configured")
	}

	current, err := r.LVM.CurrentReport()
	if err != nil {
		return err
	}

	needsRestore := map[string]bool{}
	for _, vg := range fs.Misc.BkVgs {
		if current.HasUnknownPv(vg) {
			needsRestore[vg] = true
		}
	}
	for _, vg := range fs.Misc.BkVgs {
		if needsRestore[vg] {
			continue
		}
		if !matchingLvm(fs.Lvm, current, vg) {
			needsRestore[vg] = true
		}
	}

	if len(needsRestore) > 0 {
		if err := r.LVM.DeactivateAll(); err != nil {
			return err
		}
		for vg := range needsRestore {
			for _, pv := range fs.Lvm.PvsForVg(vg) {
				if !r.LVM.PvDeviceExists(pv.PvName) {
					continue
				}
				if err := r.LVM.RestorePvMetadata(pv.PvName, pv.PvUUID, vg, vgcfgBackupFile(r.FactsDir, vg)); err != nil {
					return err
				}
			}
			if err := r.LVM.RestoreVgMetadata(vg, vgcfgBackupFile(r.FactsDir, vg)); err != nil {
				return err
			}
		}
	}

	for _, vg := range fs.Misc.BkVgs {
		log.Infof("reconstruct: activating volume group %s", vg)
		if err := r.LVM.Activate(vg); err != nil {
			return err
		}
		after, err := r.LVM.CurrentReport()
		if err != nil {
			return err
		}
		if !matchingLvm(fs.Lvm, after, vg) {
			return pbrerrors.General("volume group " + vg + " layout still does not match the backup after restore")
		}
	}
	return nil
}

// matchingLvm ports planb's RecoveryLVM.matching_lvm: every captured LV of
// vg must find a current LV with the same name and size.
func matchingLvm(captured, current factmodel.LvmReport, vg string) bool {
	total := 0
	match := 0
	for _, lv := range captured.Lvs {
		if lv.VgName != vg {
			continue
		}
		total++
		found := false
		for _, lv2 := range current.Lvs {
			if lv2.LvName == lv.LvName && lv2.LvSize == lv.LvSize {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		match++
	}
	return match == total
}
