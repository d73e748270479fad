package reconstruct

import (
	"fmt"
	"path/filepath"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// MDAdmin is the Stage 2 capability, grounded on planb's md.py (md_check,
// md_create, md_re_add).
type MDAdmin interface {
	AssembleScan() error
	ListPresentArrays() (map[string]factmodel.MdArray, error)
	ReAddMember(arrayName, dev string) error
	StopAll() error
	ZeroSuperblock(dev string) error
	Create(arrayName, level, metadataVersion, uuid string, members []string) error
}

// ShellMDAdmin is the production MDAdmin, wrapping mdadm via shell.Executor.
type ShellMDAdmin struct {
	Exec shell.Executor
	// Info returns the MD arrays currently assembled on the host,
	// sourced from the same collector C2 uses (internal/factcollect).
	Info func() (map[string]factmodel.MdArray, error)
}

func (m ShellMDAdmin) AssembleScan() error {
	_, err := m.Exec.ExecCmdSilent("mdadm -v --assemble --scan", true, "", nil)
	if err != nil {
		// mdadm --assemble --scan exits 2 when nothing was found to
		// assemble; that is not a failure (planb md.py:md_check).
		return nil
	}
	return nil
}

func (m ShellMDAdmin) ListPresentArrays() (map[string]factmodel.MdArray, error) {
	if m.Info == nil {
		return map[string]factmodel.MdArray{}, nil
	}
	return m.Info()
}

func (m ShellMDAdmin) ReAddMember(arrayName, dev string) error {
	cmd := fmt.Sprintf("mdadm -v --manage /dev/md/%s --re-add /dev/%s", arrayName, dev)
	if _, err := m.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		addCmd := fmt.Sprintf("mdadm -v --manage /dev/md/%s --add /dev/%s", arrayName, dev)
		if _, err2 := m.Exec.ExecCmdSilent(addCmd, true, "", nil); err2 != nil {
			return pbrerrors.RunCmdWrap("adding "+dev+" to array "+arrayName, err2)
		}
	}
	return nil
}

func (m ShellMDAdmin) StopAll() error {
	matches, _ := filepath.Glob("/dev/md*")
	if len(matches) == 0 {
		return nil
	}
	cmd := "mdadm -v --stop"
	for _, dev := range matches {
		cmd += " " + dev
	}
	if _, err := m.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("stopping existing md arrays", err)
	}
	return nil
}

func (m ShellMDAdmin) ZeroSuperblock(dev string) error {
	cmd := "mdadm -v --zero-superblock --force /dev/" + dev
	if _, err := m.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("zeroing superblock on "+dev, err)
	}
	return nil
}

func (m ShellMDAdmin) Create(arrayName, level, metadataVersion, uuid string, members []string) error {
	cmd := fmt.Sprintf("mdadm -v --create -R /dev/md/%s --metadata=%s --level=%s --raid-devices=%d --uuid=%s --force",
		arrayName, metadataVersion, level, len(members), uuid)
	for _, dev := range members {
		cmd += " /dev/" + dev
	}
	if _, err := m.Exec.ExecCmdWithStream(cmd, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("creating md array "+arrayName, err)
	}
	return nil
}

func (r *Reconstructor) stage2MdArrays(fs *factmodel.FactSet) error {
	if len(fs.Misc.MdInfo) == 0 {
		return nil
	}
	if r.MD == nil {
		return pbrerrors.General("captured facts reference md arrays but no MDAdmin is configured")
	}

	if err := r.MD.AssembleScan(); err != nil {
		return err
	}

	present, err := r.MD.ListPresentArrays()
	if err != nil {
		return err
	}

	for name, captured := range fs.Misc.MdInfo {
		live, ok := present[name]
		if ok && sameMembers(captured.Members, live.Members) {
			continue
		}
		if ok {
			missing := membersMissingFrom(captured.Members, live.Members)
			for _, dev := range missing {
				log.Infof("reconstruct: re-adding %s to array %s", dev, name)
				if err := r.MD.ReAddMember(name, dev); err != nil {
					return err
				}
			}
			continue
		}

		log.Infof("reconstruct: array %s absent, recreating", name)
		if err := r.MD.StopAll(); err != nil {
			return err
		}
		for _, dev := range captured.Members {
			_ = r.MD.ZeroSuperblock(dev)
		}
		if err := r.MD.Create(name, raidLevelDigits(captured.Level), captured.MetadataVersion, captured.UUID, captured.Members); err != nil {
			return err
		}
	}
	return nil
}

func sameMembers(a, b []string) bool {
	return len(membersMissingFrom(a, b)) == 0 && len(b) == len(a)
}

// raidLevelDigits extracts the numeric raid level from a recorded
// md_level string ("raid1" -> "1"), matching planb's md.py:md_check regex
// extraction ahead of md_create.
func raidLevelDigits(level string) string {
	start := -1
	end := -1
	for i := 0; i < len(level); i++ {
		if level[i] >= '0' && level[i] <= '9' {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return level
	}
	return level[start:end]
}

func membersMissingFrom(captured, live []string) []string {
	liveSet := map[string]bool{}
	for _, d := range live {
		liveSet[d] = true
	}
	var missing []string
	for _, d := range captured {
		if !liveSet[d] {
			missing = append(missing, d)
		}
	}
	return missing
}
