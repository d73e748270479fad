package reconstruct

import (
	"sort"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// MountManager is the Stage 7 capability: assembling the staging root's
// directory tree and mounting each captured filesystem onto it.
type MountManager interface {
	MkdirAll(path string) error
	SetContext(path, context string) error
	Mount(devicePath, mountPoint string) error
}

// ShellMountManager is the production MountManager, wrapping mkdir/mount
// and chcon via shell.Executor.
type ShellMountManager struct {
	Exec shell.Executor
}

func (m ShellMountManager) MkdirAll(path string) error {
	if _, err := m.Exec.ExecCmdSilent("mkdir -p "+path, false, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("creating staging directory "+path, err)
	}
	return nil
}

func (m ShellMountManager) SetContext(path, context string) error {
	if _, err := m.Exec.ExecCmdSilent("chcon "+context+" "+path, true, "", nil); err != nil {
		return pbrerrors.RunCmdWrap("setting selinux context on "+path, err)
	}
	return nil
}

func (m ShellMountManager) Mount(devicePath, mountPoint string) error {
	if _, err := m.Exec.ExecCmdSilent("mount "+devicePath+" "+mountPoint, true, "", nil); err != nil {
		return pbrerrors.MountWrap("mounting "+devicePath+" at "+mountPoint, err)
	}
	return nil
}

// selinuxContexts is the fixed context table for freshly created
// staging-root directories (spec §4.7 Stage 7).
var selinuxContexts = map[string]string{
	"/boot": "system_u:object_r:boot_t:s0",
	"/home": "system_u:object_r:home_root_t:s0",
	"/mnt":  "system_u:object_r:mnt_t:s0",
	"/opt":  "system_u:object_r:usr_t:s0",
	"/tmp":  "system_u:object_r:tmp_t:s0",
	"/usr":  "system_u:object_r:usr_t:s0",
	"/var":  "system_u:object_r:var_t:s0",
}

func (r *Reconstructor) stage7MountTree(fs *factmodel.FactSet) error {
	if r.Mounts == nil {
		return pbrerrors.General("no MountManager configured for stage 7")
	}
	if r.StagingRoot == "" {
		return pbrerrors.General("no staging root configured for stage 7")
	}
	if err := r.Mounts.MkdirAll(r.StagingRoot); err != nil {
		return err
	}

	var points []string
	for mp, m := range fs.Mnts {
		if m.IsSwap() {
			continue
		}
		points = append(points, mp)
	}
	sort.Strings(points)

	for _, mp := range points {
		m := fs.Mnts[mp]
		target := r.StagingRoot + mp
		if err := r.Mounts.MkdirAll(target); err != nil {
			return err
		}
		if ctx, ok := selinuxContexts[mp]; ok {
			if err := r.Mounts.SetContext(target, ctx); err != nil {
				return err
			}
		}

		device := m.Path
		if m.MdDevname != "" {
			device = m.MdDevname
		}
		log.Infof("reconstruct: mounting %s at %s", device, target)
		if err := r.Mounts.Mount(device, target); err != nil {
			return err
		}
	}
	return nil
}

// AutorelabelMarker is the path touched at the staging root when the
// captured Misc recorded SELinux as enabled (spec §4.7: "after archive
// extraction ... an .autorelabel marker is created").
func AutorelabelMarker(stagingRoot string) string {
	return strings.TrimRight(stagingRoot, "/") + "/.autorelabel"
}
