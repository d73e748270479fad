package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

type fakePartitionEditor struct {
	written []string
	settled bool
}

func (f *fakePartitionEditor) WriteTable(diskPath string, d *factmodel.Disk) error {
	f.written = append(f.written, diskPath)
	return nil
}

func (f *fakePartitionEditor) SettleUdev() error {
	f.settled = true
	return nil
}

func TestStage1RepartitionsOnlyMismatchedDisks(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Disks["/dev/sda"] = &factmodel.Disk{Path: "/dev/sda", TableType: factmodel.TableMsdos, Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048, End: 204799},
	}}
	fs.Disks["/dev/sdb"] = &factmodel.Disk{Path: "/dev/sdb", TableType: factmodel.TableMsdos, Partitions: map[int]*factmodel.Partition{
		1: {Number: 1, Start: 2048, End: 204799},
	}}

	live := map[string]*factmodel.Disk{
		"/dev/sda": {Partitions: map[int]*factmodel.Partition{1: {Number: 1, Start: 2048}}},
		"/dev/sdb": {Partitions: map[int]*factmodel.Partition{1: {Number: 1, Start: 99999}}},
	}

	editor := &fakePartitionEditor{}
	r := &Reconstructor{Partitions: editor}

	require.NoError(t, r.stage1Partitions(fs, live))
	require.Equal(t, []string{"/dev/sdb"}, editor.written)
	require.True(t, editor.settled)
}

type fakeMDAdmin struct {
	present      map[string]factmodel.MdArray
	reAdded      []string
	stopped      bool
	zeroed       []string
	created      []string
	assembleScan bool
}

func (f *fakeMDAdmin) AssembleScan() error { f.assembleScan = true; return nil }
func (f *fakeMDAdmin) ListPresentArrays() (map[string]factmodel.MdArray, error) {
	return f.present, nil
}
func (f *fakeMDAdmin) ReAddMember(arrayName, dev string) error {
	f.reAdded = append(f.reAdded, arrayName+":"+dev)
	return nil
}
func (f *fakeMDAdmin) StopAll() error { f.stopped = true; return nil }
func (f *fakeMDAdmin) ZeroSuperblock(dev string) error {
	f.zeroed = append(f.zeroed, dev)
	return nil
}
func (f *fakeMDAdmin) Create(name, level, meta, uuid string, members []string) error {
	f.created = append(f.created, name)
	return nil
}

func TestStage2ReAddsMissingMember(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Misc.MdInfo = map[string]factmodel.MdArray{
		"md0": {Name: "md0", Members: []string{"sda1", "sdb1"}, Level: "raid1", MetadataVersion: "1.2", UUID: "u"},
	}
	md := &fakeMDAdmin{present: map[string]factmodel.MdArray{
		"md0": {Name: "md0", Members: []string{"sda1"}},
	}}
	r := &Reconstructor{MD: md}

	require.NoError(t, r.stage2MdArrays(fs))
	require.True(t, md.assembleScan)
	require.Equal(t, []string{"md0:sdb1"}, md.reAdded)
	require.Empty(t, md.created)
}

func TestStage2RecreatesAbsentArray(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Misc.MdInfo = map[string]factmodel.MdArray{
		"md0": {Name: "md0", Members: []string{"sda1", "sdb1"}, Level: "raid1", MetadataVersion: "1.2", UUID: "u"},
	}
	md := &fakeMDAdmin{present: map[string]factmodel.MdArray{}}
	r := &Reconstructor{MD: md}

	require.NoError(t, r.stage2MdArrays(fs))
	require.True(t, md.stopped)
	require.ElementsMatch(t, []string{"sda1", "sdb1"}, md.zeroed)
	require.Equal(t, []string{"md0"}, md.created)
}

func TestRaidLevelDigits(t *testing.T) {
	require.Equal(t, "1", raidLevelDigits("raid1"))
	require.Equal(t, "10", raidLevelDigits("raid10"))
	require.Equal(t, "linear", raidLevelDigits("linear"))
}

type fakeLUKSAdmin struct {
	present      map[string]string
	restored     []string
	restoredFrom []string
	opened       []string
}

func (f *fakeLUKSAdmin) FindOpenByUUID(uuid string) (bool, error) {
	dev, ok := f.present[uuid]
	if !ok {
		return false, nil
	}
	f.opened = append(f.opened, dev)
	return true, nil
}
func (f *fakeLUKSAdmin) RestoreHeader(devicePath, backupFile string) error {
	f.restored = append(f.restored, devicePath)
	f.restoredFrom = append(f.restoredFrom, backupFile)
	return nil
}
func (f *fakeLUKSAdmin) Open(devicePath, uuid string) error {
	f.opened = append(f.opened, devicePath)
	return nil
}

func TestStage3OpensPresentLuksWithoutRestoring(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Misc.Luks = map[string]factmodel.LuksContainer{
		"/dev/sda3": {Path: "/dev/sda3", UUID: "u1", BackingKind: factmodel.LuksOnPart},
	}
	luks := &fakeLUKSAdmin{present: map[string]string{"u1": "/dev/sda3"}}
	r := &Reconstructor{LUKS: luks, FactsDir: "/facts"}

	require.NoError(t, r.stage3LuksOnPartitions(fs))
	require.Empty(t, luks.restored)
}

func TestStage3RestoresAbsentLuks(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Misc.Luks = map[string]factmodel.LuksContainer{
		"/dev/sda3": {Path: "/dev/sda3", UUID: "u1", BackingKind: factmodel.LuksOnPart},
	}
	luks := &fakeLUKSAdmin{present: map[string]string{}}
	r := &Reconstructor{LUKS: luks, FactsDir: "/facts"}

	require.NoError(t, r.stage3LuksOnPartitions(fs))
	require.Equal(t, []string{"/dev/sda3"}, luks.restored)
}

func TestStage3RestoresFromPreRenameBackupBasename(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Misc.Luks = map[string]factmodel.LuksContainer{
		"/dev/sdb3": {Path: "/dev/sdb3", UUID: "u1", BackingKind: factmodel.LuksOnPart, BackupBasename: "sda3"},
	}
	luks := &fakeLUKSAdmin{present: map[string]string{}}
	r := &Reconstructor{LUKS: luks, FactsDir: "/facts"}

	require.NoError(t, r.stage3LuksOnPartitions(fs))
	require.Equal(t, []string{"/facts/luks/sda3.backup"}, luks.restoredFrom)
}

func TestMatchingLvmRequiresAllLvsToMatch(t *testing.T) {
	captured := factmodel.LvmReport{Lvs: []factmodel.Lv{
		{VgName: "vg0", LvName: "root", LvSize: "10g"},
		{VgName: "vg0", LvName: "home", LvSize: "20g"},
	}}
	currentMatch := factmodel.LvmReport{Lvs: []factmodel.Lv{
		{VgName: "vg0", LvName: "root", LvSize: "10g"},
		{VgName: "vg0", LvName: "home", LvSize: "20g"},
	}}
	currentMismatch := factmodel.LvmReport{Lvs: []factmodel.Lv{
		{VgName: "vg0", LvName: "root", LvSize: "10g"},
	}}

	require.True(t, matchingLvm(captured, currentMatch, "vg0"))
	require.False(t, matchingLvm(captured, currentMismatch, "vg0"))
}

func TestMkfsCommandDispatch(t *testing.T) {
	cmd, err := mkfsCommand("/dev/sda1", factmodel.FsExt4, "U1", "boot")
	require.NoError(t, err)
	require.Contains(t, cmd, "mkfs.ext4")
	require.Contains(t, cmd, "-U U1")
	require.Contains(t, cmd, "-L boot")

	cmd, err = mkfsCommand("/dev/sda1", factmodel.FsVfat, "AAAA-BBBB", "")
	require.NoError(t, err)
	require.Contains(t, cmd, "mkfs.fat")
	require.Contains(t, cmd, "-i AAAABBBB")
	require.NotContains(t, cmd, "AAAA-BBBB")

	_, err = mkfsCommand("/dev/sda1", factmodel.FilesystemType("zfs"), "U1", "")
	require.Error(t, err)
}

func TestStage7MountsInAscendingPathOrderWithContexts(t *testing.T) {
	fs := factmodel.NewFactSet()
	fs.Mnts["/"] = factmodel.Mount{MountPoint: "/", Path: "/dev/sda2", Kind: factmodel.KindPart}
	fs.Mnts["/boot"] = factmodel.Mount{MountPoint: "/boot", Path: "/dev/sda1", Kind: factmodel.KindPart}
	fs.Mnts["SWAP-0"] = factmodel.Mount{MountPoint: "SWAP-0", Path: "/dev/sda3", Kind: factmodel.KindPart}

	mgr := &fakeMountManager{}
	r := &Reconstructor{Mounts: mgr, StagingRoot: "/mnt/restore"}

	require.NoError(t, r.stage7MountTree(fs))
	require.Equal(t, []string{"/mnt/restore", "/mnt/restore/", "/mnt/restore/boot"}, mgr.mkdirs)
	require.Contains(t, mgr.contexts, "/mnt/restore/boot")
	require.Len(t, mgr.mounted, 2)
	require.Equal(t, [2]string{"/dev/sda2", "/mnt/restore/"}, mgr.mounted[0])
	require.Equal(t, [2]string{"/dev/sda1", "/mnt/restore/boot"}, mgr.mounted[1])
}

type fakeMountManager struct {
	mkdirs   []string
	contexts map[string]string
	mounted  [][2]string
}

func (f *fakeMountManager) MkdirAll(path string) error {
	f.mkdirs = append(f.mkdirs, path)
	return nil
}
func (f *fakeMountManager) SetContext(path, context string) error {
	if f.contexts == nil {
		f.contexts = map[string]string{}
	}
	f.contexts[path] = context
	return nil
}
func (f *fakeMountManager) Mount(devicePath, mountPoint string) error {
	f.mounted = append(f.mounted, [2]string{devicePath, mountPoint})
	return nil
}
