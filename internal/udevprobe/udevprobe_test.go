package udevprobe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

type fakeExecutor struct {
	outputs map[string]string
}

func (f *fakeExecutor) ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	return f.ExecCmdSilent(cmdStr, sudo, chrootPath, envVal)
}

func (f *fakeExecutor) ExecCmdSilent(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	return f.outputs[cmdStr], nil
}

func (f *fakeExecutor) ExecCmdWithStream(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	return f.ExecCmdSilent(cmdStr, sudo, chrootPath, envVal)
}

func (f *fakeExecutor) ExecCmdWithInput(inputStr, cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	return f.ExecCmdSilent(cmdStr, sudo, chrootPath, envVal)
}

func TestClassifyDisk(t *testing.T) {
	a := Attrs{Props: map[string]string{"DEVTYPE": "disk"}}
	require.Equal(t, factmodel.KindDisk, Classify(a))
}

func TestClassifyPartition(t *testing.T) {
	a := Attrs{Props: map[string]string{"DEVTYPE": "partition"}}
	require.Equal(t, factmodel.KindPart, Classify(a))
}

func TestClassifyLvm(t *testing.T) {
	a := Attrs{Props: map[string]string{"DM_UUID": "LVM-abcdef"}}
	require.Equal(t, factmodel.KindLvm, Classify(a))
}

func TestClassifyMpath(t *testing.T) {
	a := Attrs{Props: map[string]string{"DM_UUID": "mpath-36000c29"}}
	require.Equal(t, factmodel.KindMpath, Classify(a))
}

func TestClassifyPartOnMpath(t *testing.T) {
	a := Attrs{Props: map[string]string{"DM_UUID": "part1-mpath-36000c29"}}
	require.Equal(t, factmodel.KindPartOnMpath, Classify(a))
}

func TestClassifyCrypt(t *testing.T) {
	a := Attrs{Props: map[string]string{"DM_UUID": "CRYPT-LUKS2-abc-luks-abc"}}
	require.Equal(t, factmodel.KindCrypt, Classify(a))
}

func TestClassifyMdArray(t *testing.T) {
	a := Attrs{Props: map[string]string{"MD_LEVEL": "raid1"}}
	require.Equal(t, factmodel.KindMdArray, Classify(a))
}

func TestClassifyPartRaid(t *testing.T) {
	a := Attrs{Props: map[string]string{"MD_LEVEL": "raid1", "PARTN": "1"}}
	require.Equal(t, factmodel.KindPartRaid, Classify(a))
}

func TestIsEnumerableDiskRejectsLoop(t *testing.T) {
	a := Attrs{DeviceNode: "/dev/loop0", Props: map[string]string{}}
	require.False(t, IsEnumerableDisk(a))
}

func TestIsEnumerableDiskRejectsUSB(t *testing.T) {
	a := Attrs{DeviceNode: "/dev/sdz", Props: map[string]string{"ID_BUS": "usb"}}
	require.False(t, IsEnumerableDisk(a))
}

func TestIsEnumerableDiskRejectsAssembledArray(t *testing.T) {
	a := Attrs{DeviceNode: "/dev/md0", Props: map[string]string{"MD_NAME": "host:0"}}
	require.False(t, IsEnumerableDisk(a))
}

func TestIsEnumerableDiskAcceptsPlainDisk(t *testing.T) {
	a := Attrs{DeviceNode: "/dev/sda", KernelName: "sda", Props: map[string]string{}}
	require.True(t, IsEnumerableDisk(a))
}

func TestFromPathParsesProperties(t *testing.T) {
	fe := &fakeExecutor{outputs: map[string]string{
		"udevadm info --query=property --name=/dev/sda": "DEVNAME=/dev/sda\nDEVTYPE=disk\nID_SERIAL_SHORT=S1\n",
	}}
	p := NewProberWithExecutor(fe)
	a, err := p.FromPath("/dev/sda")
	require.NoError(t, err)
	require.Equal(t, "/dev/sda", a.DeviceNode)
	require.Equal(t, "sda", a.KernelName)
	require.Equal(t, "disk", a.Get("DEVTYPE"))
	require.Equal(t, "S1", a.Get("ID_SERIAL_SHORT"))
}
