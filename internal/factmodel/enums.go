package factmodel

import "fmt"

// DeviceKind is the tagged variant classifying a block device, derived from
// udev attributes by Classify (see internal/udevprobe).
type DeviceKind string

const (
	KindDisk        DeviceKind = "disk"
	KindPart        DeviceKind = "part"
	KindPartOnMpath DeviceKind = "part-mpath"
	KindMpath       DeviceKind = "mpath"
	KindMdMember    DeviceKind = "md-member"
	KindMdArray     DeviceKind = "raid"
	KindPartRaid    DeviceKind = "part-raid"
	KindLvm         DeviceKind = "lvm"
	KindCrypt       DeviceKind = "crypt"
	KindLoop        DeviceKind = "loop"
)

func (k DeviceKind) valid() bool {
	switch k {
	case KindDisk, KindPart, KindPartOnMpath, KindMpath, KindMdMember, KindMdArray, KindPartRaid, KindLvm, KindCrypt, KindLoop:
		return true
	}
	return false
}

// UnmarshalJSON rejects any DeviceKind string not in the fixed variant set,
// per spec's "parsers at the JSON boundary... reject unknown values".
func (k *DeviceKind) UnmarshalJSON(b []byte) error {
	s, err := unquoteJSONString(b)
	if err != nil {
		return err
	}
	dk := DeviceKind(s)
	if !dk.valid() {
		return fmt.Errorf("factmodel: unknown DeviceKind %q", s)
	}
	*k = dk
	return nil
}

// MountKind reuses the DeviceKind variant set: a mount's backing device is
// classified the same way any other block device is.
type MountKind = DeviceKind

// PartitionTableType is the disk label type.
type PartitionTableType string

const (
	TableMsdos PartitionTableType = "msdos"
	TableGpt   PartitionTableType = "gpt"
	TableLoop  PartitionTableType = "loop"
	TableNone  PartitionTableType = "none"
)

func (t PartitionTableType) valid() bool {
	switch t {
	case TableMsdos, TableGpt, TableLoop, TableNone:
		return true
	}
	return false
}

func (t *PartitionTableType) UnmarshalJSON(b []byte) error {
	s, err := unquoteJSONString(b)
	if err != nil {
		return err
	}
	pt := PartitionTableType(s)
	if !pt.valid() {
		return fmt.Errorf("factmodel: unknown PartitionTableType %q", s)
	}
	*t = pt
	return nil
}

// PartitionType is the parted-style partition type (msdos primary/logical/extended).
type PartitionType string

const (
	PartNormal   PartitionType = "normal"
	PartLogical  PartitionType = "logical"
	PartExtended PartitionType = "extended"
)

func (t PartitionType) valid() bool {
	switch t {
	case PartNormal, PartLogical, PartExtended:
		return true
	}
	return false
}

func (t *PartitionType) UnmarshalJSON(b []byte) error {
	s, err := unquoteJSONString(b)
	if err != nil {
		return err
	}
	pt := PartitionType(s)
	if !pt.valid() {
		return fmt.Errorf("factmodel: unknown PartitionType %q", s)
	}
	*t = pt
	return nil
}

// PartitionFlag is one flag in a partition's flag_set.
type PartitionFlag string

const (
	FlagBoot      PartitionFlag = "boot"
	FlagLvm       PartitionFlag = "lvm"
	FlagSwap      PartitionFlag = "swap"
	FlagRaid      PartitionFlag = "raid"
	FlagBiosGrub  PartitionFlag = "bios_grub"
	FlagEsp       PartitionFlag = "esp"
	FlagPrep      PartitionFlag = "prep"
)

// FilesystemType is the udev ID_FS_TYPE string. It is intentionally an open
// string type (arbitrary filesystems can appear in a captured FactSet) —
// only FormatKind restricts to the tool-supported subset used by the
// reconstructor's formatter.
type FilesystemType string

const (
	FsExt2  FilesystemType = "ext2"
	FsExt3  FilesystemType = "ext3"
	FsExt4  FilesystemType = "ext4"
	FsXfs   FilesystemType = "xfs"
	FsVfat  FilesystemType = "vfat"
	FsSwap  FilesystemType = "swap"
	FsLuks  FilesystemType = "crypto_LUKS"
	FsLvm   FilesystemType = "LVM2_member"
	FsRaid  FilesystemType = "linux_raid_member"
)

// FormatKind is the mkfs dispatch key for Stage 6 filesystem formatting.
type FormatKind string

const (
	FormatExt   FormatKind = "ext"
	FormatXfs   FormatKind = "xfs"
	FormatVfat  FormatKind = "vfat"
	FormatSwap  FormatKind = "swap"
	FormatOther FormatKind = "other"
)

// FormatKindOf maps a FilesystemType to the formatter dispatch key. Callers
// formatting a filesystem must treat FormatOther as fatal (§4.7 Stage 6:
// "Unknown types are fatal").
func FormatKindOf(fs FilesystemType) FormatKind {
	switch fs {
	case FsExt2, FsExt3, FsExt4:
		return FormatExt
	case FsXfs:
		return FormatXfs
	case FsVfat:
		return FormatVfat
	case FsSwap:
		return FormatSwap
	default:
		return FormatOther
	}
}

func unquoteJSONString(b []byte) (string, error) {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return "", fmt.Errorf("factmodel: expected JSON string, got %q", string(b))
	}
	return string(b[1 : len(b)-1]), nil
}
