package factmodel

// LuksBackingKind distinguishes whether a LUKS container sits on a raw
// partition or an LVM logical volume.
type LuksBackingKind string

const (
	LuksOnPart LuksBackingKind = "part"
	LuksOnLvm  LuksBackingKind = "lvm"
)

// LuksContainer describes one LUKS-encrypted block device, keyed by its
// backing path in a FactSet. Each container has a corresponding
// header-backup blob stored alongside the facts (see internal/factcollect).
type LuksContainer struct {
	Path        string          `json:"-"`
	UUID        string          `json:"uuid"`
	Version     string          `json:"version"`
	BackingKind LuksBackingKind `json:"type"`
	// BackupBasename is the basename the header backup sidecar was
	// written under at collection time (spec §6:
	// "luks/<basename>.backup"). The Fact Rewriter (C5) never updates
	// this field when it re-keys a container to a live device's name, so
	// restore always finds the sidecar under its original name.
	BackupBasename string `json:"backup_basename,omitempty"`
}
