package factmodel

import (
	"encoding/json"
	"strings"
)

// Mount is one entry in the captured mount/swap table, keyed by mount path
// (or synthetic SWAP-<n> for swap devices) in a FactSet. See spec §3.
type Mount struct {
	MountPoint string     `json:"-"`
	Path       string     `json:"path"`
	KernelName string     `json:"kname,omitempty"`
	FsType     FilesystemType `json:"fs_type,omitempty"`
	FsUUID     string     `json:"fs_uuid,omitempty"`
	FsLabel    string     `json:"fs_label,omitempty"`
	Kind       MountKind  `json:"type"`
	Vg         string     `json:"vg,omitempty"`
	Parent     string     `json:"parent,omitempty"`
	MdDevname  string     `json:"md_devname,omitempty"`
}

// IsSwap reports whether this entry is a synthetic SWAP-<n> key.
func (m Mount) IsSwap() bool {
	return strings.HasPrefix(m.MountPoint, "SWAP-")
}

// Mounts is the full captured mount table, keyed by mount path or
// synthetic swap key, mirroring mnts.json's shape.
type Mounts map[string]Mount

// MarshalJSON delegates to the plain map form; MountPoint is reconstructed
// on load from the map key and is not written out as a field.
func (m Mounts) MarshalJSON() ([]byte, error) {
	type alias map[string]Mount
	return json.Marshal(alias(m))
}

// UnmarshalJSON populates MountPoint on each parsed Mount from its map key.
func (m *Mounts) UnmarshalJSON(b []byte) error {
	raw := map[string]Mount{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for point, mnt := range raw {
		mnt.MountPoint = point
		raw[point] = mnt
	}
	*m = raw
	return nil
}
