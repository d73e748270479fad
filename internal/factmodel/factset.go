package factmodel

import (
	"encoding/json"
	"fmt"
)

// Disks is the disks.json document: a map from canonical disk path to Disk.
type Disks map[string]*Disk

// MarshalJSON delegates to the default map marshaling. Disk.MarshalJSON
// does not write Path; the map key carries it.
func (d Disks) MarshalJSON() ([]byte, error) {
	type alias map[string]*Disk
	return json.Marshal(alias(d))
}

// UnmarshalJSON populates Path on each parsed Disk from its map key.
func (d *Disks) UnmarshalJSON(b []byte) error {
	raw := map[string]*Disk{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for path, disk := range raw {
		disk.Path = path
	}
	*d = raw
	return nil
}

// FactSet is the complete serializable bundle described in spec §3: the
// storage topology (disks, LVM report, mounts) plus the Misc scalar
// record. It is probed in full at backup start, persisted as part of the
// rescue payload, and reloaded immutably at restore start.
type FactSet struct {
	Disks Disks     `json:"-"`
	Lvm   LvmReport `json:"-"`
	Mnts  Mounts    `json:"-"`
	Misc  Misc      `json:"-"`
}

// NewFactSet returns an empty, ready-to-populate FactSet.
func NewFactSet() *FactSet {
	return &FactSet{
		Disks: Disks{},
		Mnts:  Mounts{},
	}
}

// Clone returns a deep copy of fs, used so the Fact Rewriter can produce a
// new, internally consistent version without mutating the caller's copy
// (spec §3 Lifecycle).
func (fs *FactSet) Clone() (*FactSet, error) {
	b, err := json.Marshal(fs)
	if err != nil {
		return nil, fmt.Errorf("factmodel: clone marshal: %w", err)
	}
	out := NewFactSet()
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("factmodel: clone unmarshal: %w", err)
	}
	return out, nil
}

// factSetWire is used only to let FactSet round-trip through a single
// json.Marshal/Unmarshal call in Clone; the four documents are otherwise
// always persisted/loaded as separate files (see internal/factcollect).
type factSetWire struct {
	Disks Disks     `json:"disks"`
	Lvm   LvmReport `json:"lvm"`
	Mnts  Mounts    `json:"mnts"`
	Misc  Misc      `json:"misc"`
}

func (fs FactSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(factSetWire{Disks: fs.Disks, Lvm: fs.Lvm, Mnts: fs.Mnts, Misc: fs.Misc})
}

func (fs *FactSet) UnmarshalJSON(b []byte) error {
	var w factSetWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	fs.Disks, fs.Lvm, fs.Mnts, fs.Misc = w.Disks, w.Lvm, w.Mnts, w.Misc
	if fs.Disks == nil {
		fs.Disks = Disks{}
	}
	if fs.Mnts == nil {
		fs.Mnts = Mounts{}
	}
	return nil
}
