package factmodel

import "strings"

// Pv is one physical-volume row from the LVM report, enriched per spec §3:
// it references a backing device which may be a raw disk, a partition, a
// multipath target, or an MD array.
type Pv struct {
	PvName string `json:"pv_name"`
	PvUUID string `json:"pv_uuid"`
	VgName string `json:"vg_name"`
	PvSize string `json:"pv_size"`
	// DType is the classified device type of the PV's backing node
	// (disk, mpath, part, part-mpath, part-raid, raid).
	DType string `json:"d_type"`
	// MdDev is true when the backing node is an MD array (pv_name is
	// rewritten to the stable /dev/md/<name> form in that case).
	MdDev bool `json:"md_dev"`
	// Parent is the partition's parent disk, or the multipath target,
	// when the backing node is partition-like. Empty for raw disk PVs.
	Parent string `json:"parent,omitempty"`
}

// Vg is one volume-group row from the LVM report.
type Vg struct {
	Name    string `json:"vg_name"`
	PvCount int    `json:"pv_count"`
	LvCount int    `json:"lv_count"`
}

// Lv is one logical-volume row from the LVM report.
type Lv struct {
	VgName string `json:"vg_name"`
	LvName string `json:"lv_name"`
	LvSize string `json:"lv_size"`
}

// LvmReport is the full pvs/vgs/lvs report, mirroring lvm.json's shape.
type LvmReport struct {
	Pvs []Pv `json:"PVS,omitempty"`
	Vgs []Vg `json:"VGS,omitempty"`
	Lvs []Lv `json:"LVS,omitempty"`
}

// VgLvTuples returns the (lv_name, lv_size) pairs for one VG, used by the
// layout-match check in Stage 4 (spec §4.7).
func (r LvmReport) VgLvTuples(vg string) map[string]string {
	out := map[string]string{}
	for _, lv := range r.Lvs {
		if lv.VgName == vg {
			out[lv.LvName] = lv.LvSize
		}
	}
	return out
}

// PvsForVg returns the PV rows belonging to vg.
func (r LvmReport) PvsForVg(vg string) []Pv {
	var out []Pv
	for _, pv := range r.Pvs {
		if pv.VgName == vg {
			out = append(out, pv)
		}
	}
	return out
}

// HasUnknownPv reports whether any PV row for vg is a missing
// ("unknown"-named) physical volume, per spec §4.7 Stage 4.
func (r LvmReport) HasUnknownPv(vg string) bool {
	for _, pv := range r.Pvs {
		if pv.VgName == vg && isUnknownPvName(pv.PvName) {
			return true
		}
	}
	return false
}

func isUnknownPvName(name string) bool {
	return strings.Contains(name, "unknown")
}
