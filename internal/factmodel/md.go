package factmodel

import "sort"

// MdArray describes a Linux software-RAID composite device, keyed by
// stable name (md_devname from udev, else kernel device name). Invariant:
// Members is kept sorted ascending by kernel name (spec §3).
type MdArray struct {
	Name           string   `json:"-"`
	Members        []string `json:"devs"`
	Level          string   `json:"md_level"`
	MetadataVersion string  `json:"md_metadata"`
	UUID           string   `json:"md_uuid"`
}

// SortMembers restores the member-list invariant after mutation (e.g. by
// the Fact Rewriter).
func (m *MdArray) SortMembers() {
	sort.Strings(m.Members)
}
