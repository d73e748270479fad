package factmodel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Partition describes one entry in a Disk's partition map. See spec §3.
type Partition struct {
	Number      int                    `json:"-"`
	Start       uint64                 `json:"start"`
	End         uint64                 `json:"end"`
	Type        PartitionType          `json:"type"`
	Flags       []PartitionFlag        `json:"-"`
	Name        string                 `json:"name,omitempty"`
	FsType      FilesystemType         `json:"fs_type,omitempty"`
	FsUUID      string                 `json:"fs_uuid,omitempty"`
	FsLabel     string                 `json:"fs_label,omitempty"`
}

// partitionJSON is the wire shape: flags serialize as a single
// comma-joined string (matching parted's getFlagsAsString/the persisted
// fact format), not a JSON array.
type partitionJSON struct {
	Flags   string         `json:"flags"`
	Type    PartitionType  `json:"type"`
	Name    string         `json:"name,omitempty"`
	FsType  FilesystemType `json:"fs_type,omitempty"`
	FsUUID  string         `json:"fs_uuid,omitempty"`
	FsLabel string         `json:"fs_label,omitempty"`
	Start   uint64         `json:"start"`
	End     uint64         `json:"end"`
}

func (p Partition) flagsString() string {
	s := ""
	for i, f := range p.Flags {
		if i > 0 {
			s += ","
		}
		s += string(f)
	}
	return s
}

func parseFlags(s string) []PartitionFlag {
	if s == "" {
		return nil
	}
	var out []PartitionFlag
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, PartitionFlag(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func (p Partition) toWire() partitionJSON {
	return partitionJSON{
		Flags:   p.flagsString(),
		Type:    p.Type,
		Name:    p.Name,
		FsType:  p.FsType,
		FsUUID:  p.FsUUID,
		FsLabel: p.FsLabel,
		Start:   p.Start,
		End:     p.End,
	}
}

func (w partitionJSON) fromWire(number int) Partition {
	return Partition{
		Number:  number,
		Start:   w.Start,
		End:     w.End,
		Type:    w.Type,
		Flags:   parseFlags(w.Flags),
		Name:    w.Name,
		FsType:  w.FsType,
		FsUUID:  w.FsUUID,
		FsLabel: w.FsLabel,
	}
}

// HasFlag reports whether the partition carries the given flag.
func (p Partition) HasFlag(f PartitionFlag) bool {
	for _, x := range p.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Disk is a top-level repartitionable block device, keyed by canonical
// path in a FactSet. See spec §3.
type Disk struct {
	Path        string             `json:"-"`
	Serial      string             `json:"id_serial,omitempty"`
	WWN         string             `json:"id_wwn,omitempty"`
	IDPath      string             `json:"id_path,omitempty"`
	Size        uint64             `json:"size"`
	TableType   PartitionTableType `json:"type,omitempty"`
	// FsType/FsUUID apply only to disks with no recognizable partition
	// table (leaf disks carrying a single filesystem record, spec §9).
	FsType FilesystemType `json:"fs_type,omitempty"`
	FsUUID string         `json:"fs_uuid,omitempty"`

	Partitions map[int]*Partition `json:"-"`
}

// HasPartitionTable reports the invariant from spec §3: a disk with a
// non-empty partition map has a known table type.
func (d *Disk) HasPartitionTable() bool {
	return len(d.Partitions) > 0 && d.TableType != ""
}

// SortedPartitionNumbers returns partition numbers in ascending order.
func (d *Disk) SortedPartitionNumbers() []int {
	nums := make([]int, 0, len(d.Partitions))
	for n := range d.Partitions {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// MarshalJSON flattens the disk's scalar attributes and its partition map
// into a single JSON object keyed by attribute name or numeric-string
// partition number, matching the persisted disks.json shape in spec §6.
func (d Disk) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}

	put := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}

	if d.Serial != "" {
		if err := put("id_serial", d.Serial); err != nil {
			return nil, err
		}
	}
	if d.WWN != "" {
		if err := put("id_wwn", d.WWN); err != nil {
			return nil, err
		}
	}
	if d.IDPath != "" {
		if err := put("id_path", d.IDPath); err != nil {
			return nil, err
		}
	}
	if err := put("size", d.Size); err != nil {
		return nil, err
	}
	if d.TableType != "" {
		if err := put("type", d.TableType); err != nil {
			return nil, err
		}
	}
	if d.FsType != "" {
		if err := put("fs_type", d.FsType); err != nil {
			return nil, err
		}
	}
	if d.FsUUID != "" {
		if err := put("fs_uuid", d.FsUUID); err != nil {
			return nil, err
		}
	}
	for num, p := range d.Partitions {
		if err := put(strconv.Itoa(num), p.toWire()); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON: numeric-string keys become partition
// entries, everything else populates the scalar disk fields.
func (d *Disk) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	for key, v := range raw {
		if num, err := strconv.Atoi(key); err == nil {
			var w partitionJSON
			if err := json.Unmarshal(v, &w); err != nil {
				return fmt.Errorf("factmodel: partition %d: %w", num, err)
			}
			part := w.fromWire(num)
			if d.Partitions == nil {
				d.Partitions = map[int]*Partition{}
			}
			d.Partitions[num] = &part
			continue
		}

		switch key {
		case "id_serial":
			if err := json.Unmarshal(v, &d.Serial); err != nil {
				return err
			}
		case "id_wwn":
			if err := json.Unmarshal(v, &d.WWN); err != nil {
				return err
			}
		case "id_path":
			if err := json.Unmarshal(v, &d.IDPath); err != nil {
				return err
			}
		case "size":
			if err := json.Unmarshal(v, &d.Size); err != nil {
				return err
			}
		case "type":
			if err := json.Unmarshal(v, &d.TableType); err != nil {
				return err
			}
		case "fs_type":
			if err := json.Unmarshal(v, &d.FsType); err != nil {
				return err
			}
		case "fs_uuid":
			if err := json.Unmarshal(v, &d.FsUUID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("factmodel: unknown disk key %q", key)
		}
	}

	return nil
}
