// Package reconstruct implements the Reconstructor (C7): the seven-stage
// destructive reconstruction procedure from spec §4.7, grounded on
// planb's md.py, luks.py, lvm.py, fs.py, and recover.py.
//
// Each stage is expressed against a narrow capability interface so tests
// can substitute a fake without shelling out, per spec §9's "dynamic
// command dispatch" note. The production implementations wrap
// internal/utils/shell.Executor, matching the teacher's sole
// external-tool-invocation abstraction.
package reconstruct

import (
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/layoutcompare"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
)

var log = logger.Logger()

// Reconstructor drives stages 1-7 in strict order over a rewritten
// FactSet. Any stage error aborts the whole sequence (spec §4.7: "failure
// at any stage is fatal").
type Reconstructor struct {
	Partitions PartitionEditor
	MD         MDAdmin
	LUKS       LUKSAdmin
	LVM        LVMAdmin
	Format     Formatter
	Mounts     MountManager

	// StagingRoot is the directory the restored filesystem tree is
	// assembled under (spec §4.7 Stage 7).
	StagingRoot string
	// FactsDir is where the LUKS header sidecar backups were written by
	// the Fact Collector (spec §6).
	FactsDir string
}

// Run executes stages 1 through 7 against fs (the rewritten FactSet) and
// live (the current host's disk facts, used by C6 to decide which disks
// need repartitioning).
func (r *Reconstructor) Run(fs *factmodel.FactSet, live map[string]*factmodel.Disk) error {
	if err := r.stage1Partitions(fs, live); err != nil {
		return err
	}
	if err := r.stage2MdArrays(fs); err != nil {
		return err
	}
	if err := r.stage3LuksOnPartitions(fs); err != nil {
		return err
	}
	if err := r.stage4Lvm(fs); err != nil {
		return err
	}
	if err := r.stage5LuksOnLvs(fs); err != nil {
		return err
	}
	if err := r.stage6Filesystems(fs); err != nil {
		return err
	}
	if err := r.stage7MountTree(fs); err != nil {
		return err
	}
	return nil
}

// disksNeedingRepartition applies the Layout Comparator (C6) to every
// captured disk, returning those whose live layout does not already
// satisfy the captured one.
func disksNeedingRepartition(fs *factmodel.FactSet, live map[string]*factmodel.Disk) []string {
	var out []string
	for path, captured := range fs.Disks {
		if layoutcompare.NeedsRepartition(captured, live[path]) {
			out = append(out, path)
		}
	}
	return out
}
