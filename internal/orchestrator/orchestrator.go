// Package orchestrator implements the Orchestrator (C8): driving the
// backup and restore flows end to end, owning the scratch directory, and
// exposing the check-facts subflow, grounded on planb's backup.py/recover.py
// top-level Backup/Recover classes and spec §4.8.
package orchestrator

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/open-edge-platform/pbr-storage/internal/config"
	"github.com/open-edge-platform/pbr-storage/internal/diskmatcher"
	"github.com/open-edge-platform/pbr-storage/internal/factcollect"
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/reconstruct"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

var log = logger.Logger()

const hostFactsDir = "/var/lib/pbr/facts"

// ArchiveHandoff is the boundary to the (out of core scope, per spec.md's
// Non-goals) archive subsystem. CreateFrom packages the scratch tree,
// honoring excludePaths, during backup; ExtractOnto unpacks a backup
// archive onto the staging root during restore.
type ArchiveHandoff interface {
	CreateFrom(scratchDir string, excludePaths []string) error
	ExtractOnto(stagingRoot string) error
}

// BootloaderHandoff is the boundary to the (out of core scope) bootloader
// installer invoked once the staging root is fully assembled.
type BootloaderHandoff interface {
	Install(stagingRoot string, misc factmodel.Misc) error
}

// Orchestrator wires every component, C1 through C7, into the two
// top-level flows.
type Orchestrator struct {
	Config   *config.Config
	Exec     shell.Executor
	Collector *factcollect.Collector
	Prompter diskmatcher.Prompter
	Recon    *reconstruct.Reconstructor

	Archive    ArchiveHandoff
	Bootloader BootloaderHandoff

	// KeepScratch, when true, preserves the scratch directory after a
	// run (successful or not) per spec §4.8's "preserves the scratch
	// tree only when the operator requested 'keep'".
	KeepScratch bool

	scratchDir string
}

// newScratchDir creates a unique scratch directory under /tmp, mirroring
// planb's tempfile.mkdtemp() call in Backup.__init__/Recover.__init__.
func (o *Orchestrator) newScratchDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "pbr-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", pbrerrors.RunCmdWrap("creating scratch directory", err)
	}
	o.scratchDir = dir
	return dir, nil
}

// cleanup runs on every exit path: change out of the scratch tree, lazy
// unmount the backup location if one was mounted, and remove the scratch
// tree unless the operator asked to keep it (spec §4.8).
func (o *Orchestrator) cleanup() {
	if o.scratchDir == "" {
		return
	}
	if err := os.Chdir(string(os.PathSeparator)); err != nil {
		log.Warnf("orchestrator: failed to chdir out of scratch tree: %v", err)
	}
	if o.Config != nil && o.Config.BkMount != "" {
		if _, err := o.Exec.ExecCmdSilent("umount -l "+o.Config.BkMount, true, "", nil); err != nil {
			log.Warnf("orchestrator: lazy unmount of %s returned in error: %v", o.Config.BkMount, err)
		}
	}
	if o.KeepScratch {
		log.Infof("orchestrator: preserving scratch directory %s", o.scratchDir)
		return
	}
	if err := os.RemoveAll(o.scratchDir); err != nil {
		log.Warnf("orchestrator: failed to remove scratch directory %s: %v", o.scratchDir, err)
	}
}

// excludedScratchPaths returns the backup-time exclusion list merged with
// the scratch directory itself, so the archive subsystem handed this list
// never descends into it.
func (o *Orchestrator) excludedScratchPaths() []string {
	paths := append([]string{}, o.Config.AllExcludedPaths()...)
	return append(paths, o.scratchDir)
}
