package main

import (
	"os"

	"github.com/open-edge-platform/pbr-storage/internal/config"
	"github.com/open-edge-platform/pbr-storage/internal/diskmatcher"
	"github.com/open-edge-platform/pbr-storage/internal/factcollect"
	"github.com/open-edge-platform/pbr-storage/internal/orchestrator"
	"github.com/open-edge-platform/pbr-storage/internal/reconstruct"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

const factsDir = "/var/lib/pbr/facts"

// newOrchestrator assembles an Orchestrator from the shared shell executor,
// a fact collector rooted at factsDir, a tview-backed disk-match prompter,
// and every Stage 1-7 capability wired to its production shell
// implementation. Archive and Bootloader handoffs are left nil: both are
// out of core scope (spec.md Non-goals) and, when a deployment needs them,
// are injected by a build that links a real implementation in.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	exec := shell.Default
	collector := factcollect.NewCollector(factsDir)

	recon := &reconstruct.Reconstructor{
		Partitions: reconstruct.DiskfsPartitionEditor{Settle: func() error {
			_, err := exec.ExecCmdSilent("udevadm settle", true, "", nil)
			return err
		}},
		MD: reconstruct.ShellMDAdmin{
			Exec: exec,
			Info: collector.CollectMdInfo,
		},
		LUKS: reconstruct.ShellLUKSAdmin{
			Exec:         exec,
			PresentUUIDs: presentLuksUUIDs(collector),
		},
		LVM: reconstruct.ShellLVMAdmin{
			Exec:      exec,
			Report:    collector.CollectLvmReport,
			PathExist: pathExists,
		},
		Format: reconstruct.ShellFormatter{
			Exec:   exec,
			Exists: pathExists,
		},
		Mounts:   reconstruct.ShellMountManager{Exec: exec},
		FactsDir: factsDir,
	}

	return &orchestrator.Orchestrator{
		Config:      cfg,
		Exec:        exec,
		Collector:   collector,
		Prompter:    diskmatcher.TviewPrompter{},
		Recon:       recon,
		KeepScratch: keepScratch,
	}, nil
}

// presentLuksUUIDs adapts the collector's LUKS sweep (already probing every
// block device for ID_FS_TYPE=crypto_LUKS) into the uuid->devicePath map
// ShellLUKSAdmin needs to decide "present, just open" versus "absent,
// restore the header first" (spec §4.7 Stage 3/5).
func presentLuksUUIDs(collector *factcollect.Collector) func() (map[string]string, error) {
	return func() (map[string]string, error) {
		containers, err := collector.CollectLuks()
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(containers))
		for _, c := range containers {
			out[c.UUID] = c.Path
		}
		return out, nil
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
