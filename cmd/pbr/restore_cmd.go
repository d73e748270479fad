package main

import (
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pbr-storage/internal/factcollect"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
)

var (
	stagingRoot string
	factsRefDir string
)

func createRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Reconstruct storage topology from saved facts and restore an archive",
		Long: `restore loads a previously saved fact set, matches the
captured disks against the live ones, rewrites every captured reference
to the live device names, reconstructs partitions, MD arrays, LUKS
containers, LVM volumes, and filesystems, assembles the staging root, and
hands off to the archive extractor and bootloader installer.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         executeRestore,
	}

	cmd.Flags().StringVar(&stagingRoot, "staging-root", "/mnt/restore", "directory the restored filesystem tree is assembled under")
	cmd.Flags().StringVar(&factsRefDir, "facts-dir", factsDir, "directory the saved fact set is loaded from")

	return cmd
}

func executeRestore(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	saved, err := factcollect.LoadFactSet(factsRefDir)
	if err != nil {
		return pbrerrors.GeneralWrap("loading saved fact set from "+factsRefDir, err)
	}

	orc, err := newOrchestrator()
	if err != nil {
		return err
	}

	log.Infof("pbr: starting restore onto %s", stagingRoot)
	if err := orc.RunRestore(saved, stagingRoot); err != nil {
		return err
	}
	log.Infof("pbr: restore complete")
	return nil
}
