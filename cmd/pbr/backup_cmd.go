package main

import (
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
)

func createBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Collect storage facts and create a backup archive",
		Long: `backup enumerates the host's disks, collects partition,
MD, LUKS, LVM, and mount facts, filters them by the configured exclusion
policy, and hands the result to the archive subsystem.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         executeBackup,
	}
}

func executeBackup(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	orc, err := newOrchestrator()
	if err != nil {
		return err
	}

	log.Infof("pbr: starting backup")
	if err := orc.RunBackup(); err != nil {
		return err
	}
	log.Infof("pbr: backup complete")
	return nil
}
