package main

import (
	"github.com/spf13/cobra"
)

// configPath and keepScratch are shared across every subcommand, mirroring
// the teacher's package-level flag variables bound in each
// createXCommand constructor.
var (
	configPath  string
	keepScratch bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pbr",
		Short: "Bare-metal disaster-recovery storage reconstruction",
		Long: `pbr captures the storage topology of a host (partition tables,
MD arrays, LUKS containers, LVM metadata, and mounts) and, from a rescue
medium, reconstructs that topology on possibly-reordered disks before an
archive is unpacked on top.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "/etc/pbr/pbr.yaml", "path to the pbr policy file")
	root.PersistentFlags().BoolVar(&keepScratch, "keep-scratch", false, "preserve the scratch directory after the run")

	root.AddCommand(createBackupCommand())
	root.AddCommand(createRestoreCommand())
	root.AddCommand(createCheckFactsCommand())

	return root
}
