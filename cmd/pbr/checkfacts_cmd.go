package main

import (
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
)

func createCheckFactsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-facts",
		Short: "Re-collect facts and compare them against the reference fact set",
		Long: `check-facts performs a fresh fact collection into a scratch
directory and compares it byte-for-byte against the reference fact set
saved on the host, without ever overwriting the reference.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         executeCheckFacts,
	}
}

func executeCheckFacts(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	orc, err := newOrchestrator()
	if err != nil {
		return err
	}

	matched, err := orc.RunCheckFacts()
	if err != nil {
		return err
	}
	if !matched {
		return pbrerrors.General("check-facts: live facts diverge from the reference fact set")
	}
	log.Infof("pbr: check-facts: live facts match the reference fact set")
	return nil
}
