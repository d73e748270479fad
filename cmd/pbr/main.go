// Command pbr is the storage-reconstruction engine's CLI: backup, restore,
// and check-facts subcommands driving internal/orchestrator end to end.
package main

import (
	"os"

	"github.com/open-edge-platform/pbr-storage/internal/utils/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Logger().Errorf("pbr: %v", err)
		os.Exit(1)
	}
}
