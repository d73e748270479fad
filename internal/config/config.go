// Package config loads the YAML policy file that drives the backup and
// restore flows: exclusion lists consumed by the Topology Filter (C3) and
// the handful of knobs the Orchestrator (C8) needs to pick a backup
// location and post-restore hook. Grounded on planb's cfg object
// (backup.py, recover.py) and loaded the way the teacher's packages load
// YAML (gopkg.in/yaml.v3).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the parsed policy file, normally found at
// /etc/pbr/pbr.yaml on the host and at a fixed path on the rescue medium.
type Config struct {
	// BkExcludePaths is merged with the immutable excludes
	// (/dev, /lost+found, /proc, /run, /sys) by AllExcludedPaths, the
	// list handed to the archive subsystem.
	BkExcludePaths []string `yaml:"bk_exclude_paths"`
	// BkExcludeVgs lists volume groups the Topology Filter must drop.
	BkExcludeVgs []string `yaml:"bk_exclude_vgs"`
	// BkExcludeDisks lists disk paths the Topology Filter must drop.
	BkExcludeDisks []string `yaml:"bk_exclude_disks"`

	BkMount     string `yaml:"bk_mount"`
	BkMountOpts string `yaml:"bk_mount_opts"`
	// BkLocationType selects where the archive lands: nfs, cifs, rsync,
	// iso, or usb. The storage-reconstruction engine only consumes this
	// to decide whether it must mount anything before restoring.
	BkLocationType string `yaml:"bk_location_type"`
	BkArchivePrefix string `yaml:"bk_archive_prefix"`

	RcExcludeDisks []string `yaml:"rc_exclude_disks"`
	RcExcludeVgs   []string `yaml:"rc_exclude_vgs"`
	// RcPostScript, if set, is executed inside a chroot of the staging
	// root as the last step of a restore, after archive extraction and
	// the bootloader handoff.
	RcPostScript string `yaml:"rc_post_script"`

	// BootType names the rescue medium's boot mechanism (iso, usb). It is
	// parsed from the file but not read by any code in this module.
	BootType string `yaml:"boot_type"`
}

// immutableExcludes are always excluded from the backup archive,
// independent of configuration, matching planb's Backup.__init__.
var immutableExcludes = []string{"/dev", "/lost+found", "/proc", "/run", "/sys"}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// AllExcludedPaths returns the immutable excludes plus the configured
// BkExcludePaths, deduplicated, in the order planb builds its list.
func (c *Config) AllExcludedPaths() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(immutableExcludes)+len(c.BkExcludePaths))
	for _, p := range immutableExcludes {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range c.BkExcludePaths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
