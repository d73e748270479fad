package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pbr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
bk_exclude_paths:
  - /mnt/data
bk_exclude_vgs:
  - scratch
bk_exclude_disks:
  - /dev/sdz
bk_mount: /mnt/backup
bk_location_type: nfs
rc_post_script: /root/post.sh
boot_type: iso
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/mnt/data"}, c.BkExcludePaths)
	require.Equal(t, []string{"scratch"}, c.BkExcludeVgs)
	require.Equal(t, "nfs", c.BkLocationType)
	require.Equal(t, "/root/post.sh", c.RcPostScript)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestAllExcludedPaths(t *testing.T) {
	c := &Config{BkExcludePaths: []string{"/dev", "/mnt/extra"}}
	got := c.AllExcludedPaths()
	require.Contains(t, got, "/proc")
	require.Contains(t, got, "/mnt/extra")

	count := 0
	for _, p := range got {
		if p == "/dev" {
			count++
		}
	}
	require.Equal(t, 1, count, "/dev must not be duplicated")
}
