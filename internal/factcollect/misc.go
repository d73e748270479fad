package factcollect

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// CollectMisc assembles the scalar Misc record (spec §3, §6 misc.json):
// architecture, distro identity, firmware/security posture, grub prefix,
// and the pre-computed VG/MD/LUKS indices. Grounded on planb's
// facts.py:Facts.__init__ and distro_efi_vars/grub_prefix.
func (c *Collector) CollectMisc(bkVgs []string, mdInfo map[string]factmodel.MdArray, luks map[string]factmodel.LuksContainer) (factmodel.Misc, error) {
	m := factmodel.Misc{
		Arch:     goArchToUname(runtime.GOARCH),
		BkVgs:    bkVgs,
		MdInfo:   mdInfo,
		Luks:     luks,
		GrubPrefix: grubPrefix(),
	}

	if hn, err := os.Hostname(); err == nil {
		m.Hostname = hn
	}

	distroName, distroPretty := readOSRelease()
	m.Distro = distroName
	m.DistroPretty = distroPretty

	if _, err := os.Stat("/sys/firmware/efi"); err == nil {
		m.UEFI = true
		m.EFIDistro, m.EFIFile = c.distroEfiVars(m.Arch, m.Distro)
	}

	m.SelinuxEnabled, m.SelinuxEnforcing = c.selinuxState()
	m.SecureBootEnabled = c.secureBootEnabled()

	return m, nil
}

func goArchToUname(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}

func grubPrefix() string {
	if _, err := os.Stat("/usr/bin/grub-mkimage"); err == nil {
		return "grub"
	}
	return "grub2"
}

// readOSRelease parses /etc/os-release for NAME and PRETTY_NAME, the Go
// equivalent of the distro Python package's name()/name(pretty=True).
func readOSRelease() (name, pretty string) {
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)
		switch k {
		case "NAME":
			name = v
		case "PRETTY_NAME":
			pretty = v
		}
	}
	return name, pretty
}

// distroEfiVars follows planb's facts.py:distro_efi_vars, querying
// efibootmgr when available and falling back to a distro-name heuristic.
func (c *Collector) distroEfiVars(arch, distroName string) (efiDistro, efiFile string) {
	if _, err := os.Stat("/usr/sbin/efibootmgr"); err == nil {
		out, err := c.exec.ExecCmdSilent("efibootmgr -v", true, shell.HostPath, nil)
		if err == nil {
			if d, f, ok := parseEfibootmgr(out); ok {
				return d, f
			}
		}
	}

	if strings.Contains(arch, "aarch64") {
		efiFile = "shimaa64.efi"
	} else {
		efiFile = "shimx64.efi"
	}
	if strings.Contains(distroName, "Red Hat") || strings.Contains(distroName, "Oracle") {
		efiDistro = "redhat"
	} else {
		efiDistro = strings.ToLower(strings.SplitN(distroName, " ", 2)[0])
	}
	return efiDistro, efiFile
}

func parseEfibootmgr(out string) (efiDistro, efiFile string, ok bool) {
	bootCurrent := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "BootCurrent:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				bootCurrent = "Boot" + strings.TrimSpace(parts[1])
			}
			continue
		}
		if bootCurrent == "" || !strings.HasPrefix(line, bootCurrent) {
			continue
		}

		var segment string
		if strings.Contains(line, "File(") {
			after := strings.SplitN(line, "File(", 2)[1]
			segment = strings.SplitN(after, ")", 2)[0]
		} else if strings.Contains(line, "/") {
			parts := strings.SplitN(line, "/", 2)
			if len(parts) < 2 {
				continue
			}
			segment = parts[1]
		} else {
			continue
		}

		path := strings.Split(segment, `\`)
		if len(path) < 2 {
			continue
		}
		efiFile = path[len(path)-1]
		efiDistro = strings.ToLower(path[len(path)-2])
		return efiDistro, efiFile, true
	}
	return "", "", false
}

func (c *Collector) selinuxState() (enabled, enforcing bool) {
	if _, err := os.Stat("/sys/fs/selinux/enforce"); err != nil {
		return false, false
	}
	enabled = true
	b, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err == nil && strings.TrimSpace(string(b)) == "1" {
		enforcing = true
	}
	return enabled, enforcing
}

func (c *Collector) secureBootEnabled() bool {
	if _, err := os.Stat("/usr/bin/mokutil"); err != nil {
		return false
	}
	out, err := c.exec.ExecCmdSilent("mokutil --sb-state", false, shell.HostPath, nil)
	if err != nil {
		return false
	}
	return strings.Contains(out, "enabled")
}
