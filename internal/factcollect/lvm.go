package factcollect

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/udevprobe"
	"github.com/open-edge-platform/pbr-storage/internal/utils/shell"
)

// lvmReportEnvelope matches the `{"report":[{"pv":[...]}]}` shape all three
// of pvs/vgs/lvs --reportformat json produce (spec §4.2, §6 lvm.json).
type lvmReportEnvelope struct {
	Report []map[string]json.RawMessage `json:"report"`
}

// CollectLvmReport runs pvs, vgs, lvs and builds the enriched LvmReport
// described in spec §3/§4.2: every PV row gets its classified device type,
// md-device flag, and parent, and PVs backed by an MD array have pv_name
// rewritten to the stable /dev/md/<name> form.
func (c *Collector) CollectLvmReport() (factmodel.LvmReport, error) {
	var report factmodel.LvmReport

	pvRaw, err := c.reportJSON("pvs", "pv")
	if err != nil {
		return report, err
	}
	var pvs []factmodel.Pv
	if err := json.Unmarshal(pvRaw, &pvs); err != nil {
		return report, fmt.Errorf("factcollect: decode pvs report: %w", err)
	}
	for i, pv := range pvs {
		if strings.Contains(pv.PvName, "unknown") {
			continue
		}
		a, err := c.prober.FromPath(pv.PvName)
		if err != nil {
			return report, pbrerrors.RunCmdWrap("classify PV "+pv.PvName, err)
		}
		dType := string(udevprobe.Classify(a))
		pvs[i].DType = dType
		if mdName := a.Get("MD_DEVNAME"); mdName != "" {
			pvs[i].PvName = "/dev/md/" + mdName
			pvs[i].MdDev = true
		} else {
			pvs[i].MdDev = false
		}
		switch dType {
		case string(factmodel.KindPart), string(factmodel.KindPartRaid):
			pvs[i].Parent = parentDiskOf(a)
		case string(factmodel.KindPartOnMpath):
			pvs[i].Parent = "/dev/mapper/" + a.Get("DM_MPATH")
		default:
			pvs[i].Parent = ""
		}
	}
	report.Pvs = pvs

	vgRaw, err := c.reportJSON("vgs", "vg")
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(vgRaw, &report.Vgs); err != nil {
		return report, fmt.Errorf("factcollect: decode vgs report: %w", err)
	}

	lvRaw, err := c.reportJSON("lvs", "lv")
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(lvRaw, &report.Lvs); err != nil {
		return report, fmt.Errorf("factcollect: decode lvs report: %w", err)
	}

	return report, nil
}

func (c *Collector) reportJSON(cmd, singular string) (json.RawMessage, error) {
	cmdStr := fmt.Sprintf("%s -v --reportformat json", cmd)
	out, err := c.exec.ExecCmdSilent(cmdStr, true, shell.HostPath, nil)
	if err != nil {
		return nil, pbrerrors.RunCmdWrap(cmdStr, err)
	}
	var env lvmReportEnvelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		return nil, fmt.Errorf("factcollect: decode %s output: %w", cmd, err)
	}
	if len(env.Report) == 0 {
		return json.RawMessage("[]"), nil
	}
	raw, ok := env.Report[0][singular]
	if !ok {
		return json.RawMessage("[]"), nil
	}
	return raw, nil
}

// parentDiskOf resolves a partition's parent disk path from its udev
// attributes: PKNAME when present, else the parent directory of the
// partition's sysfs DEVPATH (".../block/sda/sda1" gives "/dev/sda"),
// avoiding a pyudev find_parent equivalent walk.
func parentDiskOf(a udevprobe.Attrs) string {
	if pk := a.Get("PKNAME"); pk != "" {
		return "/dev/" + pk
	}
	if dp := a.Get("DEVPATH"); dp != "" {
		return "/dev/" + filepath.Base(filepath.Dir(dp))
	}
	return ""
}
