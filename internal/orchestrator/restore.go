package orchestrator

import (
	"os"

	"github.com/open-edge-platform/pbr-storage/internal/diskmatcher"
	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/factrewriter"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
	"github.com/open-edge-platform/pbr-storage/internal/reconstruct"
	"github.com/open-edge-platform/pbr-storage/internal/topologyfilter"
)

// RunRestore drives the restore flow against a previously saved FactSet,
// per spec §4.8: unmount anything already at the staging root, mount the
// backup location if one is configured, filter (C3, by rc_exclude_vgs/
// rc_exclude_disks), match (C4), rewrite (C5), compare layouts per disk
// (C6), reconstruct stages 1-6, assemble the mount tree (stage 7), hand
// off to the archive extractor, then the bootloader installer, then run
// the operator's post-restore script.
func (o *Orchestrator) RunRestore(saved *factmodel.FactSet, stagingRoot string) (err error) {
	if _, scratchErr := o.newScratchDir(); scratchErr != nil {
		return scratchErr
	}
	defer o.cleanup()
	defer func() {
		if r := recover(); r != nil {
			err = pbrerrors.General("panic during restore, recovered at orchestrator boundary")
		}
	}()

	if err := o.unmountStagingRoot(stagingRoot); err != nil {
		return err
	}
	if err := o.mountBackupLocationIfNeeded(); err != nil {
		return err
	}

	if o.Config != nil {
		saved.Misc.BkVgs = topologyfilter.Filter(saved, topologyfilter.Exclusions{
			BkExcludeVgs:   o.Config.RcExcludeVgs,
			BkExcludeDisks: o.Config.RcExcludeDisks,
		})
	}

	liveDiskPaths, err := o.Collector.EnumerateDisks()
	if err != nil {
		return err
	}
	liveFacts, err := o.Collector.Collect(liveDiskPaths, nil)
	if err != nil {
		return err
	}

	pairs, err := diskmatcher.Match(saved.Disks, liveFacts.Disks, o.Prompter)
	if err != nil {
		return err
	}
	factrewriter.Apply(saved, pairs)

	if o.Recon == nil {
		return pbrerrors.General("no Reconstructor configured for restore")
	}
	o.Recon.StagingRoot = stagingRoot
	if err := o.Recon.Run(saved, liveFacts.Disks); err != nil {
		return err
	}

	if o.Archive != nil {
		if err := o.Archive.ExtractOnto(stagingRoot); err != nil {
			return err
		}
	}
	if saved.Misc.SelinuxEnabled {
		if err := touchAutorelabel(stagingRoot); err != nil {
			return err
		}
	}
	if o.Bootloader != nil {
		if err := o.Bootloader.Install(stagingRoot, saved.Misc); err != nil {
			return err
		}
	}
	if o.Config != nil && o.Config.RcPostScript != "" {
		if err := o.runPostScript(stagingRoot); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) unmountStagingRoot(stagingRoot string) error {
	if _, err := o.Exec.ExecCmdSilent("umount -R "+stagingRoot, true, "", nil); err != nil {
		log.Debugf("orchestrator: nothing mounted at %s yet (%v)", stagingRoot, err)
	}
	return nil
}

func (o *Orchestrator) mountBackupLocationIfNeeded() error {
	if o.Config == nil || o.Config.BkMount == "" || o.Config.BkLocationType == "" {
		return nil
	}
	if o.Config.BkLocationType == "iso" || o.Config.BkLocationType == "usb" {
		// Already mounted by the rescue medium's boot process; nothing
		// for the orchestrator to do.
		return nil
	}
	cmd := "mount " + o.Config.BkMount
	if o.Config.BkMountOpts != "" {
		cmd = "mount -o " + o.Config.BkMountOpts + " " + o.Config.BkMount
	}
	if _, err := o.Exec.ExecCmdSilent(cmd, true, "", nil); err != nil {
		return pbrerrors.MountWrap("mounting backup location "+o.Config.BkMount, err)
	}
	return nil
}

// runPostScript executes the operator-configured post-restore script
// against the staging root (the post-restore script hook supplemented
// feature, grounded on planb's recover.py rc_post_script handling).
func (o *Orchestrator) runPostScript(stagingRoot string) error {
	log.Infof("orchestrator: running post-restore script %s", o.Config.RcPostScript)
	if _, err := o.Exec.ExecCmdWithStream(o.Config.RcPostScript, true, stagingRoot, nil); err != nil {
		return pbrerrors.RunCmdWrap("running post-restore script "+o.Config.RcPostScript, err)
	}
	return nil
}

func touchAutorelabel(stagingRoot string) error {
	f, err := os.Create(reconstruct.AutorelabelMarker(stagingRoot))
	if err != nil {
		return pbrerrors.RunCmdWrap("creating .autorelabel marker", err)
	}
	return f.Close()
}
