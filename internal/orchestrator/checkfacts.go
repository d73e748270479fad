package orchestrator

import "path/filepath"

// RunCheckFacts is the check-facts subflow: a fresh collection compared
// byte-for-byte against the reference facts saved on the host, without
// ever overwriting the reference (spec §4.2/§4.8). Returns true on match.
func (o *Orchestrator) RunCheckFacts() (matched bool, err error) {
	if _, scratchErr := o.newScratchDir(); scratchErr != nil {
		return false, scratchErr
	}
	defer o.cleanup()

	diskPaths, err := o.Collector.EnumerateDisks()
	if err != nil {
		return false, err
	}

	return o.Collector.CheckFacts(diskPaths, nil, hostFactsDir, filepath.Join(o.scratchDir, "facts"))
}
