// Package diskmatcher implements the Disk Matcher (C4): pairing each
// captured disk identity with a present device using the three-tier match
// from spec §4.4, grounded on planb's recover.py:Recover.cmp_disks.
package diskmatcher

import (
	"sort"
	"strings"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
)

// Prompter is the interactive tie-break port (spec §9: "Interactive
// prompts in C4 belong to a prompt port that returns a chosen candidate.
// Tests inject a deterministic prompter.").
type Prompter interface {
	// Choose presents candidates for capturedDisk and returns the
	// operator's selection, which must be one of candidates.
	Choose(capturedDisk string, candidates []string) (string, error)
}

// RenamePair is one (old_path, new_path) entry in a rename map (identity
// pairs are omitted per spec §4.4).
type RenamePair struct {
	Old string
	New string
}

// Match runs the three-tier matching procedure over captured (the
// FactSet's disks, keyed by captured path) and live (the recovery host's
// disks from C1/C2), returning the rename map.
func Match(captured, live map[string]*factmodel.Disk, prompt Prompter) ([]RenamePair, error) {
	remaining := map[string]*factmodel.Disk{}
	for k, v := range live {
		remaining[k] = v
	}

	var pairs []RenamePair
	sizeCandidates := map[string][]string{}
	largerCandidates := map[string][]string{}

	var capturedOrder []string
	for path := range captured {
		capturedOrder = append(capturedOrder, path)
	}
	sort.Strings(capturedOrder)

	for _, old := range capturedOrder {
		b := captured[old]

		if liveAtName, ok := remaining[old]; ok {
			if b.Serial != "" && b.Serial == liveAtName.Serial {
				if b.Size == liveAtName.Size {
					delete(remaining, old)
					continue
				}
			} else if b.Size == liveAtName.Size {
				delete(remaining, old)
				continue
			}
		}

		isMpath := strings.HasPrefix(old, "/dev/mapper")

		var candidateOrder []string
		for path := range remaining {
			candidateOrder = append(candidateOrder, path)
		}
		sort.Strings(candidateOrder)

		for _, newPath := range candidateOrder {
			live := remaining[newPath]
			if isMpath != strings.HasPrefix(newPath, "/dev/mapper") {
				continue
			}

			if b.Serial != "" && live.Serial != "" && b.Serial == live.Serial && b.Size == live.Size {
				pairs = append(pairs, RenamePair{Old: old, New: newPath})
				delete(remaining, newPath)
				break
			}
			if b.Size == live.Size {
				sizeCandidates[old] = append(sizeCandidates[old], newPath)
				delete(remaining, newPath)
				break
			}
			if live.Size > b.Size {
				largerCandidates[old] = append(largerCandidates[old], newPath)
				continue
			}
			if live.Size < b.Size {
				return nil, pbrerrors.Exists("no disk large enough to restore backup disk " + old)
			}
		}
	}

	for old, cands := range sizeCandidates {
		chosen, err := resolveCandidate(old, cands, true, prompt)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, RenamePair{Old: old, New: chosen})
	}
	for old, cands := range largerCandidates {
		if _, already := sizeCandidates[old]; already {
			continue
		}
		chosen, err := resolveCandidate(old, cands, false, prompt)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, RenamePair{Old: old, New: chosen})
	}

	var out []RenamePair
	for _, p := range pairs {
		if p.Old != p.New {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Old < out[j].Old })
	return out, nil
}

// resolveCandidate applies spec §4.4's "automatic selection is permitted
// only when exactly one size candidate exists" rule: autoSingle is true for
// size candidates, while larger candidates always go to the prompter.
func resolveCandidate(old string, candidates []string, autoSingle bool, prompt Prompter) (string, error) {
	if autoSingle && len(candidates) == 1 {
		return candidates[0], nil
	}
	if prompt == nil {
		return "", pbrerrors.Exists("candidate disks for " + old + " need an operator choice and no prompter is configured")
	}
	chosen, err := prompt.Choose(old, candidates)
	if err != nil {
		return "", pbrerrors.ExistsWrap("prompting for disk candidate for "+old, err)
	}
	for _, c := range candidates {
		if c == chosen {
			return chosen, nil
		}
	}
	return "", pbrerrors.Exists("operator selection " + chosen + " not in candidate list for " + old)
}
