package diskmatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
)

type fakePrompter struct {
	answers map[string]string
}

func (f fakePrompter) Choose(capturedDisk string, candidates []string) (string, error) {
	return f.answers[capturedDisk], nil
}

func disk(path, serial string, size uint64) *factmodel.Disk {
	return &factmodel.Disk{Path: path, Serial: serial, Size: size}
}

func TestMatchNameMatchWithSerial(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "S1", 1000)}
	live := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "S1", 1000)}

	pairs, err := Match(captured, live, nil)
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestMatchSerialSizeAutoMap(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "S1", 1000)}
	live := map[string]*factmodel.Disk{"/dev/sdb": disk("/dev/sdb", "S1", 1000)}

	pairs, err := Match(captured, live, nil)
	require.NoError(t, err)
	require.Equal(t, []RenamePair{{Old: "/dev/sda", New: "/dev/sdb"}}, pairs)
}

func TestMatchSingleSizeCandidateAutoSelectsWithoutPrompt(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "", 1000)}
	live := map[string]*factmodel.Disk{"/dev/sdz": disk("/dev/sdz", "", 1000)}

	pairs, err := Match(captured, live, nil)
	require.NoError(t, err)
	require.Equal(t, []RenamePair{{Old: "/dev/sda", New: "/dev/sdz"}}, pairs)
}

func TestMatchMultipleSizeCandidatesPromptsOperator(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "", 1000)}
	live := map[string]*factmodel.Disk{
		"/dev/sdx": disk("/dev/sdx", "", 1000),
		"/dev/sdy": disk("/dev/sdy", "", 1000),
	}

	_, err := Match(captured, live, nil)
	require.Error(t, err)

	pairs, err := Match(captured, live, fakePrompter{answers: map[string]string{"/dev/sda": "/dev/sdy"}})
	require.NoError(t, err)
	require.Equal(t, []RenamePair{{Old: "/dev/sda", New: "/dev/sdy"}}, pairs)
}

func TestMatchFatalWhenNoCandidateLargeEnough(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "", 5000)}
	live := map[string]*factmodel.Disk{"/dev/sdb": disk("/dev/sdb", "", 1000)}

	_, err := Match(captured, live, nil)
	require.Error(t, err)
}

func TestMatchMpathOnlyMatchesMpath(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/mapper/mpatha": disk("/dev/mapper/mpatha", "", 1000)}
	live := map[string]*factmodel.Disk{
		"/dev/sdb":             disk("/dev/sdb", "", 1000),
		"/dev/mapper/mpathnew": disk("/dev/mapper/mpathnew", "", 1000),
	}

	pairs, err := Match(captured, live, nil)
	require.NoError(t, err)
	require.Equal(t, []RenamePair{{Old: "/dev/mapper/mpatha", New: "/dev/mapper/mpathnew"}}, pairs)
}

func TestMatchLargerCandidateRequiresPrompt(t *testing.T) {
	captured := map[string]*factmodel.Disk{"/dev/sda": disk("/dev/sda", "", 1000)}
	live := map[string]*factmodel.Disk{"/dev/sdz": disk("/dev/sdz", "", 2000)}

	pairs, err := Match(captured, live, fakePrompter{answers: map[string]string{"/dev/sda": "/dev/sdz"}})
	require.NoError(t, err)
	require.Equal(t, []RenamePair{{Old: "/dev/sda", New: "/dev/sdz"}}, pairs)
}
