package diskmatcher

import (
	"fmt"

	"github.com/gdamore/tcell"
	"github.com/rivo/tview"

	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
)

// TviewPrompter presents candidates in a full-screen list picker and
// returns the operator's selection, grounding C4's interactive tie-break
// on the teacher's tview+tcell UI stack.
type TviewPrompter struct{}

// Choose implements Prompter.
func (TviewPrompter) Choose(capturedDisk string, candidates []string) (string, error) {
	app := tview.NewApplication()
	list := tview.NewList().ShowSecondaryText(false)

	var chosen string
	var chooseErr error

	for _, c := range candidates {
		candidate := c
		list.AddItem(candidate, "", 0, func() {
			chosen = candidate
			app.Stop()
		})
	}
	list.SetDoneFunc(func() {
		chooseErr = pbrerrors.Exists("operator cancelled disk selection for " + capturedDisk)
		app.Stop()
	})

	frame := tview.NewFrame(list).
		AddText(fmt.Sprintf("Select the live disk to restore %s onto", capturedDisk), true, tview.AlignCenter, tcell.ColorWhite)

	if err := app.SetRoot(frame, true).SetFocus(list).Run(); err != nil {
		return "", pbrerrors.GeneralWrap("running disk selection prompt", err)
	}
	if chooseErr != nil {
		return "", chooseErr
	}
	return chosen, nil
}
