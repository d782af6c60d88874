package cli

import (
	"log/slog"
	"time"

	"github.com/aretw0/studio/pkg/orchestrator"
)

// viewportBid outranks every other panel for pointer input over the viewport.
const viewportBid = 10

// newPanel builds the headless stand-in for a UI panel. It counts the frames
// it was updated for and logs its lifetime. The viewport also bids for hover
// and drag.
func newPanel(name string, logger *slog.Logger) orchestrator.Activity {
	var elapsed time.Duration
	frames := 0
	p := &orchestrator.FuncActivity{
		ActivityName: name,
		Activate: func() {
			frames, elapsed = 0, 0
			logger.Debug("panel opened", "activity", name)
		},
		Deactivate: func() {
			logger.Debug("panel closed", "activity", name, "frames", frames, "elapsed", elapsed)
		},
		UpdateFunc: func(dt time.Duration) {
			frames++
			elapsed += dt
		},
		UIFunc: func() {},
	}
	if name == "Viewport" {
		p.HoverBidFunc = func() int { return viewportBid }
		p.HoverFunc = func() {}
		p.DragBidFunc = func() int { return viewportBid }
		p.DragFunc = func() {}
	}
	return p
}
