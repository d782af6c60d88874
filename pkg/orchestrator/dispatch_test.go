package orchestrator_test

import (
	"testing"

	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bidder(name string, bid int, hovered *[]string) *orchestrator.FuncActivity {
	return &orchestrator.FuncActivity{
		ActivityName: name,
		HoverBidFunc: func() int { return bid },
		HoverFunc:    func() { *hovered = append(*hovered, name) },
		DragBidFunc:  func() int { return bid },
		DragFunc:     func() { *hovered = append(*hovered, "drag:"+name) },
	}
}

func TestOrchestrator_HoverAuction(t *testing.T) {
	tests := []struct {
		name   string
		bids   []int
		winner string
		won    bool
	}{
		{name: "first highest wins ties", bids: []int{3, 7, -1, 7}, winner: "b", won: true},
		{name: "zero beats negative", bids: []int{-1, 0, -5, -1}, winner: "b", won: true},
		{name: "nobody interested", bids: []int{-1, -1, -2, -1}, won: false},
		{name: "single bidder", bids: []int{-1, -1, -1, 1}, winner: "d", won: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := orchestrator.New()
			var hovered []string
			for i, name := range []string{"a", "b", "c", "d"} {
				a := bidder(name, tt.bids[i], &hovered)
				o.RegisterActivity(name, func() orchestrator.Activity { return a })
				o.ActivateActivity(name)
			}
			o.Service(0)

			winner, ok := o.RunViewportHovering()
			assert.Equal(t, tt.won, ok)
			assert.Equal(t, tt.winner, winner)
			if tt.won {
				assert.Equal(t, []string{tt.winner}, hovered, "only the winner is notified")
			} else {
				assert.Empty(t, hovered)
			}

			hovered = nil
			winner, ok = o.RunViewportDragging()
			assert.Equal(t, tt.won, ok)
			assert.Equal(t, tt.winner, winner)
			if tt.won {
				assert.Equal(t, []string{"drag:" + tt.winner}, hovered)
			}
		})
	}
}

func TestOrchestrator_DispatchListsFollowCapabilities(t *testing.T) {
	o := orchestrator.New()
	var calls []string
	o.RegisterActivity("Viewport", func() orchestrator.Activity {
		return &orchestrator.FuncActivity{
			ActivityName: "Viewport",
			RenderFunc:   func() { calls = append(calls, "render") },
			MenuFunc:     func() { calls = append(calls, "menu") },
		}
	})
	o.RegisterActivity("Properties", func() orchestrator.Activity {
		return &orchestrator.FuncActivity{
			ActivityName: "Properties",
			UIFunc:       func() { calls = append(calls, "ui") },
		}
	})
	o.ActivateActivity("Viewport")
	o.ActivateActivity("Properties")
	o.Service(0)

	assert.Equal(t, []string{"Viewport"}, o.Dispatch(orchestrator.CapRender))
	assert.Equal(t, []string{"Viewport"}, o.Dispatch(orchestrator.CapMenu))
	assert.Equal(t, []string{"Properties"}, o.Dispatch(orchestrator.CapUI))
	assert.Empty(t, o.Dispatch(orchestrator.CapHoverBid))

	o.RunUI()
	o.RunRender()
	o.RunMenus()
	assert.Equal(t, []string{"ui", "render", "menu"}, calls)

	o.DeactivateActivity("Viewport")
	o.Service(0)
	assert.Empty(t, o.Dispatch(orchestrator.CapRender))
}

func TestCapabilitiesOf(t *testing.T) {
	p := &panel{name: "plain"}
	assert.Equal(t, orchestrator.CapUpdate, orchestrator.CapabilitiesOf(p))

	f := &orchestrator.FuncActivity{ActivityName: "f", HoverBidFunc: func() int { return 1 }}
	assert.False(t, orchestrator.CapabilitiesOf(f).Has(orchestrator.CapHoverBid), "a bid without a hover callback is not a capability")

	caps := orchestrator.CapUI | orchestrator.CapMenu
	require.True(t, caps.Has(orchestrator.CapMenu))
	assert.Equal(t, "ui|menu", caps.String())
	assert.Equal(t, "none", orchestrator.Capability(0).String())
}
