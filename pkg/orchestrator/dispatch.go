package orchestrator

// dispatchLists buckets active activities by capability, in name order.
type dispatchLists struct {
	ui       []*ActivityHandle
	update   []*ActivityHandle
	hoverBid []*ActivityHandle
	dragBid  []*ActivityHandle
	render   []*ActivityHandle
	menu     []*ActivityHandle
}

func (o *Orchestrator) rebuildDispatch() {
	var d dispatchLists
	for _, name := range o.activities.cached() {
		h := o.activities.instances[name]
		if h == nil || !h.active {
			continue
		}
		c := h.caps
		if c.Has(CapUI) {
			d.ui = append(d.ui, h)
		}
		if c.Has(CapUpdate) {
			d.update = append(d.update, h)
		}
		if c.Has(CapHoverBid) {
			d.hoverBid = append(d.hoverBid, h)
		}
		if c.Has(CapDragBid) {
			d.dragBid = append(d.dragBid, h)
		}
		if c.Has(CapRender) {
			d.render = append(d.render, h)
		}
		if c.Has(CapMenu) {
			d.menu = append(d.menu, h)
		}
	}
	o.dispatch = d
}

// Dispatch returns the names of the activities currently bucketed under c.
func (o *Orchestrator) Dispatch(c Capability) []string {
	var list []*ActivityHandle
	switch c {
	case CapUI:
		list = o.dispatch.ui
	case CapUpdate:
		list = o.dispatch.update
	case CapHoverBid:
		list = o.dispatch.hoverBid
	case CapDragBid:
		list = o.dispatch.dragBid
	case CapRender:
		list = o.dispatch.render
	case CapMenu:
		list = o.dispatch.menu
	}
	names := make([]string, len(list))
	for i, h := range list {
		names[i] = h.Name()
	}
	return names
}

// RunUI calls DrawUI on every active UIDrawer.
func (o *Orchestrator) RunUI() {
	for _, h := range o.dispatch.ui {
		h.activity.(UIDrawer).DrawUI()
	}
}

// RunRender calls Render on every active Renderer.
func (o *Orchestrator) RunRender() {
	for _, h := range o.dispatch.render {
		h.activity.(Renderer).Render()
	}
}

// RunMenus calls Menu on every active MenuProvider.
func (o *Orchestrator) RunMenus() {
	for _, h := range o.dispatch.menu {
		h.activity.(MenuProvider).Menu()
	}
}

// RunViewportHovering holds the hover auction for this frame.
// The highest non-negative bid wins, ties going to the first bidder in dispatch
// order, and only the winner receives Hover. It returns the winner's name.
func (o *Orchestrator) RunViewportHovering() (string, bool) {
	winner := auction(o.dispatch.hoverBid, func(h *ActivityHandle) int {
		return h.activity.(HoverBidder).HoverBid()
	})
	if winner == nil {
		return "", false
	}
	winner.activity.(HoverBidder).Hover()
	return winner.Name(), true
}

// RunViewportDragging holds the drag auction for this frame, with the same rules as hovering.
func (o *Orchestrator) RunViewportDragging() (string, bool) {
	winner := auction(o.dispatch.dragBid, func(h *ActivityHandle) int {
		return h.activity.(DragBidder).DragBid()
	})
	if winner == nil {
		return "", false
	}
	winner.activity.(DragBidder).Drag()
	return winner.Name(), true
}

func auction(bidders []*ActivityHandle, bid func(*ActivityHandle) int) *ActivityHandle {
	var winner *ActivityHandle
	best := -1
	for _, h := range bidders {
		b := bid(h)
		if b < 0 {
			continue
		}
		if b > best {
			best = b
			winner = h
		}
	}
	return winner
}
