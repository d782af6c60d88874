package orchestrator

import (
	"strings"
	"time"
)

// Activity is a composable unit of panel behavior activated and deactivated by name.
type Activity interface {
	Name() string
}

// ActivateHook is implemented by activities that need to react to activation.
type ActivateHook interface {
	OnActivate()
}

// DeactivateHook is implemented by activities that need to react to deactivation.
type DeactivateHook interface {
	OnDeactivate()
}

// Updater receives the frame delta on every service tick.
type Updater interface {
	Update(dt time.Duration)
}

// Renderer draws into the viewport.
type Renderer interface {
	Render()
}

// UIDrawer draws panel UI.
type UIDrawer interface {
	DrawUI()
}

// MenuProvider contributes menu entries.
type MenuProvider interface {
	Menu()
}

// HoverBidder takes part in the viewport hover auction.
// A negative bid means "not interested".
type HoverBidder interface {
	HoverBid() int
	Hover()
}

// DragBidder takes part in the viewport drag auction.
// A negative bid means "not interested".
type DragBidder interface {
	DragBid() int
	Drag()
}

// Capability is the set of per-frame callbacks an Activity provides.
type Capability uint8

const (
	CapUI Capability = 1 << iota
	CapUpdate
	CapHoverBid
	CapDragBid
	CapRender
	CapMenu
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapUI, "ui"},
	{CapUpdate, "update"},
	{CapHoverBid, "hover"},
	{CapDragBid, "drag"},
	{CapRender, "render"},
	{CapMenu, "menu"},
}

// Has reports whether every bit of other is set.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// CapabilityReporter lets an activity declare its capabilities explicitly
// instead of having them inferred from the interfaces it implements.
type CapabilityReporter interface {
	Capabilities() Capability
}

// CapabilitiesOf returns the capability set of a. A reported capability only
// counts when a also implements the matching interface.
func CapabilitiesOf(a Activity) Capability {
	c := implemented(a)
	if r, ok := a.(CapabilityReporter); ok {
		return c & r.Capabilities()
	}
	return c
}

func implemented(a Activity) Capability {
	var c Capability
	if _, ok := a.(UIDrawer); ok {
		c |= CapUI
	}
	if _, ok := a.(Updater); ok {
		c |= CapUpdate
	}
	if _, ok := a.(HoverBidder); ok {
		c |= CapHoverBid
	}
	if _, ok := a.(DragBidder); ok {
		c |= CapDragBid
	}
	if _, ok := a.(Renderer); ok {
		c |= CapRender
	}
	if _, ok := a.(MenuProvider); ok {
		c |= CapMenu
	}
	return c
}

// FuncActivity is an Activity assembled from optional callbacks.
// A callback left nil means the capability is not provided.
type FuncActivity struct {
	ActivityName string

	Activate   func()
	Deactivate func()

	UpdateFunc func(dt time.Duration)
	RenderFunc func()
	UIFunc     func()
	MenuFunc   func()

	HoverBidFunc func() int
	HoverFunc    func()
	DragBidFunc  func() int
	DragFunc     func()
}

func (f *FuncActivity) Name() string { return f.ActivityName }

func (f *FuncActivity) Capabilities() Capability {
	var c Capability
	if f.UIFunc != nil {
		c |= CapUI
	}
	if f.UpdateFunc != nil {
		c |= CapUpdate
	}
	if f.HoverBidFunc != nil && f.HoverFunc != nil {
		c |= CapHoverBid
	}
	if f.DragBidFunc != nil && f.DragFunc != nil {
		c |= CapDragBid
	}
	if f.RenderFunc != nil {
		c |= CapRender
	}
	if f.MenuFunc != nil {
		c |= CapMenu
	}
	return c
}

func (f *FuncActivity) OnActivate() {
	if f.Activate != nil {
		f.Activate()
	}
}

func (f *FuncActivity) OnDeactivate() {
	if f.Deactivate != nil {
		f.Deactivate()
	}
}

func (f *FuncActivity) Update(dt time.Duration) { f.UpdateFunc(dt) }
func (f *FuncActivity) Render()                 { f.RenderFunc() }
func (f *FuncActivity) DrawUI()                 { f.UIFunc() }
func (f *FuncActivity) Menu()                   { f.MenuFunc() }
func (f *FuncActivity) HoverBid() int           { return f.HoverBidFunc() }
func (f *FuncActivity) Hover()                  { f.HoverFunc() }
func (f *FuncActivity) DragBid() int            { return f.DragBidFunc() }
func (f *FuncActivity) Drag()                   { f.DragFunc() }

// ActivityHandle owns the active flag of an Activity instance.
// Activate and Deactivate are idempotent; the hooks only run on a state change.
type ActivityHandle struct {
	activity Activity
	caps     Capability
	active   bool
}

func newActivityHandle(a Activity) *ActivityHandle {
	return &ActivityHandle{activity: a, caps: CapabilitiesOf(a)}
}

// Name returns the activity name.
func (h *ActivityHandle) Name() string { return h.activity.Name() }

// Activity returns the wrapped instance.
func (h *ActivityHandle) Activity() Activity { return h.activity }

// Capabilities returns the capability set captured at instantiation.
func (h *ActivityHandle) Capabilities() Capability { return h.caps }

// Active reports whether the activity is active.
func (h *ActivityHandle) Active() bool { return h.active }

// Activate marks the activity active and runs its hook. It reports whether the state changed.
func (h *ActivityHandle) Activate() bool {
	if h.active {
		return false
	}
	h.active = true
	if hook, ok := h.activity.(ActivateHook); ok {
		hook.OnActivate()
	}
	return true
}

// Deactivate marks the activity inactive and runs its hook. It reports whether the state changed.
func (h *ActivityHandle) Deactivate() bool {
	if !h.active {
		return false
	}
	h.active = false
	if hook, ok := h.activity.(DeactivateHook); ok {
		hook.OnDeactivate()
	}
	return true
}
