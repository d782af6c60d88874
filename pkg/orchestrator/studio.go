package orchestrator

// EmptyStudioName is the built-in fallback Studio activated when no other is.
const EmptyStudioName = "Empty"

// Studio is a named workspace preset: a set of activities activated together.
type Studio interface {
	Name() string
	// Activities lists the activity names the studio activates.
	Activities() []string
	// Exclusive studios deactivate every active activity they do not list.
	Exclusive() bool
	// MustDeactivateUnrelatedActivitiesOnActivation reports whether this studio's
	// activities are deactivated when another studio replaces it.
	MustDeactivateUnrelatedActivitiesOnActivation() bool
}

// BasicStudio is a Studio described by plain data.
type BasicStudio struct {
	StudioName    string
	ActivityNames []string
	IsExclusive   bool
	// KeepActivities leaves this studio's activities running when it is replaced.
	KeepActivities bool

	OnActivateFunc   func()
	OnDeactivateFunc func()
}

func (s *BasicStudio) Name() string         { return s.StudioName }
func (s *BasicStudio) Activities() []string { return s.ActivityNames }
func (s *BasicStudio) Exclusive() bool      { return s.IsExclusive }

func (s *BasicStudio) MustDeactivateUnrelatedActivitiesOnActivation() bool {
	return !s.KeepActivities
}

func (s *BasicStudio) OnActivate() {
	if s.OnActivateFunc != nil {
		s.OnActivateFunc()
	}
}

func (s *BasicStudio) OnDeactivate() {
	if s.OnDeactivateFunc != nil {
		s.OnDeactivateFunc()
	}
}

// NewEmptyStudio returns the fallback studio: no activities, not exclusive.
func NewEmptyStudio() Studio {
	return &BasicStudio{StudioName: EmptyStudioName}
}

// StudioHandle owns the active flag of a Studio instance.
type StudioHandle struct {
	studio Studio
	active bool
}

// Name returns the studio name.
func (h *StudioHandle) Name() string { return h.studio.Name() }

// Studio returns the wrapped instance.
func (h *StudioHandle) Studio() Studio { return h.studio }

// Active reports whether this is the current studio.
func (h *StudioHandle) Active() bool { return h.active }

func (h *StudioHandle) activate() {
	if h.active {
		return
	}
	h.active = true
	if hook, ok := h.studio.(ActivateHook); ok {
		hook.OnActivate()
	}
}

func (h *StudioHandle) deactivate() {
	if !h.active {
		return
	}
	h.active = false
	if hook, ok := h.studio.(DeactivateHook); ok {
		hook.OnDeactivate()
	}
}
