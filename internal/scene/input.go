package scene

import "time"

const (
	// ClickDebounce drops duplicate deliveries of one physical click.
	ClickDebounce = 150 * time.Millisecond
	// DoubleClickWindow is the longest gap between two accepted clicks on the
	// same sprite that still counts as a double click.
	DoubleClickWindow = 400 * time.Millisecond
)

// ActionKind is what a routed input asks the scene to do.
type ActionKind string

const (
	ActionNone      ActionKind = "none"
	ActionSelect    ActionKind = "select"
	ActionDispatch  ActionKind = "dispatch"
	ActionForceChat ActionKind = "force_chat"
)

// Action is the outcome of routing one input. For ActionSelect a nil
// Selection means the selection was cleared. Accepted is filled in by the
// scene once the action has been carried out.
type Action struct {
	Kind      ActionKind `json:"kind"`
	ID        string     `json:"id,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
	Accepted  bool       `json:"accepted"`
}

// InputRouter turns resolved clicks and key presses into actions. Several
// event sources may deliver the same physical click, so clicks inside the
// debounce window are dropped.
type InputRouter struct {
	now       func() time.Time
	managerID string
	shortcuts []string

	lastAccepted time.Time
	lastClickID  string
	lastClickAt  time.Time
	selection    *Selection
}

// NewInputRouter creates a router. shortcuts lists the worker ids bound to
// the number keys, in order.
func NewInputRouter(now func() time.Time, managerID string, shortcuts []string) *InputRouter {
	if now == nil {
		now = time.Now
	}
	return &InputRouter{
		now:       now,
		managerID: managerID,
		shortcuts: append([]string(nil), shortcuts...),
	}
}

// Selection returns the current selection, or nil.
func (r *InputRouter) Selection() *Selection {
	if r.selection == nil {
		return nil
	}
	s := *r.selection
	return &s
}

// Click routes a resolved click. A nil hit is a click on empty floor and
// does nothing.
func (r *InputRouter) Click(hit *Selection) Action {
	if hit == nil {
		return Action{Kind: ActionNone}
	}
	now := r.now()
	if !r.lastAccepted.IsZero() && now.Sub(r.lastAccepted) < ClickDebounce {
		return Action{Kind: ActionNone}
	}
	r.lastAccepted = now

	if hit.Kind == KindWorker && hit.ID == r.lastClickID && now.Sub(r.lastClickAt) <= DoubleClickWindow {
		r.lastClickID = ""
		if hit.ID == r.managerID {
			return Action{Kind: ActionForceChat}
		}
		return Action{Kind: ActionDispatch, ID: hit.ID}
	}
	if hit.Kind == KindWorker {
		r.lastClickID, r.lastClickAt = hit.ID, now
	} else {
		r.lastClickID = ""
	}

	if r.selection != nil && *r.selection == *hit {
		r.selection = nil
		return Action{Kind: ActionSelect}
	}
	sel := *hit
	r.selection = &sel
	return Action{Kind: ActionSelect, Selection: r.Selection()}
}

// Key routes a key press. Digits dispatch the matching worker and 'c'
// forces a conversation. Keys typed into a text field are ignored.
func (r *InputRouter) Key(key rune, inTextInput bool) Action {
	if inTextInput {
		return Action{Kind: ActionNone}
	}
	switch {
	case key >= '1' && key <= '9':
		idx := int(key - '1')
		if idx >= len(r.shortcuts) {
			return Action{Kind: ActionNone}
		}
		return Action{Kind: ActionDispatch, ID: r.shortcuts[idx]}
	case key == 'c' || key == 'C':
		return Action{Kind: ActionForceChat}
	}
	return Action{Kind: ActionNone}
}

// ClearSelection drops the current selection.
func (r *InputRouter) ClearSelection() {
	r.selection = nil
}
