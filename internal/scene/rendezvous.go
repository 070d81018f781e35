package scene

// rendezvous fires its continuation once a fixed number of distinct
// participants have arrived. Repeat arrivals from the same participant are
// ignored and it never fires twice.
type rendezvous struct {
	need    int
	arrived map[string]struct{}
	fired   bool
	then    func()
}

func newRendezvous(need int, then func()) *rendezvous {
	return &rendezvous{need: need, arrived: make(map[string]struct{}, need), then: then}
}

// Arrive records id and reports whether this arrival fired the continuation.
func (r *rendezvous) Arrive(id string) bool {
	if r.fired {
		return false
	}
	r.arrived[id] = struct{}{}
	if len(r.arrived) < r.need {
		return false
	}
	r.fired = true
	if r.then != nil {
		r.then()
	}
	return true
}

// Count returns the number of distinct arrivals so far.
func (r *rendezvous) Count() int { return len(r.arrived) }
