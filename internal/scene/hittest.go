package scene

// HitPadding expands every hit box on all sides.
const HitPadding = 8.0

// EntityKind distinguishes the two selectable agent types.
type EntityKind string

const (
	KindWorker EntityKind = "worker"
	KindInfra  EntityKind = "infra"
)

// Selection identifies a selected agent.
type Selection struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Resolver maps world points to agents.
type Resolver struct {
	workers   []*Worker
	furniture []*Furniture
}

// NewResolver creates a resolver over the given agents. The slices are
// borrowed, not copied.
func NewResolver(workers []*Worker, furniture []*Furniture) *Resolver {
	return &Resolver{workers: workers, furniture: furniture}
}

type hit struct {
	worker    *Worker
	furniture *Furniture
}

func (h hit) selection() *Selection {
	switch {
	case h.worker != nil:
		return &Selection{Kind: KindWorker, ID: h.worker.ID()}
	case h.furniture != nil:
		return &Selection{Kind: KindInfra, ID: h.furniture.ID()}
	}
	return nil
}

// Resolve returns the agent under p, or nil. Sprites always win over
// furniture; among overlapping sprites the nearest box centre wins.
func (r *Resolver) Resolve(p Position) *Selection {
	return r.resolve(p).selection()
}

// Pick resolves p and plays the acknowledgment on the match: a speech bubble
// for a sprite, a pulse for furniture.
func (r *Resolver) Pick(p Position) *Selection {
	h := r.resolve(p)
	switch {
	case h.worker != nil:
		h.worker.Acknowledge()
	case h.furniture != nil:
		h.furniture.Pulse()
	}
	return h.selection()
}

func (r *Resolver) resolve(p Position) hit {
	var best *Worker
	bestDist := 0.0
	for _, w := range r.workers {
		box := w.Bounds()
		if !box.Pad(HitPadding).Contains(p) {
			continue
		}
		d := p.DistSq(box.Center())
		if best == nil || d < bestDist {
			best, bestDist = w, d
		}
	}
	if best != nil {
		return hit{worker: best}
	}
	for _, f := range r.furniture {
		if f.Bounds().Pad(HitPadding).Contains(p) {
			return hit{furniture: f}
		}
	}
	return hit{}
}
