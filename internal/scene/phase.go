package scene

// WanderPhase is a worker's movement sub-state. It is independent of Status:
// the idle cycle only advances while the worker is idle, and the interaction
// phases are owned by the choreographer.
type WanderPhase int

const (
	PhaseSitting WanderPhase = iota
	PhasePausing
	PhaseWandering
	PhaseReturning
	PhaseInteractionWalk
	PhaseInteractionConverse
	PhaseInteractionReturn
)

var wanderPhaseNames = [...]string{
	PhaseSitting:             "sitting",
	PhasePausing:             "pausing",
	PhaseWandering:           "wandering",
	PhaseReturning:           "returning",
	PhaseInteractionWalk:     "interaction_walk",
	PhaseInteractionConverse: "interaction_converse",
	PhaseInteractionReturn:   "interaction_return",
}

func (p WanderPhase) String() string {
	if int(p) < 0 || int(p) >= len(wanderPhaseNames) {
		return "unknown"
	}
	return wanderPhaseNames[p]
}

// Interacting reports whether p is one of the choreographer-driven phases.
func (p WanderPhase) Interacting() bool {
	return p >= PhaseInteractionWalk
}

// wanderTransitions lists every legal phase change. A dispatch target is
// frozen straight into the converse phase from wherever its idle cycle was.
var wanderTransitions = map[WanderPhase][]WanderPhase{
	PhaseSitting:             {PhaseSitting, PhasePausing, PhaseReturning, PhaseInteractionWalk, PhaseInteractionConverse},
	PhasePausing:             {PhaseSitting, PhaseWandering, PhaseReturning, PhaseInteractionWalk, PhaseInteractionConverse},
	PhaseWandering:           {PhaseSitting, PhasePausing, PhaseReturning, PhaseInteractionWalk, PhaseInteractionConverse},
	PhaseReturning:           {PhaseSitting, PhaseReturning, PhaseInteractionWalk, PhaseInteractionConverse},
	PhaseInteractionWalk:     {PhaseInteractionConverse},
	PhaseInteractionConverse: {PhaseInteractionReturn},
	PhaseInteractionReturn:   {PhaseSitting},
}

func (p WanderPhase) canMoveTo(next WanderPhase) bool {
	for _, n := range wanderTransitions[p] {
		if n == next {
			return true
		}
	}
	return false
}

// ChoreoPhase is the choreographer's top-level state.
type ChoreoPhase int

const (
	ChoreoIdle ChoreoPhase = iota
	ChoreoWalking
	ChoreoConversing
	ChoreoReturning
	ChoreoTriggerWalk
	ChoreoTriggerConverse
	ChoreoTriggerWorking
	ChoreoTriggerReturn
)

var choreoPhaseNames = [...]string{
	ChoreoIdle:            "idle",
	ChoreoWalking:         "walking",
	ChoreoConversing:      "conversing",
	ChoreoReturning:       "returning",
	ChoreoTriggerWalk:     "trigger_walk",
	ChoreoTriggerConverse: "trigger_converse",
	ChoreoTriggerWorking:  "trigger_working",
	ChoreoTriggerReturn:   "trigger_return",
}

func (p ChoreoPhase) String() string {
	if int(p) < 0 || int(p) >= len(choreoPhaseNames) {
		return "unknown"
	}
	return choreoPhaseNames[p]
}

var choreoTransitions = map[ChoreoPhase]ChoreoPhase{
	ChoreoWalking:         ChoreoConversing,
	ChoreoConversing:      ChoreoReturning,
	ChoreoReturning:       ChoreoIdle,
	ChoreoTriggerWalk:     ChoreoTriggerConverse,
	ChoreoTriggerConverse: ChoreoTriggerWorking,
	ChoreoTriggerWorking:  ChoreoTriggerReturn,
	ChoreoTriggerReturn:   ChoreoIdle,
}

// canMoveTo reports whether next follows p. Idle is the only fork: it opens
// either a conversation or a dispatch.
func (p ChoreoPhase) canMoveTo(next ChoreoPhase) bool {
	if p == ChoreoIdle {
		return next == ChoreoWalking || next == ChoreoTriggerWalk
	}
	return choreoTransitions[p] == next
}
