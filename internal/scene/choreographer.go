package scene

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/spritedash/internal/registry"
	"go.uber.org/zap"
)

const (
	chatCountdownMin = 1200
	chatCountdownMax = 2400

	LineTicks    = 150
	LineGapTicks = 30

	meetingOffset = 20.0
	triggerOffset = 50.0

	BriefWorkingDelay = 3 * time.Second
)

// EventKind names something the scene reports to its observers.
type EventKind string

const (
	EventChatStarted      EventKind = "chat_started"
	EventChatFinished     EventKind = "chat_finished"
	EventDispatchStarted  EventKind = "dispatch_started"
	EventDispatchFinished EventKind = "dispatch_finished"
	EventStatusChanged    EventKind = "status_changed"
	EventSelected         EventKind = "selected"
)

// Event is a notable scene occurrence.
type Event struct {
	Kind      EventKind  `json:"kind"`
	Session   string     `json:"session,omitempty"`
	Workers   []string   `json:"workers,omitempty"`
	Text      string     `json:"text"`
	Status    Status     `json:"status,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
}

// EventSink receives scene events. Emit is called with the scene lock held
// and must not block or call back into the scene.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// session is one conversation or dispatch. For a dispatch speakers[0] is the
// manager and speakers[1] the target.
type session struct {
	id       string
	speakers [2]*Worker
	trigger  bool
	script   registry.Script
	line     int
	timer    int
}

// Choreographer runs spontaneous conversations and manager dispatches. It
// borrows the scene's workers and must be destroyed before they are.
type Choreographer struct {
	workers []*Worker
	byID    map[string]*Worker
	manager *Worker
	policy  scriptPolicy

	rnd   Random
	after afterFunc
	sink  EventSink

	phase     ChoreoPhase
	countdown int
	sess      *session
	destroyed bool

	logger *zap.Logger
}

// NewChoreographer creates an idle choreographer over workers, whose order
// is the order availability is scanned in.
func NewChoreographer(workers []*Worker, scripts registry.Scripts, rnd Random, after func(time.Duration, func()), sink EventSink, logger *zap.Logger) *Choreographer {
	if sink == nil {
		sink = nopSink{}
	}
	c := &Choreographer{
		workers: workers,
		byID:    make(map[string]*Worker, len(workers)),
		rnd:     rnd,
		after:   after,
		sink:    sink,
		logger:  logger,
	}
	for _, w := range workers {
		c.byID[w.ID()] = w
		if w.IsManager() && c.manager == nil {
			c.manager = w
		}
	}
	c.policy = scriptPolicy{scripts: scripts, rnd: rnd}
	if c.manager != nil {
		c.policy.managerID = c.manager.ID()
	}
	c.countdown = c.seed()
	return c
}

// Phase returns the current top-level state.
func (c *Choreographer) Phase() ChoreoPhase { return c.phase }

// IsBusy reports whether a conversation or dispatch is in progress.
func (c *Choreographer) IsBusy() bool { return c.phase != ChoreoIdle }

// Countdown returns the ticks left before the next spontaneous attempt.
func (c *Choreographer) Countdown() int { return c.countdown }

func (c *Choreographer) seed() int {
	return between(c.rnd, chatCountdownMin, chatCountdownMax)
}

func (c *Choreographer) setPhase(next ChoreoPhase) {
	if !c.phase.canMoveTo(next) {
		panic(fmt.Sprintf("choreographer: illegal transition %s -> %s", c.phase, next))
	}
	c.logger.Debug("choreographer phase",
		zap.String("from", c.phase.String()),
		zap.String("to", next.String()))
	c.phase = next
}

// Tick advances countdowns and conversation lines. Movement is advanced by
// the workers' own ticks, which run first.
func (c *Choreographer) Tick() {
	if c.destroyed {
		return
	}
	switch c.phase {
	case ChoreoIdle:
		c.countdown--
		if c.countdown <= 0 {
			c.tryStartConversation()
			c.countdown = c.seed()
		}
	case ChoreoConversing, ChoreoTriggerConverse:
		c.advanceLine()
	}
}

// ForceChat starts a spontaneous conversation now. It is ignored unless the
// choreographer is idle and reports whether a conversation started.
func (c *Choreographer) ForceChat() bool {
	if c.destroyed || c.phase != ChoreoIdle {
		return false
	}
	started := c.tryStartConversation()
	c.countdown = c.seed()
	return started
}

func (c *Choreographer) available() []*Worker {
	var out []*Worker
	for _, w := range c.workers {
		if w.Available() {
			out = append(out, w)
		}
	}
	return out
}

func (c *Choreographer) tryStartConversation() bool {
	avail := c.available()
	if len(avail) < 2 {
		return false
	}
	i := c.rnd.Intn(len(avail))
	j := c.rnd.Intn(len(avail) - 1)
	if j >= i {
		j++
	}
	a, b := avail[i], avail[j]

	meet := Midpoint(a.Home(), b.Home())
	meet.Y = clamp(meet.Y, SafeMinY, SafeMaxY)

	s := &session{id: uuid.NewString(), speakers: [2]*Worker{a, b}}
	c.sess = s
	barrier := newRendezvous(2, func() { c.startConversation(s) })

	a.WalkToPoint(meet.Add(-meetingOffset, 0))
	a.OnArrive(func() { barrier.Arrive(a.ID()) })
	b.WalkToPoint(meet.Add(meetingOffset, 0))
	b.OnArrive(func() { barrier.Arrive(b.ID()) })

	c.setPhase(ChoreoWalking)
	c.logger.Debug("conversation arranged",
		zap.String("session", s.id),
		zap.String("a", a.ID()),
		zap.String("b", b.ID()))
	return true
}

func (c *Choreographer) startConversation(s *session) {
	if c.destroyed || c.sess != s {
		return
	}
	a, b := s.speakers[0], s.speakers[1]
	a.StartConversing()
	b.StartConversing()

	script, swapped := c.policy.conversation(a.ID(), b.ID())
	if swapped {
		s.speakers = [2]*Worker{b, a}
	}
	s.script = script
	s.line = 0
	c.setPhase(ChoreoConversing)
	c.showLine(s)

	c.sink.Emit(Event{
		Kind:    EventChatStarted,
		Session: s.id,
		Workers: []string{a.ID(), b.ID()},
		Text:    fmt.Sprintf("%s and %s are chatting", a.Name(), b.Name()),
	})
}

func (c *Choreographer) showLine(s *session) {
	l := s.script.Lines[s.line]
	speaker := s.speakers[0]
	if l.Speaker == 1 {
		speaker = s.speakers[1]
	}
	speaker.Say(l.Text)
	s.timer = LineTicks + LineGapTicks
}

func (c *Choreographer) advanceLine() {
	s := c.sess
	if s == nil {
		return
	}
	s.timer--
	if s.timer > 0 {
		return
	}
	s.line++
	if s.line < len(s.script.Lines) {
		c.showLine(s)
		return
	}
	if s.trigger {
		c.startBriefWorking(s)
		return
	}
	c.returnConversation(s)
}

func (c *Choreographer) returnConversation(s *session) {
	c.setPhase(ChoreoReturning)
	done := newRendezvous(2, func() { c.endSession(s) })
	for _, w := range s.speakers {
		w := w
		w.ReturnFromInteraction()
		w.OnArrive(func() {
			w.FinishInteraction()
			done.Arrive(w.ID())
		})
	}
}

// TriggerWorker sends the manager to the target worker with a dispatch
// script. It is ignored unless the choreographer is idle, and reports
// whether the dispatch started.
func (c *Choreographer) TriggerWorker(id string) bool {
	if c.destroyed || c.phase != ChoreoIdle || c.manager == nil {
		return false
	}
	target, ok := c.byID[id]
	if !ok || target == c.manager || target.Interacting() || c.manager.Interacting() {
		return false
	}
	m := c.manager

	s := &session{id: uuid.NewString(), speakers: [2]*Worker{m, target}, trigger: true}
	c.sess = s
	target.StartConversing()

	dest := target.Position().Add(-triggerOffset, 0)
	dest.X = clamp(dest.X, SpriteSize/2, WorldWidth-SpriteSize/2)
	m.WalkToPoint(dest)
	m.OnArrive(func() { c.beginDispatchScript(s) })
	c.setPhase(ChoreoTriggerWalk)

	c.logger.Info("dispatch started",
		zap.String("session", s.id),
		zap.String("target", id))
	c.sink.Emit(Event{
		Kind:    EventDispatchStarted,
		Session: s.id,
		Workers: []string{m.ID(), id},
		Text:    fmt.Sprintf("%s dispatched %s", m.Name(), target.Name()),
	})
	return true
}

func (c *Choreographer) beginDispatchScript(s *session) {
	if c.destroyed || c.sess != s {
		return
	}
	s.speakers[0].StartConversing()
	s.script = c.policy.trigger(s.speakers[1].ID())
	s.line = 0
	c.setPhase(ChoreoTriggerConverse)
	c.showLine(s)
}

func (c *Choreographer) startBriefWorking(s *session) {
	c.setPhase(ChoreoTriggerWorking)
	s.speakers[1].PlayBriefWorking()
	c.after(BriefWorkingDelay, func() { c.endBriefWorking(s) })
}

func (c *Choreographer) endBriefWorking(s *session) {
	if c.destroyed || c.sess != s || c.phase != ChoreoTriggerWorking {
		return
	}
	m, target := s.speakers[0], s.speakers[1]
	target.EndBriefWorking()
	c.setPhase(ChoreoTriggerReturn)

	m.ReturnFromInteraction()
	m.OnArrive(func() {
		m.FinishInteraction()
		c.endSession(s)
	})
	target.ReturnFromInteraction()
	target.OnArrive(target.FinishInteraction)
}

func (c *Choreographer) endSession(s *session) {
	if c.destroyed || c.sess != s {
		return
	}
	c.sess = nil
	c.setPhase(ChoreoIdle)

	ev := Event{Session: s.id, Workers: []string{s.speakers[0].ID(), s.speakers[1].ID()}}
	if s.trigger {
		ev.Kind = EventDispatchFinished
		ev.Text = fmt.Sprintf("%s finished a run", s.speakers[1].Name())
	} else {
		ev.Kind = EventChatFinished
		ev.Text = fmt.Sprintf("%s and %s went back to work", s.speakers[0].Name(), s.speakers[1].Name())
	}
	c.sink.Emit(ev)
}

// SessionView describes the interaction in progress.
type SessionView struct {
	ID           string   `json:"id"`
	Dispatch     bool     `json:"dispatch"`
	Participants []string `json:"participants"`
	Line         int      `json:"line"`
	Lines        int      `json:"lines"`
}

// Session returns the interaction in progress, or nil.
func (c *Choreographer) Session() *SessionView {
	s := c.sess
	if s == nil {
		return nil
	}
	return &SessionView{
		ID:           s.id,
		Dispatch:     s.trigger,
		Participants: []string{s.speakers[0].ID(), s.speakers[1].ID()},
		Line:         s.line,
		Lines:        len(s.script.Lines),
	}
}

// Destroy drops every borrowed worker reference. Callbacks still registered
// on workers become no-ops.
func (c *Choreographer) Destroy() {
	c.destroyed = true
	c.sess = nil
	c.workers = nil
	c.byID = nil
	c.manager = nil
}
