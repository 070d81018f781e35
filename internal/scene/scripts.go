package scene

import "github.com/nidhogg/spritedash/internal/registry"

// specificChance is the probability of trying a role or pair script before
// falling back to the generic pool.
const specificChance = 0.6

var (
	fallbackChat = registry.Script{Lines: []registry.Line{
		{Speaker: 0, Text: "Hey!"},
		{Speaker: 1, Text: "Hey yourself."},
	}}
	fallbackTrigger = registry.Script{Lines: []registry.Line{
		{Speaker: 0, Text: "Run it now!"},
		{Speaker: 1, Text: "On it!"},
	}}
)

// scriptPolicy chooses conversation scripts. Speaker 0 is the first id
// passed in unless the chosen pair script names them the other way round,
// which conversation reports as swapped.
type scriptPolicy struct {
	scripts   registry.Scripts
	managerID string
	rnd       Random
}

func (p *scriptPolicy) conversation(a, b string) (registry.Script, bool) {
	if p.rnd.Float64() < specificChance {
		if p.managerID != "" && (a == p.managerID || b == p.managerID) {
			if s, ok := p.choose(p.scripts.ManagerCasual); ok {
				return s, b == p.managerID
			}
		} else {
			var pairs []registry.Script
			for _, s := range p.scripts.Pairs {
				if s.Matches(a, b) {
					pairs = append(pairs, s)
				}
			}
			if s, ok := p.choose(pairs); ok {
				return s, s.Match[0] == b
			}
		}
	}
	if s, ok := p.choose(p.scripts.Generic); ok {
		return s, false
	}
	return fallbackChat, false
}

// trigger returns the dispatch script for a worker, manager speaking first.
func (p *scriptPolicy) trigger(id string) registry.Script {
	if s, ok := p.scripts.Trigger[id]; ok && len(s.Lines) > 0 {
		return s
	}
	return fallbackTrigger
}

func (p *scriptPolicy) choose(pool []registry.Script) (registry.Script, bool) {
	if len(pool) == 0 {
		return registry.Script{}, false
	}
	return pool[p.rnd.Intn(len(pool))], true
}
