package scene

import (
	"testing"

	"github.com/nidhogg/spritedash/internal/registry"
)

func policyScripts() registry.Scripts {
	return registry.Scripts{
		Generic: []registry.Script{{Lines: []registry.Line{{Speaker: 0, Text: "generic"}}}},
		Pairs: []registry.Script{{
			Match: []string{"b", "a"},
			Lines: []registry.Line{{Speaker: 0, Text: "pair"}},
		}},
		ManagerCasual: []registry.Script{{Lines: []registry.Line{{Speaker: 0, Text: "boss"}}}},
	}
}

func TestConversationPrefersPairScript(t *testing.T) {
	p := scriptPolicy{scripts: policyScripts(), managerID: "m", rnd: &stubRandom{floats: []float64{0.1}}}
	s, swapped := p.conversation("a", "b")
	if s.Lines[0].Text != "pair" {
		t.Fatalf("script = %q, want pair", s.Lines[0].Text)
	}
	if !swapped {
		t.Error("pair script names b first; speakers should be swapped")
	}
}

func TestConversationManagerSpeaksFirst(t *testing.T) {
	p := scriptPolicy{scripts: policyScripts(), managerID: "m", rnd: &stubRandom{floats: []float64{0.1, 0.1}}}
	if s, swapped := p.conversation("m", "a"); s.Lines[0].Text != "boss" || swapped {
		t.Errorf("m,a: %q swapped=%v", s.Lines[0].Text, swapped)
	}
	if s, swapped := p.conversation("a", "m"); s.Lines[0].Text != "boss" || !swapped {
		t.Errorf("a,m: %q swapped=%v", s.Lines[0].Text, swapped)
	}
}

func TestConversationFallsBackToGeneric(t *testing.T) {
	p := scriptPolicy{scripts: policyScripts(), managerID: "m", rnd: &stubRandom{floats: []float64{0.9, 0.1}}}
	if s, _ := p.conversation("a", "b"); s.Lines[0].Text != "generic" {
		t.Errorf("roll above threshold: %q", s.Lines[0].Text)
	}
	if s, _ := p.conversation("a", "c"); s.Lines[0].Text != "generic" {
		t.Errorf("no pair match: %q", s.Lines[0].Text)
	}

	empty := scriptPolicy{rnd: &stubRandom{}}
	if s, _ := empty.conversation("a", "b"); len(s.Lines) == 0 {
		t.Error("empty registry produced an empty script")
	}
}

func TestTriggerScriptFallback(t *testing.T) {
	p := scriptPolicy{scripts: testScripts(), rnd: &stubRandom{}}
	if s := p.trigger("a"); s.Lines[0].Text != "Run a now." {
		t.Errorf("trigger(a) = %q", s.Lines[0].Text)
	}
	if s := p.trigger("b"); s.Lines[0].Text != "Run it now!" {
		t.Errorf("trigger(b) = %q", s.Lines[0].Text)
	}
}
