package ui

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/veylan/tome-tui/internal/engine"
)

func TestEventQueueDrainsOnce(t *testing.T) {
	q := &eventQueue{}
	q.OnCombatEvent(engine.Event{Type: engine.EvCombatUpdate, Round: 1})
	q.OnCombatEvent(engine.Event{Type: engine.EvCombatEnd, IsWin: true})
	if got := q.Drain(); len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("second drain should be empty, got %d", len(got))
	}
}

func TestRenderEventLines(t *testing.T) {
	a := engine.NewCharacter("Chris", engine.ClassWarrior)
	b := engine.NewCharacter("Goblin", engine.ClassBarbarian)
	hit := engine.Event{Type: engine.EvAction, Action: engine.ActAttack, Attacker: a, Target: b, Amount: 7, IsCrit: true, CardName: "Shield_Bash"}
	if got := renderEvent(hit); got != "Chris hits Goblin with Shield_Bash for 7 (critical!)" {
		t.Fatalf("unexpected line: %q", got)
	}
	if got := renderEvent(engine.Event{Type: engine.EvCombatEnd}); got != "The party is broken." {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestOneChoiceAdvancesOnePage(t *testing.T) {
	content, err := engine.LoadContent()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	party, err := content.PresetParty()
	if err != nil {
		t.Fatalf("party: %v", err)
	}
	s, err := engine.NewSession("page-pacing", party, content, nil, nil)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	m := model{ctx: context.Background(), session: s, queue: &eventQueue{}, log: zap.NewNop(), theme: "catppuccin"}
	m.turnPage()

	for _, action := range []engine.ActionTag{engine.ActionRest, engine.ActionNextPage, engine.ActionLeave} {
		before := m.session.Page().ID
		m.applyChoice(engine.PageChoice{Text: "onward", Action: action})
		if got := m.session.Page().ID; got != before+1 {
			t.Fatalf("action %s: page %d -> %d, want exactly one page forward", action, before, got)
		}
		if m.view != viewPage {
			t.Fatalf("action %s: expected page view, got %s", action, m.view)
		}
	}
}

func TestFreshPartyRoster(t *testing.T) {
	p, err := freshParty()
	if err != nil {
		t.Fatalf("fresh party: %v", err)
	}
	if len(p.Members) != engine.PartyCapacity {
		t.Fatalf("want a full roster, got %d", len(p.Members))
	}
	if got := p.Members[0].Personality.Type(); got != "ESTJ" {
		t.Fatalf("archetype not applied: %s", got)
	}
	for _, member := range p.Members {
		if !member.IsAlive() {
			t.Fatalf("%s starts dead", member.Name)
		}
	}
}

func TestThemeCycleReturnsHome(t *testing.T) {
	name := "catppuccin"
	for range themeNames() {
		name = nextThemeName(name)
	}
	if name != "catppuccin" {
		t.Fatalf("cycle did not return to start: %q", name)
	}
}
