package engine

import "testing"

func testSession(t *testing.T, seedText string) (*Session, *recorder) {
	t.Helper()
	content, err := LoadContent()
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	p, err := content.PresetParty()
	if err != nil {
		t.Fatalf("PresetParty: %v", err)
	}
	rec := &recorder{}
	s, err := NewSession(seedText, p, content, rec, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, rec
}

func TestSessionTurnPageUpdatesBlackboard(t *testing.T) {
	s, _ := testSession(t, "session-seed")
	pg := s.TurnPage()
	if pg == nil || pg.ID != 1 {
		t.Fatalf("first page must be page 1: %+v", pg)
	}
	if s.Board.CurrentPage().ID != 1 {
		t.Fatalf("blackboard must track the current page")
	}
	if s.Board.LastEventTag() != string(pg.Type) {
		t.Fatalf("blackboard last event tag not set")
	}
}

func TestSessionRestRestores(t *testing.T) {
	s, _ := testSession(t, "rest-seed")
	s.TurnPage()
	for _, m := range s.Party.Members {
		m.HP = 1
		m.MP = 0
	}
	res := s.Apply(ActionRest)
	if !res.Rested {
		t.Fatalf("rest result not flagged")
	}
	for _, m := range s.Party.Members {
		if m.HP != m.Derived.MaxHP || m.MP != m.Derived.MaxMP {
			t.Fatalf("rest must fully restore %s", m.Name)
		}
	}
	if res.Page == nil {
		t.Fatalf("resting advances to the next page")
	}
}

func TestSessionChestGrantsLootAndGold(t *testing.T) {
	s, _ := testSession(t, "chest-seed")
	s.TurnPage()
	goldBefore := s.Party.Gold
	res := s.Apply(ActionOpenChest)
	if res.Loot == nil || res.Gold <= 0 {
		t.Fatalf("chest must yield loot and gold: %+v", res)
	}
	if s.Party.Gold != goldBefore+res.Gold {
		t.Fatalf("gold not credited")
	}
	found := false
	for _, it := range s.Party.Inventory {
		if it == res.Loot {
			found = true
		}
	}
	if !found {
		t.Fatalf("loot not added to the shared inventory")
	}
}

func TestSessionCombatLifecycle(t *testing.T) {
	s, rec := testSession(t, "battle-seed")
	s.page = &Page{ID: 1, Type: EncounterBattle, Title: "Bandit Camp", Difficulty: 1}
	res := s.Apply(ActionStartCombat)
	if !res.CombatStarted || s.Combat() == nil {
		t.Fatalf("combat not started")
	}
	if len(rec.ofType(EvCombatStart)) != 1 {
		t.Fatalf("combat_start not observed")
	}
	for i := 0; ; i++ {
		done, state := s.StepCombat()
		if done {
			if state != CombatWon {
				t.Fatalf("preset party must beat page-1 enemies, got %s", state)
			}
			break
		}
		if i > 2000 {
			t.Fatalf("combat did not settle")
		}
	}
	if s.Combat() != nil {
		t.Fatalf("settled combat must clear the session slot")
	}
	if len(rec.ofType(EvCombatEnd)) != 1 {
		t.Fatalf("combat_end not observed")
	}
}

func TestSessionDeterministicVote(t *testing.T) {
	s1, _ := testSession(t, "same-seed")
	s2, _ := testSession(t, "same-seed")
	s1.TurnPage()
	s2.TurnPage()
	out1 := s1.ResolveChoices(0)
	out2 := s2.ResolveChoices(0)
	if out1.WinnerIndex != out2.WinnerIndex {
		t.Fatalf("same seed, same vote: %d vs %d", out1.WinnerIndex, out2.WinnerIndex)
	}
}
