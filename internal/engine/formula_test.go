package engine

import "testing"

func TestParseFormulaPrecedence(t *testing.T) {
	st := Stats{Strength: 10, Intelligence: 8}
	cases := []struct {
		raw  string
		want float64
	}{
		{"STR * 1.2", 12},
		{"INT * 0.5 + 3", 7},
		{"3 + STR * 2", 23},
		{"5", 5},
		{"STR", 10},
		{"str * 0.8", 8}, // case-insensitive operands
	}
	for _, c := range cases {
		expr, err := ParseFormula(c.raw)
		if err != nil {
			t.Fatalf("ParseFormula(%q): %v", c.raw, err)
		}
		if got := expr.Eval(st); got != c.want {
			t.Fatalf("%q = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestParseFormulaAGIAlias(t *testing.T) {
	expr, err := ParseFormula("AGI * 2")
	if err != nil {
		t.Fatalf("ParseFormula: %v", err)
	}
	if got := expr.Eval(Stats{Dexterity: 7}); got != 14 {
		t.Fatalf("AGI should read Dexterity: got %v", got)
	}
}

func TestParseFormulaErrors(t *testing.T) {
	for _, raw := range []string{"", "STR * ", "HPX * 2", "STR ** 2"} {
		if _, err := ParseFormula(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("ally_hp_below 0.5")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if c.Kind != CondAllyHPBelow || c.Threshold != 0.5 {
		t.Fatalf("unexpected condition: %+v", c)
	}
	if c2, err := ParseCondition(""); err != nil || !c2.IsZero() {
		t.Fatalf("empty condition must parse to zero value")
	}
	for _, raw := range []string{"own_hp_below", "own_hp_below 1.5", "sanity_below 0.5"} {
		if _, err := ParseCondition(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestConditionHolds(t *testing.T) {
	healer := NewCharacter("Silas", ClassHealer)
	ally := NewCharacter("Chris", ClassWarrior)
	cond := CardCondition{Kind: CondAllyHPBelow, Threshold: 0.5}

	if cond.Holds(healer, []*Character{healer, ally}) {
		t.Fatalf("condition should not hold with everyone at full HP")
	}
	ally.HP = ally.Derived.MaxHP / 4
	if !cond.Holds(healer, []*Character{healer, ally}) {
		t.Fatalf("condition should hold with an ally at 25%% HP")
	}
	ally.HP = 0
	if cond.Holds(healer, []*Character{healer, ally}) {
		t.Fatalf("dead allies must not satisfy the condition")
	}

	own := CardCondition{Kind: CondOwnHPBelow, Threshold: 0.3}
	healer.HP = healer.Derived.MaxHP / 10
	if !own.Holds(healer, nil) {
		t.Fatalf("own-HP condition should hold at 10%% HP")
	}
}
