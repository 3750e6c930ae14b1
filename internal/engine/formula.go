package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Card formulas are a closed expression language over the actor's primary
// stats, e.g. "STR * 1.2" or "INT * 0.5 + 3". Strings are parsed once at
// data load into an Expr tree; evaluation is total and cannot fail, which
// keeps the turn loop free of formula errors at runtime.

type StatAlias string

const (
	AliasSTR StatAlias = "STR"
	AliasDEX StatAlias = "DEX"
	AliasINT StatAlias = "INT"
	AliasVIT StatAlias = "VIT"
	AliasLUK StatAlias = "LUK"
	// AGI is accepted in data files as a legacy alias for DEX.
	AliasAGI StatAlias = "AGI"
)

// Expr is a parsed formula node.
type Expr interface {
	Eval(st Stats) float64
	String() string
}

type ConstExpr float64

func (c ConstExpr) Eval(Stats) float64 { return float64(c) }
func (c ConstExpr) String() string     { return strconv.FormatFloat(float64(c), 'g', -1, 64) }

type StatExpr StatAlias

func (s StatExpr) Eval(st Stats) float64 {
	switch StatAlias(s) {
	case AliasSTR:
		return float64(st.Strength)
	case AliasDEX, AliasAGI:
		return float64(st.Dexterity)
	case AliasINT:
		return float64(st.Intelligence)
	case AliasVIT:
		return float64(st.Vitality)
	case AliasLUK:
		return float64(st.Luck)
	default:
		return 0
	}
}
func (s StatExpr) String() string { return string(s) }

type MulExpr struct{ L, R Expr }

func (m MulExpr) Eval(st Stats) float64 { return m.L.Eval(st) * m.R.Eval(st) }
func (m MulExpr) String() string        { return m.L.String() + " * " + m.R.String() }

type AddExpr struct{ L, R Expr }

func (a AddExpr) Eval(st Stats) float64 { return a.L.Eval(st) + a.R.Eval(st) }
func (a AddExpr) String() string        { return a.L.String() + " + " + a.R.String() }

// ParseFormula parses "STR * 1.2 + 3" style strings. Supported operators
// are + and * with conventional precedence; operands are stat aliases or
// numeric literals.
func ParseFormula(raw string) (Expr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty formula")
	}
	terms := strings.Split(raw, "+")
	var sum Expr
	for _, term := range terms {
		factors := strings.Split(term, "*")
		var prod Expr
		for _, f := range factors {
			atom, err := parseAtom(f)
			if err != nil {
				return nil, fmt.Errorf("formula %q: %w", raw, err)
			}
			if prod == nil {
				prod = atom
			} else {
				prod = MulExpr{L: prod, R: atom}
			}
		}
		if prod == nil {
			return nil, fmt.Errorf("formula %q: empty term", raw)
		}
		if sum == nil {
			sum = prod
		} else {
			sum = AddExpr{L: sum, R: prod}
		}
	}
	return sum, nil
}

func parseAtom(raw string) (Expr, error) {
	tok := strings.ToUpper(strings.TrimSpace(raw))
	if tok == "" {
		return nil, fmt.Errorf("empty operand")
	}
	switch StatAlias(tok) {
	case AliasSTR, AliasDEX, AliasINT, AliasVIT, AliasLUK, AliasAGI:
		return StatExpr(tok), nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("unknown operand %q", raw)
	}
	return ConstExpr(v), nil
}

// CardCondition is the typed trigger predicate for Sub cards. Exactly one
// kind is set; a zero CardCondition means "no condition".
type CardCondition struct {
	Kind      ConditionKind
	Threshold float64 // HP ratio, e.g. 0.5 for "below 50%"
}

type ConditionKind string

const (
	CondNone        ConditionKind = ""
	CondOwnHPBelow  ConditionKind = "own_hp_below"
	CondAllyHPBelow ConditionKind = "ally_hp_below"
)

// ParseCondition accepts the data-file forms "own_hp_below 0.5" and
// "ally_hp_below 0.3". An empty string is the unconditional case.
func ParseCondition(raw string) (CardCondition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CardCondition{}, nil
	}
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return CardCondition{}, fmt.Errorf("condition %q: want '<kind> <ratio>'", raw)
	}
	kind := ConditionKind(strings.ToLower(fields[0]))
	switch kind {
	case CondOwnHPBelow, CondAllyHPBelow:
	default:
		return CardCondition{}, fmt.Errorf("condition %q: unknown kind", raw)
	}
	th, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || th <= 0 || th > 1 {
		return CardCondition{}, fmt.Errorf("condition %q: ratio must be in (0,1]", raw)
	}
	return CardCondition{Kind: kind, Threshold: th}, nil
}

// Holds evaluates the condition for an actor and its living allies.
func (c CardCondition) Holds(actor *Character, allies []*Character) bool {
	switch c.Kind {
	case CondNone:
		return false
	case CondOwnHPBelow:
		return actor.HPRatio() < c.Threshold
	case CondAllyHPBelow:
		for _, a := range allies {
			if a.IsAlive() && a.HPRatio() < c.Threshold {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsZero reports whether the card has no trigger condition.
func (c CardCondition) IsZero() bool { return c.Kind == CondNone }

// String renders the data-file form accepted by ParseCondition; the zero
// condition renders empty.
func (c CardCondition) String() string {
	if c.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %g", c.Kind, c.Threshold)
}
