package engine

import "fmt"

// Snapshot is the serializable form of a Character: every persistent field
// from the data model, minus round-ephemeral initiative and derived stats
// (which are recomputed on load).
type Snapshot struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Class JobClass `json:"class"`
	Zone  Zone     `json:"zone"`

	Level  int `json:"level"`
	Exp    int `json:"exp"`
	MaxExp int `json:"max_exp"`

	Stats Stats `json:"stats"`

	HP            int      `json:"hp"`
	MP            int      `json:"mp"`
	Stamina       int      `json:"stamina"`
	StatusEffects []string `json:"status_effects,omitempty"`
	LimitGauge    int      `json:"limit_gauge"`

	Personality Personality `json:"personality"`
	Emotion     Emotion     `json:"emotion"`
	Memory      MemoryTags  `json:"memory"`
	Equipment   Equipment   `json:"equipment"`

	Cards    []CardSnapshot `json:"cards,omitempty"`
	Instinct *Instinct      `json:"instinct,omitempty"`
}

// CardSnapshot is the persisted form of a SkillCard. Formula and Condition
// round-trip through their string forms and are re-parsed on load.
type CardSnapshot struct {
	Name      string         `json:"name"`
	Kind      CardKind       `json:"kind"`
	Target    TargetSelector `json:"target"`
	Formula   string         `json:"formula,omitempty"`
	Heals     bool           `json:"heals,omitempty"`
	Buffs     bool           `json:"buffs,omitempty"`
	Condition string         `json:"condition,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
}

// Snapshot captures the character for persistence.
func (c *Character) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          c.ID,
		Name:        c.Name,
		Class:       c.Class,
		Zone:        c.Zone,
		Level:       c.Level,
		Exp:         c.Exp,
		MaxExp:      c.MaxExp,
		Stats:       c.Stats,
		HP:          c.HP,
		MP:          c.MP,
		Stamina:     c.Stamina,
		LimitGauge:  c.LimitGauge,
		Personality: c.Personality,
		Memory: MemoryTags{
			Traits:        append([]string{}, c.Memory.Traits...),
			Titles:        append([]string{}, c.Memory.Titles...),
			Relationships: append([]string{}, c.Memory.Relationships...),
		},
	}
	snap.StatusEffects = append([]string{}, c.StatusEffects...)
	snap.Emotion = Emotion{
		Loyalty:       c.Emotion.Loyalty,
		Libido:        c.Emotion.Libido,
		Sanity:        c.Emotion.Sanity,
		Relationships: map[string]Relationship{},
	}
	for k, v := range c.Emotion.Relationships {
		snap.Emotion.Relationships[k] = v
	}
	snap.Equipment = Equipment{
		Weapon:    cloneItem(c.Equipment.Weapon),
		Armor:     cloneItem(c.Equipment.Armor),
		Accessory: cloneItem(c.Equipment.Accessory),
	}
	for _, card := range c.Cards {
		cs := CardSnapshot{
			Name:      card.Name,
			Kind:      card.Kind,
			Target:    card.Target,
			Heals:     card.Heals,
			Buffs:     card.Buffs,
			Condition: card.Condition.String(),
			Tags:      append([]string{}, card.Tags...),
		}
		if card.Formula != nil {
			cs.Formula = card.Formula.String()
		}
		snap.Cards = append(snap.Cards, cs)
	}
	if c.Instinct != nil {
		cp := *c.Instinct
		snap.Instinct = &cp
	}
	return snap
}

// FromSnapshot reconstructs a character; derived stats are recomputed and
// HP/MP restored to their saved values within the recomputed bounds. Card
// formula and condition strings are re-parsed, so a corrupted snapshot
// surfaces here instead of inside the turn loop.
func FromSnapshot(snap Snapshot) (*Character, error) {
	c := &Character{
		ID:            snap.ID,
		Name:          snap.Name,
		Class:         snap.Class,
		Zone:          snap.Zone,
		Level:         snap.Level,
		Exp:           snap.Exp,
		MaxExp:        snap.MaxExp,
		Stats:         snap.Stats,
		Stamina:       snap.Stamina,
		StatusEffects: append([]string{}, snap.StatusEffects...),
		LimitGauge:    snap.LimitGauge,
		Personality:   snap.Personality,
		Memory: MemoryTags{
			Traits:        append([]string{}, snap.Memory.Traits...),
			Titles:        append([]string{}, snap.Memory.Titles...),
			Relationships: append([]string{}, snap.Memory.Relationships...),
		},
	}
	c.Emotion = Emotion{
		Loyalty:       snap.Emotion.Loyalty,
		Libido:        snap.Emotion.Libido,
		Sanity:        snap.Emotion.Sanity,
		Relationships: map[string]Relationship{},
	}
	for k, v := range snap.Emotion.Relationships {
		c.Emotion.Relationships[k] = v
	}
	c.Equipment = Equipment{
		Weapon:    cloneItem(snap.Equipment.Weapon),
		Armor:     cloneItem(snap.Equipment.Armor),
		Accessory: cloneItem(snap.Equipment.Accessory),
	}
	for _, cs := range snap.Cards {
		card := SkillCard{
			Name:   cs.Name,
			Kind:   cs.Kind,
			Target: cs.Target,
			Heals:  cs.Heals,
			Buffs:  cs.Buffs,
			Tags:   append([]string{}, cs.Tags...),
		}
		if cs.Formula != "" {
			expr, err := ParseFormula(cs.Formula)
			if err != nil {
				return nil, fmt.Errorf("card %q: %w", cs.Name, err)
			}
			card.Formula = expr
		}
		cond, err := ParseCondition(cs.Condition)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", cs.Name, err)
		}
		card.Condition = cond
		c.Cards = append(c.Cards, card)
	}
	if snap.Instinct != nil {
		cp := *snap.Instinct
		c.Instinct = &cp
	}
	c.Recalculate()
	c.HP = snap.HP
	if c.HP > c.Derived.MaxHP {
		c.HP = c.Derived.MaxHP
	}
	c.MP = snap.MP
	if c.MP > c.Derived.MaxMP {
		c.MP = c.Derived.MaxMP
	}
	return c, nil
}

func cloneItem(it *Item) *Item {
	if it == nil {
		return nil
	}
	cp := *it
	return &cp
}

// NarrativeContextProvider is the capability interface for anything that can
// describe itself to the narrator. All Character variants implement it; the
// default implementation covers minimal/legacy data.
type NarrativeContextProvider interface {
	NarrativeContext() MemberContext
}

// MemberContext is the structured per-member block handed to the narrator.
type MemberContext struct {
	Name     string   `json:"name"`
	Class    string   `json:"class"`
	MBTI     string   `json:"mbti"`
	HPLine   string   `json:"hp"`
	Alive    bool     `json:"alive"`
	Insane   bool     `json:"insane"`
	Traits   []string `json:"traits,omitempty"`
	Titles   []string `json:"titles,omitempty"`
	Loyalty  int      `json:"loyalty"`
	Sanity   int      `json:"sanity"`
}

// NarrativeContext implements NarrativeContextProvider.
func (c *Character) NarrativeContext() MemberContext {
	return MemberContext{
		Name:    c.Name,
		Class:   string(c.Class),
		MBTI:    c.Personality.Type(),
		HPLine:  hpLine(c.HP, c.Derived.MaxHP),
		Alive:   c.IsAlive(),
		Insane:  c.Emotion.Insane(),
		Traits:  append([]string{}, c.Memory.Traits...),
		Titles:  append([]string{}, c.Memory.Titles...),
		Loyalty: c.Emotion.Loyalty,
		Sanity:  c.Emotion.Sanity,
	}
}

func hpLine(hp, max int) string {
	return fmt.Sprintf("%d/%d", hp, max)
}
