package engine

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/procedural.yml
var proceduralYAML []byte

//go:embed data/presets.yml
var presetsYAML []byte

// ModifierEffect is the typed stat-multiplier payload a page modifier
// applies to generated enemies. Zero fields mean "no change".
type ModifierEffect struct {
	VitMul   float64 `yaml:"vit_mul"`
	StrMul   float64 `yaml:"str_mul"`
	SpeedMul float64 `yaml:"speed_mul"`
}

func (e ModifierEffect) IsZero() bool {
	return e.VitMul == 0 && e.StrMul == 0 && e.SpeedMul == 0
}

// PageModifier is one prefix or suffix table entry.
type PageModifier struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Keywords []string       `yaml:"keywords"`
	Rarity   int            `yaml:"rarity"`
	Effect   ModifierEffect `yaml:"effect"`
}

// PageBase is one base table entry; its type decides the page's choice set.
type PageBase struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Type       EncounterType `yaml:"type"`
	Difficulty int           `yaml:"difficulty"`
	Keywords   []string      `yaml:"keywords"`
	Rarity     int           `yaml:"rarity"`
}

type proceduralFile struct {
	Prefixes []PageModifier `yaml:"prefixes"`
	Bases    []PageBase     `yaml:"bases"`
	Suffixes []PageModifier `yaml:"suffixes"`
}

type cardSpec struct {
	Name      string         `yaml:"name"`
	Kind      CardKind       `yaml:"kind"`
	Target    TargetSelector `yaml:"target"`
	Formula   string         `yaml:"formula"`
	Heal      bool           `yaml:"heal"`
	Buff      bool           `yaml:"buff"`
	Condition string         `yaml:"condition"`
	Tags      []string       `yaml:"tags"`
}

type instinctSpec struct {
	Name        string      `yaml:"name"`
	Trigger     TriggerKind `yaml:"trigger"`
	DefenseBuff int         `yaml:"defense_buff"`
	LibidoGain  int         `yaml:"libido_gain"`
	SelfHeal    int         `yaml:"self_heal"`
	CritBonus   int         `yaml:"crit_bonus"`
	HealBonus   int         `yaml:"heal_bonus"`
}

type mbtiSpec struct {
	EI int `yaml:"ei"`
	SN int `yaml:"sn"`
	TF int `yaml:"tf"`
	JP int `yaml:"jp"`
}

type presetSpec struct {
	ID    string    `yaml:"id"`
	Name  string    `yaml:"name"`
	Class JobClass  `yaml:"class"`
	Zone  Zone      `yaml:"zone"`
	Stats Stats     `yaml:"stats"`
	MBTI  *mbtiSpec `yaml:"mbti"`
	// Archetype is a 4-letter type string fallback when no mbti block
	// is given.
	Archetype string        `yaml:"archetype"`
	Libido    int           `yaml:"libido"`
	Sanity    int           `yaml:"sanity"`
	Instinct  *instinctSpec `yaml:"instinct"`
	Cards     []cardSpec    `yaml:"cards"`
}

type presetsFile struct {
	Characters []presetSpec `yaml:"characters"`
	EnemyCards []cardSpec   `yaml:"enemy_cards"`
}

// Content is the validated, parsed form of the embedded tables.
type Content struct {
	Prefixes []PageModifier
	Bases    []PageBase
	Suffixes []PageModifier

	Presets    []presetSpec
	EnemyCards []SkillCard
}

// LoadContent parses and validates the embedded content tables. Formula and
// condition strings are compiled here so the combat loop never sees a raw
// string.
func LoadContent() (*Content, error) {
	var proc proceduralFile
	if err := yaml.Unmarshal(proceduralYAML, &proc); err != nil {
		return nil, fmt.Errorf("procedural tables: %w", err)
	}
	var pres presetsFile
	if err := yaml.Unmarshal(presetsYAML, &pres); err != nil {
		return nil, fmt.Errorf("preset tables: %w", err)
	}
	c := &Content{
		Prefixes: proc.Prefixes,
		Bases:    proc.Bases,
		Suffixes: proc.Suffixes,
		Presets:  pres.Characters,
	}
	if len(c.Bases) == 0 {
		return nil, fmt.Errorf("procedural tables: no bases defined")
	}
	for _, b := range c.Bases {
		if !b.Type.Validate() {
			return nil, fmt.Errorf("base %q: unknown encounter type %q", b.ID, b.Type)
		}
	}
	for _, spec := range pres.Characters {
		if !spec.Class.Validate() {
			return nil, fmt.Errorf("preset %q: unknown class %q", spec.ID, spec.Class)
		}
		if !spec.Zone.Validate() {
			return nil, fmt.Errorf("preset %q: unknown zone %q", spec.ID, spec.Zone)
		}
		if spec.Instinct != nil && !spec.Instinct.Trigger.Validate() {
			return nil, fmt.Errorf("preset %q: unknown instinct trigger %q", spec.ID, spec.Instinct.Trigger)
		}
		if _, err := buildCards(spec.Cards); err != nil {
			return nil, fmt.Errorf("preset %q: %w", spec.ID, err)
		}
	}
	enemyCards, err := buildCards(pres.EnemyCards)
	if err != nil {
		return nil, fmt.Errorf("enemy cards: %w", err)
	}
	c.EnemyCards = enemyCards
	return c, nil
}

func buildCards(specs []cardSpec) ([]SkillCard, error) {
	var out []SkillCard
	for _, cs := range specs {
		if !cs.Kind.Validate() {
			return nil, fmt.Errorf("card %q: unknown kind %q", cs.Name, cs.Kind)
		}
		if cs.Target != "" && !cs.Target.Validate() {
			return nil, fmt.Errorf("card %q: unknown target %q", cs.Name, cs.Target)
		}
		card := SkillCard{
			Name:   cs.Name,
			Kind:   cs.Kind,
			Target: cs.Target,
			Heals:  cs.Heal,
			Buffs:  cs.Buff,
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
		out = append(out, card)
	}
	return out, nil
}

// FromPreset instantiates one preset roster member by id.
func (c *Content) FromPreset(id string) (*Character, error) {
	for _, spec := range c.Presets {
		if spec.ID != id {
			continue
		}
		return c.buildPreset(spec)
	}
	return nil, fmt.Errorf("unknown preset %q", id)
}

// PresetParty assembles the full preset roster in table order.
func (c *Content) PresetParty() (*Party, error) {
	p := NewParty()
	for _, spec := range c.Presets {
		ch, err := c.buildPreset(spec)
		if err != nil {
			return nil, err
		}
		if !p.AddMember(ch) {
			break
		}
	}
	return p, nil
}

func (c *Content) buildPreset(spec presetSpec) (*Character, error) {
	ch := NewCharacter(spec.Name, spec.Class)
	ch.ID = spec.ID
	ch.Zone = spec.Zone
	ch.Stats = spec.Stats
	switch {
	case spec.MBTI != nil:
		ch.Personality = Personality{
			Extraversion: Clamp(spec.MBTI.EI),
			Sensing:      Clamp(spec.MBTI.SN),
			Thinking:     Clamp(spec.MBTI.TF),
			Judging:      Clamp(spec.MBTI.JP),
		}
	case spec.Archetype != "":
		p, err := PersonalityFromType(spec.Archetype)
		if err != nil {
			return nil, err
		}
		ch.Personality = p
	}
	ch.Emotion.Libido = Clamp(spec.Libido)
	ch.Emotion.Sanity = Clamp(spec.Sanity)
	if spec.Instinct != nil {
		ch.Instinct = &Instinct{
			Name:        spec.Instinct.Name,
			Trigger:     spec.Instinct.Trigger,
			DefenseBuff: spec.Instinct.DefenseBuff,
			LibidoGain:  spec.Instinct.LibidoGain,
			SelfHeal:    spec.Instinct.SelfHeal,
			CritBonus:   spec.Instinct.CritBonus,
			HealBonus:   spec.Instinct.HealBonus,
		}
	}
	cards, err := buildCards(spec.Cards)
	if err != nil {
		return nil, err
	}
	ch.Cards = cards
	ch.Recalculate()
	ch.RestoreAll()
	return ch, nil
}
