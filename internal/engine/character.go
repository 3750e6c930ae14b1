package engine

import (
	"fmt"
	"math"
	"strings"
)

// Stats are the primary attributes. Weight is the inverse-speed stat used
// for initiative: lower weight acts earlier in a round.
type Stats struct {
	Strength     int `json:"str" yaml:"str"`
	Dexterity    int `json:"dex" yaml:"dex"`
	Intelligence int `json:"int" yaml:"int"`
	Vitality     int `json:"vit" yaml:"vit"`
	Luck         int `json:"luk" yaml:"luk"`
	Weight       int `json:"weight" yaml:"weight"`
}

// Derived stats are a pure function of (Stats, Level, Equipment) and are
// recomputed after every mutation of those inputs. They are never persisted.
type Derived struct {
	MaxHP   int
	MaxMP   int
	Attack  int
	Defense int
	Speed   float64
}

// Personality holds the four axes, each 0-100 with 50 as the neutral
// midpoint. Values at or above 50 read as E/S/T/J, below as I/N/F/P.
type Personality struct {
	Extraversion int `json:"ei" yaml:"ei"`
	Sensing      int `json:"sn" yaml:"sn"`
	Thinking     int `json:"tf" yaml:"tf"`
	Judging      int `json:"jp" yaml:"jp"`
}

// Type derives the 4-letter type string by thresholding each axis at 50.
func (p Personality) Type() string {
	pick := func(v int, hi, lo byte) byte {
		if v >= 50 {
			return hi
		}
		return lo
	}
	return string([]byte{
		pick(p.Extraversion, 'E', 'I'),
		pick(p.Sensing, 'S', 'N'),
		pick(p.Thinking, 'T', 'F'),
		pick(p.Judging, 'J', 'P'),
	})
}

// PersonalityFromType builds an axis vector leaning toward each letter of
// a 4-letter archetype string, 75 for the high pole and 25 for the low.
func PersonalityFromType(archetype string) (Personality, error) {
	if len(archetype) != 4 {
		return Personality{}, fmt.Errorf("archetype %q: want 4 letters", archetype)
	}
	lean := func(c, hi, lo byte) (int, error) {
		switch c {
		case hi:
			return 75, nil
		case lo:
			return 25, nil
		}
		return 0, fmt.Errorf("archetype %q: letter %q not %c/%c", archetype, c, hi, lo)
	}
	up := strings.ToUpper(archetype)
	var p Personality
	var err error
	if p.Extraversion, err = lean(up[0], 'E', 'I'); err != nil {
		return Personality{}, err
	}
	if p.Sensing, err = lean(up[1], 'S', 'N'); err != nil {
		return Personality{}, err
	}
	if p.Thinking, err = lean(up[2], 'T', 'F'); err != nil {
		return Personality{}, err
	}
	if p.Judging, err = lean(up[3], 'J', 'P'); err != nil {
		return Personality{}, err
	}
	return p, nil
}

// Influence converts an axis from its 0-100 storage to a signed value in
// [-100,100] for scoring.
func Influence(axis int) int { return (axis - 50) * 2 }

// Relationship tracks one character's stance toward another.
type Relationship struct {
	Affection int `json:"affection"`
	Dominance int `json:"dominance"`
	Jealousy  int `json:"jealousy"`
}

// Emotion is the relational and emotional state space.
type Emotion struct {
	Loyalty       int                     `json:"loyalty"`
	Libido        int                     `json:"libido"`
	Sanity        int                     `json:"sanity"`
	Relationships map[string]Relationship `json:"relationships"`
}

const insaneSanityThreshold = 30

// Insane reports whether sanity has dropped into erratic-behavior range.
func (e Emotion) Insane() bool { return e.Sanity < insaneSanityThreshold }

// MemoryTags are free-form, deduplicated narrative tags in three open sets.
type MemoryTags struct {
	Traits        []string `json:"traits"`
	Titles        []string `json:"titles"`
	Relationships []string `json:"relationships"`
}

func addTag(set []string, tag string) []string {
	for _, t := range set {
		if t == tag {
			return set
		}
	}
	return append(set, tag)
}

func removeTag(set []string, tag string) []string {
	out := set[:0]
	for _, t := range set {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func hasTag(set []string, tag string) bool {
	for _, t := range set {
		if t == tag {
			return true
		}
	}
	return false
}

// MemoryCategory names one of the three tag sets.
type MemoryCategory string

const (
	MemoryTraits        MemoryCategory = "traits"
	MemoryTitles        MemoryCategory = "titles"
	MemoryRelationships MemoryCategory = "relationships"
)

// Equipment holds up to one item per slot.
type Equipment struct {
	Weapon    *Item `json:"weapon,omitempty"`
	Armor     *Item `json:"armor,omitempty"`
	Accessory *Item `json:"accessory,omitempty"`
}

// SkillCard is a discrete action definition. Main cards are the mandatory
// per-turn action; Sub cards fire on their condition (or 30% when
// unconditional), at most one per turn.
type SkillCard struct {
	Name      string
	Kind      CardKind
	Target    TargetSelector
	Formula   Expr // nil means the card carries no damage/heal value
	Heals     bool
	Buffs     bool
	Condition CardCondition
	Tags      []string
}

// Instinct is a character's single passive, keyed to a trigger condition.
type Instinct struct {
	Name        string      `json:"name"`
	Trigger     TriggerKind `json:"trigger"`
	DefenseBuff int         `json:"defense_buff,omitempty"` // on_hurt
	LibidoGain  int         `json:"libido_gain,omitempty"`  // on_hurt / target_low_hp
	SelfHeal    int         `json:"self_heal,omitempty"`    // on_kill
	CritBonus   int         `json:"crit_bonus,omitempty"`   // target_full_hp, percentage points
	HealBonus   int         `json:"heal_bonus,omitempty"`   // target_low_hp, percentage points
}

// Character owns stats, derived combat stats, personality, emotional state,
// equipment and per-turn capability. Created at party-assembly time and
// mutated continuously; dead members stay in the roster with HP 0.
type Character struct {
	ID    string
	Name  string
	Class JobClass
	Zone  Zone

	Level  int
	Exp    int
	MaxExp int

	Stats   Stats
	Derived Derived

	HP            int
	MP            int
	Stamina       int
	StatusEffects []string
	LimitGauge    int
	// Initiative and BonusDefense are ephemeral, valid only within the
	// combat that set them.
	Initiative   int
	BonusDefense int

	Personality Personality
	Emotion     Emotion
	Memory      MemoryTags
	Equipment   Equipment

	Cards    []SkillCard
	Instinct *Instinct
}

// NewCharacter creates a class-modified character at level 1 with full HP/MP.
func NewCharacter(name string, class JobClass) *Character {
	c := &Character{
		ID:     fmt.Sprintf("%s_%s", name, class),
		Name:   name,
		Class:  class,
		Zone:   ZoneFront,
		Level:  1,
		MaxExp: 100,
		Stats: Stats{
			Strength:     10,
			Dexterity:    10,
			Intelligence: 10,
			Vitality:     10,
			Luck:         10,
			Weight:       50,
		},
		Stamina: 100,
		Personality: Personality{
			Extraversion: 50,
			Sensing:      50,
			Thinking:     50,
			Judging:      50,
		},
		Emotion: Emotion{
			Loyalty:       50,
			Libido:        0,
			Sanity:        100,
			Relationships: map[string]Relationship{},
		},
	}
	c.applyClassModifiers()
	c.Recalculate()
	c.HP = c.Derived.MaxHP
	c.MP = c.Derived.MaxMP
	return c
}

func (c *Character) applyClassModifiers() {
	switch c.Class {
	case ClassWarrior:
		c.Stats.Strength += 5
		c.Stats.Vitality += 5
		c.Stats.Weight += 20
	case ClassMage:
		c.Stats.Intelligence += 8
		c.Stats.Luck += 2
		c.Zone = ZoneBack
	case ClassRogue:
		c.Stats.Dexterity += 7
		c.Stats.Luck += 3
		c.Stats.Weight -= 15
	case ClassCleric:
		c.Stats.Intelligence += 4
		c.Stats.Vitality += 4
		c.Stats.Strength += 2
		c.Zone = ZoneBack
	case ClassBarbarian:
		c.Stats.Strength += 8
		c.Stats.Dexterity += 2
		c.Stats.Weight -= 10
	case ClassSniper:
		c.Stats.Dexterity += 8
		c.Stats.Luck += 2
		c.Zone = ZoneBack
	case ClassHealer:
		c.Stats.Intelligence += 7
		c.Stats.Dexterity += 1
		c.Zone = ZoneBack
	}
	if c.Stats.Weight < 0 {
		c.Stats.Weight = 0
	}
}

// Recalculate recomputes all derived stats from primaries, level and
// equipment. Current HP/MP are clamped into the new bounds.
func (c *Character) Recalculate() {
	d := Derived{
		MaxHP:   c.Stats.Vitality*10 + c.Level*20,
		MaxMP:   c.Stats.Intelligence*5 + c.Level*10,
		Attack:  c.Stats.Strength * 2,
		Defense: c.Stats.Vitality,
		Speed:   float64(c.Stats.Dexterity) * 1.5,
	}
	if c.Equipment.Weapon != nil {
		d.Attack += c.Equipment.Weapon.Value
	}
	if c.Equipment.Armor != nil {
		d.Defense += c.Equipment.Armor.Value
	}
	c.Derived = d
	if c.HP > d.MaxHP {
		c.HP = d.MaxHP
	}
	if c.MP > d.MaxMP {
		c.MP = d.MaxMP
	}
}

// IsAlive reports liveness; the dead stay in their roster for revival.
func (c *Character) IsAlive() bool { return c.HP > 0 }

// HPRatio returns current HP as a fraction of max.
func (c *Character) HPRatio() float64 {
	if c.Derived.MaxHP == 0 {
		return 0
	}
	return float64(c.HP) / float64(c.Derived.MaxHP)
}

// TakeDamage applies raw damage reduced by defense, with a minimum of 1.
// Returns the amount actually dealt. Durable armor wears proportionally to
// damage taken and breaks at zero durability.
func (c *Character) TakeDamage(amount int) int {
	dealt := amount - c.Derived.Defense - c.BonusDefense
	if dealt < 1 {
		dealt = 1
	}
	c.HP -= dealt
	if c.HP < 0 {
		c.HP = 0
	}
	if armor := c.Equipment.Armor; armor != nil && armor.Durability > 0 {
		wear := dealt / 4
		if wear < 1 {
			wear = 1
		}
		armor.Durability -= wear
		if armor.Durability <= 0 {
			c.Equipment.Armor = nil
			c.Recalculate()
		}
	}
	return dealt
}

// Heal restores HP, clamped to max.
func (c *Character) Heal(amount int) {
	if amount < 0 {
		return
	}
	c.HP += amount
	if c.HP > c.Derived.MaxHP {
		c.HP = c.Derived.MaxHP
	}
}

// SpendMP deducts MP, reporting whether enough was available.
func (c *Character) SpendMP(amount int) bool {
	if amount > c.MP {
		return false
	}
	c.MP -= amount
	return true
}

// RestoreAll refills HP and MP, used at rest pages.
func (c *Character) RestoreAll() {
	c.HP = c.Derived.MaxHP
	c.MP = c.Derived.MaxMP
}

// GainExp adds experience and resolves any level-ups. Leftover exp carries
// over; maxExp grows by 1.2x per level, floored.
func (c *Character) GainExp(amount int) (levels int) {
	c.Exp += amount
	for c.Exp >= c.MaxExp {
		c.levelUp()
		levels++
	}
	return levels
}

func (c *Character) levelUp() {
	c.Level++
	c.Exp -= c.MaxExp
	c.MaxExp = int(math.Floor(float64(c.MaxExp) * 1.2))
	c.Stats.Strength++
	c.Stats.Dexterity++
	c.Stats.Intelligence++
	c.Stats.Vitality++
	c.Stats.Luck++
	c.Recalculate()
	c.RestoreAll()
}

// Equip places the item into its slot and returns the displaced occupant.
// Potions and misc items are not equippable.
func (c *Character) Equip(item *Item) (previous *Item, ok bool) {
	if item == nil {
		return nil, false
	}
	switch item.Type {
	case ItemWeapon:
		previous = c.Equipment.Weapon
		c.Equipment.Weapon = item
	case ItemArmor:
		previous = c.Equipment.Armor
		c.Equipment.Armor = item
	case ItemMisc:
		previous = c.Equipment.Accessory
		c.Equipment.Accessory = item
	default:
		return nil, false
	}
	c.Recalculate()
	return previous, true
}

// Unequip clears the slot and returns its occupant.
func (c *Character) Unequip(t ItemType) *Item {
	var prev *Item
	switch t {
	case ItemWeapon:
		prev, c.Equipment.Weapon = c.Equipment.Weapon, nil
	case ItemArmor:
		prev, c.Equipment.Armor = c.Equipment.Armor, nil
	case ItemMisc:
		prev, c.Equipment.Accessory = c.Equipment.Accessory, nil
	}
	if prev != nil {
		c.Recalculate()
	}
	return prev
}

// AdjustAxis nudges one personality axis, clamped 0-100.
func (c *Character) AdjustAxis(axis string, delta int) {
	switch axis {
	case "E":
		c.Personality.Extraversion = Clamp(c.Personality.Extraversion + delta)
	case "I":
		c.Personality.Extraversion = Clamp(c.Personality.Extraversion - delta)
	case "S":
		c.Personality.Sensing = Clamp(c.Personality.Sensing + delta)
	case "N":
		c.Personality.Sensing = Clamp(c.Personality.Sensing - delta)
	case "T":
		c.Personality.Thinking = Clamp(c.Personality.Thinking + delta)
	case "F":
		c.Personality.Thinking = Clamp(c.Personality.Thinking - delta)
	case "J":
		c.Personality.Judging = Clamp(c.Personality.Judging + delta)
	case "P":
		c.Personality.Judging = Clamp(c.Personality.Judging - delta)
	}
}

// UpdateRelationship applies deltas to this character's stance toward a
// target, creating the neutral baseline on first contact.
func (c *Character) UpdateRelationship(targetID string, dAffection, dDominance, dJealousy int) {
	if c.Emotion.Relationships == nil {
		c.Emotion.Relationships = map[string]Relationship{}
	}
	rel, ok := c.Emotion.Relationships[targetID]
	if !ok {
		rel = Relationship{Affection: 50, Dominance: 50, Jealousy: 0}
	}
	rel.Affection = Clamp(rel.Affection + dAffection)
	rel.Dominance = Clamp(rel.Dominance + dDominance)
	rel.Jealousy = Clamp(rel.Jealousy + dJealousy)
	c.Emotion.Relationships[targetID] = rel
}

// AddTag inserts a memory tag, deduplicated.
func (c *Character) AddTag(cat MemoryCategory, tag string) {
	switch cat {
	case MemoryTraits:
		c.Memory.Traits = addTag(c.Memory.Traits, tag)
	case MemoryTitles:
		c.Memory.Titles = addTag(c.Memory.Titles, tag)
	case MemoryRelationships:
		c.Memory.Relationships = addTag(c.Memory.Relationships, tag)
	}
}

// RemoveTag deletes a memory tag if present.
func (c *Character) RemoveTag(cat MemoryCategory, tag string) {
	switch cat {
	case MemoryTraits:
		c.Memory.Traits = removeTag(c.Memory.Traits, tag)
	case MemoryTitles:
		c.Memory.Titles = removeTag(c.Memory.Titles, tag)
	case MemoryRelationships:
		c.Memory.Relationships = removeTag(c.Memory.Relationships, tag)
	}
}

// HasTag reports membership in a memory tag set.
func (c *Character) HasTag(cat MemoryCategory, tag string) bool {
	switch cat {
	case MemoryTraits:
		return hasTag(c.Memory.Traits, tag)
	case MemoryTitles:
		return hasTag(c.Memory.Titles, tag)
	case MemoryRelationships:
		return hasTag(c.Memory.Relationships, tag)
	}
	return false
}

// MainCards returns the character's Main-type cards in repertoire order.
func (c *Character) MainCards() []SkillCard {
	var out []SkillCard
	for _, card := range c.Cards {
		if card.Kind == CardMain {
			out = append(out, card)
		}
	}
	return out
}

// SubCards returns the character's Sub-type cards in repertoire order.
func (c *Character) SubCards() []SkillCard {
	var out []SkillCard
	for _, card := range c.Cards {
		if card.Kind == CardSub {
			out = append(out, card)
		}
	}
	return out
}
