package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Combat state machine: Idle -> Running -> Ended(Win|Loss), with a Paused
// sub-state that freezes turn progression for narration and resumes at the
// exact next queued actor.

type CombatState string

const (
	CombatIdle    CombatState = "idle"
	CombatRunning CombatState = "running"
	CombatWon     CombatState = "won"
	CombatLost    CombatState = "lost"
)

type EncounterStatus string

const (
	EncounterNormal     EncounterStatus = "normal"
	EncounterAmbush     EncounterStatus = "ambush"
	EncounterPreemptive EncounterStatus = "preemptive"
)

// EventType tags entries on the combat event stream.
type EventType string

const (
	EvCombatStart     EventType = "combat_start"
	EvCombatUpdate    EventType = "combat_update"
	EvAction          EventType = "action"
	EvInstinctTrigger EventType = "instinct_trigger"
	EvDeath           EventType = "death"
	EvNarrative       EventType = "narrative_event"
	EvCombatEnd       EventType = "combat_end"
)

// ActionKind distinguishes the three resolvable card outcomes.
type ActionKind string

const (
	ActAttack ActionKind = "attack"
	ActHeal   ActionKind = "heal"
	ActBuff   ActionKind = "buff"
)

// NarrativeTrigger names why a narrative event fired.
type NarrativeTrigger string

const (
	NarrativeKill     NarrativeTrigger = "kill"
	NarrativeCrit     NarrativeTrigger = "crit"
	NarrativeInstinct NarrativeTrigger = "instinct"
	NarrativeFlavor   NarrativeTrigger = "flavor"
)

// Event is one entry on the combat stream. Fields are populated per Type;
// the presentation layer never writes back through them.
type Event struct {
	Type EventType

	// combat_start
	Party           []*Character
	Enemies         []*Character
	EncounterStatus EncounterStatus
	EncounterRoll   int

	// combat_update
	Round int
	Order []TurnEntry

	// action / death / narrative_event
	Action   ActionKind
	Attacker *Character
	Target   *Character
	Amount   int
	IsCrit   bool
	CardName string

	// instinct_trigger
	InstinctName string

	// narrative_event
	Trigger NarrativeTrigger

	// combat_end
	IsWin bool
}

// TurnEntry reports one actor's rolled initiative for the round.
type TurnEntry struct {
	ID         string
	Name       string
	Initiative int
}

// Observer receives the combat event stream in emission order.
type Observer interface {
	OnCombatEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnCombatEvent(ev Event) { f(ev) }

const (
	basicCritChance  = 0.10
	critMultiplier   = 1.5
	subCardChance    = 0.3
	ambushWeightCut  = 20
	combatXPReward   = 50
	// Fallback when a damage card carries no formula; fails closed.
	defaultCardDamage = 10
)

// Combat drives one battle to completion. Advancement is pull-based: the
// caller invokes Step() once per turn, so pacing delays live outside the
// engine and no two turns ever overlap.
type Combat struct {
	party   *Party
	enemies []*Character
	obs     Observer
	log     *zap.Logger
	rng     *Stream

	state  CombatState
	paused bool

	round    int
	queue    []*Character
	queueIdx int

	encounterStatus EncounterStatus
	enemyCards      []SkillCard
}

// NewCombat wires a combat manager. A nil observer or logger is replaced
// with a no-op.
func NewCombat(party *Party, content *Content, obs Observer, log *zap.Logger, rng *Stream) *Combat {
	if obs == nil {
		obs = ObserverFunc(func(Event) {})
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Combat{
		party: party,
		obs:   obs,
		log:   log,
		rng:   rng,
		state: CombatIdle,
	}
	if content != nil {
		c.enemyCards = content.EnemyCards
	}
	return c
}

func (c *Combat) State() CombatState    { return c.state }
func (c *Combat) Paused() bool          { return c.paused }
func (c *Combat) Round() int            { return c.round }
func (c *Combat) Enemies() []*Character { return c.enemies }

// Encounter reports the status rolled at combat start.
func (c *Combat) Encounter() EncounterStatus { return c.encounterStatus }

// Start generates enemies for the difficulty level, applies the page's
// typed modifier effects, rolls the encounter die and opens round one.
func (c *Combat) Start(difficulty int, mods []ModifierEffect) {
	if c.state != CombatIdle {
		return
	}
	c.generateEnemies(difficulty, mods)

	roll := c.rng.Child("encounter").Roll(20)
	c.encounterStatus = EncounterNormal
	switch roll {
	case 1:
		c.encounterStatus = EncounterAmbush
		for _, e := range c.enemies {
			e.Stats.Weight = maxInt(0, e.Stats.Weight-ambushWeightCut)
		}
	case 20:
		c.encounterStatus = EncounterPreemptive
		for _, m := range c.party.Members {
			m.Stats.Weight = maxInt(0, m.Stats.Weight-ambushWeightCut)
		}
	}

	c.obs.OnCombatEvent(Event{
		Type:            EvCombatStart,
		Party:           c.party.Members,
		Enemies:         c.enemies,
		EncounterStatus: c.encounterStatus,
		EncounterRoll:   roll,
	})
	c.state = CombatRunning
	c.beginRound()
}

// Pause freezes turn progression. Used while a narration call is in
// flight; no combat state is touched until Resume.
func (c *Combat) Pause() { c.paused = true }

// Resume continues at the exact next queued actor.
func (c *Combat) Resume() { c.paused = false }

// Step executes the next turn. It returns false when combat is over,
// paused, or idle; the caller decides pacing between calls.
func (c *Combat) Step() bool {
	if c.state != CombatRunning || c.paused {
		return false
	}
	for {
		if c.queueIdx >= len(c.queue) {
			if !c.beginRound() {
				return false
			}
			continue
		}
		actor := c.queue[c.queueIdx]
		c.queueIdx++
		if !actor.IsAlive() {
			// Dead units are skipped, never removed from the queue.
			continue
		}
		c.executeTurn(actor)
		return true
	}
}

// beginRound checks end conditions, then rolls a fresh initiative queue.
// Returns false when combat ended instead.
func (c *Combat) beginRound() bool {
	if c.party.IsWiped() {
		c.end(false)
		return false
	}
	if len(c.livingEnemies()) == 0 {
		c.end(true)
		return false
	}

	c.round++
	roundRNG := c.rng.Child(fmt.Sprintf("round:%d", c.round))

	// Roster order before enemies is the tie-break: stable sort keeps it.
	var all []*Character
	for _, m := range c.party.Members {
		if m.IsAlive() {
			all = append(all, m)
		}
	}
	all = append(all, c.livingEnemies()...)

	order := make([]TurnEntry, 0, len(all))
	for i, u := range all {
		u.Initiative = (100 - u.Stats.Weight) + roundRNG.Child(fmt.Sprintf("init:%d", i)).Roll(20)
		order = append(order, TurnEntry{ID: u.ID, Name: u.Name, Initiative: u.Initiative})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Initiative > all[j].Initiative })
	sort.SliceStable(order, func(i, j int) bool { return order[i].Initiative > order[j].Initiative })

	c.queue = all
	c.queueIdx = 0
	c.obs.OnCombatEvent(Event{Type: EvCombatUpdate, Round: c.round, Order: order})
	return true
}

func (c *Combat) executeTurn(actor *Character) {
	turnRNG := c.rng.Child(fmt.Sprintf("round:%d:turn:%d:%s", c.round, c.queueIdx, actor.ID))
	allies, opponents := c.sidesFor(actor)

	// At most one Sub action: explicit condition wins, a conditionless Sub
	// fires 30% of the time.
	for i, card := range actor.SubCards() {
		use := false
		if !card.Condition.IsZero() {
			use = card.Condition.Holds(actor, allies)
		} else {
			use = turnRNG.Child(fmt.Sprintf("sub:%d", i)).Chance(subCardChance)
		}
		if use {
			c.performCard(actor, card, allies, opponents, turnRNG.Child("subact"))
			break
		}
	}
	if c.state != CombatRunning {
		return
	}

	// Exactly one Main action, or the basic attack fallback.
	mains := actor.MainCards()
	if len(mains) > 0 {
		card := mains[turnRNG.Child("pick").Intn(len(mains))]
		c.performCard(actor, card, allies, opponents, turnRNG.Child("main"))
	} else {
		c.basicAttack(actor, opponents, turnRNG.Child("basic"))
	}
}

func (c *Combat) performCard(actor *Character, card SkillCard, allies, opponents []*Character, rng *Stream) {
	target := c.selectTarget(actor, card.Target, allies, opponents, rng)
	if target == nil {
		// Empty target pool: abort silently, the loop must keep moving.
		c.log.Debug("card aborted, no eligible target",
			zap.String("actor", actor.ID), zap.String("card", card.Name))
		return
	}

	switch {
	case card.Buffs:
		target.BonusDefense++
		c.obs.OnCombatEvent(Event{Type: EvAction, Action: ActBuff, Attacker: actor, Target: target, CardName: card.Name})
		c.checkNarrative(actor, target, 0, false, false, false)

	case card.Heals:
		amount := defaultCardDamage
		if card.Formula != nil {
			amount = int(card.Formula.Eval(actor.Stats))
		}
		instinctFired := false
		if inst := actor.Instinct; inst != nil && inst.Trigger == TriggerTargetLowHP && target.HPRatio() < survivalHPRatio {
			amount += amount * inst.HealBonus / 100
			actor.Emotion.Libido = Clamp(actor.Emotion.Libido + inst.LibidoGain)
			instinctFired = true
			c.obs.OnCombatEvent(Event{Type: EvInstinctTrigger, Attacker: actor, Target: target, InstinctName: inst.Name})
		}
		target.Heal(amount)
		c.obs.OnCombatEvent(Event{Type: EvAction, Action: ActHeal, Attacker: actor, Target: target, Amount: amount, CardName: card.Name})
		c.checkNarrative(actor, target, amount, false, false, instinctFired)

	default:
		amount := defaultCardDamage
		if card.Formula != nil {
			amount = int(card.Formula.Eval(actor.Stats))
		} else {
			c.log.Warn("damage card without formula, using fallback",
				zap.String("actor", actor.ID), zap.String("card", card.Name), zap.Int("fallback", defaultCardDamage))
		}
		c.applyDamage(actor, target, amount, card.Name, rng)
	}
}

func (c *Combat) basicAttack(actor *Character, opponents []*Character, rng *Stream) {
	living := livingOf(opponents)
	if len(living) == 0 {
		return
	}
	target := living[rng.Intn(len(living))]
	c.applyDamage(actor, target, actor.Derived.Attack, "", rng)
}

// applyDamage rolls the crit, applies the hit and resolves both sides'
// instinct triggers plus the narrative check.
func (c *Combat) applyDamage(actor, target *Character, amount int, cardName string, rng *Stream) {
	critChance := basicCritChance
	if inst := actor.Instinct; inst != nil && inst.Trigger == TriggerTargetFullHP && target.HP == target.Derived.MaxHP {
		critChance += float64(inst.CritBonus) / 100
	}
	isCrit := rng.Child("crit").Chance(critChance)
	if isCrit {
		amount = int(float64(amount) * critMultiplier)
	}

	dealt := target.TakeDamage(amount)
	target.LimitGauge = Clamp(target.LimitGauge + dealt)
	c.obs.OnCombatEvent(Event{Type: EvAction, Action: ActAttack, Attacker: actor, Target: target, Amount: dealt, IsCrit: isCrit, CardName: cardName})

	instinctFired := false
	if inst := target.Instinct; inst != nil && inst.Trigger == TriggerOnHurt {
		target.BonusDefense += inst.DefenseBuff
		target.Emotion.Libido = Clamp(target.Emotion.Libido + inst.LibidoGain)
		instinctFired = true
		c.obs.OnCombatEvent(Event{Type: EvInstinctTrigger, Attacker: actor, Target: target, InstinctName: inst.Name})
	}

	isKill := !target.IsAlive()
	if isKill {
		c.obs.OnCombatEvent(Event{Type: EvDeath, Target: target})
		if inst := actor.Instinct; inst != nil && inst.Trigger == TriggerOnKill {
			actor.Heal(inst.SelfHeal)
			instinctFired = true
			c.obs.OnCombatEvent(Event{Type: EvInstinctTrigger, Attacker: actor, InstinctName: inst.Name})
		}
	}

	c.checkNarrative(actor, target, dealt, isCrit, isKill, instinctFired)
}

// checkNarrative fires the external-facing narrative event on any kill,
// crit, instinct trigger, or an insane actor. This is the sole automatic
// narrative trigger point besides page arrival.
func (c *Combat) checkNarrative(actor, target *Character, damage int, isCrit, isKill, instinct bool) {
	if !isKill && !isCrit && !instinct && !actor.Emotion.Insane() {
		return
	}
	trigger := NarrativeFlavor
	switch {
	case isKill:
		trigger = NarrativeKill
	case instinct:
		trigger = NarrativeInstinct
	case isCrit:
		trigger = NarrativeCrit
	}
	c.obs.OnCombatEvent(Event{
		Type:     EvNarrative,
		Trigger:  trigger,
		Attacker: actor,
		Target:   target,
		Amount:   damage,
	})
}

func (c *Combat) selectTarget(actor *Character, sel TargetSelector, allies, opponents []*Character, rng *Stream) *Character {
	switch sel {
	case TargetSelf:
		return actor
	case TargetAllyLowest:
		var best *Character
		for _, a := range livingOf(allies) {
			if best == nil || a.HPRatio() < best.HPRatio() {
				best = a
			}
		}
		return best
	case TargetEnemyFront, TargetEnemyBack:
		preferred := ZoneFront
		if sel == TargetEnemyBack {
			preferred = ZoneBack
		}
		living := livingOf(opponents)
		var zoned []*Character
		for _, o := range living {
			if o.Zone == preferred {
				zoned = append(zoned, o)
			}
		}
		if len(zoned) == 0 {
			zoned = living // fall back to the other zone
		}
		if len(zoned) == 0 {
			return nil
		}
		return zoned[rng.Intn(len(zoned))]
	default:
		living := livingOf(opponents)
		if len(living) == 0 {
			return nil
		}
		return living[rng.Intn(len(living))]
	}
}

func (c *Combat) sidesFor(actor *Character) (allies, opponents []*Character) {
	isEnemy := false
	for _, e := range c.enemies {
		if e == actor {
			isEnemy = true
			break
		}
	}
	if isEnemy {
		return c.enemies, c.party.Members
	}
	return c.party.Members, c.enemies
}

func (c *Combat) livingEnemies() []*Character { return livingOf(c.enemies) }

func livingOf(units []*Character) []*Character {
	var out []*Character
	for _, u := range units {
		if u.IsAlive() {
			out = append(out, u)
		}
	}
	return out
}

var enemyNames = []string{"Goblin A", "Goblin B", "Goblin C"}

func (c *Combat) generateEnemies(level int, mods []ModifierEffect) {
	if level < 1 {
		level = 1
	}
	genRNG := c.rng.Child("enemies")
	count := 1 + genRNG.Intn(2)
	c.enemies = c.enemies[:0]
	for i := 0; i < count; i++ {
		e := NewCharacter(enemyNames[i%len(enemyNames)], ClassMonster)
		e.ID = fmt.Sprintf("enemy:%d:%s", i, e.Name)
		e.Level = level
		e.Stats = Stats{
			Strength:     5 + 2*level,
			Dexterity:    5 + level + genRNG.Child(fmt.Sprintf("spd:%d", i)).Intn(4),
			Intelligence: 2,
			Vitality:     5 + 2*level,
			Luck:         5,
			Weight:       20,
		}
		for _, m := range mods {
			if m.VitMul > 0 {
				e.Stats.Vitality = int(float64(e.Stats.Vitality) * m.VitMul)
			}
			if m.StrMul > 0 {
				e.Stats.Strength = int(float64(e.Stats.Strength) * m.StrMul)
			}
			if m.SpeedMul > 0 {
				e.Stats.Dexterity = int(float64(e.Stats.Dexterity) * m.SpeedMul)
			}
		}
		e.Cards = append([]SkillCard{}, c.enemyCards...)
		e.Recalculate()
		e.RestoreAll()
		c.enemies = append(c.enemies, e)
	}
}

func (c *Combat) end(isWin bool) {
	if isWin {
		c.state = CombatWon
		for _, m := range c.party.AliveMembers() {
			m.GainExp(combatXPReward)
		}
	} else {
		c.state = CombatLost
	}
	for _, u := range append(append([]*Character{}, c.party.Members...), c.enemies...) {
		u.BonusDefense = 0
		u.Initiative = 0
	}
	c.obs.OnCombatEvent(Event{Type: EvCombatEnd, IsWin: isWin})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
