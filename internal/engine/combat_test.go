package engine

import (
	"strconv"
	"testing"
)

type recorder struct{ events []Event }

func (r *recorder) OnCombatEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func testCombat(t *testing.T, seedText string, p *Party) (*Combat, *recorder) {
	t.Helper()
	content, err := LoadContent()
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	rec := &recorder{}
	seed, _ := NewRunSeed(seedText)
	return NewCombat(p, content, rec, nil, seed.Stream("combat")), rec
}

func runToEnd(t *testing.T, c *Combat) {
	t.Helper()
	for i := 0; c.Step(); i++ {
		if i > 2000 {
			t.Fatalf("combat did not terminate within 2000 turns")
		}
	}
}

func TestCombatWinGrantsXPOnce(t *testing.T) {
	p := testParty(t)
	c, rec := testCombat(t, "combat-seed", p)
	c.Start(1, nil)
	runToEnd(t, c)

	if c.State() != CombatWon {
		t.Fatalf("level-1 enemies must lose to a full party, state=%s", c.State())
	}
	if got := len(rec.ofType(EvCombatStart)); got != 1 {
		t.Fatalf("combat_start emitted %d times", got)
	}
	ends := rec.ofType(EvCombatEnd)
	if len(ends) != 1 || !ends[0].IsWin {
		t.Fatalf("expected exactly one winning combat_end: %+v", ends)
	}
	for _, m := range p.AliveMembers() {
		if m.Exp != combatXPReward {
			t.Fatalf("member %s exp = %d, want exactly %d", m.Name, m.Exp, combatXPReward)
		}
	}
	if c.Step() {
		t.Fatalf("stepping a settled combat must be a no-op")
	}
}

func TestInitiativeFollowsWeight(t *testing.T) {
	p := testParty(t)
	c, rec := testCombat(t, "init-seed", p)
	c.Start(1, nil)
	runToEnd(t, c)

	// Healer (weight 45) outruns the warrior (weight 70) in every round:
	// the 25-point gap exceeds the d20 span.
	healer, warrior := p.Members[3].ID, p.Members[0].ID
	for _, upd := range rec.ofType(EvCombatUpdate) {
		hi, wi := -1, -1
		for i, e := range upd.Order {
			switch e.ID {
			case healer:
				hi = i
			case warrior:
				wi = i
			}
		}
		if hi < 0 || wi < 0 {
			continue // one of them died
		}
		if hi > wi {
			t.Fatalf("round %d: weight 45 must act before weight 70", upd.Round)
		}
		for i := 1; i < len(upd.Order); i++ {
			if upd.Order[i].Initiative > upd.Order[i-1].Initiative {
				t.Fatalf("round %d order not sorted by initiative", upd.Round)
			}
		}
	}
}

func TestDeadMemberNeverActs(t *testing.T) {
	p := testParty(t)
	dead := p.Members[1]
	dead.HP = 0
	c, rec := testCombat(t, "dead-seed", p)
	c.Start(1, nil)
	runToEnd(t, c)

	for _, upd := range rec.ofType(EvCombatUpdate) {
		for _, e := range upd.Order {
			if e.ID == dead.ID {
				t.Fatalf("dead member queued in round %d", upd.Round)
			}
		}
	}
	for _, act := range rec.ofType(EvAction) {
		if act.Attacker != nil && act.Attacker.ID == dead.ID {
			t.Fatalf("dead member acted")
		}
	}
}

func TestPauseResumeExactness(t *testing.T) {
	p := testParty(t)
	c, rec := testCombat(t, "pause-seed", p)
	c.Start(1, nil)

	updates := rec.ofType(EvCombatUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected the opening round order, got %d updates", len(updates))
	}
	head := updates[0].Order[0].ID

	c.Pause()
	if c.Step() {
		t.Fatalf("Step must refuse while paused")
	}
	if len(rec.ofType(EvAction)) != 0 {
		t.Fatalf("no actions may fire while paused")
	}
	c.Resume()
	if !c.Step() {
		t.Fatalf("Step must proceed after resume")
	}
	acts := rec.ofType(EvAction)
	if len(acts) == 0 || acts[0].Attacker.ID != head {
		t.Fatalf("resume must continue with the queued head actor")
	}
}

func TestAmbushCutsEnemyWeight(t *testing.T) {
	content, err := LoadContent()
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	seed, _ := NewRunSeed("ambush-probe")
	// Probe for a stream whose encounter die comes up 1.
	lbl := ""
	for i := 0; i < 10000; i++ {
		cand := "combat:" + strconv.Itoa(i)
		if seed.Stream(cand).Child("encounter").Roll(20) == 1 {
			lbl = cand
			break
		}
	}
	if lbl == "" {
		t.Fatalf("no ambush stream found")
	}

	p := testParty(t)
	rec := &recorder{}
	c := NewCombat(p, content, rec, nil, seed.Stream(lbl))
	c.Start(1, nil)
	if c.Encounter() != EncounterAmbush {
		t.Fatalf("encounter roll 1 must be an ambush, got %s", c.Encounter())
	}
	for _, e := range c.Enemies() {
		if e.Stats.Weight != 0 {
			t.Fatalf("ambush cuts enemy weight 20 to 0, got %d", e.Stats.Weight)
		}
	}
	starts := rec.ofType(EvCombatStart)
	if len(starts) != 1 || starts[0].EncounterRoll != 1 {
		t.Fatalf("combat_start must carry the encounter roll")
	}
}

func TestTargetSelectorZoneFallback(t *testing.T) {
	p := testParty(t)
	c, _ := testCombat(t, "target-seed", p)
	seed, _ := NewRunSeed("target-seed")
	rng := seed.Stream("sel")

	backliner := NewCharacter("Lurker", ClassMonster)
	backliner.Zone = ZoneBack
	actor := p.Members[0]

	if got := c.selectTarget(actor, TargetEnemyFront, nil, []*Character{backliner}, rng); got != backliner {
		t.Fatalf("front selector must fall back to the back zone")
	}
	if got := c.selectTarget(actor, TargetEnemyFront, nil, nil, rng); got != nil {
		t.Fatalf("empty pool must select nothing")
	}
	if got := c.selectTarget(actor, TargetSelf, nil, nil, rng); got != actor {
		t.Fatalf("self selector returns the actor")
	}

	hurt := p.Members[2]
	hurt.HP = 1
	if got := c.selectTarget(actor, TargetAllyLowest, p.Members, nil, rng); got != hurt {
		t.Fatalf("lowest-HP selector picked %v", got)
	}
}

func TestOnHurtInstinct(t *testing.T) {
	p := testParty(t)
	c, rec := testCombat(t, "hurt-seed", p)
	target := NewCharacter("Flincher", ClassMonster)
	target.Instinct = &Instinct{Name: "Pain Collector", Trigger: TriggerOnHurt, DefenseBuff: 1, LibidoGain: 5}

	seed, _ := NewRunSeed("hurt-seed")
	c.applyDamage(p.Members[0], target, 10, "", seed.Stream("hit"))

	if target.BonusDefense != 1 {
		t.Fatalf("on_hurt must grant the defense buff, got %d", target.BonusDefense)
	}
	if target.Emotion.Libido != 5 {
		t.Fatalf("on_hurt must raise libido, got %d", target.Emotion.Libido)
	}
	triggers := rec.ofType(EvInstinctTrigger)
	if len(triggers) != 1 || triggers[0].InstinctName != "Pain Collector" {
		t.Fatalf("instinct event missing: %+v", triggers)
	}
	if len(rec.ofType(EvNarrative)) == 0 {
		t.Fatalf("instinct triggers fire a narrative event")
	}
}

func TestOnKillInstinct(t *testing.T) {
	p := testParty(t)
	killer := p.Members[0]
	killer.Instinct = &Instinct{Name: "Adrenaline Junkie", Trigger: TriggerOnKill, SelfHeal: 5}
	killer.HP = killer.Derived.MaxHP - 20
	c, rec := testCombat(t, "kill-seed", p)

	victim := NewCharacter("Goner", ClassMonster)
	victim.HP = 1
	seed, _ := NewRunSeed("kill-seed")
	c.applyDamage(killer, victim, 10, "", seed.Stream("hit"))

	if victim.IsAlive() {
		t.Fatalf("victim at 1 HP must die")
	}
	if len(rec.ofType(EvDeath)) != 1 {
		t.Fatalf("death event missing")
	}
	if killer.HP != killer.Derived.MaxHP-20+5 {
		t.Fatalf("on_kill must self-heal 5, HP=%d", killer.HP)
	}
	narr := rec.ofType(EvNarrative)
	if len(narr) != 1 || narr[0].Trigger != NarrativeKill {
		t.Fatalf("kill outranks other narrative triggers: %+v", narr)
	}
}

func TestFullHPInstinctCritBonus(t *testing.T) {
	p := testParty(t)
	sniper := p.Members[2]
	sniper.Instinct = &Instinct{Name: "Weakness Scanner", Trigger: TriggerTargetFullHP, CritBonus: 90}
	c, rec := testCombat(t, "crit-seed", p)
	seed, _ := NewRunSeed("crit-seed")

	// +90 points on the 10% base makes the crit certain against untouched targets.
	for i := 0; i < 20; i++ {
		fresh := NewCharacter("Dummy", ClassMonster)
		c.applyDamage(sniper, fresh, 10, "", seed.Stream(label("swing", i)))
	}
	for _, act := range rec.ofType(EvAction) {
		if !act.IsCrit {
			t.Fatalf("full-HP target with +90 bonus must always crit")
		}
	}

	// Against a wounded target the base 10% applies; 200 swings cannot all crit.
	rec.events = nil
	wounded := NewCharacter("Bruiser", ClassMonster)
	wounded.Stats.Vitality = 10000
	wounded.Recalculate()
	wounded.HP = wounded.Derived.MaxHP
	wounded.TakeDamage(wounded.Derived.Defense + 1)
	sawPlain := false
	for i := 0; i < 200; i++ {
		c.applyDamage(sniper, wounded, 1, "", seed.Stream(label("wounded", i)))
	}
	for _, act := range rec.ofType(EvAction) {
		if !act.IsCrit {
			sawPlain = true
		}
	}
	if !sawPlain {
		t.Fatalf("wounded targets keep the 10%% base crit rate")
	}
}

func TestCardWithoutFormulaFailsClosed(t *testing.T) {
	p := testParty(t)
	c, rec := testCombat(t, "closed-seed", p)
	target := NewCharacter("Sack", ClassMonster)
	target.Stats.Vitality = 1000
	target.Recalculate()
	target.HP = target.Derived.MaxHP

	card := SkillCard{Name: "Blank Strike", Kind: CardMain, Target: TargetEnemyRandom}
	seed, _ := NewRunSeed("closed-seed")
	c.performCard(p.Members[0], card, p.Members, []*Character{target}, seed.Stream("act"))

	acts := rec.ofType(EvAction)
	if len(acts) != 1 {
		t.Fatalf("fallback damage must still land: %+v", acts)
	}
	if acts[0].Amount < 1 {
		t.Fatalf("fail-closed damage below the floor: %d", acts[0].Amount)
	}
}
