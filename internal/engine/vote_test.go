package engine

import (
	"strconv"
	"testing"
)

var battleChoices = []PageChoice{
	{Text: "Fight", Action: ActionStartCombat},
	{Text: "Leave quietly", Action: ActionLeave},
}

// streamWithD20 probes labelled streams until the first d20 draw equals
// want, then returns a fresh stream at that position.
func streamWithD20(t *testing.T, want int) *Stream {
	t.Helper()
	seed, _ := NewRunSeed("d20-probe")
	for i := 0; i < 10000; i++ {
		lbl := "probe:" + strconv.Itoa(i)
		if seed.Stream(lbl).Roll(20) == want {
			return seed.Stream(lbl)
		}
	}
	t.Fatalf("no stream found with first d20 = %d", want)
	return nil
}

func TestSurvivalOverride(t *testing.T) {
	c := NewCharacter("Chris", ClassWarrior)
	c.HP = c.Derived.MaxHP / 10
	seed, _ := NewRunSeed("vote-seed")

	// Noise is bounded by ±5, the override by ±100 between the options.
	fight := c.EvaluateChoice(battleChoices[0], seed.Stream("a"))
	leave := c.EvaluateChoice(battleChoices[1], seed.Stream("b"))
	if leave <= fight {
		t.Fatalf("badly hurt member must prefer retreat: fight=%v leave=%v", fight, leave)
	}
}

func TestResolveVotesTallyAndDirectorWeight(t *testing.T) {
	p := testParty(t)
	for _, m := range p.Members {
		m.HP = m.Derived.MaxHP / 10 // everyone prefers Leave
	}
	seed, _ := NewRunSeed("vote-seed")
	out := ResolveVotes(seed.Stream("vote"), p, battleChoices, 0)

	if len(out.Votes) != 4 {
		t.Fatalf("expected 4 member votes, got %d", len(out.Votes))
	}
	for _, v := range out.Votes {
		if v.Pick != 1 {
			t.Fatalf("member %s should pick Leave, picked %d", v.MemberID, v.Pick)
		}
	}
	// 4 member votes on choice 1 vs director weight 1.5 on choice 0.
	if out.Tally[0] != 1.5 || out.Tally[1] != 4 {
		t.Fatalf("unexpected tally: %v", out.Tally)
	}
	if out.WinnerIndex != 1 {
		t.Fatalf("majority must win, got %d", out.WinnerIndex)
	}
	if !out.PersuasionOffered {
		t.Fatalf("dissenting director must be offered persuasion")
	}
}

func TestResolveVotesDirectorWinsTies(t *testing.T) {
	p := NewParty()
	seed, _ := NewRunSeed("vote-seed")
	// Empty roster: only the director's weighted vote lands.
	out := ResolveVotes(seed.Stream("vote"), p, battleChoices, 1)
	if out.WinnerIndex != 1 || out.PersuasionOffered {
		t.Fatalf("director alone wins outright: %+v", out)
	}
}

func TestDeadMembersDoNotVote(t *testing.T) {
	p := testParty(t)
	p.Members[2].HP = 0
	seed, _ := NewRunSeed("vote-seed")
	out := ResolveVotes(seed.Stream("vote"), p, battleChoices, -1)
	if len(out.Votes) != 3 {
		t.Fatalf("dead members must not vote: %d votes", len(out.Votes))
	}
	for _, v := range out.Votes {
		if v.MemberID == p.Members[2].ID {
			t.Fatalf("dead member appears in the audit trail")
		}
	}
}

func TestPersuasionPinnedRolls(t *testing.T) {
	res := Persuade(streamWithD20(t, 15))
	if !res.Success || res.Total != 17 {
		t.Fatalf("d20=15 +2 vs DC 12 must pass: %+v", res)
	}
	res = Persuade(streamWithD20(t, 5))
	if res.Success || res.Total != 7 {
		t.Fatalf("d20=5 +2 vs DC 12 must fail: %+v", res)
	}
	// Boundary: total exactly DC passes.
	res = Persuade(streamWithD20(t, 10))
	if !res.Success || res.Total != 12 {
		t.Fatalf("total 12 meets DC 12: %+v", res)
	}
}

func TestApplyPersuasion(t *testing.T) {
	out := VoteOutcome{
		WinnerIndex:       1,
		Winner:            battleChoices[1],
		DirectorIndex:     0,
		PersuasionOffered: true,
	}
	swapped := out.ApplyPersuasion(PersuasionResult{Success: true}, battleChoices)
	if swapped.WinnerIndex != 0 || swapped.Winner.Action != ActionStartCombat {
		t.Fatalf("successful persuasion must swap to the director's pick")
	}
	kept := out.ApplyPersuasion(PersuasionResult{Success: false}, battleChoices)
	if kept.WinnerIndex != 1 {
		t.Fatalf("failed persuasion keeps the tally winner")
	}
}

func TestVoteDeterministicPerSeed(t *testing.T) {
	p1, p2 := testParty(t), testParty(t)
	s1, _ := NewRunSeed("det-seed")
	s2, _ := NewRunSeed("det-seed")
	out1 := ResolveVotes(s1.Stream("vote"), p1, battleChoices, 0)
	out2 := ResolveVotes(s2.Stream("vote"), p2, battleChoices, 0)
	if out1.WinnerIndex != out2.WinnerIndex {
		t.Fatalf("same seed must resolve identically")
	}
	for i := range out1.Votes {
		if out1.Votes[i].Pick != out2.Votes[i].Pick {
			t.Fatalf("member %d diverged", i)
		}
	}
}
