package engine

import (
	"strconv"
	"strings"
)

// Party voting: each living member scores every choice from its personality
// and state, votes for its best one, and the tally picks the winner. A
// dissenting director can attempt one persuasion check to override.

const (
	directorVoteWeight = 1.5
	persuasionDC       = 12
	// The director has no charisma stat; the modifier is a fixed constant.
	persuasionModifier = 2
	voteNoiseSpan      = 10 // symmetric noise in (-5, +5)
	survivalHPRatio    = 0.3
	healthyHPRatio     = 0.7
)

// EvaluateChoice computes this member's desirability score for a choice.
// Noise comes from the injected stream so votes are reproducible per seed.
func (c *Character) EvaluateChoice(choice PageChoice, rng *Stream) float64 {
	score := 0.0
	action := choice.Action
	text := strings.ToLower(choice.Text)

	// Survival override dominates everything when badly hurt.
	if c.HPRatio() < survivalHPRatio {
		switch {
		case action == ActionRest || action == ActionFlee || action == ActionLeave || strings.Contains(text, "leave"):
			score += 50
		case action == ActionStartCombat:
			score -= 50
		}
	}

	valE := float64(Influence(c.Personality.Extraversion))
	valS := float64(Influence(c.Personality.Sensing))
	valT := float64(Influence(c.Personality.Thinking))
	valJ := float64(Influence(c.Personality.Judging))

	// Extraversion: bold, action-seeking. Introversion: cautious.
	if valE > 0 {
		if action == ActionStartCombat || action == ActionOpenChest {
			score += valE * 0.2
		}
		if action == ActionFlee {
			score -= valE * 0.2
		}
	} else {
		if action == ActionRest || strings.Contains(text, "observe") {
			score += -valE * 0.2
		}
	}

	// Sensing: tangible rewards. Intuition: the unknown.
	if valS > 0 {
		if action == ActionOpenChest {
			score += valS * 0.3
		}
	} else {
		if strings.Contains(text, "investigate") || strings.Contains(text, "examine") || strings.Contains(text, "inspect") {
			score += -valS * 0.3
		}
	}

	// Thinking: calculated combat when healthy. Feeling: people first.
	if valT > 0 {
		if c.HPRatio() > healthyHPRatio && action == ActionStartCombat {
			score += valT * 0.1
		}
	} else {
		if strings.Contains(text, "talk") || strings.Contains(text, "negotiate") {
			score += -valT * 0.3
		}
	}

	// Judging: decisive forward progress.
	if valJ > 0 && action == ActionNextPage {
		score += valJ * 0.1
	}

	score += rng.Float64()*voteNoiseSpan - voteNoiseSpan/2
	return score
}

// MemberVote is one member's audit entry: its per-choice scores and pick.
type MemberVote struct {
	MemberID string
	Scores   []float64
	Pick     int
	Weight   float64
}

// VoteOutcome is the resolver's result plus the full audit trail.
type VoteOutcome struct {
	WinnerIndex int
	Winner      PageChoice
	Votes       []MemberVote
	Tally       []float64
	// DirectorIndex is the director's pick, -1 when no director voted.
	DirectorIndex int
	// PersuasionOffered is set when the director's pick lost the tally.
	PersuasionOffered bool
}

// ResolveVotes tallies the living members' votes over the choice list. The
// director's vote (directorIndex >= 0) weighs 1.5x and wins ties.
func ResolveVotes(rng *Stream, party *Party, choices []PageChoice, directorIndex int) VoteOutcome {
	out := VoteOutcome{DirectorIndex: directorIndex}
	if len(choices) == 0 {
		out.WinnerIndex = -1
		return out
	}
	out.Tally = make([]float64, len(choices))

	for i, member := range party.AliveMembers() {
		mv := MemberVote{MemberID: member.ID, Weight: 1, Pick: 0}
		mv.Scores = make([]float64, len(choices))
		memberRNG := rng.Child("member:" + member.ID + ":" + strconv.Itoa(i))
		best := 0
		for j, choice := range choices {
			mv.Scores[j] = member.EvaluateChoice(choice, memberRNG.Child("choice:"+strconv.Itoa(j)))
			if mv.Scores[j] > mv.Scores[best] {
				best = j
			}
		}
		mv.Pick = best
		out.Tally[best] += mv.Weight
		out.Votes = append(out.Votes, mv)
	}

	if directorIndex >= 0 && directorIndex < len(choices) {
		out.Tally[directorIndex] += directorVoteWeight
	}

	winner := 0
	for i := range out.Tally {
		if out.Tally[i] > out.Tally[winner] {
			winner = i
		} else if out.Tally[i] == out.Tally[winner] && i == directorIndex {
			winner = i
		}
	}
	out.WinnerIndex = winner
	out.Winner = choices[winner]
	out.PersuasionOffered = directorIndex >= 0 && directorIndex < len(choices) && winner != directorIndex
	return out
}

// PersuasionResult records the single atomic override roll.
type PersuasionResult struct {
	Roll    int
	Total   int
	Success bool
}

// Persuade rolls 1d20 + the fixed modifier against the difficulty
// threshold. One roll, no retry; success swaps the winner to the
// director's pick.
func Persuade(rng *Stream) PersuasionResult {
	roll := rng.Roll(20)
	total := roll + persuasionModifier
	return PersuasionResult{Roll: roll, Total: total, Success: total >= persuasionDC}
}

// ApplyPersuasion finalizes the outcome after a persuasion attempt.
func (o VoteOutcome) ApplyPersuasion(res PersuasionResult, choices []PageChoice) VoteOutcome {
	if !o.PersuasionOffered || !res.Success {
		return o
	}
	o.WinnerIndex = o.DirectorIndex
	o.Winner = choices[o.DirectorIndex]
	return o
}
