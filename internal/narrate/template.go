package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/veylan/tome-tui/internal/engine"
)

// templateNarrator is the deterministic offline narrator. It is the
// terminal fallback, so it never returns an error.
type templateNarrator struct{}

// NewTemplateNarrator returns the offline narrator.
func NewTemplateNarrator() Narrator { return &templateNarrator{} }

func (t *templateNarrator) Scene(ctx context.Context, pc PromptContext) (string, error) {
	var b strings.Builder
	b.WriteString("## " + pc.PageTitle + "\n\n")

	switch pc.PageType {
	case string(engine.EncounterBattle):
		b.WriteString("Hostile shapes block the path ahead.")
	case string(engine.EncounterBoss):
		b.WriteString("Something vast stirs in the dark, and the air goes still.")
	case string(engine.EncounterTreasure):
		b.WriteString("A chest sits half-buried in the rubble, its lock long rusted.")
	case string(engine.EncounterRest):
		b.WriteString("For once, nothing moves. A safe place to catch your breath.")
	case string(engine.EncounterShop):
		b.WriteString("A wagon creaks at the roadside, its keeper watching you price everything you carry.")
	default:
		b.WriteString("The page turns, and the road goes on.")
	}

	if len(pc.Keywords) > 0 && pc.Verbosity != engine.VerbosityLow {
		b.WriteString(" The air carries hints of " + strings.Join(pc.Keywords, ", ") + ".")
	}
	if pc.Verbosity == engine.VerbosityHigh {
		b.WriteString("\n\nThe party exchanges a look. This place will be remembered.")
		for _, m := range pc.Members {
			if m.Insane {
				b.WriteString(fmt.Sprintf(" %s mutters something no one asks about.", m.Name))
			}
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

func (t *templateNarrator) PartyReaction(ctx context.Context, members []engine.MemberContext, ev engine.Event) ([]Reaction, error) {
	var out []Reaction
	for _, m := range members {
		if !m.Alive {
			continue
		}
		out = append(out, Reaction{Name: m.Name, Text: reactionLine(m, ev)})
	}
	return out, nil
}

// reactionLine picks a canned line from the member's temperament axes.
func reactionLine(m engine.MemberContext, ev engine.Event) string {
	if m.Insane {
		return "laughs at nothing in particular."
	}
	switch ev.Type {
	case engine.EvDeath:
		if strings.HasPrefix(m.MBTI, "E") {
			return "roars a challenge over the body."
		}
		return "goes quiet and checks the shadows."
	case engine.EvNarrative:
		if ev.Trigger == engine.NarrativeCrit {
			return "whistles at the hit."
		}
		return "watches, saying nothing."
	case engine.EvCombatEnd:
		if ev.IsWin {
			return "lets out a held breath."
		}
		return "drags the others back from the brink."
	default:
		if strings.Contains(m.MBTI, "J") {
			return "wants to keep moving."
		}
		return "shrugs and waits for the vote."
	}
}
