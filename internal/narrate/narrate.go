package narrate

import (
	"context"

	"github.com/veylan/tome-tui/internal/engine"
)

// PromptContext is everything a narrator may use to render a page. It is
// assembled by the caller from the blackboard and the party's narrative
// contexts; narrators never reach into engine state themselves.
type PromptContext struct {
	Chapter   string
	Tone      string
	PageTitle string
	PageType  string
	Keywords  []string
	Verbosity engine.VerbosityTier
	Members   []engine.MemberContext
	// LastAction/LastSpeaker carry the most recent narrative beat.
	LastAction  string
	LastSpeaker string
}

// Reaction is one party member's structured response to an event.
type Reaction struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
}

// Narrator renders prose for pages and combat events.
type Narrator interface {
	Scene(ctx context.Context, pc PromptContext) (string, error)
	PartyReaction(ctx context.Context, members []engine.MemberContext, ev engine.Event) ([]Reaction, error)
}

// WithFallback returns a narrator that prefers primary and falls back to
// backup on error.
func WithFallback(primary, fallback Narrator) Narrator {
	return &fallbackNarrator{p: primary, f: fallback}
}

type fallbackNarrator struct{ p, f Narrator }

func (n *fallbackNarrator) Scene(ctx context.Context, pc PromptContext) (string, error) {
	if n.p == nil {
		return n.f.Scene(ctx, pc)
	}
	if s, err := n.p.Scene(ctx, pc); err == nil {
		return s, nil
	}
	return n.f.Scene(ctx, pc)
}

func (n *fallbackNarrator) PartyReaction(ctx context.Context, members []engine.MemberContext, ev engine.Event) ([]Reaction, error) {
	if n.p == nil {
		return n.f.PartyReaction(ctx, members, ev)
	}
	if r, err := n.p.PartyReaction(ctx, members, ev); err == nil {
		return r, nil
	}
	return n.f.PartyReaction(ctx, members, ev)
}

// verbosityInstruction maps a page's weight tier to the length guidance
// embedded in prompts and honored by the template narrator.
func verbosityInstruction(t engine.VerbosityTier) string {
	switch t {
	case engine.VerbosityLow:
		return "Keep it to one or two terse sentences."
	case engine.VerbosityHigh:
		return "Write a rich paragraph with sensory detail and a line of party banter."
	default:
		return "Write three or four sentences."
	}
}
