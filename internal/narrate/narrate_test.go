package narrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veylan/tome-tui/internal/engine"
)

var testMembers = []engine.MemberContext{
	{Name: "Chris", Class: "warrior", MBTI: "ISFJ", HPLine: "120/120", Alive: true, Loyalty: 50, Sanity: 100},
	{Name: "Silas", Class: "healer", MBTI: "INFP", HPLine: "10/50", Alive: true, Loyalty: 40, Sanity: 25, Insane: true},
	{Name: "Theon", Class: "barbarian", MBTI: "ESTP", HPLine: "0/80", Alive: false},
}

func testPromptContext() PromptContext {
	return PromptContext{
		Chapter:   "Chapter 1: The Beginning",
		Tone:      "default",
		PageTitle: "Burning Goblin Cave",
		PageType:  "battle",
		Keywords:  []string{"fire", "goblin"},
		Verbosity: engine.VerbosityMid,
		Members:   testMembers,
	}
}

func TestTemplateSceneDeterministic(t *testing.T) {
	n := NewTemplateNarrator()
	a, err := n.Scene(context.Background(), testPromptContext())
	if err != nil {
		t.Fatalf("Scene: %v", err)
	}
	b, _ := n.Scene(context.Background(), testPromptContext())
	if a != b {
		t.Fatalf("template narrator must be deterministic")
	}
	if a == "" {
		t.Fatalf("empty scene")
	}
}

func TestTemplateReactionsSkipDead(t *testing.T) {
	n := NewTemplateNarrator()
	out, err := n.PartyReaction(context.Background(), testMembers, engine.Event{Type: engine.EvCombatEnd, IsWin: true})
	if err != nil {
		t.Fatalf("PartyReaction: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("dead members must not react: %d reactions", len(out))
	}
	for _, r := range out {
		if r.Name == "Theon" {
			t.Fatalf("dead member reacted")
		}
		if r.Text == "" {
			t.Fatalf("empty reaction line")
		}
	}
}

type erroring struct{}

func (erroring) Scene(context.Context, PromptContext) (string, error) {
	return "", fmt.Errorf("boom")
}
func (erroring) PartyReaction(context.Context, []engine.MemberContext, engine.Event) ([]Reaction, error) {
	return nil, fmt.Errorf("boom")
}

func TestWithFallback(t *testing.T) {
	n := WithFallback(erroring{}, NewTemplateNarrator())
	s, err := n.Scene(context.Background(), testPromptContext())
	if err != nil || s == "" {
		t.Fatalf("fallback must absorb primary errors: %q %v", s, err)
	}
	n = WithFallback(nil, NewTemplateNarrator())
	if _, err := n.Scene(context.Background(), testPromptContext()); err != nil {
		t.Fatalf("nil primary goes straight to fallback: %v", err)
	}
}

func geminiStub(t *testing.T, payload string) *Gemini {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": payload}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	g := NewGemini("test-key", "", nil)
	g.endpoint = srv.URL
	return g
}

func TestGeminiSceneParsesNarrative(t *testing.T) {
	g := geminiStub(t, `{"narrative": "The cave breathes smoke."}`)
	s, err := g.Scene(context.Background(), testPromptContext())
	if err != nil {
		t.Fatalf("Scene: %v", err)
	}
	if s != "The cave breathes smoke." {
		t.Fatalf("unexpected narrative: %q", s)
	}
}

func TestGeminiMissingKeyErrors(t *testing.T) {
	g := NewGemini("", "", nil)
	if _, err := g.Scene(context.Background(), testPromptContext()); err == nil {
		t.Fatalf("missing key must error so the fallback can take over")
	}
}

func TestGeminiBadReactionJSONYieldsEmpty(t *testing.T) {
	g := geminiStub(t, `this is not json`)
	out, err := g.PartyReaction(context.Background(), testMembers, engine.Event{Type: engine.EvDeath})
	if err != nil {
		t.Fatalf("bad model JSON must not surface an error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("bad model JSON must yield no reactions: %+v", out)
	}
}

func TestGeminiReactionParses(t *testing.T) {
	g := geminiStub(t, `[{"name":"Chris","text":"Stay behind me.","action":"guard"}]`)
	out, err := g.PartyReaction(context.Background(), testMembers, engine.Event{Type: engine.EvDeath})
	if err != nil {
		t.Fatalf("PartyReaction: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Chris" || out[0].Action != "guard" {
		t.Fatalf("unexpected reactions: %+v", out)
	}
}
