package narrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veylan/tome-tui/internal/engine"
)

const (
	defaultGeminiModel    = "gemini-1.5-flash-latest"
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiTimeout         = 30 * time.Second
)

// Gemini is the online narrator speaking the generateContent HTTP API in
// JSON mode. Every call carries the request context, so the session's
// timeout and cancellation apply.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewGemini builds the adapter. An empty API key is allowed; calls will
// error and the fallback narrator takes over.
func NewGemini(apiKey, model string, log *zap.Logger) *Gemini {
	if model == "" {
		model = defaultGeminiModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultGeminiEndpoint,
		client:   &http.Client{Timeout: geminiTimeout},
		log:      log,
	}
}

// Model reports the model name the adapter targets.
func (g *Gemini) Model() string { return g.model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

func (g *Gemini) Scene(ctx context.Context, pc PromptContext) (string, error) {
	var b strings.Builder
	b.WriteString("You narrate a grim party RPG. Respond ONLY with a JSON object holding a 'narrative' string field.\n")
	b.WriteString(verbosityInstruction(pc.Verbosity))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Chapter: %s\nTone: %s\nPage: %s (%s)\n", pc.Chapter, pc.Tone, pc.PageTitle, pc.PageType)
	if len(pc.Keywords) > 0 {
		fmt.Fprintf(&b, "Motifs: %s\n", strings.Join(pc.Keywords, ", "))
	}
	if pc.LastAction != "" {
		fmt.Fprintf(&b, "Previously: %s (%s)\n", pc.LastAction, pc.LastSpeaker)
	}
	for _, m := range pc.Members {
		fmt.Fprintf(&b, "- %s, %s, %s, HP %s, sanity %d\n", m.Name, m.Class, m.MBTI, m.HPLine, m.Sanity)
	}

	raw, err := g.generate(ctx, b.String())
	if err != nil {
		return "", err
	}
	var out struct {
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("scene output: %w", err)
	}
	if out.Narrative == "" {
		return "", fmt.Errorf("scene output: empty narrative")
	}
	return out.Narrative, nil
}

// PartyReaction asks for structured member reactions. Malformed JSON from
// the model yields an empty list and a log entry, not an error; a missing
// reaction never stalls combat.
func (g *Gemini) PartyReaction(ctx context.Context, members []engine.MemberContext, ev engine.Event) ([]Reaction, error) {
	var b strings.Builder
	b.WriteString("You voice a party of adventurers reacting to a combat beat. ")
	b.WriteString("Respond ONLY with a JSON array of objects with 'name', 'text' and optional 'action' fields, one per living member.\n\n")
	fmt.Fprintf(&b, "Event: %s", ev.Type)
	if ev.Trigger != "" {
		fmt.Fprintf(&b, " (%s)", ev.Trigger)
	}
	b.WriteString("\nMembers:\n")
	for _, m := range members {
		if !m.Alive {
			continue
		}
		fmt.Fprintf(&b, "- %s, %s, %s, HP %s, loyalty %d, sanity %d", m.Name, m.Class, m.MBTI, m.HPLine, m.Loyalty, m.Sanity)
		if len(m.Traits) > 0 {
			fmt.Fprintf(&b, ", traits: %s", strings.Join(m.Traits, "/"))
		}
		b.WriteString("\n")
	}

	raw, err := g.generate(ctx, b.String())
	if err != nil {
		return nil, err
	}
	var out []Reaction
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		g.log.Warn("party reaction output unparseable", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

// generate performs one JSON-mode call and returns the model's raw text.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini: no API key configured")
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.log.Warn("gemini call failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", g.model))
		return "", fmt.Errorf("gemini: status %s", resp.Status)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("gemini: unmarshal response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: response missing content")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
