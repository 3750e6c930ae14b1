package engine

import (
	"strconv"
	"strings"
)

const modifierChance = 0.3

// PageChoice is one selectable option on a page. The action tag is opaque
// to the engine and resolved by the game-loop controller.
type PageChoice struct {
	Text   string
	Action ActionTag
}

// Page is a procedurally composed encounter descriptor.
type Page struct {
	ID          int
	Type        EncounterType
	Title       string
	Keywords    []string
	TotalWeight int
	Difficulty  int
	Verbosity   VerbosityTier
	Choices     []PageChoice

	// Prefix/Suffix are retained so combat setup can apply their typed
	// stat effects. Nil when the draw missed.
	Prefix *PageModifier
	Suffix *PageModifier
}

// Book turns the weighted tables into a page sequence. All randomness comes
// from the injected stream, so a seed reproduces the same book.
type Book struct {
	content *Content
	rng     *Stream
	pageNum int
	Chapter int
}

func NewBook(content *Content, rng *Stream) *Book {
	return &Book{content: content, rng: rng, Chapter: 1}
}

// PageNumber returns the number of the most recently generated page.
func (b *Book) PageNumber() int { return b.pageNum }

// NextPage draws one base uniformly plus, independently with probability
// 0.3 each, a prefix and a suffix drawn uniformly by presence. The page
// weight is the sum of the drawn rarity scores and drives the narrator's
// verbosity tier.
func (b *Book) NextPage() Page {
	b.pageNum++
	rng := b.rng.Child(label("page", b.pageNum))

	base := b.content.Bases[rng.Intn(len(b.content.Bases))]

	var prefix, suffix *PageModifier
	if len(b.content.Prefixes) > 0 && rng.Chance(modifierChance) {
		p := b.content.Prefixes[rng.Intn(len(b.content.Prefixes))]
		prefix = &p
	}
	if len(b.content.Suffixes) > 0 && rng.Chance(modifierChance) {
		s := b.content.Suffixes[rng.Intn(len(b.content.Suffixes))]
		suffix = &s
	}

	page := Page{
		ID:          b.pageNum,
		Type:        base.Type,
		Difficulty:  base.Difficulty,
		TotalWeight: base.Rarity,
		Prefix:      prefix,
		Suffix:      suffix,
	}

	parts := make([]string, 0, 3)
	if prefix != nil {
		parts = append(parts, prefix.Name)
		page.Keywords = append(page.Keywords, prefix.Keywords...)
		page.TotalWeight += prefix.Rarity
	}
	parts = append(parts, base.Name)
	page.Keywords = append(page.Keywords, base.Keywords...)
	if suffix != nil {
		parts = append(parts, suffix.Name)
		page.Keywords = append(page.Keywords, suffix.Keywords...)
		page.TotalWeight += suffix.Rarity
	}
	page.Title = strings.Join(parts, " ")
	page.Verbosity = verbosityForWeight(page.TotalWeight)
	page.Choices = choicesForType(base.Type)
	return page
}

func verbosityForWeight(w int) VerbosityTier {
	switch {
	case w < 20:
		return VerbosityLow
	case w <= 50:
		return VerbosityMid
	default:
		return VerbosityHigh
	}
}

func choicesForType(t EncounterType) []PageChoice {
	switch t {
	case EncounterBattle, EncounterBoss:
		return []PageChoice{
			{Text: "Fight", Action: ActionStartCombat},
		}
	case EncounterTreasure, EncounterShop:
		return []PageChoice{
			{Text: "Inspect", Action: ActionOpenChest},
			{Text: "Leave", Action: ActionNextPage},
		}
	case EncounterRest:
		return []PageChoice{
			{Text: "Rest", Action: ActionRest},
			{Text: "Continue", Action: ActionNextPage},
		}
	default:
		return []PageChoice{
			{Text: "Turn the page", Action: ActionNextPage},
		}
	}
}

// CombatModifiers collects the typed stat effects carried by the page's
// drawn modifiers, in draw order.
func (p Page) CombatModifiers() []ModifierEffect {
	var out []ModifierEffect
	if p.Prefix != nil && !p.Prefix.Effect.IsZero() {
		out = append(out, p.Prefix.Effect)
	}
	if p.Suffix != nil && !p.Suffix.Effect.IsZero() {
		out = append(out, p.Suffix.Effect)
	}
	return out
}

func label(prefix string, n int) string {
	return prefix + ":" + strconv.Itoa(n)
}
