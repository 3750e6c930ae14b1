package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// Session ties one run together: the party, the page generator, the shared
// blackboard and, when a battle is live, the combat manager. The UI drives
// it by applying choice actions and stepping combat.
type Session struct {
	Seed  RunSeed
	Party *Party
	Book  *Book
	Board *Blackboard

	content *Content
	log     *zap.Logger
	obs     Observer

	page   *Page
	combat *Combat
}

// ChoiceResult reports what applying a choice did, for narration.
type ChoiceResult struct {
	Action        ActionTag
	Page          *Page
	CombatStarted bool
	Rested        bool
	Loot          *Item
	Gold          int
}

// NewSession assembles a run from a seed text. The observer receives
// combat events for every battle the session starts.
func NewSession(seedText string, party *Party, content *Content, obs Observer, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	seed, err := NewRunSeed(seedText)
	if err != nil {
		return nil, err
	}
	return &Session{
		Seed:    seed,
		Party:   party,
		Book:    NewBook(content, seed.Stream("book")),
		Board:   NewBlackboard(),
		content: content,
		log:     log,
		obs:     obs,
	}, nil
}

// Page returns the page the party currently stands on.
func (s *Session) Page() *Page { return s.page }

// Combat returns the live combat manager, nil outside battle.
func (s *Session) Combat() *Combat { return s.combat }

// TurnPage draws the next page and records it on the blackboard.
func (s *Session) TurnPage() *Page {
	pg := s.Book.NextPage()
	s.page = &pg
	s.Board.SetCurrentPage(pg)
	s.Board.SetLastEventTag(string(s.page.Type))
	return s.page
}

// ResolveChoices runs the party vote over the current page's choices,
// with directorPick as the player's own choice index (-1 to abstain).
func (s *Session) ResolveChoices(directorPick int) VoteOutcome {
	rng := s.Seed.Stream(fmt.Sprintf("vote:%d", s.page.ID))
	return ResolveVotes(rng, s.Party, s.page.Choices, directorPick)
}

// AttemptPersuasion rolls the director's one override check for the
// current page's vote.
func (s *Session) AttemptPersuasion() PersuasionResult {
	return Persuade(s.Seed.Stream(fmt.Sprintf("persuade:%d", s.page.ID)))
}

// Apply executes the chosen action against the session state.
func (s *Session) Apply(action ActionTag) ChoiceResult {
	res := ChoiceResult{Action: action}
	switch action {
	case ActionStartCombat:
		s.combat = NewCombat(s.Party, s.content, s.obs, s.log, s.Seed.Stream(fmt.Sprintf("combat:%d", s.page.ID)))
		s.combat.Start(s.page.Difficulty, s.page.CombatModifiers())
		res.CombatStarted = true
	case ActionRest:
		for _, m := range s.Party.AliveMembers() {
			m.RestoreAll()
		}
		res.Rested = true
		res.Page = s.TurnPage()
	case ActionOpenChest:
		rng := s.Seed.Stream(fmt.Sprintf("chest:%d", s.page.ID))
		res.Loot = RollLoot(rng, *s.page)
		res.Gold = RollGold(rng, *s.page)
		s.Party.AddItem(res.Loot)
		s.Party.Gold += res.Gold
		res.Page = s.TurnPage()
	default:
		res.Page = s.TurnPage()
	}
	return res
}

// StepCombat advances the live battle one turn. When the battle settles it
// clears the combat slot and reports the terminal state.
func (s *Session) StepCombat() (done bool, state CombatState) {
	if s.combat == nil {
		return true, CombatIdle
	}
	if s.combat.Step() {
		return false, s.combat.State()
	}
	if s.combat.Paused() {
		return false, s.combat.State()
	}
	state = s.combat.State()
	if state == CombatWon || state == CombatLost {
		s.combat = nil
		return true, state
	}
	return false, state
}
