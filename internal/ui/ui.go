package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veylan/tome-tui/internal/engine"
	"github.com/veylan/tome-tui/internal/narrate"
	"github.com/veylan/tome-tui/internal/store"
	"github.com/veylan/tome-tui/internal/util"
)

const (
	viewMenu     = "menu"
	viewPage     = "page"
	viewVote     = "vote"
	viewCombat   = "combat"
	viewGameOver = "game_over"
)

const (
	combatTick     = 350 * time.Millisecond
	narratorBudget = 20 * time.Second
	logWindow      = 14
)

// eventQueue buffers combat events between engine steps and render frames.
// Single-threaded under the bubbletea loop, so no locking.
type eventQueue struct{ events []engine.Event }

func (q *eventQueue) OnCombatEvent(ev engine.Event) { q.events = append(q.events, ev) }

func (q *eventQueue) Drain() []engine.Event {
	out := q.events
	q.events = nil
	return out
}

type stepMsg struct{}

type sceneMsg struct {
	md  string
	err error
}

type reactionMsg struct {
	reactions []narrate.Reaction
	err       error
}

type model struct {
	ctx      context.Context
	cfg      util.Config
	log      *zap.Logger
	narrator narrate.Narrator
	content  *engine.Content

	session *engine.Session
	queue   *eventQueue

	db        *store.DB
	runID     uuid.UUID
	runRepo   *store.RunRepo
	charRepo  *store.CharacterRepo
	memRepo   *store.MemoryRepo

	view      string
	theme     string
	md        string
	combatLog []string
	status    string

	vote       engine.VoteOutcome
	cursor     int
	persuading bool

	waitingNarration bool

	width  int
	height int
}

func initialModel(ctx context.Context, db *store.DB, narrator narrate.Narrator, content *engine.Content, cfg util.Config, log *zap.Logger) model {
	m := model{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		narrator: narrator,
		content:  content,
		queue:    &eventQueue{},
		db:       db,
		view:     viewMenu,
		theme:    "catppuccin",
	}
	if db != nil {
		m.runRepo = store.NewRunRepo(db)
		m.charRepo = store.NewCharacterRepo(db)
		m.memRepo = store.NewMemoryRepo(db)
	}
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m *model) startNewGame() error {
	seedText := strings.TrimSpace(m.cfg.Game.Seed)
	if seedText == "" {
		seedText = fmt.Sprintf("tome-%d", time.Now().UnixNano())
	}
	var party *engine.Party
	var err error
	if m.cfg.Game.PresetParty {
		party, err = m.content.PresetParty()
	} else {
		party, err = freshParty()
	}
	if err != nil {
		return err
	}
	s, err := engine.NewSession(seedText, party, m.content, m.queue, m.log)
	if err != nil {
		return err
	}
	m.session = s
	if m.runRepo != nil {
		run, err := m.runRepo.Create(m.ctx, seedText)
		if err != nil {
			m.log.Warn("run not persisted", zap.Error(err))
		} else {
			m.runID = run.ID
		}
	}
	return nil
}

// freshParty assembles a stock roster for runs with the preset party
// disabled. Basic-attack fighters; cards and instincts stay preset-only.
func freshParty() (*engine.Party, error) {
	specs := []struct {
		name      string
		class     engine.JobClass
		archetype string
	}{
		{"Aldric", engine.ClassWarrior, "ESTJ"},
		{"Mira", engine.ClassMage, "INTP"},
		{"Fen", engine.ClassRogue, "ISTP"},
		{"Oswin", engine.ClassCleric, "ENFJ"},
	}
	p := engine.NewParty()
	for _, s := range specs {
		ch := engine.NewCharacter(s.name, s.class)
		pers, err := engine.PersonalityFromType(s.archetype)
		if err != nil {
			return nil, err
		}
		ch.Personality = pers
		p.AddMember(ch)
	}
	return p, nil
}

func (m *model) continueGame() error {
	if m.runRepo == nil {
		return fmt.Errorf("no database configured")
	}
	run, err := m.runRepo.Latest(m.ctx)
	if err != nil {
		return err
	}
	party, err := m.charRepo.LoadParty(m.ctx, run.ID)
	if err != nil {
		return err
	}
	s, err := engine.NewSession(run.SeedText, party, m.content, m.queue, m.log)
	if err != nil {
		return err
	}
	m.session = s
	m.runID = run.ID
	m.session.Party.Gold = run.Gold
	if run.Chapter > 0 {
		m.session.Book.Chapter = run.Chapter
	}
	return nil
}

func (m *model) persist() {
	if m.charRepo == nil || m.runID == uuid.Nil || m.session == nil {
		return
	}
	if err := m.charRepo.SaveParty(m.ctx, m.runID, m.session.Party); err != nil {
		m.log.Warn("party not persisted", zap.Error(err))
	}
	pg := m.session.Page()
	pageNum := 0
	if pg != nil {
		pageNum = pg.ID
	}
	if err := m.runRepo.UpdateProgress(m.ctx, m.runID, m.session.Book.Chapter, pageNum, m.session.Party.Gold); err != nil {
		m.log.Warn("progress not persisted", zap.Error(err))
	}
}

func (m *model) journal(memberID, entry string, tags []string) {
	if m.memRepo == nil || m.runID == uuid.Nil {
		return
	}
	if err := m.memRepo.Append(m.ctx, m.runID, memberID, entry, tags); err != nil {
		m.log.Warn("journal entry dropped", zap.Error(err))
	}
}

// turnPage advances the book and kicks off the scene narration.
func (m *model) turnPage() tea.Cmd {
	return m.showPage(m.session.TurnPage())
}

// showPage renders an already-generated page without advancing the book.
func (m *model) showPage(pg *engine.Page) tea.Cmd {
	m.view = viewPage
	m.cursor = 0
	m.md = fmt.Sprintf("# %s\n\n*The party gathers around page %d...*", pg.Title, pg.ID)
	m.persist()
	return m.sceneCmd(*pg)
}

func (m *model) sceneCmd(pg engine.Page) tea.Cmd {
	pc := narrate.PromptContext{
		Chapter:   m.session.Board.Chapter(),
		Tone:      string(m.session.Board.Tone()),
		PageTitle: pg.Title,
		PageType:  string(pg.Type),
		Keywords:  pg.Keywords,
		Verbosity: pg.Verbosity,
	}
	for _, member := range m.session.Party.Members {
		pc.Members = append(pc.Members, member.NarrativeContext())
	}
	pc.LastAction, pc.LastSpeaker = m.session.Board.Memory()
	ctx := m.ctx
	narrator := m.narrator
	return func() tea.Msg {
		cctx, cancel := context.WithTimeout(ctx, narratorBudget)
		defer cancel()
		md, err := narrator.Scene(cctx, pc)
		return sceneMsg{md: md, err: err}
	}
}

// reactionCmd pauses combat and asks the narrator for party reactions to
// a narrative event. Combat resumes when the reply settles.
func (m *model) reactionCmd(ev engine.Event) tea.Cmd {
	if c := m.session.Combat(); c != nil {
		c.Pause()
	}
	m.waitingNarration = true
	var members []engine.MemberContext
	for _, member := range m.session.Party.Members {
		members = append(members, member.NarrativeContext())
	}
	ctx := m.ctx
	narrator := m.narrator
	return func() tea.Msg {
		cctx, cancel := context.WithTimeout(ctx, narratorBudget)
		defer cancel()
		rs, err := narrator.PartyReaction(cctx, members, ev)
		return reactionMsg{reactions: rs, err: err}
	}
}

func stepCmd() tea.Cmd {
	return tea.Tick(combatTick, func(time.Time) tea.Msg { return stepMsg{} })
}

func (m *model) applyChoice(choice engine.PageChoice) tea.Cmd {
	res := m.session.Apply(choice.Action)
	m.session.Board.UpdateMemory(choice.Text, "party")
	switch {
	case res.CombatStarted:
		m.view = viewCombat
		m.combatLog = nil
		m.drainEvents()
		return stepCmd()
	case res.Rested:
		m.status = "The party rests. Wounds close, nerves settle."
		return m.showPage(res.Page)
	case res.Loot != nil:
		m.status = fmt.Sprintf("Found %s and %d gold.", res.Loot.Name, res.Gold)
		return m.showPage(res.Page)
	default:
		m.status = ""
		return m.showPage(res.Page)
	}
}

// drainEvents renders queued combat events into log lines and returns a
// narrative event wanting narration, if one fired.
func (m *model) drainEvents() *engine.Event {
	var narrative *engine.Event
	for _, ev := range m.queue.Drain() {
		if line := renderEvent(ev); line != "" {
			m.combatLog = append(m.combatLog, line)
		}
		if ev.Type == engine.EvNarrative && narrative == nil {
			cp := ev
			narrative = &cp
		}
		if ev.Type == engine.EvDeath && ev.Target != nil {
			m.journal(ev.Target.ID, fmt.Sprintf("%s fell in battle on page %d.", ev.Target.Name, m.session.Page().ID), []string{"death"})
		}
	}
	if len(m.combatLog) > logWindow {
		m.combatLog = m.combatLog[len(m.combatLog)-logWindow:]
	}
	return narrative
}

func renderEvent(ev engine.Event) string {
	switch ev.Type {
	case engine.EvCombatStart:
		names := make([]string, 0, len(ev.Enemies))
		for _, e := range ev.Enemies {
			names = append(names, e.Name)
		}
		line := "Enemies appear: " + strings.Join(names, ", ")
		switch ev.EncounterStatus {
		case engine.EncounterAmbush:
			line += " (ambush!)"
		case engine.EncounterPreemptive:
			line += " (the party strikes first)"
		}
		return line
	case engine.EvCombatUpdate:
		return fmt.Sprintf("-- round %d --", ev.Round)
	case engine.EvAction:
		switch ev.Action {
		case engine.ActHeal:
			return fmt.Sprintf("%s heals %s for %d", ev.Attacker.Name, ev.Target.Name, ev.Amount)
		case engine.ActBuff:
			return fmt.Sprintf("%s steadies %s", ev.Attacker.Name, ev.Target.Name)
		default:
			crit := ""
			if ev.IsCrit {
				crit = " (critical!)"
			}
			name := ev.CardName
			if name == "" {
				name = "a strike"
			}
			return fmt.Sprintf("%s hits %s with %s for %d%s", ev.Attacker.Name, ev.Target.Name, name, ev.Amount, crit)
		}
	case engine.EvInstinctTrigger:
		return fmt.Sprintf("instinct: %s", ev.InstinctName)
	case engine.EvDeath:
		return fmt.Sprintf("%s falls.", ev.Target.Name)
	case engine.EvCombatEnd:
		if ev.IsWin {
			return "Victory."
		}
		return "The party is broken."
	}
	return ""
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sceneMsg:
		if msg.err != nil {
			m.log.Warn("scene narration failed", zap.Error(msg.err))
			return m, nil
		}
		m.md = msg.md
		return m, nil

	case reactionMsg:
		m.waitingNarration = false
		if msg.err != nil {
			m.log.Warn("reaction narration failed", zap.Error(msg.err))
		}
		for _, r := range msg.reactions {
			m.combatLog = append(m.combatLog, fmt.Sprintf("%s: %s", r.Name, r.Text))
		}
		if c := m.session.Combat(); c != nil {
			c.Resume()
			return m, stepCmd()
		}
		return m.settleCombat()

	case stepMsg:
		if m.session == nil || m.view != viewCombat {
			return m, nil
		}
		done, _ := m.session.StepCombat()
		if narrative := m.drainEvents(); narrative != nil {
			return m, m.reactionCmd(*narrative)
		}
		if done {
			return m.settleCombat()
		}
		return m, stepCmd()
	}
	return m, nil
}

// settleCombat leaves the combat view once the battle and any trailing
// narration have finished.
func (m model) settleCombat() (tea.Model, tea.Cmd) {
	if m.waitingNarration {
		return m, nil
	}
	m.drainEvents()
	if m.session.Party.IsWiped() {
		m.view = viewGameOver
		m.persist()
		return m, nil
	}
	m.status = "The battle ends."
	m.persist()
	return m, m.turnPage()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || (key == "q" && m.view != viewVote) {
		return m, tea.Quit
	}
	if key == "t" {
		m.theme = nextThemeName(m.theme)
		return m, nil
	}

	switch m.view {
	case viewMenu:
		switch key {
		case "n", "enter":
			if err := m.startNewGame(); err != nil {
				m.status = "Could not start: " + err.Error()
				return m, nil
			}
			return m, m.turnPage()
		case "c":
			if err := m.continueGame(); err != nil {
				m.status = "Could not continue: " + err.Error()
				return m, nil
			}
			return m, m.turnPage()
		}

	case viewPage:
		choices := m.session.Page().Choices
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.vote = m.session.ResolveChoices(m.cursor)
			m.view = viewVote
			m.persuading = m.vote.PersuasionOffered
		}

	case viewVote:
		if m.persuading {
			switch key {
			case "y":
				res := m.session.AttemptPersuasion()
				m.vote = m.vote.ApplyPersuasion(res, m.session.Page().Choices)
				if res.Success {
					m.status = fmt.Sprintf("Persuasion: d20=%d, the party relents.", res.Roll)
				} else {
					m.status = fmt.Sprintf("Persuasion: d20=%d, the party holds firm.", res.Roll)
				}
				m.persuading = false
				return m, nil
			case "n":
				m.persuading = false
				return m, nil
			}
			return m, nil
		}
		if key == "enter" || key == " " {
			return m, m.applyChoice(m.vote.Winner)
		}

	case viewCombat:
		// Pacing only; all decisions are the engine's.

	case viewGameOver:
		if key == "n" || key == "enter" {
			m.view = viewMenu
			m.session = nil
			m.status = ""
		}
	}
	return m, nil
}

func (m model) View() string {
	p := paletteFor(m.theme)
	title := lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	muted := lipgloss.NewStyle().Foreground(p.Muted)
	danger := lipgloss.NewStyle().Foreground(p.Danger)

	var b strings.Builder
	switch m.view {
	case viewMenu:
		b.WriteString(title.Render("TOME") + "\n\n")
		b.WriteString("A party of four walks into a book that writes itself.\n\n")
		b.WriteString("  [n] new game\n  [c] continue\n  [t] theme\n  [q] quit\n")
		if m.status != "" {
			b.WriteString("\n" + danger.Render(m.status) + "\n")
		}

	case viewPage:
		b.WriteString(m.renderMarkdown())
		if m.status != "" {
			b.WriteString(muted.Render(m.status) + "\n")
		}
		b.WriteString("\n")
		for i, ch := range m.session.Page().Choices {
			marker := "  "
			if i == m.cursor {
				marker = "> "
			}
			b.WriteString(fmt.Sprintf("%s%s\n", marker, ch.Text))
		}
		b.WriteString("\n" + muted.Render("enter: put it to the party") + "\n")

	case viewVote:
		b.WriteString(title.Render("The party votes") + "\n\n")
		for _, v := range m.vote.Votes {
			pick := m.session.Page().Choices[v.Pick]
			b.WriteString(fmt.Sprintf("  %s votes %q\n", m.memberName(v.MemberID), pick.Text))
		}
		b.WriteString(fmt.Sprintf("\nDecision: %q\n", m.vote.Winner.Text))
		if m.status != "" {
			b.WriteString(muted.Render(m.status) + "\n")
		}
		if m.persuading {
			b.WriteString("\n" + danger.Render("The party disagrees with you. Push back? [y/n]") + "\n")
		} else {
			b.WriteString("\n" + muted.Render("enter: so be it") + "\n")
		}

	case viewCombat:
		b.WriteString(title.Render("Combat") + "\n\n")
		b.WriteString(m.renderParty())
		b.WriteString("\n")
		for _, line := range m.combatLog {
			b.WriteString("  " + line + "\n")
		}
		if m.waitingNarration {
			b.WriteString("\n" + muted.Render("the narrator draws breath...") + "\n")
		}

	case viewGameOver:
		b.WriteString(danger.Render("The book closes on an unfinished party.") + "\n\n")
		b.WriteString(muted.Render("[n] back to the menu") + "\n")
	}
	return b.String()
}

func (m model) memberName(id string) string {
	for _, member := range m.session.Party.Members {
		if member.ID == id {
			return member.Name
		}
	}
	return id
}

func (m model) renderParty() string {
	var b strings.Builder
	for _, member := range m.session.Party.Members {
		mark := " "
		if !member.IsAlive() {
			mark = "✝"
		}
		b.WriteString(fmt.Sprintf("  %s %-8s %s HP %d/%d\n",
			mark, member.Name, member.Class, member.HP, member.Derived.MaxHP))
	}
	return b.String()
}

func (m model) renderMarkdown() string {
	width := m.width
	if width <= 0 || width > 100 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return m.md + "\n"
	}
	out, err := renderer.Render(m.md)
	if err != nil {
		return m.md + "\n"
	}
	return out
}
