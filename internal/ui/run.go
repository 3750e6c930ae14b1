package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/veylan/tome-tui/internal/engine"
	"github.com/veylan/tome-tui/internal/narrate"
	"github.com/veylan/tome-tui/internal/store"
	"github.com/veylan/tome-tui/internal/util"
)

// Run boots the TUI program and blocks until it exits. db may be nil, in
// which case the game runs without persistence.
func Run(ctx context.Context, db *store.DB, narrator narrate.Narrator, content *engine.Content, cfg util.Config, log *zap.Logger) error {
	m := initialModel(ctx, db, narrator, content, cfg, log)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
