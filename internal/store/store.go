package store

import (
	"context"
	"database/sql"
	"encoding/json"
	errs "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/veylan/tome-tui/internal/engine"
	"github.com/veylan/tome-tui/internal/util"
)

var (
	ErrNoChange = errs.New("no change")
	ErrNotFound = errs.New("not found")
)

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error   { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Open connects to Postgres per config.
func Open(ctx context.Context, cfg util.DatabaseConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, wrap(err, "open postgres")
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, wrap(err, "unwrap sql.DB")
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(cfg.MaxOpenConns)
	sdb.SetMaxIdleConns(cfg.MaxIdleConns)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, wrap(err, "ping")
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Run is one persisted playthrough.
type Run struct {
	ID       uuid.UUID
	SeedText string
	Chapter  int
	PageNum  int
	Gold     int
}

type RunRepo struct{ db *DB }

func NewRunRepo(db *DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Create(ctx context.Context, seedText string) (Run, error) {
	id := uuid.New()
	err := r.db.gorm.WithContext(ctx).Exec(
		`INSERT INTO runs(id, seed_text, chapter, page_num, gold) VALUES (?,?,1,0,0)`,
		id, seedText).Error
	if err != nil {
		return Run{}, wrap(err, "create run")
	}
	return Run{ID: id, SeedText: seedText, Chapter: 1}, nil
}

func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := r.db.gorm.WithContext(ctx).Raw(
		`SELECT id, seed_text, chapter, page_num, gold FROM runs WHERE id = ?`, id).Row()
	var rr Run
	if err := row.Scan(&rr.ID, &rr.SeedText, &rr.Chapter, &rr.PageNum, &rr.Gold); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, wrap(err, "get run")
	}
	return rr, nil
}

// Latest returns the most recently created run, for resuming.
func (r *RunRepo) Latest(ctx context.Context) (Run, error) {
	row := r.db.gorm.WithContext(ctx).Raw(
		`SELECT id, seed_text, chapter, page_num, gold FROM runs ORDER BY created_at DESC LIMIT 1`).Row()
	var rr Run
	if err := row.Scan(&rr.ID, &rr.SeedText, &rr.Chapter, &rr.PageNum, &rr.Gold); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, wrap(err, "latest run")
	}
	return rr, nil
}

func (r *RunRepo) UpdateProgress(ctx context.Context, id uuid.UUID, chapter, pageNum, gold int) error {
	return wrap(r.db.gorm.WithContext(ctx).Exec(
		`UPDATE runs SET chapter = ?, page_num = ?, gold = ? WHERE id = ?`,
		chapter, pageNum, gold, id).Error, "update run progress")
}

// CharacterRepo persists member snapshots per run and roster slot.
type CharacterRepo struct{ db *DB }

func NewCharacterRepo(db *DB) *CharacterRepo { return &CharacterRepo{db: db} }

// SaveParty upserts the whole roster atomically, slot order preserved.
func (c *CharacterRepo) SaveParty(ctx context.Context, runID uuid.UUID, party *engine.Party) error {
	return c.db.WithTx(ctx, func(tx *gorm.DB) error {
		for slot, member := range party.Members {
			snap, err := json.Marshal(member.Snapshot())
			if err != nil {
				return wrap(err, "marshal snapshot")
			}
			err = tx.Exec(`INSERT INTO characters(id, run_id, slot, member_id, name, class, snapshot)
				VALUES (?,?,?,?,?,?,?)
				ON CONFLICT (run_id, slot) DO UPDATE SET
					member_id = EXCLUDED.member_id,
					name = EXCLUDED.name,
					class = EXCLUDED.class,
					snapshot = EXCLUDED.snapshot`,
				uuid.New(), runID, slot, member.ID, member.Name, string(member.Class), snap).Error
			if err != nil {
				return wrap(err, "save character")
			}
		}
		return nil
	})
}

// LoadParty rebuilds the roster from stored snapshots in slot order.
func (c *CharacterRepo) LoadParty(ctx context.Context, runID uuid.UUID) (*engine.Party, error) {
	rows, err := c.db.gorm.WithContext(ctx).Raw(
		`SELECT snapshot FROM characters WHERE run_id = ? ORDER BY slot`, runID).Rows()
	if err != nil {
		return nil, wrap(err, "load party")
	}
	defer rows.Close()

	p := engine.NewParty()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, wrap(err, "scan snapshot")
		}
		var snap engine.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, wrap(err, "decode snapshot")
		}
		ch, err := engine.FromSnapshot(snap)
		if err != nil {
			return nil, wrap(err, "rebuild character")
		}
		if !p.AddMember(ch) {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "iterate snapshots")
	}
	if len(p.Members) == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}

// MemoryEntry is one line of a member's append-only narrative journal.
type MemoryEntry struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	MemberID  string
	Entry     string
	Tags      []string
	CreatedAt time.Time
}

// MemoryRepo is the journal. Entries are never updated or deleted.
type MemoryRepo struct{ db *DB }

func NewMemoryRepo(db *DB) *MemoryRepo { return &MemoryRepo{db: db} }

func (m *MemoryRepo) Append(ctx context.Context, runID uuid.UUID, memberID, entry string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return wrap(err, "marshal tags")
	}
	return wrap(m.db.gorm.WithContext(ctx).Exec(
		`INSERT INTO memories(id, run_id, member_id, entry, tags) VALUES (?,?,?,?,?)`,
		uuid.New(), runID, memberID, entry, tagsJSON).Error, "append memory")
}

// List returns a member's journal newest-first, capped at limit.
func (m *MemoryRepo) List(ctx context.Context, runID uuid.UUID, memberID string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.gorm.WithContext(ctx).Raw(
		`SELECT id, run_id, member_id, entry, tags, created_at
		 FROM memories WHERE run_id = ? AND member_id = ?
		 ORDER BY created_at DESC LIMIT ?`, runID, memberID, limit).Rows()
	if err != nil {
		return nil, wrap(err, "list memories")
	}
	defer rows.Close()

	var out []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		var tags []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.MemberID, &e.Entry, &tags, &e.CreatedAt); err != nil {
			return nil, wrap(err, "scan memory")
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &e.Tags); err != nil {
				e.Tags = nil
			}
		}
		out = append(out, e)
	}
	return out, wrap(rows.Err(), "iterate memories")
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
