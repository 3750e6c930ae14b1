package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/veylan/tome-tui/internal/engine"
	"github.com/veylan/tome-tui/internal/narrate"
	"github.com/veylan/tome-tui/internal/store"
	"github.com/veylan/tome-tui/internal/ui"
	"github.com/veylan/tome-tui/internal/util"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	configPath := flag.String("config", "tome.toml", "Path to config file")
	seedFlag := flag.String("seed", "", "Run seed string (optional; random if omitted)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (optional; runs without persistence if omitted)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tome [--config path] [--seed seedstring] [--dsn DSN] | migrate up|down | version\n")
	}
	flag.Parse()

	cfg, err := util.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.ApplyEnv()
	if *seedFlag != "" {
		cfg.Game.Seed = *seedFlag
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Println("tome", version)
			return
		case "migrate":
			if len(args) < 2 {
				log.Fatal("migrate requires 'up' or 'down'")
			}
			migrator, err := store.NewMigrator(cfg.Database.DSN)
			if err != nil {
				log.Fatal(err)
			}
			switch args[1] {
			case "up":
				if err := migrator.Up(); err != nil && err != store.ErrNoChange {
					log.Fatal(err)
				}
				fmt.Println("Migrations applied")
			case "down":
				if err := migrator.Down(); err != nil && err != store.ErrNoChange {
					log.Fatal(err)
				}
				fmt.Println("Migrations rolled back")
			default:
				log.Fatal("unknown migrate action; use up|down")
			}
			return
		}
	}

	logger, err := util.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var db *store.DB
	if cfg.Database.DSN != "" {
		mig, err := store.NewMigrator(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("migrations init failed: %v", err)
		}
		if err := mig.Up(); err != nil && err != store.ErrNoChange {
			log.Fatalf("migrations failed: %v", err)
		}
		db, err = store.Open(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
	} else {
		logger.Info("no database configured, running without persistence")
	}

	content, err := engine.LoadContent()
	if err != nil {
		log.Fatalf("content tables: %v", err)
	}

	var narrator narrate.Narrator = narrate.NewTemplateNarrator()
	if cfg.Narrator.Mode == "gemini" {
		gem := narrate.NewGemini(cfg.Narrator.APIKey, cfg.Narrator.Model, logger)
		narrator = narrate.WithFallback(gem, narrate.NewTemplateNarrator())
		logger.Info("narrator ready", zap.String("mode", "gemini"), zap.String("model", gem.Model()))
	}

	if err := ui.Run(ctx, db, narrator, content, cfg, logger); err != nil {
		log.Fatal(err)
	}
}
