package util

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds runtime settings merged from defaults, an optional TOML
// file and the environment, in that order of precedence.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Narrator NarratorConfig `toml:"narrator"`
	Game     GameConfig     `toml:"game"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

type NarratorConfig struct {
	// Mode is "gemini" or "template".
	Mode   string `toml:"mode"`
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type GameConfig struct {
	Seed string `toml:"seed"`
	// PresetParty loads the built-in roster instead of prompting.
	PresetParty bool `toml:"preset_party"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Narrator: NarratorConfig{Mode: "template"},
		Game:     GameConfig{PresetParty: true},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads the TOML file over the defaults. A missing file is fine; the
// defaults stand.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on top of the file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Narrator.APIKey = v
		if c.Narrator.Mode == "template" {
			c.Narrator.Mode = "gemini"
		}
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Narrator.Model = v
	}
	if v := os.Getenv("TOME_SEED"); v != "" {
		c.Game.Seed = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
