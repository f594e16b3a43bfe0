package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bot holds all configuration for the battle agent.
type Bot struct {
	// Showdown server
	ServerURL string `yaml:"server_url"`
	// AuthURL is the login server hosting /api/login and /action.php.
	AuthURL  string `yaml:"auth_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Challenges from other users are accepted only in these formats.
	AcceptFormats []string `yaml:"accept_formats"`
	// Rooms joined on startup, e.g. battles to spectate-and-play after a restart.
	AutoJoin []string `yaml:"auto_join"`

	Data   DataConfig   `yaml:"data"`
	Engine EngineConfig `yaml:"engine"`

	// Status page
	StatusAddr string `yaml:"status_addr"`

	// Database; empty disables result persistence.
	DatabaseDSN string `yaml:"database_dsn"`

	LogLevel string `yaml:"log_level"`
}

// DataConfig points at Showdown's pokedex/moves JSON exports.
type DataConfig struct {
	Pokedex string `yaml:"pokedex"`
	Moves   string `yaml:"moves"`
}

// EngineConfig selects the decision strategy.
type EngineConfig struct {
	Kind     string         `yaml:"kind"` // heuristic | random | delegate
	Delegate DelegateConfig `yaml:"delegate"`
}

// DelegateConfig describes the external decision process.
type DelegateConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Dir     string        `yaml:"dir"`
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns Bot config with sensible defaults.
func Default() Bot {
	return Bot{
		ServerURL:     "wss://sim3.psim.us/showdown/websocket",
		AuthURL:       "https://play.pokemonshowdown.com",
		AcceptFormats: []string{"gen9randombattle"},
		Data: DataConfig{
			Pokedex: "data/pokedex.json",
			Moves:   "data/moves.json",
		},
		Engine: EngineConfig{
			Kind: "heuristic",
			Delegate: DelegateConfig{
				Backend: "deepseek",
				Timeout: 60 * time.Second,
			},
		},
		StatusAddr: ":42069",
		LogLevel:   "info",
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Bot, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides secrets from the environment so they need not live in the YAML file.
func (b *Bot) ApplyEnv() {
	if v := os.Getenv("SHOWDOWN_USERNAME"); v != "" {
		b.Username = v
	}
	if v := os.Getenv("SHOWDOWN_PASSWORD"); v != "" {
		b.Password = v
	}
	if v := os.Getenv("SHOWDOWN_AGENT_DSN"); v != "" {
		b.DatabaseDSN = v
	}
}
