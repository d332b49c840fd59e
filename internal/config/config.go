package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Mode controls how resolver agents are dispatched against a run
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// Agent describes one configured review agent: the login it posts under and
// the comment that invokes it
type Agent struct {
	ID            string `toml:"id" yaml:"id"`
	AuthorPattern string `toml:"author_pattern" yaml:"author_pattern"`
	InvokePattern string `toml:"invoke_pattern" yaml:"invoke_pattern"`
}

// Config holds all application configuration
type Config struct {
	Upstream UpstreamConfig `toml:"upstream"`
	Agents   []Agent        `toml:"agents"`
	Mode     Mode           `toml:"mode"`
	Web      WebConfig      `toml:"web"`
	Store    StoreConfig    `toml:"store"`
}

// UpstreamConfig holds upstream API settings
type UpstreamConfig struct {
	Token            string  `toml:"token"`
	PageSize         int     `toml:"page_size"`
	RequestsPerSec   float64 `toml:"requests_per_sec"`
	Burst            int     `toml:"burst"`
	FailureThreshold int     `toml:"failure_threshold"`
	CooldownSeconds  int     `toml:"cooldown_seconds"`
}

// WebConfig holds status API settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StoreConfig holds run snapshot settings
type StoreConfig struct {
	DatabasePath string `toml:"database_path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Upstream: UpstreamConfig{
			PageSize:         100,
			RequestsPerSec:   5,
			Burst:            10,
			FailureThreshold: 5,
			CooldownSeconds:  30,
		},
		Agents: []Agent{
			{ID: "coderabbit", AuthorPattern: `(?i)^coderabbit(ai)?(\[bot\])?$`, InvokePattern: `(?i)@coderabbitai\s+(full\s+)?review`},
			{ID: "codex", AuthorPattern: `(?i)^(chatgpt-codex-connector|codex)(\[bot\])?$`, InvokePattern: `(?i)@codex\s+review`},
			{ID: "copilot", AuthorPattern: `(?i)^copilot(-pull-request-reviewer)?(\[bot\])?$`, InvokePattern: `(?i)@copilot\s+review`},
			{ID: "gemini", AuthorPattern: `(?i)^gemini-code-assist(\[bot\])?$`, InvokePattern: `(?i)/gemini\s+review`},
		},
		Mode: ModeSequential,
		Web: WebConfig{
			Port: 8085,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(home, ".review-coordinator", "runs.db"),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Store.DatabasePath = ExpandPath(cfg.Store.DatabasePath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "review-coordinator", "config.toml")
}
