package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/ncruces/go-strftime"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Validation errors.
var (
	ErrNoSources           = errors.New("at least one source is required")
	ErrSourceMissingURL    = errors.New("url is required")
	ErrSourceMissingLabel  = errors.New("source label is required")
	ErrIncompleteDateRule  = errors.New("date_selector and date_attribute must both be set or both be empty")
	ErrInvalidDateSelector = errors.New("date_selector is not a valid CSS selector")
	ErrInvalidDateFormat   = errors.New("date_format is not a valid strptime pattern")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrInvalidCaps         = errors.New("ingest caps must be at least 1")
)

type Config struct {
	Sources       []Source      `yaml:"sources"`
	Keywords      []string      `yaml:"keywords"`
	UserAgents    []string      `yaml:"user_agents"`
	Ingest        Ingest        `yaml:"ingest"`
	Summarization Summarization `yaml:"summarization"`
	Embedding     Embedding     `yaml:"embedding"`
	Cache         Cache         `yaml:"cache"`
	Output        Output        `yaml:"output"`
	Logging       Logging       `yaml:"logging"`
}

// Source is one entry of the source registry: an index page plus the rule
// used to recover publication dates from its articles.
type Source struct {
	URL           string `yaml:"url"`
	Label         string `yaml:"source"`
	Category      string `yaml:"category"`
	FeedURL       string `yaml:"feed_url"`
	DateSelector  string `yaml:"date_selector"`
	DateAttribute string `yaml:"date_attribute"`
	DateFormat    string `yaml:"date_format"`
	Blocked       bool   `yaml:"is_blocked"`
}

// HasDateRule reports whether the source carries a custom date extraction rule.
func (s Source) HasDateRule() bool {
	return s.DateSelector != "" && s.DateAttribute != ""
}

type Ingest struct {
	MaxCandidates  int `yaml:"max_candidates"`
	MaxPerSource   int `yaml:"max_per_source"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	DaysBack       int `yaml:"days_back"`
}

// Timeout returns the per-request HTTP timeout.
func (i Ingest) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

type Summarization struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	OllamaURL       string `yaml:"ollama_url"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIAPIKeyEnv string `yaml:"openai_api_key_env"`
	Language        string `yaml:"language"`
	MaxInputChars   int    `yaml:"max_input_chars"`
	MaxTokens       int    `yaml:"max_tokens"`
}

type Embedding struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	OllamaURL  string `yaml:"ollama_url"`
	Dimensions int    `yaml:"dimensions"`
}

type Cache struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLHours  int    `yaml:"ttl_hours"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for f1crawler.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "f1crawler")
}

// DataDir returns the XDG data directory for f1crawler.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "f1crawler")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/f1crawler/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'f1crawler init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Ingest: Ingest{
			MaxCandidates:  100,
			MaxPerSource:   2,
			TimeoutSeconds: 15,
			DaysBack:       7,
		},
		Summarization: Summarization{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			APIKeyEnv:       "GEMINI_API_KEY",
			OllamaURL:       "http://localhost:11434",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIAPIKeyEnv: "OPENAI_API_KEY",
			Language:        "Spanish",
			MaxInputChars:   1000,
			MaxTokens:       256,
		},
		Embedding: Embedding{
			Provider:   "hash",
			Model:      "nomic-embed-text",
			OllamaURL:  "http://localhost:11434",
			Dimensions: 256,
		},
		Cache:   Cache{TTLHours: 168},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the registry and the provider settings.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: sources[%d]", err, i)
		}
	}

	if c.Ingest.MaxCandidates < 1 || c.Ingest.MaxPerSource < 1 {
		return ErrInvalidCaps
	}

	switch strings.ToLower(c.Summarization.Provider) {
	case "gemini", "ollama", "openai":
	default:
		return fmt.Errorf("%w: summarization.provider %q", ErrUnknownProvider, c.Summarization.Provider)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "hash", "ollama":
	default:
		return fmt.Errorf("%w: embedding.provider %q", ErrUnknownProvider, c.Embedding.Provider)
	}
	return nil
}

// Validate checks a single registry entry. A source either has a complete
// date rule (selector, attribute and a parseable format) or none at all.
func (s Source) Validate() error {
	if s.URL == "" {
		return ErrSourceMissingURL
	}
	if s.Label == "" {
		return ErrSourceMissingLabel
	}
	if (s.DateSelector == "") != (s.DateAttribute == "") {
		return ErrIncompleteDateRule
	}
	if !s.HasDateRule() {
		return nil
	}
	if _, err := cascadia.Compile(s.DateSelector); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDateSelector, s.DateSelector)
	}
	if s.DateFormat == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDateFormat)
	}
	if _, err := strftime.Layout(s.DateFormat); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDateFormat, s.DateFormat)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
