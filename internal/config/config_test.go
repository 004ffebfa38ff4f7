package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources) == 0 {
		t.Error("expected sources to be populated")
	}
	if cfg.Sources[0].Label != "MotorSport F1" {
		t.Errorf("expected first source 'MotorSport F1', got %q", cfg.Sources[0].Label)
	}
	if len(cfg.Keywords) == 0 {
		t.Error("expected keywords to be populated")
	}
	if len(cfg.UserAgents) != 4 {
		t.Errorf("expected 4 user agents, got %d", len(cfg.UserAgents))
	}
	if cfg.Summarization.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.Summarization.Provider)
	}
	if cfg.Ingest.MaxPerSource != 2 || cfg.Ingest.MaxCandidates != 100 {
		t.Errorf("unexpected caps: %+v", cfg.Ingest)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultConfigHasBlockedSourceWithoutRule(t *testing.T) {
	cfg := Default()
	found := false
	for _, s := range cfg.Sources {
		if s.Blocked {
			found = true
			if s.HasDateRule() {
				t.Errorf("blocked source %q should not carry a date rule", s.Label)
			}
		}
	}
	if !found {
		t.Error("expected a blocked source in the default registry")
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
sources:
  - url: https://example.com/news
    source: Example
summarization:
  provider: ollama
  model: llama3
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Summarization.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Summarization.Provider)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Summarization.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Summarization.OllamaURL)
	}
	if cfg.Summarization.MaxInputChars != 1000 {
		t.Errorf("expected default max_input_chars 1000, got %d", cfg.Summarization.MaxInputChars)
	}
	if cfg.Ingest.Timeout().Seconds() != 15 {
		t.Errorf("expected 15s timeout, got %v", cfg.Ingest.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected sources to be populated from file")
	}
}

func TestLoadRejectsInvalidRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
sources:
  - url: https://example.com
    source: Broken
    date_selector: "time.x"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrIncompleteDateRule) {
		t.Errorf("expected ErrIncompleteDateRule, got %v", err)
	}
}

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"no rule", Source{URL: "https://a.com", Label: "A"}, nil},
		{"full rule", Source{URL: "https://a.com", Label: "A", DateSelector: "time.pub", DateAttribute: "datetime", DateFormat: "%Y-%m-%dT%H:%M:%SZ"}, nil},
		{"missing url", Source{Label: "A"}, ErrSourceMissingURL},
		{"missing label", Source{URL: "https://a.com"}, ErrSourceMissingLabel},
		{"attribute only", Source{URL: "https://a.com", Label: "A", DateAttribute: "datetime"}, ErrIncompleteDateRule},
		{"bad selector", Source{URL: "https://a.com", Label: "A", DateSelector: "time[", DateAttribute: "datetime", DateFormat: "%Y"}, ErrInvalidDateSelector},
		{"missing format", Source{URL: "https://a.com", Label: "A", DateSelector: "time", DateAttribute: "datetime"}, ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Summarization.Provider = "claude"
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestValidateRejectsEmptyRegistry(t *testing.T) {
	cfg := Default()
	cfg.Sources = nil
	if err := cfg.Validate(); !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
