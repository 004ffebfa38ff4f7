package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":{"content":"  Verstappen gana en Brasil.  "}}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3", srv.URL+"/")
	out, err := p.Generate(context.Background(), "resume", 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Verstappen gana en Brasil." {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if got["model"] != "llama3" || got["stream"] != false {
		t.Errorf("unexpected request body: %v", got)
	}
}

func TestOllamaIsConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
	}))
	defer srv.Close()

	if !NewOllamaProvider("llama3", srv.URL).IsConfigured() {
		t.Error("expected llama3 to be found")
	}
	if NewOllamaProvider("mistral", srv.URL).IsConfigured() {
		t.Error("expected mistral to be missing")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	vecs, err := NewOllamaEmbedder("nomic-embed-text", srv.URL).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[1][1] != 0.4 {
		t.Errorf("unexpected embeddings: %v", vecs)
	}

	if _, err := NewOllamaEmbedder("x", srv.URL).Embed(context.Background(), []string{"only one"}); err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Resumen"}}]}`))
	}))
	defer srv.Close()

	p := &OpenAIProvider{Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: srv.URL, client: http.DefaultClient}
	out, err := p.Generate(context.Background(), "prompt", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Resumen" {
		t.Errorf("expected 'Resumen', got %q", out)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &OpenAIProvider{Model: "m", APIKey: "k", BaseURL: srv.URL, client: http.DefaultClient}
	if _, err := p.Generate(context.Background(), "prompt", 10); err == nil {
		t.Error("expected error for 429")
	}
}

func TestOpenAIWithoutKey(t *testing.T) {
	p := NewOpenAIProvider("m", "F1CRAWLER_TEST_UNSET_KEY")
	if p.IsConfigured() {
		t.Error("expected provider without key to be unconfigured")
	}
	if _, err := p.Generate(context.Background(), "prompt", 10); err == nil {
		t.Error("expected error without key")
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Setenv("F1CRAWLER_TEST_GEMINI_KEY", "")
	_, err := NewGeminiProvider(context.Background(), "gemini-2.0-flash", "F1CRAWLER_TEST_GEMINI_KEY")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	var g *GeminiProvider
	if g.IsConfigured() {
		t.Error("nil provider should not be configured")
	}
}

func TestCreateProviderWithNothingConfigured(t *testing.T) {
	t.Setenv("F1CRAWLER_TEST_GEMINI_KEY", "")
	t.Setenv("F1CRAWLER_TEST_OPENAI_KEY", "")
	p := CreateProvider(context.Background(), Options{
		Provider:        "gemini",
		Model:           "gemini-2.0-flash",
		APIKeyEnv:       "F1CRAWLER_TEST_GEMINI_KEY",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIAPIKeyEnv: "F1CRAWLER_TEST_OPENAI_KEY",
	})
	if p != nil {
		t.Errorf("expected nil provider, got %T", p)
	}
}

func TestCreateProviderFallsBackToOpenAI(t *testing.T) {
	t.Setenv("F1CRAWLER_TEST_GEMINI_KEY", "")
	t.Setenv("F1CRAWLER_TEST_OPENAI_KEY", "sk-test")
	p := CreateProvider(context.Background(), Options{
		Provider:        "gemini",
		APIKeyEnv:       "F1CRAWLER_TEST_GEMINI_KEY",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIAPIKeyEnv: "F1CRAWLER_TEST_OPENAI_KEY",
	})
	if _, ok := p.(*OpenAIProvider); !ok {
		t.Errorf("expected OpenAI fallback, got %T", p)
	}
}

func TestCreateEmbedder(t *testing.T) {
	if _, ok := CreateEmbedder("hash", "", "", 64).(*HashEmbedder); !ok {
		t.Error("expected hash embedder")
	}
	if _, ok := CreateEmbedder("Ollama", "nomic-embed-text", "http://localhost:11434", 0).(*OllamaEmbedder); !ok {
		t.Error("expected ollama embedder")
	}
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{
		"Verstappen wins in Brazil",
		"verstappen WINS in brazil!",
		"",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vecs[0]) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(vecs[0]))
	}
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			t.Fatal("expected case and punctuation to be ignored")
		}
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("expected unit norm, got %f", norm)
	}

	for _, v := range vecs[2] {
		if v != 0 {
			t.Fatal("expected zero vector for empty text")
		}
	}
}

func TestHashEmbedderDefaultDimensions(t *testing.T) {
	if NewHashEmbedder(0).Dimensions != 256 {
		t.Error("expected default of 256 dimensions")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		p    Provider
		want string
	}{
		{nil, ""},
		{&GeminiProvider{Model: "gemini-2.0-flash"}, "gemini/gemini-2.0-flash"},
		{&OllamaProvider{Model: "llama3.2"}, "ollama/llama3.2"},
		{&OpenAIProvider{Model: "gpt-4o-mini"}, "openai/gpt-4o-mini"},
	}
	for _, tt := range tests {
		if got := Describe(tt.p); got != tt.want {
			t.Errorf("Describe(%T) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
