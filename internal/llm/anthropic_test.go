package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func anthropicOK(t *testing.T, text string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		resp := map[string]any{
			"id":   "msg_123",
			"type": "message",
			"role": "assistant",
			"content": []map[string]string{
				{"type": "text", "text": text},
			},
			"model":       "claude-3-5-sonnet-20241022",
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 50, "output_tokens": 30},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	server := httptest.NewServer(anthropicOK(t, `{"verdict": "false", "confidence": 0.9}`))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		System: "system prompt",
		Prompt: "user prompt",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != `{"verdict": "false", "confidence": 0.9}` {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.TokensUsed != 80 {
		t.Errorf("tokens = %d, want 80", resp.TokensUsed)
	}
}

func TestAnthropicProvider_CitesProseURLs(t *testing.T) {
	prose := "The claim is confirmed by official statistics " +
		"(https://www.statistik.at/inflation-2023). Reuters reported the same figure: " +
		"https://www.reuters.com/austria-inflation, see also https://www.statistik.at/inflation-2023."
	server := httptest.NewServer(anthropicOK(t, prose))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{
		"https://www.statistik.at/inflation-2023",
		"https://www.reuters.com/austria-inflation",
	}
	if len(resp.Sources) != len(want) {
		t.Fatalf("sources = %+v, want %d deduplicated URLs", resp.Sources, len(want))
	}
	for i, w := range want {
		if resp.Sources[i].URL != w {
			t.Errorf("sources[%d].URL = %q, want %q", i, resp.Sources[i].URL, w)
		}
	}
}

func TestAnthropicProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "bad key"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "bad-key",
		BaseURL: server.URL,
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("401 must not be treated as rate limiting")
	}
}

func TestAnthropicProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}
