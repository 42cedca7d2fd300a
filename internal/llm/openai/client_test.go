package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-review/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	prev := apiURL
	apiURL = srv.URL
	t.Cleanup(func() { apiURL = prev })
}

func TestCompleteSendsJSONModeAndTemperature(t *testing.T) {
	var got map[string]any
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"score\":70} "}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	})

	client, err := NewClient("key", "gpt-4o", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := client.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"score":70}` {
		t.Fatalf("unexpected content %q", out)
	}
	if _, ok := got["temperature"]; !ok {
		t.Fatalf("expected temperature in request, got %v", got)
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got["response_format"])
	}
}

func TestCompleteOmitsTemperatureForGPT5(t *testing.T) {
	var got map[string]any
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	})

	client, err := NewClient("key", "gpt-5-mini", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Complete(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, ok := got["temperature"]; ok {
		t.Fatalf("expected no temperature for gpt-5, got %v", got["temperature"])
	}
}

func TestCompleteReportsHTTPStatus(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	client, _ := NewClient("key", "gpt-4o", time.Second)
	_, err := client.Complete(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "openai http status 503: overloaded") {
		t.Fatalf("expected http status error, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	client, _ := NewClient("key", "gpt-4o", time.Second)
	_, err := client.Complete(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "missing choices") {
		t.Fatalf("expected missing choices error, got %v", err)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", 0); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient("key", " ", 0); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
