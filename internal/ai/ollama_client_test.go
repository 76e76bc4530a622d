package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaPrompterRoundTrip(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"domain": "finance"}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	rt, ok := GetRuntime("OLLAMA", RuntimeConfig{Host: srv.URL + "/", HTTPTimeout: 2 * time.Second, RetryMax: 1})
	if !ok {
		t.Fatalf("ollama runtime not registered")
	}
	p := NewPrompter(rt, "llama3.1")
	p.Temperature = 0.2
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := p.Complete(ctx, "classify the columns")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != `{"domain": "finance"}` {
		t.Fatalf("unexpected completion: %q", out)
	}
	if got.Model != "llama3.1" || got.Stream || len(got.Messages) != 1 || got.Messages[0].Content != "classify the columns" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Options["temperature"] != 0.2 {
		t.Fatalf("temperature not forwarded: %v", got.Options)
	}
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "loading model"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "ok"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, time.Millisecond)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "ok" || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestOllamaBadRequestIsFinal(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid format"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 3, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})
	if ReasonOf(err) != ReasonBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestOllamaRejectsEmptyInput(t *testing.T) {
	c := NewOllamaClient("", time.Second, 1, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3.1"}); err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	if _, err := c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: "user", Content: "hi"}}}); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestOllamaMissingModelIsTyped(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model \"llama9\" not found, try pulling it first"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama9", Messages: []Message{{Role: "user", Content: "hi"}}})
	var nf *CallError
	if !errors.As(err, &nf) || nf.Reason != ReasonModelNotFound {
		t.Fatalf("expected missing model, got %T: %v", err, err)
	}
	if nf.Message == "" {
		t.Fatalf("expected server message to be kept")
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3", Messages: []Message{{Role: "user", Content: "hi"}}})
	if ReasonOf(err) != ReasonUnreachable {
		t.Fatalf("expected unreachable endpoint, got %T: %v", err, err)
	}
}
