package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *ipv4Server {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
}

func TestGenerateRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	// Ask server to instruct a 1-second Retry-After, then succeed.
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 5*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 900*time.Millisecond { // allow some scheduling variance
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	// Server returns 400 with X-Request-Id header
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestGenerateAuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid key"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("bad", 2*time.Second, 3, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gpt-4o", Messages: []Message{{Role: "user", Content: "hi"}}})
	if ReasonOf(err) != ReasonAuth {
		t.Fatalf("expected auth failure, got %T: %v", err, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestGenerateServerErrorExhaustsRetries(t *testing.T) {
	srv := testServerSequence(t, []int{503, 503}, nil, nil)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 2, 5*time.Millisecond, 10*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gpt-4o", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ce *CallError
	if !errors.As(err, &ce) || ce.Reason != ReasonServer || ce.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected server failure, got %T: %v", err, err)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	c := NewOpenAIClient("")
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gpt-4o", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestPrompterSendsSingleUserMessage(t *testing.T) {
	var got GenerateRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: `{"domain": "retail"}`}}}})
	}))
	defer srv.Close()

	rt, ok := GetRuntime(ProviderOpenAI, RuntimeConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", HTTPTimeout: 2 * time.Second, RetryMax: 1})
	if !ok {
		t.Fatalf("openai runtime not registered")
	}
	p := NewPrompter(rt, "gpt-4o")
	out, err := p.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != `{"domain": "retail"}` {
		t.Fatalf("unexpected completion: %q", out)
	}
	if got.Model != "gpt-4o" || len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "classify this" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestPrompterWithoutRuntime(t *testing.T) {
	var p *Prompter
	if _, err := p.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegistryProviders(t *testing.T) {
	want := []string{"gemini", "ollama", "openai"}
	got := Providers()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("providers = %v, want %v", got, want)
	}
	if _, ok := GetRuntime("anthropic", RuntimeConfig{}); ok {
		t.Fatalf("unexpected runtime for unknown provider")
	}
	if _, ok := GetRuntime("Gemini", RuntimeConfig{}); !ok {
		t.Fatalf("provider lookup should ignore case")
	}
}

func TestResolveModel(t *testing.T) {
	cases := []struct{ provider, model, want string }{
		{"openai", "", "gpt-4o"},
		{"openai", "gpt-4o-mini", "gpt-4o-mini"},
		{"ollama", "gpt-4o", "llama3.1"},
		{"ollama", "mistral", "mistral"},
		{"gemini", "", "gemini-2.0-flash"},
		{"openai", "gemini-1.5-pro", "gpt-4o"},
	}
	for _, tc := range cases {
		if got := ResolveModel(tc.provider, tc.model); got != tc.want {
			t.Errorf("ResolveModel(%q, %q) = %q, want %q", tc.provider, tc.model, got, tc.want)
		}
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	c := NewGeminiClient("", time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.0-flash", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestClassifyReasons(t *testing.T) {
	cases := []struct {
		status int
		code   string
		msg    string
		want   Reason
	}{
		{http.StatusForbidden, "", "nope", ReasonAuth},
		{http.StatusTooManyRequests, "", "slow down", ReasonRateLimited},
		{http.StatusTooManyRequests, "insufficient_quota", "You exceeded your current quota", ReasonQuota},
		{http.StatusNotFound, "model_not_found", "", ReasonModelNotFound},
		{http.StatusNotFound, "", "no such route", ReasonAPI},
		{http.StatusBadRequest, "", "bad", ReasonBadRequest},
		{http.StatusPaymentRequired, "", "billing hard limit", ReasonQuota},
		{http.StatusBadGateway, "", "", ReasonServer},
	}
	for _, tc := range cases {
		ce := classify(&CallError{Reason: ReasonAPI, Status: tc.status, Code: tc.code, Message: tc.msg})
		if ce.Reason != tc.want {
			t.Errorf("status %d code %q: got %s, want %s", tc.status, tc.code, ce.Reason, tc.want)
		}
	}
	if !(&CallError{Reason: ReasonRateLimited}).Retryable() || (&CallError{Reason: ReasonAuth}).Retryable() {
		t.Fatalf("unexpected retryability")
	}
}
