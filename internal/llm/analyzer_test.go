package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-review/internal/review"
)

type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	calls    int
	messages [][]Message
}

func (s *scriptedCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.messages = append(s.messages, messages)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return `{"score":1}`, nil
}

func (s *scriptedCompleter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testRequest() review.Request {
	return review.Request{
		Stage:        review.StageInitialAnalysis,
		Instruction:  "Assess the resume.",
		DocumentText: "Jane Doe\nGo engineer",
		Prior:        review.NewResult(),
	}
}

func TestAnalyzeReturnsRawReply(t *testing.T) {
	c := &scriptedCompleter{replies: []string{`{"score":82}`}}
	a := NewAnalyzer(c, Options{})

	resp, err := a.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Raw != `{"score":82}` {
		t.Fatalf("unexpected raw %q", resp.Raw)
	}
	if len(c.messages) != 1 || len(c.messages[0]) != 3 {
		t.Fatalf("expected one call with three messages, got %+v", c.messages)
	}
}

func TestAnalyzeRetriesTransientErrors(t *testing.T) {
	c := &scriptedCompleter{
		errs:    []error{errors.New("openai http status 503: overloaded")},
		replies: []string{"", `{"score":70}`},
	}
	a := NewAnalyzer(c, Options{MaxRetries: 1})
	a.baseDelay = time.Millisecond

	resp, err := a.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Raw != `{"score":70}` || c.count() != 2 {
		t.Fatalf("expected success on retry, got %q after %d calls", resp.Raw, c.count())
	}
}

func TestAnalyzeDoesNotRetryPermanentErrors(t *testing.T) {
	c := &scriptedCompleter{errs: []error{errors.New("openai http status 400: bad request")}}
	a := NewAnalyzer(c, Options{MaxRetries: 3})
	a.baseDelay = time.Millisecond

	if _, err := a.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatalf("expected error")
	}
	if c.count() != 1 {
		t.Fatalf("expected a single call, got %d", c.count())
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	boom := errors.New("invalid api key")
	c := &scriptedCompleter{errs: []error{boom, boom, boom}}
	a := NewAnalyzer(c, Options{Breaker: BreakerSettings{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}})

	for i := 0; i < 2; i++ {
		if _, err := a.Analyze(context.Background(), testRequest()); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected underlying error, got %v", i, err)
		}
	}
	_, err := a.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once open, got %v", err)
	}
	if c.count() != 2 {
		t.Fatalf("open breaker should not reach the model, got %d calls", c.count())
	}
	if a.BreakerState() != "open" {
		t.Fatalf("expected open state, got %s", a.BreakerState())
	}
}

func TestAnalyzeHonorsCanceledContext(t *testing.T) {
	c := &scriptedCompleter{}
	a := NewAnalyzer(c, Options{RatePerSec: 1, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Analyze(ctx, testRequest()); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if c.count() != 0 {
		t.Fatalf("expected no model call, got %d", c.count())
	}
}

func TestPlaceholderClientNotConfigured(t *testing.T) {
	a := NewAnalyzer(nil, Options{MaxRetries: 2})
	_, err := a.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "5xx", err: errors.New("openai http status 502: bad gateway"), want: true},
		{name: "429", err: errors.New("openai http status 429: slow down"), want: true},
		{name: "4xx", err: errors.New("openai http status 401: nope"), want: false},
		{name: "reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "timeout", err: errors.New("openai request timeout: context deadline exceeded"), want: true},
		{name: "unavailable", err: ErrUnavailable, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.want {
				t.Fatalf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSanitizeErrorTruncates(t *testing.T) {
	got := sanitizeError(errors.New(strings.Repeat("x", 500) + "\n"))
	if len(got) != 200 {
		t.Fatalf("expected 200 chars, got %d", len(got))
	}
}
