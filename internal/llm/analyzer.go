package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"resume-review/internal/review"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// BreakerSettings configures the circuit breaker around the model.
type BreakerSettings struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// Options configures an Analyzer.
type Options struct {
	// CallTimeout bounds a single model call; zero disables it.
	CallTimeout time.Duration
	// RatePerSec paces model calls across all reviews; zero disables pacing.
	RatePerSec float64
	Burst      int
	MaxRetries int
	Breaker    BreakerSettings
}

// Analyzer implements review.Analyzer on top of a Completer. Calls are paced by a token
// bucket, retried on transient failures and guarded by a circuit breaker.
type Analyzer struct {
	client     Completer
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// NewAnalyzer wraps client.
func NewAnalyzer(client Completer, opts Options) *Analyzer {
	if client == nil {
		client = PlaceholderClient{}
	}
	a := &Analyzer{
		client:     client,
		timeout:    opts.CallTimeout,
		maxRetries: opts.MaxRetries,
		baseDelay:  retryBaseDelay,
	}
	if a.maxRetries < 0 {
		a.maxRetries = 0
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	if opts.Breaker.Enabled {
		a.breaker = newBreaker("analyzer", opts.Breaker)
	}
	return a
}

func newBreaker(name string, cfg BreakerSettings) *gobreaker.CircuitBreaker[string] {
	metrics.SetBreakerState(name, float64(gobreaker.StateClosed))
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.SetBreakerState(name, float64(to))
			telemetry.Warn("llm.breaker.state_change", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return gobreaker.NewCircuitBreaker[string](settings)
}

// Analyze asks the model for one stage and returns its raw reply for the engine to parse.
func (a *Analyzer) Analyze(ctx context.Context, req review.Request) (review.Response, error) {
	messages := BuildMessages(req)

	var (
		raw string
		err error
	)
	for attempt := 0; ; attempt++ {
		raw, err = a.call(ctx, messages)
		if err == nil || attempt >= a.maxRetries || !shouldRetry(err) {
			break
		}
		delay := a.baseDelay << attempt
		telemetry.Warn("llm.retry", map[string]any{
			"stage":    string(req.Stage),
			"attempt":  attempt + 1,
			"delay_ms": delay.Milliseconds(),
			"error":    sanitizeError(err),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return review.Response{}, ctx.Err()
		}
	}
	if err != nil {
		return review.Response{}, err
	}
	return review.Response{Raw: raw}, nil
}

func (a *Analyzer) call(ctx context.Context, messages []Message) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	run := func() (string, error) {
		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		return a.client.Complete(callCtx, messages)
	}
	if a.breaker == nil {
		return run()
	}
	raw, err := a.breaker.Execute(run)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, err
}

// BreakerState reports the breaker state name, or "disabled".
func (a *Analyzer) BreakerState() string {
	if a.breaker == nil {
		return "disabled"
	}
	return a.breaker.State().String()
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

// sanitizeError keeps log lines short and free of prompt text.
func sanitizeError(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return strings.ReplaceAll(msg, "\n", " ")
}

var _ review.Analyzer = (*Analyzer)(nil)
