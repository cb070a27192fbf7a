package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sparklens/internal/llmclient"
	"sparklens/internal/logging"
	"sparklens/internal/logparse"
)

// Orchestrator runs analysis requests end to end: render, invoke with retry,
// parse, infer severity. It holds no mutable state across calls, so
// concurrent requests are independent and cancellation only abandons the
// pending invocation.
type Orchestrator struct {
	registry       *Registry
	scheduler      *llmclient.Scheduler
	maxAttempts    int
	backoffBase    time.Duration
	backoffMax     time.Duration
	errorThreshold int
	invokeTimeout  time.Duration
}

// Options configures an Orchestrator. Zero fields take the defaults noted on
// each field.
type Options struct {
	Registry  *Registry
	Scheduler *llmclient.Scheduler
	// MaxAttempts counts the first try plus retries. Default 3.
	MaxAttempts int
	// BackoffBase is the first retry delay, doubled per attempt. Default 1s.
	BackoffBase time.Duration
	// BackoffMax caps the retry delay. Default 30s.
	BackoffMax time.Duration
	// ErrorThreshold is the error count above which inferred severity
	// escalates to HIGH. Default 10.
	ErrorThreshold int
	// InvokeTimeout bounds a single provider invocation. Default 120s.
	InvokeTimeout time.Duration
}

// NewOrchestrator creates an orchestrator. A nil Scheduler means invocations
// are not gated (callers already serializing their own requests).
func NewOrchestrator(o Options) *Orchestrator {
	if o.Registry == nil {
		o.Registry = NewRegistry(0)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.ErrorThreshold < 1 {
		o.ErrorThreshold = 10
	}
	if o.InvokeTimeout <= 0 {
		o.InvokeTimeout = 120 * time.Second
	}
	return &Orchestrator{
		registry:       o.Registry,
		scheduler:      o.Scheduler,
		maxAttempts:    o.MaxAttempts,
		backoffBase:    o.BackoffBase,
		backoffMax:     o.BackoffMax,
		errorThreshold: o.ErrorThreshold,
		invokeTimeout:  o.InvokeTimeout,
	}
}

// Analyze runs one request against the given client. It returns a complete
// Result or a *Failure; never a partially populated result.
func (o *Orchestrator) Analyze(ctx context.Context, client llmclient.Client, req Request) (*Result, error) {
	start := time.Now()

	if !req.Type.Known() {
		return nil, &Failure{Provider: client.Provider(), Err: fmt.Errorf("unknown analysis type %q", req.Type)}
	}
	if len(req.Entries) == 0 {
		return &Result{
			Summary:        "No log entries found for analysis.",
			Severity:       SeverityLow,
			Provider:       client.Provider(),
			ProcessingTime: time.Since(start),
		}, nil
	}

	prompt, err := o.registry.Render(req)
	if err != nil {
		return nil, &Failure{Provider: client.Provider(), Err: err}
	}
	logging.AnalysisDebug("rendered %s prompt: %d chars, %d entries", req.Type, len(prompt), len(req.Entries))

	raw, attempts, err := o.invokeWithRetry(ctx, client, prompt, req.ModelHint)
	if err != nil {
		return nil, &Failure{Provider: client.Provider(), Attempts: attempts, Err: err}
	}

	result, err := parseResponse(client.Provider(), raw)
	if err != nil {
		return nil, &Failure{Provider: client.Provider(), Attempts: attempts, Err: err}
	}

	if result.Severity == "" {
		result.Severity = InferSeverity(req.Entries, o.errorThreshold)
		logging.AnalysisDebug("provider omitted severity, inferred %s", result.Severity)
	}
	result.ProcessingTime = time.Since(start)
	logging.Analysis("%s analysis via %s completed in %v (%d attempt(s))",
		req.Type, client.Provider(), result.ProcessingTime, attempts)
	return result, nil
}

// invokeWithRetry performs up to maxAttempts invocations. Only rate-limit and
// timeout failures are retried; auth and malformed-response failures are
// fatal on the first occurrence.
func (o *Orchestrator) invokeWithRetry(ctx context.Context, client llmclient.Client, prompt, modelHint string) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		raw, err := o.invokeOnce(ctx, client, prompt, modelHint)
		if err == nil {
			return raw, attempt, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", attempt, err
		}
		if attempt == o.maxAttempts {
			break
		}

		backoff := o.backoffBase << (attempt - 1)
		if backoff > o.backoffMax {
			backoff = o.backoffMax
		}
		logging.Analysis("attempt %d/%d against %s failed (%v), retrying in %v",
			attempt, o.maxAttempts, client.Provider(), err, backoff)
		select {
		case <-ctx.Done():
			return "", attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", o.maxAttempts, lastErr
}

func (o *Orchestrator) invokeOnce(ctx context.Context, client llmclient.Client, prompt, modelHint string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.invokeTimeout)
	defer cancel()
	if o.scheduler != nil {
		return o.scheduler.Invoke(callCtx, client, prompt, modelHint)
	}
	return client.Invoke(callCtx, prompt, modelHint)
}

func retryable(err error) bool {
	return errors.Is(err, llmclient.ErrRateLimited) || errors.Is(err, llmclient.ErrTimeout)
}

// InferSeverity rates an entry window from its error content alone, used when
// the provider response carries no usable severity. Deterministic given the
// same entries.
func InferSeverity(entries []*logparse.LogEntry, errorThreshold int) Severity {
	var errorCount, fatalCount int
	exceptionTypes := map[string]bool{}
	for _, e := range entries {
		switch e.Level {
		case logparse.LevelError:
			errorCount++
		case logparse.LevelFatal:
			fatalCount++
		}
		if e.Level.IsError() && e.ExceptionType != "" {
			exceptionTypes[e.ExceptionType] = true
		}
	}

	switch {
	case len(exceptionTypes) >= 2:
		// Multiple unrelated root-cause signatures in one window.
		return SeverityCritical
	case fatalCount > 0 || errorCount > errorThreshold:
		return SeverityHigh
	case errorCount > 0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
