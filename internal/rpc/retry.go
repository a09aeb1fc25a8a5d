// Package rpc layers retry and method-resolution policies on top of the
// raw upstream client.
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/metrics"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// Transport is the slice of the upstream client the invoker wraps.
type Transport interface {
	Do(ctx context.Context, src upstream.CredentialSource, req upstream.Request) (*upstream.CallOutcome, error)
	Call(ctx context.Context, src upstream.CredentialSource, method string, params any) (json.RawMessage, error)
}

// Caller issues a single logical upstream call, with retries applied.
// Higher layers (fallback chains, typed accessors) depend on this
// interface rather than on the concrete invoker.
type Caller interface {
	Call(ctx context.Context, src upstream.CredentialSource, method string, params any) (json.RawMessage, error)
}

// Policy controls the rate-limit retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, first call included.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: the wait before attempt
	// n (n >= 2) is BaseDelay * 2^(n-1).
	BaseDelay time.Duration
	// RateLimitDelay is an extra flat wait after a 429, applied before
	// the backoff wait of the next attempt.
	RateLimitDelay time.Duration
}

// backoffFor is the wait before attempt n (n >= 2): the flat rate-limit
// delay plus BaseDelay doubled per prior attempt (2s, 4s, ... at the
// default BaseDelay).
func (p Policy) backoffFor(attempt int) time.Duration {
	return p.RateLimitDelay + p.BaseDelay*(1<<(attempt-1))
}

// DefaultPolicy matches the upstream's observed rate-limit window.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		RateLimitDelay: 5 * time.Second,
	}
}

// Invoker wraps a Transport with the rate-limit retry policy. Only
// rate-limit failures are retried; every other error class (transport,
// shape, upstream RPC) surfaces immediately so fallback chains can
// react to it on the first attempt.
type Invoker struct {
	next    Transport
	policy  Policy
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewInvoker builds an Invoker. metrics may be nil.
func NewInvoker(next Transport, policy Policy, logger zerolog.Logger, m *metrics.Metrics) *Invoker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Invoker{
		next:    next,
		policy:  policy,
		logger:  logger.With().Str("component", "rpc").Logger(),
		metrics: m,
	}
}

// Call issues method with params, retrying on rate limiting.
func (i *Invoker) Call(ctx context.Context, src upstream.CredentialSource, method string, params any) (json.RawMessage, error) {
	var result json.RawMessage
	err := i.withRetry(ctx, method, func(ctx context.Context) error {
		var callErr error
		result, callErr = i.next.Call(ctx, src, method, params)
		return callErr
	})
	return result, err
}

// Do forwards a full caller-supplied envelope, retrying on rate
// limiting. Used by the raw passthrough endpoint, which needs the
// outcome status and envelope rather than just the result.
func (i *Invoker) Do(ctx context.Context, src upstream.CredentialSource, req upstream.Request) (*upstream.CallOutcome, error) {
	var outcome *upstream.CallOutcome
	err := i.withRetry(ctx, req.Method, func(ctx context.Context) error {
		var callErr error
		outcome, callErr = i.next.Do(ctx, src, req)
		return callErr
	})
	return outcome, err
}

func (i *Invoker) withRetry(ctx context.Context, method string, call func(context.Context) error) error {
	start := time.Now()
	var err error
	for attempt := 1; attempt <= i.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := i.policy.backoffFor(attempt)
			i.logger.Warn().
				Str("method", method).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("rate limited, backing off")
			if sleepErr := sleep(ctx, wait); sleepErr != nil {
				return apperr.Wrap(apperr.KindTransport, "rpc.retry", sleepErr)
			}
			i.metrics.RecordRetry()
		}

		err = call(ctx)
		if err == nil {
			i.metrics.RecordRPC(method, "ok")
			i.metrics.ObserveRPCDuration(method, time.Since(start).Seconds())
			return nil
		}
		if !apperr.IsRetryable(err) {
			i.metrics.RecordRPC(method, apperr.KindOf(err).String())
			return err
		}
	}
	i.metrics.RecordRPC(method, "rate_limited")
	i.logger.Error().
		Str("method", method).
		Int("attempts", i.policy.MaxAttempts).
		Msg("rate limit retries exhausted")
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
