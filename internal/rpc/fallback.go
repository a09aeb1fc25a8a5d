package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/metrics"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// Candidate is one entry in an ordered method-resolution chain. The
// upstream exposes the same operation under different method names and
// parameter shapes across versions, so operations are declared as
// chains and resolved at call time.
type Candidate struct {
	Method string
	Params any
	// Accept vets a successful result before the chain commits to it.
	// Applied to every candidate except the last, so a deployment that
	// genuinely has no data still gets an answer from the final
	// candidate rather than an error.
	Accept func(json.RawMessage) bool
}

// Chain executes ordered candidate lists first-success-wins.
type Chain struct {
	caller  Caller
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewChain builds a Chain. metrics may be nil.
func NewChain(caller Caller, logger zerolog.Logger, m *metrics.Metrics) *Chain {
	return &Chain{
		caller:  caller,
		logger:  logger.With().Str("component", "fallback").Logger(),
		metrics: m,
	}
}

// Run tries each candidate in order and returns the first accepted
// success. A candidate is skipped — and the next one tried — when it
// fails for any reason or when its Accept predicate rejects the
// result; the chain never rotates past a candidate that succeeded with
// an acceptable result. When every candidate fails, the last error is
// returned.
func (c *Chain) Run(ctx context.Context, src upstream.CredentialSource, family string, candidates []Candidate) (json.RawMessage, error) {
	var lastErr error
	for idx, cand := range candidates {
		c.metrics.RecordFallback(family)
		result, err := c.caller.Call(ctx, src, cand.Method, cand.Params)
		if err != nil {
			c.logger.Debug().
				Str("family", family).
				Str("method", cand.Method).
				Err(err).
				Msg("candidate failed, rotating")
			lastErr = err
			continue
		}
		last := idx == len(candidates)-1
		if !last && cand.Accept != nil && !cand.Accept(result) {
			c.logger.Debug().
				Str("family", family).
				Str("method", cand.Method).
				Msg("candidate result rejected, rotating")
			lastErr = apperr.New(apperr.KindUpstreamRPC, cand.Method, "result rejected by acceptance check")
			continue
		}
		if idx > 0 {
			c.logger.Info().
				Str("family", family).
				Str("method", cand.Method).
				Int("attempt", idx+1).
				Msg("fallback candidate resolved")
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = apperr.New(apperr.KindValidation, family, "empty candidate chain")
	}
	return nil, lastErr
}

// PrefixResolver resolves a family of related methods that share a
// namespace prefix which varies across upstream deployments. The first
// prefix that answers any call is latched and reused for subsequent
// calls, so steady state costs exactly one upstream attempt.
//
// A latched prefix can go stale (upstream upgrade mid-session). When a
// call through the latch fails with a method-resolution error, the
// latch is cleared and every prefix is retried once, in order. That is
// the only re-resolution cycle per call; non-resolution errors abort
// immediately.
type PrefixResolver struct {
	prefixes []string
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	latched string
}

// NewPrefixResolver builds a resolver over the given prefix order.
func NewPrefixResolver(prefixes []string, logger zerolog.Logger, m *metrics.Metrics) *PrefixResolver {
	return &PrefixResolver{
		prefixes: prefixes,
		logger:   logger.With().Str("component", "prefix_resolver").Logger(),
		metrics:  m,
	}
}

// Latched returns the currently latched prefix, empty if unresolved.
func (r *PrefixResolver) Latched() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latched
}

// Reset clears the latch.
func (r *PrefixResolver) Reset() {
	r.mu.Lock()
	r.latched = ""
	r.mu.Unlock()
}

// Invoke calls prefix+"."+action with params under the latched prefix,
// falling back to a full scan when unresolved or stale.
func (r *PrefixResolver) Invoke(ctx context.Context, caller Caller, src upstream.CredentialSource, action string, params any) (json.RawMessage, error) {
	r.mu.Lock()
	latched := r.latched
	r.mu.Unlock()

	if latched != "" {
		r.metrics.RecordFallback("prefix:" + action)
		result, err := caller.Call(ctx, src, latched+"."+action, params)
		if err == nil {
			return result, nil
		}
		if !apperr.IsMethodAmbiguity(err) {
			return nil, err
		}
		r.logger.Warn().
			Str("prefix", latched).
			Str("action", action).
			Msg("latched prefix went stale, re-resolving")
		r.mu.Lock()
		if r.latched == latched {
			r.latched = ""
		}
		r.mu.Unlock()
	}

	var lastErr error
	for _, prefix := range r.prefixes {
		r.metrics.RecordFallback("prefix:" + action)
		result, err := caller.Call(ctx, src, prefix+"."+action, params)
		if err == nil {
			r.mu.Lock()
			r.latched = prefix
			r.mu.Unlock()
			r.logger.Info().Str("prefix", prefix).Str("action", action).Msg("prefix latched")
			return result, nil
		}
		if !apperr.IsMethodAmbiguity(err) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = apperr.New(apperr.KindValidation, action, "no prefixes configured")
	}
	return nil, lastErr
}
