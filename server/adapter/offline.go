package adapter

import (
	"context"
	"time"
)

// charsPerToken approximates a token-to-character ratio for the offline
// adapter's output cap and token accounting, mirroring the character-based
// budget the original mock adapter used.
const charsPerToken = 4

// Strategy is a pure function from the prompt messages (plus an optional
// opaque context value) to response text. It must not perform I/O or block
// on anything other than its own computation; the offline adapter measures
// its wall time as the reported latency.
type Strategy func(messages []Message, context any) string

// Offline is the offline-deterministic adapter used by every test and by
// mock tournament participants. It never talks to a network and its output
// is a pure function of its strategy and inputs.
type Offline struct {
	ModelID      string
	ModelVersion string
	Strategy     Strategy
}

// NewOffline builds an offline adapter around a strategy function.
func NewOffline(modelID string, strategy Strategy) *Offline {
	return &Offline{ModelID: modelID, ModelVersion: "offline", Strategy: strategy}
}

// Query never returns a uniform failure for a well-formed Strategy; an
// empty result, however, is itself a failure per the adapter contract.
func (o *Offline) Query(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error) {
	start := time.Now()
	text := o.Strategy(messages, ctx.Value(strategyContextKey{}))
	latency := time.Since(start)

	cap := maxTokens * charsPerToken
	if cap > 0 && len(text) > cap {
		text = text[:cap]
	}
	if text == "" {
		return Response{}, &Error{Kind: FailureAPIError, Message: "empty response from strategy", Empty: true}
	}

	return Response{
		RawText:      text,
		InputTokens:  0,
		OutputTokens: len(text) / charsPerToken,
		LatencyMS:    latency.Milliseconds(),
		ModelID:      o.ModelID,
		ModelVersion: o.ModelVersion,
	}, nil
}

// strategyContextKey is the context key used to pass an opaque
// engine-provided value through to a Strategy, when callers want strategies
// to see more than the rendered prompt text.
type strategyContextKey struct{}

// WithStrategyContext attaches an opaque value a Strategy can retrieve via
// ctx.Value during Query.
func WithStrategyContext(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, strategyContextKey{}, v)
}
