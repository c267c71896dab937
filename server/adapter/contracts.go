// Package adapter provides a uniform façade over heterogeneous model
// back-ends. Every adapter maps back-end-specific failures into one of a
// small set of error kinds; no back-end-specific exception or type ever
// escapes the adapter boundary.
package adapter

import (
	"context"
	"fmt"
)

// Message is one turn of a chat-style exchange.
type Message struct {
	Role    string
	Content string
}

// Response is the immutable record every adapter returns on success.
// RawText is never empty on success; an empty completion is a failure.
type Response struct {
	RawText      string
	ReasoningText string
	InputTokens  int
	OutputTokens int
	LatencyMS    int64
	ModelID      string
	ModelVersion string
}

// FailureKind classifies every adapter failure into one of three buckets.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureRateLimit FailureKind = "rate_limit"
	FailureAPIError  FailureKind = "api_error"
)

// Error is the single error type adapters may return. No back-end-specific
// exception type is ever visible to callers. Empty marks the special case
// of a back-end that answered but returned no completion text at all; the
// match loop classifies this as ViolationKind EMPTY_RESPONSE instead of
// folding it into the generic TIMEOUT grouping.
type Error struct {
	Kind    FailureKind
	Message string
	Empty   bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError constructs an *Error carrying one of the three uniform kinds.
func NewError(kind FailureKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Adapter is the polymorphic capability every back-end implementation
// exposes. context carries cancellation and the shot-clock deadline;
// timeoutSeconds is advisory and used by adapters that need an explicit
// per-request timeout distinct from ctx's deadline.
type Adapter interface {
	Query(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error)
}

// ConfigError reports a problem discovered at adapter construction time,
// such as a missing credential environment variable. Configuration errors
// are raised before any match starts and are never converted into
// telemetry violations.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("adapter config error (%s): %s", e.Field, e.Message)
}
