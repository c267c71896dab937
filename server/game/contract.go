// Package game defines the narrow contract the tournament core consumes
// from any event implementation. The core never inspects a game's rules;
// it only drives this interface.
package game

// ValidationResult is returned by Validate to report whether a proposed
// action is legal, with an optional human-readable reason when it is not.
type ValidationResult struct {
	Legal  bool
	Reason string
}

// Engine is the capability set every event must expose. Implementations
// must be deterministic under a fixed seed and any sequence of validated
// actions: the same seed and the same sequence of apply_action calls must
// always reach the same state.
type Engine interface {
	// Reset (re)initializes the engine for a fresh match under seed.
	Reset(seed int64)

	// CurrentPlayer returns the seat whose turn it is.
	CurrentPlayer() string

	// GetPrompt renders a fresh prompt for seat from current state.
	GetPrompt(seat string) string

	// GetRetryPrompt renders a retry prompt embedding reason (the parse or
	// validation error that triggered the retry).
	GetRetryPrompt(seat, reason string) string

	// GetActionSchema returns the JSON Schema a candidate action must
	// validate against.
	GetActionSchema() map[string]any

	// ValidateAction checks whether action is legal for seat in the
	// current state.
	ValidateAction(seat string, action map[string]any) ValidationResult

	// ApplyAction applies a previously validated action, advancing state.
	ApplyAction(seat string, action map[string]any)

	// ForfeitTurn is the engine's fallback for a seat that failed to
	// produce a legal action. It must always succeed, must conserve
	// score, and must advance the state so CurrentPlayer eventually moves
	// on.
	ForfeitTurn(seat string)

	// EliminatePlayer removes seat from further play, for events that
	// support elimination (3+ seats). Implementations for strictly
	// two-player events may treat this the same as a match forfeit.
	EliminatePlayer(seat string)

	// IsTerminal reports whether the match has ended.
	IsTerminal() bool

	// GetScores returns the final (or current) score per seat.
	GetScores() map[string]float64

	// GetStateSnapshot returns a JSON-serializable snapshot of the
	// current state, used for telemetry.
	GetStateSnapshot() any

	// GetHighlightHands returns identifiers of noteworthy hands/turns for
	// the match summary.
	GetHighlightHands() []string

	// Seats returns every seat participating in the match, in seating
	// order. Length is the seat count the referee uses for threshold
	// scaling.
	Seats() []string
}
