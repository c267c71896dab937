package orchestrator

import (
	"context"
	"testing"

	"tourneyengine/server/adapter"
	"tourneyengine/server/game"
	"tourneyengine/server/referee"
	"tourneyengine/server/telemetry"
)

// fixtureEngine is a minimal two-seat game.Engine used only to exercise the
// match loop's turn-taking, violation, and finalize paths. It is not a real
// game: every legal action is {"move":"pass"}, and the match ends after a
// fixed number of total turns.
type fixtureEngine struct {
	turnsLeft int
	current   int // index into seats
	seats     []string
	scores    map[string]float64
	forfeited map[string]int
	eliminated map[string]bool
}

func newFixtureEngine() *fixtureEngine {
	return &fixtureEngine{
		seats:      []string{"player_a", "player_b"},
		scores:     map[string]float64{"player_a": 0, "player_b": 0},
		forfeited:  map[string]int{},
		eliminated: map[string]bool{},
	}
}

func (f *fixtureEngine) Reset(seed int64) {
	f.turnsLeft = 4
	f.current = 0
}

func (f *fixtureEngine) CurrentPlayer() string { return f.seats[f.current%len(f.seats)] }
func (f *fixtureEngine) GetPrompt(seat string) string { return "act for " + seat }
func (f *fixtureEngine) GetRetryPrompt(seat, reason string) string {
	return "retry for " + seat + ": " + reason
}
func (f *fixtureEngine) GetActionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"move": map[string]any{"type": "string"}},
		"required":             []any{"move"},
		"additionalProperties": false,
	}
}
func (f *fixtureEngine) ValidateAction(seat string, action map[string]any) game.ValidationResult {
	if action["move"] == "pass" {
		return game.ValidationResult{Legal: true}
	}
	return game.ValidationResult{Legal: false, Reason: "only 'pass' is legal"}
}
func (f *fixtureEngine) ApplyAction(seat string, action map[string]any) {
	f.scores[seat]++
	f.advance()
}
func (f *fixtureEngine) ForfeitTurn(seat string) {
	f.forfeited[seat]++
	f.advance()
}
func (f *fixtureEngine) EliminatePlayer(seat string) { f.eliminated[seat] = true }
func (f *fixtureEngine) advance() {
	f.turnsLeft--
	f.current++
}
func (f *fixtureEngine) IsTerminal() bool { return f.turnsLeft <= 0 }
func (f *fixtureEngine) GetScores() map[string]float64 { return f.scores }
func (f *fixtureEngine) GetStateSnapshot() any { return map[string]any{"turns_left": f.turnsLeft} }
func (f *fixtureEngine) GetHighlightHands() []string { return nil }
func (f *fixtureEngine) Seats() []string { return f.seats }

func strategyAlwaysPass(messages []adapter.Message, _ any) string {
	return `{"move":"pass"}`
}

func strategyAlwaysIllegal(messages []adapter.Message, _ any) string {
	return `{"move":"cheat"}`
}

func TestRunMatchAppliesLegalActionsToTerminal(t *testing.T) {
	engine := newFixtureEngine()
	logger, err := telemetry.NewLogger(t.TempDir(), "fixture-match", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	bindings := map[string]SeatBinding{
		"player_a": {Adapter: adapter.NewOffline("m-a", strategyAlwaysPass), ModelID: "m-a", MaxOutputTokens: 64, TimeoutSeconds: 5},
		"player_b": {Adapter: adapter.NewOffline("m-b", strategyAlwaysPass), ModelID: "m-b", MaxOutputTokens: 64, TimeoutSeconds: 5},
	}
	playerModels := map[string]string{"player_a": "alpha", "player_b": "beta"}

	outcome, err := RunMatch(context.Background(), "fixture-match", "fixture", engine, 1, bindings, playerModels, logger, referee.DefaultConfig(2))
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}
	if outcome.Ruling != "completed" {
		t.Fatalf("expected completed ruling, got %q", outcome.Ruling)
	}
	if outcome.Scores["player_a"]+outcome.Scores["player_b"] != 4 {
		t.Fatalf("expected 4 total applied turns, got %+v", outcome.Scores)
	}
}

func TestRunMatchForfeitsOnRepeatedIllegalMoves(t *testing.T) {
	engine := newFixtureEngine()
	logger, err := telemetry.NewLogger(t.TempDir(), "fixture-illegal", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	bindings := map[string]SeatBinding{
		"player_a": {Adapter: adapter.NewOffline("m-a", strategyAlwaysIllegal), ModelID: "m-a", MaxOutputTokens: 64, TimeoutSeconds: 5},
		"player_b": {Adapter: adapter.NewOffline("m-b", strategyAlwaysPass), ModelID: "m-b", MaxOutputTokens: 64, TimeoutSeconds: 5},
	}
	playerModels := map[string]string{"player_a": "alpha", "player_b": "beta"}

	outcome, err := RunMatch(context.Background(), "fixture-illegal", "fixture", engine, 1, bindings, playerModels, logger, referee.DefaultConfig(2))
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}
	// Illegal moves are not in the default strike set, but every attempt
	// fails with the same details, so player_a's third identical violation
	// (its second turn) trips stuck-loop detection and forfeits the match;
	// player_a should have accumulated forfeited turns instead of applied
	// ones.
	if engine.forfeited["player_a"] == 0 {
		t.Fatalf("expected player_a to have forfeited turns, got %+v", engine.forfeited)
	}
	if outcome.Fidelity["player_a"].ByKind[string(referee.IllegalMove)] == 0 {
		t.Fatalf("expected illegal_move violations recorded, got %+v", outcome.Fidelity["player_a"])
	}
}

func TestRunMatchEmptyResponseEscalatesToMatchForfeit(t *testing.T) {
	engine := newFixtureEngine()
	logger, err := telemetry.NewLogger(t.TempDir(), "fixture-empty", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	alwaysEmpty := func(messages []adapter.Message, _ any) string { return "" }
	bindings := map[string]SeatBinding{
		"player_a": {Adapter: adapter.NewOffline("m-a", alwaysEmpty), ModelID: "m-a", MaxOutputTokens: 64, TimeoutSeconds: 5},
		"player_b": {Adapter: adapter.NewOffline("m-b", strategyAlwaysPass), ModelID: "m-b", MaxOutputTokens: 64, TimeoutSeconds: 5},
	}
	playerModels := map[string]string{"player_a": "alpha", "player_b": "beta"}

	outcome, err := RunMatch(context.Background(), "fixture-empty", "fixture", engine, 1, bindings, playerModels, logger, referee.DefaultConfig(2))
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}
	if outcome.Ruling != "forfeited" {
		t.Fatalf("expected the match to be forfeited after repeated empty responses, got %q", outcome.Ruling)
	}
}
