package holdem

import "testing"

func newTestEngine() *Engine {
	e := New(Config{HandsPerMatch: 2, StartingStack: 200, SmallBlind: 1, BigBlind: 2})
	e.Reset(7)
	return e
}

func TestResetDealsTwoSeats(t *testing.T) {
	e := newTestEngine()
	seats := e.Seats()
	if len(seats) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(seats))
	}
	if e.IsTerminal() {
		t.Fatal("fresh match should not be terminal")
	}
	if p := e.CurrentPlayer(); p != seatA && p != seatB {
		t.Fatalf("unexpected current player %q", p)
	}
}

func TestFoldConcedesPotToOpponent(t *testing.T) {
	e := newTestEngine()
	before := e.GetScores()
	seat := e.CurrentPlayer()
	if err := e.ValidateAction(seat, map[string]any{"action": "fold"}); !err.Legal {
		t.Fatalf("fold should be legal: %+v", err)
	}
	e.ApplyAction(seat, map[string]any{"action": "fold"})
	after := e.GetScores()
	total := func(s map[string]float64) float64 { return s[seatA] + s[seatB] }
	if total(before) != total(after) {
		t.Fatalf("fold must conserve total chips: before=%v after=%v", before, after)
	}
}

func TestValidateActionRejectsOutOfTurn(t *testing.T) {
	e := newTestEngine()
	current := e.CurrentPlayer()
	other := seatA
	if current == seatA {
		other = seatB
	}
	result := e.ValidateAction(other, map[string]any{"action": "call"})
	if result.Legal {
		t.Fatal("expected out-of-turn action to be illegal")
	}
}

func TestValidateActionRejectsRaiseBelowMinimum(t *testing.T) {
	e := newTestEngine()
	seat := e.CurrentPlayer()
	result := e.ValidateAction(seat, map[string]any{"action": "raise", "amount": 1})
	if result.Legal {
		t.Fatal("expected a too-small raise to be illegal")
	}
}

func TestMatchTerminatesAfterConfiguredHands(t *testing.T) {
	e := newTestEngine()
	// Drive the match to completion by always folding; this forces each
	// hand to end immediately and should exhaust HandsPerMatch=2 quickly.
	guard := 0
	for !e.IsTerminal() {
		guard++
		if guard > 100 {
			t.Fatal("match did not terminate within a reasonable number of turns")
		}
		seat := e.CurrentPlayer()
		e.ApplyAction(seat, map[string]any{"action": "fold"})
	}
	scores := e.GetScores()
	if scores[seatA]+scores[seatB] != 400 {
		t.Fatalf("expected total chips conserved at 400, got %v", scores)
	}
}

func TestForfeitTurnConservesChips(t *testing.T) {
	e := newTestEngine()
	before := e.GetScores()
	seat := e.CurrentPlayer()
	e.ForfeitTurn(seat)
	after := e.GetScores()
	if before[seatA]+before[seatB] != after[seatA]+after[seatB] {
		t.Fatalf("forfeit must conserve chips: before=%v after=%v", before, after)
	}
}

func TestGetPromptMentionsHoleCards(t *testing.T) {
	e := newTestEngine()
	seat := e.CurrentPlayer()
	prompt := e.GetPrompt(seat)
	if prompt == "" {
		t.Fatal("expected a non-empty prompt")
	}
}
