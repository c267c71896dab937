package referee

import "testing"

func TestFirstViolationRetries(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "bad json")
	if ruling != Retry {
		t.Fatalf("got %v", ruling)
	}
}

func TestSecondViolationSameTurnForfeitsTurn(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "bad json")
	r.ConsumeRetry("player_a")
	ruling := r.RecordViolation("player_a", MalformedJSON, "still bad")
	if ruling != ForfeitTurn {
		t.Fatalf("got %v", ruling)
	}
}

func TestRetryNotReusedAcrossTurns(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "bad")
	r.ConsumeRetry("player_a")
	r.RecordViolation("player_a", MalformedJSON, "bad2")

	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "bad3")
	if ruling != Retry {
		t.Fatalf("expected fresh retry on new turn, got %v", ruling)
	}
}

func TestMatchForfeitThresholdTwoPlayers(t *testing.T) {
	r := New(DefaultConfig(2))
	for i := 0; i < 3; i++ {
		details := []string{"no response A", "no response B", "no response C"}[i]
		r.NewTurn()
		r.RecordViolation("player_a", Timeout, details)
		r.ConsumeRetry("player_a")
		ruling := r.RecordViolation("player_a", Timeout, details)
		if i < 2 {
			if ruling != ForfeitTurn {
				t.Fatalf("iteration %d: got %v", i, ruling)
			}
		} else {
			if ruling != ForfeitMatch {
				t.Fatalf("expected FORFEIT_MATCH at threshold, got %v", ruling)
			}
		}
	}
	if !r.MatchForfeited() {
		t.Fatal("expected match forfeited flag")
	}
	if r.MatchForfeitedBy() != "player_a" {
		t.Fatalf("got %q", r.MatchForfeitedBy())
	}
}

func TestEliminatePlayerForThreePlusSeats(t *testing.T) {
	r := New(DefaultConfig(3))
	for i := 0; i < 3; i++ {
		details := []string{"no response A", "no response B", "no response C"}[i]
		r.NewTurn()
		r.RecordViolation("player_c", Timeout, details)
		r.ConsumeRetry("player_c")
		ruling := r.RecordViolation("player_c", Timeout, details)
		if i == 2 {
			if ruling != EliminatePlayer {
				t.Fatalf("expected ELIMINATE_PLAYER, got %v", ruling)
			}
		}
	}
}

func TestThresholdScalingSevenAndNineSeats(t *testing.T) {
	if got := DefaultConfig(7).Threshold(); got != 4 {
		t.Fatalf("7 seats: got %d want 4", got)
	}
	if got := DefaultConfig(9).Threshold(); got != 6 {
		t.Fatalf("9 seats: got %d want 6", got)
	}
	if got := DefaultConfig(6).Threshold(); got != 3 {
		t.Fatalf("6 seats: got %d want 3", got)
	}
}

func TestIllegalMoveDoesNotCountAsStrikeByDefault(t *testing.T) {
	r := New(DefaultConfig(2))
	for i := 0; i < 5; i++ {
		r.NewTurn()
		r.RecordViolation("player_a", IllegalMove, "bad move")
		r.ConsumeRetry("player_a")
		ruling := r.RecordViolation("player_a", IllegalMove, "bad move again")
		if ruling != ForfeitTurn {
			t.Fatalf("iteration %d: illegal_move should never escalate by default, got %v", i, ruling)
		}
	}
	if r.MatchForfeited() {
		t.Fatal("illegal_move is not in the default strike set and should not trigger a match forfeit")
	}
}

func TestInjectionAttemptStillRetriesOnFirstOffense(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	ruling := r.RecordViolation("player_a", InjectionAttempt, "injection pattern detected")
	if ruling != Retry {
		t.Fatalf("got %v", ruling)
	}
}

func TestStuckLoopDetectionIndependentOfThreshold(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "same error")
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "same error")
	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "same error")
	if ruling != ForfeitMatch {
		t.Fatalf("expected stuck-loop short circuit to FORFEIT_MATCH, got %v", ruling)
	}
}

func TestStuckLoopRequiresIdenticalDetails(t *testing.T) {
	r := New(DefaultConfig(2))
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "error one")
	r.NewTurn()
	r.RecordViolation("player_a", MalformedJSON, "error two")
	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "error three")
	if ruling == ForfeitMatch {
		t.Fatal("different details should not trigger stuck-loop short circuit")
	}
}

func TestTurnForfeitThresholdOneMeansNoRetry(t *testing.T) {
	cfg := DefaultConfig(2)
	cfg.TurnForfeitThreshold = 1
	r := New(cfg)
	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "bad json")
	if ruling != ForfeitTurn {
		t.Fatalf("threshold of 1 should forfeit immediately, got %v", ruling)
	}
}

func TestTurnForfeitThresholdTwoAllowsOneRetry(t *testing.T) {
	cfg := DefaultConfig(2)
	cfg.TurnForfeitThreshold = 2
	r := New(cfg)
	r.NewTurn()
	ruling := r.RecordViolation("player_a", MalformedJSON, "bad json")
	if ruling != Retry {
		t.Fatalf("got %v", ruling)
	}
	r.ConsumeRetry("player_a")
	ruling = r.RecordViolation("player_a", MalformedJSON, "still bad")
	if ruling != ForfeitTurn {
		t.Fatalf("got %v", ruling)
	}
}

func TestScaleBySeatsFalseDisablesThresholdBump(t *testing.T) {
	cfg := DefaultConfig(9)
	cfg.ScaleBySeats = false
	if got := cfg.Threshold(); got != 3 {
		t.Fatalf("got %d want 3 (base, unscaled)", got)
	}
}

func TestFidelityReportCleanSeatHasZeroCounts(t *testing.T) {
	r := New(DefaultConfig(2))
	r.EnsureSeat("player_a")
	r.EnsureSeat("player_b")
	report := r.GetFidelityReport()
	if report["player_a"].TotalViolations != 0 {
		t.Fatalf("expected zero violations, got %+v", report["player_a"])
	}
	if _, ok := report["player_b"]; !ok {
		t.Fatal("expected player_b entry even with no violations")
	}
}
