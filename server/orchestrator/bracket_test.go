package orchestrator

import (
	"reflect"
	"testing"

	"tourneyengine/server/referee"
)

func TestBracketPairingsEight(t *testing.T) {
	got := bracketPairings(8)
	want := [][2]int{{1, 8}, {4, 5}, {3, 6}, {2, 7}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bracketPairings(8) = %v, want %v", got, want)
	}
}

func TestBracketPairingsFour(t *testing.T) {
	got := bracketPairings(4)
	want := [][2]int{{1, 4}, {3, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bracketPairings(4) = %v, want %v", got, want)
	}
}

func TestBuildBracketRoundsRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := BuildBracketRounds([]string{"a", "b", "c"}); err == nil {
		t.Fatal("expected error for non-power-of-2 model count")
	}
}

func TestBuildBracketRoundsShape(t *testing.T) {
	rounds, err := BuildBracketRounds([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("BuildBracketRounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds for 4 models, got %d", len(rounds))
	}
	if len(rounds[0]) != 2 || len(rounds[1]) != 1 {
		t.Fatalf("unexpected round sizes: %v", rounds)
	}
}

func TestAdvanceBracketRound(t *testing.T) {
	current := []BracketMatch{
		{Winner: "a", WinnerSeed: 1},
		{Winner: "d", WinnerSeed: 4},
	}
	next := AdvanceBracketRound(current)
	if len(next) != 1 {
		t.Fatalf("expected 1 match in next round, got %d", len(next))
	}
	if next[0].ModelA != "a" || next[0].ModelB != "d" {
		t.Fatalf("unexpected next-round matchup: %+v", next[0])
	}
}

func TestDetermineWinnerByScore(t *testing.T) {
	scores := map[string]float64{"player_a": 300, "player_b": 100}
	winner, seed := DetermineWinner(scores, nil, 1, 4, "alpha", "delta")
	if winner != "alpha" || seed != 1 {
		t.Fatalf("expected alpha/1, got %s/%d", winner, seed)
	}
}

func TestDetermineWinnerTiebreakByViolations(t *testing.T) {
	scores := map[string]float64{"player_a": 200, "player_b": 200}
	fidelity := map[string]referee.FidelityReport{
		"player_a": {TotalViolations: 3},
		"player_b": {TotalViolations: 0},
	}
	winner, seed := DetermineWinner(scores, fidelity, 1, 4, "alpha", "delta")
	if winner != "delta" || seed != 4 {
		t.Fatalf("expected delta/4 (fewer violations), got %s/%d", winner, seed)
	}
}

func TestDetermineWinnerTiebreakBySeed(t *testing.T) {
	scores := map[string]float64{"player_a": 200, "player_b": 200}
	fidelity := map[string]referee.FidelityReport{
		"player_a": {TotalViolations: 1},
		"player_b": {TotalViolations: 1},
	}
	winner, seed := DetermineWinner(scores, fidelity, 2, 7, "beta", "eta")
	if winner != "beta" || seed != 2 {
		t.Fatalf("expected beta/2 (better seed), got %s/%d", winner, seed)
	}
}
