package orchestrator

import (
	"fmt"

	"tourneyengine/server/referee"
)

// bracketPairings generates standard single-elimination seeding for n
// (a power of two, 1-indexed seeds) such that top seeds meet only in the
// final if favorites always win: n=2 -> [(1,2)]; n=4 -> [(1,4),(3,2)];
// n=8 -> [(1,8),(4,5),(3,6),(2,7)].
func bracketPairings(n int) [][2]int {
	if n == 2 {
		return [][2]int{{1, 2}}
	}
	half := n / 2
	prev := bracketPairings(half)
	result := make([][2]int, 0, len(prev)*2)
	for _, p := range prev {
		a, b := p[0], p[1]
		result = append(result, [2]int{a, n + 1 - a})
		result = append(result, [2]int{b, n + 1 - b})
	}
	return result
}

// BracketMatch is one node in a single-elimination bracket.
type BracketMatch struct {
	Position int
	SeedA    int
	ModelA   string
	SeedB    int
	ModelB   string
	MatchID  string
	Scores   map[string]float64
	Winner   string
	WinnerSeed int
}

// BuildBracketRounds lays out every round of a single-elimination bracket
// for the given seed-ordered model names. Later rounds are placeholders
// (ModelA/ModelB empty) until the prior round's winners are resolved by the
// caller via AdvanceBracketRound.
func BuildBracketRounds(modelsBySeed []string) ([][]BracketMatch, error) {
	n := len(modelsBySeed)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("bracket format requires a power-of-2 number of models, got %d", n)
	}
	seedToModel := make(map[int]string, n)
	for i, name := range modelsBySeed {
		seedToModel[i+1] = name
	}

	pairings := bracketPairings(n)
	first := make([]BracketMatch, len(pairings))
	for i, p := range pairings {
		first[i] = BracketMatch{
			Position: i,
			SeedA:    p[0],
			ModelA:   seedToModel[p[0]],
			SeedB:    p[1],
			ModelB:   seedToModel[p[1]],
		}
	}

	rounds := [][]BracketMatch{first}
	numRounds := 0
	for m := n; m > 1; m /= 2 {
		numRounds++
	}
	cur := len(first)
	for r := 1; r < numRounds; r++ {
		cur /= 2
		rounds = append(rounds, make([]BracketMatch, cur))
	}
	return rounds, nil
}

// AdvanceBracketRound fills in the next round's matchups from the current
// round's resolved winners.
func AdvanceBracketRound(current []BracketMatch) []BracketMatch {
	next := make([]BracketMatch, len(current)/2)
	for i := 0; i < len(current); i += 2 {
		w1, w2 := current[i], current[i+1]
		next[i/2] = BracketMatch{
			Position: i / 2,
			SeedA:    w1.WinnerSeed,
			ModelA:   w1.Winner,
			SeedB:    w2.WinnerSeed,
			ModelB:   w2.Winner,
		}
	}
	return next
}

// DetermineWinner picks a winner from a completed match's scores and
// fidelity reports. Tiebreakers, in order: higher score, fewer violations,
// then the lower (better) seed number.
func DetermineWinner(scores map[string]float64, fidelity map[string]referee.FidelityReport, seedA, seedB int, modelA, modelB string) (string, int) {
	scoreA, scoreB := scores["player_a"], scores["player_b"]
	if scoreA != scoreB {
		if scoreA > scoreB {
			return modelA, seedA
		}
		return modelB, seedB
	}

	violA := fidelity["player_a"].TotalViolations
	violB := fidelity["player_b"].TotalViolations
	if violA != violB {
		if violA < violB {
			return modelA, seedA
		}
		return modelB, seedB
	}

	if seedA < seedB {
		return modelA, seedA
	}
	return modelB, seedB
}
