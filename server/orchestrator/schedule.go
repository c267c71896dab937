// Package orchestrator schedules matches and drives the per-turn match
// loop, composing the seed, sanitize, action, adapter, referee, and
// telemetry packages.
package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"tourneyengine/server/config"
	"tourneyengine/server/seed"
)

// MatchDescriptor is one fully-resolved entry in the realized schedule: an
// event, a round/match index pair, a derived seed, and the seats bound to
// agent names. It is produced eagerly for the whole tournament so the
// seed-isolation invariant is inspectable before any match runs.
type MatchDescriptor struct {
	MatchID string
	Event   string
	Round   int
	Index   int
	Seed    int64
	// Seats maps a seat identifier (e.g. "player_a") to the agent name
	// bound to it for this match.
	Seats map[string]string
}

// BuildSchedule realizes the full match list for cfg up-front as a single
// round-robin pass: every agent is paired against every other agent once
// per event. It does not read cfg.Format, so a "bracket" or explicit-list
// format still yields this round-robin list; bracket rounds are laid out
// separately by BuildBracketRounds and AdvanceBracketRound.
func BuildSchedule(cfg config.TournamentConfig, mgr *seed.Manager) ([]MatchDescriptor, error) {
	var names []string
	for name := range cfg.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) < 2 {
		return nil, fmt.Errorf("schedule requires at least two models, got %d", len(names))
	}

	var eventNames []string
	for name := range cfg.Events {
		eventNames = append(eventNames, name)
	}
	sort.Strings(eventNames)

	var schedule []MatchDescriptor
	for _, eventName := range eventNames {
		pairs := roundRobinPairs(names)
		for i, pair := range pairs {
			round, index := 1, i
			d := MatchDescriptor{
				Event: eventName,
				Round: round,
				Index: index,
				Seed:  mgr.MatchSeed(eventName, round, index),
				Seats: map[string]string{
					"player_a": pair[0],
					"player_b": pair[1],
				},
			}
			d.MatchID = matchID(eventName, pair[0], pair[1], round, index)
			schedule = append(schedule, d)
		}
	}
	return schedule, nil
}

// roundRobinPairs enumerates every unordered pair of names exactly once, in
// a stable order determined by the input slice's order (the caller owns
// making that order deterministic, e.g. by sorting names before calling).
func roundRobinPairs(names []string) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pairs = append(pairs, [2]string{names[i], names[j]})
		}
	}
	return pairs
}

// matchID derives a stable identifier from event+participants+round so that
// two runs of the same tournament config produce byte-identical match IDs
// (and thus identical <match_id>.log filenames and match-summary records).
// The short hash suffix disambiguates round/index without reintroducing any
// non-deterministic input.
func matchID(event, a, b string, round, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", event, a, b, round, index)))
	return fmt.Sprintf("%s-%s-vs-%s-%s", event, a, b, hex.EncodeToString(sum[:])[:8])
}
