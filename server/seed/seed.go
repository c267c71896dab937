// Package seed derives deterministic, isolated random streams for matches.
package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Manager derives match seeds from a single 64-bit tournament seed. It holds
// no mutable state and is safe for concurrent use.
type Manager struct {
	key [8]byte
}

// NewManager keys the manager on the tournament seed, encoded as 8
// big-endian bytes.
func NewManager(tournamentSeed int64) *Manager {
	m := &Manager{}
	binary.BigEndian.PutUint64(m.key[:], uint64(tournamentSeed))
	return m
}

// MatchSeed derives the 64-bit seed for one (event, round, match) triple.
// HMAC-SHA-256 keyed on the tournament seed over "{event}:{round}:{match}",
// truncated to its leading 8 bytes and read big-endian as a signed int64.
// The mapping is pure: the same triple always yields the same seed, and
// unrelated triples are unaffected by schedule edits elsewhere.
func (m *Manager) MatchSeed(event string, round, match int) int64 {
	mac := hmac.New(sha256.New, m.key[:])
	fmt.Fprintf(mac, "%s:%d:%d", event, round, match)
	digest := mac.Sum(nil)
	return int64(binary.BigEndian.Uint64(digest[:8]))
}

// RNG returns a pseudorandom generator isolated from any process-global
// source. Two calls with the same matchSeed produce identical sequences;
// the returned generator shares no state with math/rand's default source
// or with any other match's generator.
func RNG(matchSeed int64) *rand.Rand {
	return rand.New(rand.NewSource(matchSeed))
}

// MatchRNG is a convenience wrapper composing MatchSeed and RNG.
func (m *Manager) MatchRNG(event string, round, match int) *rand.Rand {
	return RNG(m.MatchSeed(event, round, match))
}
