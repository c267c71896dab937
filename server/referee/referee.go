// Package referee tracks per-match violations and rules on misbehavior,
// isolating that policy from any particular game's rules.
package referee

// ViolationKind enumerates the fault categories a turn attempt can produce.
type ViolationKind string

const (
	MalformedJSON    ViolationKind = "malformed_json"
	IllegalMove      ViolationKind = "illegal_move"
	Timeout          ViolationKind = "timeout"
	EmptyResponse    ViolationKind = "empty_response"
	InjectionAttempt ViolationKind = "injection_attempt"
)

// Severity returns the fixed severity weight for a violation kind.
func Severity(kind ViolationKind) int {
	switch kind {
	case IllegalMove:
		return 1
	case MalformedJSON, Timeout, EmptyResponse:
		return 2
	case InjectionAttempt:
		return 3
	default:
		return 0
	}
}

// Ruling is the referee's decision after recording a violation.
type Ruling string

const (
	Retry           Ruling = "RETRY"
	ForfeitTurn     Ruling = "FORFEIT_TURN"
	ForfeitMatch    Ruling = "FORFEIT_MATCH"
	EliminatePlayer Ruling = "ELIMINATE_PLAYER"
)

// Violation is one recorded fault, in the order it occurred.
type Violation struct {
	Seat     string
	Kind     ViolationKind
	Severity int
	Details  string
}

// FidelityReport is the per-seat aggregation emitted at match end.
type FidelityReport struct {
	TotalViolations    int            `json:"total_violations"`
	ByKind             map[string]int `json:"by_kind"`
	TotalSeverity      int            `json:"total_severity"`
	RetriesUsed        int            `json:"retries_used"`
	TurnForfeits       int            `json:"turn_forfeits"`
	TriggeredMatchForfeit bool        `json:"triggered_match_forfeit"`
}

func newFidelityReport() FidelityReport {
	return FidelityReport{ByKind: map[string]int{
		string(MalformedJSON):    0,
		string(IllegalMove):      0,
		string(Timeout):          0,
		string(EmptyResponse):    0,
		string(InjectionAttempt): 0,
	}}
}

// seatState is the per-seat bookkeeping the referee maintains across a
// match's lifetime.
type seatState struct {
	violations     []Violation
	turnViolations int  // reset at new_turn
	retryConsumed  bool // reset at new_turn
	turnForfeits   int
	retriesUsed    int
	last3          []Violation // rolling record for stuck-loop detection
}

// Config carries the escalation policy a Referee enforces. SeatCount drives
// the match-forfeit threshold scaling when ScaleBySeats is set; StrikeKinds
// names which violation kinds count toward the cumulative match-forfeit
// strike count. TurnForfeitThreshold governs how many violations within one
// turn are tolerated before FORFEIT_TURN: 0 selects the legacy one-retry
// behavior (retry on the first violation, forfeit on the second);
// TurnForfeitThreshold of N tolerates N-1 violations before forfeiting, so 1
// means no retry at all.
type Config struct {
	SeatCount            int
	BaseThreshold        int // default 3
	StrikeKinds          []ViolationKind
	TurnForfeitThreshold int
	ScaleBySeats         bool
}

// DefaultConfig mirrors spec defaults: base threshold 3, strike set
// {timeout, empty_response}, injection_attempt excluded by default, legacy
// one-retry-per-turn behavior, and seat-count scaling enabled.
func DefaultConfig(seatCount int) Config {
	return Config{
		SeatCount:    seatCount,
		BaseThreshold: 3,
		StrikeKinds:   []ViolationKind{Timeout, EmptyResponse},
		ScaleBySeats:  true,
	}
}

// Threshold returns the match-forfeit threshold: BaseThreshold, plus
// max(0, seatCount-6) when ScaleBySeats is set, i.e. +1 for 7 players, +2
// for 8, +3 for 9.
func (c Config) Threshold() int {
	if !c.ScaleBySeats {
		return c.BaseThreshold
	}
	extra := c.SeatCount - 6
	if extra < 0 {
		extra = 0
	}
	return c.BaseThreshold + extra
}

// allowRetry reports whether turnViolations (the count after the current
// violation was recorded) still falls within the retry allowance.
func (c Config) allowRetry(turnViolations int) bool {
	if c.TurnForfeitThreshold > 0 {
		return turnViolations <= c.TurnForfeitThreshold-1
	}
	return turnViolations <= 1
}

func (c Config) isStrike(kind ViolationKind) bool {
	for _, k := range c.StrikeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Referee is owned by exactly one match-driving routine for the lifetime of
// one match; its counters are never shared across matches.
type Referee struct {
	cfg              Config
	seats            map[string]*seatState
	matchForfeited   bool
	matchForfeitedBy string
}

// New constructs a fresh Referee for one match.
func New(cfg Config) *Referee {
	return &Referee{cfg: cfg, seats: map[string]*seatState{}}
}

func (r *Referee) seat(id string) *seatState {
	s, ok := r.seats[id]
	if !ok {
		s = &seatState{}
		r.seats[id] = s
	}
	return s
}

// NewTurn resets per-turn state for every seat already seen. Seats are
// created lazily on first reference, so calling NewTurn before any
// violation is harmless.
func (r *Referee) NewTurn() {
	for _, s := range r.seats {
		s.turnViolations = 0
		s.retryConsumed = false
	}
}

// MatchForfeited reports whether the match has already been terminated by
// referee ruling.
func (r *Referee) MatchForfeited() bool { return r.matchForfeited }

// MatchForfeitedBy returns the seat responsible for the match forfeit, if
// any.
func (r *Referee) MatchForfeitedBy() string { return r.matchForfeitedBy }

// ShouldRetry reports whether seat may still retry within the current turn.
func (r *Referee) ShouldRetry(seatID string) bool {
	s := r.seat(seatID)
	return !s.retryConsumed
}

// ConsumeRetry marks the seat's retry as used for the current turn. Callers
// must call this before re-querying the adapter.
func (r *Referee) ConsumeRetry(seatID string) {
	s := r.seat(seatID)
	s.retryConsumed = true
	s.retriesUsed++
}

// GetStrikes returns the seat's cumulative turn-forfeit count.
func (r *Referee) GetStrikes(seatID string) int {
	return r.seat(seatID).turnForfeits
}

// RecordViolation appends a violation and returns the referee's ruling.
// Ruling is RETRY while the turn's violation count is within the retry
// allowance (see Config.TurnForfeitThreshold) and the retry has not already
// been consumed, FORFEIT_TURN otherwise. A FORFEIT_TURN additionally
// escalates to ELIMINATE_PLAYER (3+ seats) or FORFEIT_MATCH (2 seats) once
// the seat's cumulative turn-forfeit count reaches the scaled threshold,
// but only for violation kinds in the configured strike set. Independently
// of kind and threshold, three consecutive identical violations (same kind
// and details) escalate the same way at once.
func (r *Referee) RecordViolation(seatID string, kind ViolationKind, details string) Ruling {
	s := r.seat(seatID)
	v := Violation{Seat: seatID, Kind: kind, Severity: Severity(kind), Details: details}
	s.violations = append(s.violations, v)
	s.turnViolations++

	s.last3 = append(s.last3, v)
	if len(s.last3) > 3 {
		s.last3 = s.last3[len(s.last3)-3:]
	}

	if r.stuckLoop(s) {
		return r.escalate(seatID, s)
	}

	if r.cfg.allowRetry(s.turnViolations) && !s.retryConsumed {
		return Retry
	}

	return r.forfeitTurn(seatID, s, kind)
}

// stuckLoop reports whether the seat's last three violations are identical
// in both kind and details, a short-circuit independent of the ordinary
// threshold.
func (r *Referee) stuckLoop(s *seatState) bool {
	if len(s.last3) < 3 {
		return false
	}
	first := s.last3[0]
	for _, v := range s.last3[1:] {
		if v.Kind != first.Kind || v.Details != first.Details {
			return false
		}
	}
	return true
}

func (r *Referee) forfeitTurn(seatID string, s *seatState, kind ViolationKind) Ruling {
	s.turnForfeits++
	if r.cfg.isStrike(kind) && s.turnForfeits >= r.cfg.Threshold() {
		return r.escalate(seatID, s)
	}
	return ForfeitTurn
}

func (r *Referee) escalate(seatID string, s *seatState) Ruling {
	r.matchForfeited = true
	r.matchForfeitedBy = seatID
	if r.cfg.SeatCount > 2 {
		return EliminatePlayer
	}
	return ForfeitMatch
}

// GetFidelityReport returns a FidelityReport for every seat the referee has
// ever seen.
func (r *Referee) GetFidelityReport() map[string]FidelityReport {
	out := map[string]FidelityReport{}
	for id, s := range r.seats {
		report := newFidelityReport()
		for _, v := range s.violations {
			report.TotalViolations++
			report.ByKind[string(v.Kind)]++
			report.TotalSeverity += v.Severity
		}
		report.RetriesUsed = s.retriesUsed
		report.TurnForfeits = s.turnForfeits
		report.TriggeredMatchForfeit = r.matchForfeitedBy == id
		out[id] = report
	}
	return out
}

// EnsureSeat guarantees a (possibly empty) fidelity report entry exists for
// seatID, so clean seats still appear in the final report.
func (r *Referee) EnsureSeat(seatID string) {
	r.seat(seatID)
}
