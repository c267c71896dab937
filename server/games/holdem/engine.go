// Package holdem adapts the teacher's heads-up Texas Hold'em hand primitive
// (tourneyengine/server/engine) into a game.Engine: a multi-hand match
// between two seats with persistent stacks, bust-out detection, and the
// prompt/schema surface a tournament match drives against.
package holdem

import (
	"fmt"
	"math/rand"
	"strings"

	"tourneyengine/server/engine"
	"tourneyengine/server/game"
)

const (
	seatA = "player_a"
	seatB = "player_b"
)

// Config is the event-level configuration for one holdem match.
type Config struct {
	HandsPerMatch int
	StartingStack int
	SmallBlind    int
	BigBlind      int
}

// Engine drives a fixed number of heads-up hands between seatA and seatB,
// rotating the dealer each hand and carrying stacks across hands.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	stacks map[string]int
	busted map[string]bool

	handNumber int
	dealerIsA  bool
	hand       *engine.Hand
	terminal   bool

	potTotals     []int
	highlightHands []string
}

// New constructs a holdem Engine for cfg. Reset must be called before use.
func New(cfg Config) *Engine {
	if cfg.HandsPerMatch <= 0 {
		cfg.HandsPerMatch = 20
	}
	if cfg.StartingStack <= 0 {
		cfg.StartingStack = 200
	}
	if cfg.SmallBlind <= 0 {
		cfg.SmallBlind = 1
	}
	if cfg.BigBlind <= 0 {
		cfg.BigBlind = 2 * cfg.SmallBlind
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Reset(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
	e.stacks = map[string]int{seatA: e.cfg.StartingStack, seatB: e.cfg.StartingStack}
	e.busted = map[string]bool{}
	e.handNumber = 0
	e.dealerIsA = true
	e.terminal = false
	e.potTotals = nil
	e.highlightHands = nil
	e.startNextHand()
}

func (e *Engine) startNextHand() {
	e.handNumber++
	if e.handNumber > e.cfg.HandsPerMatch {
		e.terminal = true
		return
	}
	deck := engine.NewDeck(e.rng.Int63())
	hcfg := engine.Config{SB: e.cfg.SmallBlind, BB: e.cfg.BigBlind, StartStack: e.cfg.StartingStack}
	// The underlying Hand always posts blinds against a fresh cfg.StartStack
	// per side; immediately overlay the match's carried-over stacks onto the
	// post-blind state so chips persist across hands instead of resetting
	// every deal. Committed/Pot are untouched since the blind amounts
	// themselves don't depend on stack size, except when a carried stack is
	// too short to cover its blind (see overlayCarriedStack).
	e.hand = engine.NewHand(fmt.Sprintf("hand-%d", e.handNumber), hcfg, deck)
	e.overlayCarriedStack(e.sbPlayer(), e.dealerSeat(), e.cfg.SmallBlind)
	e.overlayCarriedStack(e.bbPlayer(), e.otherSeat(e.dealerSeat()), e.cfg.BigBlind)
}

// overlayCarriedStack replaces a freshly-dealt player's remaining stack with
// the match-carried amount, net of the blind they just posted. If the
// carried stack can't cover the blind, the shortfall is clamped: the player
// goes all-in for whatever they actually have.
func (e *Engine) overlayCarriedStack(p *engine.Player, seat string, blind int) {
	carried := e.stackFor(seat)
	if carried < blind {
		e.hand.Pot -= blind - carried
		p.Committed = carried
		p.Stack = 0
		p.AllIn = true
		return
	}
	p.Stack = carried - blind
}

func (e *Engine) dealerSeat() string {
	if e.dealerIsA {
		return seatA
	}
	return seatB
}

func (e *Engine) otherSeat(seat string) string {
	if seat == seatA {
		return seatB
	}
	return seatA
}

func (e *Engine) stackFor(seat string) int { return e.stacks[seat] }

// seatOf converts the Hand's internal SB/BB role to a match seat, given the
// current hand's dealer (the dealer always posts the small blind
// heads-up).
func (e *Engine) seatOf(role engine.Seat) string {
	if role == engine.SB {
		return e.dealerSeat()
	}
	return e.otherSeat(e.dealerSeat())
}

func (e *Engine) roleOf(seat string) engine.Seat {
	if seat == e.dealerSeat() {
		return engine.SB
	}
	return engine.BB
}

func (e *Engine) sbPlayer() *engine.Player { return e.hand.SB }
func (e *Engine) bbPlayer() *engine.Player { return e.hand.BB }

func (e *Engine) CurrentPlayer() string {
	if e.hand == nil {
		return ""
	}
	return e.seatOf(e.hand.ToAct)
}

func (e *Engine) GetPrompt(seat string) string {
	h := e.hand
	role := e.roleOf(seat)
	var me, opp *engine.Player
	if role == engine.SB {
		me, opp = e.hand.SB, e.hand.BB
	} else {
		me, opp = e.hand.BB, e.hand.SB
	}

	holeStr := cardsString(me.Hole)
	boardStr := "none yet"
	if len(h.Board) > 0 {
		boardStr = cardsString(h.Board)
	}

	toCall := h.CurBet - me.Committed
	if toCall < 0 {
		toCall = 0
	}
	minRaiseTo := h.CurBet + h.MinRaise
	maxRaiseTo := me.Committed + me.Stack

	var b strings.Builder
	fmt.Fprintf(&b, "You are playing heads-up no-limit Texas Hold'em. You are seat %s.\n\n", seat)
	fmt.Fprintf(&b, "Match state:\n- Hand %d of %d\n- Street: %s\n- Pot: %d chips\n- Blinds: %d/%d\n",
		e.handNumber, e.cfg.HandsPerMatch, h.Street, h.Pot, e.cfg.SmallBlind, e.cfg.BigBlind)
	fmt.Fprintf(&b, "- Your stack: %d (committed %d)\n- Opponent stack: %d (committed %d)\n\n",
		me.Stack, me.Committed, opp.Stack, opp.Committed)
	fmt.Fprintf(&b, "Your hole cards: %s\nCommunity cards: %s\n\n", holeStr, boardStr)
	b.WriteString("Legal actions:\n- fold\n")
	if toCall == 0 {
		b.WriteString("- call (check, cost: 0 chips)\n")
	} else {
		fmt.Fprintf(&b, "- call (cost: %d chips)\n", toCall)
	}
	if !me.AllIn && !opp.AllIn {
		fmt.Fprintf(&b, "- raise (min to: %d, max to: %d chips)\n", minRaiseTo, maxRaiseTo)
	}
	b.WriteString("\nRespond with ONLY a JSON object: {\"reasoning\": \"<your thinking>\", \"action\": \"fold|call|raise\", \"amount\": <int, total chips committed if raising>}")
	return b.String()
}

func (e *Engine) GetRetryPrompt(seat, reason string) string {
	return fmt.Sprintf("Your last action was invalid: %s\n\n%s", reason, e.GetPrompt(seat))
}

func (e *Engine) GetActionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reasoning": map[string]any{"type": "string"},
			"action":    map[string]any{"type": "string", "enum": []any{"fold", "call", "raise"}},
			"amount":    map[string]any{"type": "integer"},
		},
		"required": []any{"action"},
	}
}

func (e *Engine) ValidateAction(seat string, action map[string]any) game.ValidationResult {
	if seat != e.CurrentPlayer() {
		return game.ValidationResult{Legal: false, Reason: "not your turn"}
	}
	actStr, _ := action["action"].(string)
	switch actStr {
	case "fold", "call":
		return game.ValidationResult{Legal: true}
	case "raise":
		role := e.roleOf(seat)
		var me *engine.Player
		if role == engine.SB {
			me = e.hand.SB
		} else {
			me = e.hand.BB
		}
		amountF, ok := action["amount"].(float64)
		if !ok {
			if amountI, ok2 := action["amount"].(int); ok2 {
				amountF = float64(amountI)
			} else {
				return game.ValidationResult{Legal: false, Reason: "raise requires an integer amount"}
			}
		}
		amount := int(amountF)
		minRaiseTo := e.hand.CurBet + e.hand.MinRaise
		maxRaiseTo := me.Committed + me.Stack
		if amount < minRaiseTo {
			return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("raise amount %d is below minimum %d", amount, minRaiseTo)}
		}
		if amount > maxRaiseTo {
			return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("raise amount %d exceeds your all-in maximum %d", amount, maxRaiseTo)}
		}
		return game.ValidationResult{Legal: true}
	default:
		return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("unknown action %q", actStr)}
	}
}

func (e *Engine) ApplyAction(seat string, action map[string]any) {
	actStr, _ := action["action"].(string)
	amount := 0
	switch v := action["amount"].(type) {
	case float64:
		amount = int(v)
	case int:
		amount = v
	}

	var kind engine.ActionKind
	switch actStr {
	case "fold":
		kind = engine.Fold
	case "call":
		kind = engine.Call
	case "raise":
		kind = engine.Raise
	}
	_ = e.hand.Apply(kind, amount)
	e.advance()
}

func (e *Engine) ForfeitTurn(seat string) {
	_ = e.hand.Apply(engine.Fold, 0)
	e.advance()
}

// EliminatePlayer ends the match immediately in the other seat's favor.
// Heads-up holdem has only two seats, so elimination is equivalent to an
// immediate match-ending forfeit rather than a mid-match seat removal.
func (e *Engine) EliminatePlayer(seat string) {
	e.busted[seat] = true
	e.stacks[seat] = 0
	e.stacks[e.otherSeat(seat)] = e.stackFor(seatA) + e.stackFor(seatB)
	e.terminal = true
}

func (e *Engine) advance() {
	h := e.hand
	if h.Done() {
		e.resolveHand()
		e.dealerIsA = !e.dealerIsA
		if !e.terminal {
			e.startNextHand()
		}
		return
	}
	if h.Street != "river" {
		h.NextStreet()
	}
}

func (e *Engine) resolveHand() {
	h := e.hand
	e.potTotals = append(e.potTotals, h.Pot)
	if h.Pot >= 4*e.cfg.BigBlind {
		e.highlightHands = append(e.highlightHands, h.ID)
	}

	winner := h.Showdown()
	sbSeat, bbSeat := e.seatOf(engine.SB), e.seatOf(engine.BB)
	switch winner {
	case engine.SB:
		e.stacks[sbSeat] = h.SB.Stack + h.Pot
		e.stacks[bbSeat] = h.BB.Stack
	case engine.BB:
		e.stacks[sbSeat] = h.SB.Stack
		e.stacks[bbSeat] = h.BB.Stack + h.Pot
	default: // tie: split the pot
		half := h.Pot / 2
		e.stacks[sbSeat] = h.SB.Stack + half
		e.stacks[bbSeat] = h.BB.Stack + (h.Pot - half)
	}

	for _, seat := range []string{seatA, seatB} {
		if e.stacks[seat] <= 0 {
			e.busted[seat] = true
			e.terminal = true
		}
	}
	if e.handNumber >= e.cfg.HandsPerMatch {
		e.terminal = true
	}
}

func (e *Engine) IsTerminal() bool { return e.terminal }

func (e *Engine) GetScores() map[string]float64 {
	return map[string]float64{
		seatA: float64(e.stacks[seatA]),
		seatB: float64(e.stacks[seatB]),
	}
}

func (e *Engine) GetStateSnapshot() any {
	h := e.hand
	snap := map[string]any{
		"hand_number": e.handNumber,
		"stacks":      e.stacks,
	}
	if h != nil {
		snap["street"] = h.Street
		snap["pot"] = h.Pot
		snap["board"] = cardsString(h.Board)
	}
	return snap
}

func (e *Engine) GetHighlightHands() []string { return e.highlightHands }

func (e *Engine) Seats() []string { return []string{seatA, seatB} }

func cardsString(cards []engine.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

var _ game.Engine = (*Engine)(nil)
