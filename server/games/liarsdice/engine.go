// Package liarsdice implements an N-player Liar's Dice game.Engine: hidden
// dice under a cup, escalating bids on the total count of a face value
// across all cups, and a "liar" challenge that costs the loser a die. It is
// the reference multi-seat engine, exercising elimination and the referee's
// seat-count-scaled match-forfeit threshold where the heads-up holdem
// engine cannot.
package liarsdice

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"tourneyengine/server/game"
)

// Mode controls what happens to the loser (and, in redistribution, the
// winner) of a challenge.
type Mode string

const (
	Attrition      Mode = "attrition"
	Redistribution Mode = "redistribution"
)

var faceNames = map[int]string{1: "ones", 2: "twos", 3: "threes", 4: "fours", 5: "fives", 6: "sixes"}

// Config is the event-level configuration for one liarsdice match.
type Config struct {
	GamesPerMatch int
	NumPlayers    int
	StartingDice  int
	Mode          Mode
}

type bid struct {
	quantity int
	face     int
	bidder   string
}

type bidHistoryEntry struct {
	player      string
	quantity    int
	face        int
	actualCount int
	isBluff     bool
}

type challengeResult struct {
	challenger    string
	bidder        string
	bidQuantity   int
	bidFace       int
	actualCount   int
	bidWasCorrect bool
	loser         string
	winner        string
	dieGainedBy   string
	eliminated    bool
}

// Engine drives a fixed number of games between cfg.NumPlayers seats.
type Engine struct {
	cfg Config
	rng *rand.Rand

	seats []string

	gameNumber  int
	terminal    bool
	matchScores map[string]float64

	diceCounts map[string]int
	dice       map[string][]int
	eliminated []string
	eliminatedSet map[string]bool

	roundNumber  int
	turnNumber   int
	currentBid   *bid
	bidHistory   []bidHistoryEntry
	turnIdx      int
	wildsActive  bool
	lastChallenge *challengeResult

	highlightTurns []string
}

// New constructs a liarsdice Engine for cfg. Reset must be called before use.
func New(cfg Config) *Engine {
	if cfg.GamesPerMatch <= 0 {
		cfg.GamesPerMatch = 1
	}
	if cfg.NumPlayers <= 0 {
		cfg.NumPlayers = 4
	}
	if cfg.NumPlayers < 2 {
		cfg.NumPlayers = 2
	}
	if cfg.NumPlayers > 10 {
		cfg.NumPlayers = 10
	}
	if cfg.StartingDice <= 0 {
		cfg.StartingDice = 5
	}
	if cfg.Mode != Redistribution {
		cfg.Mode = Attrition
	}
	seats := make([]string, cfg.NumPlayers)
	for i := range seats {
		seats[i] = fmt.Sprintf("player_%d", i+1)
	}
	return &Engine{cfg: cfg, seats: seats}
}

func (e *Engine) Reset(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
	e.gameNumber = 0
	e.terminal = false
	e.matchScores = map[string]float64{}
	for _, s := range e.seats {
		e.matchScores[s] = 0
	}
	e.startNewGame()
}

func (e *Engine) startNewGame() {
	e.gameNumber++
	if e.gameNumber > e.cfg.GamesPerMatch {
		e.terminal = true
		return
	}
	e.diceCounts = map[string]int{}
	e.dice = map[string][]int{}
	for _, s := range e.seats {
		e.diceCounts[s] = e.cfg.StartingDice
	}
	e.eliminated = nil
	e.eliminatedSet = map[string]bool{}
	e.roundNumber = 0
	e.turnNumber = 0
	e.lastChallenge = nil
	e.startNewRound(0)
}

func (e *Engine) startNewRound(startingIdx int) {
	e.roundNumber++
	e.currentBid = nil
	e.bidHistory = nil
	e.wildsActive = true

	for _, s := range e.seats {
		if e.eliminatedSet[s] {
			e.dice[s] = nil
			continue
		}
		rolled := make([]int, e.diceCounts[s])
		for i := range rolled {
			rolled[i] = e.rng.Intn(6) + 1
		}
		e.dice[s] = rolled
	}

	e.turnIdx = startingIdx
	e.advanceToActivePlayer()
}

func (e *Engine) advanceToActivePlayer() {
	for i := 0; i < len(e.seats); i++ {
		if !e.eliminatedSet[e.seats[e.turnIdx]] {
			return
		}
		e.turnIdx = (e.turnIdx + 1) % len(e.seats)
	}
}

func (e *Engine) advanceTurn() {
	for i := 0; i < len(e.seats); i++ {
		e.turnIdx = (e.turnIdx + 1) % len(e.seats)
		if !e.eliminatedSet[e.seats[e.turnIdx]] {
			return
		}
	}
}

func (e *Engine) activePlayers() []string {
	active := make([]string, 0, len(e.seats))
	for _, s := range e.seats {
		if !e.eliminatedSet[s] {
			active = append(active, s)
		}
	}
	return active
}

func (e *Engine) totalDice() int {
	total := 0
	for _, s := range e.activePlayers() {
		total += e.diceCounts[s]
	}
	return total
}

func (e *Engine) CurrentPlayer() string {
	if e.eliminatedSet[e.seats[e.turnIdx]] {
		e.advanceToActivePlayer()
	}
	return e.seats[e.turnIdx]
}

func (e *Engine) GetPrompt(seat string) string {
	myDice := e.dice[seat]
	active := e.activePlayers()
	total := e.totalDice()

	var b strings.Builder
	fmt.Fprintf(&b, "You are playing Liar's Dice with %d players.\nYou are %s.\n\n", len(e.seats), seat)
	if e.cfg.GamesPerMatch > 1 {
		fmt.Fprintf(&b, "Game %d of %d.\n", e.gameNumber, e.cfg.GamesPerMatch)
		b.WriteString("Match scores: ")
		for i, s := range e.seats {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %.0f", s, e.matchScores[s])
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Round %d\nYour dice: %v\nTotal dice in play: %d\n\n", e.roundNumber, myDice, total)

	b.WriteString("Dice counts:\n")
	for _, s := range e.seats {
		switch {
		case e.eliminatedSet[s]:
			fmt.Fprintf(&b, "  %s: ELIMINATED\n", s)
		case s == seat:
			fmt.Fprintf(&b, "  %s: %d dice (you)\n", s, e.diceCounts[s])
		default:
			fmt.Fprintf(&b, "  %s: %d dice\n", s, e.diceCounts[s])
		}
	}
	b.WriteString("\n")

	if e.wildsActive {
		b.WriteString("WILD ONES: dice showing 1 are wild and count toward any face value.\n\n")
	} else {
		b.WriteString("WILDS OFF: the opening bid was on 1s, so wilds are disabled this round.\n\n")
	}

	if e.currentBid == nil {
		fmt.Fprintf(&b, "No bid yet this round, you must open with a bid.\n\n")
		fmt.Fprintf(&b, "Quantity cannot exceed %d (total dice in play).\n\n", total)
		b.WriteString(`Example: {"action": "bid", "quantity": 3, "face": 4, "reasoning": "..."}` + "\n")
	} else {
		cur := e.currentBid
		fmt.Fprintf(&b, "Current bid: %d %s (by %s)\n", cur.quantity, faceNames[cur.face], cur.bidder)
		prob := bidProbability(cur.quantity, cur.face, myDice, total, e.wildsActive)
		fmt.Fprintf(&b, "Probability the current bid is true (from your perspective): %.0f%%\n\n", prob*100)

		if len(e.bidHistory) > 0 {
			b.WriteString("Bid history this round:\n")
			for _, h := range e.bidHistory {
				fmt.Fprintf(&b, "  %s: %d %s\n", h.player, h.quantity, faceNames[h.face])
			}
			b.WriteString("\n")
		}

		b.WriteString("You may either RAISE the bid or CHALLENGE by calling \"liar\".\n\n")
		if cur.face == 1 {
			fmt.Fprintf(&b, "  - Stay on 1s: quantity must be at least %d\n", cur.quantity+1)
			fmt.Fprintf(&b, "  - Switch to 2-6: quantity must be at least %d\n", cur.quantity*2+1)
		} else {
			fmt.Fprintf(&b, "  - Same face (%d): quantity must be at least %d\n", cur.face, cur.quantity+1)
			if cur.face < 6 {
				fmt.Fprintf(&b, "  - Higher face (%d-6): quantity must be at least %d\n", cur.face+1, cur.quantity)
			}
			fmt.Fprintf(&b, "  - Switch to 1s: quantity must be at least %d\n", int(math.Ceil(float64(cur.quantity)/2)))
		}
		fmt.Fprintf(&b, "  - Maximum quantity: %d\n\n", total)
		b.WriteString(`To CHALLENGE: {"action": "liar", "reasoning": "..."}` + "\n")
		if e.cfg.Mode == Redistribution {
			b.WriteString("If the bid is wrong, the bidder loses a die and you gain one.\nIf the bid is correct, you lose a die and the bidder gains one.\n")
		} else {
			b.WriteString("If the bid is wrong, the bidder loses a die.\nIf the bid is correct, you lose a die.\n")
		}
	}
	b.WriteString("\n")

	if len(active) >= 6 {
		b.WriteString("In a large game, conservative play allows others to accumulate advantages. Consider when aggression is warranted.\n\n")
	}

	if len(e.eliminated) > 0 {
		b.WriteString("Eliminated players:\n")
		for i, s := range e.eliminated {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with ONLY a JSON object. Example: {"action": "bid", "quantity": 3, "face": 4, "reasoning": "..."} or {"action": "liar", "reasoning": "..."}`)
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
			"action":    map[string]any{"type": "string", "enum": []any{"bid", "liar"}},
			"quantity":  map[string]any{"type": "integer"},
			"face":      map[string]any{"type": "integer", "minimum": 1, "maximum": 6},
		},
		"required": []any{"action"},
	}
}

func (e *Engine) ValidateAction(seat string, action map[string]any) game.ValidationResult {
	if seat != e.CurrentPlayer() {
		return game.ValidationResult{Legal: false, Reason: "not your turn"}
	}
	actStr, _ := action["action"].(string)
	total := e.totalDice()

	switch actStr {
	case "bid":
		quantity, qOK := asInt(action["quantity"])
		face, fOK := asInt(action["face"])
		if !qOK || quantity < 1 {
			return game.ValidationResult{Legal: false, Reason: "quantity must be a positive integer"}
		}
		if !fOK || face < 1 || face > 6 {
			return game.ValidationResult{Legal: false, Reason: "face must be an integer from 1 to 6"}
		}
		if quantity > total {
			return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("quantity %d exceeds total dice in play (%d)", quantity, total)}
		}
		if e.currentBid != nil && !isValidRaise(*e.currentBid, quantity, face) {
			cur := e.currentBid
			return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("bid of %d %s does not raise the current bid of %d %s", quantity, faceNames[face], cur.quantity, faceNames[cur.face])}
		}
		return game.ValidationResult{Legal: true}
	case "liar":
		if e.currentBid == nil {
			return game.ValidationResult{Legal: false, Reason: "cannot challenge when no bid exists, you must open with a bid"}
		}
		return game.ValidationResult{Legal: true}
	default:
		return game.ValidationResult{Legal: false, Reason: fmt.Sprintf("unknown action %q, expected bid or liar", actStr)}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), n == math.Trunc(n)
	default:
		return 0, false
	}
}

func isValidRaise(cur bid, newQuantity, newFace int) bool {
	switch {
	case cur.face == 1 && newFace == 1:
		return newQuantity > cur.quantity
	case cur.face == 1 && newFace != 1:
		return newQuantity >= cur.quantity*2+1
	case cur.face != 1 && newFace == 1:
		return newQuantity >= int(math.Ceil(float64(cur.quantity)/2))
	case newFace > cur.face:
		return newQuantity >= cur.quantity
	default:
		return newQuantity > cur.quantity
	}
}

func (e *Engine) ApplyAction(seat string, action map[string]any) {
	actStr, _ := action["action"].(string)
	if actStr == "bid" {
		quantity, _ := asInt(action["quantity"])
		face, _ := asInt(action["face"])
		e.doBid(seat, quantity, face)
		return
	}
	e.doChallenge(seat)
}

// ForfeitTurn mirrors the most conservative legal move: open with the
// smallest possible bid, or raise by the minimum, or challenge if no raise
// is left.
func (e *Engine) ForfeitTurn(seat string) {
	if e.currentBid == nil {
		e.doBid(seat, 1, 2)
		return
	}
	cur := e.currentBid
	newQ, newF := cur.quantity+1, cur.face
	if newQ > e.totalDice() {
		e.doChallenge(seat)
		return
	}
	if isValidRaise(*cur, newQ, newF) {
		e.doBid(seat, newQ, newF)
		return
	}
	e.doChallenge(seat)
}

func (e *Engine) countFace(face int) int {
	count := 0
	for _, s := range e.activePlayers() {
		for _, d := range e.dice[s] {
			if d == face {
				count++
			} else if d == 1 && e.wildsActive && face != 1 {
				count++
			}
		}
	}
	return count
}

func (e *Engine) doBid(seat string, quantity, face int) {
	e.lastChallenge = nil
	e.turnNumber++

	if e.currentBid == nil && face == 1 {
		e.wildsActive = false
	}

	actual := e.countFace(face)
	e.currentBid = &bid{quantity: quantity, face: face, bidder: seat}
	e.bidHistory = append(e.bidHistory, bidHistoryEntry{
		player: seat, quantity: quantity, face: face,
		actualCount: actual, isBluff: actual < quantity,
	})

	e.advanceTurn()
}

func (e *Engine) doChallenge(challenger string) {
	e.turnNumber++
	b := e.currentBid
	bidder := b.bidder
	actual := e.countFace(b.face)
	bidWasCorrect := actual >= b.quantity

	var loser, winner string
	if bidWasCorrect {
		loser, winner = challenger, bidder
	} else {
		loser, winner = bidder, challenger
	}

	e.diceCounts[loser]--
	dieGainedBy := ""
	if e.cfg.Mode == Redistribution {
		e.diceCounts[winner]++
		dieGainedBy = winner
	}

	eliminated := false
	if e.diceCounts[loser] <= 0 {
		e.diceCounts[loser] = 0
		e.eliminatedSet[loser] = true
		e.eliminated = append(e.eliminated, loser)
		eliminated = true
	}

	e.lastChallenge = &challengeResult{
		challenger: challenger, bidder: bidder,
		bidQuantity: b.quantity, bidFace: b.face,
		actualCount: actual, bidWasCorrect: bidWasCorrect,
		loser: loser, winner: winner, dieGainedBy: dieGainedBy,
		eliminated: eliminated,
	}
	e.highlightTurns = append(e.highlightTurns, fmt.Sprintf("turn-%d", e.turnNumber))

	if len(e.activePlayers()) <= 1 {
		e.finishGame()
		return
	}

	loserIdx := indexOf(e.seats, loser)
	e.turnIdx = loserIdx
	if e.eliminatedSet[loser] {
		e.advanceTurn()
	}
	e.startNewRound(e.turnIdx)
}

func indexOf(seats []string, seat string) int {
	for i, s := range seats {
		if s == seat {
			return i
		}
	}
	return 0
}

func (e *Engine) finishGame() {
	active := e.activePlayers()
	finalOrder := append(append([]string{}, e.eliminated...), active...)
	for i, s := range finalOrder {
		e.matchScores[s] += float64(i + 1)
	}
	e.startNewGame()
}

// EliminatePlayer removes seat from play, as invoked by the tournament core
// for stuck-loop or repeated-failure elimination.
func (e *Engine) EliminatePlayer(seat string) {
	if e.eliminatedSet[seat] {
		return
	}
	e.eliminatedSet[seat] = true
	e.eliminated = append(e.eliminated, seat)
	e.diceCounts[seat] = 0
	e.dice[seat] = nil
	if len(e.activePlayers()) <= 1 {
		e.finishGame()
	}
}

func (e *Engine) IsTerminal() bool { return e.terminal }

func (e *Engine) GetScores() map[string]float64 {
	out := make(map[string]float64, len(e.matchScores))
	for k, v := range e.matchScores {
		out[k] = v
	}
	return out
}

func (e *Engine) GetStateSnapshot() any {
	diceCounts := make(map[string]int, len(e.seats))
	for _, s := range e.seats {
		diceCounts[s] = e.diceCounts[s]
	}
	snap := map[string]any{
		"mode":           string(e.cfg.Mode),
		"game_number":    e.gameNumber,
		"games_per_match": e.cfg.GamesPerMatch,
		"round":          e.roundNumber,
		"turn_number":    e.turnNumber,
		"total_dice":     e.totalDice(),
		"dice_counts":    diceCounts,
		"wilds_active":   e.wildsActive,
		"eliminated":     append([]string{}, e.eliminated...),
		"terminal":       e.terminal,
		"match_scores":   e.GetScores(),
	}
	if e.currentBid != nil {
		snap["current_bid"] = map[string]any{
			"quantity": e.currentBid.quantity,
			"face":     e.currentBid.face,
			"bidder":   e.currentBid.bidder,
		}
	}
	if e.lastChallenge != nil {
		snap["challenge_result"] = map[string]any{
			"challenger":      e.lastChallenge.challenger,
			"bidder":          e.lastChallenge.bidder,
			"actual_count":    e.lastChallenge.actualCount,
			"bid_was_correct": e.lastChallenge.bidWasCorrect,
			"loser":           e.lastChallenge.loser,
			"winner":          e.lastChallenge.winner,
			"eliminated":      e.lastChallenge.eliminated,
		}
	}
	return snap
}

func (e *Engine) GetHighlightHands() []string { return append([]string{}, e.highlightTurns...) }

func (e *Engine) Seats() []string {
	return append([]string{}, e.seats...)
}

// bidProbability estimates P(the bid is true) from one player's perspective
// using a binomial model over the unknown dice, accounting for wilds.
func bidProbability(quantity, face int, ownDice []int, totalDice int, wildsActive bool) float64 {
	known := 0
	for _, d := range ownDice {
		if d == face {
			known++
		} else if d == 1 && wildsActive && face != 1 {
			known++
		}
	}
	needed := quantity - known
	if needed <= 0 {
		return 1.0
	}
	unknown := totalDice - len(ownDice)
	if unknown <= 0 {
		return 0.0
	}
	p := 1.0 / 6.0
	if wildsActive && face != 1 {
		p = 1.0 / 3.0
	}
	probLess := 0.0
	for k := 0; k < needed; k++ {
		probLess += binomPMF(k, unknown, p)
	}
	return 1.0 - probLess
}

func binomPMF(k, n int, p float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	return binomCoeff(n, k) * math.Pow(p, float64(k)) * math.Pow(1-p, float64(n-k))
}

func binomCoeff(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

var _ game.Engine = (*Engine)(nil)
