package orchestrator

import (
	"context"
	"strings"
	"time"

	"tourneyengine/server/action"
	"tourneyengine/server/adapter"
	"tourneyengine/server/game"
	"tourneyengine/server/referee"
	"tourneyengine/server/sanitize"
	"tourneyengine/server/telemetry"
)

// engineVersion tags every turn record with the tournament engine's own
// version, mirroring original_source's `llmtourney.__version__` stamp.
const engineVersion = "0.1.0"

// promptVersion tags a turn record with the prompt template revision in use
// for event's game kind, the same way original_source pins a static
// "holdem-v1"-style string per event rather than per match.
func promptVersion(event string) string {
	switch {
	case strings.HasPrefix(event, "holdem"):
		return "holdem-v1"
	case strings.HasPrefix(event, "liarsdice"):
		return "liarsdice-v1"
	default:
		return "unknown-v1"
	}
}

// handAndStreet pulls the optional hand/game number and street out of a
// game.Engine's state snapshot. Not every event has a street (e.g. Liar's
// Dice), in which case it is left blank.
func handAndStreet(snapshot any) (int, string) {
	m, ok := snapshot.(map[string]any)
	if !ok {
		return 0, ""
	}
	hand := 0
	if v, ok := m["hand_number"]; ok {
		hand, _ = v.(int)
	} else if v, ok := m["game_number"]; ok {
		hand, _ = v.(int)
	}
	street, _ := m["street"].(string)
	return hand, street
}

// Outcome is what attemptTurn decided happened to one seat's turn.
type Outcome string

const (
	Applied   Outcome = "APPLIED"
	Forfeited Outcome = "FORFEITED"
)

// SeatBinding is everything the match loop needs per seat: the adapter to
// query, the model identifiers recorded in telemetry, and the per-turn
// token/time budget.
type SeatBinding struct {
	Adapter         adapter.Adapter
	ModelID         string
	ModelVersion    string
	MaxOutputTokens int
	TimeoutSeconds  float64
}

// MatchOutcome is returned once a match reaches a terminal state.
type MatchOutcome struct {
	MatchID  string
	Scores   map[string]float64
	Fidelity map[string]referee.FidelityReport
	Ruling   string
}

// RunMatch drives one match to completion: it repeatedly asks engine whose
// turn it is, attempts that turn under the referee's watch, applies or
// forfeits, logs every attempt, and finalizes telemetry on every return
// path. A file-sink write failure finalizes the match with ruling
// "engine_error" and is returned as an error. Panics are not recovered; the
// caller's deferred logger.Close() writes a stub summary while one unwinds.
func RunMatch(ctx context.Context, matchID, event string, engine game.Engine, seedVal int64, bindings map[string]SeatBinding, playerModels map[string]string, logger *telemetry.Logger, refCfg referee.Config) (MatchOutcome, error) {
	engine.Reset(seedVal)
	ref := referee.New(refCfg)
	for _, seat := range engine.Seats() {
		ref.EnsureSeat(seat)
	}

	turnNumber := 0
	for !engine.IsTerminal() {
		select {
		case <-ctx.Done():
			return finalize(matchID, event, engine, ref, logger, playerModels, "cancelled")
		default:
		}

		ref.NewTurn()
		turnNumber++
		seat := engine.CurrentPlayer()
		binding, ok := bindings[seat]
		if !ok {
			return finalize(matchID, event, engine, ref, logger, playerModels, "engine_error")
		}
		prompt := engine.GetPrompt(seat)

		result := attemptTurn(ctx, seat, binding, engine, ref, prompt)
		snapshot := engine.GetStateSnapshot()
		handNumber, street := handAndStreet(snapshot)
		entry := telemetry.Entry{
			TurnNumber:        turnNumber,
			HandNumber:        handNumber,
			Street:            street,
			SeatID:            seat,
			ModelID:           binding.ModelID,
			ModelVersion:      binding.ModelVersion,
			Prompt:            prompt,
			RawOutput:         result.rawText,
			ReasoningOutput:   result.reasoningText,
			ParsedAction:      result.action,
			ParseSuccess:      result.parseSuccess,
			ValidationResult:  result.validationResult,
			Violation:         result.violation,
			Ruling:            string(result.ruling),
			StateSnapshot:     snapshot,
			InputTokens:       result.inputTokens,
			OutputTokens:      result.outputTokens,
			LatencyMS:         result.latencyMS,
			ShotClockMS:       int64(binding.TimeoutSeconds * 1000),
			ShotClockExceeded: result.shotClockExceeded,
			CumulativeStrikes: ref.GetStrikes(seat),
			StrikeLimit:       refCfg.Threshold(),
			EngineVersion:     engineVersion,
			PromptVersion:     promptVersion(event),
		}
		if err := logger.LogTurn(entry); err != nil {
			outcome, _ := finalize(matchID, event, engine, ref, logger, playerModels, "engine_error")
			return outcome, err
		}

		switch result.outcome {
		case Applied:
			engine.ApplyAction(seat, result.action)
		case Forfeited:
			engine.ForfeitTurn(seat)
		}
		if result.ruling == referee.EliminatePlayer {
			engine.EliminatePlayer(seat)
		}

		if ref.MatchForfeited() {
			break
		}
	}

	return finalize(matchID, event, engine, ref, logger, playerModels, "completed")
}

func finalize(matchID, event string, engine game.Engine, ref *referee.Referee, logger *telemetry.Logger, playerModels map[string]string, ruling string) (MatchOutcome, error) {
	scores := engine.GetScores()
	fidelity := ref.GetFidelityReport()
	if ref.MatchForfeited() && ruling == "completed" {
		ruling = "forfeited"
	}
	if err := logger.FinalizeMatch(scores, fidelity, ruling, map[string]any{
		"highlight_hands": engine.GetHighlightHands(),
		"player_models":   playerModels,
		"event":           event,
	}); err != nil {
		return MatchOutcome{}, err
	}
	return MatchOutcome{MatchID: matchID, Scores: scores, Fidelity: fidelity, Ruling: ruling}, nil
}

// turnResult carries everything attemptTurn learned about one turn, for
// both telemetry and the driving loop's apply/forfeit decision.
type turnResult struct {
	outcome           Outcome
	ruling            referee.Ruling
	action            map[string]any
	rawText           string
	reasoningText     string
	parseSuccess      bool
	validationResult  string
	violation         string
	inputTokens       int
	outputTokens      int
	latencyMS         int64
	shotClockExceeded bool
}

// attemptTurn implements the per-turn protocol: query, classify failures,
// sanitize and parse, validate, and retry at most once, all within a single
// shot-clock window shared by both attempts.
func attemptTurn(ctx context.Context, seat string, binding SeatBinding, engine game.Engine, ref *referee.Referee, prompt string) turnResult {
	shotCtx, cancel := context.WithTimeout(ctx, durationFromSeconds(binding.TimeoutSeconds))
	defer cancel()

	retried := false
	for {
		start := time.Now()
		resp, err := binding.Adapter.Query(shotCtx, []adapter.Message{{Role: "user", Content: prompt}}, binding.MaxOutputTokens, binding.TimeoutSeconds)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			kind, details := classifyAdapterError(err)
			ruling := ref.RecordViolation(seat, kind, details)
			res := turnResult{
				outcome:           Forfeited,
				ruling:            ruling,
				violation:         string(kind),
				latencyMS:         latency,
				shotClockExceeded: shotCtx.Err() != nil,
			}
			if ruling == referee.Retry && !retried && shotCtx.Err() == nil {
				ref.ConsumeRetry(seat)
				retried = true
				continue
			}
			return res
		}

		sanitized := sanitize.Sanitize(resp.RawText)
		injected := sanitize.DetectInjection(resp.RawText)
		schema := engine.GetActionSchema()
		parsed := action.Parse(sanitized, schema)

		if !parsed.Success {
			ruling := ref.RecordViolation(seat, referee.MalformedJSON, parsed.Error)
			res := turnResult{
				outcome:          Forfeited,
				ruling:           ruling,
				rawText:          resp.RawText,
				reasoningText:    resp.ReasoningText,
				parseSuccess:     false,
				validationResult: parsed.Error,
				violation:        string(referee.MalformedJSON),
				inputTokens:      resp.InputTokens,
				outputTokens:     resp.OutputTokens,
				latencyMS:        latency,
			}
			if ruling == referee.Retry && !retried && shotCtx.Err() == nil {
				ref.ConsumeRetry(seat)
				retried = true
				prompt = engine.GetRetryPrompt(seat, parsed.Error)
				continue
			}
			return res
		}

		validation := engine.ValidateAction(seat, parsed.Action)
		if !validation.Legal {
			ruling := ref.RecordViolation(seat, referee.IllegalMove, validation.Reason)
			res := turnResult{
				outcome:          Forfeited,
				ruling:           ruling,
				rawText:          resp.RawText,
				reasoningText:    resp.ReasoningText,
				action:           parsed.Action,
				parseSuccess:     true,
				validationResult: validation.Reason,
				violation:        string(referee.IllegalMove),
				inputTokens:      resp.InputTokens,
				outputTokens:     resp.OutputTokens,
				latencyMS:        latency,
			}
			if ruling == referee.Retry && !retried && shotCtx.Err() == nil {
				ref.ConsumeRetry(seat)
				retried = true
				prompt = engine.GetRetryPrompt(seat, validation.Reason)
				continue
			}
			return res
		}

		res := turnResult{
			outcome:          Applied,
			action:           parsed.Action,
			rawText:          resp.RawText,
			reasoningText:    resp.ReasoningText,
			parseSuccess:     true,
			validationResult: "legal",
			inputTokens:      resp.InputTokens,
			outputTokens:     resp.OutputTokens,
			latencyMS:        latency,
		}
		if injected {
			// A flagged injection still proceeds with the validated action;
			// RecordViolation's ruling is recorded for fidelity purposes only.
			_ = ref.RecordViolation(seat, referee.InjectionAttempt, "prompt-injection pattern detected in raw output")
			res.violation = string(referee.InjectionAttempt)
		}
		return res
	}
}

// classifyAdapterError maps an adapter failure onto the referee's violation
// vocabulary. A response that came back empty is EMPTY_RESPONSE; an
// explicit timeout is TIMEOUT; every other failure kind (rate limit, a
// non-timeout API error) is externally indistinguishable from an
// unresponsive agent at this layer and is grouped into TIMEOUT too.
func classifyAdapterError(err error) (referee.ViolationKind, string) {
	adapterErr, ok := err.(*adapter.Error)
	if !ok {
		return referee.Timeout, err.Error()
	}
	if adapterErr.Empty {
		return referee.EmptyResponse, adapterErr.Message
	}
	return referee.Timeout, adapterErr.Message
}

func durationFromSeconds(s float64) time.Duration {
	if s <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s * float64(time.Second))
}
