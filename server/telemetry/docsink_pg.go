package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"tourneyengine/server/referee"
	"tourneyengine/server/store"
)

// PGSink is the Postgres-backed asynchronous document sink. It mirrors the
// MongoDB-flavored sink the system was originally distilled from, but uses
// JSONB columns and ON CONFLICT upserts in place of collection-style
// upsert/$inc semantics.
type PGSink struct {
	db           *store.DB
	writer       *writer
	storePrompts bool
}

// NewPGSink connects to dsn and verifies connectivity with a ping. If the
// connection or schema migration fails, it returns a disabled sink (never
// an error) so the caller can proceed with the file sink only, matching
// the self-disabling behavior of the document sink this was grounded on.
func NewPGSink(dsn string, storePrompts bool) DocSink {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := store.Open(ctx, dsn)
	if err != nil {
		log.Printf("telemetry doc sink: connect failed, disabling: %v", err)
		return disabledDocSink{}
	}
	if err := db.Ping(ctx); err != nil {
		log.Printf("telemetry doc sink: ping failed, disabling: %v", err)
		db.Close(ctx)
		return disabledDocSink{}
	}
	if err := store.Migrate(ctx, db); err != nil {
		log.Printf("telemetry doc sink: schema migration failed, disabling: %v", err)
		db.Close(ctx)
		return disabledDocSink{}
	}

	s := &PGSink{db: db, storePrompts: storePrompts}
	s.writer = newWriter(s.flushTurns, s.flushMatch)
	return s
}

func (s *PGSink) EnqueueTurn(matchID string, e Entry, rawPrompt string) {
	s.writer.enqueue(job{turn: &turnJob{matchID: matchID, entry: e, rawPrompt: rawPrompt}})
}

func (s *PGSink) EnqueueMatch(matchID string, scores map[string]float64, fidelity map[string]referee.FidelityReport, ruling string, extra map[string]any) {
	s.writer.enqueue(job{match: &matchJob{matchID: matchID, scores: scores, fidelity: fidelity, ruling: ruling, extra: extra}})
}

func (s *PGSink) Close() {
	s.writer.close()
	s.db.Close(context.Background())
}

func (s *PGSink) flushTurns(batch []turnJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Printf("telemetry doc sink: begin tx failed: %v", err)
		return
	}
	defer tx.Rollback(ctx)

	for _, tj := range batch {
		doc := turnDocument(tj.entry, s.storePrompts, tj.rawPrompt)
		b, err := json.Marshal(doc)
		if err != nil {
			log.Printf("telemetry doc sink: marshal turn failed: %v", err)
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO turns (match_id, turn_number, hand_number, seat_id, doc)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (match_id, turn_number, hand_number, seat_id) DO UPDATE
			SET doc = EXCLUDED.doc, ingested_at = now()`,
			tj.matchID, tj.entry.TurnNumber, tj.entry.HandNumber, tj.entry.SeatID, b)
		if err != nil {
			log.Printf("telemetry doc sink: upsert turn failed: %v", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		log.Printf("telemetry doc sink: commit tx failed: %v", err)
	}
}

func (s *PGSink) flushMatch(j matchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	playerModels, _ := j.extra["player_models"].(map[string]string)
	winner := deriveWinner(j.scores, playerModels)
	eventType, _ := j.extra["event"].(string)
	if eventType == "" {
		eventType = "unknown"
	}

	doc := map[string]any{
		"match_id":      j.matchID,
		"scores":        j.scores,
		"fidelity":      j.fidelity,
		"player_models": playerModels,
		"winner":        winner,
		"ruling":        j.ruling,
		"event_type":    eventType,
	}
	for k, v := range j.extra {
		doc[k] = v
	}
	b, err := json.Marshal(doc)
	if err != nil {
		log.Printf("telemetry doc sink: marshal match failed: %v", err)
		return
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO matches (match_id, doc) VALUES ($1, $2)
		ON CONFLICT (match_id) DO UPDATE SET doc = EXCLUDED.doc, ingested_at = now()`,
		j.matchID, b); err != nil {
		log.Printf("telemetry doc sink: upsert match failed: %v", err)
	}

	for seat, modelID := range playerModels {
		modelID = NormalizeModelName(modelID)
		isWinner := winner == modelID
		isDraw := winner == ""
		violations := 0
		if fr, ok := j.fidelity[seat]; ok {
			violations = fr.TotalViolations
		}
		s.incrementModelStats(ctx, modelID, eventType, isWinner, isDraw, violations)
	}
}

func (s *PGSink) incrementModelStats(ctx context.Context, modelID, eventType string, isWinner, isDraw bool, violations int) {
	win, loss, draw := 0, 0, 0
	switch {
	case isDraw:
		draw = 1
	case isWinner:
		win = 1
	default:
		loss = 1
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO models (model_id, total_matches, wins, losses, draws, total_violations, last_played)
		VALUES ($1, 1, $2, $3, $4, $5, now())
		ON CONFLICT (model_id) DO UPDATE SET
			total_matches = models.total_matches + 1,
			wins = models.wins + $2,
			losses = models.losses + $3,
			draws = models.draws + $4,
			total_violations = models.total_violations + $5,
			last_played = now()`,
		modelID, win, loss, draw, violations)
	if err != nil {
		log.Printf("telemetry doc sink: increment model stats failed: %v", err)
		return
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO model_game_stats (model_id, event_type, matches, wins, losses, draws)
		VALUES ($1, $2, 1, $3, $4, $5)
		ON CONFLICT (model_id, event_type) DO UPDATE SET
			matches = model_game_stats.matches + 1,
			wins = model_game_stats.wins + $3,
			losses = model_game_stats.losses + $4,
			draws = model_game_stats.draws + $5`,
		modelID, eventType, win, loss, draw)
	if err != nil {
		log.Printf("telemetry doc sink: increment model game stats failed: %v", err)
	}
}

func turnDocument(e Entry, storePrompts bool, rawPrompt string) map[string]any {
	doc := map[string]any{
		"turn_number":        e.TurnNumber,
		"hand_number":        e.HandNumber,
		"street":             e.Street,
		"player_id":          e.SeatID,
		"model_id":           NormalizeModelName(e.ModelID),
		"model_version":      NormalizeModelName(e.ModelVersion),
		"raw_output":         e.RawOutput,
		"reasoning_output":   e.ReasoningOutput,
		"parsed_action":      e.ParsedAction,
		"parse_success":      e.ParseSuccess,
		"validation_result":  e.ValidationResult,
		"violation":          e.Violation,
		"ruling":             e.Ruling,
		"state_snapshot":     e.StateSnapshot,
		"input_tokens":       e.InputTokens,
		"output_tokens":      e.OutputTokens,
		"latency_ms":         e.LatencyMS,
	}
	if storePrompts {
		doc["prompt"] = rawPrompt
	} else {
		sum := sha256.Sum256([]byte(rawPrompt))
		doc["prompt_hash"] = hex.EncodeToString(sum[:])
		doc["prompt_chars"] = len(rawPrompt)
		doc["prompt_tokens"] = e.InputTokens
	}
	return doc
}

func deriveWinner(scores map[string]float64, playerModels map[string]string) string {
	if len(scores) == 0 {
		return ""
	}
	var bestSeat string
	var best float64
	tie := false
	first := true
	for seat, score := range scores {
		if first || score > best {
			best = score
			bestSeat = seat
			tie = false
			first = false
		} else if score == best {
			tie = true
		}
	}
	if tie {
		return ""
	}
	return NormalizeModelName(playerModels[bestSeat])
}
