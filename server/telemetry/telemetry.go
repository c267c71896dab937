// Package telemetry implements the dual-sink telemetry pipeline: a durable
// append-only log file (the authoritative audit trail) plus an optional
// asynchronous document sink for later querying.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tourneyengine/server/referee"
)

const schemaVersion = "1.0.0"

// Entry is one turn of match telemetry — one per decision attempt,
// including retries and forfeits.
type Entry struct {
	TurnNumber      int                    `json:"turn_number"`
	HandNumber      int                    `json:"hand_number"`
	Street          string                 `json:"street"`
	SeatID          string                 `json:"player_id"`
	ModelID         string                 `json:"model_id"`
	ModelVersion    string                 `json:"model_version"`
	Prompt          string                 `json:"prompt"`
	RawOutput       string                 `json:"raw_output"`
	ReasoningOutput string                 `json:"reasoning_output,omitempty"`
	ParsedAction    map[string]any         `json:"parsed_action,omitempty"`
	ParseSuccess    bool                   `json:"parse_success"`
	ValidationResult string                `json:"validation_result"`
	Violation       string                 `json:"violation,omitempty"`
	Ruling          string                 `json:"ruling,omitempty"`
	StateSnapshot   any                    `json:"state_snapshot"`
	InputTokens     int                    `json:"input_tokens"`
	OutputTokens    int                    `json:"output_tokens"`
	LatencyMS       int64                  `json:"latency_ms"`
	ShotClockMS     int64                  `json:"shot_clock_ms"`
	ShotClockExceeded bool                 `json:"shot_clock_exceeded"`
	CumulativeStrikes int                  `json:"cumulative_strikes"`
	StrikeLimit     int                    `json:"strike_limit"`
	EngineVersion   string                 `json:"engine_version"`
	PromptVersion   string                 `json:"prompt_version"`
}

// MatchSummary is the terminal record emitted exactly once per match.
type MatchSummary struct {
	MatchID        string                             `json:"match_id"`
	FinalScores    map[string]float64                 `json:"final_scores"`
	FidelityReport map[string]referee.FidelityReport  `json:"fidelity_report"`
	Ruling         string                             `json:"ruling"`
	HighlightHands []string                           `json:"highlight_hands,omitempty"`
	Extra          map[string]any                     `json:"-"`
}

// Logger is bound to one match and owns both sinks for its lifetime. It is
// not safe for concurrent use from more than one match-driving routine —
// per spec.md's ownership model, a Logger belongs to exactly one match.
type Logger struct {
	matchID     string
	file        *fileSink
	doc         DocSink
	mu          sync.Mutex
	finalized   bool
	storePrompts bool
}

// NewLogger opens (creating if needed) the durable log file for matchID
// under dir, and binds an optional document sink. doc may be nil, in which
// case document-sink operations are no-ops.
func NewLogger(dir, matchID string, doc DocSink, storePrompts bool) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry dir: %w", err)
	}
	fs, err := openFileSink(filepath.Join(dir, matchID+".log"))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = disabledDocSink{}
	}
	return &Logger{matchID: matchID, file: fs, doc: doc, storePrompts: storePrompts}, nil
}

// FilePath returns the path to the durable log file.
func (l *Logger) FilePath() string { return l.file.path }

// LogTurn synchronously appends the turn record to the file sink, then
// enqueues it (best-effort) for the document sink.
func (l *Logger) LogTurn(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := map[string]any{
		"schema_version": schemaVersion,
		"match_id":       l.matchID,
		"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	mergeEntry(record, e)
	if err := l.file.append(record); err != nil {
		return fmt.Errorf("telemetry file sink write failed: %w", err)
	}

	docEntry := e
	if !l.storePrompts {
		docEntry.Prompt = ""
	}
	l.doc.EnqueueTurn(l.matchID, docEntry, e.Prompt)
	return nil
}

// FinalizeMatch writes the terminal record to the file sink and enqueues a
// match document. It is guaranteed to run for every match that starts
// (the orchestrator wraps match execution so release always finalizes),
// and is idempotent: a second call is a no-op.
func (l *Logger) FinalizeMatch(scores map[string]float64, fidelity map[string]referee.FidelityReport, ruling string, extra map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalized {
		return nil
	}
	l.finalized = true

	record := map[string]any{
		"schema_version":   schemaVersion,
		"record_type":      "match_summary",
		"match_id":         l.matchID,
		"final_scores":     scores,
		"fidelity_report":  fidelity,
		"ruling":           ruling,
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		record[k] = v
	}
	if err := l.file.append(record); err != nil {
		return fmt.Errorf("telemetry file sink write failed: %w", err)
	}

	l.doc.EnqueueMatch(l.matchID, scores, fidelity, ruling, extra)
	return nil
}

// Close flushes and closes the file sink. If the match never reached its
// own FinalizeMatch call (e.g. a panic unwound past it), Close emits a
// crash-stub match summary first so telemetry completeness still holds.
func (l *Logger) Close() error {
	l.mu.Lock()
	finalized := l.finalized
	l.mu.Unlock()
	if !finalized {
		_ = l.FinalizeMatch(nil, nil, "engine_error", map[string]any{"stub": true})
	}
	return l.file.close()
}

func mergeEntry(record map[string]any, e Entry) {
	b, _ := json.Marshal(e)
	var fields map[string]any
	_ = json.Unmarshal(b, &fields)
	for k, v := range fields {
		record[k] = v
	}
}
