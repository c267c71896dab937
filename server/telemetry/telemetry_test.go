package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tourneyengine/server/referee"
)

func TestLogTurnThenFinalizeWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "match-1", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if err := logger.LogTurn(Entry{TurnNumber: 1, HandNumber: 1, SeatID: "player_a", RawOutput: `{"action":"call"}`, ParseSuccess: true}); err != nil {
		t.Fatalf("LogTurn: %v", err)
	}
	fidelity := map[string]referee.FidelityReport{"player_a": {}, "player_b": {}}
	if err := logger.FinalizeMatch(map[string]float64{"player_a": 200, "player_b": 200}, fidelity, "completed", nil); err != nil {
		t.Fatalf("FinalizeMatch: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, logger.FilePath())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("unmarshal last line: %v", err)
	}
	if last["record_type"] != "match_summary" {
		t.Fatalf("expected final line to be match_summary, got %v", last["record_type"])
	}
}

func TestCloseWithoutFinalizeEmitsCrashStub(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "match-crash", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if err := logger.LogTurn(Entry{TurnNumber: 1, HandNumber: 1, SeatID: "player_a"}); err != nil {
		t.Fatalf("LogTurn: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "match-crash.log"))
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last["record_type"] != "match_summary" || last["ruling"] != "engine_error" {
		t.Fatalf("expected crash-stub summary, got %v", last)
	}
}

func TestFinalizeMatchIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "match-idem", nil, true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	_ = logger.FinalizeMatch(nil, nil, "completed", nil)
	_ = logger.FinalizeMatch(nil, nil, "completed", nil)
	_ = logger.Close()

	lines := readLines(t, logger.FilePath())
	count := 0
	for _, l := range lines {
		var rec map[string]any
		_ = json.Unmarshal([]byte(l), &rec)
		if rec["record_type"] == "match_summary" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one match_summary, got %d", count)
	}
}

func TestDisabledDocSinkNeverBlocks(t *testing.T) {
	var sink disabledDocSink
	sink.EnqueueTurn("m", Entry{}, "prompt")
	sink.EnqueueMatch("m", nil, nil, "completed", nil)
	sink.Close()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
