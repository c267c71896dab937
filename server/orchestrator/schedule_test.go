package orchestrator

import (
	"testing"

	"tourneyengine/server/config"
	"tourneyengine/server/seed"
)

func baseConfig() config.TournamentConfig {
	return config.TournamentConfig{
		Seed: 42,
		Models: map[string]config.ModelConfig{
			"alpha": {ModelID: "gpt-4o"},
			"beta":  {ModelID: "claude-3-5-sonnet"},
			"gamma": {ModelID: "gemini-2.5-pro"},
		},
		Events: map[string]config.EventConfig{
			"holdem": {Name: "holdem"},
		},
	}
}

func TestBuildScheduleRoundRobinCoversEveryPair(t *testing.T) {
	cfg := baseConfig()
	mgr := seed.NewManager(cfg.Seed)
	schedule, err := BuildSchedule(cfg, mgr)
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	// 3 models round-robin = 3 pairs.
	if len(schedule) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(schedule))
	}
	for _, d := range schedule {
		if d.Seats["player_a"] == "" || d.Seats["player_b"] == "" {
			t.Fatalf("match %q missing seat binding: %+v", d.MatchID, d)
		}
		if d.MatchID == "" {
			t.Fatalf("match missing id: %+v", d)
		}
	}
}

func TestBuildScheduleTooFewModels(t *testing.T) {
	cfg := baseConfig()
	cfg.Models = map[string]config.ModelConfig{"alpha": {}}
	mgr := seed.NewManager(cfg.Seed)
	if _, err := BuildSchedule(cfg, mgr); err == nil {
		t.Fatal("expected error for fewer than two models")
	}
}

func TestBuildScheduleSeedsAreIsolatedFromSiblingEdits(t *testing.T) {
	cfg := baseConfig()
	mgr := seed.NewManager(cfg.Seed)
	s1, err := BuildSchedule(cfg, mgr)
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}

	// Adding a fourth model changes the pairing count but must not change
	// the seed any existing (event, round, index) triple derives, since
	// MatchSeed depends only on that triple, not on schedule contents.
	seedsByTriple := map[[3]any]int64{}
	for _, d := range s1 {
		seedsByTriple[[3]any{d.Event, d.Round, d.Index}] = d.Seed
	}
	cfg.Models["delta"] = config.ModelConfig{ModelID: "gpt-4o-mini"}
	s2, err := BuildSchedule(cfg, mgr)
	if err != nil {
		t.Fatalf("BuildSchedule (expanded): %v", err)
	}
	for _, d := range s2 {
		key := [3]any{d.Event, d.Round, d.Index}
		if want, ok := seedsByTriple[key]; ok && want != d.Seed {
			t.Fatalf("seed for triple %v changed after adding a model: %d -> %d", key, want, d.Seed)
		}
	}
}
