// Package config defines the parsed shape of a tournament configuration.
// Parsing a configuration file end-to-end is out of scope for the core;
// this package's loader exists for completeness and for the orchestrator's
// own example wiring in main.go.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one configured agent.
type ModelConfig struct {
	Name            string            `yaml:"-"`
	Provider        string            `yaml:"provider"` // "mock", "openai", "anthropic", "openrouter"
	ModelID         string            `yaml:"model_id"`
	Strategy        string            `yaml:"strategy"` // for the mock provider
	APIKeyEnv       string            `yaml:"api_key_env"`
	BaseURL         string            `yaml:"base_url"`
	SiteURL         string            `yaml:"site_url"`
	AppName         string            `yaml:"app_name"`
	Temperature     float64           `yaml:"temperature"`
	MaxOutputTokens int               `yaml:"max_output_tokens"`
	TimeoutS        float64           `yaml:"timeout_s"`
}

// EventConfig describes one configured event kind.
type EventConfig struct {
	Name           string  `yaml:"-"`
	Weight         int     `yaml:"weight"`
	HandsPerMatch  int     `yaml:"hands_per_match"`
	StartingStack  int     `yaml:"starting_stack"`
	SmallBlind     int     `yaml:"-"`
	BigBlind       int     `yaml:"-"`
	BlindSchedule  [][3]int `yaml:"-"` // (hand, small, big), sorted by hand
	Rounds         int     `yaml:"rounds"`
	GamesPerMatch  int     `yaml:"games_per_match"`
	Mode           string  `yaml:"mode"`
	Players        int     `yaml:"players"` // seat count, for multiplayer events
}

// ComputeCaps are the global defaults for output length and wall-clock
// budget, overridable per agent.
type ComputeCaps struct {
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutS        float64 `yaml:"timeout_s"`
}

// ShotClockConfig sets the default per-turn wall-clock budget and optional
// per-model overrides.
type ShotClockConfig struct {
	DefaultMS      int64           `yaml:"default_ms"`
	ModelOverrides map[string]int64 `yaml:"model_overrides"`
}

// ForfeitEscalationConfig mirrors referee.Config but at the configuration
// layer, before it is resolved against a concrete seat count.
type ForfeitEscalationConfig struct {
	TurnForfeitThreshold  int      `yaml:"turn_forfeit_threshold"`
	MatchForfeitThreshold int      `yaml:"match_forfeit_threshold"`
	StrikeViolations      []string `yaml:"strike_violations"`
	// MatchForfeitScaling is a pointer so an omitted field defaults to true
	// (scale the threshold up for 7+ players) rather than Go's zero value.
	MatchForfeitScaling *bool `yaml:"match_forfeit_scaling"`
}

// Scaling reports whether the match-forfeit threshold should scale with
// seat count, defaulting to true when unset.
func (f *ForfeitEscalationConfig) Scaling() bool {
	if f == nil || f.MatchForfeitScaling == nil {
		return true
	}
	return *f.MatchForfeitScaling
}

// TournamentConfig is immutable after load and read-only for the lifetime
// of a run.
type TournamentConfig struct {
	Name              string
	Seed              int64
	Version           string
	Format            string // "round_robin", "bracket", or explicit matchups
	Models            map[string]ModelConfig
	Events            map[string]EventConfig
	ComputeCaps       ComputeCaps
	OutputDir         string
	ShotClock         *ShotClockConfig
	ForfeitEscalation *ForfeitEscalationConfig
	MaxParallelMatches int
}

type rawConfig struct {
	Tournament struct {
		Name    string `yaml:"name"`
		Seed    int64  `yaml:"seed"`
		Version string `yaml:"version"`
		Format  string `yaml:"format"`
	} `yaml:"tournament"`
	Models      map[string]ModelConfig `yaml:"models"`
	Events      map[string]struct {
		Weight        int    `yaml:"weight"`
		HandsPerMatch int    `yaml:"hands_per_match"`
		StartingStack int    `yaml:"starting_stack"`
		Blinds        []int  `yaml:"blinds"`
		BlindSchedule map[int][2]int `yaml:"blind_schedule"`
		Rounds        int    `yaml:"rounds"`
		GamesPerMatch int    `yaml:"games_per_match"`
		Mode          string `yaml:"mode"`
		Players       int    `yaml:"players"`
	} `yaml:"events"`
	ComputeCaps       ComputeCaps              `yaml:"compute_caps"`
	OutputDir         string                   `yaml:"output_dir"`
	ShotClock         *ShotClockConfig         `yaml:"shot_clock"`
	ForfeitEscalation *ForfeitEscalationConfig `yaml:"forfeit_escalation"`
	MaxParallelMatches int                     `yaml:"max_parallel_matches"`
}

// Load parses a tournament configuration document from path. Parsing a
// full-featured configuration language is explicitly out of scope; this
// loader only resolves the fields the core actually consumes.
func Load(path string) (TournamentConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return TournamentConfig{}, fmt.Errorf("reading config: %w", err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return TournamentConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := TournamentConfig{
		Name:               raw.Tournament.Name,
		Seed:               raw.Tournament.Seed,
		Version:            raw.Tournament.Version,
		Format:             firstNonEmpty(raw.Tournament.Format, "round_robin"),
		Models:             map[string]ModelConfig{},
		Events:             map[string]EventConfig{},
		ComputeCaps:        raw.ComputeCaps,
		OutputDir:          raw.OutputDir,
		ShotClock:          raw.ShotClock,
		ForfeitEscalation:  raw.ForfeitEscalation,
		MaxParallelMatches: raw.MaxParallelMatches,
	}
	if cfg.MaxParallelMatches <= 0 {
		cfg.MaxParallelMatches = 1
	}

	for name, m := range raw.Models {
		m.Name = name
		if m.MaxOutputTokens == 0 {
			m.MaxOutputTokens = cfg.ComputeCaps.MaxOutputTokens
		}
		if m.TimeoutS == 0 {
			m.TimeoutS = cfg.ComputeCaps.TimeoutS
		}
		cfg.Models[name] = m
	}

	for name, e := range raw.Events {
		ec := EventConfig{
			Name:          name,
			Weight:        e.Weight,
			HandsPerMatch: defaultInt(e.HandsPerMatch, 100),
			StartingStack: defaultInt(e.StartingStack, 200),
			Rounds:        defaultInt(e.Rounds, 1),
			GamesPerMatch: defaultInt(e.GamesPerMatch, 9),
			Mode:          firstNonEmpty(e.Mode, "attrition"),
			Players:       e.Players,
		}
		if len(e.Blinds) == 2 {
			ec.SmallBlind, ec.BigBlind = e.Blinds[0], e.Blinds[1]
		} else {
			ec.SmallBlind, ec.BigBlind = 1, 2
		}
		for hand, sb := range e.BlindSchedule {
			ec.BlindSchedule = append(ec.BlindSchedule, [3]int{hand, sb[0], sb[1]})
		}
		sort.Slice(ec.BlindSchedule, func(i, j int) bool {
			return ec.BlindSchedule[i][0] < ec.BlindSchedule[j][0]
		})
		cfg.Events[name] = ec
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}
