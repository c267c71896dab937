package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"tourneyengine/server/adapter"
	"tourneyengine/server/config"
	"tourneyengine/server/game"
	"tourneyengine/server/referee"
	"tourneyengine/server/telemetry"
)

// EngineFactory constructs a fresh, unstarted game engine for the named
// event. It is called once per match so concurrently running matches never
// share engine state.
type EngineFactory func(event string) (game.Engine, error)

// AdapterFactory constructs the adapter backing one configured model. The
// orchestrator calls it once per seat in every match, so back-end SDKs
// that are not safe for concurrent use get a fresh instance per match
// rather than being shared across concurrent matches.
type AdapterFactory func(name string, mc config.ModelConfig) (adapter.Adapter, error)

// Tournament owns everything needed to realize a schedule and drive every
// match to completion with bounded concurrency.
type Tournament struct {
	Config        config.TournamentConfig
	Schedule      []MatchDescriptor
	EngineFactory EngineFactory
	Adapters      AdapterFactory
	TelemetryDir  string
	DocSink       telemetry.DocSink
}

// Run executes every match in t.Schedule, honoring t.Config.MaxParallelMatches
// as the bound on concurrently in-flight matches. It returns every match's
// outcome in schedule order once all matches have finished (or the context
// is cancelled). The first match that returns an error (constructing its
// engine, logger or adapters, or a telemetry file-sink write failure)
// cancels the shared context: matches not yet started are not run, matches
// in flight stop between turns with ruling "cancelled", and Run returns
// that error. A panic inside a match is not recovered and ends the run.
func (t *Tournament) Run(ctx context.Context) ([]MatchOutcome, error) {
	outcomes := make([]MatchOutcome, len(t.Schedule))
	sem := semaphore.NewWeighted(int64(maxParallel(t.Config.MaxParallelMatches)))
	g, gctx := errgroup.WithContext(ctx)

	for i, desc := range t.Schedule {
		i, desc := i, desc
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcome, err := t.runOne(gctx, desc)
			outcomes[i] = outcome
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (t *Tournament) runOne(ctx context.Context, desc MatchDescriptor) (MatchOutcome, error) {
	engine, err := t.EngineFactory(desc.Event)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("match %s: constructing engine: %w", desc.MatchID, err)
	}

	logger, err := telemetry.NewLogger(t.TelemetryDir, desc.MatchID, t.DocSink, false)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("match %s: opening telemetry logger: %w", desc.MatchID, err)
	}
	defer logger.Close()

	bindings := map[string]SeatBinding{}
	playerModels := map[string]string{}
	for seat, modelName := range desc.Seats {
		mc, ok := t.Config.Models[modelName]
		if !ok {
			return MatchOutcome{}, fmt.Errorf("match %s: seat %s bound to unknown model %q", desc.MatchID, seat, modelName)
		}
		ag, err := t.Adapters(modelName, mc)
		if err != nil {
			return MatchOutcome{}, fmt.Errorf("match %s: constructing adapter for %q: %w", desc.MatchID, modelName, err)
		}
		bindings[seat] = SeatBinding{
			Adapter:         ag,
			ModelID:         mc.ModelID,
			ModelVersion:    modelName,
			MaxOutputTokens: defaultInt(mc.MaxOutputTokens, 512),
			TimeoutSeconds:  t.shotClockSeconds(modelName, mc),
		}
		playerModels[seat] = modelName
	}

	seatCount := len(engine.Seats())
	refCfg := referee.DefaultConfig(seatCount)
	if fe := t.Config.ForfeitEscalation; fe != nil {
		if fe.MatchForfeitThreshold > 0 {
			refCfg.BaseThreshold = fe.MatchForfeitThreshold
		}
		refCfg.TurnForfeitThreshold = fe.TurnForfeitThreshold
		refCfg.ScaleBySeats = fe.Scaling()
		if len(fe.StrikeViolations) > 0 {
			refCfg.StrikeKinds = parseStrikeKinds(fe.StrikeViolations)
		}
	}

	return RunMatch(ctx, desc.MatchID, desc.Event, engine, desc.Seed, bindings, playerModels, logger, refCfg)
}

// shotClockSeconds resolves a seat's per-turn wall-clock budget: a configured
// shot clock's per-model override wins, then its default, falling back to
// the model's own compute-cap timeout when no shot clock is configured.
func (t *Tournament) shotClockSeconds(modelName string, mc config.ModelConfig) float64 {
	if sc := t.Config.ShotClock; sc != nil {
		if ms, ok := sc.ModelOverrides[modelName]; ok && ms > 0 {
			return float64(ms) / 1000
		}
		if sc.DefaultMS > 0 {
			return float64(sc.DefaultMS) / 1000
		}
	}
	return defaultFloat(mc.TimeoutS, 30)
}

// parseStrikeKinds resolves configured violation-kind names against the
// referee's known vocabulary. Unrecognized names are skipped rather than
// rejected outright, consistent with this package's other permissive
// defaulting (defaultInt, defaultFloat) for a config loader explicitly out
// of scope for full validation.
func parseStrikeKinds(names []string) []referee.ViolationKind {
	known := map[string]referee.ViolationKind{
		string(referee.MalformedJSON):    referee.MalformedJSON,
		string(referee.IllegalMove):      referee.IllegalMove,
		string(referee.Timeout):          referee.Timeout,
		string(referee.EmptyResponse):    referee.EmptyResponse,
		string(referee.InjectionAttempt): referee.InjectionAttempt,
	}
	kinds := make([]referee.ViolationKind, 0, len(names))
	for _, n := range names {
		if k, ok := known[n]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func maxParallel(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func defaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func defaultFloat(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}
