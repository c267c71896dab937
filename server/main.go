package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"tourneyengine/server/adapter"
	"tourneyengine/server/config"
	"tourneyengine/server/consolefmt"
	"tourneyengine/server/game"
	"tourneyengine/server/games/holdem"
	"tourneyengine/server/games/liarsdice"
	"tourneyengine/server/orchestrator"
	"tourneyengine/server/seed"
	"tourneyengine/server/store"
	"tourneyengine/server/telemetry"
)

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("missing required env var %s; put it in .env (dev) or set it on the host (prod)", k)
		}
	}
}

var stopFlag atomic.Bool

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	stopFlag.Store(true)
	cancel()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	rt, err := config.LoadRuntime()
	if err != nil {
		log.Fatal(err)
	}

	var migrate, serve bool
	configPath := rt.ConfigPath
	for _, a := range os.Args[1:] {
		switch {
		case a == "--migrate":
			migrate = true
		case a == "--serve":
			serve = true
		case strings.HasPrefix(a, "--config="):
			configPath = strings.TrimPrefix(a, "--config=")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	if migrate {
		mustEnv("DATABASE_URL")
		db, err := store.Open(ctx, rt.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close(ctx)
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("migrated")
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading tournament config %s: %v", configPath, err)
	}

	var docSink telemetry.DocSink
	if rt.DatabaseURL != "" {
		docSink = telemetry.NewPGSink(rt.DatabaseURL, rt.StorePrompts)
	}

	mgr := seed.NewManager(cfg.Seed)
	schedule, err := orchestrator.BuildSchedule(cfg, mgr)
	if err != nil {
		log.Fatal(err)
	}

	consolefmt.Section(fmt.Sprintf("%s (%d matches)", cfg.Name, len(schedule)))

	tournament := orchestrator.Tournament{
		Config:        cfg,
		Schedule:      schedule,
		EngineFactory: engineFactory(cfg),
		Adapters:      adapterFactory,
		TelemetryDir:  firstNonEmpty(cfg.OutputDir, rt.TelemetryDir),
		DocSink:       docSink,
	}

	outcomes, err := tournament.Run(ctx)
	if err != nil {
		log.Fatalf("tournament run: %v", err)
	}
	for _, o := range outcomes {
		fmt.Println(consolefmt.MatchResult(o.MatchID, o.Scores))
	}

	if serve {
		mustEnv("DATABASE_URL")
		db, err := store.Open(ctx, rt.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close(ctx)
		if rt.AutoMigrate {
			if err := store.Migrate(ctx, db); err != nil {
				log.Fatal(err)
			}
		}
		r := Router(db)
		srv := &http.Server{Addr: ":" + rt.Port, Handler: r, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
		log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", rt.Port)
		log.Fatal(srv.ListenAndServe())
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// engineFactory builds the game.Engine for a configured event by name,
// reading its event-specific knobs out of cfg.Events.
func engineFactory(cfg config.TournamentConfig) orchestrator.EngineFactory {
	return func(event string) (game.Engine, error) {
		ev, ok := cfg.Events[event]
		if !ok {
			return nil, fmt.Errorf("no event configured named %q", event)
		}
		switch {
		case strings.HasPrefix(event, "holdem"):
			return holdem.New(holdem.Config{
				HandsPerMatch: ev.HandsPerMatch,
				StartingStack: ev.StartingStack,
				SmallBlind:    ev.SmallBlind,
				BigBlind:      ev.BigBlind,
			}), nil
		case strings.HasPrefix(event, "liarsdice"):
			mode := liarsdice.Attrition
			if ev.Mode == string(liarsdice.Redistribution) {
				mode = liarsdice.Redistribution
			}
			return liarsdice.New(liarsdice.Config{
				GamesPerMatch: ev.GamesPerMatch,
				NumPlayers:    ev.Players,
				Mode:          mode,
			}), nil
		default:
			return nil, fmt.Errorf("unknown event kind for %q", event)
		}
	}
}

// adapterFactory builds one adapter instance per (seat, model) per match,
// so a non-concurrency-safe back-end client is never shared across
// concurrently running matches.
func adapterFactory(name string, mc config.ModelConfig) (adapter.Adapter, error) {
	switch mc.Provider {
	case "", "mock", "offline":
		return adapter.NewOffline(firstNonEmpty(mc.ModelID, name), mockStrategy(mc.Strategy)), nil
	case "openai":
		return adapter.NewOpenAI(adapter.OpenAIConfig{
			APIKeyEnv:    firstNonEmpty(mc.APIKeyEnv, "OPENAI_API_KEY"),
			BaseURL:      mc.BaseURL,
			Model:        mc.ModelID,
			ModelVersion: mc.ModelID,
		})
	case "anthropic":
		return adapter.NewAnthropic(adapter.AnthropicConfig{
			APIKeyEnv:    firstNonEmpty(mc.APIKeyEnv, "ANTHROPIC_API_KEY"),
			BaseURL:      mc.BaseURL,
			Model:        mc.ModelID,
			ModelVersion: mc.ModelID,
		})
	case "openrouter":
		return adapter.NewOpenRouter(adapter.OpenRouterConfig{
			APIKeyEnv:    firstNonEmpty(mc.APIKeyEnv, "OPENROUTER_API_KEY"),
			Model:        mc.ModelID,
			ModelVersion: mc.ModelID,
			SiteURL:      mc.SiteURL,
			AppName:      mc.AppName,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q for %q", mc.Provider, name)
	}
}

// mockStrategy resolves a named offline strategy to a Strategy function,
// for config-driven mock participants in tests and local dry runs.
func mockStrategy(name string) adapter.Strategy {
	switch name {
	case "always_fold":
		return func([]adapter.Message, any) string { return `{"action":"fold","reasoning":"mock"}` }
	case "always_call":
		return func([]adapter.Message, any) string { return `{"action":"call","reasoning":"mock"}` }
	case "always_liar":
		return func([]adapter.Message, any) string { return `{"action":"liar","reasoning":"mock"}` }
	default:
		return func([]adapter.Message, any) string { return `{"action":"call","reasoning":"mock"}` }
	}
}
