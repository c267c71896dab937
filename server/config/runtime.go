package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Runtime holds the process-level knobs that come from the environment
// rather than the tournament document: connection strings, output
// locations, and the telemetry privacy toggle. Keeping these as struct
// tags instead of scattered os.Getenv calls means a malformed value fails
// fast with a field name attached; an unset variable takes its envDefault
// (or stays empty when it has none).
type Runtime struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	TelemetryDir string `env:"TELEMETRY_DIR" envDefault:"./telemetry"`
	StorePrompts bool   `env:"STORE_PROMPTS" envDefault:"false"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	Port         string `env:"PORT" envDefault:"8080"`
	ConfigPath   string `env:"TOURNAMENT_CONFIG" envDefault:"tournament.yaml"`
}

// LoadRuntime parses Runtime from the current process environment.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return Runtime{}, fmt.Errorf("parsing runtime environment: %w", err)
	}
	return rt, nil
}
