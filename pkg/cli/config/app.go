package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	domainConfig "github.com/intake-lab/prosecoach/pkg/domain/model/config"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

// AppConfig holds the optional TOML configuration for intake behavior.
// Omitted values fall back to the built-in defaults.
type AppConfig struct {
	path string

	DefaultJurisdiction string        `toml:"default_jurisdiction"`
	DefaultTrack        string        `toml:"default_track"`
	HistoryWindow       int           `toml:"history_window"`
	MaxQuestions        int           `toml:"max_questions"`
	Tracks              []TrackConfig `toml:"track"`
}

// TrackConfig holds the per-track gap prompts
type TrackConfig struct {
	ID      string   `toml:"id"`
	Prompts []string `toml:"prompts"`
}

// Validate checks if the TrackConfig is valid
func (t *TrackConfig) Validate() error {
	if !types.Track(t.ID).IsValid() {
		return goerr.New("invalid track ID", goerr.V("id", t.ID))
	}
	return nil
}

// Flags returns CLI flags for application configuration
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to intake configuration TOML file",
			Category:    "Application",
			Sources:     cli.EnvVars("PROSECOACH_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure loads the intake configuration. Without a configured path the
// built-in defaults are returned.
func (a *AppConfig) Configure() (*domainConfig.IntakeConfig, error) {
	cfg := domainConfig.Default()
	if a.path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(a.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}
	if err := toml.Unmarshal(raw, a); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", a.path))
	}

	if a.DefaultJurisdiction != "" {
		cfg.DefaultJurisdiction = a.DefaultJurisdiction
	}
	if a.DefaultTrack != "" {
		cfg.DefaultTrack = types.Track(a.DefaultTrack).Normalize()
	}
	if a.HistoryWindow > 0 {
		cfg.HistoryWindow = a.HistoryWindow
	}
	if a.MaxQuestions > 0 {
		cfg.MaxQuestions = a.MaxQuestions
	}
	for _, track := range a.Tracks {
		if err := track.Validate(); err != nil {
			return nil, err
		}
		cfg.TrackPrompts[types.Track(track.ID)] = track.Prompts
	}

	cfg.Normalize()
	return cfg, nil
}
