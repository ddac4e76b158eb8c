// Package config loads the neighborhood configuration. The config is read
// once per process, lazily on first access, and the same instance is reused
// for the process lifetime. A missing or unreadable source falls back to
// built-in defaults rather than failing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
)

// Config is the top-level configuration structure.
type Config struct {
	Server ServerConfig `json:"server"`
	World  WorldConfig  `json:"world"`

	ParticipantCount int                      `json:"participant_count"`
	TimeBlocks       []schedule.BlockTemplate `json:"time_blocks"`

	TraitBias   map[string]map[schedule.Action]float64 `json:"trait_bias"`
	WeatherBias map[string]map[schedule.Action]float64 `json:"weather_bias"`
	WeekendBias map[schedule.Action]float64            `json:"weekend_bias"`

	NewsEnabled    bool `json:"news_enabled"`
	VerboseLogging bool `json:"verbose_logging"`

	Residents []ResidentConfig `json:"residents"`
	Sinks     SinksConfig      `json:"sinks"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type WorldConfig struct {
	TickIntervalMS int     `json:"tick_interval_ms"`
	Speed          float64 `json:"speed"`                // time multiplier over the tick interval
	StartTime      string  `json:"start_time,omitempty"` // RFC3339; empty = wall clock
	Weather        string  `json:"weather,omitempty"`    // pin a category; empty = drifting
	WeatherCadence int     `json:"weather_cadence_min"`
	Seed           int64   `json:"seed"`
	LotWidth       float64 `json:"lot_width"`
	LotDepth       float64 `json:"lot_depth"`
}

type ResidentConfig struct {
	Name   string   `json:"name"`
	Traits []string `json:"traits,omitempty"`
	Player bool     `json:"player,omitempty"`
}

type SinksConfig struct {
	Discord  DiscordSinkConfig  `json:"discord"`
	Slack    SlackSinkConfig    `json:"slack"`
	Redis    RedisSinkConfig    `json:"redis"`
	Postgres PostgresSinkConfig `json:"postgres"`
}

type DiscordSinkConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type SlackSinkConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

type RedisSinkConfig struct {
	URL string `json:"url"`
}

type PostgresSinkConfig struct {
	DSN string `json:"dsn"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable
// references. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	cfg := Default()
	if err := json.Unmarshal([]byte(resolved), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in fallback configuration: no time blocks,
// eight participants, news enabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		World: WorldConfig{
			TickIntervalMS: 1000,
			Speed:          60, // one world minute per real second
			WeatherCadence: 120,
			LotWidth:       100,
			LotDepth:       100,
		},
		ParticipantCount: 8,
		TraitBias:        map[string]map[schedule.Action]float64{},
		WeatherBias:      map[string]map[schedule.Action]float64{},
		WeekendBias:      map[schedule.Action]float64{},
		NewsEnabled:      true,
	}
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Get returns the process-wide config instance, loading it on first call.
// A missing source falls back to Default. The source is never re-read
// mid-session.
func Get(path string) *Config {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached != nil {
		return cached
	}
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
	}
	cached = cfg
	return cached
}

// Validate reports config problems worth surfacing at startup. These
// conditions degrade at runtime (a bad template skips its participant, not
// the process), so callers typically log the error and continue.
func (c *Config) Validate() error {
	for i, tpl := range c.TimeBlocks {
		if _, err := schedule.ParseClock(tpl.Start); err != nil {
			return fmt.Errorf("time_blocks[%d]: %w", i, err)
		}
		if len(tpl.Actions) == 0 {
			return fmt.Errorf("time_blocks[%d]: no actions", i)
		}
		if tpl.DurationMin[0] < 1 || tpl.DurationMin[1] < tpl.DurationMin[0] {
			return fmt.Errorf("time_blocks[%d]: bad duration range %v", i, tpl.DurationMin)
		}
		for a, w := range tpl.Actions {
			if !schedule.KnownAction(a) {
				return fmt.Errorf("time_blocks[%d]: unknown action %q", i, a)
			}
			if w < 0 {
				return fmt.Errorf("time_blocks[%d]: negative base weight for %q", i, a)
			}
		}
	}
	if c.ParticipantCount < 1 {
		return fmt.Errorf("participant_count must be positive, got %d", c.ParticipantCount)
	}
	return nil
}

// BiasTables assembles the three configured bias layers for the builder.
func (c *Config) BiasTables() schedule.BiasTables {
	return schedule.BiasTables{
		Trait:   c.TraitBias,
		Weather: c.WeatherBias,
		Weekend: c.WeekendBias,
	}
}
