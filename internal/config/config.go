package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
)

// GameConfig carries the tunables for hosted blackjack sessions. Values come
// from an optional JSON file and may be overridden per deployment through the
// runtime environment.
type GameConfig struct {
	// MaxSeats caps how many players a session can hold, dealer excluded.
	MaxSeats int `json:"max_seats" env:"BLACKJACK_MAX_SEATS"`
	// TurnDurationSeconds bounds how long a seat may hold the turn before a
	// Stand is forced on its behalf.
	TurnDurationSeconds int `json:"turn_duration_seconds" env:"BLACKJACK_TURN_DURATION_SEC"`

	BotsEnabled             bool  `json:"bots_enabled" env:"BLACKJACK_BOTS_ENABLED"`
	BotMinDelaySeconds      int   `json:"bot_min_delay_seconds" env:"BLACKJACK_BOT_MIN_DELAY_SEC"`
	BotMaxDelaySeconds      int   `json:"bot_max_delay_seconds" env:"BLACKJACK_BOT_MAX_DELAY_SEC"`
	BotAutoFillDelaySeconds int   `json:"bot_auto_fill_delay_seconds" env:"BLACKJACK_BOT_AUTO_FILL_DELAY_SEC"`
	BotBet                  int64 `json:"bot_bet" env:"BLACKJACK_BOT_BET"`

	// HostTokenSecret signs the session-ownership token minted on hosting.
	HostTokenSecret     string `json:"-" env:"BLACKJACK_HOST_TOKEN_SECRET"`
	HostTokenTTLSeconds int    `json:"host_token_ttl_seconds" env:"BLACKJACK_HOST_TOKEN_TTL_SEC"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the built-in configuration.
func Default() GameConfig {
	return GameConfig{
		MaxSeats:                4,
		TurnDurationSeconds:     20,
		BotMinDelaySeconds:      1,
		BotMaxDelaySeconds:      3,
		BotAutoFillDelaySeconds: 5,
		BotBet:                  100,
		HostTokenTTLSeconds:     86400,
	}
}

// LoadGameConfig loads the game configuration from the given path, once.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c := Default()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or the defaults when no
// file was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}

// FromRuntimeEnv layers environment overrides on top of the loaded (or
// default) configuration. environment is the runtime-provided variable map,
// not the process environ.
func FromRuntimeEnv(environment map[string]string) (GameConfig, error) {
	c := GetGameConfig()
	if err := env.ParseWithOptions(&c, env.Options{Environment: environment}); err != nil {
		return c, fmt.Errorf("failed to parse config overrides: %w", err)
	}
	if c.MaxSeats <= 0 {
		c.MaxSeats = Default().MaxSeats
	}
	if c.TurnDurationSeconds <= 0 {
		c.TurnDurationSeconds = Default().TurnDurationSeconds
	}
	return c, nil
}
