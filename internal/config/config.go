package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Combat    CombatConfig    `toml:"combat"`
	AntiCheat AntiCheatConfig `toml:"anti_cheat"`
	Healing   HealingConfig   `toml:"healing"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	BindAddress string `toml:"bind_address"`
	TickRate    int    `toml:"tick_rate"` // simulation ticks per second
}

type CombatConfig struct {
	HeadshotMultiplier float64 `toml:"headshot_multiplier"`
	CriticalChance     float64 `toml:"critical_chance"` // 0.0-1.0
	CriticalMultiplier float64 `toml:"critical_multiplier"`
	ArmorAbsorb        float64 `toml:"armor_absorb"` // fraction of damage drawn from armor first
	AssistThreshold    float64 `toml:"assist_threshold"`
	MaxHealth          float64 `toml:"max_health"`
	MaxArmor           float64 `toml:"max_armor"`
}

type AntiCheatConfig struct {
	FireRateTolerance float64 `toml:"fire_rate_tolerance"` // >1.0 = leniency for jitter
	OriginTolerance   float64 `toml:"origin_tolerance"`    // max claimed-origin drift, distance units
	WindowSize        int     `toml:"window_size"`         // fire timestamps retained per weapon
}

type HealingConfig struct {
	TickInterval        Duration `toml:"tick_interval"`
	MoveCancelThreshold float64  `toml:"move_cancel_threshold"` // input magnitude that interrupts a use
}

// Duration decodes human-readable TOML values like "100ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type LoggingConfig struct {
	Sinks       []string `toml:"sinks"`        // console, zap, memory
	MinSeverity string   `toml:"min_severity"` // debug, info, warn, error
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			BindAddress: ":8080",
			TickRate:    15,
		},
		Combat: CombatConfig{
			HeadshotMultiplier: 2.0,
			CriticalChance:     0.05,
			CriticalMultiplier: 1.5,
			ArmorAbsorb:        0.5,
			AssistThreshold:    30,
			MaxHealth:          100,
			MaxArmor:           100,
		},
		AntiCheat: AntiCheatConfig{
			FireRateTolerance: 1.2,
			OriginTolerance:   10,
			WindowSize:        10,
		},
		Healing: HealingConfig{
			TickInterval:        Duration{100 * time.Millisecond},
			MoveCancelThreshold: 0.1,
		},
		Logging: LoggingConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error;
// a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("config: tick_rate must be positive, got %d", c.Server.TickRate)
	}
	if c.Combat.ArmorAbsorb < 0 || c.Combat.ArmorAbsorb > 1 {
		return fmt.Errorf("config: armor_absorb must be in [0,1], got %v", c.Combat.ArmorAbsorb)
	}
	if c.Combat.CriticalChance < 0 || c.Combat.CriticalChance > 1 {
		return fmt.Errorf("config: critical_chance must be in [0,1], got %v", c.Combat.CriticalChance)
	}
	if c.AntiCheat.FireRateTolerance < 1 {
		return fmt.Errorf("config: fire_rate_tolerance must be >= 1, got %v", c.AntiCheat.FireRateTolerance)
	}
	if c.Healing.TickInterval.Duration <= 0 || c.Healing.TickInterval.Duration > 200*time.Millisecond {
		return fmt.Errorf("config: healing tick_interval must be in (0, 200ms], got %v", c.Healing.TickInterval.Duration)
	}
	return nil
}
