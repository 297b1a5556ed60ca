package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Simulation  SimulationConfig  `toml:"simulation"`
	Needs       NeedsConfig       `toml:"needs"`
	Interaction InteractionConfig `toml:"interaction"`
	Logging     LoggingConfig     `toml:"logging"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
}

type ServerConfig struct {
	Addr          string `toml:"addr"`
	PublicURL     string `toml:"public_url"` // encoded into /qr.png
	MaxConnsPerIP int    `toml:"max_conns_per_ip"`
	MaxTotalConns int    `toml:"max_total_conns"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // empty disables accounts, stats and analytics
}

type SimulationConfig struct {
	PhysicsRate     int           `toml:"physics_rate"` // Hz
	NetworkRate     int           `toml:"network_rate"` // Hz
	CellSize        float64       `toml:"cell_size"`
	MaxSurvivors    int           `toml:"max_survivors"`
	MaxOverseers    int           `toml:"max_overseers"`
	DeathCooldown   time.Duration `toml:"death_cooldown"`
	JoinWindow      time.Duration `toml:"join_window"`
	BodyLifetime    time.Duration `toml:"body_lifetime"`
	GroundFoodRot   time.Duration `toml:"ground_food_rot"`
	SproutAfter     time.Duration `toml:"sprout_after"`
	MatureAfter     time.Duration `toml:"mature_after"`
	RotAfter        time.Duration `toml:"rot_after"`
	WeedChance      float64       `toml:"weed_chance"` // per second, growing plants only
	InitialCameras  int           `toml:"initial_cameras"`
	WaitingAreaX    float64       `toml:"waiting_area_x"`
	WaitingAreaZ    float64       `toml:"waiting_area_z"`
	WaitingAreaSize float64       `toml:"waiting_area_size"`
	Seed            int64         `toml:"seed"` // 0 = time based
}

type NeedsConfig struct {
	HungerDecay  float64 `toml:"hunger_decay"` // points per second
	ThirstDecay  float64 `toml:"thirst_decay"`
	RestDecay    float64 `toml:"rest_decay"`
	RestRestore  float64 `toml:"rest_restore"` // points per second while sleeping, before multiplier
	SleepBaseMul float64 `toml:"sleep_base_multiplier"`
	SleepMaxMul  float64 `toml:"sleep_max_multiplier"`
}

type InteractionConfig struct {
	Radius          float64       `toml:"radius"`
	SurvivorEye     float64       `toml:"survivor_eye_height"`
	OverseerEye     float64       `toml:"overseer_eye_height"`
	OverseerReach   float64       `toml:"overseer_reach"`
	WashDuration    time.Duration `toml:"wash_duration"`
	CutDuration     time.Duration `toml:"cut_duration"`
	DrinkValue      float64       `toml:"drink_value"`
	RawFoodValue    float64       `toml:"raw_food_value"`
	WashedFoodValue float64       `toml:"washed_food_value"`
	ChopFoodValue   float64       `toml:"chopped_food_value"`
	MealValue       float64       `toml:"meal_value"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	MessagesPerSecond float64 `toml:"messages_per_second"`
	Burst             int     `toml:"burst"`
}

// LoadConfig reads a TOML file over the defaults. An empty path returns defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.PhysicsRate <= 0 || c.Simulation.NetworkRate <= 0 {
		return fmt.Errorf("simulation rates must be positive")
	}
	if c.Simulation.NetworkRate > c.Simulation.PhysicsRate {
		return fmt.Errorf("network_rate %d exceeds physics_rate %d", c.Simulation.NetworkRate, c.Simulation.PhysicsRate)
	}
	if c.Simulation.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive")
	}
	if c.Needs.SleepMaxMul < c.Needs.SleepBaseMul {
		return fmt.Errorf("sleep_max_multiplier below sleep_base_multiplier")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			PublicURL:     "http://localhost:8080/",
			MaxConnsPerIP: 5,
			MaxTotalConns: 200,
		},
		Database: DatabaseConfig{
			Path: "world.db",
		},
		Simulation: SimulationConfig{
			PhysicsRate:     60,
			NetworkRate:     20,
			CellSize:        10,
			MaxSurvivors:    8,
			MaxOverseers:    2,
			DeathCooldown:   10 * time.Second,
			JoinWindow:      15 * time.Second,
			BodyLifetime:    120 * time.Second,
			GroundFoodRot:   180 * time.Second,
			SproutAfter:     20 * time.Second,
			MatureAfter:     40 * time.Second,
			RotAfter:        90 * time.Second,
			WeedChance:      0.02,
			InitialCameras:  1,
			WaitingAreaX:    0,
			WaitingAreaZ:    -1000,
			WaitingAreaSize: 12,
		},
		Needs: NeedsConfig{
			HungerDecay:  100.0 / 600,
			ThirstDecay:  100.0 / 480,
			RestDecay:    100.0 / 900,
			RestRestore:  100.0 / 60,
			SleepBaseMul: 1.0,
			SleepMaxMul:  3.0,
		},
		Interaction: InteractionConfig{
			Radius:          2.5,
			SurvivorEye:     1.6,
			OverseerEye:     12,
			OverseerReach:   25,
			WashDuration:    3 * time.Second,
			CutDuration:     4 * time.Second,
			DrinkValue:      35,
			RawFoodValue:    10,
			WashedFoodValue: 15,
			ChopFoodValue:   20,
			MealValue:       45,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: 50,
			Burst:             80,
		},
	}
}
