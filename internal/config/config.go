package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"gasroute/internal/opt"
)

// Config is the full service configuration, sourced from the environment.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	// Depot coordinates; all routes start and end here.
	DepotLat float64 `envconfig:"DEPOT_LAT"`
	DepotLng float64 `envconfig:"DEPOT_LNG"`

	// Solver defaults, overridable per request.
	Algorithm    string  `envconfig:"SOLVER_ALGORITHM" default:"local_search"`
	TimeBudgetMs int     `envconfig:"SOLVER_TIME_BUDGET_MS" default:"2000"`
	Seed         int64   `envconfig:"SOLVER_SEED"`
	SpeedKph     float64 `envconfig:"SOLVER_SPEED_KPH" default:"40"`

	// Optional YAML profile with objective weights; see SolverProfile.
	SolverProfile string `envconfig:"SOLVER_PROFILE"`

	// RateLimitRPS caps API requests per second (0 disables).
	RateLimitRPS float64 `envconfig:"RATE_LIMIT_RPS"`
}

// SolverProfile is the YAML overlay for objective tuning.
type SolverProfile struct {
	SpeedKph float64     `yaml:"speedKph"`
	Weights  opt.Weights `yaml:"weights"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// LoadWeights resolves the objective weights: profile file when configured,
// defaults otherwise.
func (c *Config) LoadWeights() (opt.Weights, float64, error) {
	w := opt.DefaultWeights()
	speed := c.SpeedKph
	if c.SolverProfile == "" {
		return w, speed, nil
	}
	raw, err := os.ReadFile(c.SolverProfile)
	if err != nil {
		return w, speed, fmt.Errorf("reading solver profile: %w", err)
	}
	var p SolverProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return w, speed, fmt.Errorf("parsing solver profile: %w", err)
	}
	if p.Weights != (opt.Weights{}) {
		w = p.Weights
	}
	if p.SpeedKph > 0 {
		speed = p.SpeedKph
	}
	return w, speed, nil
}
