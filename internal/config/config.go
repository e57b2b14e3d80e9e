// Package config loads server settings from defaults, an optional YAML file
// and PRICER_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/atmx/pricing-engine/internal/limits"
	"github.com/atmx/pricing-engine/internal/random"
)

// EnvPrefix prefixes every environment override, e.g. PRICER_LIMITS_MAX_PATHS.
const EnvPrefix = "PRICER"

// Config is the effective server configuration.
type Config struct {
	Port           int           `mapstructure:"port"            validate:"required,min=1,max=65535"`
	RedisURL       string        `mapstructure:"redis_url"       validate:"omitempty,url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`
	Workers        int           `mapstructure:"workers"         validate:"min=1"`
	DefaultSeed    uint64        `mapstructure:"default_seed"`
	Limits         LimitsConfig  `mapstructure:"limits"`
}

// LimitsConfig holds the per-request resource ceilings.
type LimitsConfig struct {
	MaxPaths        int   `mapstructure:"max_paths"         validate:"min=2"`
	MaxSteps        int   `mapstructure:"max_steps"         validate:"min=1,max=1000"`
	MaxPathCells    int64 `mapstructure:"max_path_cells"    validate:"min=2"`
	MaxLatticeSteps int   `mapstructure:"max_lattice_steps" validate:"min=1"`
	MaxIterations   int   `mapstructure:"max_iterations"    validate:"min=1"`
}

// Budget converts the limits into the form the pricing service enforces.
func (c *Config) Budget() limits.Budget {
	return limits.Budget{
		MaxPaths:        c.Limits.MaxPaths,
		MaxSteps:        c.Limits.MaxSteps,
		MaxPathCells:    c.Limits.MaxPathCells,
		MaxLatticeSteps: c.Limits.MaxLatticeSteps,
		MaxIterations:   c.Limits.MaxIterations,
	}
}

func setDefaults(v *viper.Viper) {
	b := limits.DefaultBudget()
	v.SetDefault("port", 8080)
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("default_seed", random.DefaultSeed)
	v.SetDefault("limits.max_paths", b.MaxPaths)
	v.SetDefault("limits.max_steps", b.MaxSteps)
	v.SetDefault("limits.max_path_cells", b.MaxPathCells)
	v.SetDefault("limits.max_lattice_steps", b.MaxLatticeSteps)
	v.SetDefault("limits.max_iterations", b.MaxIterations)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}
