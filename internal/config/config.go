package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CodesConfig struct {
	ValidityWindow     time.Duration `yaml:"validity_window"`      // default 24h
	MaxGenerateRetries int           `yaml:"max_generate_retries"` // collision retry ceiling
	BatchMax           int           `yaml:"batch_max"`            // seed tool upper bound
}

type RateLimitConfig struct {
	ValidatePerMinute int           `yaml:"validate_per_minute"`
	Window            time.Duration `yaml:"window"`
}

type SecurityConfig struct {
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

type SchedConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Codes     CodesConfig     `yaml:"codes"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`
	Sched     SchedConfig     `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path and applies environment overrides
// (DATABASE_URL, REDIS_URL, API_KEY, JWT_SECRET) so deployments can avoid
// secrets on disk.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Security.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Security.JWTSecret = v
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Codes.ValidityWindow == 0 {
		c.Codes.ValidityWindow = 24 * time.Hour
	}
	if c.Codes.MaxGenerateRetries == 0 {
		c.Codes.MaxGenerateRetries = 5
	}
	if c.Codes.BatchMax == 0 {
		c.Codes.BatchMax = 1000
	}
	if c.RateLimit.ValidatePerMinute == 0 {
		c.RateLimit.ValidatePerMinute = 30
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Security.JWTTTL == 0 {
		c.Security.JWTTTL = 30 * time.Minute
	}
	if c.Sched.StatsInterval == 0 {
		c.Sched.StatsInterval = time.Minute
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Security.APIKey == "" && !c.Runtime.Dev {
		return errors.New("security.api_key is required outside dev mode")
	}
	return nil
}
