package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Application settings
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Provider ProviderConfig `yaml:"provider"`
	S3       S3Config       `yaml:"s3"`
	Postgres PostgresConfig `yaml:"postgres"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
}

// Server settings
type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Address returns the listen address for the HTTP server
func (s ServerConfig) Address() string {
	return ":" + s.Port
}

// Logging settings
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Provider kinds
const (
	ProviderFile     = "file"
	ProviderHTTP     = "http"
	ProviderS3       = "s3"
	ProviderPostgres = "postgres"
)

// Data provider settings
type ProviderConfig struct {
	Kind               string        `yaml:"kind" env:"PROVIDER_KIND" env-default:"file"`
	DataDir            string        `yaml:"data_dir" env:"PROVIDER_DATA_DIR" env-default:"./data"`
	BaseURL            string        `yaml:"base_url" env:"PROVIDER_BASE_URL"`
	Parametrized       bool          `yaml:"parametrized" env:"PROVIDER_PARAMETRIZED" env-default:"false"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"PROVIDER_REQUEST_TIMEOUT" env-default:"10s"`
	LoadTimeout        time.Duration `yaml:"load_timeout" env:"PROVIDER_LOAD_TIMEOUT" env-default:"30s"`
	RateLimitPerSecond int           `yaml:"rate_limit_per_second" env:"PROVIDER_RATE_LIMIT_PER_SECOND" env-default:"100"`
}

// S3/MinIO settings for the s3 provider
type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"dashboard"`
	Prefix          string `yaml:"prefix" env:"S3_PREFIX" env-default:"data"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
}

// Postgres settings for the postgres provider
type PostgresConfig struct {
	DSN      string `yaml:"dsn" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"1"`
}

// Session repository kinds
const (
	SessionRepositoryMemory = "memory"
	SessionRepositoryRedis  = "redis"
)

type SessionConfig struct {
	Repository    string        `yaml:"repository" env:"SESSION_REPOSITORY" env-default:"memory"`
	TTL           time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	NoticeTTL     time.Duration `yaml:"notice_ttl" env:"SESSION_NOTICE_TTL" env-default:"5s"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"adsdash:session:"`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromFile reads a YAML file; environment variables override it
func LoadFromFile(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderFile:
	case ProviderHTTP:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required for the http provider")
		}
	case ProviderS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 provider")
		}
	case ProviderPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}

	switch c.Session.Repository {
	case SessionRepositoryMemory, SessionRepositoryRedis:
	default:
		return fmt.Errorf("unknown session repository %q", c.Session.Repository)
	}

	if c.Provider.RateLimitPerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RATE_LIMIT_PER_SECOND must be positive")
	}

	return nil
}
