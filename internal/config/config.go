package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Report       ReportConfig       `yaml:"report"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the CRM PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the configured connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds Redis settings. Redis is optional; without it the run
// lock falls back to a PostgreSQL advisory lock.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// SegmentationConfig holds the lifecycle segment job settings
type SegmentationConfig struct {
	BatchSize      int    `yaml:"batch_size"`
	ScheduleHour   int    `yaml:"schedule_hour"`
	ScheduleMinute int    `yaml:"schedule_minute"`
	Timezone       string `yaml:"timezone"` // IANA name; empty means process local time
	LockKey        string `yaml:"lock_key"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	SchedulerOn    *bool  `yaml:"scheduler_enabled"`
}

// LockTTL returns the run lock lease as a duration
func (c SegmentationConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Location resolves the timezone the schedule and the classifier run in.
func (c SegmentationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("segmentation timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SchedulerEnabled reports whether the daily trigger should run in-process.
func (c SegmentationConfig) SchedulerEnabled() bool {
	return c.SchedulerOn == nil || *c.SchedulerOn
}

// ReportConfig holds the destination for run reports. S3Bucket wins over
// LocalPath when both are set.
type ReportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ReportConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on (default true).
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Segmentation.BatchSize <= 0 {
		cfg.Segmentation.BatchSize = 1000
	}
	// 03:00 unless configured; hour 0 is only honoured together with a minute.
	if cfg.Segmentation.ScheduleHour == 0 && cfg.Segmentation.ScheduleMinute == 0 {
		cfg.Segmentation.ScheduleHour = 3
	}
	if cfg.Segmentation.LockKey == "" {
		cfg.Segmentation.LockKey = "segment-update"
	}
	if cfg.Segmentation.LockTTLSeconds == 0 {
		cfg.Segmentation.LockTTLSeconds = 600
	}
	if cfg.Report.S3Prefix == "" {
		cfg.Report.S3Prefix = "segment-runs"
	}
	if cfg.Report.AWSRegion == "" {
		cfg.Report.AWSRegion = "ap-northeast-2"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate rejects settings the service cannot run with.
func (cfg *Config) Validate() error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	s := cfg.Segmentation
	if s.ScheduleHour < 0 || s.ScheduleHour > 23 || s.ScheduleMinute < 0 || s.ScheduleMinute > 59 {
		return fmt.Errorf("invalid segment schedule %02d:%02d", s.ScheduleHour, s.ScheduleMinute)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if cfg.Report.Enabled && cfg.Report.S3Bucket == "" && cfg.Report.LocalPath == "" {
		return fmt.Errorf("report enabled without s3_bucket or local_path")
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path skips the YAML file and starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SEGMENT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Segmentation.BatchSize = n
		}
	}
	if v := os.Getenv("SEGMENT_TIMEZONE"); v != "" {
		cfg.Segmentation.Timezone = v
	}
	if v := os.Getenv("SEGMENT_REPORT_BUCKET"); v != "" {
		cfg.Report.S3Bucket = v
		cfg.Report.Enabled = true
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Report.AWSRegion = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
