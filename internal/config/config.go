package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/clinic-console/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-console/pkg/worker"
)

// EnvPrefix is the prefix for environment overrides, e.g. CLINIC_DATABASE_HOST.
const EnvPrefix = "CLINIC"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Draft     DraftConfig     `mapstructure:"draft"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Commit    CommitConfig    `mapstructure:"commit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" split_words:"true"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" split_words:"true"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" split_words:"true"`
	// TimeZone is used for timestamps in consultation exports.
	TimeZone string `mapstructure:"time_zone" split_words:"true"`
	// MetricsPort serves health and metrics for the worker binary.
	MetricsPort int `mapstructure:"metrics_port" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

// StorageConfig selects and configures the object store holding clinic media.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key" split_words:"true"`
	SecretKey     string `mapstructure:"secret_key" split_words:"true"`
	UseSSL        bool   `mapstructure:"use_ssl" split_words:"true"`
	PublicBaseURL string `mapstructure:"public_base_url" split_words:"true"`
}

type DraftConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxFileBytes   int64    `mapstructure:"max_file_bytes" split_words:"true"`
	AllowedTypes   []string `mapstructure:"allowed_types" split_words:"true"`
	GalleryMin     int      `mapstructure:"gallery_min" split_words:"true"`
	GallerySoftMax int      `mapstructure:"gallery_soft_max" split_words:"true"`
}

type CommitConfig struct {
	MaxCompensations int `mapstructure:"max_compensations" split_words:"true"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

// NotifierConfig drives the feedback notification worker.
type NotifierConfig struct {
	Recipients    []string      `mapstructure:"recipients"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 45*time.Second)
	v.SetDefault("server.max_body_bytes", 96<<20)
	v.SetDefault("server.time_zone", "UTC")
	v.SetDefault("server.metrics_port", 8081)

	v.SetDefault("log.level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("storage.driver", "minio")
	v.SetDefault("storage.bucket", "clinic-media")

	v.SetDefault("draft.driver", "memory")
	v.SetDefault("draft.ttl", 2*time.Hour)

	v.SetDefault("upload.max_file_bytes", 10<<20)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp", "image/gif"})
	v.SetDefault("upload.gallery_min", 3)
	v.SetDefault("upload.gallery_soft_max", 7)

	v.SetDefault("commit.max_compensations", 64)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("notifier.retry_attempts", 3)
	v.SetDefault("notifier.retry_delay", 2*time.Second)
}

// LoadConfig reads config.yml (if any), then a .env file, then CLINIC_*
// environment overrides, and validates the result.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		problems = append(problems, fmt.Sprintf("server.time_zone %q is not a known zone", c.Server.TimeZone))
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		problems = append(problems, "database.host and database.name are required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "minio", "s3":
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required")
		}
		if c.Storage.Driver == "minio" && c.Storage.Endpoint == "" {
			problems = append(problems, "storage.endpoint is required for minio")
		}
		if c.Storage.PublicBaseURL == "" {
			problems = append(problems, "storage.public_base_url is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.Draft.Driver {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("unknown draft.driver %q", c.Draft.Driver))
	}
	if c.Draft.TTL <= 0 {
		problems = append(problems, "draft.ttl must be positive")
	}

	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Upload.MaxFileBytes <= 0 {
		problems = append(problems, "upload.max_file_bytes must be positive")
	}
	if c.Upload.GalleryMin < 0 || (c.Upload.GallerySoftMax > 0 && c.Upload.GallerySoftMax < c.Upload.GalleryMin) {
		problems = append(problems, "upload.gallery_soft_max must not be below upload.gallery_min")
	}
	if c.Commit.MaxCompensations <= 0 {
		problems = append(problems, "commit.max_compensations must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *NotifierConfig) ToWorkerConfig() worker.FeedbackNotifierConfig {
	return worker.FeedbackNotifierConfig{
		Recipients:    c.Recipients,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}
