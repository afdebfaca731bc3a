package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	devSigningKey = "dev-secret-key-change-in-production"
	envDev        = "dev"
)

// Server captures process level configuration.
type Server struct {
	// Env names the deployment. Anything other than "dev" refuses the
	// built-in signing key.
	Env           string
	Addr          string
	LogLevel      slog.Level
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	// AdminToken guards operator routes; empty disables them.
	AdminToken string

	Redis     RedisConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Pipeline  Pipeline
}

// RedisConfig configures the shared redis client. An empty URL selects
// in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the postgres audit store. An empty URL keeps
// audit events in memory.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig configures the notification producer. No brokers selects the
// no-op notifier.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig caps requests per client IP over Window. A zero limit
// leaves that class unlimited.
type RateLimitConfig struct {
	Disabled  bool
	Auth      int
	Sensitive int
	Window    time.Duration
}

// Pipeline holds the tunables of both pipelines. It may be overridden by the
// YAML file named in SCORING_CONFIG.
type Pipeline struct {
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	ProfileCacheTTL     time.Duration `yaml:"profile_cache_ttl"`
	ProfileSourceURL    string        `yaml:"profile_source_url"`
	ProfileSourceAPIKey string        `yaml:"-"`
	FixturesPath        string        `yaml:"fixtures_path"`
	CredentialsPath     string        `yaml:"credentials_path"`
	BreakerThreshold    int           `yaml:"breaker_failure_threshold"`
	BreakerCooldown     time.Duration `yaml:"breaker_cooldown"`
	TokenTTL            time.Duration `yaml:"token_ttl"`
	StepUpTTL           time.Duration `yaml:"step_up_ttl"`
	ChallengeTTL        time.Duration `yaml:"challenge_ttl"`
	// Read from the overlay in ApplyYAML; it defaults to on.
	DeviceFingerprints bool `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Server {
	return Server{
		Env:           envDev,
		Addr:          ":8080",
		LogLevel:      slog.LevelInfo,
		JWTSigningKey: devSigningKey,
		JWTIssuer:     "dcaf",
		JWTAudience:   "dcaf-clients",
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{Topic: "dcaf.events"},
		RateLimit: RateLimitConfig{
			Auth:      10,
			Sensitive: 30,
			Window:    time.Minute,
		},
		Pipeline: Pipeline{
			FetchTimeout:       5 * time.Second,
			ProfileCacheTTL:    10 * time.Minute,
			BreakerThreshold:   5,
			BreakerCooldown:    30 * time.Second,
			TokenTTL:           15 * time.Minute,
			StepUpTTL:          5 * time.Minute,
			ChallengeTTL:       5 * time.Minute,
			DeviceFingerprints: true,
		},
	}
}

// Load reads envFile when present, then the environment, then the pipeline
// file named in SCORING_CONFIG.
func Load(envFile string) (Server, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Server{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return Server{}, err
	}
	if path := os.Getenv("SCORING_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read scoring config: %w", err)
		}
		if err := cfg.Pipeline.ApplyYAML(raw); err != nil {
			return Server{}, err
		}
	}
	return cfg, nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Defaults()
	var errs []error

	if env := os.Getenv("DCAF_ENV"); env != "" {
		cfg.Env = strings.ToLower(strings.TrimSpace(env))
	}
	if addr := os.Getenv("DCAF_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if key := os.Getenv("JWT_SIGNING_KEY"); key != "" {
		cfg.JWTSigningKey = key
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for b := range strings.SplitSeq(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	if topic := os.Getenv("DCAF_EVENTS_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}

	if v := os.Getenv("RATE_LIMIT_DISABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_DISABLED: %w", err))
		}
		cfg.RateLimit.Disabled = b
	}
	for name, dst := range map[string]*int{
		"RATE_LIMIT_AUTH":      &cfg.RateLimit.Auth,
		"RATE_LIMIT_SENSITIVE": &cfg.RateLimit.Sensitive,
	} {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Errorf("%s: must be a non-negative integer", name))
				continue
			}
			*dst = n
		}
	}
	if err := durationFromEnv("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window); err != nil {
		errs = append(errs, err)
	}

	p := &cfg.Pipeline
	p.ProfileSourceURL = os.Getenv("PROFILE_SOURCE_URL")
	p.ProfileSourceAPIKey = os.Getenv("PROFILE_SOURCE_API_KEY")
	p.FixturesPath = os.Getenv("FIXTURES_FILE")
	p.CredentialsPath = os.Getenv("CREDENTIALS_FILE")
	if v := os.Getenv("DEVICE_FINGERPRINTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DEVICE_FINGERPRINTS: %w", err))
		}
		p.DeviceFingerprints = b
	}
	for name, dst := range map[string]*time.Duration{
		"FETCH_TIMEOUT":     &p.FetchTimeout,
		"PROFILE_CACHE_TTL": &p.ProfileCacheTTL,
		"TOKEN_TTL":         &p.TokenTTL,
		"STEP_UP_TTL":       &p.StepUpTTL,
		"CHALLENGE_TTL":     &p.ChallengeTTL,
	} {
		if err := durationFromEnv(name, dst); err != nil {
			errs = append(errs, err)
		}
	}
	if !cfg.IsDev() && cfg.UsesDevSigningKey() {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY: required when DCAF_ENV=%s", cfg.Env))
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// IsDev reports whether the process runs in the development environment.
func (s Server) IsDev() bool {
	return s.Env == envDev
}

// UsesDevSigningKey reports whether tokens are signed with the built-in key.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

// ApplyYAML overlays the non-zero fields of a YAML document onto p.
func (p *Pipeline) ApplyYAML(raw []byte) error {
	var overlay struct {
		Pipeline           `yaml:",inline"`
		DeviceFingerprints *bool `yaml:"device_fingerprints"`
	}
	if err := yaml.UnmarshalStrict(raw, &overlay); err != nil {
		return fmt.Errorf("parse scoring config: %w", err)
	}
	o := overlay.Pipeline
	setDuration(&p.FetchTimeout, o.FetchTimeout)
	setDuration(&p.ProfileCacheTTL, o.ProfileCacheTTL)
	setDuration(&p.BreakerCooldown, o.BreakerCooldown)
	setDuration(&p.TokenTTL, o.TokenTTL)
	setDuration(&p.StepUpTTL, o.StepUpTTL)
	setDuration(&p.ChallengeTTL, o.ChallengeTTL)
	if o.ProfileSourceURL != "" {
		p.ProfileSourceURL = o.ProfileSourceURL
	}
	if o.FixturesPath != "" {
		p.FixturesPath = o.FixturesPath
	}
	if o.CredentialsPath != "" {
		p.CredentialsPath = o.CredentialsPath
	}
	if o.BreakerThreshold > 0 {
		p.BreakerThreshold = o.BreakerThreshold
	}
	if overlay.DeviceFingerprints != nil {
		p.DeviceFingerprints = *overlay.DeviceFingerprints
	}
	return nil
}

func durationFromEnv(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive", name)
	}
	*dst = d
	return nil
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
