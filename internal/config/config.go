// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CheckoutPerMinute caps checkout attempts per user; 0 disables the limit.
	CheckoutPerMinute int `yaml:"checkout_per_minute"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConns       int32         `yaml:"max_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	StatsInterval  time.Duration `yaml:"stats_interval"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

type PhonePeConfig struct {
	MerchantID  string        `yaml:"merchant_id"`
	SaltKey     string        `yaml:"salt_key"`
	SaltIndex   string        `yaml:"salt_index"`
	BaseURL     string        `yaml:"base_url"`
	RedirectURL string        `yaml:"redirect_url"`
	CallbackURL string        `yaml:"callback_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Backoff     time.Duration `yaml:"backoff"`
}

type PaymentConfig struct {
	Provider string        `yaml:"provider"` // phonepe | noop
	PhonePe  PhonePeConfig `yaml:"phonepe"`
	// PendingExpiry is how long a checkout may stay unconfirmed before the
	// reconciler gives up on it.
	PendingExpiry time.Duration `yaml:"pending_expiry"`
}

type BillingConfig struct {
	MinAdvance int64  `yaml:"min_advance"` // rupees
	Timezone   string `yaml:"timezone"`
}

type SchedulerConfig struct {
	ReconcileCron    string        `yaml:"reconcile_cron"`
	RefreshCron      string        `yaml:"refresh_cron"`
	ReconcileAfter   time.Duration `yaml:"reconcile_after"`
	ReconcileBatch   int           `yaml:"reconcile_batch"`
	ReconcileWorkers int           `yaml:"reconcile_workers"`
	LockTTL          time.Duration `yaml:"lock_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type AppConfig struct {
	Version string `yaml:"version"`
	Commit  string `yaml:"commit"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`
	App       AppConfig       `yaml:"app"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, lets a local .env and the process
// environment override secrets, then applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw YAML, applies environment overrides and defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	override(&c.Database.URL, "DATABASE_URL")
	override(&c.Redis.URL, "REDIS_URL")
	override(&c.Payment.PhonePe.MerchantID, "PHONEPE_MERCHANT_ID")
	override(&c.Payment.PhonePe.SaltKey, "PHONEPE_SALT_KEY")
	override(&c.Payment.PhonePe.SaltIndex, "PHONEPE_SALT_INDEX")
	override(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")
	if v := os.Getenv("BILLING_MIN_ADVANCE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BILLING_MIN_ADVANCE: %w", err)
		}
		c.Billing.MinAdvance = n
	}
	return nil
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = orDuration(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDuration(c.HTTP.WriteTimeout, 30*time.Second)
	c.HTTP.RequestTimeout = orDuration(c.HTTP.RequestTimeout, 25*time.Second)
	c.HTTP.ShutdownTimeout = orDuration(c.HTTP.ShutdownTimeout, 15*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Database.ConnectTimeout = orDuration(c.Database.ConnectTimeout, 5*time.Second)
	c.Database.StatsInterval = orDuration(c.Database.StatsInterval, 15*time.Second)
	c.Redis.TTL = orDuration(c.Redis.TTL, time.Hour)

	if c.Payment.Provider == "" {
		c.Payment.Provider = "phonepe"
	}
	pp := &c.Payment.PhonePe
	if pp.BaseURL == "" {
		pp.BaseURL = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	}
	if pp.SaltIndex == "" {
		pp.SaltIndex = "1"
	}
	pp.Timeout = orDuration(pp.Timeout, 20*time.Second)
	if pp.MaxRetries < 0 {
		pp.MaxRetries = 0
	} else if pp.MaxRetries == 0 {
		pp.MaxRetries = 2
	}
	pp.Backoff = orDuration(pp.Backoff, 500*time.Millisecond)
	c.Payment.PendingExpiry = orDuration(c.Payment.PendingExpiry, 24*time.Hour)

	if c.Billing.MinAdvance <= 0 {
		c.Billing.MinAdvance = 500
	}
	if c.Billing.Timezone == "" {
		c.Billing.Timezone = "Asia/Kolkata"
	}

	s := &c.Scheduler
	if s.ReconcileCron == "" {
		s.ReconcileCron = "@every 2m"
	}
	if s.RefreshCron == "" {
		s.RefreshCron = "5 0 * * *"
	}
	s.ReconcileAfter = orDuration(s.ReconcileAfter, 5*time.Minute)
	if s.ReconcileBatch <= 0 {
		s.ReconcileBatch = 100
	}
	if s.ReconcileWorkers <= 0 {
		s.ReconcileWorkers = 4
	}
	s.LockTTL = orDuration(s.LockTTL, 90*time.Second)

	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "messmate.events"
	}
	if c.App.Version == "" {
		c.App.Version = "dev"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	switch c.Payment.Provider {
	case "noop":
		if !c.Runtime.Dev {
			return errors.New("payment.provider noop is only allowed in dev mode")
		}
	case "phonepe":
		pp := c.Payment.PhonePe
		if pp.MerchantID == "" || pp.SaltKey == "" {
			return errors.New("payment.phonepe.merchant_id and salt_key are required")
		}
		if pp.CallbackURL == "" || pp.RedirectURL == "" {
			return errors.New("payment.phonepe.callback_url and redirect_url are required")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}
	return nil
}

// Location returns the billing timezone; callers rely on validate having run.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Billing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
