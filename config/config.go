package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	RefreshSecret      string `mapstructure:"refresh_secret" envconfig:"JWT_REFRESH_SECRET"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key" envconfig:"STRIPE_SECRET_KEY"`
	WebhookSecret string `mapstructure:"webhook_secret" envconfig:"STRIPE_WEBHOOK_SECRET"`
	ProPriceID    string `mapstructure:"pro_price_id" envconfig:"STRIPE_PRO_PRICE_ID"`
	AgencyPriceID string `mapstructure:"agency_price_id" envconfig:"STRIPE_AGENCY_PRICE_ID"`
}

type EmailConfig struct {
	SMTPHost    string `mapstructure:"smtp_host" envconfig:"SMTP_HOST"`
	SMTPPort    int    `mapstructure:"smtp_port" envconfig:"SMTP_PORT"`
	SMTPUser    string `mapstructure:"smtp_user" envconfig:"SMTP_USER"`
	SMTPPass    string `mapstructure:"smtp_pass" envconfig:"SMTP_PASS"`
	FromAddress string `mapstructure:"from_address" envconfig:"EMAIL_FROM"`
	FromName    string `mapstructure:"from_name"`
}

type CronConfig struct {
	Secret           string        `mapstructure:"secret" envconfig:"CRON_SECRET"`
	OverdueSpec      string        `mapstructure:"overdue_spec"`
	ExpireSpec       string        `mapstructure:"expire_spec"`
	OutboxDrainEvery time.Duration `mapstructure:"outbox_drain_every"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type AppConfig struct {
	BaseURL        string `mapstructure:"base_url" envconfig:"APP_BASE_URL"`
	PlatformFeeBPS int64  `mapstructure:"platform_fee_bps"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Email     EmailConfig     `mapstructure:"email"`
	Cron      CronConfig      `mapstructure:"cron"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	App       AppConfig       `mapstructure:"app"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

// LoadConfig reads config.yml then overlays environment variables.
// Secrets (Stripe keys, cron secret, SMTP credentials) are expected from env.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("jwt.refresh_expiry_hours", 168)
	viper.SetDefault("cron.overdue_spec", "0 6 * * *")
	viper.SetDefault("cron.expire_spec", "30 0 * * *")
	viper.SetDefault("app.platform_fee_bps", 150)
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("outbox.poll_interval", 5*time.Second)
	viper.SetDefault("outbox.retry_attempts", 3)
	viper.SetDefault("outbox.retry_delay", time.Second)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config.Database); err != nil {
		return nil, fmt.Errorf("failed to process database env: %w", err)
	}
	if err := envconfig.Process("", &config.JWT); err != nil {
		return nil, fmt.Errorf("failed to process jwt env: %w", err)
	}
	if err := envconfig.Process("", &config.Redis); err != nil {
		return nil, fmt.Errorf("failed to process redis env: %w", err)
	}
	if err := envconfig.Process("", &config.Stripe); err != nil {
		return nil, fmt.Errorf("failed to process stripe env: %w", err)
	}
	if err := envconfig.Process("", &config.Email); err != nil {
		return nil, fmt.Errorf("failed to process email env: %w", err)
	}
	if err := envconfig.Process("", &config.Cron); err != nil {
		return nil, fmt.Errorf("failed to process cron env: %w", err)
	}
	if err := envconfig.Process("", &config.App); err != nil {
		return nil, fmt.Errorf("failed to process app env: %w", err)
	}

	return &config, nil
}
