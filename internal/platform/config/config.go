package config

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Encryption    EncryptionConfig    `mapstructure:"encryption"`
	Webhooks      WebhooksConfig      `mapstructure:"webhooks"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Usage         UsageConfig         `mapstructure:"usage"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	InboundPerMinute int `mapstructure:"inbound_per_minute"`
	APIPerMinute     int `mapstructure:"api_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// EncryptionConfig holds the master key used to protect webhook secrets at rest.
// The scrypt cost parameters are tunable so key derivation stays bounded under load.
type EncryptionConfig struct {
	MasterKey      string `mapstructure:"master_key"`
	ScryptN        int    `mapstructure:"scrypt_n"`
	ScryptR        int    `mapstructure:"scrypt_r"`
	ScryptP        int    `mapstructure:"scrypt_p"`
	KDFConcurrency int    `mapstructure:"kdf_concurrency"`
}

type WebhooksConfig struct {
	MaxBodySize     int64             `mapstructure:"max_body_size"`
	TokenHeader     string            `mapstructure:"token_header"`
	SignatureHeader string            `mapstructure:"signature_header"`
	DefaultAuthMode string            `mapstructure:"default_auth_mode"`
	AuthModes       map[string]string `mapstructure:"auth_modes"`
	CacheTTL        time.Duration     `mapstructure:"cache_ttl"`
}

type NotificationsConfig struct {
	Email EmailConfig `mapstructure:"email"`
	Slack SlackConfig `mapstructure:"slack"`
}

type EmailConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	FromAddress string        `mapstructure:"from_address"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SlackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type UsageConfig struct {
	DailyLimit    int           `mapstructure:"daily_limit"`
	MonthlyLimit  int           `mapstructure:"monthly_limit"`
	RetentionDays int           `mapstructure:"retention_days"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

var ErrMissingMasterKey = errors.New("config: encryption.master_key is required")

func Load(path string) (*Config, error) {
	// A local .env is optional; real deployments inject the environment directly.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.path", "data/hookflo.db")
	v.SetDefault("database.max_connections", 10)

	// Secrets default to empty so AutomaticEnv can still supply them.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "hookflo")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("rate_limit.inbound_per_minute", 600)
	v.SetDefault("rate_limit.api_per_minute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("encryption.master_key", "")
	v.SetDefault("encryption.scrypt_n", 16384)
	v.SetDefault("encryption.scrypt_r", 8)
	v.SetDefault("encryption.scrypt_p", 1)
	v.SetDefault("encryption.kdf_concurrency", runtime.NumCPU())

	v.SetDefault("webhooks.max_body_size", 1<<20)
	v.SetDefault("webhooks.token_header", "x-webhook-token")
	v.SetDefault("webhooks.signature_header", "x-webhook-signature")
	v.SetDefault("webhooks.default_auth_mode", "shared_token")
	v.SetDefault("webhooks.cache_ttl", 30*time.Second)

	v.SetDefault("notifications.email.provider", "resend")
	v.SetDefault("notifications.email.api_key", "")
	v.SetDefault("notifications.email.base_url", "https://api.resend.com")
	v.SetDefault("notifications.email.from_address", "Hookflo <notifications@hookflo.com>")
	v.SetDefault("notifications.email.timeout", 10*time.Second)
	v.SetDefault("notifications.slack.timeout", 10*time.Second)

	v.SetDefault("usage.daily_limit", 0)
	v.SetDefault("usage.monthly_limit", 0)
	v.SetDefault("usage.retention_days", 90)
	v.SetDefault("usage.prune_interval", time.Hour)
}

// Validate reports configuration that must be fixed before the server can start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Encryption.MasterKey) == "" {
		return ErrMissingMasterKey
	}
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	return nil
}
