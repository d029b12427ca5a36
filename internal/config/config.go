// Package config loads and validates the service configuration from a
// YAML file with environment overrides. Required values are checked
// eagerly at start-up: a missing signing secret or public base URL is a
// deployment mistake and must kill the process, never surface as a
// per-request error.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Public       PublicConfig       `yaml:"public"`
	Captcha      CaptchaConfig      `yaml:"captcha"`
	Token        TokenConfig        `yaml:"token"`
	Audience     AudienceConfig     `yaml:"audience"`
	Mail         MailConfig         `yaml:"mail"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the listen host, honoring the SERVER_HOST override and
// binding to all interfaces inside containers.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// PublicConfig describes how the service is reachable from the outside.
// BaseURL is embedded in confirmation links; its hostname doubles as the
// token issuer so tokens cannot be replayed across deployments.
type PublicConfig struct {
	BaseURL string `yaml:"base_url"`
}

// IssuerHost returns the hostname component of the public base URL.
func (c PublicConfig) IssuerHost() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// CaptchaConfig holds the bot-verification provider settings.
// Provider is one of "recaptcha", "hcaptcha" or "none"; Secret stays
// empty only when the provider is "none".
type CaptchaConfig struct {
	Provider       string  `yaml:"provider"`
	SiteKey        string  `yaml:"site_key"`
	Secret         string  `yaml:"secret"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the verification call timeout as a duration.
func (c CaptchaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TokenConfig holds the signing settings for confirmation tokens.
type TokenConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

// TTL returns the token lifetime as a duration.
func (c TokenConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// AudienceConfig holds the remote contact-store API settings.
type AudienceConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the per-call timeout as a duration.
func (c AudienceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MailConfig holds AWS SES settings for confirmation email dispatch.
type MailConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Sender         string `yaml:"sender"`
	SenderName     string `yaml:"sender_name"`
	SiteName       string `yaml:"site_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the send timeout as a duration.
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SubscriptionConfig holds reconciliation policy knobs.
// UnsubscribeClearsLists controls whether an overall unsubscribe also
// drops per-list membership; leaving it false keeps list preferences
// around for a later resubscribe.
type SubscriptionConfig struct {
	UnsubscribeClearsLists bool `yaml:"unsubscribe_clears_lists"`
}

// RateLimitConfig holds the boundary rate limiter settings. The limiter
// runs only when a redis address is configured.
type RateLimitConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	Requests      int    `yaml:"requests"`
	WindowSeconds int    `yaml:"window_seconds"`
}

// Window returns the counting window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled reports whether PII redaction is on (the default).
func (c LogConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Captcha.Provider == "" {
		cfg.Captcha.Provider = "none"
	}
	if cfg.Captcha.ScoreThreshold == 0 {
		cfg.Captcha.ScoreThreshold = 0.5
	}
	if cfg.Captcha.TimeoutSeconds == 0 {
		cfg.Captcha.TimeoutSeconds = 10
	}
	if cfg.Token.TTLHours == 0 {
		cfg.Token.TTLHours = 24 * 365 // one year
	}
	if cfg.Audience.TimeoutSeconds == 0 {
		cfg.Audience.TimeoutSeconds = 30
	}
	if cfg.Audience.MaxRetries == 0 {
		cfg.Audience.MaxRetries = 3
	}
	if cfg.Mail.Region == "" {
		cfg.Mail.Region = "eu-west-1"
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 30
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads the configuration file and applies environment
// overrides. A .env file is read first if present, so secrets can live
// in .env locally and in real environment variables in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Public.BaseURL = v
	}
	if v := os.Getenv("CAPTCHA_PROVIDER"); v != "" {
		cfg.Captcha.Provider = v
	}
	if v := os.Getenv("CAPTCHA_SITE_KEY"); v != "" {
		cfg.Captcha.SiteKey = v
	}
	if v := os.Getenv("CAPTCHA_SECRET"); v != "" {
		cfg.Captcha.Secret = v
	}
	if v := os.Getenv("CAPTCHA_SCORE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Captcha.ScoreThreshold = f
		}
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.Token.Secret = v
	}
	if v := os.Getenv("AUDIENCE_BASE_URL"); v != "" {
		cfg.Audience.BaseURL = v
	}
	if v := os.Getenv("AUDIENCE_API_KEY"); v != "" {
		cfg.Audience.APIKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Mail.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mail.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mail.SecretKey = v
	}
	if v := os.Getenv("MAIL_SENDER"); v != "" {
		cfg.Mail.Sender = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate checks the invariants that must hold before the service can
// take traffic. Every violation here is fatal at start-up.
func (c *Config) Validate() error {
	if c.Public.BaseURL == "" {
		return fmt.Errorf("public.base_url is required")
	}
	u, err := url.Parse(c.Public.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("public.base_url %q is not an absolute URL", c.Public.BaseURL)
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("token.secret is required")
	}
	switch c.Captcha.Provider {
	case "none":
	case "recaptcha", "hcaptcha":
		if c.Captcha.Secret == "" {
			return fmt.Errorf("captcha.secret is required for provider %q", c.Captcha.Provider)
		}
	default:
		return fmt.Errorf("captcha.provider %q is not one of recaptcha, hcaptcha, none", c.Captcha.Provider)
	}
	if c.Captcha.ScoreThreshold < 0 || c.Captcha.ScoreThreshold > 1 {
		return fmt.Errorf("captcha.score_threshold %v is outside [0,1]", c.Captcha.ScoreThreshold)
	}
	if c.Audience.BaseURL == "" {
		return fmt.Errorf("audience.base_url is required")
	}
	if c.Audience.APIKey == "" {
		return fmt.Errorf("audience.api_key is required")
	}
	if c.Mail.Sender == "" {
		return fmt.Errorf("mail.sender is required")
	}
	return nil
}
