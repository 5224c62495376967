// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the demo host listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for the server, migrate, and seed commands.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// ChallengeTokenSecret signs challenge tokens (HS256). Required by the server.
	ChallengeTokenSecret string `mapstructure:"CHALLENGE_TOKEN_SECRET"`
	// ChallengeTokenTTL is how long a rendered challenge stays answerable (e.g. "5m").
	ChallengeTokenTTL string `mapstructure:"CHALLENGE_TOKEN_TTL"`
	// ChallengeTokenIssuer is the iss claim on challenge tokens.
	ChallengeTokenIssuer string `mapstructure:"CHALLENGE_TOKEN_ISSUER"`
	// TOTPIssuer names the service in authenticator-app enrollment URLs.
	TOTPIssuer string `mapstructure:"TOTP_ISSUER"`
	// EmailChallengeTTL is how long an emailed code stays valid (e.g. "10m").
	EmailChallengeTTL string `mapstructure:"EMAIL_CHALLENGE_TTL"`
	// SendGridAPIKey is the SendGrid API key for emailed codes. When empty the
	// email-code source is not registered.
	SendGridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	// EmailFromAddress is the sender address for emailed codes.
	EmailFromAddress string `mapstructure:"EMAIL_FROM_ADDRESS"`
	// EmailFromName is the sender display name for emailed codes.
	EmailFromName string `mapstructure:"EMAIL_FROM_NAME"`
	// BcryptCost is the bcrypt cost factor (4-31) for recovery-code hashes; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CHALLENGE_TOKEN_SECRET", "")
	v.SetDefault("CHALLENGE_TOKEN_TTL", "5m")
	v.SetDefault("CHALLENGE_TOKEN_ISSUER", "twofactor-bridge")
	v.SetDefault("TOTP_ISSUER", "twofactor-bridge")
	v.SetDefault("EMAIL_CHALLENGE_TTL", "10m")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("EMAIL_FROM_ADDRESS", "")
	v.SetDefault("EMAIL_FROM_NAME", "Sign-in codes")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.SendGridAPIKey != "" && cfg.EmailFromAddress == "" {
		return nil, errors.New("config: EMAIL_FROM_ADDRESS must be set when SENDGRID_API_KEY is set")
	}

	return &cfg, nil
}

// TokenTTL parses ChallengeTokenTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.ChallengeTokenTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// EmailTTL parses EmailChallengeTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) EmailTTL() time.Duration {
	d, err := time.ParseDuration(c.EmailChallengeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}
