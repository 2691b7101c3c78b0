// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// APIKey is the shared secret every request must carry in X-Api-Key.
	APIKey string `mapstructure:"API_KEY"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "taskboard-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "taskboard-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTTTL is the session token lifetime (e.g. "1h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// EnvelopeSecret is the pre-shared transport secret for credential envelopes.
	// A 64-char hex value is used directly as the AES key; anything else is stretched with argon2id.
	EnvelopeSecret string `mapstructure:"ENVELOPE_SECRET"`
	// EnvelopeSalt is the argon2id salt used when EnvelopeSecret is not raw hex.
	EnvelopeSalt string `mapstructure:"ENVELOPE_SALT"`
	// LockoutSoftThreshold is the failed-attempt count that trips a temporary lock.
	LockoutSoftThreshold int `mapstructure:"LOCKOUT_SOFT_THRESHOLD"`
	// LockoutDuration is how long a temporary lock lasts (e.g. "15m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// LockoutHardCycles is the number of full lock cycles before the lock becomes permanent.
	LockoutHardCycles int `mapstructure:"LOCKOUT_HARD_CYCLES"`
	// OTLPEndpoint is the OTLP collector endpoint (e.g. http://localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
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
	v.SetDefault("API_KEY", "")
	v.SetDefault("JWT_ISSUER", "taskboard-auth")
	v.SetDefault("JWT_AUDIENCE", "taskboard-api")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ENVELOPE_SECRET", "")
	v.SetDefault("ENVELOPE_SALT", "taskboard-envelope")
	v.SetDefault("LOCKOUT_SOFT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", "15m")
	v.SetDefault("LOCKOUT_HARD_CYCLES", 3)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
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

	if cfg.LockoutSoftThreshold < 1 {
		return nil, errors.New("config: LOCKOUT_SOFT_THRESHOLD must be at least 1")
	}
	if cfg.LockoutHardCycles < 1 {
		return nil, errors.New("config: LOCKOUT_HARD_CYCLES must be at least 1")
	}

	if cfg.Env == "production" && cfg.APIKey == "" {
		return nil, errors.New("config: API_KEY must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// LockDuration parses LockoutDuration as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) LockDuration() time.Duration {
	d, err := time.ParseDuration(c.LockoutDuration)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}
