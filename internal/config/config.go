package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the participation API.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	// Domain policy knobs consumed by the workflow engine.
	VerificationThreshold  int
	InvitationExpiryHours  int
	InvitationExpiryMaxHrs int
	PremiumExemptCapacity  int
	PendingCacheTTL        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PARTICIPATION")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Participation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8001")
	v.SetDefault("verification.threshold", 3)
	v.SetDefault("invitation.expiry_hours", 72)
	v.SetDefault("invitation.expiry_max_hours", 168)
	v.SetDefault("premium.exempt_capacity", 100)
	v.SetDefault("pending.cache_ttl", "2m")

	ttlString := v.GetString("pending.cache_ttl")
	if ttlString == "" {
		ttlString = "2m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid pending verification cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		VerificationThreshold:  v.GetInt("verification.threshold"),
		InvitationExpiryHours:  v.GetInt("invitation.expiry_hours"),
		InvitationExpiryMaxHrs: v.GetInt("invitation.expiry_max_hours"),
		PremiumExemptCapacity:  v.GetInt("premium.exempt_capacity"),
		PendingCacheTTL:        ttl,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.VerificationThreshold <= 0 {
		cfg.VerificationThreshold = 3
	}

	if cfg.InvitationExpiryHours < 1 || cfg.InvitationExpiryHours > cfg.InvitationExpiryMaxHrs {
		cfg.InvitationExpiryHours = 72
	}

	if cfg.InvitationExpiryMaxHrs <= 0 {
		cfg.InvitationExpiryMaxHrs = 168
	}

	if cfg.PremiumExemptCapacity <= 0 {
		cfg.PremiumExemptCapacity = 100
	}

	return cfg, nil
}
