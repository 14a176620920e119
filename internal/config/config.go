package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Environment          string   `env:"APP_ENV" envDefault:"development"`
	Port                 int      `env:"PORT" envDefault:"8080"`
	DatabaseURL          string   `env:"DATABASE_URL,required"`
	RedisURL             string   `env:"REDIS_URL,required"`
	SessionSecret        string   `env:"SESSION_SECRET" envDefault:"dev-secret-change-me"`
	GoogleClientID       string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string   `env:"GOOGLE_CLIENT_SECRET"`
	PublicBaseURL        string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AllowedEmailDomain   string   `env:"ALLOWED_EMAIL_DOMAIN"`
	BootstrapAdminEmails []string `env:"BOOTSTRAP_ADMIN_EMAILS" envSeparator:","`
	LoginSessionTTLHours int      `env:"LOGIN_SESSION_TTL_HOURS" envDefault:"168"`
	StoreIdleTTLMinutes  int      `env:"STORE_IDLE_TTL_MINUTES" envDefault:"30"`
	VoteRateLimitPerMin  int      `env:"VOTE_RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel             string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFile              string   `env:"LOG_FILE"`
	LogMaxSizeMB         int      `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups        int      `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays        int      `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) LoginSessionTTL() time.Duration {
	return time.Duration(c.LoginSessionTTLHours) * time.Hour
}

func (c *Config) StoreIdleTTL() time.Duration {
	return time.Duration(c.StoreIdleTTLMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// OAuthRedirectURL is the callback registered with Google.
func (c *Config) OAuthRedirectURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/auth/callback"
}

func (c *Config) Validate(isProduction bool) error {
	if c.AllowedEmailDomain != "" && strings.Contains(c.AllowedEmailDomain, "@") {
		return fmt.Errorf("ALLOWED_EMAIL_DOMAIN must be a bare domain such as example.com")
	}

	if isProduction {
		if err := validateSecret("SESSION_SECRET", c.SessionSecret); err != nil {
			return err
		}

		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			log.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET empty in production: sign-in disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
