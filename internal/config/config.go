package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"PORT" envDefault:"3000"`

	StoreDriver    string `env:"STORE_DRIVER" envDefault:"redis"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"quiz-auth:"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"EMAIL_USER"`
	SMTPPass     string `env:"EMAIL_PASS"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Scamester"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	JWTSecret               string `env:"JWT_SECRET"`
	JWTTTLMinutes           int    `env:"JWT_TTL_MINUTES" envDefault:"60"`

	ModelAPIBaseURL string `env:"MODEL_API_BASE_URL"`
	ModelAPIToken   string `env:"MODEL_API_TOKEN"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	BcryptCost         int      `env:"BCRYPT_COST" envDefault:"10"`
}

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreRedis, StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
