package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const devJWTSecret = "supersecretjwtkey"

// Auth providers accepted by AUTH_PROVIDER
const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AuthProvider            string        `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret               string        `env:"JWT_SECRET" envDefault:"supersecretjwtkey"`
	JWTTTL                  time.Duration `env:"JWT_TTL" envDefault:"72h"`
	FirebaseCredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH" envDefault:"./firebase_credentials.json"`

	PostgresConnStr string `env:"POSTGRES_CONN_STR"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"tilehub"`

	MetricsPort string   `env:"METRICS_PORT" envDefault:"9090"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, assuming environment variables are set.")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.AuthProvider {
	case AuthProviderJWT, AuthProviderFirebase:
	default:
		return fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", AuthProviderJWT, AuthProviderFirebase, c.AuthProvider)
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}
