package config

import (
	"errors"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string `env:"APP_ENV"`
	Port    string `env:"PORT"`
	BaseURL string `env:"BASE_URL"`

	DBDriver string `env:"DB_DRIVER"`
	DBDSN    string `env:"DB_DSN"`

	JWTSecret   string `env:"JWT_SECRET"`
	CORSOrigins string `env:"CORS_ORIGINS"`
	LogLevel    string `env:"LOG_LEVEL"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`

	IncidentLogPath string `env:"INCIDENT_LOG_PATH"`

	// Go duration string, e.g. "15s".
	RegistrationTimeout string `env:"BUSINESS_REGISTRATION_TIMEOUT"`
}

// Load reads the optional .env file at path (".env" when empty) and then the process environment.
// A missing file is not an error: production reads plain environment variables.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.Port
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.CORSOrigins == "" {
		c.CORSOrigins = "http://localhost:5173"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash-001"
	}
	if c.IncidentLogPath == "" {
		c.IncidentLogPath = "incidents.json"
	}
	if c.RegistrationTimeout == "" {
		c.RegistrationTimeout = "15s"
	}
}

func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RegistrationDeadline falls back to 15s when the configured value does not parse.
func (c *Config) RegistrationDeadline() time.Duration {
	d, err := time.ParseDuration(c.RegistrationTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }
