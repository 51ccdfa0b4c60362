package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	EncryptionKey string `env:"ENCRYPTION_KEY,required,notEmpty"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	DriveFolderName string `env:"DRIVE_FOLDER_NAME" envDefault:"SaaSBooks"`

	ProtectedPrefixes []string `env:"PROTECTED_PREFIXES" envSeparator:"," envDefault:"/app"`
	LoginPath         string   `env:"LOGIN_PATH" envDefault:"/auth/login"`
	DashboardPath     string   `env:"DASHBOARD_PATH" envDefault:"/app/dashboard"`

	StripeTimeout         time.Duration `env:"STRIPE_TIMEOUT" envDefault:"20s"`
	StripeMaxTransactions int           `env:"STRIPE_MAX_TRANSACTIONS" envDefault:"10000"`
	GoogleTimeout         time.Duration `env:"GOOGLE_TIMEOUT" envDefault:"15s"`
	DriveUploadTimeout    time.Duration `env:"DRIVE_UPLOAD_TIMEOUT" envDefault:"2m"`

	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"10m"`
	LoginRateMax    int           `env:"LOGIN_RATE_MAX" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production controla el atributo Secure de las cookies.
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// GoogleConfigured indica si el login con Google esta habilitado.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}
