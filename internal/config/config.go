package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

const (
	DriverPostgres = "postgres"
	DriverLocal    = "local"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Stockbook"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Store struct {
		Driver    string `envconfig:"STORE_DRIVER" default:"postgres"`
		LocalPath string `envconfig:"LOCAL_STORE_PATH"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"stockbook"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Inventory struct {
		InitOnStart     bool                        `envconfig:"INIT_ON_START" default:"false"`
		SaleAttribution inventory.AttributionPolicy `envconfig:"SALE_ATTRIBUTION" default:"sellout"`
	}

	Redis struct {
		Addr          string `envconfig:"REDIS_ADDR"`
		Password      string `envconfig:"REDIS_PASSWORD"`
		DB            int    `envconfig:"REDIS_DB" default:"0"`
		ChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:"stockbook."`
	}

	DocumentWebhook struct {
		URL   string `envconfig:"DOCUMENT_WEBHOOK_URL"`
		Token string `envconfig:"DOCUMENT_WEBHOOK_TOKEN"`
	}

	HTTP struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		RateLimit      string   `envconfig:"RATE_LIMIT" default:"300-M"`
		JWTSecret      string   `envconfig:"AUTH_JWT_SECRET"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// Load reads .env when present and then the process environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverLocal:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", c.Store.Driver, DriverPostgres, DriverLocal)
	}

	if !c.Inventory.SaleAttribution.Valid() {
		return fmt.Errorf("invalid SALE_ATTRIBUTION %q: must be %s or %s",
			c.Inventory.SaleAttribution, inventory.AttributeOnSellout, inventory.AttributeNever)
	}

	return nil
}
