package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"10000"`

	HTTP struct {
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8081"`
		RateLimitRPS   float64  `env:"API_RATE_LIMIT_RPS" envDefault:"1"`
		RateLimitBurst int      `env:"API_RATE_LIMIT_BURST" envDefault:"5"`
	}

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN"`
		APIBase     string        `env:"TELEGRAM_API_BASE" envDefault:"https://api.telegram.org"`
		PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`
	}

	Admin struct {
		ID            int64         `env:"ADMIN_ID,required"`
		APIKey        string        `env:"ADMIN_API_KEY"`
		ConfirmSecret string        `env:"CONFIRM_SECRET"`
		ConfirmTTL    time.Duration `env:"CONFIRM_TTL" envDefault:"5m"`
	}

	DB struct {
		Driver   string `env:"DB_DRIVER" envDefault:"sqlite"`
		Path     string `env:"DB_PATH" envDefault:"keydrop.db"`
		Host     string `env:"PG_HOST" envDefault:"localhost"`
		Port     int    `env:"PG_PORT" envDefault:"5432"`
		User     string `env:"PG_USER"`
		Password string `env:"PG_PASSWORD"`
		Name     string `env:"PG_DB"`
	}

	Redis struct {
		Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Distribution struct {
		DefaultCooldownHours int           `env:"DEFAULT_COOLDOWN_HOURS" envDefault:"24"`
		AuditInterval        time.Duration `env:"AUDIT_INTERVAL" envDefault:"6h"`
		BroadcastRate        float64       `env:"BROADCAST_RATE" envDefault:"25"`
		BroadcastWorkers     int           `env:"BROADCAST_WORKERS" envDefault:"4"`
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Admin.ID == 0 {
		return fmt.Errorf("ADMIN_ID must be set")
	}
	if c.DB.Driver != "sqlite" && c.DB.Driver != "postgres" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Distribution.DefaultCooldownHours < 1 || c.Distribution.DefaultCooldownHours > 720 {
		return fmt.Errorf("DEFAULT_COOLDOWN_HOURS must be within 1..720, got %d", c.Distribution.DefaultCooldownHours)
	}
	if c.Distribution.BroadcastWorkers < 1 {
		c.Distribution.BroadcastWorkers = 1
	}
	return nil
}

// PostgresDSN builds the connection string used by both gorm and sqlx.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
