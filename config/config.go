package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Mongo struct {
	URI          string `envconfig:"URI"`
	Database     string `envconfig:"DATABASE" default:"card_trader"`
	Transactions bool   `envconfig:"TRANSACTIONS" default:"false"`
}

type JWT struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"1h"`
}

type Redis struct {
	URL       string `envconfig:"URL"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"card-trader:"`
}

type Scryfall struct {
	URL      string        `envconfig:"URL" default:"https://api.scryfall.com"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`
}

type Idempotency struct {
	TTL         time.Duration `envconfig:"TTL" default:"24h"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"10s"`
}

type Log struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"development"`
	Port            string        `envconfig:"PORT" default:"5000"`
	Store           string        `envconfig:"STORE" default:"mongo"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	Mongo           Mongo         `envconfig:"MONGODB"`
	JWT             JWT           `envconfig:"JWT"`
	Redis           Redis         `envconfig:"REDIS"`
	Scryfall        Scryfall      `envconfig:"SCRYFALL"`
	Idempotency     Idempotency   `envconfig:"IDEMPOTENCY"`
	Log             Log           `envconfig:"LOG"`
}

// Load reads the given .env files (or ./.env when none are given) into the
// process environment and then decodes the environment into a Config.
// Missing .env files are not an error; the process environment wins.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.WithError(err).Debug("no .env file loaded, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"port":      cfg.Port,
		"store":     cfg.Store,
		"mongo_uri": mask(cfg.Mongo.URI),
		"mongo_db":  cfg.Mongo.Database,
		"redis_url": mask(cfg.Redis.URL),
		"jwt":       cfg.JWT.Expiry.String(),
		"scryfall":  cfg.Scryfall.URL,
	}).Info("config loaded")

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q, must be %q or %q", c.Store, StoreMongo, StoreMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive")
	}
	return nil
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
