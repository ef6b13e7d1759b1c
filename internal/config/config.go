package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ConvergencePoll   = "poll"
	ConvergenceListen = "listen"
)

type Config struct {
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN          string `mapstructure:"DB_DSN"`
	Environment    string `mapstructure:"ENV"`
	Store          string `mapstructure:"STORE"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	CallBaseURL    string `mapstructure:"CALL_BASE_URL"`
	Convergence    string `mapstructure:"CONVERGENCE"`

	PollInterval      time.Duration `mapstructure:"MATCH_POLL_INTERVAL"`
	HandoffDelay      time.Duration `mapstructure:"HANDOFF_DELAY"`
	RequestTTL        time.Duration `mapstructure:"REQUEST_TTL"`
	ConfirmTTL        time.Duration `mapstructure:"CONFIRM_TTL"`
	ExtensionDuration time.Duration `mapstructure:"EXTENSION_DURATION"`
	SweepSchedule     string        `mapstructure:"SWEEP_SCHEDULE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных окружения
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:          getenv("DB_DSN"),
		TelegramToken:  getenv("TELEGRAM_TOKEN"),
		Environment:    getenv("ENV"),
		Store:          strings.ToLower(getenv("STORE")),
		MigrationsPath: getenv("MIGRATIONS_PATH"),
		CallBaseURL:    strings.TrimRight(getenv("CALL_BASE_URL"), "/"),
		Convergence:    strings.ToLower(getenv("CONVERGENCE")),
		SweepSchedule:  getenv("SWEEP_SCHEDULE"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Store == "" {
		cfg.Store = StorePostgres
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}
	if cfg.CallBaseURL == "" {
		cfg.CallBaseURL = "https://meet.example.com"
	}
	if cfg.Convergence == "" {
		cfg.Convergence = ConvergencePoll
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 1m"
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"MATCH_POLL_INTERVAL", &cfg.PollInterval, 3 * time.Second},
		{"HANDOFF_DELAY", &cfg.HandoffDelay, 3 * time.Second},
		{"REQUEST_TTL", &cfg.RequestTTL, 30 * time.Minute},
		{"CONFIRM_TTL", &cfg.ConfirmTTL, 10 * time.Minute},
		{"EXTENSION_DURATION", &cfg.ExtensionDuration, 7 * 24 * time.Hour},
	}
	for _, d := range durations {
		raw := getenv(d.key)
		if raw == "" {
			*d.dst = d.def
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s must be a non-negative duration, got %q", d.key, raw)
		}
		*d.dst = v
	}

	// Проверяем обязательные поля
	switch cfg.Store {
	case StorePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	switch cfg.Convergence {
	case ConvergencePoll:
	case ConvergenceListen:
		if cfg.Store != StorePostgres {
			return nil, fmt.Errorf("CONVERGENCE=listen requires STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("CONVERGENCE must be %q or %q, got %q", ConvergencePoll, ConvergenceListen, cfg.Convergence)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// UseMemoryStore true, если данные держим в памяти процесса
func (c *Config) UseMemoryStore() bool {
	return c.Store == StoreMemory
}
