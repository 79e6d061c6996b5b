package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	Backend  BackendConfig
	Dispatch DispatchConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TelegramConfig struct {
	CustomerToken   string
	AgentToken      string // token for the delivery agent bot
	RestaurantToken string // token for the restaurant bot
}

type BackendConfig struct {
	BaseURL        string // e.g. http://localhost:8000/api/v1
	RequestTimeout time.Duration
}

// DispatchConfig carries the timing knobs forwarded to the dispatch start
// endpoint plus the client-side loop intervals.
type DispatchConfig struct {
	Phase1WaitSecondsMin int
	Phase1WaitSecondsMax int
	Phase2WaitSeconds    int
	PollIntervalSeconds  int
	StartTimeout         time.Duration // how long checkout waits for dispatch start before moving on
	RefreshInterval      time.Duration // feed / status / active-orders poll interval
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "campusbites"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Telegram: TelegramConfig{
			CustomerToken:   getEnv("TOKEN", ""),
			AgentToken:      getEnv("AGENT_BOT_TOKEN", ""),
			RestaurantToken: getEnv("RESTAURANT_BOT_TOKEN", ""),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_URL", "http://localhost:8000/api/v1"),
			RequestTimeout: getEnvDuration("BACKEND_TIMEOUT_MS", 10000),
		},
		Dispatch: DispatchConfig{
			Phase1WaitSecondsMin: getEnvInt("PHASE1_WAIT_SECONDS_MIN", 180),
			Phase1WaitSecondsMax: getEnvInt("PHASE1_WAIT_SECONDS_MAX", 240),
			Phase2WaitSeconds:    getEnvInt("PHASE2_WAIT_SECONDS", 180),
			PollIntervalSeconds:  getEnvInt("POLL_INTERVAL_SECONDS", 5),
			StartTimeout:         getEnvDuration("DISPATCH_START_TIMEOUT_MS", 5000),
			RefreshInterval:      getEnvDuration("REFRESH_INTERVAL_MS", 5000),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, defMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defMillis)) * time.Millisecond
}
