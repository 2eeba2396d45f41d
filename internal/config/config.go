package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// FileEnv names the optional TOML file read before environment overrides.
const FileEnv = "FLOWTIMER_CONFIG"

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	TickInterval  time.Duration
	RecordTimeout time.Duration
	DurationsFile string
}

type fileConfig struct {
	Server struct {
		Port        string   `toml:"port"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"server"`
	Database struct {
		Path          string `toml:"path"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`
	Auth struct {
		JWTSecret     string `toml:"jwt_secret"`
		TokenTTLHours int    `toml:"token_ttl_hours"`
	} `toml:"auth"`
	Timer struct {
		TickIntervalMS  int    `toml:"tick_interval_ms"`
		RecordTimeoutMS int    `toml:"record_timeout_ms"`
		DurationsFile   string `toml:"durations_file"`
	} `toml:"timer"`
}

func defaults() fileConfig {
	var cfg fileConfig
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	cfg.Database.Path = "./data/flowtimer.db"
	cfg.Auth.JWTSecret = "change-this-secret"
	cfg.Auth.TokenTTLHours = 72
	cfg.Timer.TickIntervalMS = 1000
	cfg.Timer.RecordTimeoutMS = 5000
	return cfg
}

// Load layers, lowest first: built-in defaults, the TOML file named by
// FLOWTIMER_CONFIG, a .env file in the working directory, the environment.
// An empty MigrationsDir selects the migrations embedded in the binary.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	file := defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &file); err != nil {
			return Config{}, err
		}
	}

	return Config{
		Port:          getEnv("PORT", file.Server.Port),
		DBPath:        getEnv("DB_PATH", file.Database.Path),
		JWTSecret:     getEnv("JWT_SECRET", file.Auth.JWTSecret),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", file.Auth.TokenTTLHours)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", file.Server.CORSOrigins),
		MigrationsDir: getEnv("MIGRATIONS_DIR", file.Database.MigrationsDir),
		TickInterval:  time.Duration(getEnvInt("TICK_INTERVAL_MS", file.Timer.TickIntervalMS)) * time.Millisecond,
		RecordTimeout: time.Duration(getEnvInt("RECORD_TIMEOUT_MS", file.Timer.RecordTimeoutMS)) * time.Millisecond,
		DurationsFile: getEnv("DURATIONS_FILE", file.Timer.DurationsFile),
	}, nil
}

// loadFile decodes path over cfg so keys absent from the file keep their
// current values.
func loadFile(path string, cfg *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
