package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath             string
	ServerPort         string
	LogLevel           string
	GulagThresholdDays int
	LeaderboardLimit   int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	gulagDays, err := getEnvInt("GULAG_THRESHOLD_DAYS", 30)
	if err != nil {
		return nil, err
	}
	limit, err := getEnvInt("LEADERBOARD_DEFAULT_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:             getEnv("DB_PATH", "condor.db"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		GulagThresholdDays: gulagDays,
		LeaderboardLimit:   limit,
	}

	if cfg.GulagThresholdDays < 0 {
		return nil, fmt.Errorf("GULAG_THRESHOLD_DAYS must not be negative")
	}
	if cfg.LeaderboardLimit < 1 || cfg.LeaderboardLimit > 50 {
		return nil, fmt.Errorf("LEADERBOARD_DEFAULT_LIMIT must be between 1 and 50")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("gulag_threshold_days", cfg.GulagThresholdDays).
		Int("leaderboard_default_limit", cfg.LeaderboardLimit).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)
