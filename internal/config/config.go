package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvBotToken       = "BOT_TOKEN"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvTZOffsetHours  = "USER_TZ_OFFSET_HOURS"
	EnvRequireAuth    = "REQUIRE_AUTH"
	EnvUploadDir      = "UPLOAD_DIR"
	EnvFrontendOrigin = "FRONTEND_ORIGIN"
	EnvAILimit        = "AI_RATE_LIMIT_PER_MINUTE"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisPrefix    = "REDIS_PREFIX"
	EnvRedisDB        = "REDIS_DB"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// Settings holds the process-wide deployment configuration. It is loaded once
// at startup and passed to constructors rather than read from globals.
type Settings struct {
	BotToken       string `yaml:"bot-token"`       // Telegram bot token; signs initData and calls the Bot API.
	OpenAIKey      string `yaml:"openai-key"`      // OpenAI API key; empty disables AI estimation.
	EstimateModel  string `yaml:"estimate-model"`  // Chat model for free-text estimation.
	VisionModel    string `yaml:"vision-model"`    // Chat model for photo analysis.
	TZOffsetHours  int    `yaml:"tz-offset-hours"` // Fixed local = UTC + offset, applied to all users.
	RequireAuth    bool   `yaml:"require-auth"`    // Reject unauthenticated requests when true.
	UploadDir      string `yaml:"upload-dir"`      // Directory for uploaded photos.
	FrontendOrigin string `yaml:"frontend-origin"` // Allowed CORS origin, * for any.

	AILimitPerMinute int    `yaml:"ai-rate-limit-per-minute"` // Per-user AI request cap; 0 disables.
	RedisAddr        string `yaml:"redis-addr"`               // Redis address for the shared limiter; empty keeps it in-process.
	RedisPassword    string `yaml:"redis-password"`           // Redis password.
	RedisPrefix      string `yaml:"redis-prefix"`             // Redis key prefix.
	RedisDB          int    `yaml:"redis-db"`                 // Redis database number.
}

// Defaults applied when the config file and environment omit a value.
const (
	defaultTZOffsetHours  = 5
	defaultUploadDir      = "./data/uploads"
	defaultEstimateModel  = "gpt-4.1-mini"
	defaultVisionModel    = "gpt-4.1-mini"
	defaultFrontendOrigin = "*"
	defaultAILimit        = 10
)

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// LoadSettings loads deployment settings from the YAML config file with
// environment-variable overrides.
func LoadSettings(configPath string) (Settings, error) {
	result := Settings{
		TZOffsetHours:    defaultTZOffsetHours,
		UploadDir:        defaultUploadDir,
		EstimateModel:    defaultEstimateModel,
		VisionModel:      defaultVisionModel,
		FrontendOrigin:   defaultFrontendOrigin,
		AILimitPerMinute: defaultAILimit,
	}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		// fileConfig wraps pointer fields so an explicit zero offset can be
		// told apart from "not set".
		type fileConfig struct {
			App struct {
				BotToken         string `yaml:"bot-token"`
				OpenAIKey        string `yaml:"openai-key"`
				EstimateModel    string `yaml:"estimate-model"`
				VisionModel      string `yaml:"vision-model"`
				TZOffsetHours    *int   `yaml:"tz-offset-hours"`
				RequireAuth      *bool  `yaml:"require-auth"`
				UploadDir        string `yaml:"upload-dir"`
				FrontendOrigin   string `yaml:"frontend-origin"`
				AILimitPerMinute *int   `yaml:"ai-rate-limit-per-minute"`
				RedisAddr        string `yaml:"redis-addr"`
				RedisPassword    string `yaml:"redis-password"`
				RedisPrefix      string `yaml:"redis-prefix"`
				RedisDB          *int   `yaml:"redis-db"`
			} `yaml:"app"`
		}
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if v := strings.TrimSpace(cfg.App.BotToken); v != "" {
				result.BotToken = v
			}
			if v := strings.TrimSpace(cfg.App.OpenAIKey); v != "" {
				result.OpenAIKey = v
			}
			if v := strings.TrimSpace(cfg.App.EstimateModel); v != "" {
				result.EstimateModel = v
			}
			if v := strings.TrimSpace(cfg.App.VisionModel); v != "" {
				result.VisionModel = v
			}
			if cfg.App.TZOffsetHours != nil {
				result.TZOffsetHours = *cfg.App.TZOffsetHours
			}
			if cfg.App.RequireAuth != nil {
				result.RequireAuth = *cfg.App.RequireAuth
			}
			if v := strings.TrimSpace(cfg.App.UploadDir); v != "" {
				result.UploadDir = v
			}
			if v := strings.TrimSpace(cfg.App.FrontendOrigin); v != "" {
				result.FrontendOrigin = v
			}
			if cfg.App.AILimitPerMinute != nil {
				result.AILimitPerMinute = *cfg.App.AILimitPerMinute
			}
			if v := strings.TrimSpace(cfg.App.RedisAddr); v != "" {
				result.RedisAddr = v
			}
			if v := strings.TrimSpace(cfg.App.RedisPassword); v != "" {
				result.RedisPassword = v
			}
			if v := strings.TrimSpace(cfg.App.RedisPrefix); v != "" {
				result.RedisPrefix = v
			}
			if cfg.App.RedisDB != nil {
				result.RedisDB = *cfg.App.RedisDB
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvBotToken)); v != "" {
		result.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOpenAIKey)); v != "" {
		result.OpenAIKey = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvTZOffsetHours)); raw != "" {
		if offset, errParse := strconv.Atoi(raw); errParse == nil {
			result.TZOffsetHours = offset
		}
	}
	if raw := strings.TrimSpace(os.Getenv(EnvRequireAuth)); raw != "" {
		result.RequireAuth = strings.EqualFold(raw, "true")
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadDir)); v != "" {
		result.UploadDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFrontendOrigin)); v != "" {
		result.FrontendOrigin = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvAILimit)); raw != "" {
		if limit, errParse := strconv.Atoi(raw); errParse == nil {
			result.AILimitPerMinute = limit
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		result.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisPassword)); v != "" {
		result.RedisPassword = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisPrefix)); v != "" {
		result.RedisPrefix = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvRedisDB)); raw != "" {
		if dbNum, errParse := strconv.Atoi(raw); errParse == nil {
			result.RedisDB = dbNum
		}
	}

	return result, nil
}
