package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"
	// Asia/Tokyo must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Diary    DiaryConfig    `mapstructure:"diary"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// AdminIDs may register daily topics from the chat.
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DiaryConfig struct {
	Timezone      string `mapstructure:"timezone"`
	DefaultAdvice bool   `mapstructure:"default_advice"`
	HistoryLimit  int    `mapstructure:"history_limit"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Location resolves Diary.Timezone.
func (c DiaryConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path (optional when empty or missing) and applies
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "diary")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "data/diary.db")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-flash-latest")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("diary.timezone", "Asia/Tokyo")
	v.SetDefault("diary.default_advice", false)
	v.SetDefault("diary.history_limit", 30)
	v.SetDefault("log.level", "info")

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	switch config.AI.Provider {
	case "openai", "openai-responses":
		if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
			config.AI.APIKey = apiKey
		}
	case "gemini":
		if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
			config.AI.APIKey = apiKey
		}
	}

	return &config, nil
}

// Validate checks the settings needed to serve the bot.
func (c *Config) Validate() error {
	var problems []string

	if c.Telegram.Token == "" {
		problems = append(problems, "telegram.token is required")
	}

	switch c.AI.Provider {
	case "openai", "openai-responses", "gemini":
		if c.AI.APIKey == "" {
			problems = append(problems, fmt.Sprintf("ai.api_key is required for provider %q", c.AI.Provider))
		}
	case "offline":
	default:
		problems = append(problems, fmt.Sprintf("unknown ai.provider %q", c.AI.Provider))
	}
	if c.AI.Timeout <= 0 {
		problems = append(problems, "ai.timeout must be positive")
	}

	problems = append(problems, c.storageProblems()...)
	return joinProblems(problems)
}

// ValidateStorage checks only what the administrative commands need.
func (c *Config) ValidateStorage() error {
	return joinProblems(c.storageProblems())
}

func (c *Config) storageProblems() []string {
	var problems []string

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			problems = append(problems, "database.sqlite_path is required for sqlite")
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}

	if _, err := c.Diary.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsAdmin reports whether telegramID may register topics.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
