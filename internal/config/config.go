package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig — правила допуска броней. Значения по умолчанию
// соответствуют площадке: окно 48 часов, до 4 слотов за раз.
type BookingConfig struct {
	AdvanceWindowHours int   `yaml:"advance_window_hours"`
	MaxSlotsPerBooking int   `yaml:"max_slots_per_booking"`
	PriceHalf          int64 `yaml:"price_half"`
	PriceFull          int64 `yaml:"price_full"`

	// Политика ретраев предварительной проверки доступности.
	// Только для read-only пути, никогда для записи.
	CheckRetries      int     `yaml:"check_retries"`
	CheckRetryBaseSec float64 `yaml:"check_retry_base_sec"`
}

type NotifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"bot_token"`
	OperatorChatID int64  `yaml:"operator_chat_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в проде переменные приходят из окружения.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подстановка переменных окружения в YAML до разбора.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Notify.Enabled && c.Notify.BotToken == "" {
		return errors.New("notify.bot_token is required when notify is enabled")
	}
	if c.Notify.Enabled && c.Notify.OperatorChatID == 0 {
		return errors.New("notify.operator_chat_id is required when notify is enabled")
	}
	if c.Booking.MaxSlotsPerBooking < 1 {
		return errors.New("booking.max_slots_per_booking must be at least 1")
	}
	if c.Booking.AdvanceWindowHours < 1 {
		return errors.New("booking.advance_window_hours must be at least 1")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "turfbook"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Booking defaults
	if c.Booking.AdvanceWindowHours == 0 {
		c.Booking.AdvanceWindowHours = 48
	}
	if c.Booking.MaxSlotsPerBooking == 0 {
		c.Booking.MaxSlotsPerBooking = 4
	}
	if c.Booking.PriceHalf == 0 {
		c.Booking.PriceHalf = 500
	}
	if c.Booking.PriceFull == 0 {
		c.Booking.PriceFull = 1000
	}
	if c.Booking.CheckRetries == 0 {
		c.Booking.CheckRetries = 3
	}
	if c.Booking.CheckRetryBaseSec == 0 {
		c.Booking.CheckRetryBaseSec = 1
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
