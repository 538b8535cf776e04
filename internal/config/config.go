package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var (
	// ErrReadConfig возвращается, когда файл конфигурации не удалось прочитать
	ErrReadConfig = errors.New("config: failed to read config file")

	// ErrInvalidConfig возвращается при недопустимых значениях конфигурации
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config корневая конфигурация сервиса
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Logs         LogsConfig         `toml:"logs"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Schedule     ScheduleConfig     `toml:"schedule"`
	Queue        QueueConfig        `toml:"queue"`
	Redis        RedisConfig        `toml:"redis"`
	RabbitMQ     RabbitMQConfig     `toml:"rabbitmq"`
	UserService  UserServiceConfig  `toml:"user_service"`
	Auth         AuthConfig         `toml:"auth"`
	RateLimit    RateLimitConfig    `toml:"rate_limit"`
	CatalogCache CatalogCacheConfig `toml:"catalog_cache"`
}

type ServerConfig struct {
	HTTPPort        int      `toml:"http_port"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	IdleTimeout     int      `toml:"idle_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
	TxMaxAttempts   int    `toml:"tx_max_attempts"`
	TxRetryBackoff  int    `toml:"tx_retry_backoff_ms"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// ScheduleConfig окно приёма по умолчанию, если у учреждения нет своей конфигурации
type ScheduleConfig struct {
	OpenTime            string `toml:"open_time"`
	CloseTime           string `toml:"close_time"`
	SlotDurationMinutes int    `toml:"slot_duration_minutes"`
	AdvanceBookingDays  int    `toml:"advance_booking_days"`
	Timezone            string `toml:"timezone"`
}

type QueueConfig struct {
	RefreshSpec           string `toml:"refresh_spec"`
	SnapshotTTLSeconds    int    `toml:"snapshot_ttl_seconds"`
	HistorySize           int    `toml:"history_size"`
	DelayThresholdPercent int    `toml:"delay_threshold_percent"`
	Store                 string `toml:"store"` // memory | redis
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type RabbitMQConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// AuthConfig пустой JWTSecret отключает проверку bearer-токенов, остаётся X-User-ID
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	JWTIssuer string `toml:"jwt_issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

type CatalogCacheConfig struct {
	Enabled    bool `toml:"enabled"`
	Size       int  `toml:"size"`
	TTLSeconds int  `toml:"ttl_seconds"`
}

// Load читает TOML-файл, подмешивает .env и переменные окружения, применяет значения по умолчанию
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQ.URL = v
	}
	if v := os.Getenv("USER_SERVICE_URL"); v != "" {
		c.UserService.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Database.TxMaxAttempts == 0 {
		c.Database.TxMaxAttempts = 10
	}
	if c.Database.TxRetryBackoff == 0 {
		c.Database.TxRetryBackoff = 5
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "queueease-booking"
	}

	if c.Schedule.OpenTime == "" {
		c.Schedule.OpenTime = "09:00"
	}
	if c.Schedule.CloseTime == "" {
		c.Schedule.CloseTime = "17:00"
	}
	if c.Schedule.SlotDurationMinutes == 0 {
		c.Schedule.SlotDurationMinutes = 30
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Local"
	}

	if c.Queue.RefreshSpec == "" {
		c.Queue.RefreshSpec = "@every 30s"
	}
	if c.Queue.SnapshotTTLSeconds == 0 {
		c.Queue.SnapshotTTLSeconds = 30
	}
	if c.Queue.HistorySize == 0 {
		c.Queue.HistorySize = 20
	}
	if c.Queue.DelayThresholdPercent == 0 {
		c.Queue.DelayThresholdPercent = 20
	}
	if c.Queue.Store == "" {
		c.Queue.Store = "memory"
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "queueease:queue-status:"
	}

	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "queueease.appointments"
	}

	if c.UserService.Timeout == 0 {
		c.UserService.Timeout = 3
	}

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}

	if c.CatalogCache.Size == 0 {
		c.CatalogCache.Size = 256
	}
	if c.CatalogCache.TTLSeconds == 0 {
		c.CatalogCache.TTLSeconds = 300
	}
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port out of range: %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("%w: database.host is required", ErrInvalidConfig)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("%w: database.dbname is required", ErrInvalidConfig)
	}

	openMinutes, err := parseClock(c.Schedule.OpenTime)
	if err != nil {
		return fmt.Errorf("%w: schedule.open_time: %v", ErrInvalidConfig, err)
	}
	closeMinutes, err := parseClock(c.Schedule.CloseTime)
	if err != nil {
		return fmt.Errorf("%w: schedule.close_time: %v", ErrInvalidConfig, err)
	}
	if openMinutes >= closeMinutes {
		return fmt.Errorf("%w: schedule.open_time must be before close_time", ErrInvalidConfig)
	}
	if c.Schedule.SlotDurationMinutes < 5 || c.Schedule.SlotDurationMinutes > closeMinutes-openMinutes {
		return fmt.Errorf("%w: schedule.slot_duration_minutes=%d does not fit the window",
			ErrInvalidConfig, c.Schedule.SlotDurationMinutes)
	}
	if c.Schedule.AdvanceBookingDays < 0 {
		return fmt.Errorf("%w: schedule.advance_booking_days must not be negative", ErrInvalidConfig)
	}

	if c.Queue.Store != "memory" && c.Queue.Store != "redis" {
		return fmt.Errorf("%w: queue.store must be memory or redis, got %q", ErrInvalidConfig, c.Queue.Store)
	}
	if c.Queue.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required for queue.store=redis", ErrInvalidConfig)
	}
	if c.Queue.DelayThresholdPercent < 0 || c.Queue.DelayThresholdPercent > 100 {
		return fmt.Errorf("%w: queue.delay_threshold_percent must be within 0..100", ErrInvalidConfig)
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("%w: rabbitmq.url is required when rabbitmq is enabled", ErrInvalidConfig)
	}

	return nil
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return h*60 + m, nil
}
