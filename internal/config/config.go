package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	StatsTTL time.Duration
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	GroupID            string
	BonusPostedTopic   string
	StatusChangedTopic string
}

// PayrollConfig tunes the ledger engine.
type PayrollConfig struct {
	StatsConcurrency   int
	StatsWarmupEnabled bool
	StatsWarmupEvery   time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	statsTTL, err := time.ParseDuration(getEnv("REDIS_STATS_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_STATS_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		StatsTTL: statsTTL,
	}

	// Kafka configuration
	config.Kafka = KafkaConfig{
		Enabled:            getEnvBool("KAFKA_ENABLED", false),
		Brokers:            getEnvSlice("KAFKA_BROKERS", "localhost:9092"),
		GroupID:            getEnv("KAFKA_GROUP_ID", "hris-payroll-ledger"),
		BonusPostedTopic:   getEnv("KAFKA_TOPIC_BONUS_POSTED", "reward.bonus_posted"),
		StatusChangedTopic: getEnv("KAFKA_TOPIC_STATUS_CHANGED", "payroll.entry_status_changed"),
	}

	// Payroll engine configuration
	statsConcurrency, err := strconv.Atoi(getEnv("PAYROLL_STATS_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_STATS_CONCURRENCY: %w", err)
	}
	warmupEvery, err := time.ParseDuration(getEnv("PAYROLL_STATS_WARMUP_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_STATS_WARMUP_INTERVAL: %w", err)
	}

	config.Payroll = PayrollConfig{
		StatsConcurrency:   statsConcurrency,
		StatsWarmupEnabled: getEnvBool("PAYROLL_STATS_WARMUP_ENABLED", false),
		StatsWarmupEvery:   warmupEvery,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.Payroll.StatsConcurrency < 1 {
		return fmt.Errorf("PAYROLL_STATS_CONCURRENCY must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the time zone pay periods are evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
