package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Analytics AnalyticsConfig `json:"analytics"`
	Inventory InventoryConfig `json:"inventory"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных (архив заказов)
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Imports   string `json:"imports"`
	Inventory string `json:"inventory"`
	Reorders  string `json:"reorders"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// AnalyticsConfig хранит настройки агрегации журнала заказов
type AnalyticsConfig struct {
	CacheTTLMinutes       int   `json:"cache_ttl_minutes"`
	TopItemsLimit         int   `json:"top_items_limit"`
	RecentOrdersLimit     int   `json:"recent_orders_limit"`
	VolumeDays            int   `json:"volume_days"`
	RequestTimeoutSeconds int   `json:"request_timeout_seconds"`
	MaxUploadBytes        int64 `json:"max_upload_bytes"`
	SkipMalformedRows     bool  `json:"skip_malformed_rows"`
}

// InventoryConfig хранит настройки хранилища инвентаря
type InventoryConfig struct {
	StorageKey       string `json:"storage_key"`
	PendingOrdersKey string `json:"pending_orders_key"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// Load загружает конфигурацию из .env файла и переменных окружения
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dashboard_user"),
			Password: getEnv("DB_PASSWORD", "dashboard_pass"),
			DBName:   getEnv("DB_NAME", "merchant_dashboard"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "merchant-dashboard"),
			Topics: Topics{
				Imports:   getEnv("KAFKA_TOPIC_IMPORTS", "order-imports"),
				Inventory: getEnv("KAFKA_TOPIC_INVENTORY", "inventory"),
				Reorders:  getEnv("KAFKA_TOPIC_REORDERS", "reorders"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Analytics: AnalyticsConfig{
			CacheTTLMinutes:       getEnvAsInt("ANALYTICS_CACHE_TTL_MINUTES", 10),
			TopItemsLimit:         getEnvAsInt("ANALYTICS_TOP_ITEMS_LIMIT", 5),
			RecentOrdersLimit:     getEnvAsInt("ANALYTICS_RECENT_ORDERS_LIMIT", 5),
			VolumeDays:            getEnvAsInt("ANALYTICS_VOLUME_DAYS", 7),
			RequestTimeoutSeconds: getEnvAsInt("ANALYTICS_REQUEST_TIMEOUT_SECONDS", 5),
			MaxUploadBytes:        int64(getEnvAsInt("ANALYTICS_MAX_UPLOAD_BYTES", 10<<20)),
			SkipMalformedRows:     getEnvAsBool("ANALYTICS_SKIP_MALFORMED_ROWS", true),
		},
		Inventory: InventoryConfig{
			StorageKey:       getEnv("INVENTORY_STORAGE_KEY", "inventory:items"),
			PendingOrdersKey: getEnv("INVENTORY_PENDING_ORDERS_KEY", "inventory:pending_orders"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
