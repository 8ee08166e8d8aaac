package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 汇总全部运行时配置，启动时从环境变量加载一次，之后只读。
type Config struct {
	ServerPort string
	AppEnv     string
	LogLevel   string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	IPHashSalt string

	CanvasWidth  float64
	CanvasHeight float64

	MinBoardID       int
	MaxBoardID       int
	MaxContentLength int
	HistoryLimit     int
	EventsLimit      int

	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	RateLimitMax     int

	DefaultBanDuration time.Duration
	BoardIdleTTL       time.Duration

	CORSAllowedOrigin string

	ArchiveDBEnabled bool
}

// LoadConfig 从环境变量构建配置。
// 只有 REDIS_ADDR 是必填项，其余都有合理的默认值。
func LoadConfig() (*Config, error) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable not set")
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RedisAddr:      redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "pc:"),

		// 盐只防日志撞库，不追求密码学强度，但生产环境必须覆盖默认值
		IPHashSalt: getEnv("IP_HASH_SALT", "publicclipboard"),

		CanvasWidth:  getEnvFloat("CANVAS_WIDTH", 3840),
		CanvasHeight: getEnvFloat("CANVAS_HEIGHT", 2160),

		MinBoardID:       getEnvInt("MIN_BOARD_ID", 0),
		MaxBoardID:       getEnvInt("MAX_BOARD_ID", 199),
		MaxContentLength: getEnvInt("MAX_CONTENT_LENGTH", 10000),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 500),
		EventsLimit:      getEnvInt("EVENTS_LIMIT", 2000),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", false),
		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMax:     getEnvInt("RATE_LIMIT_MAX", 10),

		DefaultBanDuration: getEnvDuration("DEFAULT_BAN_DURATION", 24*time.Hour),
		BoardIdleTTL:       getEnvDuration("BOARD_IDLE_TTL", 30*time.Minute),

		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),

		ArchiveDBEnabled: getEnvBool("ARCHIVE_DB_ENABLED", false),
	}

	if cfg.MinBoardID > cfg.MaxBoardID {
		return nil, fmt.Errorf("MIN_BOARD_ID %d exceeds MAX_BOARD_ID %d", cfg.MinBoardID, cfg.MaxBoardID)
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("canvas dimensions must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
