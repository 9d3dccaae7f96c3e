package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string
	DBURL      string // pgx5:// form used by migrations

	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SolveQueueName        string
	WorkerLockPrefix      string
	WorkerLockTTLSeconds  int
	WorkerRequeueDelayMs  int
	RunWorkerInProcess    bool
	DispatchMode          string
	WorkerURL             string
	WorkerJWTSecret       []byte
	WorkerTokenTTLSeconds int

	CronSecret string

	GeminiAPIKey  string
	LLMProvider   string
	LLMModel      string
	OpenAIBaseURL string

	TelegramBotToken string

	ProcessingLeaseSeconds int
	VerdictPollIntervalMs  int
	VerdictPollAttempts    int
	SolveWindowStartHour   int
	SolveWindowEndHour     int
	SolveTimezone          string

	CFMinRating int
	CFMaxRating int

	LogLevel  string
	LogFormat string
}

const (
	DispatchModeRedis = "redis"
	DispatchModeHTTP  = "http"
)

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:     getEnv("API_PORT", "8080"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "user"),
		DBPassword:  getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "autosolver"),
		DBSslMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SolveQueueName:        getEnv("SOLVE_QUEUE_NAME", "solve_jobs_queue"),
		WorkerLockPrefix:      getEnv("WORKER_LOCK_PREFIX", "solve_lock:settings:"),
		WorkerLockTTLSeconds:  getEnvAsInt("WORKER_LOCK_TTL_SECONDS", 300),
		WorkerRequeueDelayMs:  getEnvAsInt("WORKER_REQUEUE_DELAY_MS", 2000),
		RunWorkerInProcess:    getEnvAsBool("RUN_WORKER_IN_PROCESS", true),
		DispatchMode:          strings.ToLower(getEnv("DISPATCH_MODE", DispatchModeRedis)),
		WorkerURL:             getEnv("WORKER_URL", "http://localhost:8080/api/v1/worker/jobs"),
		WorkerJWTSecret:       []byte(getEnv("WORKER_JWT_SECRET", "defaultsecret")),
		WorkerTokenTTLSeconds: getEnvAsInt("WORKER_TOKEN_TTL_SECONDS", 300),

		CronSecret: getEnv("CRON_SECRET", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:      getEnv("LLM_MODEL", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		ProcessingLeaseSeconds: getEnvAsInt("PROCESSING_LEASE_SECONDS", 60),
		VerdictPollIntervalMs:  getEnvAsInt("VERDICT_POLL_INTERVAL_MS", 3000),
		VerdictPollAttempts:    getEnvAsInt("VERDICT_POLL_ATTEMPTS", 10),
		SolveWindowStartHour:   getEnvAsInt("SOLVE_WINDOW_START_HOUR", 8),
		SolveWindowEndHour:     getEnvAsInt("SOLVE_WINDOW_END_HOUR", 24),
		SolveTimezone:          getEnv("SOLVE_TIMEZONE", "Asia/Kolkata"),

		CFMinRating: getEnvAsInt("CF_MIN_RATING", 800),
		CFMaxRating: getEnvAsInt("CF_MAX_RATING", 1200),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode

	AppConfig.DBURL = (&url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(AppConfig.DBUser, AppConfig.DBPassword),
		Host:     AppConfig.DBHost + ":" + AppConfig.DBPort,
		Path:     "/" + AppConfig.DBName,
		RawQuery: "sslmode=" + AppConfig.DBSslMode,
	}).String()
}

// Location resolves SolveTimezone, falling back to UTC for unknown zone names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SolveTimezone)
	if err != nil {
		log.Printf("unknown SOLVE_TIMEZONE %q, using UTC", c.SolveTimezone)
		return time.UTC
	}
	return loc
}

func (c *Config) ProcessingLease() time.Duration {
	return time.Duration(c.ProcessingLeaseSeconds) * time.Second
}

func (c *Config) WorkerLockTTL() time.Duration {
	return time.Duration(c.WorkerLockTTLSeconds) * time.Second
}

func (c *Config) WorkerRequeueDelay() time.Duration {
	return time.Duration(c.WorkerRequeueDelayMs) * time.Millisecond
}

func (c *Config) WorkerTokenTTL() time.Duration {
	return time.Duration(c.WorkerTokenTTLSeconds) * time.Second
}

func (c *Config) VerdictPollInterval() time.Duration {
	return time.Duration(c.VerdictPollIntervalMs) * time.Millisecond
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if c.DispatchMode != DispatchModeRedis && c.DispatchMode != DispatchModeHTTP {
		return fmt.Errorf("config error: DISPATCH_MODE must be %q or %q, got %q", DispatchModeRedis, DispatchModeHTTP, c.DispatchMode)
	}
	if c.SolveWindowStartHour < 0 || c.SolveWindowEndHour > 24 || c.SolveWindowStartHour >= c.SolveWindowEndHour {
		return fmt.Errorf("config error: solve window [%d, %d) is not a valid hour range", c.SolveWindowStartHour, c.SolveWindowEndHour)
	}
	if c.CFMinRating > c.CFMaxRating {
		return fmt.Errorf("config error: CF_MIN_RATING %d exceeds CF_MAX_RATING %d", c.CFMinRating, c.CFMaxRating)
	}
	if c.ProcessingLeaseSeconds <= 0 {
		return fmt.Errorf("config error: PROCESSING_LEASE_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
