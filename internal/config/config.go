package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	// 定时任务
	IngestCron    string
	BackfillCron  string
	BackfillLimit int
	RunLockTTL    time.Duration

	// 并发度：采集适配器 / 图片任务
	WorkerCount  int
	ImageWorkers int

	FetchTimeout time.Duration
	UserAgent    string
	PerHostRPS   float64

	// 图片缓存
	ImageDir      string
	ImageQuality  int
	ImageMaxWidth int
	RendererURL   string

	SourcesFile string
	LogLevel    string
	LogPretty   bool

	// 全站 Basic Auth，未配置时不启用
	BasicAuthUser string
	BasicAuthPass string
}

// Load 只读取环境变量，不写日志；日志配置完成后再调用 LogSummary
func Load() *Config {
	return &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=newshub password=newshub dbname=newshub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		IngestCron:    getEnv("INGEST_CRON", "0 * * * *"),
		BackfillCron:  getEnv("BACKFILL_CRON", "15 */3 * * *"),
		BackfillLimit: getEnvInt("BACKFILL_LIMIT", 200),
		RunLockTTL:    getEnvDuration("RUN_LOCK_TTL", 55*time.Minute),
		WorkerCount:   getEnvInt("WORKER_COUNT", 3),
		ImageWorkers:  getEnvInt("IMAGE_WORKERS", 4),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		UserAgent:     getEnv("USER_AGENT", ""),
		PerHostRPS:    getEnvFloat("PER_HOST_RPS", 4),
		ImageDir:      getEnv("IMAGE_DIR", "./data/images"),
		ImageQuality:  getEnvInt("IMAGE_QUALITY", 80),
		ImageMaxWidth: getEnvInt("IMAGE_MAX_WIDTH", 1200),
		RendererURL:   getEnv("RENDERER_URL", ""),
		SourcesFile:   getEnv("SOURCES_FILE", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvBool("LOG_PRETTY", false),
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
	}
}

// LogSummary 输出不含密钥的配置摘要
func (c *Config) LogSummary(logger zerolog.Logger) {
	logger.Info().
		Str("port", c.AppPort).
		Str("ingest_cron", c.IngestCron).
		Str("backfill_cron", c.BackfillCron).
		Int("workers", c.WorkerCount).
		Int("image_workers", c.ImageWorkers).
		Bool("basic_auth", c.BasicAuthUser != "").
		Msg("config loaded")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int env, using default")
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid float env, using default")
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDuration 接受 time.ParseDuration 格式，也接受纯数字（秒）
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid duration env, using default")
	return def
}
