package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	ReviewQueueURL string
	NotifyQueueURL string

	LLMProvider        string
	LLMModel           string
	OpenAIAPIKey       string
	LLMTimeout         time.Duration
	AnalyzerRatePerSec float64
	AnalyzerBurst      int
	AnalyzerMaxRetries int
	Breaker            BreakerConfig

	ATSCatalogFile     string
	ATSFallbackCount   int
	StageTemplatesFile string

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerConcurrency        int
	VisibilityTimeoutSeconds int
	ShutdownTimeout          time.Duration
}

// BreakerConfig configures the analyzer circuit breaker.
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// Load reads configuration from environment variables, optional env/YAML files and defaults.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Best-effort load of local env files for dev convenience.
	mergeConfigFiles(v, ".env", "cmd/.env", os.Getenv("CONFIG_FILE"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            v.GetString("PORT"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),

		ReviewQueueURL: strings.TrimSpace(v.GetString("REVIEW_QUEUE_URL")),
		NotifyQueueURL: strings.TrimSpace(v.GetString("NOTIFY_QUEUE_URL")),

		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMModel:           v.GetString("LLM_MODEL"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		LLMTimeout:         v.GetDuration("LLM_TIMEOUT"),
		AnalyzerRatePerSec: v.GetFloat64("ANALYZER_RATE_PER_SEC"),
		AnalyzerBurst:      v.GetInt("ANALYZER_BURST"),
		AnalyzerMaxRetries: v.GetInt("ANALYZER_MAX_RETRIES"),
		Breaker: BreakerConfig{
			Enabled:          v.GetBool("BREAKER_ENABLED"),
			MaxRequests:      v.GetUint32("BREAKER_MAX_REQUESTS"),
			Interval:         v.GetDuration("BREAKER_INTERVAL"),
			Timeout:          v.GetDuration("BREAKER_TIMEOUT"),
			MinRequests:      v.GetUint32("BREAKER_MIN_REQUESTS"),
			FailureThreshold: v.GetFloat64("BREAKER_FAILURE_THRESHOLD"),
		},

		ATSCatalogFile:     v.GetString("ATS_CATALOG_FILE"),
		ATSFallbackCount:   v.GetInt("ATS_FALLBACK_COUNT"),
		StageTemplatesFile: v.GetString("STAGE_TEMPLATES_FILE"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),

		WorkerConcurrency:        v.GetInt("WORKER_CONCURRENCY"),
		VisibilityTimeoutSeconds: v.GetInt("SQS_VISIBILITY_TIMEOUT_SECONDS"),
		ShutdownTimeout:          time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("SSE_KMS_KEY_ID", "")

	v.SetDefault("REVIEW_QUEUE_URL", "")
	v.SetDefault("NOTIFY_QUEUE_URL", "")

	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("LLM_TIMEOUT", 120*time.Second)
	v.SetDefault("ANALYZER_RATE_PER_SEC", 2.0)
	v.SetDefault("ANALYZER_BURST", 4)
	v.SetDefault("ANALYZER_MAX_RETRIES", 1)
	v.SetDefault("BREAKER_ENABLED", true)
	v.SetDefault("BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("BREAKER_INTERVAL", 60*time.Second)
	v.SetDefault("BREAKER_TIMEOUT", 30*time.Second)
	v.SetDefault("BREAKER_MIN_REQUESTS", 5)
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 0.6)

	v.SetDefault("ATS_CATALOG_FILE", "")
	v.SetDefault("ATS_FALLBACK_COUNT", 5)
	v.SetDefault("STAGE_TEMPLATES_FILE", "")

	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("SQS_VISIBILITY_TIMEOUT_SECONDS", 1200)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)
}

// mergeConfigFiles merges each existing file into v. Files ending in .yaml/.yml are read as
// YAML, everything else as KEY=VALUE env files. Missing or unreadable files are skipped.
func mergeConfigFiles(v *viper.Viper, paths ...string) {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			v.SetConfigType("yaml")
		} else {
			v.SetConfigType("env")
		}
		if err := v.MergeInConfig(); err != nil {
			log.Printf("config: skip %s: %v", path, err)
		}
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
