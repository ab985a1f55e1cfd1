package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Cleanup  CleanupConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	DocumentsRoot      string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider  string // "ollama", "gemini" or "jina"
	OllamaBaseURL      string
	OllamaModel        string
	GeminiAPIKey       string
	JinaAPIKey         string
	EmbeddingDimension int
}

type PipelineConfig struct {
	TopicName       string
	WorkerCount     int
	MaxAttempts     int
	RetryBackoff    time.Duration
	ChunkSize       int
	ChunkOverlap    int
	EmbedBatchSize  int
	MaxContextChars int
	DefaultTopK     int
	MaxImages       int
	JobRetention    time.Duration
}

type CleanupConfig struct {
	Enabled    bool
	Delay      time.Duration
	KeepFailed bool
	MaxRetries int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			DocumentsRoot:      getEnv("DOCUMENTS_ROOT", "uploads"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:       getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JinaAPIKey:         getEnv("JINA_API_KEY", ""),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
		},
		Pipeline: PipelineConfig{
			TopicName:       getEnv("PROCESS_DOCUMENT_TOPIC_NAME", "PROCESS_DOCUMENT"),
			WorkerCount:     getEnvAsInt("PIPELINE_WORKER_COUNT", 3),
			MaxAttempts:     getEnvAsInt("PIPELINE_MAX_ATTEMPTS", 3),
			RetryBackoff:    getEnvAsDuration("PIPELINE_RETRY_BACKOFF", 2*time.Second),
			ChunkSize:       getEnvAsInt("PIPELINE_CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("PIPELINE_CHUNK_OVERLAP", 200),
			EmbedBatchSize:  getEnvAsInt("PIPELINE_EMBED_BATCH_SIZE", 16),
			MaxContextChars: getEnvAsInt("PIPELINE_MAX_CONTEXT_CHARS", 8000),
			DefaultTopK:     getEnvAsInt("PIPELINE_DEFAULT_TOP_K", 5),
			MaxImages:       getEnvAsInt("PIPELINE_MAX_IMAGES", 3),
			JobRetention:    getEnvAsDuration("PIPELINE_JOB_RETENTION", 1*time.Hour),
		},
		Cleanup: CleanupConfig{
			Enabled:    getEnvAsBool("CLEANUP_ENABLED", true),
			Delay:      getEnvAsDuration("CLEANUP_DELAY", 30*time.Second),
			KeepFailed: getEnvAsBool("CLEANUP_KEEP_FAILED", true),
			MaxRetries: getEnvAsInt("CLEANUP_MAX_RETRIES", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
