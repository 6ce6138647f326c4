package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the service reads from the environment.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	CohereBaseURL    string
	CohereAPIKey     string
	EmbedModel       string
	EmbedDimension   int
	EmbedMaxBatch    int
	EmbedMinInterval time.Duration
	RerankModel      string
	RerankEnabled    bool
	RerankTimeout    time.Duration

	MistralBaseURL     string
	MistralAPIKey      string
	MistralModel       string
	GenerateMaxTokens  int
	GenerateMinGap     time.Duration
	ContextTokenBudget int

	CollectionName string
	TopKInitial    int
	TopNFinal      int

	IngestConcurrency int
	AnswerConcurrency int
}

// Load reads configuration from the environment, auto-loading a local .env
// file when present. Secrets may also arrive via *_FILE paths.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "answers_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "answers_password"),
		DBName:     getEnv("DB_NAME", "answers_db"),

		CohereBaseURL:    getEnv("COHERE_BASE_URL", "https://api.cohere.com"),
		CohereAPIKey:     getSecret("COHERE_API_KEY", "COHERE_API_KEY_FILE", ""),
		EmbedModel:       getEnv("COHERE_EMBED_MODEL", "embed-v4.0"),
		EmbedDimension:   getEnvInt("EMBED_DIMENSION", 1536),
		EmbedMaxBatch:    getEnvInt("EMBED_MAX_BATCH", 96),
		EmbedMinInterval: getEnvDuration("EMBED_MIN_INTERVAL", 200*time.Millisecond),
		RerankModel:      getEnv("COHERE_RERANK_MODEL", "rerank-v3.5"),
		RerankEnabled:    getEnvBool("RERANK_ENABLED", true),
		RerankTimeout:    getEnvDuration("RERANK_TIMEOUT", 15*time.Second),

		MistralBaseURL:     getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai"),
		MistralAPIKey:      getSecret("MISTRAL_API_KEY", "MISTRAL_API_KEY_FILE", ""),
		MistralModel:       getEnv("MISTRAL_MODEL", "mistral-large-latest"),
		GenerateMaxTokens:  getEnvInt("GENERATE_MAX_TOKENS", 768),
		GenerateMinGap:     getEnvDuration("GENERATE_MIN_GAP", 1*time.Second),
		ContextTokenBudget: getEnvInt("CONTEXT_TOKEN_BUDGET", 3000),

		CollectionName: getEnv("COLLECTION_NAME", "knowledge_base"),
		TopKInitial:    getEnvInt("RETRIEVE_TOP_K", 10),
		TopNFinal:      getEnvInt("RERANK_TOP_N", 5),

		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),
		AnswerConcurrency: getEnvInt("ANSWER_CONCURRENCY", 2),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
