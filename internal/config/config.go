package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	Contact   ContactConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SocketLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	AdminJWTSecret     string
	SessionTTL         time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "mistral", "groq", "openai", "ollama", "huggingface"
	LLMModel          string
	LLMBaseURL        string // overrides the provider default when set
	MistralAPIKey     string
	GroqAPIKey        string
	OpenAIAPIKey      string
	HuggingFaceAPIKey string
	OllamaBaseURL     string
	Temperature       float64
	LLMTimeout        time.Duration

	EmbeddingProvider  string // "ollama", "jina", "openai", "gemini"
	EmbeddingModel     string
	EmbeddingBaseURL   string
	EmbeddingAPIKey    string
	EmbeddingTimeout   time.Duration
	EmbeddingCacheTTL  time.Duration
	EmbeddingDimension int
}

type RetrievalConfig struct {
	VectorStore        string // "memory", "pgvector", "qdrant"
	QdrantURL          string
	QdrantAPIKey       string
	QdrantCollection   string
	TopK               int
	ScoreThreshold     float64
	NameFuzzThreshold  int
	ChunkFuzzThreshold int
	QueryTimeout       time.Duration
	CatalogPath        string
	CatalogSource      string // "file" or "database"
	IndexOnStart       bool
	IndexTopic         string
	IndexMaxRetries    int
	IndexRetryInterval time.Duration
}

type ContactConfig struct {
	Name     string
	Phone    string
	WhatsApp string
	Email    string
	Rating   int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SocketLogFilePath:  getEnv("SOCKET_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "mistral")),
			LLMModel:          getEnv("LLM_MODEL", "mistral-small-latest"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			MistralAPIKey:     getEnv("MISTRAL_API_KEY", ""),
			GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),

			EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "ollama")),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "jeffh/intfloat-multilingual-e5-large:f16"),
			EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
			EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingTimeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 15*time.Second),
			EmbeddingCacheTTL:  getEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1024),
		},
		Retrieval: RetrievalConfig{
			VectorStore:        strings.ToLower(getEnv("VECTOR_STORE", "memory")),
			QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
			QdrantCollection:   getEnv("QDRANT_COLLECTION", "smartshop"),
			TopK:               getEnvAsInt("RETRIEVAL_TOP_K", 3),
			ScoreThreshold:     getEnvAsFloat("RETRIEVAL_SCORE_THRESHOLD", 0.3),
			NameFuzzThreshold:  getEnvAsInt("RETRIEVAL_NAME_FUZZ_THRESHOLD", 70),
			ChunkFuzzThreshold: getEnvAsInt("RETRIEVAL_CHUNK_FUZZ_THRESHOLD", 75),
			QueryTimeout:       getEnvAsDuration("VECTOR_QUERY_TIMEOUT", 10*time.Second),
			CatalogPath:        getEnv("CATALOG_PATH", "data/products.json"),
			CatalogSource:      strings.ToLower(getEnv("CATALOG_SOURCE", "file")),
			IndexOnStart:       getEnvAsBool("INDEX_ON_START", false),
			IndexTopic:         getEnv("INDEX_TOPIC", "INDEX_JOBS"),
			IndexMaxRetries:    getEnvAsInt("INDEX_MAX_RETRIES", 3),
			IndexRetryInterval: getEnvAsDuration("INDEX_RETRY_INTERVAL", time.Second),
		},
		Contact: ContactConfig{
			Name:     getEnv("CONTACT_NAME", "Service commercial"),
			Phone:    getEnv("CONTACT_PHONE", ""),
			WhatsApp: getEnv("CONTACT_WHATSAPP", ""),
			Email:    getEnv("CONTACT_EMAIL", ""),
			Rating:   getEnvAsInt("CONTACT_RATING", 5),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "smartshop-be"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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
