package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr  string
	LogLevel    string
	LogFormat   string
	CORSOrigins string
	MetricsPath string

	Postgres PostgresConfig
	Ollama   OllamaConfig
	LLM      LLMConfig
	Speech   SpeechConfig
	RAG      RAGConfig
	Quiz     QuizConfig
	Redis    RedisConfig
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type OllamaConfig struct {
	URL            string
	EmbeddingModel string
}

// EmbeddingsURL is the Ollama endpoint that turns a prompt into a vector.
func (c OllamaConfig) EmbeddingsURL() string {
	return strings.TrimRight(c.URL, "/") + "/api/embeddings"
}

type LLMConfig struct {
	Provider      string // "ollama" or "openai"
	URL           string
	Model         string
	System        string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

type SpeechConfig struct {
	URL   string
	Model string
}

type RAGConfig struct {
	VectorStoreDir   string
	IndexBackend     string // "flat" or "pgvector"
	TopK             int
	MaxContextLength int
}

type QuizConfig struct {
	Path       string
	ContentDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether the embedding cache should be used.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads envFile when it exists and builds the configuration from the
// environment. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	ollamaURL := getEnv("OLLAMA_URL", "http://localhost:11434")
	cfg := &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8021"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		MetricsPath: getEnv("METRICS_PATH", "/metrics"),
		Postgres: PostgresConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnvAsInt("PG_PORT", 5432),
			User:     getEnv("PG_USER", "postgres"),
			Password: getEnv("PG_PASS", ""),
			DBName:   getEnv("PG_DB_NAME", "bezbot"),
			SSLMode:  getEnv("PG_SSLMODE", "disable"),
		},
		Ollama: OllamaConfig{
			URL:            ollamaURL,
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "bge-m3"),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
			URL:           getEnv("LLM_URL", strings.TrimRight(ollamaURL, "/")+"/api/generate"),
			Model:         getEnv("LLM_MODEL", "qwen2.5:7b"),
			System:        getEnv("LLM_SYSTEM_PROMPT", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Speech: SpeechConfig{
			URL:   getEnv("STT_URL", "http://localhost:9000/v1/audio/transcriptions"),
			Model: getEnv("STT_MODEL", "whisper-1"),
		},
		RAG: RAGConfig{
			VectorStoreDir:   getEnv("VECTOR_STORE_DIR", "vector_store"),
			IndexBackend:     strings.ToLower(getEnv("RAG_INDEX_BACKEND", "flat")),
			TopK:             getEnvAsInt("RAG_TOP_K", 5),
			MaxContextLength: getEnvAsInt("RAG_MAX_CONTEXT_LENGTH", 2000),
		},
		Quiz: QuizConfig{
			Path:       getEnv("QUIZ_JSON_PATH", "quiz.json"),
			ContentDir: getEnv("QUIZ_CONTENT_DIR", "quiz_content"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("EMBED_CACHE_TTL", 24*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	switch c.RAG.IndexBackend {
	case "flat", "pgvector":
	default:
		return fmt.Errorf("unknown RAG_INDEX_BACKEND %q", c.RAG.IndexBackend)
	}
	return nil
}

// PostgresDSN builds a keyword/value connection string for pgx.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
