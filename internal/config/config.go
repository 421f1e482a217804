package config

import (
	"log"
	"os"
	"strconv"

	"ash-assistant-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Ai        AIConfig
	Knowledge KnowledgeConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogPath       string
	EventLogMaxSizeMB  int
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type AIConfig struct {
	LLMProvider   string // "ollama"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
	ChatURL       string // optional override of the streaming chat endpoint
	GenerateURL   string // optional override of the streaming generate endpoint
	Temperature   float64
	RetrieveTopK  int
}

type KnowledgeConfig struct {
	DocsDir       string
	TranscriptDir string
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
			EventLogPath:       getEnv("EVENT_LOG_PATH", "logs/assistant_events.log"),
			EventLogMaxSizeMB:  getEnvAsInt("EVENT_LOG_MAX_SIZE_MB", 10),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", constant.OllamaDefaultBaseURL),
			ChatURL:       getEnv("OLLAMA_CHAT_URL", ""),
			GenerateURL:   getEnv("OLLAMA_GENERATE_URL", ""),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			RetrieveTopK:  getEnvAsInt("RETRIEVE_TOP_K", 6),
		},
		Knowledge: KnowledgeConfig{
			DocsDir:       getEnv("KNOWLEDGE_DIR", "knowledge"),
			TranscriptDir: getEnv("TRANSCRIPT_DIR", "transcripts"),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
