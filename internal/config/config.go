package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Interview InterviewConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

type QdrantConfig struct {
	Enabled    bool
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey      string
	APIKeyFile  string
	Model       string
	EmbedModel  string
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
}

type InterviewConfig struct {
	Language          string
	SeedQuestionCount int
	MaxDocumentChars  int
	ContextChunks     int
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

type LogConfig struct {
	JSON  bool
	Debug bool
	File  string
}

type TelemetryConfig struct {
	Enabled bool
	Dir     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "interview_simulator"),
			SQLitePath: getEnv("SQLITE_PATH", "./interview.db"),
		},
		Qdrant: QdrantConfig{
			Enabled:    getEnvAsBool("QDRANT_ENABLED", false),
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "interview_guides"),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			APIKeyFile:  getEnv("GEMINI_API_KEY_FILE", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel:  getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			Temperature: float32(getEnvAsFloat("GEMINI_TEMPERATURE", 0.4)),
			MaxRetries:  getEnvAsInt("GEMINI_MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("GEMINI_RETRY_DELAY", "1s"),
		},
		Interview: InterviewConfig{
			Language:          getEnv("INTERVIEW_LANGUAGE", "English"),
			SeedQuestionCount: getEnvAsInt("INTERVIEW_SEED_QUESTIONS", 3),
			MaxDocumentChars:  getEnvAsInt("INTERVIEW_MAX_DOCUMENT_CHARS", 4000),
			ContextChunks:     getEnvAsInt("INTERVIEW_CONTEXT_CHUNKS", 3),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "30s"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
			File:  getEnv("LOG_FILE", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled: getEnvAsBool("TELEMETRY_ENABLED", false),
			Dir:     getEnv("TELEMETRY_DIR", "./logs"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GeminiAPIKey resolves the API key, preferring the key file when one is set.
// An empty result means the mock gateway should be used.
func (c *Config) GeminiAPIKey() (string, error) {
	file := strings.TrimSpace(c.Gemini.APIKeyFile)
	if file == "" {
		return strings.TrimSpace(c.Gemini.APIKey), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading gemini api key from file %q: %w", file, err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("gemini api key file %q is empty", file)
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
