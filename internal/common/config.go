package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	OCR    OCRConfig
	LLM    LLMConfig
	Blob   BlobConfig
	Rules  RulesConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// OCRConfig holds external tool paths and rasterization settings.
type OCRConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	TempDir   string // scratch space for uploaded bytes and rendered pages
}

// LLMConfig holds the reasoning/vision service configuration.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	VisionModel    string // OCR calls
	AnalysisModel  string // verdict/translation calls
	Temperature    float32
	MaxOCRTokens   int
	RequestTimeout time.Duration
}

// BlobConfig holds the queue-path blob store configuration.
type BlobConfig struct {
	Bucket string // GCS bucket; empty disables the queue path
}

// RulesConfig points at the static rule assets.
type RulesConfig struct {
	Dir string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TempDir:   getEnv("TEMP_DIR", os.TempDir()),
		},
		LLM: LLMConfig{
			APIKey:         firstEnv("OPENAI_API_KEY", "OPEN_API_KEY", "OPENAI_KEY"),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			VisionModel:    getEnv("VISION_MODEL", "gpt-4o"),
			AnalysisModel:  getEnv("ANALYSIS_MODEL", "gpt-4o-mini"),
			Temperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxOCRTokens:   getEnvAsInt("OCR_MAX_TOKENS", 1400),
			RequestTimeout: getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Blob: BlobConfig{
			Bucket: getEnv("BLOB_BUCKET", ""),
		},
		Rules: RulesConfig{
			Dir: getEnv("RULES_DIR", "./rules"),
		},
	}
}

// Validate checks configuration required for serving requests.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Rules.Dir == "" {
		return NewAppError("CONFIG_ERROR", "RULES_DIR is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty value among the given keys. The API
// key historically lived under several spellings.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
