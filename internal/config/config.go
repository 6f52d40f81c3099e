package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	DatabaseURL       string
	HTTPPort          string
	LogLevel          string
	SpeechLanguage    string
	ExtractionTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
// The returned bool reports whether a .env file was found.
func Load() (Config, bool) {
	foundDotEnv := godotenv.Load() == nil

	return Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", ""),
		DatabaseURL:       getEnv("DATABASE_URL", "calories.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		SpeechLanguage:    getEnv("SPEECH_LANGUAGE", "en-US"),
		ExtractionTimeout: getEnvAsDuration("EXTRACTION_TIMEOUT", 30*time.Second),
	}, foundDotEnv
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
