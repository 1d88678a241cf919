package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the coordinador reads from the environment.
type Config struct {
	Host        string
	Port        string
	LogLevel    string
	LogEncoding string

	// PapeletaCloseDelay is how long a voted ballot stays open before the
	// automatic papeleta_cerrada broadcast.
	PapeletaCloseDelay time.Duration

	// AllowedOrigins restricts CORS and websocket upgrades. "*" allows all,
	// which is what the polling-station LAN deployment uses.
	AllowedOrigins []string
}

// LoadConfig reads configuration from the environment, honoring a local
// .env file when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "3001"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogEncoding:        getEnv("LOG_ENCODING", "json"),
		PapeletaCloseDelay: getEnvAsDuration("PAPELETA_CLOSE_DELAY", 2*time.Second),
		AllowedOrigins:     getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
