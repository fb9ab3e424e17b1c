package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the deployment settings read from the environment.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	Debug     bool
}

// Load reads configuration from a .env file if present, then from the
// environment. Missing values fall back to development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "auction.db"),
		JWTSecret: getEnv("JWT_SECRET", "auction-secret-key"),
		Debug:     os.Getenv("DEBUG") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
