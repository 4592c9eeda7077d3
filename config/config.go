package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	MongoDB  string
	Port     string

	JWTSecret string

	// Base URL used to build pagination links and private media URLs.
	APIURL string

	// Per-format page size caps. CSV exports tolerate larger pages than
	// JSON because rows are streamed, never buffered.
	PerPageMaxCSV  int64
	PerPageMaxJSON int64
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func LoadConfig() Config {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg := Config{
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "epicollect"),
		Port:           getEnv("PORT", "3000"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		APIURL:         getEnv("API_URL", "http://localhost:3000"),
		PerPageMaxCSV:  getEnvInt("CSV_PER_PAGE_MAX", 1000),
		PerPageMaxJSON: getEnvInt("JSON_PER_PAGE_MAX", 50),
	}
	return cfg
}
