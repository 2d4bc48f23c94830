package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Storage StorageConfig
	Metrics MetricsConfig
	Server  ServerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

type StorageConfig struct {
	PhotoDir     string
	PhotoBaseURL string
}

type MetricsConfig struct {
	Prefix string
}

type ServerConfig struct {
	Port      string
	RateLimit string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, _ := strconv.Atoi(getEnv("JWT_TTL_HOURS", "12"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "inspectra"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "152fe54a-ac31-4d3c-b94b-6135cc25c55a"),
			TokenTTLHours: tokenTTL,
		},
		Storage: StorageConfig{
			PhotoDir:     getEnv("PHOTO_DIR", "./uploads/photos"),
			PhotoBaseURL: getEnv("PHOTO_BASE_URL", "/static/photos"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "inspectra"),
		},
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			RateLimit: getEnv("RATE_LIMIT", "60-M"),
		},
	}
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
