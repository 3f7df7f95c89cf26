package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values have simple defaults so the downloader works out of the box
// with nothing but credentials set.
type Config struct {
	// Streaming service
	ServiceBaseURL  string // Base URL of the streaming service API
	ServiceUsername string
	ServicePassword string

	// Transcoding
	FFmpegPath string
	OutputDir  string // Folder name created under the user home for downloads

	// Download defaults
	DefaultParallel    int    // Max simultaneous download workers
	DefaultCompression int    // FLAC compression level (0-8)
	DefaultFormat      string // "flac" or "mp3"

	// Progress websocket hub
	NotifyAddr   string // Listen address for the progress hub, empty disables it
	NotifySecret string // Optional JWT secret for subscriber auth

	// Redis配置（可选，用于解析结果缓存）
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置（可选，用于下载完成后的镜像上传）
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// MySQL配置（可选，用于下载历史记录）
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServiceBaseURL:  getEnv("SERVICE_BASE_URL", "https://api.spclient.example.com"),
		ServiceUsername: os.Getenv("SERVICE_USERNAME"),
		ServicePassword: os.Getenv("SERVICE_PASSWORD"), // No hardcoded default for credentials

		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		OutputDir:  getEnv("OUTPUT_DIR", "songrab"),

		DefaultParallel:    getEnvInt("DOWNLOAD_PARALLEL", 5),
		DefaultCompression: getEnvInt("FLAC_COMPRESSION", 4),
		DefaultFormat:      getEnv("OUTPUT_FORMAT", "flac"),

		NotifyAddr:   getEnv("NOTIFY_ADDR", ""),
		NotifySecret: os.Getenv("NOTIFY_SECRET"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "songrab"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "songrab"),
	}
}
