package config

import (
	"os"
	"strconv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Image stores accepted by IMAGE_STORE.
const (
	ImageStoreMinIO      = "minio"
	ImageStoreCloudinary = "cloudinary"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI               string
	Database          string
	ConnectTimeoutSec int
}

// MinIOConfig holds object storage settings for MinIO.
// PublicURL overrides the base used to build image URLs (defaults to the endpoint).
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// CloudinaryConfig holds Cloudinary credentials and the upload folder.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// GeocodingConfig holds forward-geocoding settings.
type GeocodingConfig struct {
	BaseURL         string
	AccessToken     string
	TimeoutMs       int
	MaxRetries      int
	FallbackEnabled bool
	FallbackLon     float64
	FallbackLat     float64
}

// RedisConfig holds listing cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLSec   int
}

// NATSConfig holds event publishing settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// AuthConfig holds identity verification settings.
type AuthConfig struct {
	JWTSecret     string
	SessionCookie string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	TimeZone    string
	LogLevel    string
	StoreDriver string
	ImageStore  string
	Database    DatabaseConfig
	Mongo       MongoConfig
	MinIO       MinIOConfig
	Cloudinary  CloudinaryConfig
	Geocoding   GeocodingConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Auth        AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		TimeZone:    getEnv("TZ_LOCATION", "UTC"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: getEnv("STORE_DRIVER", StorePostgres),
		ImageStore:  getEnv("IMAGE_STORE", ImageStoreMinIO),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Mongo: MongoConfig{
			URI:               getEnv("MONGO_URI", ""),
			Database:          getEnv("MONGO_DATABASE", "wanderlust"),
			ConnectTimeoutSec: getEnvInt("MONGO_CONNECT_TIMEOUT_SEC", 10),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_KEY", ""),
			APISecret: getEnv("CLOUDINARY_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "wanderlust_DEV"),
		},
		Geocoding: GeocodingConfig{
			BaseURL:         getEnv("GEOCODE_BASE_URL", "https://api.mapbox.com"),
			AccessToken:     getEnv("MAP_TOKEN", ""),
			TimeoutMs:       getEnvInt("GEOCODE_TIMEOUT_MS", 5000),
			MaxRetries:      getEnvInt("GEOCODE_MAX_RETRIES", 0),
			FallbackEnabled: getEnvBool("GEOCODE_FALLBACK_ENABLED", false),
			FallbackLon:     getEnvFloat("GEOCODE_FALLBACK_LON", 77.2090),
			FallbackLat:     getEnvFloat("GEOCODE_FALLBACK_LAT", 28.6139),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTLSec:   getEnvInt("REDIS_TTL_SEC", 3600),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "listings"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionCookie: getEnv("SESSION_COOKIE", "session"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
