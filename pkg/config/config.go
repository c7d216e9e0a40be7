package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends understood by the file-storage tier.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Log           LogConfig
	FileStorage   FileStorageConfig
	Storage       StorageConfig
	Feed          FeedConfig
	SearchHistory SearchHistoryConfig
	Upload        UploadConfig
	Downloads     DownloadsConfig
	Jobs          JobsConfig
	RateLimit     RateLimitConfig
	Requests      RequestsConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig describes how session tokens issued by the identity provider are verified.
type AuthConfig struct {
	SessionSecret string
	Issuer        string
	AdminRole     string
	WebhookSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FileStorageConfig points the API tier at the file-storage tier.
type FileStorageConfig struct {
	URL     string
	Timeout time.Duration
}

// StorageConfig configures the blob backend of the file-storage tier.
type StorageConfig struct {
	Port        int
	Backend     string
	BaseDir     string
	MaxFormSize int64
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// FeedConfig tunes the public object feed.
type FeedConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

type SearchHistoryConfig struct {
	Size int
}

type UploadConfig struct {
	MaxArchiveBytes   int64
	MaxThumbnailBytes int64
}

// DownloadsConfig controls signed archive download links.
type DownloadsConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RequestsConfig holds moderation flow switches.
type RequestsConfig struct {
	// PrivateSetsPublic keeps the historical behaviour where asking for "private"
	// marks the object public.
	PrivateSetsPublic bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		SessionSecret: v.GetString("AUTH_SESSION_SECRET"),
		Issuer:        v.GetString("AUTH_ISSUER"),
		AdminRole:     v.GetString("AUTH_ADMIN_ROLE"),
		WebhookSecret: v.GetString("AUTH_WEBHOOK_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.FileStorage = FileStorageConfig{
		URL:     strings.TrimRight(v.GetString("FILESTORAGE_URL"), "/"),
		Timeout: parseDuration(v.GetString("FILESTORAGE_TIMEOUT"), 30*time.Second),
	}

	maxForm := v.GetInt64("STORAGE_MAX_FORM_SIZE")
	if maxForm <= 0 {
		maxForm = 256 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Port:        v.GetInt("STORAGE_PORT"),
		Backend:     strings.ToLower(v.GetString("STORAGE_BACKEND")),
		BaseDir:     v.GetString("STORAGE_DIR"),
		MaxFormSize: maxForm,
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			Region:    v.GetString("S3_REGION"),
			Bucket:    v.GetString("S3_BUCKET"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
			PathStyle: v.GetBool("S3_PATH_STYLE"),
		},
	}

	cfg.Feed = FeedConfig{
		DefaultLimit: v.GetInt("FEED_DEFAULT_LIMIT"),
		MaxLimit:     v.GetInt("FEED_MAX_LIMIT"),
		CacheTTL:     parseDuration(v.GetString("FEED_CACHE_TTL"), 30*time.Second),
	}

	cfg.SearchHistory = SearchHistoryConfig{Size: v.GetInt("SEARCH_HISTORY_SIZE")}

	cfg.Upload = UploadConfig{
		MaxArchiveBytes:   v.GetInt64("UPLOAD_MAX_ARCHIVE_SIZE"),
		MaxThumbnailBytes: v.GetInt64("UPLOAD_MAX_THUMBNAIL_SIZE"),
	}

	cfg.Downloads = DownloadsConfig{
		SignedURLSecret: v.GetString("DOWNLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOADS_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 2*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		Burst: v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Requests = RequestsConfig{
		PrivateSetsPublic: v.GetBool("REQUESTS_PRIVATE_SETS_PUBLIC"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "shaderhub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_START", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_SESSION_SECRET", "dev_session_secret")
	v.SetDefault("AUTH_ISSUER", "")
	v.SetDefault("AUTH_ADMIN_ROLE", "admin")
	v.SetDefault("AUTH_WEBHOOK_SECRET", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FILESTORAGE_URL", "http://localhost:3001")
	v.SetDefault("FILESTORAGE_TIMEOUT", "30s")

	v.SetDefault("STORAGE_PORT", 3001)
	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("STORAGE_DIR", "./static")
	v.SetDefault("STORAGE_MAX_FORM_SIZE", 256*1024*1024)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_BUCKET", "shaderhub")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_PATH_STYLE", true)

	v.SetDefault("FEED_DEFAULT_LIMIT", 20)
	v.SetDefault("FEED_MAX_LIMIT", 100)
	v.SetDefault("FEED_CACHE_TTL", "30s")

	v.SetDefault("SEARCH_HISTORY_SIZE", 10)

	v.SetDefault("UPLOAD_MAX_ARCHIVE_SIZE", 200*1024*1024)
	v.SetDefault("UPLOAD_MAX_THUMBNAIL_SIZE", 5*1024*1024)

	v.SetDefault("DOWNLOADS_SIGNED_URL_SECRET", "dev_downloads_secret")
	v.SetDefault("DOWNLOADS_SIGNED_URL_TTL", "15m")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 5)
	v.SetDefault("JOBS_RETRY_DELAY", "2s")

	v.SetDefault("RATE_LIMIT_RPS", 2.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("REQUESTS_PRIVATE_SETS_PUBLIC", true)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
