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

type Config struct {
	Env string

	Platform PlatformConfig
	CSRF     CSRFConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Stub     StubConfig
	Export   ExportConfig
}

// PlatformConfig points the console at the remote platform API.
type PlatformConfig struct {
	BaseURL      string
	SessionToken string
	Timeout      time.Duration
}

// CSRFConfig describes how the platform exposes its CSRF token.
type CSRFConfig struct {
	BootstrapPath string
	Header        string
	Cookie        string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig tunes the short-lived session snapshot cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// StubConfig configures the local stand-in platform server.
type StubConfig struct {
	Port            int
	SessionSecret   string
	DefaultPassword string
	Seed            bool
}

// ExportConfig controls where local audit exports are written.
type ExportConfig struct {
	Dir string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Platform = PlatformConfig{
		BaseURL:      strings.TrimRight(v.GetString("PLATFORM_BASE_URL"), "/"),
		SessionToken: v.GetString("SESSION_TOKEN"),
		Timeout:      parseDuration(v.GetString("HTTP_TIMEOUT"), 15*time.Second),
	}

	cfg.CSRF = CSRFConfig{
		BootstrapPath: v.GetString("CSRF_BOOTSTRAP_PATH"),
		Header:        v.GetString("CSRF_HEADER"),
		Cookie:        v.GetString("CSRF_COOKIE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 2*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stub = StubConfig{
		Port:            v.GetInt("STUB_PORT"),
		SessionSecret:   v.GetString("STUB_SESSION_SECRET"),
		DefaultPassword: v.GetString("STUB_DEFAULT_PASSWORD"),
		Seed:            v.GetBool("STUB_SEED"),
	}

	cfg.Export = ExportConfig{
		Dir: v.GetString("EXPORT_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("PLATFORM_BASE_URL", "http://localhost:8080")
	v.SetDefault("SESSION_TOKEN", "")
	v.SetDefault("HTTP_TIMEOUT", "15s")

	v.SetDefault("CSRF_BOOTSTRAP_PATH", "/csrf-cookie")
	v.SetDefault("CSRF_HEADER", "X-CSRF-Token")
	v.SetDefault("CSRF_COOKIE", "XSRF-TOKEN")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "2m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STUB_PORT", 8080)
	v.SetDefault("STUB_SESSION_SECRET", "dev_stub_secret")
	v.SetDefault("STUB_DEFAULT_PASSWORD", "Quran@123")
	v.SetDefault("STUB_SEED", true)

	v.SetDefault("EXPORT_DIR", "./exports")
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
