package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config groups the settings of the API server and the dashboard client.
// Values come from environment variables, optionally seeded from a .env file.
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Storage StorageConfig
	Client  ClientConfig
}

type AppConfig struct {
	Env      string // development, production
	Name     string
	LogLevel string
}

// DBConfig holds the PostgreSQL settings. DatabaseURL wins when set.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TimeZone    string
}

// ConnectionString returns DATABASE_URL if defined, otherwise a key=value DSN.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone,
	)
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

type HTTPConfig struct {
	Host string
	Port int
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig controls where uploaded objects live and how their public
// URLs are built.
type StorageConfig struct {
	Dir       string
	PublicURL string
}

// ClientConfig is read by the dashboard client.
type ClientConfig struct {
	APIURL         string
	LocalDBPath    string
	OrphanTTL      time.Duration
	RequestTimeout time.Duration
}

const devSecret = "dev-secret-change-in-production"

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			TimeZone:    v.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			ExpirationHours: v.GetInt("JWT_EXPIRATION_HOURS"),
			Issuer:          v.GetString("JWT_ISSUER"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Storage: StorageConfig{
			Dir:       v.GetString("STORAGE_DIR"),
			PublicURL: v.GetString("PUBLIC_URL"),
		},
		Client: ClientConfig{
			APIURL:         v.GetString("API_URL"),
			LocalDBPath:    v.GetString("LOCAL_DB_PATH"),
			OrphanTTL:      v.GetDuration("ORPHAN_TTL"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "dispatch-dashboard")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "dispatch")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")

	v.SetDefault("JWT_SECRET", devSecret)
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("JWT_ISSUER", "go-dispatch-ws")

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 3000)

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("PUBLIC_URL", "http://localhost:3000")

	v.SetDefault("API_URL", "http://localhost:3000")
	v.SetDefault("LOCAL_DB_PATH", "dashboard.db")
	v.SetDefault("ORPHAN_TTL", "5s")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
}

func (c *Config) validate() error {
	if c.App.Env == "production" && c.JWT.Secret == devSecret {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.JWT.ExpirationHours <= 0 {
		return errors.New("config: JWT_EXPIRATION_HOURS must be positive")
	}
	if c.Client.OrphanTTL < 0 {
		return errors.New("config: ORPHAN_TTL must not be negative")
	}
	return nil
}
