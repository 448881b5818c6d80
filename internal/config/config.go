package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret is only accepted outside production.
const DevJWTSecret = "dev-secret-change-me"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Worker    WorkerConfig    `json:"worker"`
	Auth      AuthConfig      `json:"auth"`
	Cookie    CookieConfig    `json:"cookie"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Environment     string        `json:"environment"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

type DatabaseConfig struct {
	URL             string        `json:"-"`
	RequireSSL      bool          `json:"require_ssl"`
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"-"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Password     string        `json:"-"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	// EnqueueTimeout bounds a reminder push made on the request path.
	EnqueueTimeout time.Duration `json:"enqueue_timeout"`
}

type WorkerConfig struct {
	Concurrency  int           `json:"concurrency"`
	PollInterval time.Duration `json:"poll_interval"`
	Queues       []string      `json:"queues"`
}

type AuthConfig struct {
	JWTSecret  string        `json:"-"`
	Issuer     string        `json:"issuer"`
	TokenTTL   time.Duration `json:"token_ttl"`
	BCryptCost int           `json:"bcrypt_cost"`
}

type CookieConfig struct {
	Name      string `json:"name"`
	CrossSite bool   `json:"cross_site"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute"`
	BurstSize       int           `json:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

func LoadConfig() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "localhost"),
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			Environment:     environment,
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			RequireSSL:      getEnvAsBool("DATABASE_SSL", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "task_tracker"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", true),
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			PoolSize:       getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:   getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			MaxRetries:     getEnvAsInt("REDIS_MAX_RETRIES", 3),
			DialTimeout:    getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:    getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:   getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			EnqueueTimeout: getEnvAsDuration("REDIS_ENQUEUE_TIMEOUT", 500*time.Millisecond),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", 5*time.Second),
			Queues:       []string{"reminders", "retry_queue"},
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "task-tracker"),
			TokenTTL:   getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour),
			BCryptCost: getEnvAsInt("BCRYPT_COST", 10),
		},
		Cookie: CookieConfig{
			Name:      getEnv("COOKIE_NAME", "token"),
			CrossSite: getEnvAsBool("CROSS_SITE_COOKIES", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin:  getEnvAsInt("RATE_LIMIT_RPM", 100),
			BurstSize:       getEnvAsInt("RATE_LIMIT_BURST", 10),
			CleanupInterval: getEnvAsDuration("RATE_LIMIT_CLEANUP", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", environment != "production"),
		},
	}

	if config.IsProduction() {
		if config.Auth.JWTSecret == "" || config.Auth.JWTSecret == DevJWTSecret {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		if config.Database.URL == "" && config.Database.Password == "" {
			return nil, errors.New("database password is required in production")
		}
	} else if config.Auth.JWTSecret == "" {
		config.Auth.JWTSecret = DevJWTSecret
	}

	if config.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", config.Auth.TokenTTL)
	}

	return config, nil
}

// GetDatabaseDSN prefers DATABASE_URL and falls back to the DB_* parts.
// DATABASE_SSL=true forces sslmode=require on either form.
func (c *Config) GetDatabaseDSN() string {
	if c.Database.URL != "" {
		if !c.Database.RequireSSL || strings.HasPrefix(c.Database.URL, "sqlite://") {
			return c.Database.URL
		}
		u, err := url.Parse(c.Database.URL)
		if err != nil {
			return c.Database.URL
		}
		q := u.Query()
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
		return u.String()
	}

	sslMode := c.Database.SSLMode
	if c.Database.RequireSSL {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
