package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	DSN         string
	JWT         JWTConfig
	Redis       RedisConfig
	Log         LogConfig
	Bulk        BulkConfig
	Expiry      ExpiryConfig
	DNS         DNSConfig
	MinIO       MinIOConfig
	Metrics     MetricsConfig
	CORS        CORSConfig
}

type JWTConfig struct {
	Token         string
	ExpiresIn     time.Duration
	SigningMethod jwt.SigningMethod `mapstructure:"-"`
}

type RedisConfig struct {
	Host        string
	Password    string
	Port        int
	User        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type BulkConfig struct {
	Workers  int
	MaxItems int
}

type ExpiryConfig struct {
	WindowDays          int
	RenewedLookbackDays int
}

// DNSConfig seeds the records created for a newly registered domain.
type DNSConfig struct {
	DefaultARecord string
	DefaultMX      string
}

type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLTTL    time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type CORSConfig struct {
	AllowOrigins []string
}

const (
	envConfigName = "CONFIG_NAME"
	envJWTSecret  = "JWT_SECRET"
	envRedisHost  = "REDIS_HOST"
	envRedisPort  = "REDIS_PORT"
	envRedisUser  = "REDIS_USER"
	envRedisPass  = "REDIS_PASSWORD"
	envMinIOKey   = "MINIO_ACCESS_KEY"
	envMinIOSec   = "MINIO_SECRET_KEY"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("servicehost", "0.0.0.0")
	v.SetDefault("serviceport", 8080)
	v.SetDefault("jwt.expiresin", time.Hour)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.dialtimeout", 10*time.Second)
	v.SetDefault("redis.readtimeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("bulk.workers", 4)
	v.SetDefault("bulk.maxitems", 500)
	v.SetDefault("expiry.windowdays", 30)
	v.SetDefault("expiry.renewedlookbackdays", 30)
	v.SetDefault("minio.bucket", "batch-reports")
	v.SetDefault("minio.urlttl", time.Hour)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("cors.alloworigins", []string{"*"})
}

// NewConfig reads config.toml (or $CONFIG_NAME.toml) from the given
// directories, "config" and "." by default, then applies secrets from the
// environment. A missing file leaves the defaults in place.
func NewConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	configName := "config"
	if os.Getenv(envConfigName) != "" {
		configName = os.Getenv(envConfigName)
	}
	if len(paths) == 0 {
		paths = []string{"config", "."}
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn("config file not found, using defaults")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if secret := os.Getenv(envJWTSecret); secret != "" {
		cfg.JWT.Token = secret
	}
	if cfg.JWT.Token == "" {
		return nil, errors.New("jwt secret is empty, set JWT_SECRET")
	}
	cfg.JWT.SigningMethod = jwt.SigningMethodHS256

	if host := os.Getenv(envRedisHost); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv(envRedisPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("redis port must be int value: %w", err)
		}
		cfg.Redis.Port = p
	}
	if user := os.Getenv(envRedisUser); user != "" {
		cfg.Redis.User = user
	}
	if pass := os.Getenv(envRedisPass); pass != "" {
		cfg.Redis.Password = pass
	}
	if key := os.Getenv(envMinIOKey); key != "" {
		cfg.MinIO.AccessKey = key
	}
	if secret := os.Getenv(envMinIOSec); secret != "" {
		cfg.MinIO.SecretKey = secret
	}

	log.Info("config parsed")

	return cfg, nil
}
