package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because every field carries its fully-qualified
	// RESTYLE_* variable name in its envconfig tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESTYLE_APP_ENV" required:"true"`
	Port         string `envconfig:"RESTYLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESTYLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESTYLE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"RESTYLE_DB_DSN"`

	Host     string `envconfig:"RESTYLE_DB_HOST"`
	Port     int    `envconfig:"RESTYLE_DB_PORT" default:"5432"`
	User     string `envconfig:"RESTYLE_DB_USER"`
	Password string `envconfig:"RESTYLE_DB_PASSWORD"`
	Name     string `envconfig:"RESTYLE_DB_NAME"`
	SSLMode  string `envconfig:"RESTYLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESTYLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESTYLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESTYLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESTYLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from discrete fields when one was not
// provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database config incomplete: set RESTYLE_DB_DSN or host/user/name")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RESTYLE_REDIS_URL"`
	Addr         string        `envconfig:"RESTYLE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"RESTYLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESTYLE_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"RESTYLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESTYLE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"RESTYLE_REDIS_WRITE_TIMEOUT" default:"3s"`
	PoolSize     int           `envconfig:"RESTYLE_REDIS_POOL_SIZE" default:"10"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESTYLE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESTYLE_JWT_ISSUER" default:"restyle"`
	ExpirationMinutes int    `envconfig:"RESTYLE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESTYLE_FEATURE_AUTO_MIGRATE" default:"false"`
}
