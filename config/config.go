// Package config loads service configuration from the environment.
//
// All variables carry the PTO_ prefix. A .env file is honored in
// development (loaded by the entrypoints via godotenv) but real
// environments set the variables directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "PTO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Server ServerConfig
	Auth   AuthConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env       string `envconfig:"PTO_APP_ENV" default:"dev"`
	LogLevel  string `envconfig:"PTO_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"PTO_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Path string `envconfig:"PTO_DB_PATH" default:"./data/pto.db"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PTO_SERVER_PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"PTO_SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"PTO_SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"PTO_SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AuthConfig covers the development identity shim. There is no real
// authentication layer yet; the API acts on behalf of DefaultEmployeeID
// unless override_employee_id is supplied and overrides are allowed.
type AuthConfig struct {
	DefaultEmployeeID     int64 `envconfig:"PTO_DEFAULT_EMPLOYEE_ID" default:"1"`
	AllowEmployeeOverride bool  `envconfig:"PTO_ALLOW_EMPLOYEE_OVERRIDE" default:"true"`
}
