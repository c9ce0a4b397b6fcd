package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV         = "CONFIG_FILE"
	defaultConfigFilePath = "/config/booklook.yaml"
)

type Config struct {
	CacheTTL                  time.Duration `koanf:"cache_ttl"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseDriver            string        `koanf:"database_driver" validate:"oneof=postgres sqlite"`
	DatabaseMaxOpenConns      int           `koanf:"database_max_open_conns"`
	DatabaseURL               string        `koanf:"database_url" validate:"required"`
	Environment               string        `koanf:"environment"`
	Hostname                  string        `koanf:"hostname"`
	JWTSecret                 string        `koanf:"jwt_secret" validate:"required"`
	MaxPageRangeSpan          int           `koanf:"max_page_range_span" validate:"min=0"`
	RedisAddr                 string        `koanf:"redis_addr"`
	RedisDB                   int           `koanf:"redis_db"`
	RedisPassword             string        `koanf:"redis_password"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	WordsPerPage              int           `koanf:"words_per_page" validate:"min=1"`
}

func defaults() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		CacheTTL:                  time.Hour,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseDriver:            DriverPostgres,
		DatabaseMaxOpenConns:      20,
		Environment:               "development",
		Hostname:                  hostname,
		MaxPageRangeSpan:          10,
		ServerHost:                "0.0.0.0",
		ServerPort:                8000,
		WordsPerPage:              300,
	}
}

// Supported values for DatabaseDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// New builds the configuration from defaults, then the YAML file pointed to
// by CONFIG_FILE, then environment variables. Later sources win.
func New() (*Config, error) {
	k := koanf.New(".")

	configFilePath := os.Getenv(configFileENV)
	if configFilePath == "" {
		configFilePath = defaultConfigFilePath
	}
	if _, err := os.Stat(configFilePath); err == nil {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFilePath)
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a configuration backed by an in-memory SQLite database
// and an in-process cache.
func NewForTest() *Config {
	cfg := defaults()
	cfg.DatabaseDriver = DriverSQLite
	cfg.DatabaseURL = ":memory:"
	cfg.DatabaseMaxOpenConns = 1
	cfg.Environment = "test"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	return cfg
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("koanf")
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errors.WithStack(err)
	}

	missing := []string{}
	var invalid error
	for _, fe := range errs {
		key := fe.Field()
		switch fe.Tag() {
		case "required":
			missing = append(missing, strings.ToUpper(key)+" ("+key+")")
		case "oneof":
			invalid = errors.Errorf("unsupported %s %q, expected one of: %s", key, fe.Value(), fe.Param())
		case "min":
			invalid = errors.Errorf("%s must be at least %s", key, fe.Param())
		default:
			invalid = errors.Errorf("invalid %s", key)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return invalid
}
