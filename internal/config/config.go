// Package config loads server and CLI settings from defaults, an optional
// contracts.yaml file, a .env file and CONTRACTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSecret = "dev-insecure-secret"

// Config holds every setting of both binaries.
type Config struct {
	Port          string        `mapstructure:"port"`
	Env           string        `mapstructure:"env"`
	DatabaseDSN   string        `mapstructure:"database_dsn"`
	Migrations    bool          `mapstructure:"migrations"`
	MigrationsDir string        `mapstructure:"migrations_dir"`
	Seed          bool          `mapstructure:"seed"`
	SeedPassword  string        `mapstructure:"seed_password"`
	DBDebug       bool          `mapstructure:"db_debug"`
	SessionSecret string        `mapstructure:"session_secret"`
	LogLevel      string        `mapstructure:"log_level"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`

	APIURL      string        `mapstructure:"api_url"`
	APIToken    string        `mapstructure:"api_token"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// Production reports whether env is "production" or "prod".
func (c *Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects settings that are unsafe or unusable.
func (c *Config) Validate() error {
	if c.Production() && (c.SessionSecret == "" || c.SessionSecret == defaultSecret) {
		return errors.New("session_secret must be set in production")
	}
	if c.Port == "" {
		return errors.New("port is empty")
	}
	return nil
}

// legacyEnv maps keys to the unprefixed variables older deployments use.
var legacyEnv = map[string]string{
	"port":         "PORT",
	"database_dsn": "DATABASE_DSN",
	"migrations":   "MIGRATIONS",
	"seed":         "DB_SEED",
	"db_debug":     "DB_DEBUG",
}

// Load reads the configuration. file may name a config file explicitly;
// otherwise ./contracts.yaml is used when present. Precedence is
// env > file > defaults.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("database_dsn", "sqlite://contracts.db")
	v.SetDefault("migrations", false)
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("seed", false)
	v.SetDefault("seed_password", "admin123")
	v.SetDefault("db_debug", false)
	v.SetDefault("session_secret", defaultSecret)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 15*time.Second)
	v.SetDefault("idle_timeout", 60*time.Second)
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("api_token", "")
	v.SetDefault("http_timeout", 15*time.Second)

	v.SetEnvPrefix("CONTRACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, "CONTRACTS_"+strings.ToUpper(key), legacy); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if file == "" && fileExists("contracts.yaml") {
		file = "contracts.yaml"
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
