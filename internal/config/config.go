package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                   string `yaml:"port"`
	AllowedOrigin          string `yaml:"allowed_origin"`
	DatabaseURL            string `yaml:"database_url"`
	ApplySchema            bool   `yaml:"apply_schema"`
	RedisAddr              string `yaml:"redis_addr"`
	RedisPassword          string `yaml:"redis_password"`
	RedisDB                int    `yaml:"redis_db"`
	StoreNameFallback      string `yaml:"store_name_fallback"`
	LogoPath               string `yaml:"logo_path"`
	Locale                 string `yaml:"locale"`
	CurrencySymbol         string `yaml:"currency_symbol"`
	Timezone               string `yaml:"timezone"`
	CatalogCacheTTLSeconds int    `yaml:"catalog_cache_ttl_seconds"`
	CommitTimeoutSeconds   int    `yaml:"commit_timeout_seconds"`
	RegisterIdleMinutes    int    `yaml:"register_idle_minutes"`
	LogLevel               string `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		Port:                   "8080",
		AllowedOrigin:          "http://127.0.0.1:3000",
		StoreNameFallback:      "Sua Loja",
		Locale:                 "pt-BR",
		CurrencySymbol:         "R$",
		Timezone:               "America/Sao_Paulo",
		CatalogCacheTTLSeconds: 30,
		CommitTimeoutSeconds:   15,
		RegisterIdleMinutes:    240,
		LogLevel:               "info",
	}
}

// Load starts from the defaults, overlays the YAML file named by CONFIG_FILE
// and then the environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ApplySchema = getEnvBool("APPLY_SCHEMA", cfg.ApplySchema)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.StoreNameFallback = strings.TrimSpace(getEnv("STORE_NAME_FALLBACK", cfg.StoreNameFallback))
	cfg.LogoPath = getEnv("LOGO_PATH", cfg.LogoPath)
	cfg.Locale = getEnv("LOCALE", cfg.Locale)
	cfg.CurrencySymbol = getEnv("CURRENCY_SYMBOL", cfg.CurrencySymbol)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.CatalogCacheTTLSeconds = getEnvInt("CATALOG_CACHE_TTL_SECONDS", cfg.CatalogCacheTTLSeconds)
	cfg.CommitTimeoutSeconds = getEnvInt("COMMIT_TIMEOUT_SECONDS", cfg.CommitTimeoutSeconds)
	cfg.RegisterIdleMinutes = getEnvInt("REGISTER_IDLE_MINUTES", cfg.RegisterIdleMinutes)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must be set"))
	}
	if c.CommitTimeoutSeconds < 1 {
		errs = append(errs, errors.New("COMMIT_TIMEOUT_SECONDS must be positive"))
	}
	if c.CatalogCacheTTLSeconds < 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL_SECONDS must not be negative"))
	}
	if _, err := c.Language(); err != nil {
		errs = append(errs, fmt.Errorf("LOCALE: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Language() (language.Tag, error) {
	return language.Parse(c.Locale)
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSeconds) * time.Second
}

func (c Config) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutSeconds) * time.Second
}

func (c Config) RegisterIdle() time.Duration {
	return time.Duration(c.RegisterIdleMinutes) * time.Minute
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}
