package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		Port         string        `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"readTimeout"`
		WriteTimeout time.Duration `mapstructure:"writeTimeout"`
		IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
			MaxConns int32  `mapstructure:"maxConns"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Places struct {
		BaseURL         string        `mapstructure:"baseURL"`
		APIKey          string        `mapstructure:"apiKey"`
		Timeout         time.Duration `mapstructure:"timeout"`
		GeocodeCacheTTL time.Duration `mapstructure:"geocodeCacheTTL"`
	} `mapstructure:"places"`
	LLM struct {
		APIKey   string        `mapstructure:"apiKey"`
		Model    string        `mapstructure:"model"`
		Timeout  time.Duration `mapstructure:"timeout"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"llm"`
	Search struct {
		CoverageThreshold   int     `mapstructure:"coverageThreshold"`
		DefaultRadiusMeters float64 `mapstructure:"defaultRadiusMeters"`
		OverFetch           int     `mapstructure:"overFetch"`
		DefaultLimit        int     `mapstructure:"defaultLimit"`
		MaxLimit            int     `mapstructure:"maxLimit"`
		DiscoverRadius      float64 `mapstructure:"discoverRadiusMeters"`
	} `mapstructure:"search"`
	Cache struct {
		Valkey struct {
			Enabled bool   `mapstructure:"enabled"`
			Addr    string `mapstructure:"addr"`
		} `mapstructure:"valkey"`
	} `mapstructure:"cache"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
}

// envBindings maps config keys to the conventional variable names deployments
// already set. Any other key can be overridden as e.g. SEARCH_COVERAGETHRESHOLD.
var envBindings = map[string]string{
	"places.apiKey":                  "SERPAPI_API_KEY",
	"llm.apiKey":                     "GOOGLE_GEMINI_API_KEY",
	"repositories.postgres.host":     "POSTGRES_HOST",
	"repositories.postgres.port":     "POSTGRES_PORT",
	"repositories.postgres.username": "POSTGRES_USER",
	"repositories.postgres.password": "POSTGRES_PASSWORD",
	"repositories.postgres.db":       "POSTGRES_DB",
	"auth.jwtSecret":                 "JWT_SECRET_KEY",
	"cache.valkey.addr":              "VALKEY_ADDR",
}

func InitConfig() (Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Search.CoverageThreshold <= 0 {
		return Config{}, fmt.Errorf("search.coverageThreshold must be positive, got %d", config.Search.CoverageThreshold)
	}
	if config.Search.DefaultLimit <= 0 || config.Search.MaxLimit < config.Search.DefaultLimit {
		return Config{}, fmt.Errorf("search limits are inconsistent: default %d, max %d", config.Search.DefaultLimit, config.Search.MaxLimit)
	}
	return config, nil
}
