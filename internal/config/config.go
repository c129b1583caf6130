package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig parameterizes the hybrid engine. The blend weights
// are fixed at deploy time; changing them changes every score, so they live
// in configuration rather than code.
type RecommendationConfig struct {
	Weights         WeightsConfig `mapstructure:"weights"`
	CF              CFConfig      `mapstructure:"collaborative_filtering"`
	Content         ContentConfig `mapstructure:"content"`
	SVD             SVDConfig     `mapstructure:"svd"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	ContextRules    string        `mapstructure:"context_rules"`
	RetrainInterval time.Duration `mapstructure:"retrain_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type WeightsConfig struct {
	CF      float64 `mapstructure:"cf" validate:"gte=0,lte=1"`
	Content float64 `mapstructure:"content" validate:"gte=0,lte=1"`
	SVD     float64 `mapstructure:"svd" validate:"gte=0,lte=1"`
}

type CFConfig struct {
	Neighbors  int `mapstructure:"neighbors" validate:"gte=0"`
	MinOverlap int `mapstructure:"min_overlap" validate:"gte=0"`
}

type ContentConfig struct {
	TopK int `mapstructure:"top_k" validate:"gte=0"`
}

type SVDConfig struct {
	Factors        int     `mapstructure:"factors" validate:"gte=0"`
	Regularization float64 `mapstructure:"regularization" validate:"gte=0"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config.Recommendation); err != nil {
		return nil, fmt.Errorf("invalid recommendation config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation defaults. The weight triple is the documented blend;
	// missing engine contributions are excluded from the weighted average,
	// not counted as zero.
	viper.SetDefault("recommendation.weights.cf", 0.5)
	viper.SetDefault("recommendation.weights.content", 0.3)
	viper.SetDefault("recommendation.weights.svd", 0.2)
	viper.SetDefault("recommendation.collaborative_filtering.neighbors", 25)
	viper.SetDefault("recommendation.collaborative_filtering.min_overlap", 1)
	viper.SetDefault("recommendation.content.top_k", 50)
	viper.SetDefault("recommendation.svd.factors", 50)
	viper.SetDefault("recommendation.svd.regularization", 0.02)
	viper.SetDefault("recommendation.cache_ttl", "15m")
	viper.SetDefault("recommendation.context_rules", "./config/context_rules.yaml")
	viper.SetDefault("recommendation.retrain_interval", "6h")
	viper.SetDefault("recommendation.request_timeout", "2s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
