package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Fanout   FanoutConfig   `mapstructure:"fanout"`
	Feed     FeedConfig     `mapstructure:"feed"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	Mode      string  `mapstructure:"mode"` // debug / release
	RateRPS   float64 `mapstructure:"rate_rps"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres / sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// FanoutConfig 扇出参数：小于 inline_limit 的粉丝量走同步路径，否则投递异步任务
type FanoutConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	BatchSize   int           `mapstructure:"batch_size"`
	InlineLimit int           `mapstructure:"inline_limit"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	SeedWindow  time.Duration `mapstructure:"seed_window"`
}

type FeedConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
	HydrateConc  int `mapstructure:"hydrate_conc"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"` // otlp http endpoint, 留空则不上报
}

// Load 读取 config.yaml 并叠加环境变量（TL_ 前缀）
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_rps", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:social.db?cache=shared")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Minute)
	v.SetDefault("fanout.workers", 4)
	v.SetDefault("fanout.queue_size", 10000)
	v.SetDefault("fanout.batch_size", 500)
	v.SetDefault("fanout.inline_limit", 64)
	v.SetDefault("fanout.max_retries", 3)
	v.SetDefault("fanout.retry_delay", 100*time.Millisecond)
	v.SetDefault("fanout.seed_window", 7*24*time.Hour)
	v.SetDefault("feed.default_limit", 20)
	v.SetDefault("feed.max_limit", 100)
	v.SetDefault("feed.hydrate_conc", 8)
	v.SetDefault("jwt.secret", "dev-secret")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可缺省，全部走默认值 + 环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
