// Package config 加载服务配置：config.env 文件 + NATOURS_ 前缀的环境变量
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	TransportMemory = "memory"
	TransportSync   = "sync"
	TransportNATS   = "nats"
	TransportRedis  = "redis"

	// DefaultPrefix 环境变量前缀
	DefaultPrefix = "NATOURS_"
	// DefaultFile 默认配置文件
	DefaultFile = "config.env"
)

// Config 服务配置
type Config struct {
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`

	// NodeID 雪花 ID 节点号，共享数据库的实例之间不能重复
	NodeID int64 `mapstructure:"node_id"`

	DBMaxOpenConns  int `mapstructure:"db_max_open_conns"`
	DBBusyTimeoutMS int `mapstructure:"db_busy_timeout_ms"`

	Transport   string `mapstructure:"transport"`
	NatsURL     string `mapstructure:"nats_url"`
	NatsStream  string `mapstructure:"nats_stream"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisStream string `mapstructure:"redis_stream"` // 流名前缀，后接消息类型

	RateLimitRPS   float64 `mapstructure:"ratelimit_rps"`
	RateLimitBurst int     `mapstructure:"ratelimit_burst"`
	BodyLimit      int64   `mapstructure:"body_limit"`

	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsDevelopment 开发模式
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Instance 实例标识，消息传输据此为每个实例建立独立的消费者
func (c *Config) Instance() string {
	return "node-" + strconv.FormatInt(c.NodeID, 10)
}

// Addr 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid env %q: must be %s or %s", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	switch c.Transport {
	case TransportMemory, TransportSync:
	case TransportNATS:
		if c.NatsURL == "" {
			return fmt.Errorf("nats_url is required for nats transport")
		}
	case TransportRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for redis transport")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("invalid node_id %d: must be within 0..1023", c.NodeID)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("port", 5000)
	v.SetDefault("db_path", "natours.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("node_id", 1)
	v.SetDefault("db_max_open_conns", 4)
	v.SetDefault("db_busy_timeout_ms", 5000)
	v.SetDefault("transport", TransportMemory)
	v.SetDefault("nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("nats_stream", "NATOURS")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_stream", "natours:")
	v.SetDefault("ratelimit_rps", 50.0)
	v.SetDefault("ratelimit_burst", 100)
	v.SetDefault("body_limit", 10*1024)
	v.SetDefault("cache_ttl", "1m")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("shutdown_timeout", "10s")
}

// Load 按默认文件与前缀加载
func Load() (*Config, error) {
	return LoadFrom(DefaultFile, DefaultPrefix)
}

// LoadFrom 依次应用：默认值、配置文件（可选）、前缀环境变量。
// 环境变量 NATOURS_DB_PATH 对应键 db_path；PORT 与 NODE_ENV 作为兼容别名。
func LoadFrom(file, prefix string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		if _, err := os.Stat(file); err == nil {
			v.SetConfigFile(file)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
			}
			// dotenv 文件的键可能带前缀
			for _, key := range v.AllKeys() {
				trimmed := strings.TrimPrefix(key, strings.ToLower(prefix))
				if trimmed != key {
					v.Set(trimmed, v.Get(key))
				}
			}
		}
	}

	if port, ok := os.LookupEnv("PORT"); ok {
		v.Set("port", port)
	}
	if env, ok := os.LookupEnv("NODE_ENV"); ok {
		v.Set("env", env)
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if prefixUpper == "" || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		v.Set(strings.ToLower(strings.TrimPrefix(key, prefixUpper)), value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
