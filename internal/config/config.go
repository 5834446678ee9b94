package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Postback   PostbackConfig   `mapstructure:"postback"`
	TenantAuth TenantAuthConfig `mapstructure:"tenant_auth"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release

	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	IdleTimeoutSeconds       int `mapstructure:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds"`
}

// ShutdownTimeout 优雅退出的总时限
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	// 单次命令的读写时限，超时按缓存未命中处理
	TimeoutMS int `mapstructure:"timeout_ms"`
}

// Timeout Redis 连接与读写时限
func (c RedisConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
	TimeoutMS   int            `mapstructure:"timeout_ms"`
}

// Timeout 队列 Redis 的连接与读写时限
func (c QueueConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// PostbackConfig 回调接入配置
type PostbackConfig struct {
	PathPrefix       string `mapstructure:"path_prefix"`
	TimeoutMS        int    `mapstructure:"timeout_ms"`
	MaxBodyBytes     int64  `mapstructure:"max_body_bytes"`
	DefaultAckFormat string `mapstructure:"default_ack_format"`
	// 同时在途的后置任务投递数，超出时丢弃并计数
	EnqueueConcurrency int `mapstructure:"enqueue_concurrency"`
}

// Timeout 单次回调处理的总时限
func (c PostbackConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TenantAuthConfig 租户令牌配置
type TenantAuthConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AdminConfig 运维接口配置
type AdminConfig struct {
	KeyHash string `mapstructure:"key_hash"` // bcrypt 哈希
}

// RetentionConfig 数据保留清理配置
type RetentionConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	BatchSize       int  `mapstructure:"batch_size"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults()

	// 环境变量支持（例如 postback.timeout_ms -> POSTBACK_TIMEOUT_MS）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Normalize()

	return &cfg
}

// Normalize 修正非法或缺失的配置项
func (c *Config) Normalize() {
	prefix := strings.TrimSpace(c.Postback.PathPrefix)
	if prefix == "" {
		prefix = constants.PostbackPathPrefixDefault
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	c.Postback.PathPrefix = strings.TrimRight(prefix, "/")
	if c.Postback.PathPrefix == "" || conflictsWithAdminAPI(c.Postback.PathPrefix) {
		if c.Postback.PathPrefix != "" {
			logger.Warnw("config_postback_prefix_conflict",
				"path_prefix", c.Postback.PathPrefix,
				"fallback", constants.PostbackPathPrefixDefault,
			)
		}
		c.Postback.PathPrefix = constants.PostbackPathPrefixDefault
	}
	if c.Postback.TimeoutMS <= 0 {
		c.Postback.TimeoutMS = 3000
	}
	if c.Postback.MaxBodyBytes <= 0 {
		c.Postback.MaxBodyBytes = 1 << 20
	}
	if c.Postback.EnqueueConcurrency <= 0 {
		c.Postback.EnqueueConcurrency = 64
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = 5
	}
	if c.Server.IdleTimeoutSeconds <= 0 {
		c.Server.IdleTimeoutSeconds = 60
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Redis.TimeoutMS <= 0 {
		c.Redis.TimeoutMS = 200
	}
	if c.Queue.TimeoutMS <= 0 {
		c.Queue.TimeoutMS = 1000
	}
	switch strings.ToLower(strings.TrimSpace(c.Postback.DefaultAckFormat)) {
	case constants.AckFormatText:
		c.Postback.DefaultAckFormat = constants.AckFormatText
	default:
		c.Postback.DefaultAckFormat = constants.AckFormatJSON
	}
	if c.TenantAuth.ExpireHours <= 0 {
		c.TenantAuth.ExpireHours = 24 * 365
	}
	if c.Retention.IntervalMinutes <= 0 {
		c.Retention.IntervalMinutes = 60
	}
	if c.Retention.BatchSize <= 0 {
		c.Retention.BatchSize = 500
	}
	if strings.TrimSpace(c.Metrics.Path) == "" {
		c.Metrics.Path = "/metrics"
	}
	if strings.TrimSpace(c.Redis.Prefix) == "" {
		c.Redis.Prefix = constants.RedisPrefixDefault
	}
}

// 回调前缀不能覆盖运维接口
func conflictsWithAdminAPI(prefix string) bool {
	return prefix == "/api" || prefix == "/api/v1" || strings.HasPrefix(prefix, "/api/v1/")
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_header_timeout_seconds", 5)
	viper.SetDefault("server.idle_timeout_seconds", 60)
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "postback.log")
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/postback.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	viper.SetDefault("redis.timeout_ms", 200)
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.timeout_ms", 1000)
	viper.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault:  10,
		constants.QueueCritical: 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Cache-Control",
		"X-Requested-With",
		constants.PostbackTokenHeader,
		constants.AdminKeyHeader,
	})
	viper.SetDefault("cors.allow_credentials", false)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("postback.path_prefix", constants.PostbackPathPrefixDefault)
	viper.SetDefault("postback.timeout_ms", 3000)
	viper.SetDefault("postback.max_body_bytes", 1<<20)
	viper.SetDefault("postback.default_ack_format", constants.AckFormatJSON)
	viper.SetDefault("postback.enqueue_concurrency", 64)
	viper.SetDefault("tenant_auth.secret", "tenant-change-me-in-production")
	viper.SetDefault("tenant_auth.expire_hours", 24*365)
	viper.SetDefault("admin.key_hash", "")
	viper.SetDefault("retention.enabled", true)
	viper.SetDefault("retention.interval_minutes", 60)
	viper.SetDefault("retention.batch_size", 500)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
