package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	BodyLimit   int64      `mapstructure:"body_limit"`   // 字节
	RateLimit   int        `mapstructure:"rate_limit"`   // 变更接口每窗口最大请求数
	RateWindow  string     `mapstructure:"rate_window"`  // 如 "1m"
	ActorHeader string     `mapstructure:"actor_header"` // 上游网关注入的管理员名称请求头
	CORS        CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig 任务目录（谱系存储 + 传播）配置
type CatalogConfig struct {
	PropagationWorkers int           `mapstructure:"propagation_workers"` // 单次传播的并发上限
	LockWait           time.Duration `mapstructure:"lock_wait"`           // 等待谱系锁的最长时间
	MaxRetries         int           `mapstructure:"max_retries"`         // 乐观锁冲突重试次数
}

// CalendarConfig 学期日历配置
type CalendarConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timezone string        `mapstructure:"timezone"` // 用于判断"今天"所在日期
}

// Location 解析日历时区，失败时回退 UTC
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
// 工作目录下存在 .env 时先载入（不覆盖已有环境变量），便于本地开发
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 2<<20)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.actor_header", "X-Admin-Name")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "pandagrad")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Kuala_Lumpur")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("catalog.propagation_workers", 4)
	v.SetDefault("catalog.lock_wait", "3s")
	v.SetDefault("catalog.max_retries", 3)

	v.SetDefault("calendar.cache_ttl", "10m")
	v.SetDefault("calendar.timezone", "Asia/Kuala_Lumpur")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PANDAGRAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.ParseDuration(c.Server.RateWindow); err != nil {
		return fmt.Errorf("配置校验失败: server.rate_window 无效: %w", err)
	}
	if c.Server.ActorHeader == "" {
		return fmt.Errorf("配置校验失败: server.actor_header 不能为空")
	}
	if c.Catalog.PropagationWorkers <= 0 {
		return fmt.Errorf("配置校验失败: catalog.propagation_workers 必须大于 0")
	}
	if c.Catalog.LockWait <= 0 {
		return fmt.Errorf("配置校验失败: catalog.lock_wait 必须大于 0")
	}
	if c.Catalog.MaxRetries < 0 {
		return fmt.Errorf("配置校验失败: catalog.max_retries 不能为负数")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: calendar.timezone 无效: %w", err)
	}
	return nil
}
