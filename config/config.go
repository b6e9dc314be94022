package config

import (
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Lock    LockConfig    `mapstructure:"lock"`
	ETCD    ETCDConfig    `mapstructure:"etcd"`
	GraphQL GraphQLConfig `mapstructure:"graphql"`
	Reward  RewardConfig  `mapstructure:"reward"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MySQLConfig struct {
	Master       string `mapstructure:"master"`
	Slave        string `mapstructure:"slave"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// 分析缓存使用的Redis
	DataAddress  string        `mapstructure:"data_address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AnalyticsTTL time.Duration `mapstructure:"analytics_ttl"`

	// Redlock使用的Redis节点
	LockAddresses []string `mapstructure:"lock_addresses"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type LockConfig struct {
	// Driver 取值 etcd 或 redis
	Driver     string        `mapstructure:"driver"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

type ETCDConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type GraphQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RewardConfig struct {
	// Seed 为0时使用当前时间
	Seed int64 `mapstructure:"seed"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_page_size", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.data_address", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.timeout", 3*time.Second)
	v.SetDefault("redis.analytics_ttl", 5*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "poll-votes")
	v.SetDefault("kafka.group_id", "littlepoll-analytics")

	v.SetDefault("lock.driver", "etcd")
	v.SetDefault("lock.timeout", 30*time.Second)
	v.SetDefault("lock.retry_count", 3)

	v.SetDefault("etcd.dial_timeout", 5*time.Second)

	v.SetDefault("graphql.enabled", true)
	v.SetDefault("graphql.path", "/graphql")
}

// LoadConfig 加载配置文件，环境变量优先（例如 MYSQL_MASTER 覆盖 mysql.master）
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "读取配置文件失败")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "解析配置文件失败")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &AppConfig, nil
}

// Validate 检查必填配置项
func (c *Config) Validate() error {
	if c.MySQL.Master == "" {
		return errors.New("mysql.master 不能为空")
	}
	if c.Server.MaxPageSize <= 0 {
		return errors.New("server.max_page_size 必须大于0")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("启用Kafka时 kafka.brokers 不能为空")
	}
	switch c.Lock.Driver {
	case "etcd", "redis":
	default:
		return errors.Errorf("不支持的锁驱动: %s", c.Lock.Driver)
	}
	return nil
}
