package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`      // 服务器配置
	Database    DatabaseConfig    `mapstructure:"database"`    // 数据库配置
	Wiki        WikiConfig        `mapstructure:"wiki"`        // Wiki数据源配置
	MQTT        MQTTConfig        `mapstructure:"mqtt"`        // MQTT推送配置
	Notifier    NotifierConfig    `mapstructure:"notifier"`    // 通知调度配置
	Recommender RecommenderConfig `mapstructure:"recommender"` // 推荐模型配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// WikiConfig GBF Wiki cargoquery数据源配置
type WikiConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // api.php地址
	UserAgent      string `mapstructure:"user_agent"`      // 请求UA（Wiki要求标明联系方式）
	Timeout        int    `mapstructure:"timeout"`         // 请求超时（秒）
	RetryCount     int    `mapstructure:"retry_count"`     // 重试次数
	Proxy          string `mapstructure:"proxy"`           // 代理地址
	EventLimit     int    `mapstructure:"event_limit"`     // 单次拉取活动条数
	CharacterLimit int    `mapstructure:"character_limit"` // 单次拉取角色条数
}

// MQTTConfig MQTT broker配置
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`          // broker地址（tcp://host:port）
	ClientID       string        `mapstructure:"client_id"`       // 客户端ID前缀
	Username       string        `mapstructure:"username"`        // 用户名（可空）
	Password       string        `mapstructure:"password"`        // 密码（可空）
	TopicPrefix    string        `mapstructure:"topic_prefix"`    // 主题前缀（gbf/events/）
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 连接超时
	PublishTimeout time.Duration `mapstructure:"publish_timeout"` // 单次发布等待超时
}

// NotifierConfig 通知调度配置
type NotifierConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 评估周期（默认1h）
}

// RecommenderConfig 角色推荐模型配置
type RecommenderConfig struct {
	URL     string `mapstructure:"url"`     // chat接口地址（Ollama风格）
	Model   string `mapstructure:"model"`   // 模型名
	Timeout int    `mapstructure:"timeout"` // 请求超时（秒）
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("RECOMMENDER_URL"); v != "" {
		cfg.Recommender.URL = v
	}
}

// applyDefaults 兜底默认值（yaml缺省时）
func applyDefaults(cfg *Config) {
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "gbf/events/"
	}
	if cfg.MQTT.ConnectTimeout <= 0 {
		cfg.MQTT.ConnectTimeout = 10 * time.Second
	}
	if cfg.MQTT.PublishTimeout <= 0 {
		cfg.MQTT.PublishTimeout = 5 * time.Second
	}
	if cfg.Notifier.Interval <= 0 {
		cfg.Notifier.Interval = time.Hour
	}
	if cfg.Wiki.EventLimit <= 0 {
		cfg.Wiki.EventLimit = 20
	}
	if cfg.Wiki.CharacterLimit <= 0 {
		cfg.Wiki.CharacterLimit = 500
	}
}
