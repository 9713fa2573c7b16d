// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config 是服务的完整配置：YAML 文件打底，环境变量覆盖。
type Config struct {
	App    AppConfig    `yaml:"app"`
	Store  StoreConfig  `yaml:"store"`
	Infra  InfraConfig  `yaml:"infra"`
	Log    LogConfig    `yaml:"log"`
	Notify NotifyConfig `yaml:"notify"`
}

type AppConfig struct {
	Name        string   `yaml:"name"`
	Env         string   `yaml:"env"`
	Port        int      `yaml:"port"`
	MaxLimit    int      `yaml:"maxLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// IsDevelopment 开发模式下错误响应会附带调用栈。
func (a AppConfig) IsDevelopment() bool { return a.Env == EnvDevelopment }

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type InfraConfig struct {
	MySQL   MySQLConfig   `yaml:"mysql"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Redis   RedisConfig   `yaml:"redis"`
	Webhook WebhookConfig `yaml:"webhook"`
	Jaeger  JaegerConfig  `yaml:"jaeger"`
}

type MySQLConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type JaegerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type NotifyConfig struct {
	QueueSize int `yaml:"queueSize"`
}

// DefaultConfig 返回不依赖任何外部组件即可启动的默认配置。
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "promotion-service",
			Env:      EnvDevelopment,
			Port:     8000,
			MaxLimit: 100,
		},
		Store: StoreConfig{Driver: DriverMemory},
		Infra: InfraConfig{
			MySQL:  MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "promotions"},
			Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "promotions"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "promotion-events"},
			Redis:  RedisConfig{Addr: "localhost:6379", Channel: "promotion-events"},
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces", SampleRatio: 1},
		},
		Log:    LogConfig{Level: "info"},
		Notify: NotifyConfig{QueueSize: 256},
	}
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次加载的配置；尚未加载时返回默认配置。
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	return DefaultConfig()
}

// LoadConfig 依次加载 .env、YAML 文件和环境变量，并设为当前配置。
// path 为空时读取 CONFIG_PATH，仍为空则尝试 config.yaml，文件不存在不算错误。
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := lookupInt("PORT"); ok {
		cfg.App.Port = v
	}
	if v := firstEnv("APP_ENV", "NODE_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v, ok := lookupInt("MAX_LIMIT"); ok {
		cfg.App.MaxLimit = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.App.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.MySQL.DSN = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Infra.Mongo.URI = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		cfg.Infra.Mongo.Database = v
		cfg.Infra.MySQL.Database = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = splitList(v)
		cfg.Infra.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Infra.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
		cfg.Infra.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Infra.Redis.Password = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Infra.Webhook.URL = v
		cfg.Infra.Webhook.Enabled = true
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
		cfg.Infra.Jaeger.Enabled = true
	}
	if v, err := strconv.ParseFloat(getEnv("JAEGER_SAMPLE_RATIO", ""), 64); err == nil {
		cfg.Infra.Jaeger.SampleRatio = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate 检查配置的基本合法性。
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("invalid app.port %d", c.App.Port)
	}
	if c.App.MaxLimit <= 0 {
		return errors.Errorf("invalid app.maxLimit %d", c.App.MaxLimit)
	}
	switch c.Store.Driver {
	case DriverMySQL, DriverMongo, DriverMemory:
	default:
		return errors.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Infra.Kafka.Enabled && (len(c.Infra.Kafka.Brokers) == 0 || c.Infra.Kafka.Topic == "") {
		return errors.New("kafka enabled without brokers or topic")
	}
	if r := c.Infra.Jaeger.SampleRatio; r < 0 || r > 1 {
		return errors.Errorf("invalid infra.jaeger.sampleRatio %v", r)
	}
	if c.Infra.Webhook.Enabled && c.Infra.Webhook.URL == "" {
		return errors.New("webhook enabled without url")
	}
	return nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func lookupInt(key string) (int, bool) {
	v := getEnv(key, "")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
