package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Broker BrokerConfig `mapstructure:"broker"`
	Cron   CronConfig   `mapstructure:"cron"`
	Sweep  SweepConfig  `mapstructure:"sweep"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	SignalsTopic string        `mapstructure:"signals_topic"`
	OrdersTopic  string        `mapstructure:"orders_topic"`
	GroupID      string        `mapstructure:"group_id"`
	StartOffset  string        `mapstructure:"start_offset"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type BrokerConfig struct {
	Name           string        `mapstructure:"name"`
	BaseURL        string        `mapstructure:"base_url"`
	OrderBaseURL   string        `mapstructure:"order_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	AccessTokenEnv string        `mapstructure:"access_token_env"`
	Product        string        `mapstructure:"product"`
	Validity       string        `mapstructure:"validity"`
}

type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProtectionSweep string `mapstructure:"protection_sweep"`
}

type SweepConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.signals_topic", "signals")
	v.SetDefault("kafka.orders_topic", "orders")
	v.SetDefault("kafka.group_id", "orders_management")
	v.SetDefault("kafka.start_offset", "earliest")
	v.SetDefault("kafka.dial_timeout", "10s")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("broker.name", "upstox")
	v.SetDefault("broker.base_url", "https://api.upstox.com")
	v.SetDefault("broker.order_base_url", "https://api-hft.upstox.com")
	v.SetDefault("broker.timeout", "15s")
	v.SetDefault("broker.access_token_env", "UPSTOX_ACCESS_TOKEN")
	v.SetDefault("broker.product", "D")
	v.SetDefault("broker.validity", "DAY")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.protection_sweep", "@every 1m")
	v.SetDefault("sweep.batch_size", 100)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
