package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string         `mapstructure:"database_url"`
	ServerPort  string         `mapstructure:"server_port"`
	JWTSecret   string         `mapstructure:"jwt_secret"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Temporal    TemporalConfig `mapstructure:"temporal"`
	Pipeline    PipelineConfig `mapstructure:"pipeline"`
	Email       EmailConfig    `mapstructure:"email"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Push        PushConfig     `mapstructure:"push"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type PipelineConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TelegramConfig struct {
	BotToken        string `mapstructure:"bot_token"`
	APIBaseURL      string `mapstructure:"api_base_url"`
	BroadcastChatID string `mapstructure:"broadcast_chat_id"`
}

type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Redis.Addr == "" {
		config.Redis.Addr = "localhost:6379"
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Kafka.Topic == "" {
		config.Kafka.Topic = "strategy-events"
	}
	if config.Kafka.GroupID == "" {
		config.Kafka.GroupID = "alert-engine"
	}
	if config.Pipeline.PollInterval == 0 {
		config.Pipeline.PollInterval = 2 * time.Second
	}
	if config.Pipeline.BatchSize == 0 {
		config.Pipeline.BatchSize = 500
	}

	return &config
}
