package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type ServerCfg struct {
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	BodyLimitMB         int `mapstructure:"body_limit_mb"`
}

type MongoCfg struct {
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	RoomsCollection         string `mapstructure:"rooms_collection"`
	MessagesCollection      string `mapstructure:"messages_collection"`
	NotificationsCollection string `mapstructure:"notifications_collection"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type S3Cfg struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	PublicRead bool   `mapstructure:"public_read"`
}

type JWTCfg struct {
	Secret string `mapstructure:"secret"`
}

type WSCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageBytes      int64 `mapstructure:"max_message_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
}

type ProfileCfg struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type MetricsCfg struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	App     AppCfg     `mapstructure:"app"`
	Server  ServerCfg  `mapstructure:"server"`
	Mongo   MongoCfg   `mapstructure:"mongo"`
	Redis   RedisCfg   `mapstructure:"redis"`
	Kafka   KafkaCfg   `mapstructure:"kafka"`
	S3      S3Cfg      `mapstructure:"s3"`
	JWT     JWTCfg     `mapstructure:"jwt"`
	WS      WSCfg      `mapstructure:"ws"`
	Profile ProfileCfg `mapstructure:"profile"`
	Metrics MetricsCfg `mapstructure:"metrics"`

	// Derived
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	ProfileTimeout time.Duration
}

// Load reads the yaml config and applies CHAT_-prefixed env overrides
// (CHAT_MONGO_URI, CHAT_JWT_SECRET, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.App.Port == 0 {
		cfg.App.Port = 8085
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 10
	}
	if cfg.Mongo.RoomsCollection == "" {
		cfg.Mongo.RoomsCollection = "chat_rooms"
	}
	if cfg.Mongo.MessagesCollection == "" {
		cfg.Mongo.MessagesCollection = "chat_messages"
	}
	if cfg.Mongo.NotificationsCollection == "" {
		cfg.Mongo.NotificationsCollection = "notifications"
	}
	if cfg.WS.PingIntervalSeconds == 0 {
		cfg.WS.PingIntervalSeconds = 30
	}
	if cfg.WS.WriteDeadlineSeconds == 0 {
		cfg.WS.WriteDeadlineSeconds = 10
	}
	if cfg.WS.MaxMessageBytes == 0 {
		cfg.WS.MaxMessageBytes = 64 * 1024
	}
	if cfg.WS.SendBuffer == 0 {
		cfg.WS.SendBuffer = 256
	}
	if cfg.Profile.TimeoutSeconds == 0 {
		cfg.Profile.TimeoutSeconds = 5
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.WS.WriteDeadlineSeconds) * time.Second
	cfg.ProfileTimeout = time.Duration(cfg.Profile.TimeoutSeconds) * time.Second
	return &cfg, nil
}
