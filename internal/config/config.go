// Package config 載入伺服器設定
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Game struct {
		TickInterval time.Duration `yaml:"tick_interval"`
		MaxShots     int           `yaml:"max_shots"`
	} `yaml:"game"`

	Session struct {
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		ClientTimeout     time.Duration `yaml:"client_timeout"`
		SendBuffer        int           `yaml:"send_buffer"`
		MaxMessageSize    int64         `yaml:"max_message_size"`
		RateLimit         struct {
			Capacity   int64 `yaml:"capacity"`
			RefillRate int64 `yaml:"refill_rate"`
		} `yaml:"rate_limit"`
	} `yaml:"session"`

	Registry struct {
		MailboxSize int    `yaml:"mailbox_size"`
		ChatRoom    string `yaml:"chat_room"`
		ReportQueue int    `yaml:"report_queue"`
	} `yaml:"registry"`

	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Addr        string        `yaml:"addr"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		KeyPrefix   string        `yaml:"key_prefix"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
	} `yaml:"redis"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		AddSource bool   `yaml:"add_source"`
	} `yaml:"log"`
}

// Default 可直接運作的預設值
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Game.TickInterval = 100 * time.Millisecond
	cfg.Game.MaxShots = 20

	cfg.Session.HeartbeatInterval = 5 * time.Second
	cfg.Session.ClientTimeout = 10 * time.Second
	cfg.Session.SendBuffer = 256
	cfg.Session.MaxMessageSize = 4096
	cfg.Session.RateLimit.Capacity = 30
	cfg.Session.RateLimit.RefillRate = 20

	cfg.Registry.MailboxSize = 256
	cfg.Registry.ChatRoom = "main"
	cfg.Registry.ReportQueue = 64

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.KeyPrefix = "arcade"
	cfg.Redis.DialTimeout = 5 * time.Second

	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.SubjectPrefix = "arcade"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"

	return cfg
}

// Load 讀取 YAML 檔並覆蓋在預設值上；path 為空時只套用預設值與環境變數
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		cfg.applyEnv()
		return cfg, nil
	}

	// #nosec G304 - path 來自啟動參數
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv 環境變數覆蓋外部服務位址（容器部署常用）
func (c *Config) applyEnv() {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}
}

// Validate 檢查設定是否可用
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid config").
			WithDetails(fmt.Sprintf(format, args...))
	}

	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return invalid("server.port %d out of range", c.Server.Port)
	case c.Game.TickInterval <= 0:
		return invalid("game.tick_interval must be positive")
	case c.Game.MaxShots <= 0:
		return invalid("game.max_shots must be positive")
	case c.Session.HeartbeatInterval <= 0:
		return invalid("session.heartbeat_interval must be positive")
	case c.Session.ClientTimeout <= c.Session.HeartbeatInterval:
		return invalid("session.client_timeout (%s) must exceed heartbeat_interval (%s)",
			c.Session.ClientTimeout, c.Session.HeartbeatInterval)
	case c.Session.SendBuffer <= 0:
		return invalid("session.send_buffer must be positive")
	case c.Session.MaxMessageSize <= 0:
		return invalid("session.max_message_size must be positive")
	case c.Session.RateLimit.Capacity <= 0 || c.Session.RateLimit.RefillRate <= 0:
		return invalid("session.rate_limit capacity and refill_rate must be positive")
	case c.Registry.MailboxSize <= 0:
		return invalid("registry.mailbox_size must be positive")
	case c.Registry.ChatRoom == "":
		return invalid("registry.chat_room must not be empty")
	case c.Redis.Enabled && c.Redis.Addr == "":
		return invalid("redis.addr required when redis is enabled")
	case c.NATS.Enabled && c.NATS.URL == "":
		return invalid("nats.url required when nats is enabled")
	}
	return nil
}
