package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	System    SystemConfig    `toml:"system"`
	Network   NetworkConfig   `toml:"network"`
	Pool      PoolConfig      `toml:"pool"`
	Detection DetectionConfig `toml:"detection"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Alerts    AlertsConfig    `toml:"alerts"`
}

type SystemConfig struct {
	SensorName string `toml:"sensor_name"`
	LogLevel   string `toml:"log_level"`
}

type NetworkConfig struct {
	Interface     string `toml:"interface"`
	SnapLen       int    `toml:"snaplen"`
	Promiscuous   bool   `toml:"promiscuous"`
	ReadTimeoutMs int    `toml:"read_timeout_ms"`
	KernelFilter  bool   `toml:"kernel_filter"`
}

// ReadTimeout is the capture read deadline used to poll for shutdown.
func (n NetworkConfig) ReadTimeout() time.Duration {
	return time.Duration(n.ReadTimeoutMs) * time.Millisecond
}

type PoolConfig struct {
	Workers int `toml:"workers"`
	// MaxQueued bounds the work queue; 0 keeps it unbounded.
	MaxQueued       int  `toml:"max_queued"`
	DrainOnShutdown bool `toml:"drain_on_shutdown"`
}

type DetectionConfig struct {
	SynFlood  SynFloodConfig  `toml:"syn_flood"`
	ArpReply  ArpReplyConfig  `toml:"arp_reply"`
	Blacklist BlacklistConfig `toml:"blacklist"`
}

type SynFloodConfig struct {
	Enabled bool `toml:"enabled"`
}

type ArpReplyConfig struct {
	Enabled bool `toml:"enabled"`
}

type BlacklistConfig struct {
	Enabled      bool     `toml:"enabled"`
	HTTPPort     uint16   `toml:"http_port"`
	MethodMarker string   `toml:"method_marker"`
	Domains      []string `toml:"domains"`
}

type TelemetryConfig struct {
	Enabled       bool   `toml:"enabled"`
	ListenAddress string `toml:"listen_address"`
}

type AlertsConfig struct {
	SyslogServer string         `toml:"syslog_server"`
	Webhook      WebhookConfig  `toml:"webhook"`
	Smtp         SmtpConfig     `toml:"smtp"`
	Telegram     TelegramConfig `toml:"telegram"`
}

type WebhookConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

type SmtpConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	User    string `toml:"user"`
	Pass    string `toml:"pass"`
	To      string `toml:"to"`
	From    string `toml:"from"`
}

type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  string `toml:"chat_id"`
}

// Default returns the configuration used when no file is given. Every
// loaded file is decoded on top of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		System: SystemConfig{
			SensorName: "SniffGuard",
			LogLevel:   "info",
		},
		Network: NetworkConfig{
			SnapLen:       4096,
			Promiscuous:   true,
			ReadTimeoutMs: 1000,
			KernelFilter:  true,
		},
		Pool: PoolConfig{
			Workers:         25,
			DrainOnShutdown: true,
		},
		Detection: DetectionConfig{
			SynFlood: SynFloodConfig{Enabled: true},
			ArpReply: ArpReplyConfig{Enabled: true},
			Blacklist: BlacklistConfig{
				Enabled:      true,
				HTTPPort:     80,
				MethodMarker: "GET",
				Domains:      []string{"www.google.co.uk", "www.facebook.com"},
			},
		},
		Telemetry: TelemetryConfig{
			ListenAddress: ":9090",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Pool.Workers < 1 {
		return fmt.Errorf("%w: pool.workers must be >= 1 (got %d)", ErrInvalid, c.Pool.Workers)
	}
	if c.Pool.MaxQueued < 0 {
		return fmt.Errorf("%w: pool.max_queued must be >= 0 (got %d)", ErrInvalid, c.Pool.MaxQueued)
	}
	if c.Network.SnapLen < 64 {
		return fmt.Errorf("%w: network.snaplen must be >= 64 (got %d)", ErrInvalid, c.Network.SnapLen)
	}
	if c.Network.ReadTimeoutMs <= 0 {
		return fmt.Errorf("%w: network.read_timeout_ms must be > 0", ErrInvalid)
	}
	bl := c.Detection.Blacklist
	if bl.Enabled {
		if bl.MethodMarker == "" {
			return fmt.Errorf("%w: detection.blacklist.method_marker is empty", ErrInvalid)
		}
		for i, d := range bl.Domains {
			if strings.TrimSpace(d) == "" {
				return fmt.Errorf("%w: detection.blacklist.domains[%d] is empty", ErrInvalid, i)
			}
		}
	}
	return nil
}
