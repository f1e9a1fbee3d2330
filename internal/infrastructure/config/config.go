package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all back-office agent configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	Remote  RemoteConfig
	Mirror  MirrorConfig
	Monitor MonitorConfig
	Print   PrintConfig
	Sinks   SinksConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RemoteConfig holds the remote order store (PostgREST) connection settings
type RemoteConfig struct {
	BaseURL      string        // e.g. https://{project}.example.co
	APIKey       string        // sent as apikey + Authorization: Bearer
	ReadTimeout  time.Duration // table fetch / small writes
	ProbeTimeout time.Duration // connectivity probe
	SyncTimeout  time.Duration // full-table batch sync
}

// MirrorConfig holds the local sqlite mirror settings
type MirrorConfig struct {
	Path string // sqlite database file, or :memory:
}

// MonitorConfig holds the order monitor scheduling settings
type MonitorConfig struct {
	Method        string        // poll, push, or hybrid
	BaseInterval  time.Duration // default polling interval
	FastInterval  time.Duration // used while auto-print is enabled
	SlowInterval  time.Duration // ceiling after long quiet periods
	FloorInterval time.Duration // setCheckInterval clamp
	BatchSize     int           // max unprinted orders per tick
	HybridPoll    time.Duration // polling interval while push is primary
	RealtimeURL   string        // websocket endpoint; derived from remote when empty
}

// PrintConfig holds auto-print gating settings
type PrintConfig struct {
	AutoPrintEnabled   bool
	DineInOnly         bool
	BusinessHoursStart time.Duration // offset from midnight
	BusinessHoursEnd   time.Duration
	OutputDir          string // receipt text files + raw-byte diagnostics
	Timezone           string // receipt display timezone
}

// SinkConfig holds connection parameters for one print sink
type SinkConfig struct {
	Enabled   bool
	Type      string // serial, usb, or file
	Port      string // serial: COM3, /dev/ttyUSB0
	BaudRate  int    // serial
	VendorID  uint16 // usb
	ProductID uint16 // usb
	Interface int    // usb
	CodePage  byte   // ESC/POS code page selector (0x13 = CP949 johab)
}

// SinksConfig names the two business roles a receipt fans out to
type SinksConfig struct {
	Customer SinkConfig
	Kitchen  SinkConfig
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g. POS_REMOTE_APIKEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/pos-agent")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Remote: RemoteConfig{
			BaseURL:      v.GetString("remote.base_url"),
			APIKey:       v.GetString("remote.api_key"),
			ReadTimeout:  v.GetDuration("remote.read_timeout"),
			ProbeTimeout: v.GetDuration("remote.probe_timeout"),
			SyncTimeout:  v.GetDuration("remote.sync_timeout"),
		},
		Mirror: MirrorConfig{
			Path: v.GetString("mirror.path"),
		},
		Monitor: MonitorConfig{
			Method:        v.GetString("monitor.method"),
			BaseInterval:  v.GetDuration("monitor.base_interval"),
			FastInterval:  v.GetDuration("monitor.fast_interval"),
			SlowInterval:  v.GetDuration("monitor.slow_interval"),
			FloorInterval: v.GetDuration("monitor.floor_interval"),
			BatchSize:     v.GetInt("monitor.batch_size"),
			HybridPoll:    v.GetDuration("monitor.hybrid_poll"),
			RealtimeURL:   v.GetString("monitor.realtime_url"),
		},
		Print: PrintConfig{
			AutoPrintEnabled:   v.GetBool("print.auto_print_enabled"),
			DineInOnly:         v.GetBool("print.dine_in_only"),
			BusinessHoursStart: v.GetDuration("print.business_hours_start"),
			BusinessHoursEnd:   v.GetDuration("print.business_hours_end"),
			OutputDir:          v.GetString("print.output_dir"),
			Timezone:           v.GetString("print.timezone"),
		},
		Sinks: SinksConfig{
			Customer: sinkFromViper(v, "sinks.customer"),
			Kitchen:  sinkFromViper(v, "sinks.kitchen"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func sinkFromViper(v *viper.Viper, prefix string) SinkConfig {
	return SinkConfig{
		Enabled:   v.GetBool(prefix + ".enabled"),
		Type:      v.GetString(prefix + ".type"),
		Port:      v.GetString(prefix + ".port"),
		BaudRate:  v.GetInt(prefix + ".baud_rate"),
		VendorID:  uint16(v.GetUint32(prefix + ".vendor_id")),
		ProductID: uint16(v.GetUint32(prefix + ".product_id")),
		Interface: v.GetInt(prefix + ".interface"),
		CodePage:  byte(v.GetUint32(prefix + ".code_page")),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos-agent"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Remote.ReadTimeout == 0 {
		cfg.Remote.ReadTimeout = 10 * time.Second
	}
	if cfg.Remote.ProbeTimeout == 0 {
		cfg.Remote.ProbeTimeout = 5 * time.Second
	}
	if cfg.Remote.SyncTimeout == 0 {
		cfg.Remote.SyncTimeout = 30 * time.Second
	}
	if cfg.Mirror.Path == "" {
		cfg.Mirror.Path = "cache.db"
	}
	if cfg.Monitor.Method == "" {
		cfg.Monitor.Method = "poll"
	}
	if cfg.Monitor.BaseInterval == 0 {
		cfg.Monitor.BaseInterval = 10 * time.Second
	}
	if cfg.Monitor.FastInterval == 0 {
		cfg.Monitor.FastInterval = 3 * time.Second
	}
	if cfg.Monitor.SlowInterval == 0 {
		cfg.Monitor.SlowInterval = 30 * time.Second
	}
	if cfg.Monitor.FloorInterval == 0 {
		cfg.Monitor.FloorInterval = 3 * time.Second
	}
	if cfg.Monitor.BatchSize == 0 {
		cfg.Monitor.BatchSize = 20
	}
	if cfg.Monitor.HybridPoll == 0 {
		cfg.Monitor.HybridPoll = 60 * time.Second
	}
	if cfg.Print.BusinessHoursEnd == 0 {
		cfg.Print.BusinessHoursEnd = 24*time.Hour - time.Minute
	}
	if cfg.Print.OutputDir == "" {
		cfg.Print.OutputDir = "receipts"
	}
	if cfg.Print.Timezone == "" {
		cfg.Print.Timezone = "Asia/Seoul"
	}
	if cfg.Sinks.Customer.Type == "" {
		cfg.Sinks.Customer.Type = "file"
	}
	if cfg.Sinks.Kitchen.Type == "" {
		cfg.Sinks.Kitchen.Type = "file"
	}
	if cfg.Sinks.Customer.BaudRate == 0 {
		cfg.Sinks.Customer.BaudRate = 9600
	}
	if cfg.Sinks.Kitchen.BaudRate == 0 {
		cfg.Sinks.Kitchen.BaudRate = 9600
	}
	if cfg.Sinks.Customer.CodePage == 0 {
		cfg.Sinks.Customer.CodePage = 0x13
	}
	if cfg.Sinks.Kitchen.CodePage == 0 {
		cfg.Sinks.Kitchen.CodePage = 0x13
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote.base_url is not a valid URL: %q", c.Remote.BaseURL)
		}
	}
	switch c.Monitor.Method {
	case "poll", "push", "hybrid":
	default:
		return fmt.Errorf("monitor.method must be poll, push or hybrid, got %q", c.Monitor.Method)
	}
	if c.Monitor.FloorInterval < time.Second {
		return fmt.Errorf("monitor.floor_interval must be at least 1s")
	}
	if c.Monitor.SlowInterval < c.Monitor.FastInterval {
		return fmt.Errorf("monitor.slow_interval must not be below monitor.fast_interval")
	}
	for role, sink := range map[string]SinkConfig{"customer": c.Sinks.Customer, "kitchen": c.Sinks.Kitchen} {
		switch sink.Type {
		case "serial", "usb", "file":
		default:
			return fmt.Errorf("sinks.%s.type must be serial, usb or file, got %q", role, sink.Type)
		}
		if sink.Enabled && sink.Type == "serial" && sink.Port == "" {
			return fmt.Errorf("sinks.%s.port is required for serial sinks", role)
		}
		if sink.Enabled && sink.Type == "usb" && (sink.VendorID == 0 || sink.ProductID == 0) {
			return fmt.Errorf("sinks.%s vendor_id/product_id are required for usb sinks", role)
		}
	}
	return nil
}
