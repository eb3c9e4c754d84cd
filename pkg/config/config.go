package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/host"
	"github.com/srg/padhost/internal/service"
)

// Config holds application configuration
type Config struct {
	LogLevel        string        `yaml:"log_level" default:"info"`
	MaxDevices      int           `yaml:"max_devices" default:"4"`
	MaxClients      int           `yaml:"max_clients" default:"2"`
	ServiceEnabled  bool          `yaml:"service_enabled" default:"true"`
	BLEEnabled      bool          `yaml:"ble_enabled" default:"true"`
	ScanEnabled     bool          `yaml:"scan_enabled" default:"true"`
	AdvertisingName string        `yaml:"advertising_name" default:"BP32"`
	MailboxSize     int           `yaml:"mailbox_size" default:"64"`
	ReportQueueSize uint32        `yaml:"report_queue_size" default:"32"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"10s"`
	Controllers     []string      `yaml:"controllers"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.MaxDevices < 1 || c.MaxDevices > 255 {
		errs = append(errs, fmt.Errorf("max_devices must be 1-255, got %d", c.MaxDevices))
	}
	if c.MaxClients < 1 || c.MaxClients > 16 {
		errs = append(errs, fmt.Errorf("max_clients must be 1-16, got %d", c.MaxClients))
	}
	if n := len(c.AdvertisingName); n == 0 || n > service.MaxAdvertisingName {
		errs = append(errs, fmt.Errorf("advertising_name must be 1-%d bytes, got %d", service.MaxAdvertisingName, n))
	}
	if c.MailboxSize < 1 {
		errs = append(errs, fmt.Errorf("mailbox_size must be positive, got %d", c.MailboxSize))
	}
	if c.ReportQueueSize < 1 {
		errs = append(errs, errors.New("report_queue_size must be positive"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout))
	}
	if _, err := c.ControllerAddresses(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ControllerAddresses parses the controllers to dial at startup.
func (c *Config) ControllerAddresses() ([]device.Address, error) {
	out := make([]device.Address, 0, len(c.Controllers))
	for _, s := range c.Controllers {
		addr, err := device.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("controllers: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// HostOptions converts the configuration into host options.
func (c *Config) HostOptions(version string) host.Options {
	return host.Options{
		Version:         version,
		MaxDevices:      c.MaxDevices,
		MaxClients:      c.MaxClients,
		ServiceEnabled:  c.ServiceEnabled,
		BLEEnabled:      c.BLEEnabled,
		ScanEnabled:     c.ScanEnabled,
		AdvertisingName: c.AdvertisingName,
		MailboxSize:     c.MailboxSize,
		ReportQueueSize: c.ReportQueueSize,
		ConnectTimeout:  c.ConnectTimeout,
	}
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
