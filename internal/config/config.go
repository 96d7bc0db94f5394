package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

type AppConfig struct {
	Port            int           `yaml:"port"`
	ClientAddress   string        `yaml:"client_address"`
	ServerAddress   string        `yaml:"server_address"`
	Unicast         bool          `yaml:"unicast"`
	DataPort        int           `yaml:"data_port"`
	MulticastGroup  string        `yaml:"multicast_group"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	// Timeout bounds every accessor call made on behalf of HTTP and console
	// callers.
	Timeout         time.Duration `yaml:"timeout"`
	IngestLogEvery  int           `yaml:"ingest_log_every"`
	Debug           bool          `yaml:"debug"`
	DebugRate       float64       `yaml:"debug_rate"`
	// Console prints the reference/tracking relative pose every
	// ConsoleInterval when non-zero.
	ConsoleInterval time.Duration `yaml:"console_interval"`
	ReferenceID     int           `yaml:"reference_id"`
	TrackingID      int           `yaml:"tracking_id"`
}

func Default() AppConfig {
	return AppConfig{
		Port:           8888,
		ClientAddress:  "192.168.74.4",
		ServerAddress:  "192.168.74.2",
		Unicast:        true,
		DataPort:       1511,
		MulticastGroup: "239.255.42.99",
		SettleDelay:    300 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		Timeout:        3 * time.Second,
		IngestLogEvery: 100,
		DebugRate:      120,
		ReferenceID:    1,
		TrackingID:     2,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DataPort < 1 || c.DataPort > 65535 {
		errs = append(errs, fmt.Errorf("data_port %d out of range", c.DataPort))
	}
	if !c.Debug && c.ServerAddress == "" {
		errs = append(errs, errors.New("server_address is required"))
	}
	if !c.Unicast && !c.Debug && c.ClientAddress == "" {
		errs = append(errs, errors.New("client_address is required for multicast"))
	}
	if c.Timeout < 0 || c.SettleDelay < 0 || c.PollInterval < 0 || c.ConsoleInterval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Debug && c.DebugRate <= 0 {
		errs = append(errs, fmt.Errorf("debug_rate %v must be positive", c.DebugRate))
	}
	return errors.Join(errs...)
}
