// Package config loads the per-product axis table: which driver each axis
// uses, its bus wiring, cadence, and ramp values.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Driver kinds an axis may be mapped to.
const (
	DriverTMC5240 = "tmc5240"
	DriverStepDir = "stepdir"
)

type Config struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Axes         []AxisConfig  `mapstructure:"axes"`
}

type AxisConfig struct {
	ID     uint8  `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`

	// Software stepping cadence, STEP/DIR axes only.
	USPerStep uint32 `mapstructure:"us_per_step"`

	// Opaque ramp values for smart drivers.
	VMax uint32 `mapstructure:"vmax"`
	AMax uint32 `mapstructure:"amax"`
	DMax uint32 `mapstructure:"dmax"`

	// tmc5240 bus wiring. SPIPort and UARTDevice are mutually exclusive.
	SPIPort    string `mapstructure:"spi_port"`
	UARTDevice string `mapstructure:"uart_device"`
	UARTBaud   int    `mapstructure:"uart_baud"`
	UARTNode   uint8  `mapstructure:"uart_node"`

	// stepdir pin wiring, by platform pin name.
	StepPin      string `mapstructure:"step_pin"`
	DirPin       string `mapstructure:"dir_pin"`
	EnablePin    string `mapstructure:"enable_pin"`
	InvertStep   bool   `mapstructure:"invert_step"`
	InvertDir    bool   `mapstructure:"invert_dir"`
	InvertEnable bool   `mapstructure:"invert_enable"`

	Limits bool `mapstructure:"limits"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("tick_interval", "1ms")

	v.AutomaticEnv()
	v.SetEnvPrefix("STEPKIT")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Millisecond
	}
	for i := range cfg.Axes {
		ax := &cfg.Axes[i]
		if ax.Driver == DriverStepDir && ax.USPerStep == 0 {
			ax.USPerStep = 100
		}
		if ax.Driver == DriverTMC5240 && ax.UARTDevice != "" && ax.UARTBaud == 0 {
			ax.UARTBaud = 115200
		}
	}
}

func (c *Config) validate() error {
	seen := make(map[uint8]string)
	for _, ax := range c.Axes {
		if prev, dup := seen[ax.ID]; dup {
			return fmt.Errorf("axis %q: id %d already used by %q", ax.Name, ax.ID, prev)
		}
		seen[ax.ID] = ax.Name

		switch ax.Driver {
		case DriverTMC5240:
			if ax.SPIPort == "" && ax.UARTDevice == "" {
				return fmt.Errorf("axis %q: tmc5240 needs spi_port or uart_device", ax.Name)
			}
			if ax.SPIPort != "" && ax.UARTDevice != "" {
				return fmt.Errorf("axis %q: spi_port and uart_device are exclusive", ax.Name)
			}
		case DriverStepDir:
			if ax.StepPin == "" || ax.DirPin == "" {
				return fmt.Errorf("axis %q: stepdir needs step_pin and dir_pin", ax.Name)
			}
		default:
			return fmt.Errorf("axis %q: unknown driver %q", ax.Name, ax.Driver)
		}
	}
	return nil
}
