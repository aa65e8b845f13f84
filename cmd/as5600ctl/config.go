package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mtraver/angle-sensor/as5600"
)

const envPrefix = "AS5600CTL"

// Config is the as5600ctl configuration file.
type Config struct {
	Bus     BusConfig     `mapstructure:"bus" yaml:"bus"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type BusConfig struct {
	// Name is the periph bus name; empty selects the default bus.
	Name       string        `mapstructure:"name" yaml:"name"`
	Address    uint16        `mapstructure:"address" yaml:"address"`
	SettleTime time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			Address:    as5600.DefaultAddress,
			SettleTime: as5600.BurnSettleTime,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the configuration from path, or from as5600ctl.yaml in the
// usual places if path is empty. A missing default file is not an error.
// Environment variables prefixed with AS5600CTL_ override file values, e.g.
// AS5600CTL_BUS_ADDRESS.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	def := DefaultConfig()
	v.SetDefault("bus.name", def.Bus.Name)
	v.SetDefault("bus.address", def.Bus.Address)
	v.SetDefault("bus.settle_time", def.Bus.SettleTime)
	v.SetDefault("logging.level", def.Logging.Level)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("as5600ctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.as5600ctl")
		v.AddConfigPath("/etc/as5600ctl/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Bus.Address == 0 || c.Bus.Address > 0x7F {
		return fmt.Errorf("bus.address must be a 7-bit address, got 0x%x", c.Bus.Address)
	}

	if c.Bus.SettleTime < as5600.BurnSettleTime {
		return fmt.Errorf("bus.settle_time must be at least %v, got %v", as5600.BurnSettleTime, c.Bus.SettleTime)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// SaveConfig writes c to path as YAML.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
