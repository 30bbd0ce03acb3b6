// Package config loads myc settings from ~/.mycelium/config.toml, MYC_*
// environment variables and flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "MYC"
	configName = "config"
	configType = "toml"
	configDir  = ".mycelium"
)

type Config struct {
	Ecosystem   string            `mapstructure:"ecosystem"`
	Sessions    FileConfig        `mapstructure:"sessions"`
	Roster      FileConfig        `mapstructure:"roster"`
	Readings    ReadingsConfig    `mapstructure:"readings"`
	Reflections FileConfig        `mapstructure:"reflections"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

// ReadingsConfig selects the reading source: "file" reads the TOML feed at
// Path, "nats" listens on the bus.
type ReadingsConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

type CoordinatorConfig struct {
	JoinLead                time.Duration `mapstructure:"join_lead"`
	FreshnessWindow         time.Duration `mapstructure:"freshness_window"`
	PollInterval            time.Duration `mapstructure:"poll_interval"`
	ReadingTimeout          time.Duration `mapstructure:"reading_timeout"`
	MaxConcurrentDeliveries int           `mapstructure:"max_concurrent_deliveries"`
	DeliveryTimeout         time.Duration `mapstructure:"delivery_timeout"`
	AutoOpenReflection      bool          `mapstructure:"auto_open_reflection"`
	AutoDeliver             bool          `mapstructure:"auto_deliver"`
	ReflectionWindow        time.Duration `mapstructure:"reflection_window"`
	TickInterval            time.Duration `mapstructure:"tick_interval"`
}

// NATSConfig enables the bus adapters when URL is set.
// TokenRef names a credential holding the broker token; it is resolved
// through pass first, then ~/.mycelium/credentials.
type NATSConfig struct {
	URL           string  `mapstructure:"url"`
	Prefix        string  `mapstructure:"prefix"`
	TokenRef      string  `mapstructure:"token_ref"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

const (
	ReadingsSourceFile = "file"
	ReadingsSourceNATS = "nats"
)

// Dir is the state directory, ~/.mycelium.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir), nil
}

// SetDefaults registers every key so environment variables and exact
// decoding see the full key set.
func SetDefaults(v *viper.Viper, dir string) {
	v.SetDefault("ecosystem", "temperate_forest")
	v.SetDefault("sessions.path", filepath.Join(dir, "sessions.toml"))
	v.SetDefault("roster.path", filepath.Join(dir, "participants.toml"))
	v.SetDefault("readings.source", ReadingsSourceFile)
	v.SetDefault("readings.path", filepath.Join(dir, "readings.toml"))
	v.SetDefault("reflections.path", filepath.Join(dir, "reflections.db"))

	v.SetDefault("coordinator.join_lead", 15*time.Minute)
	v.SetDefault("coordinator.freshness_window", 30*time.Minute)
	v.SetDefault("coordinator.poll_interval", 2*time.Second)
	v.SetDefault("coordinator.reading_timeout", 30*time.Second)
	v.SetDefault("coordinator.max_concurrent_deliveries", 16)
	v.SetDefault("coordinator.delivery_timeout", 10*time.Second)
	v.SetDefault("coordinator.auto_open_reflection", true)
	v.SetDefault("coordinator.auto_deliver", true)
	v.SetDefault("coordinator.reflection_window", 24*time.Hour)
	v.SetDefault("coordinator.tick_interval", 5*time.Second)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.prefix", "mycelium")
	v.SetDefault("nats.token_ref", "")
	v.SetDefault("nats.rate_per_second", 50.0)
	v.SetDefault("nats.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// Load reads configFile, or config.toml in the state directory when empty.
// A missing default config file is not an error; unknown keys are.
func Load(v *viper.Viper, configFile string) (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}

	SetDefaults(v, dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Readings.Source {
	case ReadingsSourceFile:
	case ReadingsSourceNATS:
		if c.NATS.URL == "" {
			return errors.New("readings.source = \"nats\" requires nats.url")
		}
	default:
		return fmt.Errorf("unknown readings.source %q", c.Readings.Source)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Coordinator.TickInterval <= 0 {
		return errors.New("coordinator.tick_interval must be positive")
	}
	return nil
}
