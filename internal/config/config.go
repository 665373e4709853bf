// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/unit_imu/internal/events"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/orientation"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. UNIT_IMU_MQTT_BROKER.
const EnvPrefix = "UNIT_IMU"

// Config holds all application configuration values.
type Config struct {
	// Bus
	I2CBus  string // "" selects the first bus
	I2CAddr uint16

	// IMU
	AccelRange        imu.AccelScale
	GyroRange         imu.GyroScale
	EnableTemperature bool

	// Classification
	LabelLayout     orientation.Layout
	EnableRotation  bool
	MonitorInterval int // milliseconds
	SampleInterval  int // milliseconds

	// MQTT
	MQTTBroker    string
	MQTTClientID  string
	TopicPrefix   string
	PayloadFormat string // json or cbor

	// Web Server
	WebServerPort     int
	RegisterDebugPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	UseSim bool
	Debug  bool
}

// defaults lists every key the loader accepts together with its default.
// Values are in file syntax so they go through setValue like everything else.
var defaults = map[string]string{
	"I2C_BUS":                 "",
	"I2C_ADDR":                "0x68",
	"ACCEL_RANGE":             "2",
	"GYRO_RANGE":              "3",
	"ENABLE_TEMPERATURE":      "true",
	"LABEL_LAYOUT":            "faces",
	"ENABLE_ROTATION":         "true",
	"MONITOR_INTERVAL":        "100",
	"SAMPLE_INTERVAL":         "100",
	"MQTT_BROKER":             "tcp://localhost:1883",
	"MQTT_CLIENT_ID":          "unit-imu",
	"TOPIC_PREFIX":            events.DefaultPrefix,
	"PAYLOAD_FORMAT":          events.FormatJSON,
	"WEB_SERVER_PORT":         "8080",
	"REGISTER_DEBUG_PORT":     "8081",
	"DISPLAY_I2C_ADDR":        "0x3C",
	"DISPLAY_UPDATE_INTERVAL": "500",
	"USE_SIM":                 "false",
	"DEBUG":                   "false",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"sim":   "USE_SIM",
	"debug": "DEBUG",
}

// Keys returns every accepted key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package-level state behind InitGlobal/Get. configOnce makes InitGlobal
// effective only once; configMu guards readers against the initializing write.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg := &Config{}
	for _, key := range Keys() {
		if err := cfg.setValue(key, defaults[key]); err != nil {
			panic(fmt.Sprintf("bad default for %s: %v", key, err))
		}
	}
	return cfg
}

// Load reads configuration from a KEY=VALUE file (optional, pass "" to skip),
// then UNIT_IMU_* environment variables, then any changed flags in fs.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debugf("using config file %s", v.ConfigFileUsed())

		// viper folds keys to lower case
		for _, key := range v.AllKeys() {
			if _, ok := defaults[strings.ToUpper(key)]; !ok {
				return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(key))
			}
		}
	}

	cfg := &Config{}
	for _, key := range Keys() {
		value := strings.TrimSpace(v.GetString(key))
		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Bus
	case "I2C_BUS":
		c.I2CBus = value
	case "I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid I2C_ADDR %q: %w", value, err)
		}
		c.I2CAddr = addr

	// IMU
	case "ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.AccelRange = imu.AccelScale(rangeVal)
	case "GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.GyroRange = imu.GyroScale(rangeVal)
	case "ENABLE_TEMPERATURE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_TEMPERATURE %q: %w", value, err)
		}
		c.EnableTemperature = b

	// Classification
	case "LABEL_LAYOUT":
		layout, err := orientation.ParseLayout(value)
		if err != nil {
			return err
		}
		c.LabelLayout = layout
	case "ENABLE_ROTATION":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_ROTATION %q: %w", value, err)
		}
		c.EnableRotation = b
	case "MONITOR_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_INTERVAL %q: %w", value, err)
		}
		c.MonitorInterval = interval
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_PREFIX":
		c.TopicPrefix = strings.Trim(value, "/")
	case "PAYLOAD_FORMAT":
		format := strings.ToLower(value)
		if format != events.FormatJSON && format != events.FormatCBOR {
			return fmt.Errorf("PAYLOAD_FORMAT must be json or cbor, got %q", value)
		}
		c.PayloadFormat = format

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "REGISTER_DEBUG_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_PORT %q: %w", value, err)
		}
		c.RegisterDebugPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = addr
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	case "USE_SIM":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_SIM %q: %w", value, err)
		}
		c.UseSim = b
	case "DEBUG":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG %q: %w", value, err)
		}
		c.Debug = b

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseI2CAddr accepts decimal or 0x-prefixed 7-bit addresses.
func parseI2CAddr(value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("address 0x%X is not a 7-bit I2C address", addr)
	}
	return uint16(addr), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %d", c.MonitorInterval)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", c.SampleInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	for name, port := range map[string]int{"WEB_SERVER_PORT": c.WebServerPort, "REGISTER_DEBUG_PORT": c.RegisterDebugPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be 1-65535, got %d", name, port)
		}
	}
	return nil
}

// MonitorPeriod returns MONITOR_INTERVAL as a duration.
func (c *Config) MonitorPeriod() time.Duration {
	return time.Duration(c.MonitorInterval) * time.Millisecond
}

// SamplePeriod returns SAMPLE_INTERVAL as a duration.
func (c *Config) SamplePeriod() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// DisplayPeriod returns DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayPeriod() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal loads the global configuration. Only the first call has an effect.
func InitGlobal(configPath string, fs *pflag.FlagSet) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath, fs)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal succeeds.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
