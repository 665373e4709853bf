package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/orientation"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit_imu.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint16(0x68), cfg.I2CAddr)
	assert.Equal(t, imu.AFS8G, cfg.AccelRange)
	assert.Equal(t, imu.GFS2000DPS, cfg.GyroRange)
	assert.Equal(t, orientation.LayoutFaces, cfg.LabelLayout)
	assert.True(t, cfg.EnableRotation)
	assert.Equal(t, 100, cfg.MonitorInterval)
	assert.Equal(t, "json", cfg.PayloadFormat)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	assert.NoError(t, cfg.validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
# hardware
I2C_BUS=/dev/i2c-1
I2C_ADDR=0x69
ACCEL_RANGE=0
GYRO_RANGE=1
LABEL_LAYOUT=upright
ENABLE_ROTATION=false
MONITOR_INTERVAL=50
TOPIC_PREFIX=/lab/imu/
PAYLOAD_FORMAT=CBOR
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/i2c-1", cfg.I2CBus)
	assert.Equal(t, uint16(0x69), cfg.I2CAddr)
	assert.Equal(t, imu.AFS2G, cfg.AccelRange)
	assert.Equal(t, imu.GFS500DPS, cfg.GyroRange)
	assert.Equal(t, orientation.LayoutUpright, cfg.LabelLayout)
	assert.False(t, cfg.EnableRotation)
	assert.Equal(t, 50, cfg.MonitorInterval)
	assert.Equal(t, "lab/imu", cfg.TopicPrefix)
	assert.Equal(t, "cbor", cfg.PayloadFormat)

	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.SampleInterval)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://file:1883\n")
	t.Setenv("UNIT_IMU_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("UNIT_IMU_GYRO_RANGE", "0")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTTBroker)
	assert.Equal(t, imu.GFS250DPS, cfg.GyroRange)
}

func TestFlagsOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("sim", false, "")
	fs.Bool("debug", false, "")
	require.NoError(t, fs.Parse([]string{"--sim"}))

	cfg, err := Load(writeConfig(t, "USE_SIM=false\n"), fs)
	require.NoError(t, err)
	assert.True(t, cfg.UseSim)
	assert.False(t, cfg.Debug)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"accel range too high", "ACCEL_RANGE=4\n"},
		{"gyro range not a number", "GYRO_RANGE=fast\n"},
		{"unknown layout", "LABEL_LAYOUT=sideways\n"},
		{"unknown key", "IMU_LEFT_SPI_DEVICE=/dev/spidev0.0\n"},
		{"bad payload format", "PAYLOAD_FORMAT=xml\n"},
		{"ten bit address", "I2C_ADDR=0x3FF\n"},
		{"bad bool", "ENABLE_ROTATION=maybe\n"},
		{"zero monitor interval", "MONITOR_INTERVAL=0\n"},
		{"port out of range", "WEB_SERVER_PORT=70000\n"},
		{"empty broker", "MQTT_BROKER=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	assert.Error(t, err)
}

func TestSetValueUnknownKey(t *testing.T) {
	c := &Config{}
	assert.Error(t, c.setValue("NOPE", "1"))
}

func TestPeriods(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "100ms", cfg.MonitorPeriod().String())
	assert.Equal(t, "100ms", cfg.SamplePeriod().String())
	assert.Equal(t, "500ms", cfg.DisplayPeriod().String())
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "LABEL_LAYOUT")
	assert.Len(t, keys, len(defaults))
}
