package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellCommands(t *testing.T) {
	u := newTestUnit(t, orientation.LayoutUpright, true)
	u.applySim(imu.Vector3{Y: -1}, imu.Vector3{Y: 100})

	tests := []struct {
		line string
		want string
	}{
		{"whoami", "WHO_AM_I = 0x19"},
		{"accel", "x=0.000 y=-1.000 z=0.000 g"},
		{"accel y", "y = -1.000 g"},
		{"gyro z", "z = 0.000 dps"},
		{"raw accel y", "accel y raw = -4096"},
		{"orient", "down"},
		{"rot", "roll right"},
		{"tilt", "roll=-90.0"},
		{"read 0x75", "0x75 WHO_AM_I = 0x19"},
		{"read 1c", "0x1C ACCEL_CONFIG = 0x10"},
		{"write 0x19 0x04", "0x19 <- 0x04"},
		{"write 0x75 0x00", "error: register 0x75 is not writable"},
		{"fifo on", "fifo on"},
		{"fifo count", "fifo count = 0"},
		{"fifo reset", "fifo reset"},
		{"fifo", "error: usage"},
		{"scale gyro 0", "gyro ±250"},
		{"scale accel 9", "error: scale must be 0-3"},
		{"accel w", "error:"},
		{"bogus", `error: unknown command "bogus"`},
		{"dump", "device: mpu6886"},
		{"help", "Commands:"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out := &syncBuffer{}
			sh := NewShell(u, out)
			assert.False(t, sh.Exec(tt.line))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestShellExit(t *testing.T) {
	sh := NewShell(newTestUnit(t, orientation.LayoutFaces, true), &syncBuffer{})
	assert.False(t, sh.Exec("   "))
	assert.True(t, sh.Exec("exit"))
	assert.True(t, sh.Exec("Q"))
}

func TestShellTemperature(t *testing.T) {
	u := newTestUnit(t, orientation.LayoutFaces, true)
	u.Sim.Load(imu.RegTempOutH, 0x00, 0x00)

	out := &syncBuffer{}
	NewShell(u, out).Exec("temp")
	assert.Contains(t, out.String(), "25.00 °C")
}

func TestShellWatch(t *testing.T) {
	u := newTestUnit(t, orientation.LayoutFaces, false)
	out := &syncBuffer{}
	sh := NewShell(u, out)
	sh.ctx = context.Background()

	sh.Exec("watch")
	defer sh.Exec("unwatch")
	assert.Contains(t, out.String(), "watching")

	// the monitor polls every 100 ms; give it a baseline first
	time.Sleep(250 * time.Millisecond)
	u.applySim(imu.Vector3{Z: -1}, imu.Vector3{})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "orientation -> bottom")
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "rotation ->")
}

func TestParseRegArg(t *testing.T) {
	for in, want := range map[string]byte{"0x1C": 0x1C, "1c": 0x1C, "0X6b": 0x6B, "ff": 0xFF} {
		got, err := parseRegArg(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseRegArg("0x100")
	assert.Error(t, err)
	_, err = parseRegArg("zz")
	assert.Error(t, err)
}
