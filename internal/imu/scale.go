// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// AccelScale selects the accelerometer full-scale range. The value is the
// ACCEL_FS_SEL field, written at bits 4:3 of ACCEL_CONFIG.
type AccelScale byte

const (
	AFS2G  AccelScale = 0 // ±2g
	AFS4G  AccelScale = 1 // ±4g
	AFS8G  AccelScale = 2 // ±8g
	AFS16G AccelScale = 3 // ±16g
)

// GyroScale selects the gyroscope full-scale range (GYRO_FS_SEL, bits 4:3
// of GYRO_CONFIG).
type GyroScale byte

const (
	GFS250DPS  GyroScale = 0 // ±250°/s
	GFS500DPS  GyroScale = 1 // ±500°/s
	GFS1000DPS GyroScale = 2 // ±1000°/s
	GFS2000DPS GyroScale = 3 // ±2000°/s
)

// Defaults match the power-on configuration written by Init.
const (
	DefaultAccelScale = AFS8G
	DefaultGyroScale  = GFS2000DPS
)

var accelFullScale = [...]float64{2, 4, 8, 16}

var gyroFullScale = [...]float64{250, 500, 1000, 2000}

// FullScale returns the range in g, or 0 for an undefined selector.
func (s AccelScale) FullScale() float64 {
	if int(s) >= len(accelFullScale) {
		return 0
	}
	return accelFullScale[s]
}

// Resolution returns g per LSB.
func (s AccelScale) Resolution() float64 {
	return s.FullScale() / 32768.0
}

func (s AccelScale) String() string {
	switch s {
	case AFS2G:
		return "±2g"
	case AFS4G:
		return "±4g"
	case AFS8G:
		return "±8g"
	case AFS16G:
		return "±16g"
	}
	return "unknown"
}

// FullScale returns the range in °/s, or 0 for an undefined selector.
func (s GyroScale) FullScale() float64 {
	if int(s) >= len(gyroFullScale) {
		return 0
	}
	return gyroFullScale[s]
}

// Resolution returns °/s per LSB.
func (s GyroScale) Resolution() float64 {
	return s.FullScale() / 32768.0
}

func (s GyroScale) String() string {
	switch s {
	case GFS250DPS:
		return "±250°/s"
	case GFS500DPS:
		return "±500°/s"
	case GFS1000DPS:
		return "±1000°/s"
	case GFS2000DPS:
		return "±2000°/s"
	}
	return "unknown"
}

func (s AccelScale) configValue() byte { return byte(s) << 3 }

func (s GyroScale) configValue() byte { return byte(s) << 3 }
